package mock

import (
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/milan604/netlayer/pkg/logger"
)

type serverOptions struct {
	tracingService string
	logger         logger.LogManager
}

type ServerOption func(*serverOptions)

// WithTracing instruments the mock server with otelgin under the given service name.
func WithTracing(service string) ServerOption {
	return func(o *serverOptions) { o.tracingService = service }
}

// WithServerLogger logs every served request.
func WithServerLogger(l logger.LogManager) ServerOption {
	return func(o *serverOptions) { o.logger = l }
}

// NewServer returns a gin engine that answers every route from fixtures in fsys.
// Untagged requests get a 404.
func NewServer(fsys fs.FS, opts ...ServerOption) *gin.Engine {
	o := serverOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestIDMiddleware())
	if o.logger != nil {
		engine.Use(accessLogMiddleware(o.logger))
	}
	if o.tracingService != "" {
		engine.Use(otelgin.Middleware(o.tracingService))
	}
	engine.NoRoute(func(c *gin.Context) {
		m, ok := FromRequest(c.Request)
		if !ok {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		status, body := Load(fsys, m)
		if body == nil {
			c.AbortWithStatus(status)
			return
		}
		c.Data(status, "application/json", body)
	})
	return engine
}
