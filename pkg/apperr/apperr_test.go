package apperr

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
)

func TestDecodeFromServerBody(t *testing.T) {
	var a AppError
	body := `{"code":"token_expired","message":"","suggestions":[{"field":"token","message":"refresh"}]}`
	if err := json.Unmarshal([]byte(body), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !a.HasCode(ErrorCodeTokenExpired) {
		t.Errorf("HasCode(token_expired) = false for %q", a.Code)
	}
	if got := a.UserMessage(); got != "Session expired" {
		t.Errorf("UserMessage() = %q, want fallback from code", got)
	}
	if len(a.Suggestions) != 1 || a.Suggestions[0].Field != "token" {
		t.Errorf("Suggestions = %+v", a.Suggestions)
	}
}

func TestErrorsIsMatchesByCode(t *testing.T) {
	err := error(Newf(ErrorCodeNotFound, "user %d not found", 7).WithStatus(http.StatusNotFound))
	if !errors.Is(err, New(ErrorCodeNotFound)) {
		t.Error("expected errors.Is to match by code")
	}
	if errors.Is(err, New(ErrorCodeForbidden)) {
		t.Error("unexpected match on different code")
	}
	if err.Error() != "not_found: user 7 not found" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestNilSafety(t *testing.T) {
	var a *AppError
	if a.Error() != "<nil>" || a.UserMessage() != "" || a.HasCode(ErrorCodeInternal) {
		t.Error("nil AppError should be inert")
	}
	if New(nil).Code != ErrorCodeInternal.Code() {
		t.Error("New(nil) should fall back to internal")
	}
}
