package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"homeserve/internal/services"
)

func setupSupportRouter(codes *mockVerificationService, audit *mockAuditService) *gin.Engine {
	handler := NewSupportHandler(codes, audit)
	r := gin.New()
	r.DELETE("/support/verification-codes", handler.ClearVerificationCodes)
	return r
}

func TestSupportHandler_ClearVerificationCodes(t *testing.T) {
	t.Run("clears and audits", func(t *testing.T) {
		var gotID services.Identity
		var gotPurpose string
		codes := &mockVerificationService{clearFn: func(id services.Identity, purpose string) (bool, error) {
			gotID, gotPurpose = id, purpose
			return true, nil
		}}
		audit := &mockAuditService{}
		r := setupSupportRouter(codes, audit)

		rec := doRequest(r, "DELETE", "/support/verification-codes?username=alice&email=alice@example.com&purpose=login", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotID.Username != "alice" || gotID.Email != "alice@example.com" || gotPurpose != "login" {
			t.Errorf("unexpected clear call %+v %q", gotID, gotPurpose)
		}
		if parseJSON(t, rec)["cleared"] != true {
			t.Error("expected cleared true")
		}
		if got := audit.actions(); len(got) != 1 || got[0] != services.AuditClearCodes {
			t.Errorf("unexpected audit %v", got)
		}
	})

	t.Run("reports nothing to clear", func(t *testing.T) {
		codes := &mockVerificationService{clearFn: func(services.Identity, string) (bool, error) { return false, nil }}
		r := setupSupportRouter(codes, &mockAuditService{})

		rec := doRequest(r, "DELETE", "/support/verification-codes?username=alice&email=alice@example.com&purpose=reset_password", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if parseJSON(t, rec)["cleared"] != false {
			t.Error("expected cleared false")
		}
	})

	t.Run("returns 400 on missing params", func(t *testing.T) {
		r := setupSupportRouter(&mockVerificationService{}, &mockAuditService{})

		rec := doRequest(r, "DELETE", "/support/verification-codes?username=alice&purpose=login", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorField(t, parseJSON(t, rec), "email")
	})
}
