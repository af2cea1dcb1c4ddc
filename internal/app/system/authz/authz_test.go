package authz_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/ratingboard/internal/app/system/auth"
	"github.com/dalemusser/ratingboard/internal/app/system/authz"
	"github.com/dalemusser/ratingboard/internal/domain/models"
)

func TestUserCtx_NoUser(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)

	role, name, id, ok := authz.UserCtx(req)
	if ok || role != "visitor" || name != "" || id != "" {
		t.Errorf("expected visitor, got role=%q name=%q id=%q ok=%v", role, name, id, ok)
	}
	if _, ok := authz.SessionID(req); ok {
		t.Error("expected no session ID")
	}
}

func TestUserCtx_NormalizesRole(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{SessionID: "s", ID: "5", Name: "Bo", Role: "Normal"})

	role, name, id, ok := authz.UserCtx(req)
	if !ok || role != models.RoleUser || name != "Bo" || id != "5" {
		t.Errorf("got role=%q name=%q id=%q ok=%v", role, name, id, ok)
	}
	if sid, ok := authz.SessionID(req); !ok || sid != "s" {
		t.Errorf("SessionID: got %q %v", sid, ok)
	}
}

func TestRolePredicates(t *testing.T) {
	tests := []struct {
		role                       string
		admin, storeOwner, isUser bool
	}{
		{"admin", true, false, false},
		{"store_owner", false, true, false},
		{"user", false, false, true},
		{"normal", false, false, true},
	}
	for _, tc := range tests {
		t.Run(tc.role, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			req = auth.WithTestUser(req, &auth.SessionUser{ID: "1", Role: tc.role})

			if got := authz.IsAdmin(req); got != tc.admin {
				t.Errorf("IsAdmin = %v", got)
			}
			if got := authz.IsStoreOwner(req); got != tc.storeOwner {
				t.Errorf("IsStoreOwner = %v", got)
			}
			if got := authz.IsUser(req); got != tc.isUser {
				t.Errorf("IsUser = %v", got)
			}
		})
	}
}

func TestHasAnyRole(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	if authz.HasAnyRole(req, models.RoleAdmin) {
		t.Error("visitor should have no role")
	}

	req = auth.WithTestUser(req, &auth.SessionUser{ID: "1", Role: "store_owner"})
	if !authz.HasAnyRole(req, models.RoleAdmin, models.RoleStoreOwner) {
		t.Error("expected store owner to match")
	}
	if authz.HasRole(req, models.RoleAdmin) {
		t.Error("store owner is not admin")
	}
	if role, ok := authz.Role(req); !ok || role != models.RoleStoreOwner {
		t.Errorf("Role: got %q %v", role, ok)
	}
}
