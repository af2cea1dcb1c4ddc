// internal/app/system/authz/authz.go
package authz

import (
	"net/http"

	"github.com/dalemusser/ratingboard/internal/app/system/auth"
	"github.com/dalemusser/ratingboard/internal/domain/models"
)

// UserCtx returns the user's role, name, backend user ID, and a found flag.
// If no user is present in context it returns "visitor", "", "", false.
// Roles are normalized through models.ParseRole, so "normal" reads as "user".
func UserCtx(r *http.Request) (role models.Role, name string, userID string, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", "", false
	}
	return models.ParseRole(user.Role), user.Name, user.ID, true
}

// SessionID returns the browser session ID of the signed-in user.
func SessionID(r *http.Request) (string, bool) {
	user, ok := auth.CurrentUser(r)
	if !ok || user.SessionID == "" {
		return "", false
	}
	return user.SessionID, true
}

// IsAdmin reports whether the current request's user is an admin.
func IsAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleAdmin
}

// IsStoreOwner reports whether the current request's user owns a store.
func IsStoreOwner(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleStoreOwner
}

// IsUser reports whether the current request's user is a normal user.
func IsUser(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleUser
}
