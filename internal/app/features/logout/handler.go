// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	uierrors "github.com/dalemusser/ratingboard/internal/app/features/errors"
	"github.com/dalemusser/ratingboard/internal/app/system/auth"
	"github.com/dalemusser/ratingboard/internal/app/system/viewstate"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	Views      *viewstate.Registry
}

func NewHandler(sessionMgr *auth.SessionManager, views *viewstate.Registry, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		Views:      views,
	}
}

type logoutResponse struct {
	Status string `json:"status"`
	Login  string `json:"login"`
}

// ServeLogout handles POST /logout. The bearer token is forgotten, the
// session's views are deactivated, and the cookie is expired.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	sid, err := h.SessionMgr.SignOut(w, r)
	if err != nil {
		// Still drop server-side state; the cookie is useless without a token.
		h.Log.Error("logout: expire session", zap.Error(err))
	}
	if sid == "" {
		if u, ok := auth.CurrentUser(r); ok {
			sid = u.SessionID
		}
	}

	if sid != "" {
		h.SessionMgr.Tokens().Clear(sid)
		n := 0
		if h.Views != nil {
			n = h.Views.DropSession(sid)
		}
		h.Log.Info("user signed out", zap.Int("views_dropped", n))
	}

	uierrors.WriteJSON(w, http.StatusOK, logoutResponse{Status: "signed_out", Login: "/login"})
}
