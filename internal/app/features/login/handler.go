// internal/app/features/login/handler.go
package login

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/ratingboard/internal/app/features/errors"
	userstore "github.com/dalemusser/ratingboard/internal/app/store/users"
	"github.com/dalemusser/ratingboard/internal/app/system/apiclient"
	"github.com/dalemusser/ratingboard/internal/app/system/auth"
	"github.com/dalemusser/ratingboard/internal/app/system/htmlsanitize"
	"github.com/dalemusser/ratingboard/internal/app/system/limits"
	"github.com/dalemusser/ratingboard/internal/app/system/ratelimit"
	"github.com/dalemusser/ratingboard/internal/app/system/timeouts"
	"github.com/dalemusser/ratingboard/internal/app/system/viewstate"
	"go.uber.org/zap"
)

type Handler struct {
	Users      *userstore.Store
	SessionMgr *auth.SessionManager
	Views      *viewstate.Registry
	Limiter    *ratelimit.LoginLimiter // nil disables rate limiting
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger
}

func NewHandler(users *userstore.Store, sessionMgr *auth.SessionManager, views *viewstate.Registry, limiter *ratelimit.LoginLimiter, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:      users,
		SessionMgr: sessionMgr,
		Views:      views,
		Limiter:    limiter,
		ErrLog:     errLog,
		Log:        logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionUserView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type loginResponse struct {
	User      sessionUserView `json:"user"`
	Dashboard string          `json:"dashboard"`
}

// HandleLoginPost handles POST /login. Credentials are checked by the
// backend; on success the bearer token is held server side against a new
// session and only the session cookie reaches the browser.
func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, limits.MaxLoginBody))
	if err := dec.Decode(&in); err != nil && !errors.Is(err, io.EOF) {
		h.ErrLog.LogBadRequest(w, r, "Invalid JSON body.", err)
		return
	}

	email := strings.ToLower(htmlsanitize.PlainText(in.Email))
	if email == "" || in.Password == "" {
		h.ErrLog.LogBadRequest(w, r, "Email and password are required.", nil)
		return
	}

	if h.Limiter != nil {
		if ok, reason := h.Limiter.Check(r, email); !ok {
			h.Log.Warn("login rate limited",
				zap.String("email", email),
				zap.String("ip", ratelimit.ClientIP(r)))
			w.Header().Set("Retry-After", "60")
			uierrors.WriteJSON(w, http.StatusTooManyRequests, uierrors.Body{
				Error:   "rate_limited",
				Message: reason,
			})
			return
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "login")
	defer cancel()

	res, err := h.Users.Login(ctx, email, in.Password)
	if err != nil {
		if apiclient.IsAuth(err) || apiclient.IsValidation(err) {
			h.Log.Info("login rejected", zap.String("email", email), zap.Error(err))
			uierrors.WriteJSON(w, http.StatusUnauthorized, uierrors.Body{
				Error:   "invalid_credentials",
				Message: "Invalid email or password.",
			})
			return
		}
		h.ErrLog.LogUpstream(w, r, "auth.login", err)
		return
	}

	if !res.User.Role.Valid() {
		h.Log.Warn("login for account with unknown role",
			zap.String("user_id", res.User.ID.String()),
			zap.String("role", string(res.User.Role)))
		uierrors.WriteJSON(w, http.StatusForbidden, uierrors.Body{
			Error:   "forbidden",
			Message: "This account has no dashboard.",
		})
		return
	}

	if h.Limiter != nil {
		h.Limiter.ResetEmail(email)
	}

	// Signing in over an existing session ends it; its views go with it.
	if prev, ok := auth.CurrentUser(r); ok && h.Views != nil {
		h.Views.DropSession(prev.SessionID)
	}

	u, err := h.SessionMgr.SignIn(w, r, auth.SessionUser{
		ID:    res.User.ID.String(),
		Name:  res.User.Name,
		Email: res.User.Email,
		Role:  string(res.User.Role),
	}, res.Token)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "login: save session", err)
		return
	}

	uierrors.WriteJSON(w, http.StatusOK, loginResponse{
		User: sessionUserView{
			ID:    u.ID,
			Name:  u.Name,
			Email: u.Email,
			Role:  u.Role,
		},
		Dashboard: "/dashboard",
	})
}
