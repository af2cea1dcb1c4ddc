// internal/app/features/dashboard/handler.go
package dashboard

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	errorsfeature "github.com/dalemusser/ratingboard/internal/app/features/errors"
	metricsstore "github.com/dalemusser/ratingboard/internal/app/store/metrics"
	ratingstore "github.com/dalemusser/ratingboard/internal/app/store/ratings"
	storestore "github.com/dalemusser/ratingboard/internal/app/store/stores"
	userstore "github.com/dalemusser/ratingboard/internal/app/store/users"
	"github.com/dalemusser/ratingboard/internal/app/system/auth"
	"github.com/dalemusser/ratingboard/internal/app/system/authz"
	"github.com/dalemusser/ratingboard/internal/app/system/dialog"
	"github.com/dalemusser/ratingboard/internal/app/system/limits"
	"github.com/dalemusser/ratingboard/internal/app/system/timeouts"
	"github.com/dalemusser/ratingboard/internal/app/system/viewstate"
	"github.com/dalemusser/ratingboard/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Stores groups the backend stores the dashboards read from.
type Stores struct {
	Users   *userstore.Store
	Stores  *storestore.Store
	Ratings *ratingstore.Store
	Metrics *metricsstore.Store
}

type Handler struct {
	Stores Stores
	Tokens *auth.TokenStore
	Views  *viewstate.Registry
	ErrLog *errorsfeature.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(st Stores, tokens *auth.TokenStore, views *viewstate.Registry, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Stores: st,
		Tokens: tokens,
		Views:  views,
		ErrLog: errLog,
		Log:    logger,
	}
}

// ServeDashboard sends the signed-in user to their role's dashboard.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	role, _, _, ok := authz.UserCtx(r)
	if !ok {
		errorsfeature.WriteJSON(w, http.StatusUnauthorized, errorsfeature.Body{Error: "unauthorized"})
		return
	}

	switch role {
	case models.RoleAdmin:
		http.Redirect(w, r, "/dashboard/admin", http.StatusSeeOther)
	case models.RoleStoreOwner:
		http.Redirect(w, r, "/dashboard/store-owner", http.StatusSeeOther)
	case models.RoleUser:
		http.Redirect(w, r, "/dashboard/user", http.StatusSeeOther)
	default:
		h.Log.Warn("dashboard requested with unknown role", zap.String("role", string(role)))
		errorsfeature.WriteJSON(w, http.StatusForbidden, errorsfeature.Body{Error: "forbidden", Message: "No dashboard for this role."})
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| View lookup                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	sid, ok := authz.SessionID(r)
	if !ok {
		errorsfeature.WriteJSON(w, http.StatusUnauthorized, errorsfeature.Body{Error: "unauthorized", NeedsReauth: true})
		return "", false
	}
	return sid, true
}

func (h *Handler) adminView(w http.ResponseWriter, r *http.Request) (*AdminDashboard, bool) {
	sid, ok := h.sessionID(w, r)
	if !ok {
		return nil, false
	}
	v := viewstate.Get(h.Views, sid, KindAdmin, func() *AdminDashboard {
		return NewAdminDashboard(h.Stores.Users, h.Stores.Stores, h.Stores.Metrics, h.Tokens.Session(sid), h.Log)
	})
	v.Activate(r.Context())
	return v, true
}

func (h *Handler) ownerView(w http.ResponseWriter, r *http.Request) (*StoreOwnerDashboard, bool) {
	sid, ok := h.sessionID(w, r)
	if !ok {
		return nil, false
	}
	v := viewstate.Get(h.Views, sid, KindStoreOwner, func() *StoreOwnerDashboard {
		return NewStoreOwnerDashboard(h.Stores.Stores, h.Stores.Ratings, h.Tokens.Session(sid), h.Log)
	})
	v.Activate(r.Context())
	return v, true
}

func (h *Handler) userView(w http.ResponseWriter, r *http.Request) (*UserDashboard, bool) {
	sid, ok := h.sessionID(w, r)
	if !ok {
		return nil, false
	}
	v := viewstate.Get(h.Views, sid, KindUser, func() *UserDashboard {
		return NewUserDashboard(h.Stores.Users, h.Stores.Ratings, h.Tokens.Session(sid), h.Log)
	})
	v.Activate(r.Context())
	return v, true
}

// existingView returns the session's view of the given kind without
// creating one. A missing view means no dialog can be open, so the request
// is answered 409 and nothing is fetched.
func existingView[T viewstate.View](h *Handler, w http.ResponseWriter, r *http.Request, kind string) (T, bool) {
	var zero T
	sid, ok := h.sessionID(w, r)
	if !ok {
		return zero, false
	}
	v, ok := viewstate.Lookup[T](h.Views, sid, kind)
	if !ok {
		h.dialogError(w, r, dialog.ErrNotOpen)
		return zero, false
	}
	return v, true
}

// waitIfAsked blocks for the current load when the caller passed ?wait=true.
func waitIfAsked(r *http.Request, wait func(context.Context) error) {
	if ok, _ := strconv.ParseBool(r.URL.Query().Get("wait")); !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()
	_ = wait(ctx)
}

// settle waits for the load a mutation triggered, bounded by the request.
func settle(r *http.Request, wait func(context.Context) error) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()
	_ = wait(ctx)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Administrator                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeAdmin handles GET /dashboard/admin.
func (h *Handler) ServeAdmin(w http.ResponseWriter, r *http.Request) {
	v, ok := h.adminView(w, r)
	if !ok {
		return
	}
	waitIfAsked(r, v.Wait)
	errorsfeature.WriteJSON(w, http.StatusOK, v.Snapshot())
}

// RefreshAdmin handles POST /dashboard/admin/refresh.
func (h *Handler) RefreshAdmin(w http.ResponseWriter, r *http.Request) {
	v, ok := h.adminView(w, r)
	if !ok {
		return
	}
	v.Refresh(r.Context())
	waitIfAsked(r, v.Wait)
	errorsfeature.WriteJSON(w, http.StatusOK, v.Snapshot())
}

// OpenCreateDialog handles POST /dashboard/admin/dialog/{kind}.
func (h *Handler) OpenCreateDialog(w http.ResponseWriter, r *http.Request) {
	kind, err := ParseCreateKind(chi.URLParam(r, "kind"))
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "Unknown dialog kind.", err)
		return
	}
	v, ok := h.adminView(w, r)
	if !ok {
		return
	}
	if err := v.OpenCreate(kind); err != nil {
		h.dialogError(w, r, err)
		return
	}
	errorsfeature.WriteJSON(w, http.StatusOK, v.Snapshot())
}

// UpdateCreateDialog handles PUT /dashboard/admin/dialog/form.
func (h *Handler) UpdateCreateDialog(w http.ResponseWriter, r *http.Request) {
	var form CreateForm
	if err := decodeJSON(r, &form); err != nil {
		h.ErrLog.LogBadRequest(w, r, "Invalid JSON body.", err)
		return
	}
	v, ok := h.adminView(w, r)
	if !ok {
		return
	}
	if err := v.UpdateCreateForm(form); err != nil {
		h.dialogError(w, r, err)
		return
	}
	errorsfeature.WriteJSON(w, http.StatusOK, v.Snapshot())
}

// CancelCreateDialog handles POST /dashboard/admin/dialog/cancel.
func (h *Handler) CancelCreateDialog(w http.ResponseWriter, r *http.Request) {
	v, ok := existingView[*AdminDashboard](h, w, r, KindAdmin)
	if !ok {
		return
	}
	if err := v.CancelCreate(); err != nil {
		h.dialogError(w, r, err)
		return
	}
	errorsfeature.WriteJSON(w, http.StatusOK, v.Snapshot())
}

// SubmitCreateDialog handles POST /dashboard/admin/dialog/submit. A
// rejected submit answers with the snapshot, whose dialog carries the
// error, under the status of the failure.
func (h *Handler) SubmitCreateDialog(w http.ResponseWriter, r *http.Request) {
	v, ok := h.adminView(w, r)
	if !ok {
		return
	}
	if err := v.SubmitCreate(r.Context()); err != nil {
		if isDialogStateError(err) {
			h.dialogError(w, r, err)
			return
		}
		errorsfeature.WriteJSON(w, errorsfeature.StatusFor(err), v.Snapshot())
		return
	}
	settle(r, v.Wait)
	errorsfeature.WriteJSON(w, http.StatusOK, v.Snapshot())
}

// DeleteUser handles DELETE /dashboard/admin/users/{id}.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	h.deleteEntity(w, r, "users.delete", func(v *AdminDashboard, id models.ID) error {
		return v.DeleteUser(r.Context(), id)
	})
}

// DeleteStore handles DELETE /dashboard/admin/stores/{id}.
func (h *Handler) DeleteStore(w http.ResponseWriter, r *http.Request) {
	h.deleteEntity(w, r, "stores.delete", func(v *AdminDashboard, id models.ID) error {
		return v.DeleteStore(r.Context(), id)
	})
}

func (h *Handler) deleteEntity(w http.ResponseWriter, r *http.Request, op string, del func(*AdminDashboard, models.ID) error) {
	id := models.ID(chi.URLParam(r, "id"))
	if id.IsZero() {
		h.ErrLog.LogBadRequest(w, r, "Missing id.", nil)
		return
	}
	v, ok := h.adminView(w, r)
	if !ok {
		return
	}
	if err := del(v, id); err != nil {
		h.ErrLog.LogUpstream(w, r, op, err)
		return
	}
	settle(r, v.Wait)
	errorsfeature.WriteJSON(w, http.StatusOK, v.Snapshot())
}

/*─────────────────────────────────────────────────────────────────────────────*
| Store owner                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeStoreOwner handles GET /dashboard/store-owner.
func (h *Handler) ServeStoreOwner(w http.ResponseWriter, r *http.Request) {
	v, ok := h.ownerView(w, r)
	if !ok {
		return
	}
	waitIfAsked(r, v.Wait)
	errorsfeature.WriteJSON(w, http.StatusOK, v.Snapshot())
}

// RefreshStoreOwner handles POST /dashboard/store-owner/refresh.
func (h *Handler) RefreshStoreOwner(w http.ResponseWriter, r *http.Request) {
	v, ok := h.ownerView(w, r)
	if !ok {
		return
	}
	v.Refresh(r.Context())
	waitIfAsked(r, v.Wait)
	errorsfeature.WriteJSON(w, http.StatusOK, v.Snapshot())
}

/*─────────────────────────────────────────────────────────────────────────────*
| User                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeUser handles GET /dashboard/user.
func (h *Handler) ServeUser(w http.ResponseWriter, r *http.Request) {
	v, ok := h.userView(w, r)
	if !ok {
		return
	}
	waitIfAsked(r, v.Wait)
	errorsfeature.WriteJSON(w, http.StatusOK, v.Snapshot())
}

// RefreshUser handles POST /dashboard/user/refresh.
func (h *Handler) RefreshUser(w http.ResponseWriter, r *http.Request) {
	v, ok := h.userView(w, r)
	if !ok {
		return
	}
	v.Refresh(r.Context())
	waitIfAsked(r, v.Wait)
	errorsfeature.WriteJSON(w, http.StatusOK, v.Snapshot())
}

// OpenPasswordDialog handles POST /dashboard/user/password/open.
func (h *Handler) OpenPasswordDialog(w http.ResponseWriter, r *http.Request) {
	v, ok := h.userView(w, r)
	if !ok {
		return
	}
	if err := v.OpenPasswordDialog(); err != nil {
		h.dialogError(w, r, err)
		return
	}
	errorsfeature.WriteJSON(w, http.StatusOK, v.Snapshot())
}

// UpdatePasswordDialog handles PUT /dashboard/user/password/form.
func (h *Handler) UpdatePasswordDialog(w http.ResponseWriter, r *http.Request) {
	var form PasswordForm
	if err := decodeJSON(r, &form); err != nil {
		h.ErrLog.LogBadRequest(w, r, "Invalid JSON body.", err)
		return
	}
	v, ok := h.userView(w, r)
	if !ok {
		return
	}
	if err := v.UpdatePasswordForm(form); err != nil {
		h.dialogError(w, r, err)
		return
	}
	errorsfeature.WriteJSON(w, http.StatusOK, v.Snapshot())
}

// CancelPasswordDialog handles POST /dashboard/user/password/cancel.
func (h *Handler) CancelPasswordDialog(w http.ResponseWriter, r *http.Request) {
	v, ok := existingView[*UserDashboard](h, w, r, KindUser)
	if !ok {
		return
	}
	if err := v.CancelPasswordDialog(); err != nil {
		h.dialogError(w, r, err)
		return
	}
	errorsfeature.WriteJSON(w, http.StatusOK, v.Snapshot())
}

// SubmitPasswordDialog handles POST /dashboard/user/password/submit.
func (h *Handler) SubmitPasswordDialog(w http.ResponseWriter, r *http.Request) {
	v, ok := h.userView(w, r)
	if !ok {
		return
	}
	if err := v.SubmitPassword(r.Context()); err != nil {
		if isDialogStateError(err) {
			h.dialogError(w, r, err)
			return
		}
		errorsfeature.WriteJSON(w, errorsfeature.StatusFor(err), v.Snapshot())
		return
	}
	errorsfeature.WriteJSON(w, http.StatusOK, v.Snapshot())
}

/*─────────────────────────────────────────────────────────────────────────────*
| Helpers                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func isDialogStateError(err error) bool {
	return stderrors.Is(err, dialog.ErrBusy) ||
		stderrors.Is(err, dialog.ErrNotOpen) ||
		stderrors.Is(err, ErrNotSubmittable)
}

func (h *Handler) dialogError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case stderrors.Is(err, dialog.ErrBusy):
		h.ErrLog.LogConflict(w, r, "A submission is already in progress.", err)
	case stderrors.Is(err, dialog.ErrNotOpen):
		h.ErrLog.LogConflict(w, r, "The dialog is not open.", err)
	case stderrors.Is(err, ErrNotSubmittable):
		h.ErrLog.LogBadRequest(w, r, "Fill in every field; the new passwords must match.", err)
	default:
		h.ErrLog.LogBadRequest(w, r, err.Error(), err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, limits.MaxFormBody))
	if err := dec.Decode(v); err != nil && !stderrors.Is(err, io.EOF) {
		return err
	}
	return nil
}
