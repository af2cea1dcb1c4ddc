// internal/app/features/dashboard/admin.go
package dashboard

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	metricsstore "github.com/dalemusser/ratingboard/internal/app/store/metrics"
	storestore "github.com/dalemusser/ratingboard/internal/app/store/stores"
	userstore "github.com/dalemusser/ratingboard/internal/app/store/users"
	"github.com/dalemusser/ratingboard/internal/app/system/apiclient"
	"github.com/dalemusser/ratingboard/internal/app/system/dialog"
	"github.com/dalemusser/ratingboard/internal/app/system/htmlsanitize"
	"github.com/dalemusser/ratingboard/internal/app/system/join"
	"github.com/dalemusser/ratingboard/internal/app/system/timeouts"
	"github.com/dalemusser/ratingboard/internal/app/system/viewscope"
	"github.com/dalemusser/ratingboard/internal/domain/models"
	"go.uber.org/zap"
)

// CreateKind selects what the admin create dialog creates.
type CreateKind string

const (
	CreateUser  CreateKind = "user"
	CreateStore CreateKind = "store"
)

// ParseCreateKind validates a create kind.
func ParseCreateKind(s string) (CreateKind, error) {
	switch k := CreateKind(s); k {
	case CreateUser, CreateStore:
		return k, nil
	}
	return "", fmt.Errorf("unknown create kind %q", s)
}

// CreateForm is the single form shared by both create kinds. Store
// creation uses only name, email and address.
type CreateForm struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Address  string      `json:"address"`
	Role     models.Role `json:"role"`
}

func defaultCreateForm() CreateForm {
	return CreateForm{Role: models.RoleUser}
}

// StatCards are the admin totals, pre-formatted for display.
type StatCards struct {
	TotalUsers   string `json:"totalUsers"`
	TotalStores  string `json:"totalStores"`
	TotalRatings string `json:"totalRatings"`
}

// CreateDialogView is the create dialog as the browser sees it. The
// password is never echoed back.
type CreateDialogView struct {
	Open        bool         `json:"open"`
	State       dialog.State `json:"state"`
	Kind        CreateKind   `json:"kind,omitempty"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Address     string       `json:"address"`
	Role        models.Role  `json:"role"`
	PasswordSet bool         `json:"passwordSet"`
	Error       string       `json:"error,omitempty"`
}

// AdminSnapshot is an immutable copy of the admin dashboard state.
type AdminSnapshot struct {
	Loading     bool             `json:"loading"`
	LoadError   string           `json:"loadError,omitempty"`
	NeedsReauth bool             `json:"needsReauth"`
	Users       []models.User    `json:"users"`
	Stores      []models.Store   `json:"stores"`
	Stats       StatCards        `json:"stats"`
	Dialog      CreateDialogView `json:"dialog"`
}

// AdminDashboard is the administrator view-model. Users, stores and stats
// load together and are published only if all three succeed.
type AdminDashboard struct {
	lc lifecycle

	users   *userstore.Store
	stores  *storestore.Store
	metrics *metricsstore.Store
	sess    apiclient.Session
	log     *zap.Logger

	dlg dialog.Machine

	mu        sync.Mutex
	userList  []models.User
	storeList []models.Store
	stats     models.Stats
	loadErr   error
	kind      CreateKind
	form      CreateForm
}

// NewAdminDashboard creates an inactive admin view-model bound to sess.
func NewAdminDashboard(users *userstore.Store, stores *storestore.Store, metrics *metricsstore.Store, sess apiclient.Session, logger *zap.Logger) *AdminDashboard {
	d := &AdminDashboard{
		users:     users,
		stores:    stores,
		metrics:   metrics,
		sess:      sess,
		log:       logger.With(zap.String("view", KindAdmin)),
		userList:  []models.User{},
		storeList: []models.Store{},
		form:      defaultCreateForm(),
	}
	d.lc.init(d.log)
	return d
}

// Activate starts the initial load if the view is not already active.
func (d *AdminDashboard) Activate(ctx context.Context) { d.lc.activate(ctx, d.load) }

// Refresh re-runs the full load, superseding any load in flight.
func (d *AdminDashboard) Refresh(ctx context.Context) { d.lc.begin(ctx, d.load) }

// Wait blocks until the current load settles or ctx ends.
func (d *AdminDashboard) Wait(ctx context.Context) error { return d.lc.wait(ctx) }

// Deactivate cancels in-flight fetches.
func (d *AdminDashboard) Deactivate() { d.lc.deactivate() }

// Active reports whether the view has been activated and not deactivated.
func (d *AdminDashboard) Active() bool { return d.lc.active() }

func (d *AdminDashboard) load(ctx context.Context, tok viewscope.Token) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), d.log, "admin dashboard load")
	defer cancel()

	var (
		users  []models.User
		stores []models.Store
		stats  models.Stats
	)
	err := join.All(ctx,
		join.Task{Name: "users", Run: func(ctx context.Context) (err error) {
			users, err = d.users.List(ctx, d.sess)
			return err
		}},
		join.Task{Name: "stores", Run: func(ctx context.Context) (err error) {
			stores, err = d.stores.List(ctx, d.sess)
			return err
		}},
		join.Task{Name: "stats", Run: func(ctx context.Context) (err error) {
			stats, err = d.metrics.FetchStats(ctx, d.sess)
			return err
		}},
	)

	applied := tok.Apply(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if err != nil {
			d.loadErr = err
			return
		}
		d.loadErr = nil
		d.userList = users
		d.storeList = stores
		d.stats = stats
	})
	if err != nil && applied {
		d.log.Error("admin dashboard load failed", zap.Error(err))
	}
}

// Snapshot returns a copy of the current state.
func (d *AdminDashboard) Snapshot() AdminSnapshot {
	loading := d.lc.isLoading()
	state := d.dlg.State()
	dlgErr := d.dlg.LastError()

	d.mu.Lock()
	defer d.mu.Unlock()

	snap := AdminSnapshot{
		Loading: loading,
		Users:   append([]models.User(nil), d.userList...),
		Stores:  append([]models.Store(nil), d.storeList...),
		Stats: StatCards{
			TotalUsers:   strconv.FormatInt(d.stats.TotalUsers, 10),
			TotalStores:  strconv.FormatInt(d.stats.TotalStores, 10),
			TotalRatings: strconv.FormatInt(d.stats.TotalRatings, 10),
		},
		Dialog: CreateDialogView{
			State: state,
		},
	}
	if snap.Users == nil {
		snap.Users = []models.User{}
	}
	if snap.Stores == nil {
		snap.Stores = []models.Store{}
	}
	if d.loadErr != nil {
		snap.LoadError = apiclient.Message(d.loadErr)
		snap.NeedsReauth = apiclient.IsAuth(d.loadErr)
	}
	switch state {
	case dialog.Idle, dialog.Submitting, dialog.Failed:
		snap.Dialog.Open = true
		snap.Dialog.Kind = d.kind
		snap.Dialog.Name = d.form.Name
		snap.Dialog.Email = d.form.Email
		snap.Dialog.Address = d.form.Address
		snap.Dialog.Role = d.form.Role
		snap.Dialog.PasswordSet = d.form.Password != ""
	}
	if dlgErr != nil {
		snap.Dialog.Error = apiclient.Message(dlgErr)
		if apiclient.IsAuth(dlgErr) {
			snap.NeedsReauth = true
		}
	}
	return snap
}

// OpenCreate opens the create dialog for kind. Reopening while open only
// switches the kind; the form is kept.
func (d *AdminDashboard) OpenCreate(kind CreateKind) error {
	if _, err := ParseCreateKind(string(kind)); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.dlg.Open(); err != nil {
		return err
	}
	d.kind = kind
	return nil
}

// UpdateCreateForm replaces the form fields while the dialog is open.
// Markup is stripped from text fields; an empty role means "user".
func (d *AdminDashboard) UpdateCreateForm(f CreateForm) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.dlg.State() {
	case dialog.Submitting:
		return dialog.ErrBusy
	case dialog.Idle, dialog.Failed:
	default:
		return dialog.ErrNotOpen
	}
	f.Name = htmlsanitize.PlainText(f.Name)
	f.Email = htmlsanitize.PlainText(f.Email)
	f.Address = htmlsanitize.PlainText(f.Address)
	f.Role = models.ParseRole(string(f.Role))
	if f.Role == "" {
		f.Role = models.RoleUser
	}
	d.form = f
	return nil
}

// CancelCreate closes the dialog and resets the form. No request is made.
func (d *AdminDashboard) CancelCreate() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.dlg.Cancel(); err != nil {
		return err
	}
	d.kind = ""
	d.form = defaultCreateForm()
	return nil
}

// SubmitCreate posts the form for the selected kind. On success the dialog
// closes, the form resets and exactly one full refresh starts. On failure
// the dialog stays open in the failed state and the error is returned.
func (d *AdminDashboard) SubmitCreate(ctx context.Context) error {
	life := d.lc.lifetime()

	d.mu.Lock()
	if err := d.dlg.BeginSubmit(); err != nil {
		d.mu.Unlock()
		return err
	}
	kind, form := d.kind, d.form
	d.mu.Unlock()

	cctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), d.log, "create "+string(kind))
	var err error
	switch kind {
	case CreateUser:
		err = d.users.Create(cctx, d.sess, userstore.CreateInput{
			Name:     form.Name,
			Email:    form.Email,
			Password: form.Password,
			Address:  form.Address,
			Role:     form.Role,
		})
	case CreateStore:
		err = d.stores.Create(cctx, d.sess, storestore.CreateInput{
			Name:    form.Name,
			Email:   form.Email,
			Address: form.Address,
		})
	default:
		_, err = ParseCreateKind(string(kind))
	}
	cancel()

	// Finish and the reset happen together so that a dialog reopened right
	// after success keeps its new kind and fields.
	d.mu.Lock()
	d.dlg.Finish(err)
	if err == nil {
		d.kind = ""
		d.form = defaultCreateForm()
	}
	d.mu.Unlock()

	if err != nil {
		d.log.Warn("create failed", zap.String("kind", string(kind)), zap.Error(err))
		return err
	}
	d.log.Info("created", zap.String("kind", string(kind)), zap.String("name", form.Name))
	d.refreshWithin(ctx, life)
	return nil
}

// refreshWithin refreshes after a mutation unless the view was deactivated
// while the mutation was in flight.
func (d *AdminDashboard) refreshWithin(ctx context.Context, life viewscope.Lifetime) {
	if !d.lc.beginWithin(ctx, life, d.load) {
		d.log.Debug("view deactivated during mutation; skipping refresh")
	}
}

// DeleteUser deletes a user and refreshes all slices.
func (d *AdminDashboard) DeleteUser(ctx context.Context, id models.ID) error {
	return d.remove(ctx, "user", id, d.users.Delete)
}

// DeleteStore deletes a store and refreshes all slices.
func (d *AdminDashboard) DeleteStore(ctx context.Context, id models.ID) error {
	return d.remove(ctx, "store", id, d.stores.Delete)
}

func (d *AdminDashboard) remove(ctx context.Context, what string, id models.ID, del func(context.Context, apiclient.Session, models.ID) error) error {
	life := d.lc.lifetime()
	dctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), d.log, "delete "+what)
	err := del(dctx, d.sess, id)
	cancel()
	if err != nil {
		d.log.Warn("delete failed", zap.String("kind", what), zap.String("id", id.String()), zap.Error(err))
		return err
	}
	d.log.Info("deleted", zap.String("kind", what), zap.String("id", id.String()))
	d.refreshWithin(ctx, life)
	return nil
}
