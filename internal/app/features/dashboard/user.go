// internal/app/features/dashboard/user.go
package dashboard

import (
	"context"
	"sync"

	ratingstore "github.com/dalemusser/ratingboard/internal/app/store/ratings"
	userstore "github.com/dalemusser/ratingboard/internal/app/store/users"
	"github.com/dalemusser/ratingboard/internal/app/system/apiclient"
	"github.com/dalemusser/ratingboard/internal/app/system/dialog"
	"github.com/dalemusser/ratingboard/internal/app/system/join"
	"github.com/dalemusser/ratingboard/internal/app/system/timeouts"
	"github.com/dalemusser/ratingboard/internal/app/system/viewscope"
	"github.com/dalemusser/ratingboard/internal/domain/models"
	"go.uber.org/zap"
)

const passwordChangedNotice = "Password updated successfully"

// PasswordForm holds the change-password fields.
type PasswordForm struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Submittable reports whether every field is filled and the new password
// matches its confirmation.
func (f PasswordForm) Submittable() bool {
	return f.CurrentPassword != "" &&
		f.NewPassword != "" &&
		f.ConfirmPassword != "" &&
		f.NewPassword == f.ConfirmPassword
}

// PasswordDialogView describes the password dialog without echoing the
// secrets it holds.
type PasswordDialogView struct {
	Open       bool         `json:"open"`
	State      dialog.State `json:"state"`
	CurrentSet bool         `json:"currentSet"`
	NewSet     bool         `json:"newSet"`
	ConfirmSet bool         `json:"confirmSet"`
	Mismatch   bool         `json:"mismatch"`
	CanSubmit  bool         `json:"canSubmit"`
	Error      string       `json:"error,omitempty"`
}

// UserSnapshot is an immutable copy of the user dashboard state.
type UserSnapshot struct {
	Loading        bool               `json:"loading"`
	NeedsReauth    bool               `json:"needsReauth"`
	Profile        *models.User       `json:"profile"`
	ProfileStatus  SliceStatus        `json:"profileStatus"`
	Ratings        []RatingRow        `json:"ratings"`
	RatingsStatus  SliceStatus        `json:"ratingsStatus"`
	PasswordDialog PasswordDialogView `json:"passwordDialog"`
	Notice         string             `json:"notice,omitempty"`
}

// UserDashboard is the end-user view-model: profile, own rating history
// and the change-password dialog.
type UserDashboard struct {
	lc lifecycle

	users   *userstore.Store
	ratings *ratingstore.Store
	sess    apiclient.Session
	log     *zap.Logger

	dlg dialog.Machine

	mu            sync.Mutex
	profile       *models.User
	profileStatus SliceStatus
	ratingList    []models.Rating
	ratingsStatus SliceStatus
	form          PasswordForm
	notice        string
}

// NewUserDashboard creates an inactive user view-model bound to sess.
func NewUserDashboard(users *userstore.Store, ratings *ratingstore.Store, sess apiclient.Session, logger *zap.Logger) *UserDashboard {
	d := &UserDashboard{
		users:         users,
		ratings:       ratings,
		sess:          sess,
		log:           logger.With(zap.String("view", KindUser)),
		profileStatus: SliceStatus{State: SlicePending},
		ratingList:    []models.Rating{},
		ratingsStatus: SliceStatus{State: SlicePending},
	}
	d.lc.init(d.log)
	return d
}

func (d *UserDashboard) Activate(ctx context.Context)   { d.lc.activate(ctx, d.load) }
func (d *UserDashboard) Refresh(ctx context.Context)    { d.lc.begin(ctx, d.load) }
func (d *UserDashboard) Wait(ctx context.Context) error { return d.lc.wait(ctx) }
func (d *UserDashboard) Deactivate()                    { d.lc.deactivate() }
func (d *UserDashboard) Active() bool                   { return d.lc.active() }

func (d *UserDashboard) load(ctx context.Context, tok viewscope.Token) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), d.log, "user dashboard load")
	defer cancel()

	outcomes := join.Settle(ctx,
		join.Task{Name: "profile", Run: func(ctx context.Context) error {
			u, err := d.users.Profile(ctx, d.sess)
			tok.Apply(func() {
				d.mu.Lock()
				defer d.mu.Unlock()
				d.profileStatus = statusFor(err)
				if err == nil {
					d.profile = &u
				}
			})
			return err
		}},
		join.Task{Name: "ratings", Run: func(ctx context.Context) error {
			rs, err := d.ratings.ForUser(ctx, d.sess)
			tok.Apply(func() {
				d.mu.Lock()
				defer d.mu.Unlock()
				d.ratingsStatus = statusFor(err)
				if err == nil {
					d.ratingList = rs
				}
			})
			return err
		}},
	)
	if err := join.Err(outcomes); err != nil && tok.Valid() {
		d.log.Error("user fetch failed", zap.Error(err))
	}
}

// Snapshot returns a copy of the current state.
func (d *UserDashboard) Snapshot() UserSnapshot {
	loading := d.lc.isLoading()
	state := d.dlg.State()
	dlgErr := d.dlg.LastError()

	d.mu.Lock()
	defer d.mu.Unlock()

	snap := UserSnapshot{
		Loading:       loading,
		ProfileStatus: d.profileStatus,
		Ratings:       ratingRows(d.ratingList),
		RatingsStatus: d.ratingsStatus,
		NeedsReauth:   d.profileStatus.auth || d.ratingsStatus.auth,
		Notice:        d.notice,
		PasswordDialog: PasswordDialogView{
			State: state,
		},
	}
	if d.profile != nil {
		u := *d.profile
		snap.Profile = &u
	}
	switch state {
	case dialog.Idle, dialog.Submitting, dialog.Failed:
		pd := &snap.PasswordDialog
		pd.Open = true
		pd.CurrentSet = d.form.CurrentPassword != ""
		pd.NewSet = d.form.NewPassword != ""
		pd.ConfirmSet = d.form.ConfirmPassword != ""
		pd.Mismatch = d.form.ConfirmPassword != "" && d.form.NewPassword != d.form.ConfirmPassword
		pd.CanSubmit = state != dialog.Submitting && d.form.Submittable()
	}
	if dlgErr != nil {
		snap.PasswordDialog.Error = apiclient.Message(dlgErr)
		if apiclient.IsAuth(dlgErr) {
			snap.NeedsReauth = true
		}
	}
	return snap
}

// OpenPasswordDialog shows the change-password dialog with empty fields.
func (d *UserDashboard) OpenPasswordDialog() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	wasOpen := d.dlg.IsOpen()
	if err := d.dlg.Open(); err != nil {
		return err
	}
	if !wasOpen {
		d.form = PasswordForm{}
	}
	d.notice = ""
	return nil
}

// UpdatePasswordForm replaces the dialog fields while it is open.
func (d *UserDashboard) UpdatePasswordForm(f PasswordForm) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.dlg.State() {
	case dialog.Submitting:
		return dialog.ErrBusy
	case dialog.Idle, dialog.Failed:
	default:
		return dialog.ErrNotOpen
	}
	d.form = f
	return nil
}

// CanSubmitPassword reports whether the submit control is enabled.
func (d *UserDashboard) CanSubmitPassword() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.dlg.State() {
	case dialog.Idle, dialog.Failed:
		return d.form.Submittable()
	}
	return false
}

// CancelPasswordDialog closes the dialog and clears all three fields. It
// never issues a request.
func (d *UserDashboard) CancelPasswordDialog() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.dlg.Cancel(); err != nil {
		return err
	}
	d.form = PasswordForm{}
	return nil
}

// SubmitPassword sends the current and new password. Only those two
// fields leave the process. Success closes the dialog and clears the
// form; failure keeps the dialog open with the error.
func (d *UserDashboard) SubmitPassword(ctx context.Context) error {
	d.mu.Lock()
	form := d.form
	switch d.dlg.State() {
	case dialog.Idle, dialog.Failed:
		if !form.Submittable() {
			d.mu.Unlock()
			return ErrNotSubmittable
		}
	}
	if err := d.dlg.BeginSubmit(); err != nil {
		d.mu.Unlock()
		return err
	}
	d.mu.Unlock()

	cctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), d.log, "change password")
	err := d.users.ChangePassword(cctx, d.sess, form.CurrentPassword, form.NewPassword)
	cancel()

	d.mu.Lock()
	d.dlg.Finish(err)
	if err == nil {
		d.form = PasswordForm{}
		d.notice = passwordChangedNotice
	}
	d.mu.Unlock()

	if err != nil {
		d.log.Warn("password change failed", zap.Error(err))
		return err
	}
	d.log.Info("password changed")
	return nil
}
