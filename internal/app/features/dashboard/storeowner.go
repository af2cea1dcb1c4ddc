// internal/app/features/dashboard/storeowner.go
package dashboard

import (
	"context"
	"sync"

	ratingstore "github.com/dalemusser/ratingboard/internal/app/store/ratings"
	storestore "github.com/dalemusser/ratingboard/internal/app/store/stores"
	"github.com/dalemusser/ratingboard/internal/app/system/apiclient"
	"github.com/dalemusser/ratingboard/internal/app/system/join"
	"github.com/dalemusser/ratingboard/internal/app/system/timeouts"
	"github.com/dalemusser/ratingboard/internal/app/system/viewscope"
	"github.com/dalemusser/ratingboard/internal/domain/models"
	"go.uber.org/zap"
)

// StoreOwnerSnapshot is an immutable copy of the store-owner dashboard state.
type StoreOwnerSnapshot struct {
	Loading       bool          `json:"loading"`
	NeedsReauth   bool          `json:"needsReauth"`
	Store         *models.Store `json:"store"`
	StoreStatus   SliceStatus   `json:"storeStatus"`
	Ratings       []RatingRow   `json:"ratings"`
	RatingsStatus SliceStatus   `json:"ratingsStatus"`
	Average       float64       `json:"average"`
	AverageText   string        `json:"averageText"`
}

// StoreOwnerDashboard is the store-owner view-model. The owned store and
// its ratings load independently; each read fills its own slice.
type StoreOwnerDashboard struct {
	lc lifecycle

	stores  *storestore.Store
	ratings *ratingstore.Store
	sess    apiclient.Session
	log     *zap.Logger

	mu            sync.Mutex
	store         *models.Store
	storeStatus   SliceStatus
	ratingList    []models.Rating
	average       float64
	ratingsStatus SliceStatus
}

// NewStoreOwnerDashboard creates an inactive store-owner view-model bound to sess.
func NewStoreOwnerDashboard(stores *storestore.Store, ratings *ratingstore.Store, sess apiclient.Session, logger *zap.Logger) *StoreOwnerDashboard {
	d := &StoreOwnerDashboard{
		stores:        stores,
		ratings:       ratings,
		sess:          sess,
		log:           logger.With(zap.String("view", KindStoreOwner)),
		storeStatus:   SliceStatus{State: SlicePending},
		ratingList:    []models.Rating{},
		ratingsStatus: SliceStatus{State: SlicePending},
	}
	d.lc.init(d.log)
	return d
}

func (d *StoreOwnerDashboard) Activate(ctx context.Context)   { d.lc.activate(ctx, d.load) }
func (d *StoreOwnerDashboard) Refresh(ctx context.Context)    { d.lc.begin(ctx, d.load) }
func (d *StoreOwnerDashboard) Wait(ctx context.Context) error { return d.lc.wait(ctx) }
func (d *StoreOwnerDashboard) Deactivate()                    { d.lc.deactivate() }
func (d *StoreOwnerDashboard) Active() bool                   { return d.lc.active() }

func (d *StoreOwnerDashboard) load(ctx context.Context, tok viewscope.Token) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), d.log, "store owner dashboard load")
	defer cancel()

	outcomes := join.Settle(ctx,
		join.Task{Name: "store", Run: func(ctx context.Context) error {
			st, err := d.stores.Owned(ctx, d.sess)
			tok.Apply(func() {
				d.mu.Lock()
				defer d.mu.Unlock()
				d.storeStatus = statusFor(err)
				if err == nil {
					d.store = &st
				}
			})
			return err
		}},
		join.Task{Name: "ratings", Run: func(ctx context.Context) error {
			rs, err := d.ratings.ForOwner(ctx, d.sess)
			tok.Apply(func() {
				d.mu.Lock()
				defer d.mu.Unlock()
				d.ratingsStatus = statusFor(err)
				if err == nil {
					d.ratingList = rs
					d.average = AverageRating(rs)
				}
			})
			return err
		}},
	)
	if err := join.Err(outcomes); err != nil && tok.Valid() {
		d.log.Error("store owner fetch failed", zap.Error(err))
	}
}

// Snapshot returns a copy of the current state.
func (d *StoreOwnerDashboard) Snapshot() StoreOwnerSnapshot {
	loading := d.lc.isLoading()

	d.mu.Lock()
	defer d.mu.Unlock()

	snap := StoreOwnerSnapshot{
		Loading:       loading,
		StoreStatus:   d.storeStatus,
		Ratings:       ratingRows(d.ratingList),
		RatingsStatus: d.ratingsStatus,
		Average:       d.average,
		AverageText:   FormatAverage(d.average),
		NeedsReauth:   d.storeStatus.auth || d.ratingsStatus.auth,
	}
	if d.store != nil {
		st := *d.store
		snap.Store = &st
	}
	return snap
}
