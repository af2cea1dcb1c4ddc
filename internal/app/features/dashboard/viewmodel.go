// internal/app/features/dashboard/viewmodel.go
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dalemusser/ratingboard/internal/app/system/apiclient"
	"github.com/dalemusser/ratingboard/internal/app/system/viewscope"
	"github.com/dalemusser/ratingboard/internal/domain/models"
	"go.uber.org/zap"
)

// View kinds, used as registry keys.
const (
	KindAdmin      = "admin"
	KindStoreOwner = "store_owner"
	KindUser       = "user"
)

const dateLayout = "2006-01-02"

// ErrNotSubmittable is returned when a form is submitted before it is complete.
var ErrNotSubmittable = errors.New("form is not complete")

// AverageRating returns the arithmetic mean of the rating values, or 0 for
// an empty collection.
func AverageRating(ratings []models.Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r.Value
	}
	return float64(sum) / float64(len(ratings))
}

// FormatAverage renders an average with one decimal place.
func FormatAverage(avg float64) string {
	return fmt.Sprintf("%.1f", avg)
}

// SliceState is the fetch status of one independently loaded slice.
type SliceState string

const (
	SlicePending SliceState = "pending"
	SliceOK      SliceState = "ok"
	SliceFailed  SliceState = "failed"
)

// SliceStatus reports how the last fetch of a slice went.
type SliceStatus struct {
	State SliceState `json:"state"`
	Error string     `json:"error,omitempty"`

	auth bool
}

func statusFor(err error) SliceStatus {
	if err == nil {
		return SliceStatus{State: SliceOK}
	}
	return SliceStatus{State: SliceFailed, Error: apiclient.Message(err), auth: apiclient.IsAuth(err)}
}

// RatingRow is one rating as shown in a dashboard table.
type RatingRow struct {
	ID        models.ID `json:"id"`
	Value     int       `json:"value"`
	Date      string    `json:"date"`
	UserName  string    `json:"userName,omitempty"`
	StoreName string    `json:"storeName,omitempty"`
}

func ratingRows(ratings []models.Rating) []RatingRow {
	rows := make([]RatingRow, 0, len(ratings))
	for _, r := range ratings {
		row := RatingRow{
			ID:        r.ID,
			Value:     r.Value,
			UserName:  r.UserName,
			StoreName: r.StoreName,
		}
		if !r.CreatedAt.IsZero() {
			row.Date = r.CreatedAt.Format(dateLayout)
		}
		rows = append(rows, row)
	}
	return rows
}

// lifecycle runs a view's loads under a viewscope. Each load gets a fresh
// generation; a load that was superseded or deactivated cannot touch state.
type lifecycle struct {
	scope *viewscope.Scope
	log   *zap.Logger

	mu      sync.Mutex
	loading bool
	done    chan struct{}
}

func (l *lifecycle) init(logger *zap.Logger) {
	l.scope = viewscope.New()
	l.log = logger
	l.loading = true
}

// activate starts a load unless the view is already active.
func (l *lifecycle) activate(ctx context.Context, load func(context.Context, viewscope.Token)) {
	if l.scope.Active() {
		return
	}
	l.begin(ctx, load)
}

// begin starts a new load generation in the background. The load keeps
// request-scoped values from ctx but not its cancellation, since it
// outlives the request that triggered it.
func (l *lifecycle) begin(ctx context.Context, load func(context.Context, viewscope.Token)) {
	tok, lctx := l.scope.Begin(context.WithoutCancel(ctx))
	l.start(tok, lctx, load)
}

// lifetime captures the current activation, for work that must not
// outlive it.
func (l *lifecycle) lifetime() viewscope.Lifetime { return l.scope.Lifetime() }

// beginWithin starts a load only if the view has not been deactivated
// since lt was taken, and reports whether it did.
func (l *lifecycle) beginWithin(ctx context.Context, lt viewscope.Lifetime, load func(context.Context, viewscope.Token)) bool {
	tok, lctx, ok := l.scope.BeginWithin(lt, context.WithoutCancel(ctx))
	if !ok {
		return false
	}
	l.start(tok, lctx, load)
	return true
}

func (l *lifecycle) start(tok viewscope.Token, lctx context.Context, load func(context.Context, viewscope.Token)) {
	done := make(chan struct{})

	started := tok.Apply(func() {
		l.mu.Lock()
		l.loading = true
		l.done = done
		l.mu.Unlock()
	})
	if !started {
		close(done)
		return
	}

	go func() {
		defer close(done)
		load(lctx, tok)
		settled := tok.Apply(func() {
			l.mu.Lock()
			l.loading = false
			l.mu.Unlock()
		})
		if !settled {
			l.log.Debug("dropped stale load")
		}
	}()
}

// wait blocks until the current load settles or ctx ends.
func (l *lifecycle) wait(ctx context.Context) error {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// deactivate cancels in-flight work. Late completions become no-ops.
func (l *lifecycle) deactivate() {
	l.scope.Close()
	l.mu.Lock()
	l.loading = false
	l.mu.Unlock()
}

func (l *lifecycle) isLoading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

func (l *lifecycle) active() bool { return l.scope.Active() }
