package metricsstore

import (
	"context"

	"github.com/dalemusser/ratingboard/internal/app/system/apiclient"
	"github.com/dalemusser/ratingboard/internal/domain/models"
)

// Store reads platform-wide totals through the backend API.
type Store struct {
	api *apiclient.Client
}

func New(api *apiclient.Client) *Store {
	return &Store{api: api}
}

// FetchStats returns the totals shown on the admin dashboard. Unlike the
// list endpoints a failure here is reported, not zeroed.
func (s *Store) FetchStats(ctx context.Context, sess apiclient.Session) (models.Stats, error) {
	var st models.Stats
	err := s.api.Get(ctx, sess, "stats.get", "/api/admin/stats", &st)
	return st, err
}
