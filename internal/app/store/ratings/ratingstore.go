package ratingstore

import (
	"context"

	"github.com/dalemusser/ratingboard/internal/app/system/apiclient"
	"github.com/dalemusser/ratingboard/internal/domain/models"
)

// Store reads ratings through the backend API. Ratings are read-only here.
type Store struct {
	api *apiclient.Client
}

func New(api *apiclient.Client) *Store {
	return &Store{api: api}
}

// ForOwner returns the ratings of the signed-in store owner's store.
func (s *Store) ForOwner(ctx context.Context, sess apiclient.Session) ([]models.Rating, error) {
	return s.list(ctx, sess, "ratings.owner", "/api/store-owner/ratings")
}

// ForUser returns the signed-in user's own rating history.
func (s *Store) ForUser(ctx context.Context, sess apiclient.Session) ([]models.Rating, error) {
	return s.list(ctx, sess, "ratings.user", "/api/user/ratings")
}

func (s *Store) list(ctx context.Context, sess apiclient.Session, op, path string) ([]models.Rating, error) {
	var out []models.Rating
	if err := s.api.Get(ctx, sess, op, path, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Rating{}
	}
	return out, nil
}
