package storestore

import (
	"context"

	"github.com/dalemusser/ratingboard/internal/app/system/apiclient"
	"github.com/dalemusser/ratingboard/internal/domain/models"
)

// Store reads and mutates stores through the backend API.
type Store struct {
	api *apiclient.Client
}

func New(api *apiclient.Client) *Store {
	return &Store{api: api}
}

// CreateInput is the payload for creating a store.
type CreateInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

// List returns every store (admin only).
func (s *Store) List(ctx context.Context, sess apiclient.Session) ([]models.Store, error) {
	var out []models.Store
	if err := s.api.Get(ctx, sess, "stores.list", "/api/admin/stores", &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Store{}
	}
	return out, nil
}

// Create adds a store (admin only).
func (s *Store) Create(ctx context.Context, sess apiclient.Session, in CreateInput) error {
	return s.api.Post(ctx, sess, "stores.create", "/api/admin/stores", in, nil)
}

// Delete removes a store by ID (admin only).
func (s *Store) Delete(ctx context.Context, sess apiclient.Session, id models.ID) error {
	return s.api.Delete(ctx, sess, "stores.delete", "/api/admin/stores/"+id.PathEscaped())
}

// Owned returns the store owned by the signed-in store owner.
func (s *Store) Owned(ctx context.Context, sess apiclient.Session) (models.Store, error) {
	var st models.Store
	err := s.api.Get(ctx, sess, "stores.owned", "/api/store-owner/store", &st)
	return st, err
}
