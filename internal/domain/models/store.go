// internal/domain/models/store.go
package models

// Store is a rated business. OwnerName is denormalized by the backend for
// list views.
type Store struct {
	ID        ID     `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Address   string `json:"address"`
	OwnerID   ID     `json:"ownerId,omitempty"`
	OwnerName string `json:"ownerName,omitempty"`
}
