// internal/domain/models/rating.go
package models

import (
	"encoding/json"
	"time"
)

// Rating is a single 1-5 score a user gave a store. Ratings are read-only
// from every dashboard.
//
// The store-owner endpoint sends the score under "rating" while the user
// endpoint sends it under "value"; UnmarshalJSON accepts either.
type Rating struct {
	ID        ID        `json:"id"`
	Value     int       `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	UserID    ID        `json:"userId,omitempty"`
	UserName  string    `json:"userName,omitempty"`
	StoreID   ID        `json:"storeId,omitempty"`
	StoreName string    `json:"storeName,omitempty"`
}

// timestamp layouts the backend has been seen to emit, most specific first.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// UnmarshalJSON decodes a rating, falling back to the "rating" field when
// "value" is absent. A createdAt in an unknown layout leaves CreatedAt zero
// rather than failing the rating, so one odd row cannot empty a list.
func (r *Rating) UnmarshalJSON(b []byte) error {
	type plain Rating
	var aux struct {
		plain
		Value     *int    `json:"value"`
		Rating    *int    `json:"rating"`
		CreatedAt *string `json:"createdAt"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*r = Rating(aux.plain)
	switch {
	case aux.Value != nil:
		r.Value = *aux.Value
	case aux.Rating != nil:
		r.Value = *aux.Rating
	}
	if aux.CreatedAt != nil && *aux.CreatedAt != "" {
		if t, ok := parseTimestamp(*aux.CreatedAt); ok {
			r.CreatedAt = t
		}
	}
	return nil
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
