// internal/domain/models/stats.go
package models

// Stats holds the platform totals computed by the backend.
type Stats struct {
	TotalUsers   int64 `json:"totalUsers"`
	TotalStores  int64 `json:"totalStores"`
	TotalRatings int64 `json:"totalRatings"`
}
