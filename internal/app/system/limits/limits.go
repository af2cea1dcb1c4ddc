// internal/app/system/limits/limits.go
package limits

// Request body size limits for JSON endpoints.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// MaxLoginBody is the maximum size of a POST /login body.
	MaxLoginBody = 16 << 10 // 16 KB

	// MaxFormBody is the maximum size of a dashboard dialog form update.
	MaxFormBody = 64 << 10 // 64 KB
)
