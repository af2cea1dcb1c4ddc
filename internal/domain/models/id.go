// internal/domain/models/id.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
)

// ID is a backend record identifier. The backend may send identifiers as
// JSON numbers or strings; both decode to the same textual form.
type ID string

// UnmarshalJSON accepts a JSON string, number, or null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: expected string or number, got %s", b)
	}
	*id = ID(n.String())
	return nil
}

// String returns the identifier text.
func (id ID) String() string { return string(id) }

// IsZero reports whether the identifier is empty.
func (id ID) IsZero() bool { return id == "" }

// PathEscaped returns the identifier escaped for use as a URL path segment.
func (id ID) PathEscaped() string { return url.PathEscape(string(id)) }
