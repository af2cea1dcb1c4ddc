// internal/app/system/apiclient/session.go
package apiclient

import (
	"golang.org/x/oauth2"
)

// Session is the explicit credential context passed to every request-issuing
// call. Token is consulted at the moment each request is sent, so a token
// refreshed elsewhere is picked up by the next request.
type Session interface {
	Token() (string, error)
}

// SessionFunc adapts a function to the Session interface.
type SessionFunc func() (string, error)

// Token calls f.
func (f SessionFunc) Token() (string, error) { return f() }

// StaticSession returns a Session that always yields tok.
func StaticSession(tok string) Session {
	return SessionFunc(func() (string, error) { return tok, nil })
}

// tokenError marks failures that came from the session rather than the
// network, so they can be classified as auth failures.
type tokenError struct{ err error }

func (e *tokenError) Error() string { return "session token: " + e.err.Error() }
func (e *tokenError) Unwrap() error { return e.err }

// tokenSource bridges a Session to oauth2.Transport.
type tokenSource struct{ sess Session }

func (s tokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.sess.Token()
	if err != nil {
		return nil, &tokenError{err: err}
	}
	if tok == "" {
		return nil, &tokenError{err: ErrNoToken}
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
}
