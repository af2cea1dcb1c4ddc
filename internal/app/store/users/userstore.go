package userstore

import (
	"context"
	"errors"

	"github.com/dalemusser/ratingboard/internal/app/system/apiclient"
	"github.com/dalemusser/ratingboard/internal/domain/models"
)

// Store reads and mutates user accounts through the backend API.
type Store struct {
	api *apiclient.Client
}

func New(api *apiclient.Client) *Store {
	return &Store{api: api}
}

// CreateInput is the payload for creating a user. The backend validates it.
type CreateInput struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Address  string      `json:"address"`
	Role     models.Role `json:"role"`
}

// LoginResult is what the backend hands back on a successful sign-in.
type LoginResult struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

var errNoToken = errors.New("login response carried no token")

// List returns every user (admin only).
func (s *Store) List(ctx context.Context, sess apiclient.Session) ([]models.User, error) {
	var out []models.User
	if err := s.api.Get(ctx, sess, "users.list", "/api/admin/users", &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.User{}
	}
	return out, nil
}

// Create adds a user (admin only).
func (s *Store) Create(ctx context.Context, sess apiclient.Session, in CreateInput) error {
	return s.api.Post(ctx, sess, "users.create", "/api/admin/users", in, nil)
}

// Delete removes a user by ID (admin only).
func (s *Store) Delete(ctx context.Context, sess apiclient.Session, id models.ID) error {
	return s.api.Delete(ctx, sess, "users.delete", "/api/admin/users/"+id.PathEscaped())
}

// Profile returns the signed-in user's own account.
func (s *Store) Profile(ctx context.Context, sess apiclient.Session) (models.User, error) {
	var u models.User
	err := s.api.Get(ctx, sess, "users.profile", "/api/user/profile", &u)
	return u, err
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword updates the signed-in user's password.
func (s *Store) ChangePassword(ctx context.Context, sess apiclient.Session, current, next string) error {
	return s.api.Put(ctx, sess, "users.change_password", "/api/user/change-password",
		changePasswordRequest{CurrentPassword: current, NewPassword: next}, nil)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a bearer token. No token is sent.
func (s *Store) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var out LoginResult
	if err := s.api.PostAnonymous(ctx, "auth.login", "/api/auth/login", loginRequest{Email: email, Password: password}, &out); err != nil {
		return LoginResult{}, err
	}
	if out.Token == "" {
		return LoginResult{}, &apiclient.Error{
			Op: "auth.login", Method: "POST", Path: "/api/auth/login",
			Kind: apiclient.ErrAuth, Err: errNoToken,
		}
	}
	out.User.Role = models.ParseRole(string(out.User.Role))
	return out, nil
}
