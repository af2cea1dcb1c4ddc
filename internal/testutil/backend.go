package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/ratingboard/internal/app/system/apiclient"
	"github.com/dalemusser/ratingboard/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// TestContext returns a context with a generous timeout for tests.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// FakeRating is a rating as the fake backend stores it.
type FakeRating struct {
	ID        int
	Value     int
	CreatedAt time.Time
	UserID    int
	StoreID   int
}

type fakeUser struct {
	models.User
	password string
}

// FakeBackend is an in-memory stand-in for the backend REST API. It serves
// the admin, store-owner, user and auth endpoints over httptest, counts
// every request by "METHOD /path" and can be told to fail or stall routes.
//
// Every signed-in caller acts as the profile user (ProfileID) for
// /api/user/* and as the owner of OwnerStoreID for /api/store-owner/*.
type FakeBackend struct {
	Server *httptest.Server

	mu           sync.Mutex
	users        []fakeUser
	stores       []models.Store
	ratings      []FakeRating
	nextID       int
	profileID    int
	ownerStoreID int
	calls        map[string]int
	failures     map[string]failure
	gates        map[string]chan struct{}
	revoked      map[string]bool
	tokens       map[string]int
	lastAuth     map[string]string
	lastBody     map[string]map[string]any
}

type failure struct {
	status int
	body   string
}

// NewFakeBackend starts a fake backend that is closed when t finishes.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	f := &FakeBackend{
		nextID:   100,
		calls:    make(map[string]int),
		failures: make(map[string]failure),
		gates:    make(map[string]chan struct{}),
		revoked:  make(map[string]bool),
		tokens:   make(map[string]int),
		lastAuth: make(map[string]string),
		lastBody: make(map[string]map[string]any),
	}
	f.Server = httptest.NewServer(f.routes())
	t.Cleanup(func() {
		f.mu.Lock()
		for k, ch := range f.gates {
			close(ch)
			delete(f.gates, k)
		}
		f.mu.Unlock()
		f.Server.Close()
	})
	return f
}

// URL is the base URL of the fake backend.
func (f *FakeBackend) URL() string { return f.Server.URL }

// Client returns an API client pointed at the fake backend.
func (f *FakeBackend) Client(t *testing.T) *apiclient.Client {
	t.Helper()
	c, err := apiclient.New(f.Server.URL, zap.NewNop(), apiclient.WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("apiclient.New: %v", err)
	}
	return c
}

// AddUser seeds a user and returns its ID.
func (f *FakeBackend) AddUser(name, email, password string, role models.Role, address string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.newID()
	f.users = append(f.users, fakeUser{
		User:     models.User{ID: models.ID(fmt.Sprint(id)), Name: name, Email: email, Role: role, Address: address},
		password: password,
	})
	return id
}

// AddStore seeds a store and returns its ID.
func (f *FakeBackend) AddStore(name, email, address string, ownerID int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.newID()
	st := models.Store{ID: models.ID(fmt.Sprint(id)), Name: name, Email: email, Address: address}
	if u := f.userLocked(ownerID); u != nil {
		st.OwnerID = u.ID
		st.OwnerName = u.Name
	}
	f.stores = append(f.stores, st)
	return id
}

// AddRating seeds a rating and returns its ID.
func (f *FakeBackend) AddRating(userID, storeID, value int, at time.Time) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.newID()
	f.ratings = append(f.ratings, FakeRating{ID: id, Value: value, CreatedAt: at, UserID: userID, StoreID: storeID})
	return id
}

// ActAs sets the user served by /api/user/* endpoints.
func (f *FakeBackend) ActAs(userID int) {
	f.mu.Lock()
	f.profileID = userID
	f.mu.Unlock()
}

// OwnStore sets the store served by /api/store-owner/* endpoints.
func (f *FakeBackend) OwnStore(storeID int) {
	f.mu.Lock()
	f.ownerStoreID = storeID
	f.mu.Unlock()
}

// Calls returns how many times "METHOD path" was requested.
func (f *FakeBackend) Calls(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method+" "+path]
}

// TotalCalls returns the number of requests received.
func (f *FakeBackend) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// LastAuthorization returns the Authorization header of the last
// "METHOD path" request.
func (f *FakeBackend) LastAuthorization(method, path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuth[method+" "+path]
}

// LastBody returns the decoded JSON body of the last "METHOD path" request.
func (f *FakeBackend) LastBody(method, path string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastBody[method+" "+path]
}

// FailWith makes "METHOD path" answer status with a {"message"} body.
func (f *FakeBackend) FailWith(method, path string, status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, _ := json.Marshal(map[string]string{"message": message})
	f.failures[method+" "+path] = failure{status: status, body: string(body)}
}

// Heal removes a failure set by FailWith.
func (f *FakeBackend) Heal(method, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failures, method+" "+path)
}

// Hold makes "METHOD path" block until the returned release func is called.
func (f *FakeBackend) Hold(method, path string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[method+" "+path] = ch
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.gates[method+" "+path] == ch {
			delete(f.gates, method+" "+path)
			close(ch)
		}
	}
}

// Revoke makes the backend reject tok with 401.
func (f *FakeBackend) Revoke(tok string) {
	f.mu.Lock()
	f.revoked[tok] = true
	f.mu.Unlock()
}

// Password returns the stored password of a user, for assertions.
func (f *FakeBackend) Password(userID int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u := f.userLocked(userID); u != nil {
		return u.password
	}
	return ""
}

// StoreCount returns the number of stores held.
func (f *FakeBackend) StoreCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stores)
}

func (f *FakeBackend) newID() int {
	f.nextID++
	return f.nextID
}

func (f *FakeBackend) userLocked(id int) *fakeUser {
	want := models.ID(fmt.Sprint(id))
	for i := range f.users {
		if f.users[i].ID == want {
			return &f.users[i]
		}
	}
	return nil
}

func (f *FakeBackend) storeLocked(id int) *models.Store {
	want := models.ID(fmt.Sprint(id))
	for i := range f.stores {
		if f.stores[i].ID == want {
			return &f.stores[i]
		}
	}
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| HTTP surface                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

func (f *FakeBackend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(f.track)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) { writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}) })
	r.Post("/api/auth/login", f.login)

	r.Group(func(pr chi.Router) {
		pr.Use(f.requireBearer)

		pr.Get("/api/admin/users", f.listUsers)
		pr.Post("/api/admin/users", f.createUser)
		pr.Delete("/api/admin/users/{id}", f.deleteUser)
		pr.Get("/api/admin/stores", f.listStores)
		pr.Post("/api/admin/stores", f.createStore)
		pr.Delete("/api/admin/stores/{id}", f.deleteStore)
		pr.Get("/api/admin/stats", f.stats)

		pr.Get("/api/store-owner/store", f.ownerStore)
		pr.Get("/api/store-owner/ratings", f.ownerRatings)

		pr.Get("/api/user/profile", f.profile)
		pr.Get("/api/user/ratings", f.userRatings)
		pr.Put("/api/user/change-password", f.changePassword)
	})
	return r
}

// track counts the request, records its auth header and body, then applies
// any configured hold or failure.
func (f *FakeBackend) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		var body map[string]any
		if r.Body != nil && r.ContentLength != 0 {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}

		f.mu.Lock()
		f.calls[key]++
		f.lastAuth[key] = r.Header.Get("Authorization")
		f.lastBody[key] = body
		gate := f.gates[key]
		fail, failing := f.failures[key]
		f.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}
		if failing {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(fail.status)
			_, _ = w.Write([]byte(fail.body))
			return
		}
		next.ServeHTTP(w, withBody(r, body))
	})
}

func (f *FakeBackend) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		f.mu.Lock()
		revoked := f.revoked[tok]
		f.mu.Unlock()
		if !ok || tok == "" || revoked {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type bodyKey struct{}

func withBody(r *http.Request, body map[string]any) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), bodyKey{}, body))
}

func bodyString(r *http.Request, key string) string {
	body, _ := r.Context().Value(bodyKey{}).(map[string]any)
	s, _ := body[key].(string)
	return s
}

func (f *FakeBackend) login(w http.ResponseWriter, r *http.Request) {
	email, password := bodyString(r, "email"), bodyString(r, "password")

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) && u.password == password {
			tok := fmt.Sprintf("tok-%s-%d", u.ID, f.newID())
			writeJSON(w, http.StatusOK, map[string]any{"token": tok, "user": u.User})
			return
		}
	}
	writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
}

func (f *FakeBackend) listUsers(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u.User)
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeBackend) createUser(w http.ResponseWriter, r *http.Request) {
	name, email := bodyString(r, "name"), bodyString(r, "email")
	if name == "" || email == "" || bodyString(r, "password") == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Name, email and password are required"})
		return
	}
	role := models.ParseRole(bodyString(r, "role"))
	if !role.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid role"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "Email already exists"})
			return
		}
	}
	u := fakeUser{
		User: models.User{
			ID:      models.ID(fmt.Sprint(f.newID())),
			Name:    name,
			Email:   email,
			Role:    role,
			Address: bodyString(r, "address"),
		},
		password: bodyString(r, "password"),
	}
	f.users = append(f.users, u)
	writeJSON(w, http.StatusCreated, u.User)
}

func (f *FakeBackend) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := models.ID(chi.URLParam(r, "id"))
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, u := range f.users {
		if u.ID == id {
			f.users = append(f.users[:i], f.users[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "User not found"})
}

func (f *FakeBackend) listStores(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Store, len(f.stores))
	copy(out, f.stores)
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeBackend) createStore(w http.ResponseWriter, r *http.Request) {
	name, email := bodyString(r, "name"), bodyString(r, "email")
	if name == "" || email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Name and email are required"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	st := models.Store{
		ID:      models.ID(fmt.Sprint(f.newID())),
		Name:    name,
		Email:   email,
		Address: bodyString(r, "address"),
	}
	f.stores = append(f.stores, st)
	writeJSON(w, http.StatusCreated, st)
}

func (f *FakeBackend) deleteStore(w http.ResponseWriter, r *http.Request) {
	id := models.ID(chi.URLParam(r, "id"))
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, st := range f.stores {
		if st.ID == id {
			f.stores = append(f.stores[:i], f.stores[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Store deleted"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Store not found"})
}

func (f *FakeBackend) stats(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, models.Stats{
		TotalUsers:   int64(len(f.users)),
		TotalStores:  int64(len(f.stores)),
		TotalRatings: int64(len(f.ratings)),
	})
}

func (f *FakeBackend) ownerStore(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.storeLocked(f.ownerStoreID)
	if st == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Store not found"})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ownerRatings answers with the score under "rating", as the store-owner
// endpoint does.
func (f *FakeBackend) ownerRatings(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []map[string]any{}
	for _, rt := range f.ratings {
		if rt.StoreID != f.ownerStoreID {
			continue
		}
		name := ""
		if u := f.userLocked(rt.UserID); u != nil {
			name = u.Name
		}
		out = append(out, map[string]any{
			"id":        rt.ID,
			"rating":    rt.Value,
			"createdAt": rt.CreatedAt.Format(time.RFC3339),
			"userId":    rt.UserID,
			"userName":  name,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeBackend) profile(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.userLocked(f.profileID)
	if u == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "User not found"})
		return
	}
	writeJSON(w, http.StatusOK, u.User)
}

func (f *FakeBackend) userRatings(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []map[string]any{}
	for _, rt := range f.ratings {
		if rt.UserID != f.profileID {
			continue
		}
		name := ""
		if st := f.storeLocked(rt.StoreID); st != nil {
			name = st.Name
		}
		out = append(out, map[string]any{
			"id":        rt.ID,
			"value":     rt.Value,
			"createdAt": rt.CreatedAt.Format(time.RFC3339),
			"storeId":   rt.StoreID,
			"storeName": name,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeBackend) changePassword(w http.ResponseWriter, r *http.Request) {
	current, next := bodyString(r, "currentPassword"), bodyString(r, "newPassword")
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.userLocked(f.profileID)
	if u == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "User not found"})
		return
	}
	if u.password != current {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Current password is incorrect"})
		return
	}
	if next == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "New password is required"})
		return
	}
	u.password = next
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
