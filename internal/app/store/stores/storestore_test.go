package storestore_test

import (
	"errors"
	"net/http"
	"strconv"
	"testing"

	storestore "github.com/dalemusser/ratingboard/internal/app/store/stores"
	"github.com/dalemusser/ratingboard/internal/app/system/apiclient"
	"github.com/dalemusser/ratingboard/internal/domain/models"
	"github.com/dalemusser/ratingboard/internal/testutil"
)

func TestStore_CreateSendsOnlyStoreFields(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	store := storestore.New(fb.Client(t))
	sess := apiclient.StaticSession("tok")
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.Create(ctx, sess, storestore.CreateInput{Name: "Corner", Email: "c@x.io", Address: "3 Oak"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	body := fb.LastBody("POST", "/api/admin/stores")
	if len(body) != 3 || body["name"] != "Corner" || body["email"] != "c@x.io" || body["address"] != "3 Oak" {
		t.Errorf("create payload: %v", body)
	}

	stores, err := store.List(ctx, sess)
	if err != nil || len(stores) != 1 {
		t.Fatalf("List: %v %+v", err, stores)
	}
}

func TestStore_DeleteThenAbsent(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	id := fb.AddStore("Corner", "c@x.io", "3 Oak", 0)
	fb.AddStore("Deli", "d@x.io", "4 Oak", 0)
	store := storestore.New(fb.Client(t))
	sess := apiclient.StaticSession("tok")
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.Delete(ctx, sess, models.ID(strconv.Itoa(id))); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	stores, _ := store.List(ctx, sess)
	for _, st := range stores {
		if st.Name == "Corner" {
			t.Error("deleted store still listed")
		}
	}

	err := store.Delete(ctx, sess, models.ID(strconv.Itoa(id)))
	var apiErr *apiclient.Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound || !errors.Is(err, apiclient.ErrNetwork) {
		t.Errorf("second delete: got %v", err)
	}
}

func TestStore_Owned(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	owner := fb.AddUser("Olive", "o@x.io", "pw", models.RoleStoreOwner, "")
	sid := fb.AddStore("Olive's", "shop@x.io", "5 Pine", owner)
	fb.OwnStore(sid)
	store := storestore.New(fb.Client(t))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	st, err := store.Owned(ctx, apiclient.StaticSession("tok"))
	if err != nil {
		t.Fatalf("Owned failed: %v", err)
	}
	if st.Name != "Olive's" || st.OwnerName != "Olive" || st.OwnerID.IsZero() {
		t.Errorf("Owned: got %+v", st)
	}
}
