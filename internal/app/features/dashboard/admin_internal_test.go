package dashboard

import (
	"context"
	"net/http"
	"testing"

	metricsstore "github.com/dalemusser/ratingboard/internal/app/store/metrics"
	storestore "github.com/dalemusser/ratingboard/internal/app/store/stores"
	userstore "github.com/dalemusser/ratingboard/internal/app/store/users"
	"github.com/dalemusser/ratingboard/internal/app/system/apiclient"
	"github.com/dalemusser/ratingboard/internal/app/system/dialog"
	"github.com/dalemusser/ratingboard/internal/testutil"
	"go.uber.org/zap"
)

func TestSubmitCreate_WithoutKindSendsNothing(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	api := fb.Client(t)
	d := NewAdminDashboard(userstore.New(api), storestore.New(api), metricsstore.New(api),
		apiclient.StaticSession("tok"), zap.NewNop())
	t.Cleanup(d.Deactivate)

	if err := d.OpenCreate(CreateUser); err != nil {
		t.Fatal(err)
	}
	d.mu.Lock()
	d.kind = ""
	d.form = CreateForm{Name: "Nobody"}
	d.mu.Unlock()

	if err := d.SubmitCreate(context.Background()); err == nil {
		t.Fatal("submit without a kind should fail")
	}
	if n := fb.Calls(http.MethodPost, "/api/admin/users"); n != 0 {
		t.Errorf("no user should be created, got %d POSTs", n)
	}
	if d.dlg.State() != dialog.Failed {
		t.Errorf("dialog state: got %v, want failed", d.dlg.State())
	}
}
