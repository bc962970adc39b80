package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/crm_backend/appctx"
	"bitbucket.org/mmdatafocus/crm_backend/docstore"
	"bitbucket.org/mmdatafocus/crm_backend/models"
	"bitbucket.org/mmdatafocus/crm_backend/utils"
	"bitbucket.org/mmdatafocus/crm_backend/workflow"
)

type fakeBackend struct {
	mu   sync.Mutex
	docs map[string]map[string]map[string]any
	seq  int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{docs: map[string]map[string]map[string]any{}}
}

func (f *fakeBackend) Subscribe(ctx context.Context, path string) (<-chan docstore.Snapshot, error) {
	return nil, errors.New("not supported")
}

func (f *fakeBackend) Create(ctx context.Context, path string, fields map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("gen-%d", f.seq)
	if f.docs[path] == nil {
		f.docs[path] = map[string]map[string]any{}
	}
	stored := make(map[string]any, len(fields))
	for k, v := range fields {
		stored[k] = v
	}
	f.docs[path][id] = stored
	return id, nil
}

func (f *fakeBackend) Update(ctx context.Context, path, id string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[path][id]
	if !ok {
		return utils.ErrorRecordNotFound
	}
	for k, v := range fields {
		doc[k] = v
	}
	return nil
}

func (f *fakeBackend) Get(ctx context.Context, path, id string) (docstore.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fields, ok := f.docs[path][id]
	if !ok {
		return docstore.Document{}, utils.ErrorRecordNotFound
	}
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return docstore.Document{ID: id, Fields: copied}, nil
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newTestHandler() (*CRMHandler, *fakeBackend) {
	fb := newFakeBackend()
	return NewCRMHandler(nil, workflow.NewOrchestrator(fb, testLogger(), nil), testLogger()), fb
}

func tenantCtx() context.Context {
	ctx := appctx.Set(context.Background(), appctx.ContextKeyTenantId, "t1")
	return appctx.Set(ctx, appctx.ContextKeyUserId, "user-1")
}

func saveRequest(t *testing.T, h *CRMHandler, collection, id, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	target := "/api/data/" + collection
	if id != "" {
		target += "/" + id
	}
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	c.Request = req.WithContext(tenantCtx())
	c.Params = gin.Params{{Key: "collection", Value: collection}}
	if id != "" {
		c.Params = append(c.Params, gin.Param{Key: "id", Value: id})
	}
	h.Save(c)
	return w
}

func createdId(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("save failed: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		Id string `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp.Id
}

func TestSaveUpdateSendsOnlySuppliedFields(t *testing.T) {
	h, fb := newTestHandler()

	id := createdId(t, saveRequest(t, h, models.CollectionCustomers, "",
		`{"name":"Acme","email":"old@acme.test","phone":"111"}`))

	// Update carrying only part of the fields, through the HTTP path.
	w := saveRequest(t, h, models.CollectionCustomers, id, `{"name":"Acme v2"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update failed: %d %s", w.Code, w.Body.String())
	}

	doc, err := fb.Get(context.Background(),
		models.TenantCollectionPath("t1", models.CollectionCustomers), id)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Fields["name"] != "Acme v2" {
		t.Fatalf("name not updated: %v", doc.Fields["name"])
	}
	if doc.Fields["email"] != "old@acme.test" || doc.Fields["phone"] != "111" {
		t.Fatalf("omitted fields overwritten: %+v", doc.Fields)
	}
}

func TestSaveProductRenameKeepsPrices(t *testing.T) {
	h, fb := newTestHandler()

	id := createdId(t, saveRequest(t, h, models.CollectionProducts, "",
		`{"name":"Widget","cost_price":"12.50","selling_price":"20.00"}`))

	w := saveRequest(t, h, models.CollectionProducts, id, `{"name":"Widget v2"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("rename failed: %d %s", w.Code, w.Body.String())
	}

	doc, _ := fb.Get(context.Background(),
		models.TenantCollectionPath("t1", models.CollectionProducts), id)
	if doc.Fields["cost_price"] != "12.5" || doc.Fields["selling_price"] != "20" {
		t.Fatalf("rename clobbered prices: %+v", doc.Fields)
	}
}

func TestSaveUpdateValidatesSuppliedEnums(t *testing.T) {
	h, _ := newTestHandler()

	id := createdId(t, saveRequest(t, h, models.CollectionOrders, "",
		`{"customerId":"c1","items":[]}`))

	w := saveRequest(t, h, models.CollectionOrders, id, `{"status":"Shipped"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid enum must be rejected, got %d %s", w.Code, w.Body.String())
	}
}

func TestSaveUpdateOfUnknownIdIs404(t *testing.T) {
	h, _ := newTestHandler()

	w := saveRequest(t, h, models.CollectionCustomers, "ghost", `{"name":"x"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d %s", w.Code, w.Body.String())
	}
}
