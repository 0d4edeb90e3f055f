package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/actionmesh/gateway/internal/config"
	"github.com/actionmesh/gateway/pkg/catalog"
	"github.com/actionmesh/gateway/pkg/describe"
	"github.com/actionmesh/gateway/pkg/operation"
	"github.com/actionmesh/gateway/pkg/pluralize"
)

const serverTestPrefix = "server:server_test"

// testServer returns a Server with an in-memory registry for HTTP handler tests.
func testServer(t *testing.T) *Server {
	t.Helper()

	pl := pluralize.New()
	cat := catalog.New(pl)
	cat.Register("Author")
	cat.Register("Category")

	src := &operation.StaticSource{
		ModuleName: "test",
		Descriptors: []operation.Descriptor{
			{
				Name:     "GetAllAuthorsQuery",
				Input:    operation.Shape{Name: "GetAllAuthorsInput"},
				NewInput: func() interface{} { return &struct{}{} },
				Handle: func(context.Context, interface{}) (interface{}, error) {
					return nil, nil
				},
			},
			{
				Name: "CreateCategoryCommand",
				Input: operation.Shape{
					Name: "CreateCategoryInput",
					Fields: []operation.Field{
						{Name: "name", Type: operation.FieldString, Required: true},
					},
				},
				NewInput: func() interface{} { return &struct{}{} },
				Handle: func(context.Context, interface{}) (interface{}, error) {
					return nil, nil
				},
			},
		},
	}
	reg := operation.NewRegistry(cat, src)
	if err := reg.Build(); err != nil {
		t.Fatalf("%s - Build: %v", serverTestPrefix, err)
	}

	return &Server{
		cfg:       &config.Config{HealthCheckTimeout: 5 * time.Second},
		catalog:   cat,
		registry:  reg,
		describer: describe.New(describe.DefaultConfig(), pl),
	}
}

func TestHandleHome_Success(t *testing.T) {
	s := testServer(t)
	handler := s.handleHome()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("%s - handleHome got status %d, want 200", serverTestPrefix, rec.Code)
	}
	if rec.Header().Get("Content-Type") != "text/html; charset=utf-8" {
		t.Errorf("%s - Content-Type = %q, want text/html", serverTestPrefix, rec.Header().Get("Content-Type"))
	}
	body := rec.Body.String()
	if !strings.Contains(body, "GetAllAuthorsQuery") {
		t.Errorf("%s - body should list the operations", serverTestPrefix)
	}
	if !strings.Contains(body, "Gets all authors") {
		t.Errorf("%s - body should contain generated descriptions", serverTestPrefix)
	}
	if !strings.Contains(body, "Author") || !strings.Contains(body, "Category") {
		t.Errorf("%s - body should list the entities", serverTestPrefix)
	}
}

func TestHandleHome_OnlyRoot(t *testing.T) {
	s := testServer(t)
	handler := s.handleHome()

	req := httptest.NewRequest(http.MethodGet, "/other", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("%s - handleHome(/other) got status %d, want 404", serverTestPrefix, rec.Code)
	}
}

func TestHandleOperationDetail_Success(t *testing.T) {
	s := testServer(t)
	handler := s.handleOperationDetail()

	req := httptest.NewRequest(http.MethodGet, "/operations/GetAllAuthorsQuery", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("%s - detail got status %d, want 200", serverTestPrefix, rec.Code)
	}
	var view operationView
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("%s - decode detail: %v", serverTestPrefix, err)
	}
	if view.Name != "GetAllAuthorsQuery" || view.Kind != "Query" || view.Entity != "Author" {
		t.Errorf("%s - view = %+v", serverTestPrefix, view)
	}
	if view.Description != "Gets all authors" {
		t.Errorf("%s - Description = %q", serverTestPrefix, view.Description)
	}
}

func TestHandleOperationDetail_CaseInsensitiveName(t *testing.T) {
	s := testServer(t)
	handler := s.handleOperationDetail()

	req := httptest.NewRequest(http.MethodGet, "/operations/getallauthorsquery", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("%s - lowercase name got status %d, want 200", serverTestPrefix, rec.Code)
	}
}

func TestHandleOperationDetail_NotFound(t *testing.T) {
	s := testServer(t)
	handler := s.handleOperationDetail()

	req := httptest.NewRequest(http.MethodGet, "/operations/FrobnicateWidgetCommand", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("%s - unknown operation got status %d, want 404", serverTestPrefix, rec.Code)
	}
}

func TestHandleOperationDetail_RedirectWhenEmpty(t *testing.T) {
	s := testServer(t)
	handler := s.handleOperationDetail()

	req := httptest.NewRequest(http.MethodGet, "/operations/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Errorf("%s - /operations/ got status %d, want 302 redirect", serverTestPrefix, rec.Code)
	}
}

func TestReadyHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	}(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("%s - ready got status %d, want 200", serverTestPrefix, rec.Code)
	}
	var out map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("%s - decode ready: %v", serverTestPrefix, err)
	}
	if out["status"] != "ready" {
		t.Errorf("%s - status = %q, want ready", serverTestPrefix, out["status"])
	}
}

func TestOperationViews_Sorted(t *testing.T) {
	s := testServer(t)
	views := s.operationViews()
	if len(views) != 2 {
		t.Fatalf("%s - expected 2 views, got %d", serverTestPrefix, len(views))
	}
	if views[0].Name > views[1].Name {
		t.Errorf("%s - views not sorted: %s, %s", serverTestPrefix, views[0].Name, views[1].Name)
	}
}
