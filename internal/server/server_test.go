package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskboard/internal/config"
	"taskboard/internal/model"
	"taskboard/internal/ratelimit"
	"taskboard/internal/service"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, generalLimit int) *gin.Engine {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&model.Task{}, &model.Tag{}, &model.TaskTag{}, &model.AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := config.Config{
		JWTSecret:      testSecret,
		AllowedOrigins: []string{"http://localhost:3000"},
	}
	srv := New(cfg,
		service.NewTaskService(db),
		service.NewTagService(db),
		service.NewAuditService(db),
		ratelimit.New(generalLimit, time.Minute),
		ratelimit.New(10, time.Minute),
	)
	return srv.Router()
}

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestAuthMiddleware(t *testing.T) {
	router := newTestRouter(t, 100)

	if rec := doJSON(t, router, http.MethodGet, "/api/v1/tasks", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status %d, want 401", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodGet, "/api/v1/tasks", "not-a-jwt", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: status %d, want 401", rec.Code)
	}
	forged := signToken(t, "wrong-secret", "alice")
	if rec := doJSON(t, router, http.MethodGet, "/api/v1/tasks", forged, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("forged token: status %d, want 401", rec.Code)
	}

	token := signToken(t, testSecret, "alice")
	if rec := doJSON(t, router, http.MethodGet, "/api/v1/tasks", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("valid token: status %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	router := newTestRouter(t, 2)
	token := signToken(t, testSecret, "alice")

	for i := 0; i < 2; i++ {
		if rec := doJSON(t, router, http.MethodGet, "/api/v1/tasks", token, nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i+1, rec.Code)
		}
	}
	rec := doJSON(t, router, http.MethodGet, "/api/v1/tasks", token, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("over limit: status %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("429 response missing Retry-After")
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("remaining = %q, want 0", rec.Header().Get("X-RateLimit-Remaining"))
	}

	// Health stays reachable however full the bucket is.
	if rec := doJSON(t, router, http.MethodGet, "/health", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("health while throttled: status %d", rec.Code)
	}

	// A different credential has its own bucket.
	other := signToken(t, testSecret, "bob")
	if rec := doJSON(t, router, http.MethodGet, "/api/v1/tasks", other, nil); rec.Code != http.StatusOK {
		t.Fatalf("other caller throttled: status %d", rec.Code)
	}
}

func TestTaskRoutes_Lifecycle(t *testing.T) {
	router := newTestRouter(t, 100)
	token := signToken(t, testSecret, "alice")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/tasks", token, gin.H{
		"title":    "write handler tests",
		"priority": "high",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d (%s)", rec.Code, rec.Body.String())
	}
	created := decode[map[string]any](t, rec)
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatalf("create response missing id: %v", created)
	}
	if created["priority"] != "high" || created["is_completed"] != false {
		t.Fatalf("unexpected create response: %v", created)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/tasks/"+id+"/complete", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: status %d (%s)", rec.Code, rec.Body.String())
	}
	completed := decode[map[string]any](t, rec)
	if completed["is_completed"] != true {
		t.Fatalf("complete response: %v", completed)
	}
	if next, ok := completed["next_task"]; ok && next != nil {
		t.Fatalf("non-recurring completion spawned next_task: %v", next)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/tasks/"+id+"/audit", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("audit: status %d", rec.Code)
	}
	audit := decode[map[string]any](t, rec)
	if total, _ := audit["total"].(float64); total < 2 {
		t.Fatalf("audit total = %v, want create and complete entries", audit["total"])
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/tasks/"+id, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodGet, "/api/v1/tasks/"+id, token, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("deleted task lookup: status %d, want 404", rec.Code)
	}
}

func TestTaskRoutes_NotFoundVersusForbidden(t *testing.T) {
	router := newTestRouter(t, 100)
	alice := signToken(t, testSecret, "alice")
	bob := signToken(t, testSecret, "bob")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/tasks", alice, gin.H{"title": "mine"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d", rec.Code)
	}
	id := decode[map[string]any](t, rec)["id"].(string)

	if rec := doJSON(t, router, http.MethodGet, "/api/v1/tasks/"+id, bob, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("foreign task: status %d, want 403", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodGet, "/api/v1/tasks/does-not-exist", bob, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing task: status %d, want 404", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodDelete, "/api/v1/tasks/"+id, bob, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("foreign delete: status %d, want 403", rec.Code)
	}
}

func TestTagRoutes_Conflict(t *testing.T) {
	router := newTestRouter(t, 100)
	token := signToken(t, testSecret, "alice")

	if rec := doJSON(t, router, http.MethodPost, "/api/v1/tags", token, gin.H{"name": "Work"}); rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d", rec.Code)
	}
	rec := doJSON(t, router, http.MethodPost, "/api/v1/tags", token, gin.H{"name": "work"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: status %d, want 409 (%s)", rec.Code, rec.Body.String())
	}
}

func TestTaskRoutes_ListPagination(t *testing.T) {
	router := newTestRouter(t, 100)
	token := signToken(t, testSecret, "alice")

	for i := 0; i < 3; i++ {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/tasks", token, gin.H{"title": fmt.Sprintf("task %d", i)})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create %d: status %d", i, rec.Code)
		}
	}

	rec := doJSON(t, router, http.MethodGet, "/api/v1/tasks?page=1&page_size=2", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	page := decode[map[string]any](t, rec)
	if total, _ := page["total"].(float64); total != 3 {
		t.Fatalf("total = %v, want 3", page["total"])
	}
	if pages, _ := page["total_pages"].(float64); pages != 2 {
		t.Fatalf("total_pages = %v, want 2", page["total_pages"])
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/tasks?page=9&page_size=2", token, nil)
	beyond := decode[map[string]any](t, rec)
	if items, _ := beyond["items"].([]any); len(items) != 0 {
		t.Fatalf("page past the end returned %d items", len(items))
	}
	if total, _ := beyond["total"].(float64); total != 3 {
		t.Fatalf("beyond-end total = %v, want 3", beyond["total"])
	}
}

func TestTaskRoutes_ValidationErrors(t *testing.T) {
	router := newTestRouter(t, 100)
	token := signToken(t, testSecret, "alice")

	if rec := doJSON(t, router, http.MethodPost, "/api/v1/tasks", token, gin.H{"title": ""}); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty title: status %d, want 400", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodPost, "/api/v1/tasks", token, gin.H{"title": "x", "priority": "urgent"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad priority: status %d, want 400", rec.Code)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/v1/tasks", token, gin.H{"title": "patch me"})
	id := decode[map[string]any](t, rec)["id"].(string)
	if rec := doJSON(t, router, http.MethodPatch, "/api/v1/tasks/"+id, token, gin.H{"title": nil}); rec.Code != http.StatusBadRequest {
		t.Fatalf("null title patch: status %d, want 400", rec.Code)
	}
}

func TestExportRoute(t *testing.T) {
	router := newTestRouter(t, 100)
	token := signToken(t, testSecret, "alice")

	if rec := doJSON(t, router, http.MethodPost, "/api/v1/tasks", token, gin.H{"title": "exported"}); rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d", rec.Code)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/v1/export/tasks?format=csv", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("csv export: status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("csv content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "exported") {
		t.Fatalf("csv body missing the task: %q", rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/export/tasks?format=json", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("json export: status %d", rec.Code)
	}
	items := decode[[]map[string]any](t, rec)
	if len(items) != 1 || items[0]["title"] != "exported" {
		t.Fatalf("json export = %v", items)
	}

	if rec := doJSON(t, router, http.MethodGet, "/api/v1/export/tasks?format=xml", token, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad format: status %d, want 400", rec.Code)
	}
}
