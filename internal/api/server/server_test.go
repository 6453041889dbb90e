package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bioscan/internal/config"
	database "bioscan/internal/db"
	"bioscan/internal/inference"
	"bioscan/internal/models"
	"bioscan/internal/storage"
)

type fixedClassifier struct {
	res inference.Result
}

func (f fixedClassifier) Classify(ctx context.Context, r io.Reader) (inference.Result, error) {
	return f.res, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.LogLevel = "warn"
	cfg.Server.CORSOrigin = "http://localhost:3000"
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.TokenTTLHours = 1

	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := gdb.AutoMigrate(&models.User{}, &models.Report{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	db := &database.Client{DB: gdb}
	st := storage.NewClientWithProvider(storage.NewLocalProvider(t.TempDir()), "uploads")
	cl := fixedClassifier{res: inference.Result{Label: inference.LabelNormal, Confidence: 0.12}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(cfg, db, st, cl, log)
}

func (s *Server) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *Server) register(t *testing.T, email, password string, role models.Role) {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{
		"email": email, "password": password, "role": string(role),
	})
	w := s.do(t, http.MethodPost, "/register", "", bytes.NewReader(payload), "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("register %s: expected 200, got %d (%s)", email, w.Code, w.Body.String())
	}
}

func (s *Server) login(t *testing.T, email, password string) string {
	t.Helper()
	form := url.Values{"username": {email}, "password": {password}}
	w := s.do(t, http.MethodPost, "/login", "", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d (%s)", email, w.Code, w.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	return resp.AccessToken
}

func (s *Server) upload(t *testing.T, token, filename string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", filename)
	fw.Write([]byte("fake scan"))
	mw.Close()

	w := s.do(t, http.MethodPost, "/upload/", token, &buf, mw.FormDataContentType())
	if w.Code != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/upload/", "/reports/", "/all-reports/", "/report-summary/"} {
		w := s.do(t, http.MethodGet, path, "", nil, "")
		if path == "/upload/" {
			w = s.do(t, http.MethodPost, path, "", nil, "")
		}
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s without token: expected 401, got %d", path, w.Code)
		}
	}
}

func TestTamperedTokenIsRejected(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "pat@example.com", "secret1", models.RolePatient)
	token := s.login(t, "pat@example.com", "secret1")

	tampered := token[:len(token)-2] + "xx"
	w := s.do(t, http.MethodGet, "/reports/", tampered, nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("tampered token: expected 401, got %d", w.Code)
	}
}

func TestTokenForDeletedUserIsRejected(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "pat@example.com", "secret1", models.RolePatient)
	token := s.login(t, "pat@example.com", "secret1")

	if err := s.db.DB.Unscoped().Where("email = ?", "pat@example.com").Delete(&models.User{}).Error; err != nil {
		t.Fatalf("delete user: %v", err)
	}

	w := s.do(t, http.MethodGet, "/reports/", token, nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("token for deleted user: expected 401, got %d", w.Code)
	}
}

func TestDoctorOnlyRoutes(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "pat@example.com", "secret1", models.RolePatient)
	s.register(t, "doc@example.com", "secret1", models.RoleDoctor)
	patToken := s.login(t, "pat@example.com", "secret1")
	docToken := s.login(t, "doc@example.com", "secret1")

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/all-reports/"},
		{http.MethodPost, "/comment/1?comment=hi"},
		{http.MethodGet, "/report-summary/"},
		{http.MethodGet, "/weekly-submissions/"},
	}

	for _, rt := range routes {
		w := s.do(t, rt.method, rt.path, patToken, nil, "")
		if w.Code != http.StatusForbidden {
			t.Errorf("%s %s as patient: expected 403, got %d", rt.method, rt.path, w.Code)
		}

		w = s.do(t, rt.method, rt.path, docToken, nil, "")
		if w.Code == http.StatusForbidden || w.Code == http.StatusUnauthorized {
			t.Errorf("%s %s as doctor: expected access, got %d", rt.method, rt.path, w.Code)
		}
	}
}

func TestTokenNeverResolvesToAnotherUser(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "a@example.com", "secret1", models.RolePatient)
	s.register(t, "b@example.com", "secret1", models.RolePatient)
	tokenA := s.login(t, "a@example.com", "secret1")
	tokenB := s.login(t, "b@example.com", "secret1")

	s.upload(t, tokenA, "a-scan.png")

	// B sees nothing of A's.
	w := s.do(t, http.MethodGet, "/reports/", tokenB, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var reportsB []json.RawMessage
	json.Unmarshal(w.Body.Bytes(), &reportsB)
	if len(reportsB) != 0 {
		t.Errorf("user B sees %d foreign reports", len(reportsB))
	}

	w = s.do(t, http.MethodGet, "/reports/", tokenA, nil, "")
	var reportsA []json.RawMessage
	json.Unmarshal(w.Body.Bytes(), &reportsA)
	if len(reportsA) != 1 {
		t.Errorf("user A expected 1 report, got %d", len(reportsA))
	}
}
