package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jo-hoe/agerestore/internal/common"
	"github.com/jo-hoe/agerestore/internal/core"
	"github.com/jo-hoe/agerestore/internal/journey"
	"github.com/jo-hoe/agerestore/internal/mail"
	"github.com/labstack/echo/v4"
)

const (
	testSecret     = "test-secret"
	testAdminEmail = "admin@example.com"
)

type testServer struct {
	e *echo.Echo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &core.ServiceConfig{
		Port: 8080,
		Database: core.Database{
			Type:             "sqlite",
			ConnectionString: ":memory:",
		},
		Auth:            core.Auth{JWTSecret: testSecret},
		Admins:          []string{testAdminEmail},
		DefaultTimezone: "UTC",
		MaxUploadBytes:  2 * 1024 * 1024,
		MaxPhotoBytes:   1024 * 1024,
		ThumbnailWidth:  40,
		RateLimit:       core.RateLimit{RequestsPerSecond: 100, Burst: 100},
		PhotoPipeline:   core.DefaultPhotoPipeline(),
	}

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	coreService, err := core.NewCoreService(cfg,
		core.WithClock(func() time.Time { return now }),
		core.WithMailer(mail.NewLogMailer(slog.Default())))
	if err != nil {
		t.Fatalf("NewCoreService() error = %v", err)
	}
	t.Cleanup(func() { _ = coreService.Close() })

	e := echo.New()
	e.Validator = common.NewGenericEchoValidator()
	NewAPIService(cfg, coreService).SetRoutes(e)
	return &testServer{e: e}
}

func signToken(t *testing.T, subject, email string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: email,
		Name:  strings.Split(email, "@")[0],
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func (s *testServer) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) doJSON(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}
	return s.do(t, method, path, token, body, echo.MIMEApplicationJSON)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 5), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func uploadForm(t *testing.T, image []byte, mood string) (io.Reader, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "selfie.png")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(image); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if mood != "" {
		_ = writer.WriteField("moodEmoji", mood)
	}
	_ = writer.WriteField("moodNote", "first day")
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return &body, writer.FormDataContentType()
}

// registerApproved registers a user and approves them as admin
func (s *testServer) registerApproved(t *testing.T, subject, email string) string {
	t.Helper()
	token := signToken(t, subject, email)
	expectStatus(t, s.doJSON(t, http.MethodPost, "/api/me", token, nil), http.StatusCreated)

	adminToken := signToken(t, "admin", testAdminEmail)
	rec := s.doJSON(t, http.MethodPut, "/api/admin/users/"+subject+"/status", adminToken, map[string]string{"status": "approved"})
	expectStatus(t, rec, http.StatusOK)
	return token
}

func TestProbeAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/probe", "", nil, "")
	expectStatus(t, rec, http.StatusOK)

	rec = s.do(t, http.MethodGet, "/metrics", "", nil, "")
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "agerestore_http_requests_total") {
		t.Errorf("expected request counter in metrics output")
	}
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(t)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: "late@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "late",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	expiredToken, _ := expired.SignedString([]byte(testSecret))

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email:            "mallory@example.com",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "mallory"},
	})
	foreignToken, _ := foreign.SignedString([]byte("other-secret"))

	noEmail := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "anon"},
	})
	noEmailToken, _ := noEmail.SignedString([]byte(testSecret))

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"garbage", "Bearer not-a-token"},
		{"expired", "Bearer " + expiredToken},
		{"wrong secret", "Bearer " + foreignToken},
		{"no email", "Bearer " + noEmailToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			s.e.ServeHTTP(rec, req)
			expectStatus(t, rec, http.StatusUnauthorized)
		})
	}
}

func TestRegisterAndProfile(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "user-1", "alice@example.com")

	rec := s.doJSON(t, http.MethodGet, "/api/me", token, nil)
	expectStatus(t, rec, http.StatusNotFound)

	rec = s.doJSON(t, http.MethodPost, "/api/me", token, nil)
	expectStatus(t, rec, http.StatusCreated)
	user := decode[map[string]any](t, rec)
	if user["status"] != "pending" {
		t.Errorf("expected pending status, got %v", user["status"])
	}

	rec = s.doJSON(t, http.MethodPost, "/api/me", token, nil)
	expectStatus(t, rec, http.StatusOK)

	rec = s.doJSON(t, http.MethodPut, "/api/me", token, map[string]any{"name": "Alice A.", "gender": "female", "age": 34})
	expectStatus(t, rec, http.StatusOK)
	user = decode[map[string]any](t, rec)
	if user["name"] != "Alice A." || user["age"] != float64(34) {
		t.Errorf("profile not updated: %v", user)
	}

	rec = s.doJSON(t, http.MethodPut, "/api/me", token, map[string]any{"name": ""})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = s.doJSON(t, http.MethodPut, "/api/me", token, map[string]any{"name": "Alice", "age": 200})
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "user-1", "alice@example.com")
	expectStatus(t, s.doJSON(t, http.MethodPost, "/api/me", token, nil), http.StatusCreated)

	rec := s.doJSON(t, http.MethodGet, "/api/admin/users", token, nil)
	expectStatus(t, rec, http.StatusForbidden)

	rec = s.doJSON(t, http.MethodPut, "/api/admin/users/user-1/status", token, map[string]string{"status": "approved"})
	expectStatus(t, rec, http.StatusForbidden)

	adminToken := signToken(t, "admin", "Admin@Example.com")
	rec = s.doJSON(t, http.MethodGet, "/api/admin/users?q=alice&sort=name&order=asc", adminToken, nil)
	expectStatus(t, rec, http.StatusOK)
	users := decode[[]map[string]any](t, rec)
	if len(users) != 1 || users[0]["email"] != "alice@example.com" {
		t.Errorf("unexpected user list: %v", users)
	}

	rec = s.doJSON(t, http.MethodGet, "/api/admin/users?sort=shoe-size", adminToken, nil)
	expectStatus(t, rec, http.StatusBadRequest)

	rec = s.doJSON(t, http.MethodPut, "/api/admin/users/user-1/status", adminToken, map[string]string{"status": "banana"})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = s.doJSON(t, http.MethodGet, "/api/admin/users/missing", adminToken, nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestUploadFlow(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "user-1", "alice@example.com")
	expectStatus(t, s.doJSON(t, http.MethodPost, "/api/me", token, nil), http.StatusCreated)

	rec := s.doJSON(t, http.MethodGet, "/api/me/upload", token, nil)
	expectStatus(t, rec, http.StatusForbidden)

	body, contentType := uploadForm(t, testPNG(t), "😊")
	rec = s.do(t, http.MethodPost, "/api/me/upload", token, body, contentType)
	expectStatus(t, rec, http.StatusForbidden)

	adminToken := signToken(t, "admin", testAdminEmail)
	expectStatus(t, s.doJSON(t, http.MethodPut, "/api/admin/users/user-1/status", adminToken,
		map[string]string{"status": "approved"}), http.StatusOK)

	rec = s.doJSON(t, http.MethodGet, "/api/me/upload", token, nil)
	expectStatus(t, rec, http.StatusOK)
	status := decode[core.UploadStatus](t, rec)
	if status.CurrentDay != 1 || status.TodayFilled || status.TotalDays != journey.Length {
		t.Errorf("unexpected status before upload: %+v", status)
	}

	body, contentType = uploadForm(t, testPNG(t), "😊")
	rec = s.do(t, http.MethodPost, "/api/me/upload", token, body, contentType)
	expectStatus(t, rec, http.StatusCreated)
	upload := decode[journey.Upload](t, rec)
	if upload.Date != "2025-03-10" {
		t.Errorf("expected upload tagged 2025-03-10, got %s", upload.Date)
	}

	body, contentType = uploadForm(t, testPNG(t), "😊")
	rec = s.do(t, http.MethodPost, "/api/me/upload", token, body, contentType)
	expectStatus(t, rec, http.StatusConflict)

	rec = s.doJSON(t, http.MethodGet, "/api/me/dashboard", token, nil)
	expectStatus(t, rec, http.StatusOK)
	dashboard := decode[core.Dashboard](t, rec)
	if dashboard.Journey == nil || len(dashboard.Journey.Slots) != journey.Length {
		t.Fatalf("expected %d slots, got %+v", journey.Length, dashboard.Journey)
	}
	if dashboard.Journey.Progress.Uploaded != 1 {
		t.Errorf("expected one uploaded slot, got %d", dashboard.Journey.Progress.Uploaded)
	}

	rec = s.doJSON(t, http.MethodGet, "/api/photos/"+upload.ID, token, nil)
	expectStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", ct)
	}

	rec = s.doJSON(t, http.MethodGet, "/api/photos/"+upload.ID+"/thumbnail", token, nil)
	expectStatus(t, rec, http.StatusOK)

	otherToken := signToken(t, "user-2", "bob@example.com")
	rec = s.doJSON(t, http.MethodGet, "/api/photos/"+upload.ID, otherToken, nil)
	expectStatus(t, rec, http.StatusForbidden)

	rec = s.doJSON(t, http.MethodGet, "/api/photos/"+upload.ID, adminToken, nil)
	expectStatus(t, rec, http.StatusOK)

	rec = s.doJSON(t, http.MethodGet, "/api/photos/nope", token, nil)
	expectStatus(t, rec, http.StatusNotFound)

	rec = s.doJSON(t, http.MethodGet, "/api/admin/users/user-1", adminToken, nil)
	expectStatus(t, rec, http.StatusOK)
	detail := decode[core.UserDetail](t, rec)
	if len(detail.Uploads) != 1 {
		t.Errorf("expected one upload in detail, got %d", len(detail.Uploads))
	}
}

func TestUploadRejectsBadInput(t *testing.T) {
	s := newTestServer(t)
	token := s.registerApproved(t, "user-1", "alice@example.com")

	body, contentType := uploadForm(t, testPNG(t), "🙃")
	rec := s.do(t, http.MethodPost, "/api/me/upload", token, body, contentType)
	expectStatus(t, rec, http.StatusBadRequest)

	body, contentType = uploadForm(t, []byte("definitely not an image"), "")
	rec = s.do(t, http.MethodPost, "/api/me/upload", token, body, contentType)
	expectStatus(t, rec, http.StatusUnprocessableEntity)

	rec = s.do(t, http.MethodPost, "/api/me/upload", token, strings.NewReader("moodEmoji=x"), echo.MIMEApplicationForm)
	expectStatus(t, rec, http.StatusBadRequest)

	oversized := bytes.Repeat([]byte{0xFF}, 2*1024*1024+10)
	body, contentType = uploadForm(t, oversized, "")
	rec = s.do(t, http.MethodPost, "/api/me/upload", token, body, contentType)
	expectStatus(t, rec, http.StatusRequestEntityTooLarge)
}

func TestUploadTimezoneHeader(t *testing.T) {
	s := newTestServer(t)
	token := s.registerApproved(t, "user-1", "alice@example.com")

	// 12:00 UTC is already the next day in Kiritimati (UTC+14)
	body, contentType := uploadForm(t, testPNG(t), "")
	req := httptest.NewRequest(http.MethodPost, "/api/me/upload", body)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	req.Header.Set(echo.HeaderContentType, contentType)
	req.Header.Set(TimezoneHeader, "Pacific/Kiritimati")
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusCreated)

	upload := decode[journey.Upload](t, rec)
	if upload.Date != "2025-03-11" {
		t.Errorf("expected upload tagged with the caller's date 2025-03-11, got %s", upload.Date)
	}
}

func TestNotificationFlow(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "user-1", "alice@example.com")
	expectStatus(t, s.doJSON(t, http.MethodPost, "/api/me", token, nil), http.StatusCreated)
	adminToken := signToken(t, "admin", testAdminEmail)

	rec := s.doJSON(t, http.MethodPost, "/api/me/refund-request", token, map[string]string{"reason": ""})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = s.doJSON(t, http.MethodPost, "/api/me/refund-request", token, map[string]string{"reason": "changed my mind"})
	expectStatus(t, rec, http.StatusCreated)
	refund := decode[map[string]any](t, rec)
	refundID := fmt.Sprint(refund["id"])

	rec = s.doJSON(t, http.MethodPost, "/api/me/deletion-request", token, map[string]string{"reason": "please forget me"})
	expectStatus(t, rec, http.StatusCreated)
	deletion := decode[map[string]any](t, rec)
	deletionID := fmt.Sprint(deletion["id"])

	rec = s.doJSON(t, http.MethodGet, "/api/admin/notifications/pending-count", adminToken, nil)
	expectStatus(t, rec, http.StatusOK)
	if count := decode[map[string]int](t, rec)["count"]; count != 2 {
		t.Errorf("expected 2 pending, got %d", count)
	}

	rec = s.doJSON(t, http.MethodGet, "/api/admin/notifications?type=refund_request", adminToken, nil)
	expectStatus(t, rec, http.StatusOK)
	if list := decode[[]map[string]any](t, rec); len(list) != 1 {
		t.Errorf("expected one refund request, got %d", len(list))
	}

	rec = s.doJSON(t, http.MethodGet, "/api/admin/notifications?type=spam", adminToken, nil)
	expectStatus(t, rec, http.StatusBadRequest)

	rec = s.doJSON(t, http.MethodPut, "/api/admin/notifications/"+deletionID+"/refund", adminToken,
		map[string]string{"status": "accepted"})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = s.doJSON(t, http.MethodPut, "/api/admin/notifications/"+refundID+"/refund", adminToken,
		map[string]string{"status": "accepted", "adminMessage": "refunded"})
	expectStatus(t, rec, http.StatusOK)
	if decided := decode[map[string]any](t, rec); decided["status"] != "resolved" || decided["refundStatus"] != "accepted" {
		t.Errorf("unexpected refund decision: %v", decided)
	}

	rec = s.doJSON(t, http.MethodPut, "/api/admin/notifications/"+deletionID+"/deletion", adminToken,
		map[string]string{"status": "under_review"})
	expectStatus(t, rec, http.StatusOK)
	if decided := decode[map[string]any](t, rec); decided["status"] != "reviewed" {
		t.Errorf("expected reviewed deletion request, got %v", decided)
	}

	rec = s.doJSON(t, http.MethodPut, "/api/admin/notifications/"+deletionID+"/status", adminToken,
		map[string]string{"status": "pending"})
	expectStatus(t, rec, http.StatusOK)

	rec = s.doJSON(t, http.MethodPut, "/api/admin/notifications/missing/status", adminToken,
		map[string]string{"status": "pending"})
	expectStatus(t, rec, http.StatusNotFound)

	rec = s.doJSON(t, http.MethodDelete, "/api/admin/notifications/resolved", adminToken, nil)
	expectStatus(t, rec, http.StatusOK)
	if removed := decode[map[string]int64](t, rec)["removed"]; removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	if !rl.allow("u1", now) || !rl.allow("u1", now) {
		t.Fatal("expected burst of two to pass")
	}
	if rl.allow("u1", now) {
		t.Error("expected third request to be limited")
	}
	if !rl.allow("u2", now) {
		t.Error("expected other caller to have its own bucket")
	}
	if !rl.allow("u1", now.Add(time.Second)) {
		t.Error("expected token to refill after a second")
	}

	if removed := rl.Cleanup(now.Add(time.Hour)); removed != 2 {
		t.Errorf("expected 2 idle buckets removed, got %d", removed)
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiter(0.001, 1)
	handler := rl.Middleware()(func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	call := func() error {
		c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())
		c.Set(identityKey, core.Identity{UserID: "u1", Email: "u1@example.com"})
		return handler(c)
	}

	if err := call(); err != nil {
		t.Fatalf("first call error = %v", err)
	}
	var he *echo.HTTPError
	if err := call(); !errors.As(err, &he) || he.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %v", err)
	}
}

func TestToHTTPError(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("user x: %w", core.ErrNotFound), http.StatusNotFound},
		{core.ErrForbidden, http.StatusForbidden},
		{core.ErrNotApproved, http.StatusForbidden},
		{core.ErrDuplicateUpload, http.StatusConflict},
		{core.ErrUploadInProgress, http.StatusConflict},
		{journey.ErrJourneyNotStarted, http.StatusConflict},
		{journey.ErrJourneyCompleted, http.StatusConflict},
		{core.ErrPhotoTooLarge, http.StatusRequestEntityTooLarge},
		{core.ErrInvalidPhoto, http.StatusUnprocessableEntity},
		{core.ErrInvalidMood, http.StatusBadRequest},
		{core.ErrInvalidInput, http.StatusBadRequest},
		{core.ErrInvalidTransition, http.StatusBadRequest},
		{echo.NewHTTPError(http.StatusTeapot, "tea"), http.StatusTeapot},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			var he *echo.HTTPError
			if !errors.As(toHTTPError(c, tt.err), &he) {
				t.Fatal("expected echo.HTTPError")
			}
			if he.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, he.Code)
			}
		})
	}
}

func TestMyRequests(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "user-1", "alice@example.com")
	expectStatus(t, s.doJSON(t, http.MethodPost, "/api/me", token, nil), http.StatusCreated)
	otherToken := signToken(t, "user-2", "bob@example.com")
	expectStatus(t, s.doJSON(t, http.MethodPost, "/api/me", otherToken, nil), http.StatusCreated)
	adminToken := signToken(t, "admin", testAdminEmail)

	rec := s.doJSON(t, http.MethodGet, "/api/me/requests", token, nil)
	expectStatus(t, rec, http.StatusOK)
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected an empty JSON list, got %s", rec.Body.String())
	}

	rec = s.doJSON(t, http.MethodPost, "/api/me/refund-request", token, map[string]string{"reason": "changed my mind"})
	expectStatus(t, rec, http.StatusCreated)
	refundID := fmt.Sprint(decode[map[string]any](t, rec)["id"])
	expectStatus(t, s.doJSON(t, http.MethodPost, "/api/me/refund-request", otherToken,
		map[string]string{"reason": "not alice"}), http.StatusCreated)

	rec = s.doJSON(t, http.MethodPut, "/api/admin/notifications/"+refundID+"/refund", adminToken,
		map[string]string{"status": "rejected", "adminMessage": "past the refund window"})
	expectStatus(t, rec, http.StatusOK)

	rec = s.doJSON(t, http.MethodGet, "/api/me/requests", token, nil)
	expectStatus(t, rec, http.StatusOK)
	mine := decode[[]map[string]any](t, rec)
	if len(mine) != 1 {
		t.Fatalf("expected only alice's request, got %v", mine)
	}
	if mine[0]["refundStatus"] != "rejected" || mine[0]["adminMessage"] != "past the refund window" {
		t.Errorf("expected the admin decision in the list, got %v", mine[0])
	}

	rec = s.doJSON(t, http.MethodGet, "/api/me/requests?type=account_deletion", token, nil)
	expectStatus(t, rec, http.StatusOK)
	if list := decode[[]map[string]any](t, rec); len(list) != 0 {
		t.Errorf("expected no deletion requests, got %v", list)
	}

	expectStatus(t, s.doJSON(t, http.MethodGet, "/api/me/requests?type=spam", token, nil), http.StatusBadRequest)
	expectStatus(t, s.doJSON(t, http.MethodGet, "/api/me/requests", "", nil), http.StatusUnauthorized)
}

func TestAvatarUpload(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "user-1", "alice@example.com")
	expectStatus(t, s.doJSON(t, http.MethodPost, "/api/me", token, nil), http.StatusCreated)

	body, contentType := uploadForm(t, testPNG(t), "")
	rec := s.do(t, http.MethodPut, "/api/me/avatar", token, body, contentType)
	expectStatus(t, rec, http.StatusOK)
	avatarURL := fmt.Sprint(decode[map[string]any](t, rec)["avatarUrl"])
	if !strings.HasPrefix(avatarURL, "/api/avatars/user-1?v=") {
		t.Fatalf("expected avatar url to point at the stored avatar, got %q", avatarURL)
	}

	rec = s.do(t, http.MethodGet, avatarURL, token, nil, "")
	expectStatus(t, rec, http.StatusOK)
	if got := rec.Header().Get(echo.HeaderContentType); got != "image/jpeg" {
		t.Errorf("expected a jpeg avatar, got %q", got)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("avatar does not decode: %v", err)
	}
	if cfg.Width != 64 || cfg.Height != 48 {
		t.Errorf("small avatars keep their size, got %dx%d", cfg.Width, cfg.Height)
	}

	otherToken := signToken(t, "user-2", "bob@example.com")
	expectStatus(t, s.doJSON(t, http.MethodPost, "/api/me", otherToken, nil), http.StatusCreated)
	expectStatus(t, s.do(t, http.MethodGet, "/api/avatars/user-1", otherToken, nil, ""), http.StatusForbidden)
	expectStatus(t, s.do(t, http.MethodGet, "/api/avatars/user-2", otherToken, nil, ""), http.StatusNotFound)
	adminToken := signToken(t, "admin", testAdminEmail)
	expectStatus(t, s.do(t, http.MethodGet, "/api/avatars/user-1", adminToken, nil, ""), http.StatusOK)

	body, contentType = uploadForm(t, []byte("not an image"), "")
	expectStatus(t, s.do(t, http.MethodPut, "/api/me/avatar", token, body, contentType), http.StatusUnprocessableEntity)
	expectStatus(t, s.do(t, http.MethodPut, "/api/me/avatar", token, strings.NewReader(""), echo.MIMEMultipartForm), http.StatusBadRequest)
}
