package integration_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/geocoder89/videochat/internal/auth"
	"github.com/geocoder89/videochat/internal/config"
	apphttp "github.com/geocoder89/videochat/internal/http"
	"github.com/geocoder89/videochat/internal/repo/memory"
	redisrepo "github.com/geocoder89/videochat/internal/repo/redis"
	"github.com/geocoder89/videochat/internal/security"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() config.Config {
	return config.Config{
		Env:                 "test",
		Store:               config.StoreMemory,
		JWTSecret:           "test-secret-key",
		SessionTTL:          240 * time.Hour,
		SessionCookieName:   "session",
		SessionCookieSecure: true,
		SessionRevocation:   config.RevocationNone,
		BcryptCost:          bcrypt.MinCost,
		CORSAllowedOrigins:  []string{"http://localhost:5173"},
		MaxBodyBytes:        1 << 20,
	}
}

type testApp struct {
	router *gin.Engine
	videos *memory.VideosRepo
}

func setupRouter(t *testing.T, cfg config.Config, revoker auth.Revoker) testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	users := memory.NewUsersRepo()
	videos := memory.NewVideosRepo()

	hasher, err := security.NewHasher(cfg.BcryptCost)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	tokens, err := auth.NewManager([]byte(cfg.JWTSecret), cfg.SessionTTL)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	svc, err := auth.NewService(users, hasher, tokens, revoker)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	deps := apphttp.Deps{
		Auth:   svc,
		Tokens: tokens,
		Users:  users,
		Videos: videos,
	}
	if revoker != nil {
		deps.Revocations = revoker
	}

	return testApp{router: apphttp.NewRouter(logger, cfg, deps), videos: videos}
}

func do(t *testing.T, r http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func extractSessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" {
			return c
		}
	}
	t.Fatalf("missing session cookie; headers=%v", w.Header())
	return nil
}

func register(t *testing.T, r http.Handler, name, email, password string) string {
	t.Helper()

	w := do(t, r, http.MethodPost, "/api/user",
		`{"name":"`+name+`","email":"`+email+`","password":"`+password+`"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d body=%s", w.Code, w.Body.String())
	}

	var p struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil || p.ID == "" {
		t.Fatalf("register: bad body %s", w.Body.String())
	}
	return p.ID
}

func TestLoginFlow_EndToEnd(t *testing.T) {
	app := setupRouter(t, testConfig(), nil)
	r := app.router

	annID := register(t, r, "Ann", "ann@example.com", "correct-horse")

	// duplicate email
	w := do(t, r, http.MethodPost, "/api/user", `{"name":"Ann 2","email":"ann@example.com","password":"another-pass"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", w.Code)
	}

	// wrong password and unknown email look the same
	wrong := do(t, r, http.MethodPost, "/api/login", `{"email":"ann@example.com","password":"wrong-horse"}`)
	unknown := do(t, r, http.MethodPost, "/api/login", `{"email":"bob@example.com","password":"wrong-horse"}`)
	if wrong.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrong.Code, unknown.Code)
	}
	if !strings.Contains(wrong.Body.String(), "invalid_credentials") || !strings.Contains(unknown.Body.String(), "invalid_credentials") {
		t.Fatalf("expected invalid_credentials bodies: %s / %s", wrong.Body.String(), unknown.Body.String())
	}

	// missing field
	if w := do(t, r, http.MethodPost, "/api/login", `{"email":"ann@example.com"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("missing password: expected 400, got %d", w.Code)
	}

	w = do(t, r, http.MethodPost, "/api/login", `{"email":"ann@example.com","password":"correct-horse"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	cookie := extractSessionCookie(t, w)
	if !cookie.HttpOnly || !cookie.Secure || cookie.SameSite != http.SameSiteNoneMode || cookie.MaxAge != 864000 {
		t.Fatalf("unexpected cookie attributes: %+v", cookie)
	}

	var login map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &login)
	if login["id"] != annID || login["name"] != "Ann" || login["email"] != "ann@example.com" {
		t.Fatalf("unexpected login body: %v", login)
	}

	// protected without a cookie
	if w := do(t, r, http.MethodGet, "/api/auth/me", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("me without cookie: expected 401, got %d", w.Code)
	}

	// protected with a garbage cookie gets the same 401 body shape
	bad := do(t, r, http.MethodGet, "/api/auth/me", "", &http.Cookie{Name: "session", Value: "garbage"})
	if bad.Code != http.StatusUnauthorized || !strings.Contains(bad.Body.String(), `"code":"unauthenticated"`) {
		t.Fatalf("me with garbage: expected 401 unauthenticated, got %d %s", bad.Code, bad.Body.String())
	}

	w = do(t, r, http.MethodGet, "/api/auth/me", "", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "$2a$") || strings.Contains(strings.ToLower(w.Body.String()), "password") {
		t.Fatalf("me leaked credential material: %s", w.Body.String())
	}

	var me map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &me)
	if me["authenticated"] != true || me["id"] != annID {
		t.Fatalf("unexpected me body: %v", me)
	}

	// users CRUD sits behind the guard
	if w := do(t, r, http.MethodGet, "/api/user", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("list users without cookie: expected 401, got %d", w.Code)
	}
	w = do(t, r, http.MethodGet, "/api/user/"+annID, "", cookie)
	if w.Code != http.StatusOK || strings.Contains(w.Body.String(), "$2a$") {
		t.Fatalf("get user: %d %s", w.Code, w.Body.String())
	}

	// logout clears the cookie; without revocation the token itself stays valid
	w = do(t, r, http.MethodPost, "/api/logout", "", cookie)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Logged out successfully") {
		t.Fatalf("logout: %d %s", w.Code, w.Body.String())
	}
	if cleared := extractSessionCookie(t, w); cleared.MaxAge >= 0 {
		t.Fatalf("logout should expire the cookie: %+v", cleared)
	}
	if w := do(t, r, http.MethodGet, "/api/auth/me", "", cookie); w.Code != http.StatusOK {
		t.Fatalf("stateless token should outlive logout, got %d", w.Code)
	}
}

func TestVideos_ScopedToCaller(t *testing.T) {
	app := setupRouter(t, testConfig(), nil)
	r := app.router

	annID := register(t, r, "Ann", "ann@example.com", "correct-horse")
	bobID := register(t, r, "Bob", "bob@example.com", "battery-staple")

	app.videos.Add(annID, "https://youtu.be/ann", "ann-1")
	app.videos.Add(bobID, "https://youtu.be/bob", "bob-1")

	w := do(t, r, http.MethodPost, "/api/login", `{"email":"ann@example.com","password":"correct-horse"}`)
	cookie := extractSessionCookie(t, w)

	w = do(t, r, http.MethodGet, "/api/videos", "", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("videos: expected 200, got %d", w.Code)
	}
	var list struct {
		Items []struct {
			VideoID string `json:"videoId"`
		} `json:"items"`
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Count != 1 || list.Items[0].VideoID != "ann-1" {
		t.Fatalf("expected only ann's video, got %+v", list)
	}

	if w := do(t, r, http.MethodGet, "/api/videos/bob-1", "", cookie); w.Code != http.StatusNotFound {
		t.Fatalf("bob's video must be 404 for ann, got %d", w.Code)
	}
}

func TestLogout_RevokesWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testConfig()
	cfg.SessionRevocation = config.RevocationRedis

	app := setupRouter(t, cfg, redisrepo.NewRevocationsRepo(rdb))
	r := app.router

	register(t, r, "Ann", "ann@example.com", "correct-horse")

	w := do(t, r, http.MethodPost, "/api/login", `{"email":"ann@example.com","password":"correct-horse"}`)
	cookie := extractSessionCookie(t, w)

	if w := do(t, r, http.MethodGet, "/api/auth/me", "", cookie); w.Code != http.StatusOK {
		t.Fatalf("me before logout: expected 200, got %d", w.Code)
	}

	if w := do(t, r, http.MethodPost, "/api/logout", "", cookie); w.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", w.Code)
	}

	w = do(t, r, http.MethodGet, "/api/auth/me", "", cookie)
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), `"code":"unauthenticated"`) {
		t.Fatalf("revoked token: expected 401 unauthenticated, got %d %s", w.Code, w.Body.String())
	}
}

func TestRequireJSONOnWrites(t *testing.T) {
	app := setupRouter(t, testConfig(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader("email=a"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", w.Code)
	}
}

func TestLogin_RejectsPasswordExtendedPastLimit(t *testing.T) {
	app := setupRouter(t, testConfig(), nil)
	r := app.router

	stored := strings.Repeat("x", security.MaxPasswordBytes)
	register(t, r, "Ann", "ann@example.com", stored)

	w := do(t, r, http.MethodPost, "/api/login", `{"email":"ann@example.com","password":"`+stored+`WRONG-SUFFIX"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "invalid_credentials") {
		t.Fatalf("expected invalid_credentials, got %s", w.Body.String())
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" && c.Value != "" {
			t.Fatalf("no session cookie expected on failed login")
		}
	}

	if w := do(t, r, http.MethodPost, "/api/login", `{"email":"ann@example.com","password":"`+stored+`"}`); w.Code != http.StatusOK {
		t.Fatalf("exact password: expected 200, got %d", w.Code)
	}
}
