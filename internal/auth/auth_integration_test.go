package auth_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/GreenHydrogen/H2-Backend/internal/auth"
	"github.com/GreenHydrogen/H2-Backend/internal/config"
	"github.com/GreenHydrogen/H2-Backend/internal/db"
	"github.com/GreenHydrogen/H2-Backend/internal/middleware"
)

const sessionHours = 2

var srv *httptest.Server

func TestMain(m *testing.M) {
	_ = godotenv.Load("../../.env.local")

	if os.Getenv("DATABASE_URL") == "" {
		os.Exit(m.Run())
	}

	os.Setenv("SESSION_HOURS", fmt.Sprint(sessionHours))
	cfg := config.LoadFromEnv()

	db.Connect(cfg.DatabaseURL)
	auth.Init(cfg.SessionDuration())

	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Mount("/api/auth", auth.SetupRoutes())
	srv = httptest.NewServer(r)

	code := m.Run()
	srv.Close()
	os.Exit(code)
}

// account is a user registered through the API for one test.
type account struct {
	client   *http.Client
	email    string
	password string
	userID   string
}

func register(t *testing.T) *account {
	t.Helper()
	if srv == nil {
		t.Skip("DATABASE_URL not set")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	a := &account{
		client:   &http.Client{Jar: jar},
		email:    fmt.Sprintf("h2_%s@example.com", uuid.NewString()[:8]),
		password: "electrolyser",
	}

	// Mixed case and padding are normalized away on sign-up.
	res, body := a.post(t, "/register", map[string]string{
		"name":       "  Test Engineer ",
		"email":      "  " + strings.ToUpper(a.email),
		"password":   a.password,
		"year":       "Faculty",
		"department": "Chemical Engineering",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("register: %d %s", res.StatusCode, body)
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("register body: %s", body)
	}
	if out["email"] != a.email || out["name"] != "Test Engineer" {
		t.Errorf("register returned %v", out)
	}
	a.userID = out["user_id"]

	t.Cleanup(func() {
		db.DB.Where("user_id = ?", a.userID).Delete(&auth.Session{})
		db.DB.Where("user_id = ?", a.userID).Delete(&auth.User{})
	})
	return a
}

func (a *account) post(t *testing.T, path string, v interface{}) (*http.Response, string) {
	t.Helper()
	b, _ := json.Marshal(v)
	res, err := a.client.Post(srv.URL+"/api/auth"+path, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return res, drain(t, res)
}

func (a *account) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	res, err := a.client.Get(srv.URL + "/api/auth" + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return res, drain(t, res)
}

func (a *account) login(t *testing.T, password string) (*http.Response, string) {
	t.Helper()
	return a.post(t, "/login", map[string]string{"email": a.email, "password": password})
}

func drain(t *testing.T, res *http.Response) string {
	t.Helper()
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestRegisterRejectsBeforeStoring(t *testing.T) {
	if srv == nil {
		t.Skip("DATABASE_URL not set")
	}
	a := &account{client: http.DefaultClient}
	email := fmt.Sprintf("h2_%s@example.com", uuid.NewString()[:8])

	cases := map[string]map[string]string{
		"bad email":      {"name": "X", "email": "not-an-email", "password": "electrolyser"},
		"short password": {"name": "X", "email": email, "password": "abc"},
		"unknown year":   {"name": "X", "email": email, "password": "electrolyser", "year": "9th"},
	}
	for name, body := range cases {
		res, msg := a.post(t, "/register", body)
		if res.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status %d %s", name, res.StatusCode, msg)
		}
	}

	var n int64
	db.DB.Model(&auth.User{}).Where("email = ?", email).Count(&n)
	if n != 0 {
		t.Errorf("rejected registration stored %d rows", n)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	a := register(t)
	res, body := a.post(t, "/register", map[string]string{
		"name": "Twin", "email": a.email, "password": "electrolyser",
	})
	if res.StatusCode != http.StatusConflict {
		t.Errorf("status %d %s", res.StatusCode, body)
	}
}

func TestLoginSessionLifetime(t *testing.T) {
	a := register(t)

	res, body := a.login(t, a.password)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login: %d %s", res.StatusCode, body)
	}
	var out map[string]string
	_ = json.Unmarshal([]byte(body), &out)
	if out["role"] != "user" {
		t.Errorf("role = %q", out["role"])
	}

	var cookie *http.Cookie
	for _, c := range res.Cookies() {
		if c.Name == "session_id" {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("no session cookie")
	}
	if want := sessionHours * 3600; cookie.MaxAge != want {
		t.Errorf("cookie max-age = %d, want %d", cookie.MaxAge, want)
	}

	var s auth.Session
	if err := db.DB.First(&s, "user_id = ?", a.userID).Error; err != nil {
		t.Fatal(err)
	}
	left := time.Until(s.ExpiresAt)
	if left < sessionHours*time.Hour-time.Minute || left > sessionHours*time.Hour {
		t.Errorf("session expires in %s", left)
	}

	var u auth.User
	db.DB.First(&u, "user_id = ?", a.userID)
	if u.LoginCount != 1 || u.LastLogin == nil {
		t.Errorf("login_count=%d last_login=%v", u.LoginCount, u.LastLogin)
	}
}

func TestMeReportsAccountFields(t *testing.T) {
	a := register(t)
	if res, body := a.login(t, a.password); res.StatusCode != http.StatusOK {
		t.Fatalf("login: %d %s", res.StatusCode, body)
	}

	res, body := a.get(t, "/me")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me: %d %s", res.StatusCode, body)
	}
	var me map[string]interface{}
	if err := json.Unmarshal([]byte(body), &me); err != nil {
		t.Fatalf("me body: %s", body)
	}
	if me["role"] != "user" || me["is_active"] != true || me["is_verified"] != false {
		t.Errorf("account flags: %v", me)
	}
	if me["department"] != "Chemical Engineering" || me["year"] != "Faculty" {
		t.Errorf("profile fields: %v", me)
	}
	for _, k := range []string{"password", "hashed_password", "HashedPassword"} {
		if _, ok := me[k]; ok {
			t.Errorf("%s leaked", k)
		}
	}
}

func TestSecondLoginReplacesSession(t *testing.T) {
	a := register(t)
	if res, _ := a.login(t, a.password); res.StatusCode != http.StatusOK {
		t.Fatal("first login failed")
	}

	jar, _ := cookiejar.New(nil)
	other := &account{client: &http.Client{Jar: jar}, email: a.email}
	if res, _ := other.login(t, a.password); res.StatusCode != http.StatusOK {
		t.Fatal("second login failed")
	}

	if res, body := a.get(t, "/me"); res.StatusCode != http.StatusUnauthorized {
		t.Errorf("old session still works: %d %s", res.StatusCode, body)
	}
	if res, body := other.get(t, "/me"); res.StatusCode != http.StatusOK {
		t.Errorf("new session rejected: %d %s", res.StatusCode, body)
	}

	var n int64
	db.DB.Model(&auth.Session{}).Where("user_id = ?", a.userID).Count(&n)
	if n != 1 {
		t.Errorf("%d sessions for one user", n)
	}
}

func TestDeactivatedAccountCannotLogin(t *testing.T) {
	a := register(t)
	if err := db.DB.Model(&auth.User{}).Where("user_id = ?", a.userID).Update("is_active", false).Error; err != nil {
		t.Fatal(err)
	}

	res, body := a.login(t, a.password)
	if res.StatusCode != http.StatusForbidden || !strings.Contains(body, "deactivated") {
		t.Errorf("status %d %s", res.StatusCode, body)
	}
	var n int64
	db.DB.Model(&auth.Session{}).Where("user_id = ?", a.userID).Count(&n)
	if n != 0 {
		t.Error("deactivated account was given a session")
	}
}

func TestPasswordChange(t *testing.T) {
	a := register(t)
	if res, _ := a.login(t, a.password); res.StatusCode != http.StatusOK {
		t.Fatal("login failed")
	}

	steps := []struct {
		name    string
		current string
		next    string
		want    int
	}{
		{"wrong current", "not-it", "hydrolysis", http.StatusUnauthorized},
		{"too short", a.password, "h2", http.StatusBadRequest},
		{"missing new", a.password, "", http.StatusBadRequest},
		{"ok", a.password, "hydrolysis", http.StatusOK},
	}
	for _, s := range steps {
		res, body := a.post(t, "/password", map[string]string{
			"current_password": s.current,
			"new_password":     s.next,
		})
		if res.StatusCode != s.want {
			t.Fatalf("%s: status %d, want %d (%s)", s.name, res.StatusCode, s.want, body)
		}
	}

	if res, _ := a.login(t, a.password); res.StatusCode != http.StatusUnauthorized {
		t.Errorf("old password still accepted: %d", res.StatusCode)
	}
	if res, body := a.login(t, "hydrolysis"); res.StatusCode != http.StatusOK {
		t.Errorf("new password rejected: %d %s", res.StatusCode, body)
	}
}

func TestPasswordChangeNeedsSession(t *testing.T) {
	if srv == nil {
		t.Skip("DATABASE_URL not set")
	}
	a := &account{client: http.DefaultClient}
	res, _ := a.post(t, "/password", map[string]string{
		"current_password": "x", "new_password": "yyyyyyy",
	})
	if res.StatusCode != http.StatusUnauthorized {
		t.Errorf("status %d", res.StatusCode)
	}
}

func TestLogoutThenExpiredSession(t *testing.T) {
	a := register(t)
	if res, _ := a.login(t, a.password); res.StatusCode != http.StatusOK {
		t.Fatal("login failed")
	}

	db.DB.Model(&auth.Session{}).Where("user_id = ?", a.userID).
		Update("expires_at", time.Now().Add(-time.Minute))
	if res, body := a.get(t, "/me"); res.StatusCode != http.StatusUnauthorized || !strings.Contains(body, "Session expired") {
		t.Errorf("expired session: %d %s", res.StatusCode, body)
	}

	if res, _ := a.login(t, a.password); res.StatusCode != http.StatusOK {
		t.Fatal("re-login failed")
	}
	if res, body := a.post(t, "/logout", nil); res.StatusCode != http.StatusOK {
		t.Fatalf("logout: %d %s", res.StatusCode, body)
	}
	if res, _ := a.get(t, "/me"); res.StatusCode != http.StatusUnauthorized {
		t.Errorf("session survived logout: %d", res.StatusCode)
	}
}
