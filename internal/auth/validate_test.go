package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestValidateRegistration(t *testing.T) {
	base := User{Name: "Asha", Email: "asha@example.com", Password: "secret1"}

	tests := []struct {
		name   string
		modify func(*User)
		want   error
	}{
		{"valid", func(u *User) {}, nil},
		{"missing name", func(u *User) { u.Name = "" }, errMissingFields},
		{"missing password", func(u *User) { u.Password = "" }, errMissingFields},
		{"bad email", func(u *User) { u.Email = "asha-at-example" }, errInvalidEmail},
		{"display name email", func(u *User) { u.Email = "Asha <asha@example.com>" }, errInvalidEmail},
		{"short password", func(u *User) { u.Password = "12345" }, errShortPassword},
		{"unknown year", func(u *User) { u.Year = "5th" }, errInvalidYear},
		{"known year", func(u *User) { u.Year = "Alumni" }, nil},
		{"unknown department", func(u *User) { u.Department = "Astrology" }, errInvalidDept},
		{"known department", func(u *User) { u.Department = "Chemical Engineering" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := base
			tt.modify(&u)
			if err := validateRegistration(u); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

// These requests are rejected before any database access.
func TestRegisterRejectsBadInput(t *testing.T) {
	bodies := map[string]string{
		"not json":       `{`,
		"missing fields": `{"email":"a@example.com"}`,
		"short password": `{"name":"A","email":"a@example.com","password":"x"}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
			rec := httptest.NewRecorder()
			RegisterHandler(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestLoginRequiresCredentials(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"  "}`))
	rec := httptest.NewRecorder()
	LoginHandler(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSessionCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	c := sessionCookie(req, "abc", 60)
	if c.Secure || c.SameSite != http.SameSiteLaxMode || !c.HttpOnly {
		t.Errorf("plain HTTP cookie: %+v", c)
	}

	req.Header.Set("X-Forwarded-Proto", "https")
	c = sessionCookie(req, "abc", 60)
	if !c.Secure || c.SameSite != http.SameSiteNoneMode {
		t.Errorf("HTTPS cookie: %+v", c)
	}
}
