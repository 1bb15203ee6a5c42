package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestTokenService_IssueAndVerify(t *testing.T) {
	svc := NewTokenService("test-signing-key", time.Hour)

	token, expiresIn, err := svc.Issue("abha-12345")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if expiresIn != 3600 {
		t.Errorf("expected expires_in 3600, got %d", expiresIn)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if claims.Subject != "abha-12345" {
		t.Errorf("expected subject abha-12345, got %q", claims.Subject)
	}
}

func TestTokenService_RejectsWrongKey(t *testing.T) {
	issuer := NewTokenService("key-one", time.Hour)
	verifier := NewTokenService("key-two", time.Hour)

	token, _, err := issuer.Issue("user")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if _, err := verifier.Verify(token); err == nil {
		t.Error("expected verification to fail with a different signing key")
	}
}

func TestTokenService_RejectsExpired(t *testing.T) {
	svc := NewTokenService("key", -time.Minute)
	token, _, err := svc.Issue("user")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if _, err := svc.Verify(token); err == nil {
		t.Error("expected verification to fail for an expired token")
	}
}

func TestTokenHandler_IssueToken(t *testing.T) {
	e := echo.New()
	svc := NewTokenService("key", time.Hour)
	h := NewTokenHandler(svc)

	form := url.Values{}
	form.Set("username", "clinician-1")
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.IssueToken(c); err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "access_token") || !strings.Contains(body, "bearer") {
		t.Errorf("unexpected token response body: %s", body)
	}
}

func TestMiddleware_RequiresBearer(t *testing.T) {
	e := echo.New()
	svc := NewTokenService("key", time.Hour)
	mw := Middleware(svc, nil)
	handler := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, UserIDFromContext(c.Request().Context()))
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/terminology/search", nil)
		c := e.NewContext(req, httptest.NewRecorder())
		err := handler(c)
		if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %v", err)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/terminology/search", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		c := e.NewContext(req, httptest.NewRecorder())
		err := handler(c)
		if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %v", err)
		}
	})

	t.Run("valid token passes and sets user", func(t *testing.T) {
		token, _, err := svc.Issue("abha-9")
		if err != nil {
			t.Fatalf("Issue() error: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/terminology/search", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if err := handler(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Body.String() != "abha-9" {
			t.Errorf("expected subject abha-9 in context, got %q", rec.Body.String())
		}
	})
}

func TestMiddleware_SkipperBypasses(t *testing.T) {
	e := echo.New()
	svc := NewTokenService("key", time.Hour)
	mw := Middleware(svc, DefaultSkipper)
	handler := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/health")
	if err := handler(c); err != nil {
		t.Errorf("expected /health to bypass auth, got %v", err)
	}
}
