package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stemsi/exstem-player/internal/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestBrotliCompressesLargeBodies(t *testing.T) {
	r := gin.New()
	r.Use(Brotli())
	large := strings.Repeat("quiz ", 1000)
	r.GET("/large", func(c *gin.Context) { c.String(http.StatusOK, large) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/large", nil)
	req.Header.Set("Accept-Encoding", "gzip, br")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get("Content-Encoding") != "br" {
		t.Fatalf("Content-Encoding = %q", w.Header().Get("Content-Encoding"))
	}
	body, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if string(body) != large {
		t.Fatal("round trip mismatch")
	}

	req = httptest.NewRequest(http.MethodGet, "/small", nil)
	req.Header.Set("Accept-Encoding", "br")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Content-Encoding") != "" || w.Body.String() != "ok" {
		t.Fatalf("small body: encoding %q body %q", w.Header().Get("Content-Encoding"), w.Body.String())
	}
}

func TestRateLimiterBlocksBurst(t *testing.T) {
	r := gin.New()
	r.Use(NewRateLimiter(2, time.Minute).Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, time.Minute)
	for i := 0; i < 100; i++ {
		if !rl.allow("1.2.3.4") {
			t.Fatalf("request %d limited", i)
		}
	}
}

func signed(t *testing.T, secret string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
		UserID:           "42",
	})
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestRequireIdentity(t *testing.T) {
	r := gin.New()
	r.GET("/me", RequireIdentity("s3cret", ""), func(c *gin.Context) {
		c.String(http.StatusOK, GetIdentity(c).UserID)
	})

	cases := []struct {
		name   string
		header string
		want   int
		code   string
	}{
		{"missing", "", http.StatusUnauthorized, "TOKEN_REQUIRED"},
		{"garbage", "Bearer nope", http.StatusUnauthorized, "TOKEN_INVALID"},
		{"expired", "Bearer " + signed(t, "s3cret", time.Now().Add(-time.Hour)), http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{"valid", "Bearer " + signed(t, "s3cret", time.Now().Add(time.Hour)), http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
			}
			if tc.code != "" && !strings.Contains(w.Body.String(), tc.code) {
				t.Fatalf("body %s lacks %s", w.Body.String(), tc.code)
			}
			if tc.want == http.StatusOK && w.Body.String() != "42" {
				t.Fatalf("user = %q", w.Body.String())
			}
		})
	}
}

func TestRequireIdentityFallbackToken(t *testing.T) {
	r := gin.New()
	r.GET("/me", RequireIdentity("", "opaque-kiosk-token"), func(c *gin.Context) {
		c.String(http.StatusOK, GetIdentity(c).Token)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	if w.Code != http.StatusOK || w.Body.String() != "opaque-kiosk-token" {
		t.Fatalf("status %d body %q", w.Code, w.Body.String())
	}
}
