package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/villacheck/server/apperr"
	"github.com/villacheck/server/session"
	"go.uber.org/zap"
)

type authFunc func(ctx context.Context, token string) (session.Identity, error)

func (f authFunc) Authenticate(ctx context.Context, token string) (session.Identity, error) {
	return f(ctx, token)
}

var maria = session.Identity{StaffID: "S1", Name: "Maria", Login: "maria"}

func stubAuth() Authenticator {
	return authFunc(func(_ context.Context, token string) (session.Identity, error) {
		switch token {
		case "":
			return session.Identity{}, apperr.Unauthorized(apperr.MsgNotAuthenticated)
		case "tk_good":
			return maria, nil
		case "tk_broken":
			return session.Identity{}, errors.New("cache down")
		}
		return session.Identity{}, apperr.Unauthorized(apperr.MsgSessionExpired)
	})
}

func newProtectedRouter(a Authenticator) *gin.Engine {
	r := gin.New()
	r.Use(Auth(a))
	r.GET("/protected", func(ctx *gin.Context) {
		ctx.Status(http.StatusOK)
	})
	return r
}

func doAuth(t *testing.T, r *gin.Engine, header string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body struct {
		Error string `json:"error"`
	}
	if w.Code != http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w.Code, body.Error
}

func TestAuth_MissingAuthHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	code, reason := doAuth(t, newProtectedRouter(stubAuth()), "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "not authenticated", reason)
}

func TestAuth_NoBearer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	code, reason := doAuth(t, newProtectedRouter(stubAuth()), "Token tk_good")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "not authenticated", reason)
}

func TestAuth_UnknownToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	code, reason := doAuth(t, newProtectedRouter(stubAuth()), "Bearer tk_gone")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "session expired", reason)
}

func TestAuth_LookupFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	code, reason := doAuth(t, newProtectedRouter(stubAuth()), "Bearer tk_broken")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "session expired", reason)
}

func TestAuth_ValidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	code, _ := doAuth(t, newProtectedRouter(stubAuth()), "bearer tk_good")
	assert.Equal(t, http.StatusOK, code)
}

func TestAuth_SetsIdentityInContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var got session.Identity
	var token string
	r := gin.New()
	r.Use(Auth(stubAuth()))
	r.GET("/me", func(ctx *gin.Context) {
		got, _ = GetIdentity(ctx)
		token = ctx.GetString(TokenKey)
		ctx.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer tk_good")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, maria, got)
	assert.Equal(t, "tk_good", token)
}

func TestGetIdentity_Missing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := GetIdentity(c)
	assert.False(t, ok)
}

func TestBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := map[string]string{
		"":                   "",
		"Bearer":             "",
		"Bearer  tk_abc ":    "tk_abc",
		"BEARER tk_abc":      "tk_abc",
		"Basic dXNlcjpwdw==": "",
	}
	for header, want := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.Header.Set("Authorization", header)
		assert.Equal(t, want, BearerToken(c), "header %q", header)
	}
}

func newAdminRouter(key string) *gin.Engine {
	r := gin.New()
	r.Use(AdminAuth(key))
	r.GET("/admin", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestAdminAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		key    string
		header string
		want   int
	}{
		{"disabled", "", "anything", http.StatusServiceUnavailable},
		{"missing header", "s3cret", "", http.StatusUnauthorized},
		{"wrong key", "s3cret", "nope", http.StatusUnauthorized},
		{"correct key", "s3cret", "s3cret", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.header != "" {
				req.Header.Set(AdminKeyHeader, tc.header)
			}
			w := httptest.NewRecorder()
			newAdminRouter(tc.key).ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestRecovery_CatchesPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(TraceID())
	r.Use(Recovery(zap.NewNop()))
	r.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
}

func TestRecovery_NoPanic_PassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Recovery(zap.NewNop()))
	r.GET("/ok", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogger_RequestLogged(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(TraceID())
	r.Use(Logger(zap.NewNop()))
	r.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogger_ErrorResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Logger(zap.NewNop()))
	r.GET("/fail", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodGet, "/fail", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
