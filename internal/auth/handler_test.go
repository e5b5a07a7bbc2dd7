package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	apphttp "cam_backend/internal/http"
	"cam_backend/platform/httpkit"
	"cam_backend/platform/logger"
	"cam_backend/platform/validator"
)

const loginTestPassword = "correct horse"

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hash, err := HashPassword(loginTestPassword)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	engine := gin.New()
	v1 := engine.Group("/api/v1")
	cfg := staticAuthConfig{email: "operator@example.com", hash: hash}
	NewModule(cfg, validator.New()).RegisterRoutes(&apphttp.RouterContext{
		Engine:          engine,
		V1:              v1,
		Protected:       v1,
		AuthRateLimiter: httpkit.NewAuthRateLimiter(logger.New("test")),
	})
	return engine
}

func postLogin(t *testing.T, engine *gin.Engine, payload LoginRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestLoginEndpoint(t *testing.T) {
	engine := newAuthRouter(t)

	rec := postLogin(t, engine, LoginRequest{Email: "operator@example.com", Password: loginTestPassword})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: got status %d: %s", rec.Code, rec.Body.String())
	}
	var result TokenResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.AccessToken == "" {
		t.Fatalf("login response missing access token")
	}

	rec = postLogin(t, engine, LoginRequest{Email: "operator@example.com", Password: "wrong-password"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: got status %d, want 401", rec.Code)
	}

	rec = postLogin(t, engine, LoginRequest{Email: "not-an-email", Password: "whatever"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed email: got status %d, want 400", rec.Code)
	}
}
