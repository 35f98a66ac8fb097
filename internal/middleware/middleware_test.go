package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"fintrack/internal/logger"
	"fintrack/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
}

const testSecret = "test-secret"

func newTestTokenManager() *TokenManager {
	return NewTokenManager(testSecret, time.Hour)
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func doRequest(r http.Handler, method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response body %q: %v", rec.Body.String(), err)
	}
	return result
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := parseBody(t, rec)
	errObj, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got %v", body)
	}
	code, _ := errObj["code"].(string)
	return code
}

func bearer(t *testing.T, tm *TokenManager, id uint, role models.Role) map[string]string {
	t.Helper()
	token, err := tm.Generate(&models.User{Base: models.Base{ID: id}, Email: "u@example.com", Role: role})
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + token}
}
