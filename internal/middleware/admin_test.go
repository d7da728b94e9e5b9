package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/MorseWayne/bp_store/internal/config"
)

func TestSecretVerifier(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed-secret"), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name      string
		cfg       config.AdminConfig
		candidate string
		want      bool
	}{
		{"plain match", config.AdminConfig{Secret: "s3cret"}, "s3cret", true},
		{"plain mismatch", config.AdminConfig{Secret: "s3cret"}, "nope", false},
		{"empty candidate", config.AdminConfig{Secret: "s3cret"}, "", false},
		{"empty config", config.AdminConfig{}, "anything", false},
		{"hash match", config.AdminConfig{SecretHash: string(hash)}, "hashed-secret", true},
		{"hash takes precedence", config.AdminConfig{Secret: "plain", SecretHash: string(hash)}, "plain", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewSecretVerifier(tt.cfg).Verify(tt.candidate))
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/orders", RequireAdmin(NewSecretVerifier(config.AdminConfig{Secret: "s3cret"}), zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)
	assert.Equal(t, http.StatusUnauthorized, rw.Code)
	assert.Contains(t, rw.Body.String(), `"code":40100`)

	req = httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set(HeaderAdminSecret, "s3cret")
	rw = httptest.NewRecorder()
	r.ServeHTTP(rw, req)
	assert.Equal(t, http.StatusOK, rw.Code)
}
