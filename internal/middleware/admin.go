package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/MorseWayne/bp_store/internal/config"
	"github.com/MorseWayne/bp_store/internal/resp"
)

// HeaderAdminSecret 管理后台共享密钥请求头
const HeaderAdminSecret = "X-Admin-Secret"

// SecretVerifier 校验管理员共享密钥。
// 配置了 bcrypt 哈希时按哈希比对，否则做常量时间的明文比对。
type SecretVerifier struct {
	secret []byte
	hash   []byte
}

// NewSecretVerifier 根据配置创建校验器
func NewSecretVerifier(cfg config.AdminConfig) *SecretVerifier {
	v := &SecretVerifier{}
	if cfg.SecretHash != "" {
		v.hash = []byte(cfg.SecretHash)
	} else {
		v.secret = []byte(cfg.Secret)
	}
	return v
}

// Verify 判断提交的密钥是否正确
func (v *SecretVerifier) Verify(candidate string) bool {
	if candidate == "" {
		return false
	}
	if v.hash != nil {
		return bcrypt.CompareHashAndPassword(v.hash, []byte(candidate)) == nil
	}
	if len(v.secret) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(v.secret, []byte(candidate)) == 1
}

// RequireAdmin 要求请求携带正确的管理员密钥，失败时返回 401 且不透露原因
func RequireAdmin(verifier *SecretVerifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier.Verify(c.GetHeader(HeaderAdminSecret)) {
			c.Next()
			return
		}

		reqID := RequestIDFromContext(c.Request.Context())
		logger.Warn("admin authentication failed",
			zap.String("request_id", reqID),
			zap.String("path", c.FullPath()),
			zap.String("client_ip", c.ClientIP()),
		)
		resp.Error(c.Writer, http.StatusUnauthorized, resp.CodeUnauthorized, "unauthorized", reqID, "")
		c.Abort()
	}
}
