package middleware

import (
	"net/http"

	"github.com/damoang/image-organizer/internal/common"
	"github.com/damoang/image-organizer/pkg/i18n"
	"github.com/damoang/image-organizer/pkg/nonce"
	"github.com/gin-gonic/gin"
)

const nonceClaimsKey = "nonce_claims"

// VerifyNonce rejects requests without a valid gallery security token (403, no retry).
// Runs before any query; the verified claims are stored for the handler.
func VerifyNonce(manager *nonce.Manager, bundle *i18n.Bundle) gin.HandlerFunc {
	return func(c *gin.Context) {
		action := c.PostForm("action")
		SetAction(c, action, "")

		token := c.PostForm("nonce")
		if token == "" {
			token = c.GetHeader("X-IO-Nonce")
		}

		claims, err := manager.Verify(token)
		if err != nil {
			c.Set(outcomeKey, "rejected")
			common.AjaxError(c, http.StatusForbidden, bundle.T(GetLocale(c), "error.rejected"))
			return
		}

		c.Set(nonceClaimsKey, claims)
		SetAction(c, action, claims.Instance())
		c.Next()
	}
}

// GetNonceClaims returns the claims stored by VerifyNonce
func GetNonceClaims(c *gin.Context) *nonce.Claims {
	if v, ok := c.Get(nonceClaimsKey); ok {
		if claims, ok := v.(*nonce.Claims); ok {
			return claims
		}
	}
	return nil
}
