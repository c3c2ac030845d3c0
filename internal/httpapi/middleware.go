package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// AdminTokenHeaderName is the header admin requests must carry.
	AdminTokenHeaderName = "X-Api-Token"

	messageAdminTokenNotConfigured = "Admin token not configured"
	messageUnauthorized            = "Unauthorized"

	detailsValueMissingAdminToken = "ADMIN_API_TOKEN"
	detailsValueInvalidAdminToken = "Invalid or missing x-api-token"
)

// RequestLogger logs one structured line per handled request.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(requestContext *gin.Context) {
		start := time.Now()
		requestContext.Next()
		logger.Info("http",
			zap.String("method", requestContext.Request.Method),
			zap.String("path", requestContext.Request.URL.Path),
			zap.Int("status", requestContext.Writer.Status()),
			zap.Duration("dur", time.Since(start)),
			zap.String("ip", requestContext.ClientIP()),
			zap.String("ua", requestContext.Request.UserAgent()),
		)
	}
}

// AdminAuthMiddleware gates admin routes behind the shared static token. An
// unconfigured token fails closed as a server misconfiguration rather than
// granting access.
func AdminAuthMiddleware(adminAPIToken string) gin.HandlerFunc {
	configuredToken := strings.TrimSpace(adminAPIToken)
	return func(requestContext *gin.Context) {
		if configuredToken == "" {
			requestContext.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				jsonKeyMessage: messageAdminTokenNotConfigured,
				jsonKeyDetails: gin.H{"missing": detailsValueMissingAdminToken},
			})
			return
		}

		providedToken := requestContext.GetHeader(AdminTokenHeaderName)
		if providedToken == "" || providedToken != configuredToken {
			requestContext.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				jsonKeyMessage: messageUnauthorized,
				jsonKeyDetails: gin.H{"error": detailsValueInvalidAdminToken},
			})
			return
		}

		requestContext.Next()
	}
}
