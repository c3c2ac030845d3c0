package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ProjectRakawara/rescue_svc/internal/apperr"
)

const (
	jsonKeyMessage = "message"
	jsonKeyDetails = "details"

	messageInternalServerError = "Internal server error"
)

// respondError serializes any failure as the uniform {message, details}
// envelope consumers depend on. Errors that are not service errors are
// reported as opaque backend failures.
func respondError(requestContext *gin.Context, failure error) {
	var serviceError *apperr.Error
	if errors.As(failure, &serviceError) {
		details := serviceError.Details
		if details == nil {
			details = map[string]any{}
		}
		requestContext.JSON(serviceError.StatusCode, gin.H{
			jsonKeyMessage: serviceError.Message,
			jsonKeyDetails: details,
		})
		return
	}

	requestContext.JSON(http.StatusInternalServerError, gin.H{
		jsonKeyMessage: messageInternalServerError,
		jsonKeyDetails: gin.H{"error": failure.Error()},
	})
}
