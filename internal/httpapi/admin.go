package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ProjectRakawara/rescue_svc/internal/apperr"
	"github.com/ProjectRakawara/rescue_svc/internal/storage"
)

const (
	routeParamPostID = "id"

	jsonKeyPostID = "post_id"

	messagePostIDRequired = "Post id is required"
	messagePostDeleted    = "Post deleted"

	logEventPostVerified = "rescue_post_verified"
	logEventPostDeleted  = "rescue_post_deleted"
)

// AdminHandlers serves the token-gated triage endpoints.
type AdminHandlers struct {
	repository storage.PostRepository
	logger     *zap.Logger
}

// NewAdminHandlers creates the admin handlers with explicit dependencies.
func NewAdminHandlers(repository storage.PostRepository, logger *zap.Logger) *AdminHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandlers{repository: repository, logger: logger}
}

// ListUnverified returns every post awaiting verification, newest first.
func (handlers *AdminHandlers) ListUnverified(requestContext *gin.Context) {
	posts, listErr := handlers.repository.ListUnverifiedPosts()
	if listErr != nil {
		respondError(requestContext, listErr)
		return
	}
	requestContext.JSON(http.StatusOK, gin.H{jsonKeyPosts: posts})
}

// VerifyPost marks a post as confirmed genuine and returns the updated row.
func (handlers *AdminHandlers) VerifyPost(requestContext *gin.Context) {
	postID := strings.TrimSpace(requestContext.Param(routeParamPostID))
	if postID == "" {
		respondError(requestContext, apperr.Invalid(messagePostIDRequired, map[string]any{detailsKeyField: jsonKeyPostID}))
		return
	}

	post, verifyErr := handlers.repository.VerifyPost(postID)
	if verifyErr != nil {
		respondError(requestContext, verifyErr)
		return
	}

	handlers.logger.Info(logEventPostVerified, zap.String(logFieldPostID, postID))
	requestContext.JSON(http.StatusOK, gin.H{jsonKeyPost: post})
}

// DeletePost removes a post and its image rows.
func (handlers *AdminHandlers) DeletePost(requestContext *gin.Context) {
	postID := strings.TrimSpace(requestContext.Param(routeParamPostID))
	if postID == "" {
		respondError(requestContext, apperr.Invalid(messagePostIDRequired, map[string]any{detailsKeyField: jsonKeyPostID}))
		return
	}

	if deleteErr := handlers.repository.DeletePost(postID); deleteErr != nil {
		respondError(requestContext, deleteErr)
		return
	}

	handlers.logger.Info(logEventPostDeleted, zap.String(logFieldPostID, postID))
	requestContext.JSON(http.StatusOK, gin.H{jsonKeyMessage: messagePostDeleted, jsonKeyPostID: postID})
}
