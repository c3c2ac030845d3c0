package httpapi

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ProjectRakawara/rescue_svc/internal/apperr"
	"github.com/ProjectRakawara/rescue_svc/internal/mediastore"
	"github.com/ProjectRakawara/rescue_svc/internal/model"
	"github.com/ProjectRakawara/rescue_svc/internal/notifications"
	"github.com/ProjectRakawara/rescue_svc/internal/ranking"
	"github.com/ProjectRakawara/rescue_svc/internal/storage"
)

const (
	multipartFileFieldName = "images"

	queryParamLimit        = "limit"
	queryParamMinPeople    = "min_people"
	queryParamMaxSafeHours = "max_safe_hours"

	jsonKeyPost   = "post"
	jsonKeyImages = "images"
	jsonKeyPosts  = "posts"

	messageImageRequired      = "At least one image file is required"
	messageImageNameRequired  = "Image file must have a filename"
	messageImageTypeRejected  = "Only image uploads are allowed"
	messageImageEmpty         = "Image file is empty"
	messageImageUploadFailed  = "Failed to upload image"
	messageInvalidLimit       = "Limit must be a positive integer"
	messageInvalidFilterValue = "Invalid filter value"
	messageEmptyFilterSet     = "At least one filter must be provided"

	logEventUploadImageFailed  = "upload_image_failed"
	logEventRemoveOrphanFailed = "remove_orphan_object_failed"
	logEventRollbackPostFailed = "rollback_post_failed"
	logEventNotifyFailed       = "notify_rescue_post_failed"
	logEventPostCreated        = "rescue_post_created"

	logFieldFilename   = "filename"
	logFieldObjectKey  = "object_key"
	logFieldPostID     = "post_id"
	logFieldImageCount = "image_count"

	detailsKeyField    = "field"
	detailsKeyFilename = "filename"
	detailsKeyValue    = "value"
)

// filterParameterNames lists every query parameter /posts/filter accepts,
// reported back when a request provides none of them.
var filterParameterNames = []string{
	"district", "emergency_type", "water_level", "is_medical_needed",
	"need_foods", "need_water", "need_transport", "need_medic", "need_power",
	"need_clothes", "is_verified", "min_people", "max_safe_hours",
}

// PostHandlers serves the public rescue post endpoints.
type PostHandlers struct {
	repository         storage.PostRepository
	uploader           mediastore.Uploader
	notifier           notifications.RescueNotifier
	logger             *zap.Logger
	maxUploadMegabytes int
	uploadPrefix       string
}

// NewPostHandlers creates the public handlers with explicit dependencies.
func NewPostHandlers(repository storage.PostRepository, uploader mediastore.Uploader, notifier notifications.RescueNotifier, logger *zap.Logger, maxUploadMegabytes int, uploadPrefix string) *PostHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostHandlers{
		repository:         repository,
		uploader:           uploader,
		notifier:           notifications.ResolveNotifier(notifier),
		logger:             logger,
		maxUploadMegabytes: maxUploadMegabytes,
		uploadPrefix:       uploadPrefix,
	}
}

type uploadedImage struct {
	objectKey string
	cdnURL    string
}

// CreatePost validates the multipart submission, uploads every photo, persists
// the post and its image rows, and notifies the operations channel best-effort.
func (handlers *PostHandlers) CreatePost(requestContext *gin.Context) {
	post, validationErr := parseSubmission(requestContext)
	if validationErr != nil {
		respondError(requestContext, validationErr)
		return
	}

	multipartForm, formErr := requestContext.MultipartForm()
	if formErr != nil {
		respondError(requestContext, apperr.Invalid(messageImageRequired, map[string]any{detailsKeyField: multipartFileFieldName}))
		return
	}

	uploads, uploadErr := handlers.uploadImages(requestContext.Request.Context(), multipartForm.File[multipartFileFieldName])
	if uploadErr != nil {
		respondError(requestContext, uploadErr)
		return
	}

	post.ID = storage.NewID()
	if createErr := handlers.repository.CreatePost(&post); createErr != nil {
		handlers.removeUploadedObjects(requestContext.Request.Context(), uploads)
		respondError(requestContext, createErr)
		return
	}

	imageRecords := make([]model.RescueImage, 0, len(uploads))
	for _, upload := range uploads {
		imageRecords = append(imageRecords, model.RescueImage{
			ID:       storage.NewID(),
			PostID:   post.ID,
			ImageURL: upload.cdnURL,
		})
	}
	if createImagesErr := handlers.repository.CreateImages(imageRecords); createImagesErr != nil {
		if rollbackErr := handlers.repository.DeletePost(post.ID); rollbackErr != nil {
			handlers.logger.Warn(logEventRollbackPostFailed, zap.Error(rollbackErr), zap.String(logFieldPostID, post.ID))
		}
		handlers.removeUploadedObjects(requestContext.Request.Context(), uploads)
		respondError(requestContext, createImagesErr)
		return
	}
	post.Images = imageRecords

	imageURLs := make([]string, 0, len(uploads))
	for _, upload := range uploads {
		imageURLs = append(imageURLs, upload.cdnURL)
	}
	if notifyErr := handlers.notifier.NotifyRescuePost(requestContext.Request.Context(), post, imageURLs); notifyErr != nil {
		handlers.logger.Warn(logEventNotifyFailed, zap.Error(notifyErr), zap.String(logFieldPostID, post.ID))
	}

	handlers.logger.Info(logEventPostCreated, zap.String(logFieldPostID, post.ID), zap.Int(logFieldImageCount, len(imageRecords)))
	requestContext.JSON(http.StatusCreated, gin.H{jsonKeyPost: post, jsonKeyImages: imageRecords})
}

func (handlers *PostHandlers) uploadImages(ctx context.Context, fileHeaders []*multipart.FileHeader) ([]uploadedImage, error) {
	if len(fileHeaders) == 0 {
		return nil, apperr.Invalid(messageImageRequired, map[string]any{detailsKeyField: multipartFileFieldName})
	}

	maxUploadBytes := int64(handlers.maxUploadMegabytes) * 1024 * 1024
	uploads := make([]uploadedImage, 0, len(fileHeaders))

	for _, fileHeader := range fileHeaders {
		if strings.TrimSpace(fileHeader.Filename) == "" {
			handlers.removeUploadedObjects(ctx, uploads)
			return nil, apperr.Invalid(messageImageNameRequired, map[string]any{detailsKeyField: multipartFileFieldName})
		}

		contentType := mediastore.ResolveContentType(fileHeader.Header.Get("Content-Type"), fileHeader.Filename)
		if !mediastore.IsImageContentType(contentType) {
			handlers.removeUploadedObjects(ctx, uploads)
			return nil, apperr.Invalid(messageImageTypeRejected, map[string]any{
				detailsKeyField:    multipartFileFieldName,
				detailsKeyFilename: fileHeader.Filename,
			})
		}

		openedFile, openErr := fileHeader.Open()
		if openErr != nil {
			handlers.removeUploadedObjects(ctx, uploads)
			return nil, apperr.Internal(messageImageUploadFailed, map[string]any{detailsKeyFilename: fileHeader.Filename})
		}
		content, readErr := io.ReadAll(openedFile)
		_ = openedFile.Close()
		if readErr != nil {
			handlers.removeUploadedObjects(ctx, uploads)
			return nil, apperr.Internal(messageImageUploadFailed, map[string]any{detailsKeyFilename: fileHeader.Filename})
		}

		if len(content) == 0 {
			handlers.removeUploadedObjects(ctx, uploads)
			return nil, apperr.Invalid(messageImageEmpty, map[string]any{
				detailsKeyField:    multipartFileFieldName,
				detailsKeyFilename: fileHeader.Filename,
			})
		}
		if int64(len(content)) > maxUploadBytes {
			handlers.removeUploadedObjects(ctx, uploads)
			return nil, apperr.Invalid(fmt.Sprintf("Image file exceeds %dMB", handlers.maxUploadMegabytes), map[string]any{
				detailsKeyField:    multipartFileFieldName,
				detailsKeyFilename: fileHeader.Filename,
			})
		}

		objectKey := mediastore.NewObjectKey(fileHeader.Filename, handlers.uploadPrefix)
		cdnURL, putErr := handlers.uploader.Upload(ctx, objectKey, content, contentType)
		if putErr != nil {
			handlers.logger.Error(logEventUploadImageFailed, zap.Error(putErr), zap.String(logFieldFilename, fileHeader.Filename))
			handlers.removeUploadedObjects(ctx, uploads)
			return nil, apperr.Internal(messageImageUploadFailed, map[string]any{detailsKeyFilename: fileHeader.Filename})
		}

		uploads = append(uploads, uploadedImage{objectKey: objectKey, cdnURL: cdnURL})
	}

	return uploads, nil
}

// removeUploadedObjects compensates for storage writes that can no longer be
// referenced by a database row. Best-effort: failures are logged only.
func (handlers *PostHandlers) removeUploadedObjects(ctx context.Context, uploads []uploadedImage) {
	for _, upload := range uploads {
		if removeErr := handlers.uploader.Remove(ctx, upload.objectKey); removeErr != nil {
			handlers.logger.Warn(logEventRemoveOrphanFailed, zap.Error(removeErr), zap.String(logFieldObjectKey, upload.objectKey))
		}
	}
}

// ListPosts returns every post with its images, newest first.
func (handlers *PostHandlers) ListPosts(requestContext *gin.Context) {
	posts, listErr := handlers.repository.ListPostsWithImages()
	if listErr != nil {
		respondError(requestContext, listErr)
		return
	}
	requestContext.JSON(http.StatusOK, gin.H{jsonKeyPosts: posts})
}

// TopCritical returns the most critical posts ranked by the criticality score.
func (handlers *PostHandlers) TopCritical(requestContext *gin.Context) {
	limit := ranking.DefaultTopCriticalLimit
	if rawLimit := strings.TrimSpace(requestContext.Query(queryParamLimit)); rawLimit != "" {
		parsedLimit, parseErr := strconv.Atoi(rawLimit)
		if parseErr != nil || parsedLimit <= 0 {
			respondError(requestContext, apperr.Invalid(messageInvalidLimit, map[string]any{
				detailsKeyField: queryParamLimit,
				detailsKeyValue: rawLimit,
			}))
			return
		}
		limit = parsedLimit
	}

	posts, listErr := handlers.repository.ListPostsWithImages()
	if listErr != nil {
		respondError(requestContext, listErr)
		return
	}
	requestContext.JSON(http.StatusOK, gin.H{jsonKeyPosts: ranking.TopCritical(posts, limit)})
}

// FilterPosts returns posts matching every provided predicate, ANDed together.
func (handlers *PostHandlers) FilterPosts(requestContext *gin.Context) {
	filter, filterErr := parsePostFilter(requestContext)
	if filterErr != nil {
		respondError(requestContext, filterErr)
		return
	}

	posts, listErr := handlers.repository.FilterPosts(filter)
	if listErr != nil {
		respondError(requestContext, listErr)
		return
	}
	requestContext.JSON(http.StatusOK, gin.H{jsonKeyPosts: posts})
}

// Stats returns the total post count and the counts per priority level.
func (handlers *PostHandlers) Stats(requestContext *gin.Context) {
	counts, countErr := handlers.repository.CountByPriority()
	if countErr != nil {
		respondError(requestContext, countErr)
		return
	}
	requestContext.JSON(http.StatusOK, counts)
}

func parsePostFilter(requestContext *gin.Context) (storage.PostFilter, *apperr.Error) {
	filter := storage.PostFilter{}

	textParameter := func(parameterName string) *string {
		value := strings.TrimSpace(requestContext.Query(parameterName))
		if value == "" {
			return nil
		}
		return &value
	}
	filter.District = textParameter(formFieldDistrict)
	filter.EmergencyType = textParameter(formFieldEmergencyType)
	filter.WaterLevel = textParameter(formFieldWaterLevel)

	booleanParameters := []struct {
		name        string
		destination **bool
	}{
		{formFieldIsMedicalNeeded, &filter.IsMedicalNeeded},
		{formFieldNeedFoods, &filter.NeedFoods},
		{formFieldNeedWater, &filter.NeedWater},
		{formFieldNeedTransport, &filter.NeedTransport},
		{formFieldNeedMedic, &filter.NeedMedic},
		{formFieldNeedPower, &filter.NeedPower},
		{formFieldNeedClothes, &filter.NeedClothes},
		{"is_verified", &filter.IsVerified},
	}
	for _, parameter := range booleanParameters {
		rawValue := strings.TrimSpace(requestContext.Query(parameter.name))
		if rawValue == "" {
			continue
		}
		parsedValue, parseErr := strconv.ParseBool(strings.ToLower(rawValue))
		if parseErr != nil {
			return storage.PostFilter{}, apperr.Invalid(messageInvalidFilterValue, map[string]any{
				detailsKeyField: parameter.name,
				detailsKeyValue: rawValue,
			})
		}
		*parameter.destination = &parsedValue
	}

	integerParameters := []struct {
		name        string
		destination **int
	}{
		{queryParamMinPeople, &filter.MinPeople},
		{queryParamMaxSafeHours, &filter.MaxSafeHours},
	}
	for _, parameter := range integerParameters {
		rawValue := strings.TrimSpace(requestContext.Query(parameter.name))
		if rawValue == "" {
			continue
		}
		parsedValue, parseErr := strconv.Atoi(rawValue)
		if parseErr != nil {
			return storage.PostFilter{}, apperr.Invalid(messageInvalidFilterValue, map[string]any{
				detailsKeyField: parameter.name,
				detailsKeyValue: rawValue,
			})
		}
		*parameter.destination = &parsedValue
	}

	if filter.Empty() {
		return storage.PostFilter{}, apperr.Invalid(messageEmptyFilterSet, map[string]any{"fields": filterParameterNames})
	}
	return filter, nil
}
