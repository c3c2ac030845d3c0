package storage

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ProjectRakawara/rescue_svc/internal/apperr"
	"github.com/ProjectRakawara/rescue_svc/internal/model"
)

const (
	logEventQueryPostsFailed = "query_posts_failed"
	logEventSavePostFailed   = "save_post_failed"
	logEventSaveImagesFailed = "save_images_failed"
	logEventVerifyPostFailed = "verify_post_failed"
	logEventDeletePostFailed = "delete_post_failed"
	logEventCountPostsFailed = "count_posts_failed"

	logFieldPostID       = "post_id"
	logFieldFilterColumn = "column"

	messageFetchPostsFailed = "Failed to fetch rescue posts"
	messageSavePostFailed   = "Failed to save rescue post"
	messageSaveImagesFailed = "Failed to save images"
	messageVerifyPostFailed = "Failed to verify rescue post"
	messageDeletePostFailed = "Failed to delete rescue post"
	messageFetchStatsFailed = "Failed to fetch post stats"
	messagePostNotFound     = "Rescue post not found"

	orderNewestFirst  = "created_at DESC"
	imagesAssociation = "Images"

	columnDistrict        = "district"
	columnEmergencyType   = "emergency_type"
	columnWaterLevel      = "water_level"
	columnIsMedicalNeeded = "is_medical_needed"
	columnNeedFoods       = "need_foods"
	columnNeedWater       = "need_water"
	columnNeedTransport   = "need_transport"
	columnNeedMedic       = "need_medic"
	columnNeedPower       = "need_power"
	columnNeedClothes     = "need_clothes"
	columnIsVerified      = "is_verified"
	columnPriorityLevel   = "priority_level"

	columnMinPeopleExpression = "number_of_people_to_rescue >= ?"
	columnMaxSafeHoursExpr    = "safe_hours <= ?"

	detailsKeyError  = "error"
	detailsKeyPostID = "post_id"
)

// PostFilter captures the optional AND-combined predicates for FilterPosts.
// Nil fields are omitted from the query.
type PostFilter struct {
	District        *string
	EmergencyType   *string
	WaterLevel      *string
	IsMedicalNeeded *bool
	NeedFoods       *bool
	NeedWater       *bool
	NeedTransport   *bool
	NeedMedic       *bool
	NeedPower       *bool
	NeedClothes     *bool
	IsVerified      *bool
	MinPeople       *int
	MaxSafeHours    *int
}

// Empty reports whether no predicate is set.
func (filter PostFilter) Empty() bool {
	return filter.District == nil &&
		filter.EmergencyType == nil &&
		filter.WaterLevel == nil &&
		filter.IsMedicalNeeded == nil &&
		filter.NeedFoods == nil &&
		filter.NeedWater == nil &&
		filter.NeedTransport == nil &&
		filter.NeedMedic == nil &&
		filter.NeedPower == nil &&
		filter.NeedClothes == nil &&
		filter.IsVerified == nil &&
		filter.MinPeople == nil &&
		filter.MaxSafeHours == nil
}

// PriorityCounts holds the post totals returned by the stats endpoint.
type PriorityCounts struct {
	TotalPosts          int64 `json:"total_posts"`
	HighPriorityPosts   int64 `json:"high_priority_posts"`
	MediumPriorityPosts int64 `json:"medium_priority_posts"`
	LowPriorityPosts    int64 `json:"low_priority_posts"`
}

// PostRepository exposes the typed persistence operations for rescue posts and
// their images. Every failure is returned as an *apperr.Error so the HTTP layer
// can serialize a uniform envelope.
type PostRepository interface {
	CreatePost(post *model.RescuePost) error
	CreateImages(images []model.RescueImage) error
	ListPostsWithImages() ([]model.RescuePost, error)
	ListPostsByDistrict(district string) ([]model.RescuePost, error)
	ListPostsByEmergencyType(emergencyType string) ([]model.RescuePost, error)
	ListPostsByWaterLevel(waterLevel string) ([]model.RescuePost, error)
	ListUnverifiedPosts() ([]model.RescuePost, error)
	FilterPosts(filter PostFilter) ([]model.RescuePost, error)
	CountByPriority() (PriorityCounts, error)
	VerifyPost(postID string) (model.RescuePost, error)
	DeletePost(postID string) error
}

type gormPostRepository struct {
	database *gorm.DB
	logger   *zap.Logger
}

// NewPostRepository creates the GORM-backed PostRepository.
func NewPostRepository(database *gorm.DB, logger *zap.Logger) PostRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &gormPostRepository{database: database, logger: logger}
}

func (repository *gormPostRepository) CreatePost(post *model.RescuePost) error {
	if createErr := repository.database.Create(post).Error; createErr != nil {
		repository.logger.Error(logEventSavePostFailed, zap.Error(createErr))
		return apperr.Internal(messageSavePostFailed, map[string]any{detailsKeyError: createErr.Error()})
	}
	return nil
}

func (repository *gormPostRepository) CreateImages(images []model.RescueImage) error {
	if len(images) == 0 {
		return nil
	}
	if createErr := repository.database.Create(&images).Error; createErr != nil {
		repository.logger.Error(logEventSaveImagesFailed, zap.Error(createErr))
		return apperr.Internal(messageSaveImagesFailed, map[string]any{detailsKeyError: createErr.Error()})
	}
	return nil
}

func (repository *gormPostRepository) ListPostsWithImages() ([]model.RescuePost, error) {
	var posts []model.RescuePost
	queryErr := repository.database.
		Preload(imagesAssociation).
		Order(orderNewestFirst).
		Find(&posts).Error
	if queryErr != nil {
		repository.logger.Error(logEventQueryPostsFailed, zap.Error(queryErr))
		return nil, apperr.Internal(messageFetchPostsFailed, map[string]any{detailsKeyError: queryErr.Error()})
	}
	return posts, nil
}

func (repository *gormPostRepository) ListPostsByDistrict(district string) ([]model.RescuePost, error) {
	return repository.listPostsByColumn(columnDistrict, district)
}

func (repository *gormPostRepository) ListPostsByEmergencyType(emergencyType string) ([]model.RescuePost, error) {
	return repository.listPostsByColumn(columnEmergencyType, emergencyType)
}

func (repository *gormPostRepository) ListPostsByWaterLevel(waterLevel string) ([]model.RescuePost, error) {
	return repository.listPostsByColumn(columnWaterLevel, waterLevel)
}

func (repository *gormPostRepository) ListUnverifiedPosts() ([]model.RescuePost, error) {
	return repository.listPostsByColumn(columnIsVerified, false)
}

func (repository *gormPostRepository) listPostsByColumn(column string, value any) ([]model.RescuePost, error) {
	var posts []model.RescuePost
	queryErr := repository.database.
		Preload(imagesAssociation).
		Where(map[string]any{column: value}).
		Order(orderNewestFirst).
		Find(&posts).Error
	if queryErr != nil {
		repository.logger.Error(logEventQueryPostsFailed, zap.Error(queryErr), zap.String(logFieldFilterColumn, column))
		return nil, apperr.Internal(messageFetchPostsFailed, map[string]any{
			detailsKeyError: queryErr.Error(),
			column:          value,
		})
	}
	return posts, nil
}

func (repository *gormPostRepository) FilterPosts(filter PostFilter) ([]model.RescuePost, error) {
	query := repository.database.Preload(imagesAssociation)

	equalityPredicates := map[string]any{}
	if filter.District != nil {
		equalityPredicates[columnDistrict] = *filter.District
	}
	if filter.EmergencyType != nil {
		equalityPredicates[columnEmergencyType] = *filter.EmergencyType
	}
	if filter.WaterLevel != nil {
		equalityPredicates[columnWaterLevel] = *filter.WaterLevel
	}
	if filter.IsMedicalNeeded != nil {
		equalityPredicates[columnIsMedicalNeeded] = *filter.IsMedicalNeeded
	}
	if filter.NeedFoods != nil {
		equalityPredicates[columnNeedFoods] = *filter.NeedFoods
	}
	if filter.NeedWater != nil {
		equalityPredicates[columnNeedWater] = *filter.NeedWater
	}
	if filter.NeedTransport != nil {
		equalityPredicates[columnNeedTransport] = *filter.NeedTransport
	}
	if filter.NeedMedic != nil {
		equalityPredicates[columnNeedMedic] = *filter.NeedMedic
	}
	if filter.NeedPower != nil {
		equalityPredicates[columnNeedPower] = *filter.NeedPower
	}
	if filter.NeedClothes != nil {
		equalityPredicates[columnNeedClothes] = *filter.NeedClothes
	}
	if filter.IsVerified != nil {
		equalityPredicates[columnIsVerified] = *filter.IsVerified
	}
	if len(equalityPredicates) > 0 {
		query = query.Where(equalityPredicates)
	}

	if filter.MinPeople != nil {
		query = query.Where(columnMinPeopleExpression, *filter.MinPeople)
	}
	if filter.MaxSafeHours != nil {
		query = query.Where(columnMaxSafeHoursExpr, *filter.MaxSafeHours)
	}

	var posts []model.RescuePost
	if queryErr := query.Order(orderNewestFirst).Find(&posts).Error; queryErr != nil {
		repository.logger.Error(logEventQueryPostsFailed, zap.Error(queryErr))
		return nil, apperr.Internal(messageFetchPostsFailed, map[string]any{detailsKeyError: queryErr.Error()})
	}
	return posts, nil
}

func (repository *gormPostRepository) CountByPriority() (PriorityCounts, error) {
	var counts PriorityCounts

	if countErr := repository.database.Model(&model.RescuePost{}).Count(&counts.TotalPosts).Error; countErr != nil {
		return PriorityCounts{}, repository.countError(countErr)
	}

	countForLevel := func(level string, destination *int64) error {
		return repository.database.Model(&model.RescuePost{}).
			Where(map[string]any{columnPriorityLevel: level}).
			Count(destination).Error
	}

	if countErr := countForLevel(model.PriorityLevelHigh, &counts.HighPriorityPosts); countErr != nil {
		return PriorityCounts{}, repository.countError(countErr)
	}
	if countErr := countForLevel(model.PriorityLevelMedium, &counts.MediumPriorityPosts); countErr != nil {
		return PriorityCounts{}, repository.countError(countErr)
	}
	if countErr := countForLevel(model.PriorityLevelLow, &counts.LowPriorityPosts); countErr != nil {
		return PriorityCounts{}, repository.countError(countErr)
	}

	return counts, nil
}

func (repository *gormPostRepository) countError(countErr error) *apperr.Error {
	repository.logger.Error(logEventCountPostsFailed, zap.Error(countErr))
	return apperr.Internal(messageFetchStatsFailed, map[string]any{detailsKeyError: countErr.Error()})
}

func (repository *gormPostRepository) VerifyPost(postID string) (model.RescuePost, error) {
	updateResult := repository.database.Model(&model.RescuePost{}).
		Where("id = ?", postID).
		Update(columnIsVerified, true)
	if updateResult.Error != nil {
		repository.logger.Error(logEventVerifyPostFailed, zap.Error(updateResult.Error), zap.String(logFieldPostID, postID))
		return model.RescuePost{}, apperr.Internal(messageVerifyPostFailed, map[string]any{
			detailsKeyError:  updateResult.Error.Error(),
			detailsKeyPostID: postID,
		})
	}
	if updateResult.RowsAffected == 0 {
		return model.RescuePost{}, apperr.NotFound(messagePostNotFound, map[string]any{detailsKeyPostID: postID})
	}

	var post model.RescuePost
	fetchErr := repository.database.Preload(imagesAssociation).First(&post, "id = ?", postID).Error
	if fetchErr != nil {
		repository.logger.Error(logEventVerifyPostFailed, zap.Error(fetchErr), zap.String(logFieldPostID, postID))
		return model.RescuePost{}, apperr.Internal(messageVerifyPostFailed, map[string]any{
			detailsKeyError:  fetchErr.Error(),
			detailsKeyPostID: postID,
		})
	}
	return post, nil
}

func (repository *gormPostRepository) DeletePost(postID string) error {
	return repository.database.Transaction(func(transaction *gorm.DB) error {
		if deleteImagesErr := transaction.Where("post_id = ?", postID).Delete(&model.RescueImage{}).Error; deleteImagesErr != nil {
			repository.logger.Error(logEventDeletePostFailed, zap.Error(deleteImagesErr), zap.String(logFieldPostID, postID))
			return apperr.Internal(messageDeletePostFailed, map[string]any{
				detailsKeyError:  deleteImagesErr.Error(),
				detailsKeyPostID: postID,
			})
		}

		deleteResult := transaction.Where("id = ?", postID).Delete(&model.RescuePost{})
		if deleteResult.Error != nil {
			repository.logger.Error(logEventDeletePostFailed, zap.Error(deleteResult.Error), zap.String(logFieldPostID, postID))
			return apperr.Internal(messageDeletePostFailed, map[string]any{
				detailsKeyError:  deleteResult.Error.Error(),
				detailsKeyPostID: postID,
			})
		}
		if deleteResult.RowsAffected == 0 {
			return apperr.NotFound(messagePostNotFound, map[string]any{detailsKeyPostID: postID})
		}
		return nil
	})
}
