package httpapi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ProjectRakawara/rescue_svc/internal/apperr"
	"github.com/ProjectRakawara/rescue_svc/internal/model"
)

const (
	formFieldFullName        = "full_name"
	formFieldPhoneNumber     = "phone_number"
	formFieldAltPhoneNumber  = "alt_phone_number"
	formFieldLocation        = "location"
	formFieldLandMark        = "land_mark"
	formFieldDistrict        = "district"
	formFieldEmergencyType   = "emergency_type"
	formFieldPriorityLevel   = "priority_level"
	formFieldPeopleToRescue  = "number_of_peoples_to_rescue"
	formFieldPeopleAlias     = "number_of_peoples"
	formFieldIsMedicalNeeded = "is_medical_needed"
	formFieldWaterLevel      = "water_level"
	formFieldSafeHours       = "safe_hours"
	formFieldNeedFoods       = "need_foods"
	formFieldNeedWater       = "need_water"
	formFieldNeedTransport   = "need_transport"
	formFieldNeedMedic       = "need_medic"
	formFieldNeedPower       = "need_power"
	formFieldNeedClothes     = "need_clothes"
	formFieldDescription     = "description"
	formFieldLocationURL     = "location_url"

	messageInvalidSubmission = "Invalid rescue post data"

	minPhoneDigits    = 7
	maxPhoneDigits    = 15
	minPeopleToRescue = 1
	maxPeopleToRescue = 10000
	minSafeHours      = 0
	maxSafeHours      = 1000

	urlSchemeHTTP  = "http://"
	urlSchemeHTTPS = "https://"
)

type fieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// submissionValidator accumulates every field violation so the caller sees all
// offending fields in one response instead of just the first.
type submissionValidator struct {
	violations []fieldViolation
}

func (validator *submissionValidator) addViolation(fieldName string, message string) {
	validator.violations = append(validator.violations, fieldViolation{Field: fieldName, Message: message})
}

func (validator *submissionValidator) invalidSubmissionError() *apperr.Error {
	return apperr.Invalid(messageInvalidSubmission, map[string]any{"errors": validator.violations})
}

// parseSubmission normalizes raw form fields into a typed rescue post. On
// failure it returns a single caller-input error enumerating every violation.
func parseSubmission(requestContext *gin.Context) (model.RescuePost, *apperr.Error) {
	validator := &submissionValidator{}

	post := model.RescuePost{
		FullName:      validator.requiredText(requestContext, formFieldFullName, 3, 150),
		PhoneNumber:   validator.phoneDigits(requestContext.PostForm(formFieldPhoneNumber), formFieldPhoneNumber, true),
		Location:      validator.requiredText(requestContext, formFieldLocation, 3, 255),
		LandMark:      validator.optionalText(requestContext, formFieldLandMark, 255),
		District:      validator.optionalText(requestContext, formFieldDistrict, 100),
		EmergencyType: validator.requiredText(requestContext, formFieldEmergencyType, 3, 100),
		PriorityLevel: validator.priorityLevel(requestContext.PostForm(formFieldPriorityLevel)),
		WaterLevel:    validator.optionalText(requestContext, formFieldWaterLevel, 50),
		Description:   validator.optionalText(requestContext, formFieldDescription, 2000),
		LocationURL:   validator.locationURL(requestContext.PostForm(formFieldLocationURL)),
	}

	post.AltPhoneNumber = validator.phoneDigits(requestContext.PostForm(formFieldAltPhoneNumber), formFieldAltPhoneNumber, false)

	peopleRaw := strings.TrimSpace(requestContext.PostForm(formFieldPeopleToRescue))
	if peopleRaw == "" {
		peopleRaw = strings.TrimSpace(requestContext.PostForm(formFieldPeopleAlias))
	}
	post.NumberOfPeopleToRescue = validator.optionalBoundedInt(peopleRaw, formFieldPeopleToRescue, minPeopleToRescue, maxPeopleToRescue)
	post.SafeHours = validator.optionalBoundedInt(strings.TrimSpace(requestContext.PostForm(formFieldSafeHours)), formFieldSafeHours, minSafeHours, maxSafeHours)

	post.IsMedicalNeeded = validator.booleanFlag(requestContext, formFieldIsMedicalNeeded)
	post.NeedFoods = validator.booleanFlag(requestContext, formFieldNeedFoods)
	post.NeedWater = validator.booleanFlag(requestContext, formFieldNeedWater)
	post.NeedTransport = validator.booleanFlag(requestContext, formFieldNeedTransport)
	post.NeedMedic = validator.booleanFlag(requestContext, formFieldNeedMedic)
	post.NeedPower = validator.booleanFlag(requestContext, formFieldNeedPower)
	post.NeedClothes = validator.booleanFlag(requestContext, formFieldNeedClothes)

	if len(validator.violations) > 0 {
		return model.RescuePost{}, validator.invalidSubmissionError()
	}
	return post, nil
}

func (validator *submissionValidator) requiredText(requestContext *gin.Context, fieldName string, minLength int, maxLength int) string {
	value := strings.TrimSpace(requestContext.PostForm(fieldName))
	if len(value) < minLength {
		validator.addViolation(fieldName, fmt.Sprintf("Must be at least %d characters long", minLength))
		return ""
	}
	if len(value) > maxLength {
		validator.addViolation(fieldName, fmt.Sprintf("Must be at most %d characters long", maxLength))
		return ""
	}
	return value
}

func (validator *submissionValidator) optionalText(requestContext *gin.Context, fieldName string, maxLength int) string {
	value := strings.TrimSpace(requestContext.PostForm(fieldName))
	if value == "" {
		return ""
	}
	if len(value) > maxLength {
		validator.addViolation(fieldName, fmt.Sprintf("Must be at most %d characters long", maxLength))
		return ""
	}
	return value
}

func (validator *submissionValidator) phoneDigits(rawValue string, fieldName string, required bool) string {
	trimmed := strings.TrimSpace(rawValue)
	if trimmed == "" {
		if required {
			validator.addViolation(fieldName, fmt.Sprintf("%s must have %d-%d digits", fieldTitle(fieldName), minPhoneDigits, maxPhoneDigits))
		}
		return ""
	}

	digitsBuilder := &strings.Builder{}
	for _, character := range trimmed {
		if character >= '0' && character <= '9' {
			digitsBuilder.WriteRune(character)
		}
	}
	digits := digitsBuilder.String()
	if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		validator.addViolation(fieldName, fmt.Sprintf("%s must have %d-%d digits", fieldTitle(fieldName), minPhoneDigits, maxPhoneDigits))
		return ""
	}
	return digits
}

func (validator *submissionValidator) priorityLevel(rawValue string) string {
	normalized := strings.ToLower(strings.TrimSpace(rawValue))
	switch normalized {
	case model.PriorityLevelHigh, model.PriorityLevelMedium, model.PriorityLevelLow:
		return normalized
	default:
		validator.addViolation(formFieldPriorityLevel, "Priority level must be one of high, medium, or low")
		return ""
	}
}

func (validator *submissionValidator) locationURL(rawValue string) string {
	trimmed := strings.TrimSpace(rawValue)
	if trimmed == "" {
		validator.addViolation(formFieldLocationURL, fmt.Sprintf("%s is required", fieldTitle(formFieldLocationURL)))
		return ""
	}
	if len(trimmed) < 5 || len(trimmed) > 2048 {
		validator.addViolation(formFieldLocationURL, "Must be between 5 and 2048 characters long")
		return ""
	}
	if !strings.HasPrefix(trimmed, urlSchemeHTTP) && !strings.HasPrefix(trimmed, urlSchemeHTTPS) {
		validator.addViolation(formFieldLocationURL, fmt.Sprintf("%s must start with http:// or https://", fieldTitle(formFieldLocationURL)))
		return ""
	}
	return trimmed
}

func (validator *submissionValidator) optionalBoundedInt(rawValue string, fieldName string, minimum int, maximum int) *int {
	if rawValue == "" {
		return nil
	}
	parsed, parseErr := strconv.Atoi(rawValue)
	if parseErr != nil {
		validator.addViolation(fieldName, "Must be an integer")
		return nil
	}
	if parsed < minimum {
		validator.addViolation(fieldName, fmt.Sprintf("Must be greater than or equal to %d", minimum))
		return nil
	}
	if parsed > maximum {
		validator.addViolation(fieldName, fmt.Sprintf("Must be less than or equal to %d", maximum))
		return nil
	}
	return &parsed
}

func (validator *submissionValidator) booleanFlag(requestContext *gin.Context, fieldName string) bool {
	rawValue := strings.TrimSpace(requestContext.PostForm(fieldName))
	if rawValue == "" {
		return false
	}
	parsed, parseErr := strconv.ParseBool(strings.ToLower(rawValue))
	if parseErr != nil {
		validator.addViolation(fieldName, "Must be a boolean")
		return false
	}
	return parsed
}

// fieldTitle renders a form field name as a human-readable label, matching the
// wording of the validation messages consumers already display.
func fieldTitle(fieldName string) string {
	words := strings.Split(fieldName, "_")
	for wordIndex, word := range words {
		if word == "" {
			continue
		}
		if wordIndex == 0 {
			words[wordIndex] = strings.ToUpper(word[:1]) + word[1:]
			continue
		}
		words[wordIndex] = word
	}
	return strings.Join(words, " ")
}
