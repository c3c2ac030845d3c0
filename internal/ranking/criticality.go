package ranking

import (
	"sort"
	"strings"

	"github.com/ProjectRakawara/rescue_svc/internal/model"
)

// DefaultTopCriticalLimit is the number of posts returned when no limit is requested.
const DefaultTopCriticalLimit = 3

const (
	peopleCountCap           = 50
	peopleCountWeight        = 2.0
	medicalNeedBonus         = 10.0
	medicNeedBonus           = 6.0
	auxiliaryNeedBonus       = 2.0
	verifiedBonus            = 1.0
	safeHoursCriticalBonus   = 6.0
	safeHoursUrgentBonus     = 4.0
	safeHoursElevatedBonus   = 2.0
	safeHoursCriticalCeiling = 1
	safeHoursUrgentCeiling   = 4
	safeHoursElevatedCeiling = 12
)

// waterLevelSeverity maps the lower-cased water level tag to its score
// contribution. Unknown tags contribute nothing.
var waterLevelSeverity = map[string]float64{
	"head":     9,
	"neck":     8,
	"chest":    7,
	"shoulder": 6,
	"waist":    5,
	"knee":     3,
	"ankle":    1,
}

// Score computes the criticality score of a post; higher means more urgent.
func Score(post model.RescuePost) float64 {
	score := 0.0

	if post.NumberOfPeopleToRescue != nil {
		peopleCount := *post.NumberOfPeopleToRescue
		if peopleCount > peopleCountCap {
			peopleCount = peopleCountCap
		}
		score += float64(peopleCount) * peopleCountWeight
	}

	score += waterLevelSeverity[strings.ToLower(post.WaterLevel)]

	if post.IsMedicalNeeded {
		score += medicalNeedBonus
	}
	if post.NeedMedic {
		score += medicNeedBonus
	}

	auxiliaryNeeds := []bool{post.NeedFoods, post.NeedWater, post.NeedTransport, post.NeedPower, post.NeedClothes}
	for _, needed := range auxiliaryNeeds {
		if needed {
			score += auxiliaryNeedBonus
		}
	}

	if post.SafeHours != nil {
		switch {
		case *post.SafeHours <= safeHoursCriticalCeiling:
			score += safeHoursCriticalBonus
		case *post.SafeHours <= safeHoursUrgentCeiling:
			score += safeHoursUrgentBonus
		case *post.SafeHours <= safeHoursElevatedCeiling:
			score += safeHoursElevatedBonus
		}
	}

	if post.IsVerified {
		score += verifiedBonus
	}

	return score
}

// TieBreak orders equally scored posts: earlier submissions rank first, so the
// secondary key is the negated creation epoch. A zero timestamp is neutral.
func TieBreak(post model.RescuePost) float64 {
	if post.CreatedAt.IsZero() {
		return 0
	}
	return -float64(post.CreatedAt.Unix())
}

// TopCritical returns the limit most critical posts, sorted descending by
// (score, tiebreak). The input slice is not modified.
func TopCritical(posts []model.RescuePost, limit int) []model.RescuePost {
	if limit <= 0 {
		limit = DefaultTopCriticalLimit
	}

	ranked := make([]model.RescuePost, len(posts))
	copy(ranked, posts)

	sort.SliceStable(ranked, func(firstIndex, secondIndex int) bool {
		firstScore := Score(ranked[firstIndex])
		secondScore := Score(ranked[secondIndex])
		if firstScore != secondScore {
			return firstScore > secondScore
		}
		return TieBreak(ranked[firstIndex]) > TieBreak(ranked[secondIndex])
	})

	if limit > len(ranked) {
		limit = len(ranked)
	}
	return ranked[:limit]
}
