package model

import "time"

// PriorityLevel values accepted on submission. The stored value is always
// lower-cased by validation before it reaches the database.
const (
	PriorityLevelHigh   = "high"
	PriorityLevelMedium = "medium"
	PriorityLevelLow    = "low"
)

// RescuePost is one citizen-submitted request for rescue assistance.
type RescuePost struct {
	ID                     string        `gorm:"primaryKey;size:36" json:"id"`
	FullName               string        `gorm:"not null;size:150" json:"full_name"`
	PhoneNumber            string        `gorm:"not null;size:15" json:"phone_number"`
	AltPhoneNumber         string        `gorm:"size:15" json:"alt_phone_number,omitempty"`
	Location               string        `gorm:"not null;size:255" json:"location"`
	LandMark               string        `gorm:"size:255" json:"land_mark,omitempty"`
	District               string        `gorm:"index;size:100" json:"district,omitempty"`
	EmergencyType          string        `gorm:"not null;index;size:100" json:"emergency_type"`
	PriorityLevel          string        `gorm:"not null;index;size:20" json:"priority_level"`
	NumberOfPeopleToRescue *int          `json:"number_of_peoples_to_rescue,omitempty"`
	IsMedicalNeeded        bool          `gorm:"not null;default:false" json:"is_medical_needed"`
	WaterLevel             string        `gorm:"index;size:50" json:"water_level,omitempty"`
	SafeHours              *int          `json:"safe_hours,omitempty"`
	NeedFoods              bool          `gorm:"not null;default:false" json:"need_foods"`
	NeedWater              bool          `gorm:"not null;default:false" json:"need_water"`
	NeedTransport          bool          `gorm:"not null;default:false" json:"need_transport"`
	NeedMedic              bool          `gorm:"not null;default:false" json:"need_medic"`
	NeedPower              bool          `gorm:"not null;default:false" json:"need_power"`
	NeedClothes            bool          `gorm:"not null;default:false" json:"need_clothes"`
	Description            string        `gorm:"size:2000" json:"description,omitempty"`
	LocationURL            string        `gorm:"not null;size:2048" json:"location_url"`
	IsVerified             bool          `gorm:"not null;default:false;index" json:"is_verified"`
	CreatedAt              time.Time     `gorm:"autoCreateTime" json:"created_at"`
	Images                 []RescueImage `gorm:"foreignKey:PostID" json:"images"`
}

// RescueImage is one uploaded photo owned by exactly one rescue post. It holds
// the public CDN URL returned by object storage, not the bytes.
type RescueImage struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PostID    string    `gorm:"index;not null;size:36" json:"post_id"`
	ImageURL  string    `gorm:"not null;size:2048" json:"image_url"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
