package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SurveySettings is a fixed-shape record kept in one jsonb column.
type SurveySettings struct {
	AllowAnonymous    bool `json:"allowAnonymous"`
	RequireLogin      bool `json:"requireLogin"`
	MultipleResponses bool `json:"multipleResponses"`
	ShowResults       bool `json:"showResults"`
}

func DefaultSurveySettings() SurveySettings {
	return SurveySettings{AllowAnonymous: true}
}

func (s SurveySettings) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *SurveySettings) Scan(src interface{}) error {
	return scanJSON(src, s)
}

type Survey struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string         `gorm:"size:200;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	CreatorID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"creator_id"`
	IsPublished bool           `gorm:"not null;default:false" json:"is_published"`
	IsActive    bool           `gorm:"not null;default:true" json:"is_active"`
	Settings    SurveySettings `gorm:"type:jsonb" json:"settings"`
	PublishedAt *time.Time     `json:"published_at"`
	ExpiresAt   *time.Time     `json:"expires_at"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`

	Creator   *User      `gorm:"foreignKey:CreatorID;references:ID" json:"-"`
	Questions []Question `gorm:"foreignKey:SurveyID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
	Responses []Response `gorm:"foreignKey:SurveyID;constraint:OnDelete:CASCADE" json:"-"`
}

func (s *Survey) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
