package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Response struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SurveyID     uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:uniq_survey_respondent" json:"survey_id"`
	RespondentID *uuid.UUID `gorm:"type:uuid;index" json:"respondent_id"`
	// RespondentKey is set only when the survey forbids multiple responses
	// and the submitter is trackable; the composite unique index then makes
	// the duplicate-submission guard atomic under concurrent submits.
	RespondentKey *string    `gorm:"size:128;uniqueIndex:uniq_survey_respondent" json:"-"`
	Answers       JSONMap    `gorm:"type:jsonb;not null" json:"answers"`
	IsComplete    bool       `gorm:"not null;default:false" json:"is_complete"`
	SubmittedAt   *time.Time `json:"submitted_at"`
	IPAddress     string     `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent     string     `gorm:"type:text" json:"user_agent,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`

	Respondent *Respondent `gorm:"foreignKey:RespondentID" json:"respondent,omitempty"`
}

func (r *Response) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
