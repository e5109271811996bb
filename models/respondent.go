package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Respondent is a loosely identified submitter. A fully anonymous response
// has no respondent at all.
type Respondent struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email     *string   `gorm:"size:100;index" json:"email"`
	Name      *string   `gorm:"size:100" json:"name"`
	Metadata  JSONMap   `gorm:"type:jsonb" json:"metadata"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Deleting a respondent does not cascade to responses; only survey
	// deletion removes them.
	Responses []Response `gorm:"foreignKey:RespondentID" json:"-"`
}

func (r *Respondent) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
