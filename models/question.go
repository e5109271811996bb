package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuestionType enumerates the fixed set of supported prompt kinds.
type QuestionType string

const (
	QuestionText     QuestionType = "text"
	QuestionTextarea QuestionType = "textarea"
	QuestionRadio    QuestionType = "radio"
	QuestionCheckbox QuestionType = "checkbox"
	QuestionSelect   QuestionType = "select"
	QuestionRating   QuestionType = "rating"
	QuestionDate     QuestionType = "date"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionText, QuestionTextarea, QuestionRadio, QuestionCheckbox,
		QuestionSelect, QuestionRating, QuestionDate:
		return true
	}
	return false
}

// HasOptions reports whether the type renders an option list. Other types
// ignore options and store an empty list.
func (t QuestionType) HasOptions() bool {
	switch t {
	case QuestionRadio, QuestionCheckbox, QuestionSelect:
		return true
	}
	return false
}

type Question struct {
	ID         uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	SurveyID   uuid.UUID    `gorm:"type:uuid;not null;index" json:"survey_id"`
	Text       string       `gorm:"type:text;not null" json:"text"`
	Type       QuestionType `gorm:"size:20;not null;default:'text'" json:"type"`
	Options    StringList   `gorm:"type:jsonb" json:"options"`
	Required   bool         `gorm:"not null;default:false" json:"required"`
	Order      int          `gorm:"column:display_order;not null;default:0" json:"order"`
	Validation JSONMap      `gorm:"type:jsonb" json:"validation"`
}

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}
