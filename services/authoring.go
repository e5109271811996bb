package services

import (
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/formlab/survey-server/models"
)

// QuestionInput is one question in a submitted question set. Order is
// derived from array position, never taken from the client.
type QuestionInput struct {
	Text       string
	Type       models.QuestionType
	Options    []string
	Required   bool
	Validation map[string]interface{}
}

type SurveyInput struct {
	Title       string
	Description string
	Questions   []QuestionInput
	Settings    *models.SurveySettings
	ExpiresAt   *time.Time
}

// OwnedSurvey annotates a survey with its aggregated response counts for
// the creator's dashboard listing.
type OwnedSurvey struct {
	models.Survey
	TotalResponses int `json:"total_responses"`
	ResponseCount  int `json:"response_count"`
}

// AuthoringService owns the survey lifecycle: create, update, publish,
// delete, and the creator/viewer reads. All mutations require the creator's
// identity; multi-row writes run in a single transaction.
type AuthoringService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAuthoringService(db *gorm.DB) *AuthoringService {
	return &AuthoringService{db: db, now: time.Now}
}

// ListOwned returns every survey created by the identity, newest first,
// each annotated with total and completed response counts.
func (s *AuthoringService) ListOwned(identity *models.User) ([]OwnedSurvey, error) {
	if identity == nil {
		return nil, errf(KindUnauthenticated, "login required")
	}

	var surveys []models.Survey
	err := s.db.
		Where("creator_id = ?", identity.ID).
		Preload("Questions", questionOrder).
		Preload("Responses").
		Order("created_at DESC").
		Find(&surveys).Error
	if err != nil {
		return nil, storeErr(err)
	}

	owned := make([]OwnedSurvey, 0, len(surveys))
	for _, sv := range surveys {
		completed := 0
		for _, r := range sv.Responses {
			if r.IsComplete {
				completed++
			}
		}
		owned = append(owned, OwnedSurvey{
			Survey:         sv,
			TotalResponses: len(sv.Responses),
			ResponseCount:  completed,
		})
	}
	return owned, nil
}

// Create validates the input and writes the survey plus its question set
// atomically. If question insertion fails nothing is kept.
func (s *AuthoringService) Create(identity *models.User, in SurveyInput) (*models.Survey, error) {
	if identity == nil {
		return nil, errf(KindUnauthenticated, "login required")
	}
	if err := validateSurveyInput(&in); err != nil {
		return nil, err
	}

	settings := models.DefaultSurveySettings()
	if in.Settings != nil {
		settings = *in.Settings
	}

	survey := models.Survey{
		Title:       in.Title,
		Description: in.Description,
		CreatorID:   identity.ID,
		IsActive:    true,
		Settings:    settings,
		ExpiresAt:   in.ExpiresAt,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&survey).Error; err != nil {
			return err
		}
		return insertQuestions(tx, survey.ID, in.Questions)
	})
	if err != nil {
		return nil, storeErr(err)
	}

	return s.loadSurvey(survey.ID)
}

// Update rewrites the survey's scalar fields and replaces its question set
// wholesale: old questions are deleted and the new set inserted with order
// re-derived from array position. Question identity is not stable across
// edits.
func (s *AuthoringService) Update(identity *models.User, surveyID uuid.UUID, in SurveyInput) (*models.Survey, error) {
	if identity == nil {
		return nil, errf(KindUnauthenticated, "login required")
	}

	survey, err := s.loadSurvey(surveyID)
	if err != nil {
		return nil, err
	}
	if !CanWrite(identity, survey) {
		return nil, errf(KindForbidden, "not authorized to update this survey")
	}
	if err := validateSurveyInput(&in); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"title":       in.Title,
		"description": in.Description,
	}
	if in.Settings != nil {
		updates["settings"] = *in.Settings
	}
	if in.ExpiresAt != nil {
		updates["expires_at"] = in.ExpiresAt
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Survey{}).Where("id = ?", surveyID).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Where("survey_id = ?", surveyID).Delete(&models.Question{}).Error; err != nil {
			return err
		}
		return insertQuestions(tx, surveyID, in.Questions)
	})
	if err != nil {
		return nil, storeErr(err)
	}

	return s.loadSurvey(surveyID)
}

// SetPublished toggles visibility. Publishing stamps publishedAt;
// unpublishing clears it. Publishing an empty survey is allowed.
func (s *AuthoringService) SetPublished(identity *models.User, surveyID uuid.UUID, published bool) (*models.Survey, error) {
	if identity == nil {
		return nil, errf(KindUnauthenticated, "login required")
	}

	survey, err := s.loadSurvey(surveyID)
	if err != nil {
		return nil, err
	}
	if !CanWrite(identity, survey) {
		return nil, errf(KindForbidden, "not authorized to publish this survey")
	}

	var publishedAt *time.Time
	if published {
		t := s.now()
		publishedAt = &t
	}
	err = s.db.Model(&models.Survey{}).Where("id = ?", surveyID).Updates(map[string]interface{}{
		"is_published": published,
		"published_at": publishedAt,
	}).Error
	if err != nil {
		return nil, storeErr(err)
	}

	return s.loadSurvey(surveyID)
}

// Delete removes the survey together with its questions and responses in
// one transaction.
func (s *AuthoringService) Delete(identity *models.User, surveyID uuid.UUID) error {
	if identity == nil {
		return errf(KindUnauthenticated, "login required")
	}

	survey, err := s.loadSurvey(surveyID)
	if err != nil {
		return err
	}
	if !CanWrite(identity, survey) {
		return errf(KindForbidden, "not authorized to delete this survey")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("survey_id = ?", surveyID).Delete(&models.Response{}).Error; err != nil {
			return err
		}
		if err := tx.Where("survey_id = ?", surveyID).Delete(&models.Question{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Survey{}, "id = ?", surveyID).Error
	})
	if err != nil {
		return storeErr(err)
	}
	return nil
}

// GetForView loads a survey with its ordered questions and the creator's
// display name. Identity is optional: anonymous viewers see published
// surveys, the creator additionally sees unpublished ones.
func (s *AuthoringService) GetForView(identity *models.User, surveyID uuid.UUID) (*models.Survey, error) {
	var survey models.Survey
	err := s.db.
		Preload("Questions", questionOrder).
		Preload("Creator", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name") }).
		First(&survey, "id = ?", surveyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errf(KindNotFound, "survey not found")
	}
	if err != nil {
		return nil, storeErr(err)
	}

	if !CanRead(identity, &survey) {
		return nil, errf(KindForbidden, "survey not accessible")
	}
	return &survey, nil
}

func (s *AuthoringService) loadSurvey(id uuid.UUID) (*models.Survey, error) {
	var survey models.Survey
	err := s.db.Preload("Questions", questionOrder).First(&survey, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errf(KindNotFound, "survey not found")
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return &survey, nil
}

func questionOrder(db *gorm.DB) *gorm.DB {
	return db.Order("display_order ASC, id ASC")
}

func insertQuestions(tx *gorm.DB, surveyID uuid.UUID, questions []QuestionInput) error {
	if len(questions) == 0 {
		return nil
	}
	rows := make([]models.Question, 0, len(questions))
	for i, q := range questions {
		options := models.StringList{}
		if q.Type.HasOptions() {
			options = append(options, q.Options...)
		}
		validation := models.JSONMap{}
		for k, v := range q.Validation {
			validation[k] = v
		}
		rows = append(rows, models.Question{
			SurveyID:   surveyID,
			Text:       q.Text,
			Type:       q.Type,
			Options:    options,
			Required:   q.Required,
			Order:      i,
			Validation: validation,
		})
	}
	return tx.Create(&rows).Error
}

func validateSurveyInput(in *SurveyInput) error {
	if n := utf8.RuneCountInString(in.Title); n < 1 || n > 200 {
		return errf(KindInvalidInput, "title must be between 1 and 200 characters")
	}
	for i, q := range in.Questions {
		if q.Text == "" {
			return errf(KindInvalidInput, "question %d: text is required", i+1)
		}
		if !q.Type.Valid() {
			return errf(KindInvalidInput, "question %d: unknown type %q", i+1, string(q.Type))
		}
	}
	return nil
}
