package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/formlab/survey-server/models"
)

// ClientMeta carries the transport-level details stamped onto a response.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

// RespondentInfo is optional self-identification supplied by the submitter.
type RespondentInfo struct {
	Email string
	Name  string
}

// ResponseService accepts response submissions, validating them against the
// survey's live question schema and its access settings.
type ResponseService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewResponseService(db *gorm.DB) *ResponseService {
	return &ResponseService{db: db, now: time.Now}
}

// Submit runs the collection pipeline: publish and settings gates, the
// duplicate-submission guard, answer-schema validation, lazy respondent
// resolution, then the insert. Everything runs in one transaction so a
// failure at any step leaves no partial writes.
func (s *ResponseService) Submit(identity *models.User, surveyID uuid.UUID, answers map[string]interface{}, meta ClientMeta, info *RespondentInfo) (*models.Response, error) {
	var response *models.Response

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		var survey models.Survey
		err := tx.Preload("Questions", questionOrder).First(&survey, "id = ?", surveyID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errf(KindNotFound, "survey not found")
		}
		if err != nil {
			return err
		}

		if !survey.IsPublished {
			return errf(KindForbidden, "survey is not accepting responses")
		}
		if survey.Settings.RequireLogin && identity == nil {
			return errf(KindForbidden, "survey requires login")
		}
		if !survey.Settings.AllowAnonymous && identity == nil {
			return errf(KindForbidden, "anonymous responses are not allowed")
		}

		respondent, err := resolveRespondent(tx, identity, info)
		if err != nil {
			return err
		}

		var respondentKey *string
		if !survey.Settings.MultipleResponses && respondent != nil {
			key := "respondent:" + respondent.ID.String()
			respondentKey = &key

			var count int64
			err = tx.Model(&models.Response{}).
				Where("survey_id = ? AND respondent_key = ? AND is_complete = ?", surveyID, key, true).
				Count(&count).Error
			if err != nil {
				return err
			}
			if count > 0 {
				return errf(KindForbidden, "a response has already been submitted for this survey")
			}
		}

		if err := validateAnswers(&survey, answers); err != nil {
			return err
		}

		now := s.now()
		r := models.Response{
			SurveyID:      surveyID,
			RespondentKey: respondentKey,
			Answers:       copyAnswers(answers),
			IsComplete:    true,
			SubmittedAt:   &now,
			IPAddress:     meta.IPAddress,
			UserAgent:     meta.UserAgent,
		}
		if respondent != nil {
			r.RespondentID = &respondent.ID
		}
		if err := tx.Create(&r).Error; err != nil {
			return err
		}

		response = &r
		return nil
	})

	if txErr != nil {
		var svcErr *Error
		if errors.As(txErr, &svcErr) {
			return nil, svcErr
		}
		// A concurrent submit that lost the race against the unique index
		// is the same business outcome as the pre-check firing.
		if errors.Is(txErr, gorm.ErrDuplicatedKey) {
			return nil, errf(KindForbidden, "a response has already been submitted for this survey")
		}
		return nil, storeErr(txErr)
	}
	return response, nil
}

// ListForSurvey returns a survey's responses for its creator, newest first.
func (s *ResponseService) ListForSurvey(identity *models.User, surveyID uuid.UUID) ([]models.Response, error) {
	if identity == nil {
		return nil, errf(KindUnauthenticated, "login required")
	}

	var survey models.Survey
	err := s.db.First(&survey, "id = ?", surveyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errf(KindNotFound, "survey not found")
	}
	if err != nil {
		return nil, storeErr(err)
	}
	if !CanWrite(identity, &survey) {
		return nil, errf(KindForbidden, "not authorized to view responses for this survey")
	}

	var responses []models.Response
	err = s.db.
		Where("survey_id = ?", surveyID).
		Preload("Respondent").
		Order("submitted_at DESC, created_at DESC").
		Find(&responses).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return responses, nil
}

// resolveRespondent maps an authenticated identity to a respondent by
// account email, or falls back to the supplied respondent info. Fully
// anonymous submissions get no respondent. Creation happens lazily inside
// the submit transaction, so a failed submission leaves none behind.
func resolveRespondent(tx *gorm.DB, identity *models.User, info *RespondentInfo) (*models.Respondent, error) {
	email := ""
	name := ""
	if identity != nil {
		email = identity.Email
		name = identity.Name
	} else if info != nil {
		email = strings.TrimSpace(info.Email)
		name = strings.TrimSpace(info.Name)
	}
	if email == "" && name == "" {
		return nil, nil
	}

	if email != "" {
		var existing models.Respondent
		err := tx.First(&existing, "email = ?", email).Error
		if err == nil {
			return &existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	respondent := models.Respondent{Metadata: models.JSONMap{}}
	if email != "" {
		respondent.Email = &email
	}
	if name != "" {
		respondent.Name = &name
	}
	if err := tx.Create(&respondent).Error; err != nil {
		return nil, err
	}
	return &respondent, nil
}

// validateAnswers checks the answer map against the survey's current
// question set: no unknown keys, and every required question answered.
func validateAnswers(survey *models.Survey, answers map[string]interface{}) error {
	known := make(map[string]*models.Question, len(survey.Questions))
	for i := range survey.Questions {
		q := &survey.Questions[i]
		known[q.ID.String()] = q
	}

	for key := range answers {
		if _, ok := known[key]; !ok {
			return errf(KindInvalidInput, "answer references unknown question %q", key)
		}
	}

	for _, q := range survey.Questions {
		if !q.Required {
			continue
		}
		value, ok := answers[q.ID.String()]
		if !ok || isEmptyAnswer(value) {
			return errf(KindInvalidInput, "question %q is required", q.Text)
		}
	}
	return nil
}

func isEmptyAnswer(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []interface{}:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}

func copyAnswers(answers map[string]interface{}) models.JSONMap {
	out := models.JSONMap{}
	for k, v := range answers {
		out[k] = v
	}
	return out
}
