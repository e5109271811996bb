package services

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/formlab/survey-server/models"
)

// publishedSurvey builds and publishes a one-question survey with the given
// settings and returns it with its question set loaded.
func publishedSurvey(t *testing.T, db *gorm.DB, creator *models.User, settings models.SurveySettings) *models.Survey {
	t.Helper()

	authoring := NewAuthoringService(db)
	survey, err := authoring.Create(creator, SurveyInput{
		Title: "Satisfaction",
		Questions: []QuestionInput{
			{Text: "Rate us", Type: models.QuestionRating, Required: true},
			{Text: "Anything else?", Type: models.QuestionText},
		},
		Settings: &settings,
	})
	if err != nil {
		t.Fatalf("create survey: %v", err)
	}
	survey, err = authoring.SetPublished(creator, survey.ID, true)
	if err != nil {
		t.Fatalf("publish survey: %v", err)
	}
	return survey
}

func answersFor(survey *models.Survey, rating interface{}) map[string]interface{} {
	return map[string]interface{}{
		survey.Questions[0].ID.String(): rating,
	}
}

func TestSubmitAnonymous(t *testing.T) {
	db := openTestDB(t)
	svc := NewResponseService(db)
	creator := createUser(t, db, "Alice", "alice@example.com")
	survey := publishedSurvey(t, db, creator, models.DefaultSurveySettings())

	submitted := time.Date(2026, 4, 2, 10, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return submitted }

	resp, err := svc.Submit(nil, survey.ID, answersFor(survey, 5), ClientMeta{IPAddress: "203.0.113.7", UserAgent: "go-test"}, nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !resp.IsComplete {
		t.Errorf("response not marked complete")
	}
	if resp.SubmittedAt == nil || !resp.SubmittedAt.Equal(submitted) {
		t.Errorf("submittedAt = %v, want %v", resp.SubmittedAt, submitted)
	}
	if resp.RespondentID != nil {
		t.Errorf("fully anonymous submission should have no respondent")
	}
	if resp.IPAddress != "203.0.113.7" || resp.UserAgent != "go-test" {
		t.Errorf("client meta not stamped: %+v", resp)
	}

	var stored models.Response
	if err := db.First(&stored, "id = ?", resp.ID).Error; err != nil {
		t.Fatalf("reload response: %v", err)
	}
	if v, ok := stored.Answers[survey.Questions[0].ID.String()]; !ok || v == nil {
		t.Errorf("answers not persisted: %v", stored.Answers)
	}
}

func TestSubmitMissingSurvey(t *testing.T) {
	db := openTestDB(t)
	svc := NewResponseService(db)

	_, err := svc.Submit(nil, uuid.New(), map[string]interface{}{}, ClientMeta{}, nil)
	if KindOf(err) != KindNotFound {
		t.Fatalf("got %v, want NotFound", err)
	}
}

func TestSubmitUnpublished(t *testing.T) {
	db := openTestDB(t)
	svc := NewResponseService(db)
	authoring := NewAuthoringService(db)
	creator := createUser(t, db, "Alice", "alice@example.com")

	survey, err := authoring.Create(creator, SurveyInput{
		Title:     "Draft",
		Questions: []QuestionInput{{Text: "q", Type: models.QuestionText}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Submit(nil, survey.ID, map[string]interface{}{}, ClientMeta{}, nil)
	if KindOf(err) != KindForbidden {
		t.Fatalf("got %v, want Forbidden", err)
	}
}

func TestSubmitRequireLogin(t *testing.T) {
	db := openTestDB(t)
	svc := NewResponseService(db)
	creator := createUser(t, db, "Alice", "alice@example.com")
	survey := publishedSurvey(t, db, creator, models.SurveySettings{
		AllowAnonymous: true,
		RequireLogin:   true,
	})

	if _, err := svc.Submit(nil, survey.ID, answersFor(survey, 4), ClientMeta{}, nil); KindOf(err) != KindForbidden {
		t.Fatalf("anonymous: got %v, want Forbidden", err)
	}

	respondent := createUser(t, db, "Carol", "carol@example.com")
	if _, err := svc.Submit(respondent, survey.ID, answersFor(survey, 4), ClientMeta{}, nil); err != nil {
		t.Fatalf("authenticated: %v", err)
	}
}

func TestSubmitAnonymousDisallowed(t *testing.T) {
	db := openTestDB(t)
	svc := NewResponseService(db)
	creator := createUser(t, db, "Alice", "alice@example.com")
	survey := publishedSurvey(t, db, creator, models.SurveySettings{AllowAnonymous: false})

	if _, err := svc.Submit(nil, survey.ID, answersFor(survey, 4), ClientMeta{}, nil); KindOf(err) != KindForbidden {
		t.Fatalf("got %v, want Forbidden", err)
	}
}

func TestSubmitUnknownAnswerKey(t *testing.T) {
	db := openTestDB(t)
	svc := NewResponseService(db)
	creator := createUser(t, db, "Alice", "alice@example.com")
	survey := publishedSurvey(t, db, creator, models.DefaultSurveySettings())

	answers := answersFor(survey, 3)
	answers[uuid.New().String()] = "stray"

	_, err := svc.Submit(nil, survey.ID, answers, ClientMeta{}, nil)
	if KindOf(err) != KindInvalidInput {
		t.Fatalf("got %v, want InvalidInput", err)
	}
}

func TestSubmitMissingRequiredNamesQuestion(t *testing.T) {
	db := openTestDB(t)
	svc := NewResponseService(db)
	creator := createUser(t, db, "Alice", "alice@example.com")
	survey := publishedSurvey(t, db, creator, models.DefaultSurveySettings())

	// only the optional question answered
	answers := map[string]interface{}{
		survey.Questions[1].ID.String(): "lovely product",
	}

	_, err := svc.Submit(nil, survey.ID, answers, ClientMeta{}, nil)
	if KindOf(err) != KindInvalidInput {
		t.Fatalf("got %v, want InvalidInput", err)
	}
	if !strings.Contains(err.Error(), "Rate us") {
		t.Errorf("error does not name the offending question: %v", err)
	}

	// blank strings do not satisfy required either
	answers[survey.Questions[0].ID.String()] = "   "
	if _, err := svc.Submit(nil, survey.ID, answers, ClientMeta{}, nil); KindOf(err) != KindInvalidInput {
		t.Fatalf("blank answer: got %v, want InvalidInput", err)
	}
}

func TestSubmitDuplicateForbidden(t *testing.T) {
	db := openTestDB(t)
	svc := NewResponseService(db)
	creator := createUser(t, db, "Alice", "alice@example.com")
	survey := publishedSurvey(t, db, creator, models.DefaultSurveySettings()) // multipleResponses false

	submitter := createUser(t, db, "Carol", "carol@example.com")
	if _, err := svc.Submit(submitter, survey.ID, answersFor(survey, 5), ClientMeta{}, nil); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := svc.Submit(submitter, survey.ID, answersFor(survey, 1), ClientMeta{}, nil); KindOf(err) != KindForbidden {
		t.Fatalf("second submit: got %v, want Forbidden", err)
	}

	// same guard for a respondent identified only by email
	info := &RespondentInfo{Email: "dave@example.com", Name: "Dave"}
	if _, err := svc.Submit(nil, survey.ID, answersFor(survey, 5), ClientMeta{}, info); err != nil {
		t.Fatalf("first email submit: %v", err)
	}
	if _, err := svc.Submit(nil, survey.ID, answersFor(survey, 2), ClientMeta{}, info); KindOf(err) != KindForbidden {
		t.Fatalf("second email submit: got %v, want Forbidden", err)
	}
}

func TestSubmitMultipleResponsesAllowed(t *testing.T) {
	db := openTestDB(t)
	svc := NewResponseService(db)
	creator := createUser(t, db, "Alice", "alice@example.com")
	survey := publishedSurvey(t, db, creator, models.SurveySettings{
		AllowAnonymous:    true,
		MultipleResponses: true,
	})

	submitter := createUser(t, db, "Carol", "carol@example.com")
	for i := 0; i < 3; i++ {
		if _, err := svc.Submit(submitter, survey.ID, answersFor(survey, i+1), ClientMeta{}, nil); err != nil {
			t.Fatalf("submit %d: %v", i+1, err)
		}
	}

	var count int64
	db.Model(&models.Response{}).Where("survey_id = ?", survey.ID).Count(&count)
	if count != 3 {
		t.Errorf("got %d responses, want 3", count)
	}
}

func TestRespondentCreatedLazilyAndReused(t *testing.T) {
	db := openTestDB(t)
	svc := NewResponseService(db)
	creator := createUser(t, db, "Alice", "alice@example.com")
	survey := publishedSurvey(t, db, creator, models.SurveySettings{
		AllowAnonymous:    true,
		MultipleResponses: true,
	})

	info := &RespondentInfo{Email: "dave@example.com", Name: "Dave"}
	first, err := svc.Submit(nil, survey.ID, answersFor(survey, 5), ClientMeta{}, info)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if first.RespondentID == nil {
		t.Fatalf("respondent not created from supplied info")
	}

	second, err := svc.Submit(nil, survey.ID, answersFor(survey, 3), ClientMeta{}, info)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if second.RespondentID == nil || *second.RespondentID != *first.RespondentID {
		t.Errorf("respondent not reused across submissions")
	}

	var respondents int64
	db.Model(&models.Respondent{}).Count(&respondents)
	if respondents != 1 {
		t.Errorf("got %d respondents, want 1", respondents)
	}
}

func TestSubmitFailureLeavesNoWrites(t *testing.T) {
	db := openTestDB(t)
	svc := NewResponseService(db)
	creator := createUser(t, db, "Alice", "alice@example.com")
	survey := publishedSurvey(t, db, creator, models.DefaultSurveySettings())

	// required answer missing: the lazily created respondent must roll back
	info := &RespondentInfo{Email: "eve@example.com"}
	_, err := svc.Submit(nil, survey.ID, map[string]interface{}{}, ClientMeta{}, info)
	if KindOf(err) != KindInvalidInput {
		t.Fatalf("got %v, want InvalidInput", err)
	}

	var respondents, responses int64
	db.Model(&models.Respondent{}).Count(&respondents)
	db.Model(&models.Response{}).Count(&responses)
	if respondents != 0 || responses != 0 {
		t.Errorf("failed submit committed writes: %d respondents, %d responses", respondents, responses)
	}
}

func TestListForSurveyOwnerOnly(t *testing.T) {
	db := openTestDB(t)
	svc := NewResponseService(db)
	creator := createUser(t, db, "Alice", "alice@example.com")
	intruder := createUser(t, db, "Bob", "bob@example.com")
	survey := publishedSurvey(t, db, creator, models.DefaultSurveySettings())

	if _, err := svc.Submit(nil, survey.ID, answersFor(survey, 4), ClientMeta{}, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := svc.ListForSurvey(nil, survey.ID); KindOf(err) != KindUnauthenticated {
		t.Errorf("anonymous: got %v, want Unauthenticated", err)
	}
	if _, err := svc.ListForSurvey(intruder, survey.ID); KindOf(err) != KindForbidden {
		t.Errorf("non-owner: got %v, want Forbidden", err)
	}

	responses, err := svc.ListForSurvey(creator, survey.ID)
	if err != nil {
		t.Fatalf("owner: %v", err)
	}
	if len(responses) != 1 {
		t.Errorf("got %d responses, want 1", len(responses))
	}
}

// End-to-end shape of the creator workflow: author, publish, collect,
// then read the aggregated counts.
func TestCreatorWorkflow(t *testing.T) {
	db := openTestDB(t)
	authoring := NewAuthoringService(db)
	collection := NewResponseService(db)
	creator := createUser(t, db, "U1", "u1@example.com")

	survey, err := authoring.Create(creator, SurveyInput{
		Title:     "Satisfaction",
		Questions: []QuestionInput{{Text: "Rate us", Type: models.QuestionRating, Required: true}},
		Settings:  &models.SurveySettings{AllowAnonymous: true},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(survey.Questions) != 1 || survey.Questions[0].Order != 0 {
		t.Fatalf("unexpected question set: %+v", survey.Questions)
	}

	survey, err = authoring.SetPublished(creator, survey.ID, true)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !survey.IsPublished || survey.PublishedAt == nil {
		t.Fatalf("publish state not stamped: %+v", survey)
	}

	resp, err := collection.Submit(nil, survey.ID, map[string]interface{}{
		survey.Questions[0].ID.String(): 5,
	}, ClientMeta{}, nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !resp.IsComplete {
		t.Fatalf("response not complete")
	}

	owned, err := authoring.ListOwned(creator)
	if err != nil {
		t.Fatalf("listOwned: %v", err)
	}
	if len(owned) != 1 || owned[0].TotalResponses != 1 || owned[0].ResponseCount != 1 {
		t.Fatalf("unexpected listing: %+v", owned)
	}
}
