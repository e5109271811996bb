package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/formlab/survey-server/middleware"
	"github.com/formlab/survey-server/models"
	"github.com/formlab/survey-server/services"
)

type SurveyController struct {
	Service *services.AuthoringService
}

type questionReq struct {
	Text       string                 `json:"text" binding:"required"`
	Type       string                 `json:"type" binding:"required"`
	Options    []string               `json:"options"`
	Required   bool                   `json:"required"`
	Validation map[string]interface{} `json:"validation"`
}

type surveyReq struct {
	Title       string                 `json:"title" binding:"required,min=1,max=200"`
	Description string                 `json:"description"`
	Questions   []questionReq          `json:"questions"`
	Settings    *models.SurveySettings `json:"settings"`
	ExpiresAt   *time.Time             `json:"expires_at"`
}

func (r *surveyReq) toInput() services.SurveyInput {
	questions := make([]services.QuestionInput, 0, len(r.Questions))
	for _, q := range r.Questions {
		questions = append(questions, services.QuestionInput{
			Text:       q.Text,
			Type:       models.QuestionType(q.Type),
			Options:    q.Options,
			Required:   q.Required,
			Validation: q.Validation,
		})
	}
	return services.SurveyInput{
		Title:       r.Title,
		Description: r.Description,
		Questions:   questions,
		Settings:    r.Settings,
		ExpiresAt:   r.ExpiresAt,
	}
}

// GET /api/surveys
func (s *SurveyController) List(c *gin.Context) {
	surveys, err := s.Service.ListOwned(middleware.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"surveys": surveys})
}

// POST /api/surveys
func (s *SurveyController) Create(c *gin.Context) {
	var req surveyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	survey, err := s.Service.Create(middleware.CurrentUser(c), req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"survey": survey})
}

// PUT /api/surveys/:id
func (s *SurveyController) Update(c *gin.Context) {
	id, ok := surveyID(c)
	if !ok {
		return
	}

	var req surveyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	survey, err := s.Service.Update(middleware.CurrentUser(c), id, req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"survey": survey})
}

type publishReq struct {
	IsPublished *bool `json:"is_published" binding:"required"`
}

// PATCH /api/surveys/:id/publish
func (s *SurveyController) Publish(c *gin.Context) {
	id, ok := surveyID(c)
	if !ok {
		return
	}

	var req publishReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	survey, err := s.Service.SetPublished(middleware.CurrentUser(c), id, *req.IsPublished)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"survey": survey})
}

// DELETE /api/surveys/:id
func (s *SurveyController) Delete(c *gin.Context) {
	id, ok := surveyID(c)
	if !ok {
		return
	}

	if err := s.Service.Delete(middleware.CurrentUser(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Survey deleted"})
}

// GET /api/surveys/:id. Anonymous viewing of published surveys is allowed.
func (s *SurveyController) Get(c *gin.Context) {
	id, ok := surveyID(c)
	if !ok {
		return
	}

	survey, err := s.Service.GetForView(middleware.CurrentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	creatorName := ""
	if survey.Creator != nil {
		creatorName = survey.Creator.Name
	}
	c.JSON(http.StatusOK, gin.H{
		"survey":       survey,
		"creator_name": creatorName,
	})
}

func surveyID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid survey id"})
		return uuid.Nil, false
	}
	return id, true
}
