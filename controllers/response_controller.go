package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formlab/survey-server/middleware"
	"github.com/formlab/survey-server/services"
)

type ResponseController struct {
	Service *services.ResponseService
}

type respondentReq struct {
	Email string `json:"email" binding:"omitempty,email"`
	Name  string `json:"name"`
}

type submitReq struct {
	Answers    map[string]interface{} `json:"answers"`
	Respondent *respondentReq         `json:"respondent"`
}

// POST /api/surveys/:id/responses
func (r *ResponseController) Submit(c *gin.Context) {
	id, ok := surveyID(c)
	if !ok {
		return
	}

	var req submitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	var info *services.RespondentInfo
	if req.Respondent != nil {
		info = &services.RespondentInfo{Email: req.Respondent.Email, Name: req.Respondent.Name}
	}

	meta := services.ClientMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	response, err := r.Service.Submit(middleware.CurrentUser(c), id, req.Answers, meta, info)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"response": response})
}

// GET /api/surveys/:id/responses, creator only.
func (r *ResponseController) List(c *gin.Context) {
	id, ok := surveyID(c)
	if !ok {
		return
	}

	responses, err := r.Service.ListForSurvey(middleware.CurrentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"responses": responses})
}
