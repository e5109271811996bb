package controllers

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/formlab/survey-server/middleware"
	"github.com/formlab/survey-server/services"
)

type ExportController struct {
	Service *services.ExportService
}

// GET /api/surveys/:id/export streams the XLSX workbook to the creator.
func (e *ExportController) Download(c *gin.Context) {
	id, ok := surveyID(c)
	if !ok {
		return
	}

	workbook, err := e.Service.ResponsesWorkbook(middleware.CurrentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	defer workbook.Close()

	filename := fmt.Sprintf("survey_%s_responses.xlsx", id)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	if err := workbook.Write(c.Writer); err != nil {
		log.Printf("[ERROR] write export for survey %s: %v", id, err)
	}
}
