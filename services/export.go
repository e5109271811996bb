package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/formlab/survey-server/models"
)

// ExportService builds an XLSX workbook of a survey's responses, one row
// per response and one column per question in display order.
type ExportService struct {
	db *gorm.DB
}

func NewExportService(db *gorm.DB) *ExportService {
	return &ExportService{db: db}
}

const exportSheet = "Responses"

func (s *ExportService) ResponsesWorkbook(identity *models.User, surveyID uuid.UUID) (*excelize.File, error) {
	if identity == nil {
		return nil, errf(KindUnauthenticated, "login required")
	}

	var survey models.Survey
	err := s.db.Preload("Questions", questionOrder).First(&survey, "id = ?", surveyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errf(KindNotFound, "survey not found")
	}
	if err != nil {
		return nil, storeErr(err)
	}
	if !CanWrite(identity, &survey) {
		return nil, errf(KindForbidden, "not authorized to export this survey")
	}

	var responses []models.Response
	err = s.db.
		Where("survey_id = ?", surveyID).
		Preload("Respondent").
		Order("submitted_at ASC, created_at ASC").
		Find(&responses).Error
	if err != nil {
		return nil, storeErr(err)
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, storeErr(err)
	}

	header := []interface{}{"response_id", "submitted_at", "respondent_email"}
	for _, q := range survey.Questions {
		header = append(header, q.Text)
	}
	if err := setRow(f, 1, header); err != nil {
		return nil, storeErr(err)
	}

	for i, r := range responses {
		submitted := ""
		if r.SubmittedAt != nil {
			submitted = r.SubmittedAt.Format(time.RFC3339)
		}
		email := ""
		if r.Respondent != nil && r.Respondent.Email != nil {
			email = *r.Respondent.Email
		}
		row := []interface{}{r.ID.String(), submitted, email}
		for _, q := range survey.Questions {
			row = append(row, formatAnswer(r.Answers[q.ID.String()]))
		}
		if err := setRow(f, i+2, row); err != nil {
			return nil, storeErr(err)
		}
	}

	return f, nil
}

func setRow(f *excelize.File, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(exportSheet, cell, &values)
}

// formatAnswer flattens a stored answer value into a cell. Checkbox answers
// arrive as lists and are joined with commas.
func formatAnswer(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(v, ", ")
	case float64:
		return formatFloat(v)
	default:
		return fmt.Sprint(v)
	}
}

// JSON numbers decode as float64; render whole values without a decimal
// point so ratings export as "5", not "5.000000".
func formatFloat(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
