package services

import "github.com/formlab/survey-server/models"

// CanWrite reports whether the identity may mutate the survey. Only the
// creator may; anonymous callers never can.
func CanWrite(identity *models.User, survey *models.Survey) bool {
	return identity != nil && identity.ID == survey.CreatorID
}

// CanRead reports whether the identity may view the survey. Published
// surveys are visible to everyone; unpublished ones only to their creator.
func CanRead(identity *models.User, survey *models.Survey) bool {
	if survey.IsPublished {
		return true
	}
	return CanWrite(identity, survey)
}
