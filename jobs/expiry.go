package jobs

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/formlab/survey-server/models"
)

// StartExpirySweep schedules a minutely job that unpublishes surveys whose
// expiry has passed. The returned cron can be stopped on shutdown.
func StartExpirySweep(db *gorm.DB) *cron.Cron {
	c := cron.New()
	_, err := c.AddFunc("@every 1m", func() {
		n, err := UnpublishExpired(db, time.Now())
		if err != nil {
			log.Printf("[ERROR] expiry sweep: %v", err)
			return
		}
		if n > 0 {
			log.Printf("expiry sweep unpublished %d survey(s)", n)
		}
	})
	if err != nil {
		log.Fatalf("schedule expiry sweep: %v", err)
	}
	c.Start()
	return c
}

// UnpublishExpired flips every published survey past its expiresAt back to
// unpublished and clears publishedAt, keeping the publish-state invariant.
func UnpublishExpired(db *gorm.DB, now time.Time) (int64, error) {
	res := db.Model(&models.Survey{}).
		Where("is_published = ? AND expires_at IS NOT NULL AND expires_at <= ?", true, now).
		Updates(map[string]interface{}{
			"is_published": false,
			"published_at": nil,
		})
	return res.RowsAffected, res.Error
}
