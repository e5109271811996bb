package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/formlab/survey-server/config"
	"github.com/formlab/survey-server/controllers"
	"github.com/formlab/survey-server/middleware"
	"github.com/formlab/survey-server/services"
)

// SetupRoutes builds the controllers around the core services and mounts
// the API. Services are constructed here with their explicit dependencies;
// nothing reads global state.
func SetupRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config) {
	secret := []byte(cfg.JWTSecret)

	authCtrl := &controllers.AuthController{
		DB:             db,
		JWTSecret:      secret,
		GoogleClientID: cfg.GoogleClientID,
	}
	surveyCtrl := &controllers.SurveyController{Service: services.NewAuthoringService(db)}
	responseCtrl := &controllers.ResponseController{Service: services.NewResponseService(db)}
	exportCtrl := &controllers.ExportController{Service: services.NewExportService(db)}
	healthCtrl := &controllers.HealthController{DB: db}

	requireAuth := middleware.AuthJWT(db, secret)
	optionalAuth := middleware.OptionalAuth(db, secret)

	r.GET("/health", healthCtrl.Check)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authCtrl.Register)
			auth.POST("/login", authCtrl.Login)
			auth.POST("/google/login", authCtrl.GoogleLogin)
		}
		api.GET("/me", requireAuth, authCtrl.Me)

		surveys := api.Group("/surveys")
		{
			surveys.GET("", requireAuth, surveyCtrl.List)
			surveys.POST("", requireAuth, surveyCtrl.Create)
			surveys.GET("/:id", optionalAuth, surveyCtrl.Get)
			surveys.PUT("/:id", requireAuth, surveyCtrl.Update)
			surveys.PATCH("/:id/publish", requireAuth, surveyCtrl.Publish)
			surveys.DELETE("/:id", requireAuth, surveyCtrl.Delete)

			surveys.POST("/:id/responses", optionalAuth, responseCtrl.Submit)
			surveys.GET("/:id/responses", requireAuth, responseCtrl.List)
			surveys.GET("/:id/export", requireAuth, exportCtrl.Download)
		}
	}
}
