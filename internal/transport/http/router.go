package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appsvc "sentinelhive/internal/app"
	"sentinelhive/internal/bootstrap"
	"sentinelhive/internal/repository"
	"sentinelhive/internal/transport/http/handler"
	"sentinelhive/internal/transport/http/middleware"
)

func newEngine(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID())
	return router
}

func newAuthService(app *bootstrap.App) *appsvc.AuthService {
	userRepo := repository.NewUserRepository(app.DB)
	return appsvc.NewAuthService(userRepo, app.TokenCodec, app.Denylist, app.Logger)
}

// NewClientRouter serves the client-facing API: credential verification and
// session issuance.
func NewClientRouter(app *bootstrap.App) *gin.Engine {
	router := newEngine(app)

	healthHandler := handler.NewHealthHandler(app, "client-api")
	router.GET("/healthz", healthHandler.Check)

	authService := newAuthService(app)
	authHandler := handler.NewAuthHandler(authService)

	authGroup := router.Group("/auth")
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/logout", authHandler.Logout)
	authGroup.GET("/check", authHandler.Check)

	return router
}

// NewDBRouter serves the database-facing API: authenticated content
// addressed ingestion.
func NewDBRouter(app *bootstrap.App) *gin.Engine {
	router := newEngine(app)

	healthHandler := handler.NewHealthHandler(app, "db-api")
	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authService := newAuthService(app)
	recordRepo := repository.NewRecordRepository(app.DB)

	// Assign only a live publisher so the service's nil check stays meaningful.
	var publisher appsvc.AuditPublisher
	if p := app.AuditPublisher(); p != nil {
		publisher = p
	}
	ingestService := appsvc.NewIngestService(recordRepo, publisher, app.Logger)
	dataHandler := handler.NewDataHandler(ingestService)

	dataGroup := router.Group("/data")
	dataGroup.Use(middleware.Auth(authService))
	dataGroup.POST("", dataHandler.Store)
	dataGroup.GET("/:id", dataHandler.Get)

	return router
}
