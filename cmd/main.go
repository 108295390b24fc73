package main

import (
	"net/http"

	"github.com/gorilla/mux"
	cron "github.com/robfig/cron/v3"
	"github.com/rs/cors"

	"github.com/resolvehq/resolve/internal/app"
	"github.com/resolvehq/resolve/internal/config"
	"github.com/resolvehq/resolve/internal/controllers"
	"github.com/resolvehq/resolve/internal/middleware"
	"github.com/resolvehq/resolve/internal/models"
	"github.com/resolvehq/resolve/internal/repositories"
	"github.com/resolvehq/resolve/internal/routes"
	"github.com/resolvehq/resolve/internal/services"
	"github.com/resolvehq/resolve/internal/token"
	"github.com/resolvehq/resolve/internal/tokenstore"
	"github.com/resolvehq/resolve/internal/utils"
)

func main() {
	utils.InitLogger(config.AppName)
	cfg := config.LoadConfig()

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize resolve:", err)
	}
	defer application.Close()

	codec, err := token.NewCodec(token.Config{
		AccessSecret:  cfg.AccessTokenSecret,
		RefreshSecret: cfg.RefreshTokenSecret,
		AccessTTL:     cfg.AccessTokenExpiry,
		RefreshTTL:    cfg.RefreshTokenExpiry,
	})
	if err != nil {
		utils.Logger.Fatal("Token signing misconfigured:", err)
	}

	// Token store backend is chosen once per process: Redis fronted by
	// the in-memory fallback when configured, memory-only otherwise.
	fallback := tokenstore.NewMemoryStore()
	var store tokenstore.Store = fallback
	if application.Redis != nil {
		store = tokenstore.NewFailoverStore(tokenstore.NewRedisStore(application.Redis), fallback)
	}

	userRepo := repositories.NewUserRepository(application.DB)
	complaintRepo := repositories.NewComplaintRepository(application.DB)

	var notifier services.Notifier
	if cfg.SendGridAPIKey != "" && cfg.AdminEmail != "" {
		notifier = services.NewEmailNotifier(cfg.SendGridAPIKey, cfg.FromEmail, cfg.AdminEmail, cfg.AppName)
	} else {
		utils.Logger.Info("SendGrid not configured, complaint notifications disabled")
	}

	authService := services.NewAuthService(userRepo, codec, store)
	complaintService := services.NewComplaintService(complaintRepo, notifier)

	authController := controllers.NewAuthController(authService)
	complaintsController := controllers.NewComplaintsController(complaintService)
	healthController := controllers.NewHealthController(application)

	guard := middleware.NewGuard(codec, store)

	router := mux.NewRouter()

	// Public
	router.HandleFunc(routes.Health, healthController.HealthCheckHandler).Methods(http.MethodGet)
	router.HandleFunc(routes.AuthLogin, authController.Login).Methods(http.MethodPost)
	router.HandleFunc(routes.AuthRegister, authController.Register).Methods(http.MethodPost)
	router.HandleFunc(routes.AuthRefresh, authController.Refresh).Methods(http.MethodPost)
	router.HandleFunc(routes.AuthLogout, authController.Logout).Methods(http.MethodPost)

	secured := router.NewRoute().Subrouter()
	secured.Use(guard.RequireAuth)

	secured.HandleFunc(routes.Complaints, complaintsController.List).Methods(http.MethodGet)
	secured.HandleFunc(routes.Complaints, complaintsController.Create).Methods(http.MethodPost)

	adminSecured := router.NewRoute().Subrouter()
	adminSecured.Use(guard.RequireAuth, middleware.RequireRole(models.RoleAdmin))

	adminSecured.HandleFunc(routes.ComplaintStatus, complaintsController.UpdateStatus).Methods(http.MethodPatch, http.MethodPut)
	adminSecured.HandleFunc(routes.ComplaintByID, complaintsController.Delete).Methods(http.MethodDelete)

	// Best-effort reclamation of never-read expired fallback entries.
	// Lazy check-and-delete on read already keeps the store correct.
	c := cron.New()
	if _, sweepErr := c.AddFunc("@every 10m", func() {
		if removed := fallback.Sweep(); removed > 0 {
			utils.Logger.Debugf("Token store sweep removed %d expired entries", removed)
		}
	}); sweepErr != nil {
		utils.Logger.WithError(sweepErr).Fatal("Failed to schedule token store sweep")
	}
	c.Start()

	co := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.AppURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
	if err := http.ListenAndServe(":"+cfg.AppPort, co.Handler(router)); err != nil {
		utils.Logger.Fatal("resolve failed to start:", err)
	}
}
