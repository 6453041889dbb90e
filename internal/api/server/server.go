package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"bioscan/internal/config"
	database "bioscan/internal/db"
	"bioscan/internal/inference"
	"bioscan/internal/notify"
	"bioscan/internal/storage"

	"bioscan/internal/api/handlers"
	"bioscan/internal/api/middleware"
	"bioscan/internal/models"
)

type Server struct {
	cfg        *config.Config
	db         *database.Client
	storage    *storage.Client
	classifier inference.Classifier
	notifier   *notify.EmailNotifier
	logger     *slog.Logger
	router     *gin.Engine
}

func New(cfg *config.Config, db *database.Client, st *storage.Client, cl inference.Classifier, logger *slog.Logger) *Server {
	if cfg.Server.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:        cfg,
		db:         db,
		storage:    st,
		classifier: cl,
		notifier:   notify.NewEmailNotifier(cfg, logger),
		logger:     logger,
		router:     gin.New(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.RequestLogger(s.logger))

	// CORS is open to the one configured development origin only.
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{s.cfg.Server.CORSOrigin}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true

	s.router.Use(cors.New(corsConfig))
}

func (s *Server) setupRoutes() {
	jwtSecret := []byte(s.cfg.Auth.JWTSecret)
	tokenTTL := time.Duration(s.cfg.Auth.TokenTTLHours) * time.Hour

	authHandler := handlers.NewAuthHandler(s.db.DB, jwtSecret, tokenTTL, s.logger)
	reportHandler := handlers.NewReportHandler(s.db.DB, s.storage, s.classifier, s.notifier)
	statsHandler := handlers.NewStatsHandler(s.db.DB)

	// Health Check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "bioscan"})
	})

	// ==========================================
	// PUBLIC ROUTES (No Token Required)
	// ==========================================
	s.router.POST("/register", authHandler.Register)
	s.router.POST("/login", authHandler.Login)

	// ==========================================
	// PROTECTED ROUTES (JWT Token Required)
	// ==========================================
	protected := s.router.Group("/")
	protected.Use(middleware.RequireAuth(s.db.DB, jwtSecret))
	{
		protected.POST("/upload/", reportHandler.Upload)
		protected.GET("/reports/", reportHandler.ListOwn)
		protected.GET("/report/:id", reportHandler.GetReport)
		protected.GET("/scans/:id", reportHandler.StreamScan)
		protected.GET("/user-trend/", reportHandler.UserTrend)

		// --- DOCTOR ONLY ---
		doctor := protected.Group("/")
		doctor.Use(middleware.RequireRole(models.RoleDoctor))
		{
			doctor.GET("/all-reports/", reportHandler.ListAll)
			doctor.POST("/comment/:report_id", reportHandler.AddComment)
			doctor.GET("/report-summary/", statsHandler.Summary)
			doctor.GET("/weekly-submissions/", statsHandler.WeeklySubmissions)
		}
	}
}

// Start runs the server on the configured address
func (s *Server) Start(addr string) error {
	return s.router.Run(addr)
}
