package cmd

import (
	"database/sql"
	"net"
	"time"

	"github.com/votabienperu/backend/app/controller"
	"github.com/votabienperu/backend/app/email"
	"github.com/votabienperu/backend/app/middleware"
	"github.com/votabienperu/backend/app/repository"
	"github.com/votabienperu/backend/app/security"
	"github.com/votabienperu/backend/app/service"
	"github.com/votabienperu/backend/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.Database.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	codec, err := security.NewCodec(cfg.JWT.Secret, cfg.JWT.Algorithm)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize token codec")
	}

	authService := service.NewAuthService(
		db,
		repository.NewAccountRepository(db),
		repository.NewSessionRepository(db),
		repository.NewVerificationTokenRepository(db),
		email.NewSender(cfg),
		security.NewPasswordHasher(),
		codec,
		cfg,
	)

	startHTTPServer(cfg, authService)
}

func startHTTPServer(cfg *config.Config, authService *service.AuthService) {
	e := echo.New()
	defer e.Close()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.App.AllowedOrigins,
		AllowCredentials: true,
	}))

	authController := controller.NewAuthController(authService, cfg)
	authMiddleware := middleware.NewAuthMiddleware(authService)

	auth := e.Group("/auth")
	auth.POST("/register", authController.Register)
	auth.POST("/login", authController.Login)
	auth.POST("/refresh", authController.Refresh)
	auth.POST("/new-verification", authController.VerifyEmail)
	auth.POST("/verify-token", authController.VerifyToken)

	users := e.Group("/users")
	users.GET("/me", authController.Me, authMiddleware.RequireAuth)
	users.POST("/logout", authController.Logout)

	httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
	logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
	if err := e.Start(httpAddr); err != nil {
		logrus.WithError(err).Fatal("Failed to start HTTP server")
	}
}
