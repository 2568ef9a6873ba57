package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"go.uber.org/zap"

	"github.com/causetrace/rcfa-engine/pkg/auth"
	"github.com/causetrace/rcfa-engine/pkg/config"
	"github.com/causetrace/rcfa-engine/pkg/database"
	"github.com/causetrace/rcfa-engine/pkg/handlers"
	"github.com/causetrace/rcfa-engine/pkg/logging"
	"github.com/causetrace/rcfa-engine/pkg/middleware"
	"github.com/causetrace/rcfa-engine/pkg/repositories"
	"github.com/causetrace/rcfa-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := buildLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", cfg.Database.Database),
		zap.Bool("audit_followup_answers", cfg.Audit.FollowupAnswers))

	ctx := context.Background()

	// Migrations run through database/sql; the service itself uses pgx.
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open database for migrations", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations",
			zap.String("error", logging.SanitizeError(err)))
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn("Failed to close migration connection", zap.Error(err))
	}

	logger.Info("Connecting to database",
		zap.String("conn", logging.SanitizeConnectionString(cfg.Database.ConnectionString())))

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database",
			zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		logger.Fatal("Failed to create JWKS client", zap.Error(err))
	}
	defer jwksClient.Close()

	authService := auth.NewAuthService(jwksClient, logger)
	authMiddleware := auth.NewMiddleware(authService, logger)
	scope := handlers.ScopeMiddleware(database.WithScope(db, logger))

	tx := database.NewTxRunner()
	invRepo := repositories.NewInvestigationRepository()
	rootCandRepo := repositories.NewRootCauseCandidateRepository()
	questionRepo := repositories.NewFollowupQuestionRepository()
	actionCandRepo := repositories.NewActionItemCandidateRepository()
	itemRepo := repositories.NewActionItemRepository()
	finalRepo := repositories.NewRootCauseFinalRepository()
	auditRepo := repositories.NewAuditRepository()

	auditService := services.NewAuditService(auditRepo, invRepo, logger)
	investigationService := services.NewInvestigationService(tx, invRepo, auditService, logger)
	candidateService := services.NewCandidateService(tx, invRepo, rootCandRepo, questionRepo, actionCandRepo, auditService, logger)
	promotionService := services.NewPromotionService(tx, invRepo, actionCandRepo, rootCandRepo, itemRepo, finalRepo, auditService, logger)
	followupService := services.NewFollowupService(tx, invRepo, questionRepo, auditService, cfg.Audit.FollowupAnswers, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewInvestigationsHandler(investigationService, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewCandidatesHandler(candidateService, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewPromotionsHandler(promotionService, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewFollowupsHandler(followupService, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewAuditHandler(auditService, logger).RegisterRoutes(mux, authMiddleware, scope)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting rcfa-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func buildLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
