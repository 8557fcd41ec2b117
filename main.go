package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dulp-economy/config"
	"dulp-economy/handlers"
	"dulp-economy/middleware"
	"dulp-economy/models"
	"dulp-economy/services"
	"dulp-economy/utils"
	"dulp-economy/workers"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	db, err := openDatabase(cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database: ", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		log.Fatal("failed to migrate database: ", err)
	}

	clock := clockwork.NewRealClock()
	engine := services.NewEngine(db, clock, cfg)

	var audit *workers.AuditExporter
	if cfg.Audit.Enabled() {
		uploader, err := utils.NewR2Uploader(context.Background(),
			cfg.Audit.AccountID, cfg.Audit.AccessKeyID, cfg.Audit.AccessKeySecret, cfg.Audit.Bucket)
		if err != nil {
			log.Fatal("failed to initialize R2 client: ", err)
		}
		audit = workers.NewAuditExporter(db, uploader, cfg.Audit.Prefix)
	}

	scheduler, err := workers.NewScheduler(clock, engine.Games, engine.Emission, audit, time.Minute)
	if err != nil {
		log.Fatal("failed to create scheduler: ", err)
	}
	if err := engine.Emission.EnsureDay(context.Background(), clock.Now()); err != nil {
		log.Printf("⚠️  could not pre-create today's emission row: %v", err)
	}

	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: handlers.ErrorHandler,
	})
	app.Use(recover.New())
	app.Use(logger.New())

	// 🔐❗ GLOBAL: Only Gateway requests allowed
	app.Use(middleware.GatewayAuthMiddleware(cfg.Auth.GatewayToken))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     "GET,POST,PATCH,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-Access-Token, Idempotency-Key",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID, Idempotent-Replayed",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	handlers.SetupHealthRoutes(app, db)

	identity := middleware.IdentityOptions{JWTSecret: cfg.Auth.JWTSecret}
	if cfg.Auth.AuthServiceURL != "" && cfg.Auth.JWTSecret == "" {
		identity.AuthClient = services.NewAuthServiceClient(cfg.Auth.AuthServiceURL, cfg.Auth.GatewayToken)
	}
	secured := app.Group("/",
		middleware.UserContextMiddleware(identity),
		middleware.ProfileMiddleware(engine.Profiles),
	)

	handlers.SetupTaskRoutes(secured, engine.Tasks)
	handlers.SetupGameRoutes(secured, engine.Games)
	handlers.SetupWalletRoutes(secured, engine.Withdrawals, engine.Store)
	handlers.SetupProfileRoutes(secured, engine)
	handlers.SetupLeaderboardRoutes(secured, engine.Leaderboard)
	handlers.SetupAdminRoutes(secured, engine)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.Run(gctx)
	})
	g.Go(func() error {
		log.Printf("✅ Server running on http://localhost:%s", cfg.Server.Port)
		log.Printf("✅ CORS configured for origins: %s", cfg.Server.AllowedOrigins)
		return app.Listen(":" + cfg.Server.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")
		return app.ShutdownWithTimeout(10 * time.Second)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Server error: %v", err)
	}
}

func openDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{TranslateError: true}
	if cfg.Driver == "sqlite" {
		db, err := gorm.Open(sqlite.Open(cfg.DSN), gormCfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// sqlite serializes writers
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), gormCfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}
