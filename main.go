package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yeremiapane/restaurant-queue/board"
	"github.com/yeremiapane/restaurant-queue/config"
	"github.com/yeremiapane/restaurant-queue/database"
	"github.com/yeremiapane/restaurant-queue/notify"
	"github.com/yeremiapane/restaurant-queue/router"
	"github.com/yeremiapane/restaurant-queue/services"
	"github.com/yeremiapane/restaurant-queue/utils"
	"gorm.io/gorm"
)

func main() {
	utils.InitLogger()

	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to load config: %v", err)
	}
	utils.InitLogger(cfg.Server.LogLevel)

	if cfg.Server.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize DB
	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		utils.ErrorLogger.Fatalf("%v", err)
	}
	if err := database.EnsureAdmin(db, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		utils.ErrorLogger.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	origin := uuid.NewString()
	hub := notify.NewHub()
	feed, err := newFeed(ctx, cfg, db, origin)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to set up change feed: %v", err)
	}
	if err := feed.Start(notify.Forward(hub)); err != nil {
		utils.ErrorLogger.Fatalf("Failed to start change feed: %v", err)
	}
	defer feed.Stop()

	store := database.NewStore(db, hub,
		database.WithFeed(feed),
		database.WithOrigin(origin),
		database.WithChangeLog(cfg.Redis.Addr == ""),
	)
	svc := services.NewQueueService(store, store, services.Options{
		CleaningDelay:    cfg.Queue.CleaningDelay,
		WaitTimerUpdater: cfg.Queue.WaitTimerUpdater,
	})

	if cfg.Queue.SeedTables {
		if _, err := svc.InitializeDefaults(ctx); err != nil {
			utils.ErrorLogger.Fatalf("Failed to seed tables: %v", err)
		}
	}

	if err := svc.Start(ctx); err != nil {
		utils.ErrorLogger.Fatalf("Failed to start queue service: %v", err)
	}
	defer svc.Stop()

	b := board.New(svc)
	b.Start(ctx)
	defer b.Stop()

	r := router.SetupRouter(router.Deps{
		DB:                db,
		Service:           svc,
		Board:             b,
		Issuer:            utils.NewTokenIssuer(cfg.JWT.Secret, cfg.TokenTTL()),
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		JoinRatePerMinute: cfg.Queue.JoinRatePerMinute,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	<-ctx.Done()
	utils.InfoLogger.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLogger.Errorf("Error during shutdown: %v", err)
	}
}

// newFeed picks redis pub/sub when REDIS_ADDR is set and falls back to
// polling the db_changes table.
func newFeed(ctx context.Context, cfg *config.Config, db *gorm.DB, origin string) (notify.Feed, error) {
	if cfg.Redis.Addr != "" {
		client, err := notify.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		return notify.NewRedisFeed(client, cfg.Redis.Channel, origin), nil
	}

	feed := notify.NewDBFeed(db, origin)
	feed.Interval = cfg.Queue.ChangePollInterval
	return feed, nil
}
