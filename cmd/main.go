package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"biblioteca/internal/auth"
	"biblioteca/internal/config"
	"biblioteca/internal/handlers"
	"biblioteca/internal/jobs"
	"biblioteca/internal/mailer"
	"biblioteca/internal/models"
	"biblioteca/internal/repositories"
	"biblioteca/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get generic DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(models.All()...); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
	}

	userRepo := repositories.NewUserRepository(db)
	roleRepo := repositories.NewRoleRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	loanRepo := repositories.NewLoanRepository(db)
	reservationRepo := repositories.NewReservationRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)

	var mail mailer.Mailer = mailer.Nop{}
	if cfg.SMTP.Enabled {
		mail = mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	}

	notificationService := services.NewNotificationService(db, userRepo, loanRepo, notificationRepo, mail)
	loanService := services.NewLoanService(db, userRepo, bookRepo, loanRepo)
	reservationService := services.NewReservationService(db, userRepo, bookRepo, reservationRepo, notificationService)
	catalogService := services.NewCatalogService(db, bookRepo)
	userService := services.NewUserService(db, userRepo, roleRepo)
	statsService := services.NewStatsService(db, loanRepo)

	tokens := auth.NewManager(cfg.JWT.Secret, cfg.JWT.Expiry)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	if len(cfg.Server.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.Server.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
		}))
	}

	h := handlers.New(loanService, reservationService, notificationService, catalogService, userService, statsService, tokens)
	h.RegisterRoutes(router)

	scheduler := jobs.NewScheduler()
	if cfg.Jobs.Enabled {
		scheduler.RunEvery("expire-reservations", cfg.Jobs.ExpirationInterval, func(ctx context.Context) error {
			_, err := reservationService.ExpireReservations(cfg.Jobs.ReservationMaxAgeDays)
			return err
		})
		scheduler.RunDailyAt("remind-due-loans", cfg.Jobs.ReminderHour, func(ctx context.Context) error {
			_, err := notificationService.RemindDueLoans(cfg.Jobs.ReminderDaysAhead)
			return err
		})
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("[INFO] starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("[INFO] shutting down")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[ERROR] forced shutdown: %v", err)
	}
}
