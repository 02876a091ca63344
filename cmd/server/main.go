package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"skillswap/internal/config"
	"skillswap/internal/db"
	"skillswap/internal/exchange"
	"skillswap/internal/handlers"
	"skillswap/internal/jobs"
	"skillswap/internal/ledger"
	mw "skillswap/internal/middleware"
	"skillswap/internal/notify"
	"skillswap/internal/ratings"
	"skillswap/internal/ws"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	dbConn, err := sqlx.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("open db", zap.Error(err))
	}
	dbConn.SetMaxOpenConns(cfg.DBMaxOpenConns)
	dbConn.SetConnMaxLifetime(2 * time.Hour)
	if err := dbConn.Ping(); err != nil {
		logger.Fatal("ping db", zap.Error(err))
	}
	if err := db.RunMigrations(dbConn); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}
	if cfg.SeedDemoData {
		if err := db.Seed(dbConn, cfg.StartingBalance); err != nil {
			logger.Fatal("seed demo data", zap.Error(err))
		}
	}

	jwtSecret := []byte(cfg.JWTSecret)
	hub := ws.NewHub()

	ledgerStore := ledger.NewStore(dbConn)
	ratingStore := ratings.NewStore(dbConn)
	notifier := notify.NewService(dbConn, hub, logger)
	exchangeRepo := exchange.NewRepository(dbConn)
	userDir := exchange.NewUserDirectory(dbConn)
	exchangeSvc := exchange.NewService(exchangeRepo, userDir, ledgerStore, ratingStore, notifier, logger)

	authHandler := handlers.NewAuthHandler(dbConn, jwtSecret, cfg.StartingBalance, logger)
	userHandler := handlers.NewUserHandler(dbConn, ledgerStore, ratingStore, logger)
	skillHandler := handlers.NewSkillHandler(dbConn, logger)
	exchangeHandler := handlers.NewExchangeHandler(exchangeSvc, logger)
	notificationHandler := handlers.NewNotificationHandler(notifier, logger)
	authMW := mw.NewAuthMiddleware(jwtSecret)

	scheduler := jobs.NewScheduler(dbConn, notifier, logger)
	if err := scheduler.Start(context.Background(), cfg.ReminderSchedule); err != nil {
		logger.Fatal("start reminder scheduler", zap.Error(err))
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(mw.ZapRequestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(cfg.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	wsHandler := ws.NewHandler(hub, jwtSecret, exchangeRepo, strings.Split(cfg.AllowedOrigins, ","))
	r.Get("/ws", wsHandler.ServeHTTP)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})

		api.Post("/auth/register", authHandler.Register)
		api.Post("/auth/login", authHandler.Login)

		api.Group(func(pr chi.Router) {
			pr.Use(authMW.RequireAuth)

			pr.Get("/auth/me", authHandler.Me)

			pr.Get("/users/search", userHandler.Search)
			pr.Get("/users/my-transactions", userHandler.MyTransactions)
			pr.Get("/users/{id}", userHandler.Get)
			pr.Put("/users/{id}", userHandler.Update)
			pr.Post("/users/{id}/skills", userHandler.AddSkill)
			pr.Get("/users/{id}/transactions", userHandler.Transactions)

			pr.Get("/skills", skillHandler.List)
			pr.Get("/skills/categories", skillHandler.Categories)
			pr.Get("/skills/teachers", skillHandler.Teachers)

			pr.Post("/exchanges/create", exchangeHandler.Create)
			pr.Post("/exchanges/create-teacher-request", exchangeHandler.CreateTeacherRequest)
			pr.Get("/exchanges/my-exchanges", exchangeHandler.MyExchanges)
			pr.Get("/exchanges/{id}", exchangeHandler.Get)
			pr.Put("/exchanges/{id}/accept", exchangeHandler.Accept)
			pr.Put("/exchanges/{id}/decline", exchangeHandler.Decline)
			pr.Put("/exchanges/{id}/revoke", exchangeHandler.Revoke)
			pr.Put("/exchanges/{id}/status", exchangeHandler.UpdateStatus)
			pr.Post("/exchanges/{id}/message", exchangeHandler.SendMessage)
			pr.Post("/exchanges/{id}/rate", exchangeHandler.Rate)

			pr.Get("/notifications", notificationHandler.List)
			pr.Get("/notifications/unread-count", notificationHandler.UnreadCount)
			pr.Put("/notifications/{id}/read", notificationHandler.MarkRead)
			pr.Put("/notifications/read-all", notificationHandler.MarkAllRead)
		})
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown initiated")

	scheduler.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	logger.Info("server stopped")
}
