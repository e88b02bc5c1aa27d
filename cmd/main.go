package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"docspace/internal/auth"
	"docspace/internal/config"
	"docspace/internal/handler"
	"docspace/internal/repository"
	"docspace/internal/service"
	"docspace/pkg/logger"
)

func connectWithRetry(dsn string, maxAttempts int, delay time.Duration) (*sqlx.DB, error) {
	var db *sqlx.DB
	var err error

	for i := 0; i < maxAttempts; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			return db, nil
		}
		logger.Sugar.Warnf("Failed to connect to database (attempt %d/%d): %v", i+1, maxAttempts, err)
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %v", maxAttempts, err)
}

func runMigrations(cfg *config.Config) error {
	databaseURL := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	var m *migrate.Migrate
	var err error

	for i := 0; i < 5; i++ {
		m, err = migrate.New("file://migrations", databaseURL)
		if err == nil {
			break
		}
		logger.Sugar.Warnf("Failed to create migrate instance (attempt %d/5): %v", i+1, err)
		time.Sleep(time.Second * 5)
	}
	if err != nil {
		return fmt.Errorf("failed to create migrate instance after retries: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		logger.Sugar.Warnf("Found dirty database state at version %d, attempting to force version", version)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func main() {
	logger.Init()
	defer logger.Log.Sync()

	// Загружаем конфигурацию
	appConfig, err := config.NewConfig(".app.env")
	if err != nil {
		logger.Sugar.Fatalf("Failed to load config: %v", err)
	}

	// Подключаемся к базе данных
	db, err := connectWithRetry(appConfig.Database.GetDSN(), 5, time.Second*5)
	if err != nil {
		logger.Sugar.Fatalf("Failed to connect to database after retries: %v", err)
	}
	defer db.Close()

	if err := runMigrations(appConfig); err != nil {
		logger.Sugar.Fatalf("Failed to run migrations: %v", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		logger.Sugar.Fatalf("Failed to ping database: %v", err)
	}

	verifier := auth.NewVerifier(appConfig.Auth.JWTSecret)

	// Инициализация репозиториев
	txManager := repository.NewTxManager(db)
	namespaceRepo := repository.NewNamespaceRepository(db)
	versionRepo := repository.NewVersionRepository(db)
	permissionRepo := repository.NewPermissionRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	userRepo := repository.NewUserRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	// Инициализация сервисов
	permissionService := service.NewPermissionService(permissionRepo, teamRepo, namespaceRepo, txManager)
	namespaceService := service.NewNamespaceService(namespaceRepo, permissionService, txManager, appConfig.Storage.CascadeDelete)
	versionService := service.NewVersionService(versionRepo, namespaceRepo, permissionService, txManager)
	teamService := service.NewTeamService(teamRepo, txManager)
	userService := service.NewUserService(userRepo)
	commentService := service.NewCommentService(commentRepo, namespaceRepo, permissionService)

	// Инициализация хендлеров
	folderHandler := handler.NewFolderHandler(namespaceService, verifier)
	documentHandler := handler.NewDocumentHandler(namespaceService, versionService, verifier)
	permissionHandler := handler.NewPermissionHandler(permissionService, userService, verifier)
	teamHandler := handler.NewTeamHandler(teamService, verifier)
	commentHandler := handler.NewCommentHandler(commentService, verifier)

	// Настройка HTTP роутера
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// HTTP маршруты
	r.Route("/v1", func(r chi.Router) {
		r.Get("/folders", folderHandler.GetFolderContent)
		r.Post("/folders", folderHandler.CreateFolder)
		r.Route("/folders/{id}", func(r chi.Router) {
			r.Get("/", folderHandler.GetFolderContent)
			r.Get("/path", folderHandler.GetFolderPath)
			r.Put("/rename", folderHandler.RenameFolder)
			r.Put("/move", folderHandler.MoveFolder)
			r.Delete("/", folderHandler.DeleteFolder)
		})

		r.Post("/documents", documentHandler.CreateDocument)
		r.Route("/documents/{id}", func(r chi.Router) {
			r.Get("/", documentHandler.GetDocument)
			r.Get("/content", documentHandler.DownloadContent)
			r.Post("/content", documentHandler.UploadContent)
			r.Get("/versions", documentHandler.GetVersionHistory)
			r.Put("/rename", documentHandler.RenameDocument)
			r.Put("/move", documentHandler.MoveDocument)
			r.Delete("/", documentHandler.DeleteDocument)

			r.Get("/comments", commentHandler.ListComments)
			r.Post("/comments", commentHandler.AddComment)
		})

		r.Route("/versions/{versionID}", func(r chi.Router) {
			r.Get("/content", documentHandler.GetVersionContent)
			r.Post("/revert", documentHandler.RevertVersion)
			r.Delete("/", documentHandler.DeleteVersion)
		})

		r.Route("/comments/{commentID}", func(r chi.Router) {
			r.Put("/", commentHandler.EditComment)
			r.Delete("/", commentHandler.DeleteComment)
		})

		r.Route("/permissions", func(r chi.Router) {
			r.Post("/", permissionHandler.Grant)
			r.Get("/", permissionHandler.ListByResource)
			r.Get("/effective", permissionHandler.GetEffectiveAbility)
			r.Put("/{id}", permissionHandler.SetAbility)
			r.Delete("/{id}", permissionHandler.Revoke)
		})

		r.Route("/teams", func(r chi.Router) {
			r.Post("/", teamHandler.CreateTeam)
			r.Get("/my", teamHandler.GetMyTeams)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", teamHandler.GetTeam)
				r.Delete("/", teamHandler.DeleteTeam)
				r.Get("/members", teamHandler.GetMembers)
				r.Post("/members", teamHandler.AddMember)
				r.Delete("/members/{userID}", teamHandler.RemoveMember)
			})
		})
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", appConfig.Server.Port),
		Handler: r,
	}

	// Канал для сигналов завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Sugar.Infof("HTTP server listening on port %s", appConfig.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	<-quit
	logger.Sugar.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Sugar.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Sugar.Info("Server stopped")
}
