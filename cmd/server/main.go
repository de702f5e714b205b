package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/cors"

	"course-portal/internal/apperr"
	"course-portal/internal/auth"
	"course-portal/internal/config"
	"course-portal/internal/course"
	"course-portal/internal/questionbank"
	"course-portal/internal/quiz"
	"course-portal/internal/resource"
	"course-portal/pkg/cache"
	"course-portal/pkg/database"
	"course-portal/pkg/storage"
	"course-portal/pkg/websocket"
)

func main() {
	flag.Parse()
	defer glog.Flush()

	cfg, err := config.Load()
	if err != nil {
		glog.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewPostgresDB(&database.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		glog.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		glog.Fatalf("Failed to migrate database: %v", err)
	}

	redisCache := cache.NewRedisCache(cfg.RedisAddr)
	defer redisCache.Close()
	if err := redisCache.Ping(context.Background()); err != nil {
		glog.Warningf("redis unavailable at %s: %v", cfg.RedisAddr, err)
	}

	signer := storage.NewSigner(cfg.JWTSecret)
	blobs, err := storage.NewFSStore(cfg.BlobBasePath, cfg.PublicURL, signer)
	if err != nil {
		glog.Fatalf("Failed to open blob store: %v", err)
	}

	// Repositories
	authRepo := auth.NewRepository(db)
	courseRepo := course.NewRepository(db)
	resourceRepo := resource.NewRepository(db)
	quizRepo := quiz.NewRepository(db)
	bankRepo := questionbank.NewRepository(db)

	// Services
	authService := auth.NewService(authRepo, redisCache, cfg.JWTSecret)
	courseService := course.NewService(courseRepo, redisCache)
	resourceService := resource.NewService(resourceRepo, courseRepo, blobs, cfg.SignedURLTTL)
	bankService := questionbank.NewService(bankRepo)

	var quizService *quiz.Service
	wsHub := websocket.NewHub(func(r *http.Request, room string) error {
		claims, err := authService.ParseToken(r.Context(), r.URL.Query().Get("token"))
		if err != nil {
			return err
		}
		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			return errors.Wrap(apperr.ErrUnauthorized, "invalid user id in token")
		}
		quizID, err := uuid.Parse(room)
		if err != nil {
			return apperr.Invalid("id", "must be a valid id")
		}
		return quizService.CanWatch(r.Context(), userID, quizID)
	}, cfg.CORSOrigins)
	quizService = quiz.NewService(quizRepo, courseRepo, redisCache, wsHub)

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go wsHub.Run(hubCtx)

	// Handlers
	authHandler := auth.NewHandler(authService)
	courseHandler := course.NewHandler(courseService)
	resourceHandler := resource.NewHandler(resourceService)
	quizHandler := quiz.NewHandler(quizService)
	bankHandler := questionbank.NewHandler(bankService)

	router := mux.NewRouter()

	// Public routes
	router.HandleFunc("/api/auth/signup", authHandler.SignUp).Methods("POST")
	router.HandleFunc("/api/auth/login", authHandler.SignIn).Methods("POST")
	router.HandleFunc("/files", storage.ServeSigned(blobs, signer)).Methods("GET")
	router.HandleFunc("/ws/attempts/{id}", wsHub.HandleWebSocket)

	// Signed-in routes
	api := router.PathPrefix("/api").Subrouter()
	api.Use(auth.JWTMiddleware(authService))

	api.HandleFunc("/auth/session", authHandler.Session).Methods("GET")
	api.HandleFunc("/auth/logout", authHandler.SignOut).Methods("POST")

	api.HandleFunc("/courses", courseHandler.ListCourses).Methods("GET")
	api.HandleFunc("/courses/{id}", courseHandler.GetCourse).Methods("GET")
	api.HandleFunc("/courses/{id}/page", resourceHandler.CoursePage).Methods("GET")
	api.HandleFunc("/courses/{id}/lectures", courseHandler.ListLectures).Methods("GET")
	api.HandleFunc("/resources/{id}/url", resourceHandler.SignedURL).Methods("GET")

	api.HandleFunc("/quiz/sessions", quizHandler.StartSession).Methods("POST")
	api.HandleFunc("/quiz/sessions/submit", quizHandler.SubmitSession).Methods("POST")
	api.HandleFunc("/quiz/attempts", quizHandler.StartAttempt).Methods("POST")
	api.HandleFunc("/quiz/attempts/{id}", quizHandler.GetAttempt).Methods("GET")
	api.HandleFunc("/quiz/attempts/{id}/answers", quizHandler.Answer).Methods("PUT")
	api.HandleFunc("/quiz/attempts/{id}/position", quizHandler.SavePosition).Methods("PUT")
	api.HandleFunc("/quiz/attempts/{id}/submit", quizHandler.SubmitAttempt).Methods("POST")
	api.HandleFunc("/quiz/attempts/{id}/results", quizHandler.Results).Methods("GET")
	api.HandleFunc("/quiz/history", quizHandler.History).Methods("GET")

	// Moderator routes
	mod := func(h http.HandlerFunc) http.Handler { return auth.RequireModerator(h) }

	api.Handle("/courses", mod(courseHandler.CreateCourse)).Methods("POST")
	api.Handle("/courses/seed", mod(courseHandler.SeedCourses)).Methods("POST")
	api.Handle("/courses/{id}", mod(courseHandler.DeleteCourse)).Methods("DELETE")
	api.Handle("/courses/{id}/lectures", mod(courseHandler.AddLecture)).Methods("POST")
	api.Handle("/courses/{id}/lectures/seed", mod(courseHandler.SeedLectures)).Methods("POST")
	api.Handle("/lectures/{id}", mod(courseHandler.EditLecture)).Methods("PUT")
	api.Handle("/lectures/{id}/move-up", mod(courseHandler.MoveUp)).Methods("POST")
	api.Handle("/lectures/{id}", mod(courseHandler.DeleteLecture)).Methods("DELETE")

	api.Handle("/resources", mod(resourceHandler.Create)).Methods("POST")
	api.Handle("/resources/{id}", mod(resourceHandler.Update)).Methods("PUT")
	api.Handle("/resources/{id}", mod(resourceHandler.Delete)).Methods("DELETE")

	api.Handle("/admin/questions/preview", mod(bankHandler.Preview)).Methods("POST")
	api.Handle("/admin/questions/bulk", mod(bankHandler.SaveDrafts)).Methods("POST")
	api.Handle("/admin/questions", mod(bankHandler.List)).Methods("GET")
	api.Handle("/admin/questions/{id}", mod(bankHandler.Edit)).Methods("PUT")
	api.Handle("/admin/questions/{id}/archive", mod(bankHandler.SetArchived)).Methods("PUT")
	api.Handle("/admin/questions/{id}", mod(bankHandler.Delete)).Methods("DELETE")

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Length", "Location"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      corsMiddleware.Handler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		glog.Infof("Server starting on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			glog.Fatalf("Failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		glog.Errorf("Server forced to shutdown: %v", err)
	}
	stopHub()
	glog.Info("Server shutdown gracefully")
}
