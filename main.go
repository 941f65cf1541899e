package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"civicpulse-be/classifier"
	"civicpulse-be/config"
	"civicpulse-be/controllers"
	"civicpulse-be/middlewares"
	"civicpulse-be/notify"
	"civicpulse-be/repository"
	"civicpulse-be/routes"
	"civicpulse-be/services"
	"civicpulse-be/verification"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.ConnectDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	log.Println("MongoDB connection established successfully!")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := repository.EnsureIndexes(indexCtx, db); err != nil {
		log.Printf("Failed to ensure indexes: %v", err)
	}
	cancel()

	rdb, err := config.ConnectRedis(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	var (
		limiter middlewares.Limiter
		cache   services.Cache
	)
	if rdb != nil {
		limiter = middlewares.NewRedisLimiter(rdb, "ratelimit", cfg.RateLimitPerMinute, time.Minute)
		cache = repository.NewRedisCache(rdb, "civicpulse")
	} else {
		log.Println("REDIS_ADDRESS not set, rate limiting in process and caching disabled")
		limiter = middlewares.NewLocalLimiter(cfg.RateLimitPerMinute, time.Minute)
	}

	tasks := services.NewDispatcher(cfg.Workers, cfg.QueueSize, 30*time.Second)

	notifier, err := newNotifier(cfg)
	if err != nil {
		log.Fatalf("Failed to set up notifications: %v", err)
	}

	var verifier services.Verifier = verification.Disabled{}
	if cfg.TwilioEnabled() {
		verifier = verification.NewTwilio(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioVerifyServiceSID)
	} else {
		log.Println("Twilio Verify not configured, accounts are verified with any code")
	}

	stores := repository.NewStores(db)
	opts := []services.Option{}
	if cfg.StrictStatusTransitions {
		opts = append(opts, services.WithTransitionPolicy(services.StrictTransitions))
	}
	complaints := services.NewComplaintService(stores, notifier, tasks, opts...)
	dashboard := services.NewDashboardService(repository.NewAnalytics(db), stores.Users, cache, nil)
	accounts := services.NewAccountService(stores, verifier, notifier, tasks)
	cls := classifier.New(cfg.GroqBaseURL, cfg.GroqAPIKey, classifier.WithVisionModel(cfg.GroqModel))

	go complaints.WatchSLA(ctx, cfg.SLASweepInterval)

	r := gin.Default()
	r.Use(middlewares.RequestID())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", middlewares.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middlewares.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	auth := middlewares.NewAuth(cfg.JWTSecret, stores.Users)
	api := r.Group("/api", middlewares.RateLimiter(limiter))
	routes.UserRoutes(api, controllers.NewUserController(accounts, cfg.JWTSecret, cfg.Production()), auth)
	routes.ComplaintRoutes(api, controllers.NewComplaintController(complaints, dashboard, cls), auth)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Println("Shutting down server...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	closers := []func(context.Context) error{}
	if rdb != nil {
		closers = append(closers, func(context.Context) error { return rdb.Close() })
	}
	closers = append(closers, config.DisconnectDB)
	shutdown(shutdownCtx, srv, tasks, closers...)
}

// shutdown stops accepting requests, drains queued notifications while the
// stores are still connected, then closes the connections in order.
func shutdown(ctx context.Context, srv interface{ Shutdown(context.Context) error }, tasks interface{ Close() }, closers ...func(context.Context) error) {
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
	tasks.Close()
	for _, closeFn := range closers {
		if err := closeFn(ctx); err != nil {
			log.Printf("Close connection: %v", err)
		}
	}
}

// newNotifier mails through SMTP when a relay is configured and logs
// otherwise.
func newNotifier(cfg *config.Config) (services.Notifier, error) {
	if !cfg.MailEnabled() {
		log.Println("SMTP not configured, notifications will be logged")
		return notify.LogNotifier{}, nil
	}
	mailer := &notify.SMTPMailer{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.EmailFrom,
	}
	return notify.NewEmailNotifier(mailer, cfg.AdminEmail)
}
