package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "natours/docs"
	"natours/internal/config"
	"natours/internal/database"
	"natours/internal/handlers"
	"natours/internal/middleware"
	"natours/internal/pdf"
	"natours/internal/repositories"
	"natours/internal/routes"
	"natours/internal/services"
	"natours/internal/storage"
)

const shutdownTimeout = 5 * time.Second

// App owns the process-wide resources built at startup.
type App struct {
	cfg    *config.Config
	db     *sql.DB
	rdb    *redis.Client
	server *http.Server
}

// Run loads the configuration and serves until SIGINT or SIGTERM.
func Run() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("[app] config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := New(ctx, cfg)
	if err != nil {
		log.Fatalf("[app] startup: %v", err)
	}
	defer a.Close()

	if err := a.Serve(ctx); err != nil {
		log.Printf("[app] server stopped: %v", err)
	}
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	a := &App{cfg: cfg, db: db}

	if cfg.Redis.Addr != "" {
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	} else {
		log.Printf("[app] redis not configured, API rate limiting disabled")
	}

	images, err := storage.New(ctx, cfg.Storage, cfg.Views.StaticDir)
	if err != nil {
		a.Close()
		return nil, err
	}

	router, err := a.router(images)
	if err != nil {
		a.Close()
		return nil, err
	}
	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Origin", "Content-Type", "Authorization"},
	}).Handler(router)

	a.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}
	return a, nil
}

func (a *App) router(images storage.ImageStore) (*gin.Engine, error) {
	cfg := a.cfg

	// === Repos ===
	userRepo := repositories.NewUserRepository(a.db)
	tourRepo := repositories.NewTourRepository(a.db)
	reviewRepo := repositories.NewReviewRepository(a.db)
	bookingRepo := repositories.NewBookingRepository(a.db)

	// === Services ===
	emailService := services.NewEmailService(services.NewMailer(cfg.Email))
	authService := services.NewAuthService(userRepo, emailService, services.AuthConfig{
		Secret:   cfg.JWT.Secret,
		TokenTTL: cfg.JWT.ExpiresIn,
	})
	userService := services.NewUserService(userRepo, images)
	tourService := services.NewTourService(tourRepo, images)
	reviewService := services.NewReviewService(reviewRepo)
	bookingService := services.NewBookingService(services.BookingDeps{
		Bookings: bookingRepo,
		Tours:    tourRepo,
		Users:    userRepo,
		Payments: services.NewStripeProvider(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, cfg.Stripe.Currency),
		Notifier: services.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID),
		Receipts: pdf.NewReceipts("Natours"),
		Images:   images,
		Currency: cfg.Stripe.Currency,
	})

	// === Handlers ===
	opts := handlers.QueryOptions{Multi: handlers.DefaultMultiKeys, MaxLimit: cfg.Query.MaxLimit}
	site := handlers.Site{PublicURL: cfg.Server.PublicURL}
	h := routes.Handlers{
		Auth: handlers.NewAuthHandler(authService, handlers.AuthCookie{
			Days:   cfg.JWT.CookieExpiresInDays,
			Secure: cfg.IsProduction(),
		}, site),
		Users:    handlers.NewUserHandler(userService, opts),
		Tours:    handlers.NewTourHandler(tourService, opts),
		Reviews:  handlers.NewReviewHandler(reviewService, opts),
		Bookings: handlers.NewBookingHandler(bookingService, opts, site),
		Views:    handlers.NewViewHandler(tourService, userService),
	}

	// === Gin ===
	router, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}
	router.SetFuncMap(templateFuncs(images))
	router.LoadHTMLGlob(cfg.Views.TemplatesGlob)
	router.Static("/css", cfg.Views.StaticDir+"/css")
	router.Static("/js", cfg.Views.StaticDir+"/js")
	router.Static("/img", cfg.Views.StaticDir+"/img")

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/healthz", func(c *gin.Context) {
		if err := a.db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := []gin.HandlerFunc{middleware.BodyLimit(middleware.MaxJSONBody)}
	if a.rdb != nil {
		api = append([]gin.HandlerFunc{middleware.RateLimit(a.rdb, cfg.RateLimit.Max, cfg.RateLimit.Window)}, api...)
	}
	return routes.SetupRoutes(router, h, authService, api...), nil
}

// newEngine builds the engine with the global middleware. The error handler
// sits inside gzip so its response goes through the compressed writer.
func newEngine(cfg *config.Config) (*gin.Engine, error) {
	router := gin.New()
	router.MaxMultipartMemory = 8 << 20
	// nil trusts no proxy, so ClientIP is the peer address
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	if !cfg.IsProduction() {
		router.Use(gin.Logger())
	}
	router.Use(gin.Recovery())
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	router.Use(middleware.ErrorHandler(cfg.Server.Env))
	router.Use(middleware.SecurityHeaders())
	return router, nil
}

func templateFuncs(images storage.ImageStore) template.FuncMap {
	return template.FuncMap{
		"img":   images.URL,
		"upper": strings.ToUpper,
		"first": func(s string) string {
			if fields := strings.Fields(s); len(fields) > 0 {
				return fields[0]
			}
			return s
		},
		"monthYear": func(t time.Time) string { return t.Format("January 2006") },
		"add":       func(a, b int) int { return a + b },
	}
}

// Serve listens until ctx is cancelled, then drains in-flight requests.
func (a *App) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[app] listening on %s (%s)", a.server.Addr, a.cfg.Server.Env)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("[app] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (a *App) Close() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			log.Printf("[app] close redis: %v", err)
		}
	}
	if err := a.db.Close(); err != nil {
		log.Printf("[app] close db: %v", err)
	}
}
