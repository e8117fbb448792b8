package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/HSouheill/affiliate_backend/config"
	"github.com/HSouheill/affiliate_backend/controllers"
	"github.com/HSouheill/affiliate_backend/middleware"
	"github.com/HSouheill/affiliate_backend/repositories"
	"github.com/HSouheill/affiliate_backend/routes"
	"github.com/HSouheill/affiliate_backend/services"
	"github.com/HSouheill/affiliate_backend/websocket"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stores
	var ledger repositories.LedgerStore
	var notificationStore repositories.NotificationStore
	if cfg.StoreBackend == config.StoreBackendMemory {
		log.Println("Using in-memory stores; data is lost on restart")
		ledger = repositories.NewMemoryLedger()
		notificationStore = repositories.NewMemoryNotificationStore()
	} else {
		client, err := config.ConnectDB(cfg.Mongo)
		if err != nil {
			log.Fatalf("MongoDB connection error: %v", err)
		}
		defer client.Disconnect(context.Background())
		db := client.Database(cfg.Mongo.DBName)
		ledger = repositories.NewMongoLedger(db)
		notificationStore = repositories.NewNotificationRepository(db)
	}

	// Notifications and the live channel
	notificationService := services.NewNotificationService(notificationStore, ledger, nil)
	hub := websocket.NewHub(func(token string) (string, error) {
		claims, err := middleware.ParseToken(cfg.JWTSecret, token)
		if err != nil {
			return "", err
		}
		return claims.Subject(), nil
	}, notificationService)
	go hub.Run(ctx)

	redisClient := config.ConnectRedis(cfg.Redis)
	var idempotency services.IdempotencyStore = services.NewMemoryIdempotencyStore()
	if redisClient != nil {
		defer redisClient.Close()
		fanout := websocket.NewRedisFanout(redisClient, "", hub)
		go fanout.Run(ctx)
		notificationService.SetDispatcher(fanout)
		idempotency = services.NewRedisIdempotencyStore(redisClient, cfg.IdempotencyTTL)
	} else {
		notificationService.SetDispatcher(hub)
	}

	if app, err := config.InitFirebase(ctx, cfg.Firebase); err != nil {
		log.Printf("Warning: Firebase disabled: %v", err)
	} else if app != nil {
		push, err := services.NewFCMPushSender(ctx, app)
		if err != nil {
			log.Printf("Warning: FCM push disabled: %v", err)
		} else {
			notificationService.WithPush(push)
		}
	}
	if cfg.SMTP.Host != "" && cfg.SMTP.AdminEmail != "" {
		notificationService.WithMailer(services.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Pass, cfg.SMTP.AdminEmail))
	}

	var payouts services.PayoutPublisher = services.NoopPayoutPublisher{}
	if brokers := cfg.Kafka.BrokerList(); len(brokers) > 0 {
		kafkaPublisher := services.NewKafkaPayoutPublisher(brokers, cfg.Kafka.PayoutTopic)
		defer kafkaPublisher.Close()
		payouts = kafkaPublisher
	}

	// Qualification engine
	engine := services.NewQualificationService(ledger, services.DefaultTierTable(), notificationService, idempotency, payouts)
	marketerService := services.NewMarketerService(ledger)
	go services.NewQualificationSweeper(engine, cfg.SweepInterval).Run(ctx)

	// HTTP
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	rateLimiter := middleware.NewRateLimiter()

	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(middleware.GlobalCORS(cfg.CORSOrigins))
	e.Use(rateLimiter.RateLimit())
	e.Use(middleware.SecurityHeadersWithConfig(middleware.SecurityConfig{}))
	e.Use(httpsRedirect())

	routes.RegisterOpsRoutes(e, cfg.StoreBackend)
	routes.RegisterSalesRoutes(e, cfg.JWTSecret, controllers.NewSalesController(engine))
	routes.RegisterNotificationRoutes(e, cfg.JWTSecret, controllers.NewNotificationController(notificationService, marketerService), hub)
	routes.RegisterAdminRoutes(e, cfg.JWTSecret, controllers.NewAdminController(notificationService, marketerService))

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

func httpsRedirect() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get("X-Forwarded-Proto") == "http" {
				return c.Redirect(http.StatusMovedPermanently, "https://"+c.Request().Host+c.Request().RequestURI)
			}
			return next(c)
		}
	}
}
