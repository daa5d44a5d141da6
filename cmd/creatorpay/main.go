package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ManuelReschke/CreatorPay/app/controllers"
	apiv1 "github.com/ManuelReschke/CreatorPay/internal/api/v1"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/billing"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/cache"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/catalog"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/checkout"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/database"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/env"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/jobqueue"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/metrics"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/middleware"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/notify"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/router"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/statements"
)

func main() {
	app, shutdown := NewApplication()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	shutdown()
	if err != nil {
		log.Fatal(err)
	}
}

// NewApplication wires the stores, the reconciliation pipeline, the job queue
// and the HTTP routes. The returned func releases background resources.
func NewApplication() (*fiber.App, func()) {
	env.SetupEnvFile()
	db := database.SetupDatabase()
	redisClient := cache.SetupCache()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.MustNewMetrics(reg)

	cat := catalog.Default()
	gateway := checkout.NewStripeGateway(env.GetEnv("STRIPE_SECRET_KEY", ""), nil)
	readModels := cache.NewReadModels(redisClient, cache.DefaultReadModelTTL)

	manager := jobqueue.GetManager()
	queue := manager.GetQueue()
	queue.SetMetrics(m)

	reconciler := billing.NewReconcilerFromDB(db,
		billing.WithCatalog(cat),
		billing.WithLocker(cache.NewLocker(redisClient), billing.DefaultLeaseTTL),
		billing.WithNotifier(jobqueue.NewQueuedNotifier(queue)),
		billing.WithMetrics(m),
		billing.WithInvalidator(readModels),
		billing.WithSessionFetcher(gateway),
	)

	channels := notify.Fanout{notify.NewStoreNotifier(db)}
	rabbit := connectPush()
	if rabbit != nil {
		channels = append(channels, notify.NewPushPublisher(rabbit.Channel))
	}
	queue.Register(jobqueue.JobTypeNotify, jobqueue.NotifyProcessor(channels))
	queue.Register(jobqueue.JobTypeRecomputeSummary, jobqueue.RecomputeProcessor(reconciler))
	if exporter := newStatementExporter(reconciler); exporter != nil {
		queue.Register(jobqueue.JobTypeExportStatement, jobqueue.ExportProcessor(exporter))
	}
	manager.Start()

	tolerance := time.Duration(env.GetEnvInt("STRIPE_WEBHOOK_TOLERANCE_SECONDS", 300)) * time.Second
	verifier := billing.NewVerifier(env.GetEnv("STRIPE_WEBHOOK_SECRET", ""), tolerance)

	app := fiber.New(fiber.Config{
		AppName:   "CreatorPay",
		BodyLimit: 1024 * 1024,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	if spec := findOpenAPISpec(); spec != "" {
		if _, err := apiv1.LoadDocument(context.Background(), spec); err != nil {
			log.Fatalf("invalid OpenAPI document: %v", err)
		}
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: spec,
			Path:     "v1",
		}))
	}

	// ROUTER
	router.InstallRouter(app, router.Dependencies{
		Webhooks:         controllers.NewWebhookController(billing.NewWebhookProcessor(verifier, reconciler)),
		Checkout:         controllers.NewCheckoutController(checkout.NewBuilder(cat, gateway, env.GetEnv("CHECKOUT_RETURN_URL", "http://localhost:4000/checkout/return")), reconciler),
		Ledger:           controllers.NewLedgerController(reconciler, readModels),
		Admin:            controllers.NewAdminLedgerController(reconciler, queue),
		AdminCredentials: middleware.LoadAdminCredentials(),
		Gatherer:         reg,
		LimiterStorage:   router.NewLimiterStorage(),
	})

	shutdown := func() {
		manager.Stop()
		if rabbit != nil {
			_ = rabbit.Close()
		}
		_ = cache.Close()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return app, shutdown
}

func connectPush() *notify.Connection {
	if env.GetEnv("RABBITMQ_HOST", "") == "" {
		return nil
	}
	conn, err := notify.ConnectRabbitMQ(notify.RabbitMQConfig{
		Host:     env.GetEnv("RABBITMQ_HOST", ""),
		Port:     env.GetEnv("RABBITMQ_PORT", "5672"),
		Username: env.GetEnv("RABBITMQ_USER", "guest"),
		Password: env.GetEnv("RABBITMQ_PASSWORD", "guest"),
		VHost:    env.GetEnv("RABBITMQ_VHOST", ""),
	})
	if err != nil {
		log.Printf("push notifications disabled: %v", err)
		return nil
	}
	return conn
}

func newStatementExporter(source statements.TransactionSource) *statements.Exporter {
	cfg, err := statements.LoadConfig()
	if err != nil {
		log.Printf("statement export disabled: %v", err)
		return nil
	}
	if !cfg.Enabled {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := statements.NewS3Client(ctx, cfg)
	if err != nil {
		log.Printf("statement export disabled: %v", err)
		return nil
	}
	return statements.NewExporter(source, statements.NewS3Uploader(client, cfg.BucketName), cfg)
}

func findOpenAPISpec() string {
	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/creatorpay to project root
		"../../../", // Fallback
	}
	for _, path := range basePaths {
		file := path + apiv1.DocumentPath
		if _, err := os.Stat(file); err == nil {
			return file
		}
	}
	return ""
}
