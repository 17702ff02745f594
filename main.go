package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"bistro/server/internal/api"
	"bistro/server/internal/config"
	"bistro/server/internal/database"
	"bistro/server/internal/events"
	"bistro/server/internal/health"
	"bistro/server/internal/metrics"
	"bistro/server/internal/models"
	"bistro/server/internal/services"
	"bistro/server/internal/utils"
)

func main() {
	// .env is optional; production sets real environment variables.
	if err := godotenv.Load(); err != nil {
		log.Printf("ℹ️ No .env file, using process environment")
	} else {
		log.Printf("✅ Environment loaded from .env")
	}

	cfg := config.Load()
	log.Printf("📋 DATABASE_URL: %s", maskURL(cfg.DatabaseURL))

	policy, err := services.ParseEntryPolicy(cfg.OrderEntryPolicy)
	if err != nil {
		log.Fatalf("❌ ORDER_ENTRY_POLICY: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Printf("⚠️ Closing database: %v", err)
		}
	}()
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Println("✅ Database migrations completed")

	// Redis is optional: without it there is no report cache, no menu
	// pub/sub and no cross-instance ledger channel.
	var redisUtil *utils.RedisClient
	redisClient, err := database.ConnectRedis(cfg.RedisURL, cfg.RedisSentinelAddrs, cfg.RedisMasterName)
	if err != nil {
		log.Printf("⚠️ Redis connection failed: %v (continuing without Redis)", err)
	} else {
		redisUtil = utils.NewRedisClient(redisClient)
		defer database.CloseRedis(redisClient)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New("bistro")
	hub := api.NewHub(m)

	var wg sync.WaitGroup
	run := func(fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
	}
	run(hub.Run)

	notifier := events.Multi{events.Logging{}}
	if redisUtil != nil {
		notifier = append(notifier, events.NewRedisNotifier(redisUtil, m))
	}
	if cfg.KafkaEnabled() {
		kcfg := events.KafkaConfig{
			Brokers:  cfg.KafkaBrokers,
			Topic:    cfg.KafkaLedgerTopic,
			Username: cfg.KafkaUsername,
			Password: cfg.KafkaPassword,
			CACert:   cfg.KafkaCACert,
		}
		publisher := events.NewKafkaNotifier(kcfg, m)
		run(publisher.Run)
		notifier = append(notifier, publisher)

		// With Kafka in place the hub is fed from the topic so every
		// instance sees every write.
		consumer := events.NewKafkaFeedConsumer(kcfg, cfg.KafkaFeedGroupID, api.HubNotifier{Hub: hub}, m)
		run(consumer.Run)
		log.Printf("📡 Kafka enabled: brokers=%s topic=%s", cfg.KafkaBrokers, cfg.KafkaLedgerTopic)
	} else {
		notifier = append(notifier, api.HubNotifier{Hub: hub})
		log.Println("ℹ️ KAFKA_BROKERS not set, ledger feed is local only")
	}

	loc := cfg.Location()
	cutoff := utils.Cutoff{Hour: cfg.BusinessDayCutoffHour, Minute: cfg.BusinessDayCutoffMin}

	stockService := services.NewStockService(db)
	stockService.SetNotifier(notifier)
	stockService.SetMetrics(m)

	tableService := services.NewTableService(db)
	tableService.SetNotifier(notifier)

	menuService := services.NewMenuService(db, redisUtil)
	menuService.SetNotifier(notifier)
	menuService.SetMetrics(m)
	if err := menuService.LoadMenu(ctx); err != nil {
		log.Printf("⚠️ Initial menu load failed: %v", err)
	}
	menuService.StartAutoReload(ctx)
	defer menuService.Stop()

	orderService := services.NewOrderService(db, stockService, tableService, services.OrderConfig{
		Pricing:  services.PricingConfig{GSTEnabled: cfg.GSTEnabled, TaxRate: cfg.TaxRate},
		Policy:   policy,
		Cutoff:   cutoff,
		Location: loc,
	})
	orderService.SetNotifier(notifier)
	orderService.SetMetrics(m)
	log.Printf("🧾 Order entry policy: %s, GST enabled: %v (rate %.2f)", policy, cfg.GSTEnabled, cfg.TaxRate)

	reportService := services.NewReportService(db, redisUtil, cutoff, loc)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.SetupRouter(api.Services{
		DB:      db,
		Stock:   stockService,
		Menu:    menuService,
		Tables:  tableService,
		Orders:  orderService,
		Reports: reportService,
		Hub:     hub,
		Metrics: m,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("🚀 Ledger API listening on :%s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ HTTP server: %v", err)
		}
	}()

	healthServer := health.NewServer()
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Printf("⚠️ gRPC health listener on :%s failed: %v", cfg.GRPCPort, err)
	} else {
		go func() {
			if err := healthServer.Serve(lis); err != nil {
				log.Printf("⚠️ gRPC health server: %v", err)
			}
		}()
		run(func(ctx context.Context) {
			healthServer.Watch(ctx, health.DBChecker(db), 10*time.Second)
		})
	}

	<-ctx.Done()
	log.Println("🛑 Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ HTTP shutdown: %v", err)
	}
	healthServer.Stop()
	wg.Wait()
	log.Println("✅ Shutdown complete")
}

// maskURL hides credentials in a connection URL.
func maskURL(u string) string {
	at := strings.Index(u, "@")
	scheme := strings.Index(u, "://")
	if at < 0 || scheme < 0 || scheme > at {
		return u
	}
	return u[:scheme+3] + "***@" + u[at+1:]
}
