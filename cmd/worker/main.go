package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"voyager/cmd/worker/config"
	"voyager/internal/adapters/rest"
	"voyager/internal/journal"
	"voyager/internal/observability"
	"voyager/internal/realtime"
	"voyager/internal/travel"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("worker error: %v", err)
	}
}

func run(ctx context.Context) error {
	metrics := observability.NewMetrics()

	store, cleanupStore := buildStore(ctx, log.Printf)
	defer cleanupStore()

	providersCfg, err := config.LoadProviders()
	if err != nil {
		return err
	}
	clients, err := buildClients(providersCfg, metrics, log.Printf)
	if err != nil {
		return err
	}

	hub := realtime.NewHub(log.Printf)
	go hub.Run(ctx)

	publisher, cleanupPublisher, err := buildPublisher(ctx, hub)
	if err != nil {
		return err
	}
	defer cleanupPublisher()

	orchestrator := travel.NewOrchestrator(travel.OrchestratorConfig{
		Store:       store,
		Flights:     clients.flights,
		Hotels:      clients.hotels,
		Cars:        clients.cars,
		Payments:    clients.payments,
		Publisher:   publisher,
		Metrics:     metrics,
		StepTimeout: providersCfg.StepTimeout,
	})

	intakeCfg, err := config.LoadIntake()
	if err != nil {
		return err
	}
	handler := rest.NewHandler(orchestrator, store, log.Printf)
	mux := http.NewServeMux()
	mux.Handle("/", rest.NewRouter(handler))
	mux.HandleFunc("/ws", hub.ServeWS)

	intakeSrv := &http.Server{Addr: intakeCfg.Addr, Handler: mux}

	obsSrv, err := startObservabilityServer(metrics)
	if err != nil {
		return err
	}

	log.Printf("intake listening on %s", intakeCfg.Addr)
	errCh := make(chan error, 1)
	go func() {
		if err := intakeSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		metrics.MarkShutdown(0)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = intakeSrv.Shutdown(shutdownCtx)
		if obsSrv != nil {
			_ = obsSrv.Shutdown(shutdownCtx)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// buildPublisher assembles the outbound fanout: terminal events to connected
// WebSocket clients, the full trail to the file journal when JOURNAL_PATH is
// set, and every event to Redis when REDIS_URL is set.
func buildPublisher(ctx context.Context, hub *realtime.Hub) (travel.EventPublisher, func(), error) {
	targets := []travel.EventPublisher{travel.NewTerminalEventPublisher(hub)}
	cleanup := func() {}

	if path := strings.TrimSpace(os.Getenv("JOURNAL_PATH")); path != "" {
		fileJournal, err := journal.Open(path)
		if err != nil {
			return nil, nil, err
		}
		targets = append(targets, travel.NewWALPublisher(fileJournal))
		cleanup = func() { _ = fileJournal.Close() }
	} else {
		log.Printf("JOURNAL_PATH unset, event journal disabled")
	}

	redisCfg, err := config.LoadRedis()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	redisPublisher, cleanupRedis, err := buildRedisPublisher(ctx, redisCfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if redisPublisher != nil {
		targets = append(targets, redisPublisher)
		prev := cleanup
		cleanup = func() {
			cleanupRedis()
			prev()
		}
	} else {
		log.Printf("REDIS_URL unset, redis event publisher disabled")
	}

	return travel.NewFanoutPublisher(targets...), cleanup, nil
}

func startObservabilityServer(metrics *observability.Metrics) (*http.Server, error) {
	cfg, err := config.LoadObservability()
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler(metrics))

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("observability server error: %v", err)
		}
	}()

	return srv, nil
}
