package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"voyager/cmd/worker/config"
	traveldb "voyager/internal/db/travel"
	"voyager/internal/observability"
	"voyager/internal/providers"
	"voyager/internal/travel"
	"voyager/internal/travel/saga"
)

var openSagaDB = func(driver, dsn string) (*sql.DB, error) {
	return sql.Open(driver, dsn)
}

// buildStore wires the saga store from DATABASE_URL. An empty or failing DSN
// falls back to the in-memory store; the returned cleanup closes the DB.
func buildStore(ctx context.Context, logf func(format string, args ...any)) (saga.Store, func()) {
	if logf == nil {
		logf = log.Printf
	}

	cleanup := func() {}
	var store saga.Store = saga.NewMemoryStore()

	dsn := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dsn != "" {
		sqlDB, err := openSagaDB("pgx", dsn)
		if err != nil {
			logf("postgres open failed, falling back to in-memory saga store: %v", err)
		} else {
			setupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			pgStore, err := traveldb.NewInstanceStoreWithSchema(setupCtx, sqlDB)
			if err != nil {
				logf("postgres init failed, falling back to in-memory saga store: %v", err)
				_ = sqlDB.Close()
			} else {
				logf("postgres saga store enabled")
				store = pgStore
				cleanup = func() {
					if err := sqlDB.Close(); err != nil {
						logf("close postgres: %v", err)
					}
				}
			}
		}
	}

	return store, cleanup
}

// stepClients bundles the four provider clients the orchestrator calls.
type stepClients struct {
	flights  travel.FlightService
	hotels   travel.HotelService
	cars     travel.CarRentalService
	payments travel.PaymentService
}

// buildClients wires the provider clients from config, each behind the shared
// reliability guard. A provider without a configured URL gets the in-memory
// client so local runs work without any external services.
func buildClients(cfg config.ProvidersConfig, metrics *observability.Metrics, logf func(format string, args ...any)) (stepClients, error) {
	if logf == nil {
		logf = log.Printf
	}

	relCfg, err := travel.LoadReliabilityConfig()
	if err != nil {
		return stepClients{}, err
	}
	guard := travel.NewGuard(relCfg)
	if guard.Limiter != nil {
		guard.Limiter.OnWait(metrics.AddRateLimitWait)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	if cfg.StepTimeout > 0 {
		httpClient.Timeout = cfg.StepTimeout
	}

	clients := stepClients{}

	if cfg.FlightURL != "" {
		clients.flights = travel.NewReliableFlightClient(providers.NewFlightClient(providers.Config{
			BaseURL: cfg.FlightURL, HTTPClient: httpClient, Logf: logf,
		}), guard)
	} else {
		logf("FLIGHT_SERVICE_URL unset, using in-memory flight client")
		clients.flights = travel.NewInMemoryFlightClient()
	}

	if cfg.HotelURL != "" {
		clients.hotels = travel.NewReliableHotelClient(providers.NewHotelClient(providers.Config{
			BaseURL: cfg.HotelURL, HTTPClient: httpClient, Logf: logf,
		}), guard)
	} else {
		logf("HOTEL_SERVICE_URL unset, using in-memory hotel client")
		clients.hotels = travel.NewInMemoryHotelClient()
	}

	if cfg.CarURL != "" {
		clients.cars = travel.NewReliableCarClient(providers.NewCarClient(providers.Config{
			BaseURL: cfg.CarURL, HTTPClient: httpClient, Logf: logf,
		}), guard)
	} else {
		logf("CAR_SERVICE_URL unset, using in-memory car client")
		clients.cars = travel.NewInMemoryCarClient()
	}

	if cfg.PaymentURL != "" {
		clients.payments = travel.NewReliablePaymentClient(providers.NewPaymentClient(providers.Config{
			BaseURL: cfg.PaymentURL, HTTPClient: httpClient, Logf: logf,
		}), guard)
	} else {
		logf("PAYMENT_SERVICE_URL unset, using in-memory payment client")
		clients.payments = travel.NewInMemoryPaymentClient()
	}

	return clients, nil
}
