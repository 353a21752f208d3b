package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/config"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/libs/grpcx"
	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/salonbook/libs/otel"
	"github.com/md-rashed-zaman/salonbook/libs/runtime"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/grpcserver"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	grpcPort, grpcEnabled, err := config.OptionalPort("GRPC_PORT", "9093")
	if err != nil {
		panic(err)
	}
	step, err := config.Int("SLOT_STEP_MINUTES", availability.DefaultStep, availability.MinutesPerDay)
	if err != nil {
		panic(err)
	}
	location, err := config.Location("BUSINESS_TIMEZONE", "UTC")
	if err != nil {
		panic(err)
	}
	pollEvery, err := config.Millis("OUTBOX_POLL_MS", 2*time.Second)
	if err != nil {
		panic(err)
	}
	publicLimit, err := config.Int("PUBLIC_RATE_LIMIT", 120, 100000)
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL, db.Options{})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	outboxRepo := outbox.NewRepository(pool)
	scheduleRepo := storage.NewScheduleRepository(pool)
	bookingRepo := storage.NewBookingRepository(pool, outboxRepo)
	svc := booking.NewService(scheduleRepo, bookingRepo, logger, booking.Config{
		Step:     step,
		Location: location,
	})

	brokers := config.String("KAFKA_BROKERS", "")
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: pollEvery,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	}
	limiter, rdb := newPublicLimiter(logger, publicLimit)
	if rdb != nil {
		defer rdb.Close()
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
	}

	bookingHandler := handlers.NewBookingHandler(svc, logger)
	scheduleHandler := handlers.NewScheduleHandler(svc, logger)
	public := httpx.RateLimit(limiter, logger, true)

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.Handle("/api/v1/public/slots", public(http.HandlerFunc(bookingHandler.Slots)))
	mux.Handle("/api/v1/public/slots/check", public(http.HandlerFunc(bookingHandler.Check)))
	mux.Handle("/api/v1/public/book", public(http.HandlerFunc(bookingHandler.Create)))
	mux.HandleFunc("/api/v1/appointments", bookingHandler.List)
	mux.HandleFunc("/api/v1/appointments/cancel", bookingHandler.Cancel)
	mux.Handle("/api/v1/schedule", scheduleHandler)
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithCORS(httpx.PublicCORSPolicy(config.List("CORS_ALLOWED_ORIGINS", ""))),
		httpx.WithBodyLimit(1<<20),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	if grpcEnabled {
		if err := startGrpcServer(ctx, logger, grpcPort, svc); err != nil {
			logger.Error("grpc server failed to start", "err", err)
		}
	} else {
		logger.Info("grpc server disabled")
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

// newPublicLimiter uses Redis when REDIS_URL is set so replicas share one
// budget, and falls back to an in-process limiter otherwise.
func newPublicLimiter(logger *slog.Logger, perMinute int) (httpx.Limiter, *redis.Client) {
	url := config.String("REDIS_URL", "")
	if url == "" {
		logger.Info("rate limiting enabled (memory)", "per_minute", perMinute)
		return httpx.NewMemoryRateLimiter(perMinute, time.Minute), nil
	}
	rdb, err := httpx.NewRedisClient(url)
	if err != nil {
		logger.Error("invalid REDIS_URL, using memory rate limiter", "err", err)
		return httpx.NewMemoryRateLimiter(perMinute, time.Minute), nil
	}
	logger.Info("rate limiting enabled (redis)", "per_minute", perMinute)
	return httpx.NewRedisRateLimiter(rdb, perMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "booking:rl")), rdb
}

func startGrpcServer(ctx context.Context, logger *slog.Logger, port string, svc *booking.Service) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return err
	}

	srv := grpcx.NewServer(logger)
	hs := grpcserver.Register(srv, svc, logger)

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		hs.SetServingStatus(grpcserver.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
		srv.GracefulStop()
	}()

	return nil
}
