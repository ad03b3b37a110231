package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payment-service/config"
	"payment-service/controllers"
	"payment-service/logger"
	"payment-service/middleware"
	aws_pkg "payment-service/pkg/aws"
	"payment-service/providers"
	"payment-service/routes"
	"payment-service/services"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const serviceName = "payment-service"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("[PaymentService] ❌ Failed to load config:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// AWS clients are optional; the service runs without them locally.
	awsCfg, awsErr := aws_pkg.LoadAWSConfig(ctx)

	var logSink io.Writer
	if awsErr == nil && os.Getenv("CLOUDWATCH_ENABLED") == "true" {
		if cw, err := aws_pkg.NewCloudWatchLogsClient(ctx, awsCfg, serviceName); err == nil {
			logSink = cw
		} else {
			log.Println("[PaymentService] CloudWatch Logs unavailable:", err)
		}
	}

	zlog, err := logger.New(cfg.Env, logSink)
	if err != nil {
		log.Fatal("[PaymentService] ❌ Failed to initialize logger:", err)
	}
	defer zlog.Sync() //nolint:errcheck

	var (
		snsClient     aws_pkg.SNSPublisher
		metricsClient *aws_pkg.MetricsClient
		metrics       services.MetricsRecorder
	)
	if awsErr != nil {
		zlog.Warn("AWS config unavailable, SNS and metrics disabled", zap.Error(awsErr))
	} else {
		snsClient = aws_pkg.NewSNSClient(awsCfg)
		metricsClient = aws_pkg.NewMetricsClient(awsCfg)
		metrics = metricsClient
	}

	if !cfg.RazorpayConfigured() {
		zlog.Warn("Razorpay credentials not configured; set RAZORPAY_KEY_ID and RAZORPAY_SECRET")
	}

	var orderCache services.OrderCache
	if cfg.RedisURL != "" {
		redisClient, err := newRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			zlog.Warn("Redis unavailable, order idempotency disabled", zap.Error(err))
		} else {
			defer redisClient.Close() //nolint:errcheck
			orderCache = services.NewRedisOrderCache(redisClient)
		}
	}

	// Provider and DI chain
	gateway := providers.NewRazorpayProvider(providers.RazorpayConfig{
		KeyID:   cfg.RazorpayKeyID,
		Secret:  cfg.RazorpaySecret,
		BaseURL: cfg.RazorpayBaseURL,
		Timeout: cfg.GatewayTimeout,
	})
	orderService := services.NewOrderService(gateway, orderCache, services.OrderServiceConfig{
		PublicKeyID:       cfg.RazorpayKeyID,
		IdempotencyWindow: cfg.OrderIdempotencyWindow,
	}, zlog)
	verificationService := services.NewVerificationService(gateway, orderCache, snsClient, metrics, services.VerificationServiceConfig{
		Secret:      cfg.RazorpaySecret,
		SNSTopicArn: cfg.PaymentSNSTopicARN,
	}, zlog)
	paymentController := controllers.NewPaymentController(orderService, verificationService, cfg.RazorpayConfigured(), zlog)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	limiter := middleware.NewRateLimiter(rate.Every(time.Minute/100), 50, 5*time.Minute)
	go limiter.Cleanup(ctx)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestID())
	r.Use(middleware.RequestLogger(zlog))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RateLimit(limiter))
	r.Use(middleware.Metrics(metricsClient, serviceName))
	r.Use(middleware.Timeout(30 * time.Second))

	routes.RegisterPaymentRoutes(r, paymentController)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Server failed", zap.Error(err))
		}
	}()

	zlog.Info("Payment service started",
		zap.String("port", cfg.Port),
		zap.Bool("razorpay_configured", cfg.RazorpayConfigured()),
	)
	<-ctx.Done()
	zlog.Info("Shutting down payment service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	zlog.Info("Server exited cleanly")
}

// newRedisClient parses redisURL and checks the connection.
func newRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
