package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/chitrakala/auth-service/internal/config"
	"github.com/chitrakala/auth-service/internal/handlers"
	"github.com/chitrakala/auth-service/internal/middleware"
	"github.com/chitrakala/auth-service/internal/otp"
	"github.com/chitrakala/auth-service/internal/service"
	"github.com/chitrakala/auth-service/internal/store"
	"github.com/chitrakala/auth-service/internal/whatsapp"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	limiter "github.com/ulule/limiter/v3"
	mhttp "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limitermemory "github.com/ulule/limiter/v3/drivers/store/memory"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if cfg.TestMode.Enabled {
		logger.Warn("TEST_MODE is enabled; the OTP bypass pair is active")
	}

	backend, err := initBackend(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize persistence backend")
	}
	defer backend.Close()

	otpStore, err := initOTPStore(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize OTP store")
	}

	challenge := otp.NewChallenge(otpStore, cfg.OTP.Expiry, cfg.OTP.MaxAttempts, logger)
	sessions := service.NewSessions(backend, cfg.Session.TTL, cfg.Session.TokenLength, logger)
	users := service.NewUsers(backend, logger)
	dispatcher := whatsapp.NewFromConfig(&cfg.WhatsApp, logger)

	authHandlers := handlers.NewAuthHandlers(challenge, sessions, users, dispatcher, cfg.TestMode, logger)
	userHandlers := handlers.NewUserHandlers(users, logger)
	authMiddleware := middleware.NewAuthMiddleware(sessions, logger)

	scheduler := cron.New()
	_, err = scheduler.AddFunc(fmt.Sprintf("@every %s", cfg.OTP.SweepInterval), func() {
		if removed := challenge.Sweep(context.Background()); removed > 0 {
			logger.WithField("removed", removed).Info("Swept expired OTP records")
		}
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to schedule OTP sweep")
	}
	scheduler.Start()
	defer scheduler.Stop()

	router, err := setupRouter(cfg, authHandlers, userHandlers, authMiddleware, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to set up router")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":    cfg.Server.Port,
			"backend": cfg.Database.Backend,
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

// initBackend resolves the persistence backend once at startup from
// explicit configuration. The only fallback is postgres→memory, and it is
// gated behind DB_FALLBACK_MEMORY; without the flag an unreachable database
// is fatal.
func initBackend(cfg *config.Config, logger *logrus.Logger) (store.Store, error) {
	switch cfg.Database.Backend {
	case config.BackendPostgres:
		pg, err := store.NewPostgresStore(&cfg.Database.Postgres, logger)
		if err != nil {
			return nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := pg.Ping(ctx); err != nil {
			if cfg.Database.FallbackToMemory {
				logger.WithError(err).Warn("Postgres unreachable, falling back to in-memory store")
				pg.Close()
				return store.NewMemoryStore(logger), nil
			}
			pg.Close()
			return nil, fmt.Errorf("postgres unreachable: %w", err)
		}

		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}

		logger.Info("Postgres backend initialized")
		return pg, nil

	case config.BackendDynamo:
		client, err := initDynamoDB(cfg, logger)
		if err != nil {
			return nil, err
		}
		return store.NewDynamoStore(client, cfg.Database.DynamoDB.TableName, logger), nil

	case config.BackendMemory:
		logger.Warn("Using in-memory persistence backend; state will not survive a restart")
		return store.NewMemoryStore(logger), nil

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Database.Backend)
	}
}

func initOTPStore(cfg *config.Config, logger *logrus.Logger) (otp.Store, error) {
	switch cfg.OTP.Store {
	case config.OTPStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Endpoint,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis unreachable: %w", err)
		}

		logger.Info("Redis OTP store initialized")
		return otp.NewRedisStore(client), nil

	case config.OTPStoreMemory:
		return otp.NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown OTP store %q", cfg.OTP.Store)
	}
}

func initDynamoDB(cfg *config.Config, logger *logrus.Logger) (*dynamodb.Client, error) {
	var awsCfg aws.Config
	var err error

	if cfg.Database.DynamoDB.Endpoint != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO(),
			awsconfig.WithRegion(cfg.Database.DynamoDB.Region),
			awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{
						URL:           cfg.Database.DynamoDB.Endpoint,
						SigningRegion: cfg.Database.DynamoDB.Region,
					}, nil
				})),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO())
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg)
	logger.Info("DynamoDB client initialized")
	return client, nil
}

func setupRouter(
	cfg *config.Config,
	authHandlers *handlers.AuthHandlers,
	userHandlers *handlers.UserHandlers,
	authMiddleware *middleware.AuthMiddleware,
	logger *logrus.Logger,
) (*mux.Router, error) {
	router := mux.NewRouter()

	router.Use(middleware.CORSMiddleware)
	router.Use(middleware.LoggingMiddleware(logger))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "OPTIONS")

	// Verification attempts are rate limited: the 4-digit code space is
	// small, so unthrottled guessing would be practical within the TTL.
	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit.VerifyOTP)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", cfg.RateLimit.VerifyOTP, err)
	}
	verifyLimiter := mhttp.NewMiddleware(limiter.New(limitermemory.NewStore(), rate))

	auth := router.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/send-otp", authHandlers.SendOTP).Methods("POST", "OPTIONS")
	auth.Handle("/verify-otp", verifyLimiter.Handler(http.HandlerFunc(authHandlers.VerifyOTP))).Methods("POST", "OPTIONS")
	auth.Handle("/verify-session", authMiddleware.RequireAuth(http.HandlerFunc(authHandlers.VerifySession))).Methods("GET", "OPTIONS")
	auth.HandleFunc("/logout", authHandlers.Logout).Methods("POST", "OPTIONS")

	users := router.PathPrefix("/users").Subrouter()
	users.Use(authMiddleware.RequireAuth)
	users.HandleFunc("/profile", userHandlers.GetProfile).Methods("GET", "OPTIONS")
	users.HandleFunc("/language", userHandlers.UpdateLanguage).Methods("PUT", "OPTIONS")

	return router, nil
}
