package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/config"
	httpx "github.com/you/accountsvc/internal/http"
	"github.com/you/accountsvc/internal/http/handlers"
	"github.com/you/accountsvc/internal/http/middleware"
	"github.com/you/accountsvc/internal/infrastructure/auth"
	"github.com/you/accountsvc/internal/infrastructure/database"
	"github.com/you/accountsvc/internal/infrastructure/notifications"
	"github.com/you/accountsvc/internal/infrastructure/repositories"
	"github.com/you/accountsvc/internal/services"
)

// Container holds all dependencies
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Infrastructure. PolicyDB is DB for the SQL drivers and a separate sqlite file for mongo.
	DB       *gorm.DB
	PolicyDB *gorm.DB
	Mongo    *mongo.Client
	Redis    *redis.Client

	Accounts   domain.AccountRepository
	Casbin     *auth.CasbinService
	Dispatcher *notifications.Dispatcher

	AccountSvc *services.AccountServiceImpl
	PolicySvc  domain.PolicyService
	Sweeper    *services.ResetSweeper
}

// NewContainer connects the stores and builds every service; on error nothing is left open
func NewContainer(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: log}

	steps := []func(context.Context) error{
		c.initStores,
		c.initRedis,
		c.initCasbin,
		c.initServices,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			_ = c.Close()
			return nil, err
		}
	}
	return c, nil
}

func (c *Container) initStores(ctx context.Context) error {
	cfg := c.Config
	if cfg.DBDriver == "mongo" {
		client, err := database.ConnectMongo(ctx, cfg.DSN)
		if err != nil {
			return err
		}
		c.Mongo = client
		repo := repositories.NewMongoAccountRepository(client.Database(cfg.DBName).Collection(cfg.DBCollection))
		if err := repo.EnsureIndexes(ctx); err != nil {
			return err
		}
		c.Accounts = repo

		policyDB, err := database.Open("sqlite", cfg.CasbinDSN, cfg.LogLevel)
		if err != nil {
			return err
		}
		c.PolicyDB = policyDB
		return database.MigratePolicies(policyDB)
	}

	db, err := database.Open(cfg.DBDriver, cfg.DSN, cfg.LogLevel)
	if err != nil {
		return err
	}
	c.DB = db
	c.PolicyDB = db
	if err := database.AutoMigrate(db); err != nil {
		return err
	}
	c.Accounts = repositories.NewAccountRepository(db)
	return nil
}

// initRedis is skipped when no address is configured; login then re-sends verification without a throttle
func (c *Container) initRedis(ctx context.Context) error {
	if c.Config.RedisAddr == "" {
		c.Logger.Warn("redis address not configured, verification re-sends are not throttled")
		return nil
	}
	rc := database.NewRedis(c.Config.RedisAddr, c.Config.RedisPassword, c.Config.RedisDB)
	if err := rc.Ping(ctx); err != nil {
		_ = rc.Close()
		return err
	}
	c.Redis = rc.Client
	return nil
}

func (c *Container) initCasbin(context.Context) error {
	cas, err := auth.NewCasbinService(c.PolicyDB, c.Config.CasbinModelPath)
	if err != nil {
		return err
	}
	added, err := cas.SeedDefaults()
	if err != nil {
		return fmt.Errorf("casbin seed: %w", err)
	}
	if added > 0 {
		c.Logger.Info("casbin: seeded default policies", slog.Int("count", added))
	}
	c.Casbin = cas
	c.PolicySvc = services.NewPolicyService(cas.E)
	return nil
}

func (c *Container) initServices(context.Context) error {
	cfg := c.Config

	c.Dispatcher = notifications.NewDispatcher(
		notifications.NewRouter(c.smsSender(), c.emailSender()),
		notifications.NewRenderer(cfg.PublicBaseURL, cfg.VerificationTTL, cfg.ResetTokenTTL),
		notifications.DispatcherConfig{
			Workers:     cfg.DispatchWorkers,
			QueueSize:   cfg.DispatchQueueSize,
			SendTimeout: cfg.DispatchTimeout,
		},
		c.Logger.With(slog.String("component", "dispatcher")),
	)

	opts := []services.AccountServiceOption{
		services.WithServiceLogger(c.Logger.With(slog.String("component", "accounts"))),
	}
	if c.Redis != nil {
		opts = append(opts, services.WithVerificationThrottle(
			repositories.NewVerificationThrottle(c.Redis, cfg.ResendWindow)))
	}

	c.AccountSvc = services.NewAccountService(
		c.Accounts,
		services.NewUniquenessGuard(c.Accounts),
		auth.NewPasswordService(cfg.BcryptCost),
		auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer),
		c.Dispatcher,
		services.NewSlogAuditLogger(c.Logger.With(slog.String("component", "audit"))),
		services.AccountServiceConfig{
			SessionTTL:          cfg.SessionTTL,
			VerificationTTL:     cfg.VerificationTTL,
			ResetTokenTTL:       cfg.ResetTokenTTL,
			ResetMirrorTTL:      cfg.ResetMirrorTTL,
			LoginPolicies:       cfg.LoginPolicies,
			VerificationChannel: cfg.VerificationChannel,
		},
		opts...,
	)

	sweeper, err := services.NewResetSweeper(c.Accounts, cfg.ResetSweepSchedule, c.Logger.With(slog.String("component", "sweeper")))
	if err != nil {
		return err
	}
	c.Sweeper = sweeper
	return nil
}

func (c *Container) emailSender() notifications.EmailSender {
	cfg := c.Config
	switch cfg.EmailProvider {
	case "sendgrid":
		return notifications.NewSendGridEmailSender(cfg.SendGridAPIKey, cfg.EmailFrom, cfg.EmailFromName)
	case "smtp":
		return notifications.NewSMTPEmailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom, cfg.EmailFromName)
	default:
		return notifications.NewLogSender(c.Logger.With(slog.String("component", "mail")))
	}
}

func (c *Container) smsSender() notifications.SMSSender {
	cfg := c.Config
	if cfg.TwilioSID == "" {
		return notifications.NewLogSender(c.Logger.With(slog.String("component", "sms")))
	}
	return notifications.NewTwilioSMSSender(cfg.TwilioSID, cfg.TwilioToken, cfg.TwilioFrom, c.Logger.With(slog.String("component", "twilio")))
}

// Router mounts the HTTP surface on the container's services
func (c *Container) Router() *gin.Engine {
	enforcer := services.NewCasbinEnforcerWrapper(c.Casbin.E)
	return httpx.BuildRouter(httpx.Deps{
		Logger:   c.Logger,
		Accounts: handlers.NewAccountHandlers(c.AccountSvc),
		Policies: handlers.NewPolicyHandlers(c.PolicySvc),
		External: handlers.NewExternalAuthzHandlers(c.AccountSvc, enforcer),
		Session:  middleware.NewAuthMW(c.AccountSvc),
		Casbin:   middleware.NewCasbinMW(enforcer, c.Config.OwnershipRules),
		Limiter:  middleware.NewRateLimiter(c.Config.RateLimitRPS, c.Config.RateLimitBurst),
	})
}

// Start launches the dispatcher workers and the reset sweeper
func (c *Container) Start(ctx context.Context) {
	c.Dispatcher.Start(ctx)
	c.Sweeper.Start()
}

// Close stops background work and closes all connections
func (c *Container) Close() error {
	if c.Sweeper != nil {
		c.Sweeper.Stop()
	}
	if c.Dispatcher != nil {
		c.Dispatcher.Stop()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Mongo != nil {
		_ = c.Mongo.Disconnect(context.Background())
	}
	if c.PolicyDB != nil && c.PolicyDB != c.DB {
		_ = database.Close(c.PolicyDB)
	}
	if c.DB != nil {
		return database.Close(c.DB)
	}
	return nil
}
