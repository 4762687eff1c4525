package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"sentinelhive/internal/cache"
	"sentinelhive/internal/config"
	"sentinelhive/internal/logging"
	"sentinelhive/internal/model"
	"sentinelhive/internal/pkg/token"
	dbClient "sentinelhive/internal/platform/db"
	rabbitmqClient "sentinelhive/internal/platform/rabbitmq"
	redisClient "sentinelhive/internal/platform/redis"
	"sentinelhive/internal/repository"
	"sentinelhive/internal/worker"
)

// App holds the shared resources of one API server process. Redis and
// RabbitMQ are optional: their fields stay nil when not configured.
type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *gorm.DB
	Redis       *redis.Client
	MQConn      *amqp.Connection
	TokenCodec  *token.Codec
	Denylist    cache.TokenDenylist
	AuditWorker *worker.AuditWorker

	StartedAt time.Time
}

func New(ctx context.Context, role string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	return NewWithConfig(ctx, cfg, role)
}

func NewWithConfig(ctx context.Context, cfg *config.Config, role string) (*App, error) {
	logger := logging.New(cfg.App.Env, role)

	gormDB, err := dbClient.Open(ctx, cfg.Database, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := gormDB.AutoMigrate(&model.User{}, &model.DataRecord{}, &model.AuditEvent{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	app := &App{
		Config:     cfg,
		Logger:     logger,
		DB:         gormDB,
		TokenCodec: token.NewCodec(cfg.Auth.Secret, time.Duration(cfg.Auth.TokenTTLSeconds)*time.Second),
		Denylist:   cache.NewMemoryDenylist(),
		StartedAt:  time.Now(),
	}

	if cfg.Redis.Addr != "" {
		redisCli, err := redisClient.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		app.Redis = redisCli
		app.Denylist = cache.NewRedisDenylist(redisCli)
	}

	if cfg.RabbitMQ.URL != "" {
		mqConn, err := rabbitmqClient.New(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		app.MQConn = mqConn

		if role == "db-api" {
			auditRepo := repository.NewAuditEventRepository(gormDB)
			app.AuditWorker = worker.NewAuditWorker(mqConn, auditRepo, cfg.RabbitMQ.IngestAuditQueue, logger)
			if err := app.AuditWorker.Start(ctx); err != nil {
				return nil, fmt.Errorf("start audit worker failed: %w", err)
			}
		}
	}

	if err := seedAdminUser(gormDB, cfg, logger); err != nil {
		return nil, err
	}

	return app, nil
}

// seedAdminUser provisions the default admin account on first start so a
// fresh hub is immediately usable.
func seedAdminUser(db *gorm.DB, cfg *config.Config, logger *zap.Logger) error {
	if cfg.Auth.SeedAdminUser == "" {
		return nil
	}

	userRepo := repository.NewUserRepository(db)
	existing, err := userRepo.GetByUserID(cfg.Auth.SeedAdminUser)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Auth.SeedAdminPass), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash seed password failed: %w", err)
	}
	if err := userRepo.Create(&model.User{
		UserID:       cfg.Auth.SeedAdminUser,
		PasswordHash: string(hash),
		Role:         "admin",
	}); err != nil {
		return err
	}

	logger.Info("seeded admin user", zap.String("user_id", cfg.Auth.SeedAdminUser))
	return nil
}

func (a *App) AuditPublisher() *rabbitmqClient.EventPublisher {
	if a.MQConn == nil {
		return nil
	}
	return rabbitmqClient.NewEventPublisher(a.MQConn, a.Config.RabbitMQ.IngestAuditQueue)
}

func (a *App) Close() error {
	var closeErr error
	if a.AuditWorker != nil {
		a.AuditWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	_ = a.Logger.Sync()
	return closeErr
}
