package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/ran-loyalty/internal"
	"github.com/frahmantamala/ran-loyalty/internal/adminbot"
	"github.com/frahmantamala/ran-loyalty/internal/auth"
	"github.com/frahmantamala/ran-loyalty/internal/core/database"
	"github.com/frahmantamala/ran-loyalty/internal/core/events"
	"github.com/frahmantamala/ran-loyalty/internal/member"
	memberPostgres "github.com/frahmantamala/ran-loyalty/internal/member/postgres"
	"github.com/frahmantamala/ran-loyalty/internal/order"
	orderPostgres "github.com/frahmantamala/ran-loyalty/internal/order/postgres"
	"github.com/frahmantamala/ran-loyalty/internal/payment"
	paymentPostgres "github.com/frahmantamala/ran-loyalty/internal/payment/postgres"
	"github.com/frahmantamala/ran-loyalty/internal/telegram"
	"github.com/frahmantamala/ran-loyalty/internal/transport"
	"github.com/frahmantamala/ran-loyalty/internal/transport/rest"
	"github.com/frahmantamala/ran-loyalty/internal/transport/swagger"
	"github.com/frahmantamala/ran-loyalty/internal/voucher"
	voucherPostgres "github.com/frahmantamala/ran-loyalty/internal/voucher/postgres"
	"github.com/frahmantamala/ran-loyalty/internal/wallet"
	walletPostgres "github.com/frahmantamala/ran-loyalty/internal/wallet/postgres"
	"github.com/frahmantamala/ran-loyalty/pkg/lock"
	"github.com/frahmantamala/ran-loyalty/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Gorm     *gorm.DB
	Redis    *redis.Client
	Producer sarama.SyncProducer
	EventBus *events.EventBus
	Router   *chi.Mux
	Sweeper  *payment.Sweeper
	Logger   *slog.Logger
}

func startHTTPServer() {
	config := mustLoadConfig()

	deps, err := initializeDependencies(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	go func() {
		_ = deps.Sweeper.Run(workerCtx)
	}()

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		stopWorkers()
		if err := deps.EventBus.Wait(ctx); err != nil {
			deps.Logger.Warn("event handlers still running at shutdown", "error", err)
		}
		deps.close()
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			deps.close()
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func (d *Dependencies) close() {
	if d.Producer != nil {
		if err := d.Producer.Close(); err != nil {
			d.Logger.Error("Kafka producer close error", "error", err)
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("Redis close error", "error", err)
		}
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

func initializeDependencies(config *internal.Config) (*Dependencies, error) {
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	deps := &Dependencies{
		Config:   config,
		DB:       db,
		Gorm:     gormDB,
		EventBus: events.NewEventBus(lg),
		Router:   chi.NewRouter(),
		Logger:   lg,
	}

	var healthChecks []rest.Check
	var locker lock.Locker = lock.NewLocalLocker()
	if config.Redis.Enabled {
		deps.Redis = lock.NewRedisClient(config.Redis.Addr, config.Redis.Password, config.Redis.DB)
		locker = lock.NewRedisLocker(deps.Redis, "ran-loyalty", config.Redis.LockTTL)
		healthChecks = append(healthChecks, rest.Check{
			Name: "redis",
			Ping: func(ctx context.Context) error { return deps.Redis.Ping(ctx).Err() },
		})
	}

	if config.Kafka.Enabled {
		producer, err := events.NewKafkaProducer(config.Kafka.KafkaBrokers())
		if err != nil {
			deps.close()
			return nil, err
		}
		deps.Producer = producer
		events.NewKafkaForwarder(producer, config.Kafka.Topic, lg).Register(deps.EventBus)
	}

	var sender telegram.Sender = telegram.NopSender{}
	if config.Telegram.Enabled {
		sender = telegram.NewClient(telegram.Config{
			BotToken: config.Telegram.BotToken,
			APIURL:   config.Telegram.APIURL,
			Timeout:  config.Telegram.Timeout,
		}, lg)
	} else {
		lg.Warn("telegram disabled, notifications will be dropped")
	}

	if config.Server.OpenAPIPath != "" {
		if _, err := swagger.LoadSpec(context.Background(), config.Server.OpenAPIPath); err != nil {
			deps.close()
			return nil, err
		}
	}

	transactor := database.NewTransactor(gormDB)

	voucherService := voucher.NewService(voucherPostgres.NewVoucherRepository(gormDB), lg)

	paymentRepo := paymentPostgres.NewPaymentRepository(gormDB)
	paymentService := payment.NewService(paymentRepo, voucherService, deps.EventBus, payment.Options{
		ContentPrefix: config.Payment.ContentPrefix,
		IntentTTL:     config.Payment.IntentTTL,
		AccountNumber: config.Payment.AccountNumber,
		BankName:      config.Payment.BankName,
	}, lg)

	walletService := wallet.NewService(walletPostgres.NewWalletRepository(gormDB), transactor, deps.EventBus, paymentService, lg)

	reconciler := payment.NewReconciler(paymentRepo, voucherService, walletService, transactor, locker, deps.EventBus, config.Payment.ContentPrefix, lg)
	deps.Sweeper = payment.NewSweeper(paymentService, config.Worker.ExpiryInterval, lg)

	sessions := auth.NewSessionIssuer(config.Security.SessionSecret, config.Security.SessionTokenTTL)
	memberService := member.NewService(memberPostgres.NewMemberRepository(gormDB), transactor, walletService, sessions, deps.EventBus, config.Rewards.WelcomeBonusRAN, lg)

	billRepo := orderPostgres.NewBillRepository(gormDB)
	orderService := order.NewService(sender, billRepo, config.Telegram.OrderChatID, config.Rewards.StoreName, lg)

	bot := adminbot.NewBot(sender, reconciler, walletService, billRepo, transactor,
		[]string{config.Telegram.VoucherChatID, config.Telegram.OrderChatID}, lg)

	payment.NewEventHandler(sender, config.Telegram.VoucherChatID, config.Rewards.StoreName, lg).RegisterEventHandlers(deps.EventBus)
	member.NewEventHandler(sender, config.Telegram.AuthChatID, config.Rewards.StoreName, lg).RegisterEventHandlers(deps.EventBus)

	base := transport.NewBaseHandler(lg)
	rest.RegisterAllRoutes(deps.Router, rest.Routes{
		Base:           base,
		Logger:         lg,
		AllowedOrigins: config.Server.AllowedOrigins,
		OpenAPIPath:    config.Server.OpenAPIPath,
		Sessions:       sessions,
		WebhookKey:     auth.NewKeyVerifier(config.Security.BankWebhookKeyHash),
		TelegramKey:    auth.NewKeyVerifier(config.Security.TelegramSecretHash),
		AdminKey:       auth.NewKeyVerifier(config.Security.AdminKeyHash),
		Health:         rest.NewHealthHandler(base, db, healthChecks...),
		Voucher:        voucher.NewHandler(base, voucherService),
		Payment:        payment.NewHandler(base, paymentService),
		Webhook:        payment.NewWebhookHandler(base, reconciler),
		Wallet:         wallet.NewHandler(base, walletService),
		Member:         member.NewHandler(base, memberService),
		Order:          order.NewHandler(base, orderService),
		AdminBot:       adminbot.NewHandler(base, bot),
	})

	return deps, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm runs gorm on top of the pool opened by initDB.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
}
