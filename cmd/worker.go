package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/ran-loyalty/internal/core/events"
	"github.com/frahmantamala/ran-loyalty/internal/payment"
	paymentPostgres "github.com/frahmantamala/ran-loyalty/internal/payment/postgres"
	"github.com/frahmantamala/ran-loyalty/internal/voucher"
	voucherPostgres "github.com/frahmantamala/ran-loyalty/internal/voucher/postgres"
	"github.com/frahmantamala/ran-loyalty/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start background workers that run next to or instead of the ones embedded in the HTTP server.`,
}

// Expiry worker command
var expiryWorkerCmd = &cobra.Command{
	Use:   "expiry",
	Short: "Start the payment intent expiry sweeper",
	Long:  `Periodically mark pending payment intents past their expiry as expired`,
	Run: func(cmd *cobra.Command, args []string) {
		startExpiryWorker()
	},
}

var (
	expiryInterval time.Duration
	expiryOnce     bool
)

func startExpiryWorker() {
	config := mustLoadConfig()
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	gormDB, err := initGorm(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize gorm: %v\n", err)
		os.Exit(1)
	}

	vouchers := voucher.NewService(voucherPostgres.NewVoucherRepository(gormDB), lg)
	service := payment.NewService(paymentPostgres.NewPaymentRepository(gormDB), vouchers, events.NewEventBus(lg), payment.Options{
		ContentPrefix: config.Payment.ContentPrefix,
		IntentTTL:     config.Payment.IntentTTL,
		AccountNumber: config.Payment.AccountNumber,
		BankName:      config.Payment.BankName,
	}, lg)

	if expiryOnce {
		n, err := service.ExpireStale(context.Background())
		if err != nil {
			lg.Error("expiry sweep failed", "error", err)
			os.Exit(1)
		}
		lg.Info("expiry sweep complete", "expired", n)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	interval := expiryInterval
	if interval <= 0 {
		interval = config.Worker.ExpiryInterval
	}

	lg.Info("expiry worker is running. Press Ctrl+C to stop.", "interval", interval)
	_ = payment.NewSweeper(service, interval, lg).Run(ctx)
	lg.Info("expiry worker shutdown complete")
}

func init() {
	expiryWorkerCmd.Flags().DurationVar(&expiryInterval, "interval", 0, "Sweep interval (overrides config)")
	expiryWorkerCmd.Flags().BoolVar(&expiryOnce, "once", false, "Run a single sweep and exit")

	workerCmd.AddCommand(expiryWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
