package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/ran-loyalty/internal/voucher"
	voucherPostgres "github.com/frahmantamala/ran-loyalty/internal/voucher/postgres"
	"github.com/frahmantamala/ran-loyalty/pkg/logger"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the voucher catalog",
	Long:  `Insert or refresh the voucher products sold for RAN.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		gormDB, err := initGorm(db)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		service := voucher.NewService(voucherPostgres.NewVoucherRepository(gormDB), logger.LoggerWrapper())
		catalog := voucher.DefaultCatalog()

		created, updated, err := service.Seed(context.Background(), catalog, clearData)
		if err != nil {
			log.Fatalf("failed to seed vouchers: %v", err)
		}

		for _, v := range catalog {
			fmt.Printf("Seeded voucher: %s (%d VND -> %d RAN) id=%s\n", v.Name, v.SellPriceVND, v.RewardRAN, v.ID)
		}
		fmt.Printf("Voucher catalog seeded successfully: %d created, %d updated\n", created, updated)
	},
}
