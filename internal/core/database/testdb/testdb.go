// Package testdb opens an in-memory sqlite database with every table of the
// service, for repository and flow tests.
package testdb

import (
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/ran-loyalty/internal/core/datamodel/bill"
	"github.com/frahmantamala/ran-loyalty/internal/core/datamodel/member"
	"github.com/frahmantamala/ran-loyalty/internal/core/datamodel/payment"
	"github.com/frahmantamala/ran-loyalty/internal/core/datamodel/voucher"
	"github.com/frahmantamala/ran-loyalty/internal/core/datamodel/wallet"
)

func Open() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	// every pooled connection to :memory: would be a separate database
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	err = db.AutoMigrate(
		&voucher.VoucherProduct{},
		&payment.PaymentIntent{},
		&payment.BankTransaction{},
		&wallet.Wallet{},
		&wallet.LedgerEntry{},
		&member.Member{},
		&bill.BillConfirmation{},
	)
	if err != nil {
		return nil, err
	}
	return db, nil
}
