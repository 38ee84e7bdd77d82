package voucher_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	errors "github.com/frahmantamala/ran-loyalty/internal"
	"github.com/frahmantamala/ran-loyalty/internal/core/database/testdb"
	voucherDatamodel "github.com/frahmantamala/ran-loyalty/internal/core/datamodel/voucher"
	"github.com/frahmantamala/ran-loyalty/internal/transport"
	"github.com/frahmantamala/ran-loyalty/internal/voucher"
	voucherPostgres "github.com/frahmantamala/ran-loyalty/internal/voucher/postgres"
)

var _ = Describe("Voucher Service", func() {
	var (
		ctx     context.Context
		db      *gorm.DB
		repo    voucher.RepositoryAPI
		service *voucher.Service
		slogger *slog.Logger
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		slogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		db, err = testdb.Open()
		Expect(err).NotTo(HaveOccurred())

		repo = voucherPostgres.NewVoucherRepository(db)
		service = voucher.NewService(repo, slogger)
	})

	Describe("Seed", func() {
		It("should create the catalog once and update it afterwards", func() {
			created, updated, err := service.Seed(ctx, voucher.DefaultCatalog(), false)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(Equal(3))
			Expect(updated).To(Equal(0))

			catalog := voucher.DefaultCatalog()
			catalog[0].RewardRAN = 1200000
			created, updated, err = service.Seed(ctx, catalog, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(Equal(0))
			Expect(updated).To(Equal(3))

			row, err := repo.GetByName(ctx, "VIP 799k")
			Expect(err).NotTo(HaveOccurred())
			Expect(row.RewardRAN).To(Equal(int64(1200000)))
		})

		It("should wipe the catalog when clear is set", func() {
			extra := voucher.NewVoucher("Old", "retired", 1000, 1)
			Expect(repo.Create(ctx, voucher.ToDataModel(extra))).To(Succeed())

			_, _, err := service.Seed(ctx, voucher.DefaultCatalog(), true)
			Expect(err).NotTo(HaveOccurred())

			row, err := repo.GetByName(ctx, "Old")
			Expect(err).NotTo(HaveOccurred())
			Expect(row).To(BeNil())
		})
	})

	Describe("GetActive", func() {
		It("should return an active voucher", func() {
			v := voucher.NewVoucher("VIP 799k", "vip", 799000, 1000000)
			row := voucher.ToDataModel(v)
			Expect(repo.Create(ctx, row)).To(Succeed())

			got, err := service.GetActive(ctx, row.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.SellPriceVND).To(Equal(int64(799000)))
		})

		It("should hide inactive vouchers", func() {
			row := voucher.ToDataModel(voucher.NewVoucher("Old", "retired", 1000, 1))
			row.Status = voucherDatamodel.StatusInactive
			Expect(repo.Create(ctx, row)).To(Succeed())

			_, err := service.GetActive(ctx, row.ID)
			Expect(err).To(MatchError(errors.ErrVoucherNotFound))

			got, err := service.Get(ctx, row.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Name).To(Equal("Old"))
		})

		It("should report unknown ids as not found", func() {
			_, err := service.GetActive(ctx, "missing")
			Expect(err).To(MatchError(errors.ErrVoucherNotFound))
		})
	})

	Describe("Handler", func() {
		It("should list active vouchers ordered by price", func() {
			_, _, err := service.Seed(ctx, voucher.DefaultCatalog(), false)
			Expect(err).NotTo(HaveOccurred())

			handler := voucher.NewHandler(transport.NewBaseHandler(slogger), service)
			rec := httptest.NewRecorder()
			handler.ListVouchers(rec, httptest.NewRequest(http.MethodGet, "/api/v1/vouchers", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			var resp voucher.VouchersResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Success).To(BeTrue())
			Expect(resp.Vouchers).To(HaveLen(3))
			Expect(resp.Vouchers[0].SellPriceVND).To(Equal(int64(199000)))
		})
	})
})
