package member_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errors "github.com/frahmantamala/ran-loyalty/internal"
	walletDatamodel "github.com/frahmantamala/ran-loyalty/internal/core/datamodel/wallet"
	"github.com/frahmantamala/ran-loyalty/internal/core/events"
)

var _ = Describe("Member Service", func() {
	var f *fixture

	BeforeEach(func() {
		f = newFixture()
	})

	Describe("Register", func() {
		It("should create the member with the welcome bonus", func() {
			reg, err := f.service.Register(f.ctx, " Nguyễn An ", phone)
			Expect(err).NotTo(HaveOccurred())

			Expect(reg.Created).To(BeTrue())
			Expect(reg.Member.Name).To(Equal("Nguyễn An"))
			Expect(reg.WelcomeBonus).To(Equal(welcomeBonus))

			claims, err := f.sessions.Validate(reg.Token)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims.Phone()).To(Equal(phone))

			rows := f.ledger()
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].TransactionType).To(Equal(walletDatamodel.TypeWelcomeBonus))
			Expect(rows[0].IdempotencyKey).To(Equal("welcome:" + phone))
			Expect(rows[0].BalanceAfter).To(Equal(welcomeBonus))

			Expect(f.publisher.Types()).To(Equal([]string{
				events.EventTypeWalletCredited,
				events.EventTypeMemberRegistered,
			}))
		})

		It("should log in a known phone without a second bonus", func() {
			_, err := f.service.Register(f.ctx, "An", phone)
			Expect(err).NotTo(HaveOccurred())

			reg, err := f.service.Register(f.ctx, "Someone Else", phone)
			Expect(err).NotTo(HaveOccurred())
			Expect(reg.Created).To(BeFalse())
			Expect(reg.Member.Name).To(Equal("An"))
			Expect(reg.Member.LastLoginAt).NotTo(BeNil())
			Expect(reg.Token).NotTo(BeEmpty())

			Expect(f.ledger()).To(HaveLen(1))
			Expect(f.publisher.Types()).To(ContainElement(events.EventTypeMemberLoggedIn))
		})

		It("should validate name and phone", func() {
			_, err := f.service.Register(f.ctx, "", phone)
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(400))

			_, err = f.service.Register(f.ctx, "An", "09-123")
			appErr, ok = errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(400))
		})
	})

	Describe("Profile", func() {
		It("should include the wallet balances", func() {
			_, err := f.service.Register(f.ctx, "An", phone)
			Expect(err).NotTo(HaveOccurred())

			profile, err := f.service.Profile(f.ctx, phone)
			Expect(err).NotTo(HaveOccurred())
			Expect(profile.Member.Phone).To(Equal(phone))
			Expect(profile.Balance.BalanceRAN).To(Equal(welcomeBonus))
			Expect(profile.Balance.TotalEarnedRAN).To(Equal(welcomeBonus))
		})

		It("should answer 404 for unknown phones", func() {
			_, err := f.service.Profile(f.ctx, phone)
			Expect(err).To(MatchError(errors.ErrMemberNotFound))
		})
	})
})
