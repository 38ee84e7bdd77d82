package events_test

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/IBM/sarama/mocks"
	"github.com/frahmantamala/ran-loyalty/internal/core/events"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("KafkaForwarder", func() {
	var (
		producer  *mocks.SyncProducer
		forwarder *events.KafkaForwarder
	)

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		producer = mocks.NewSyncProducer(GinkgoT(), nil)
		forwarder = events.NewKafkaForwarder(producer, "ran.loyalty.events", logger)
	})

	AfterEach(func() {
		Expect(forwarder.Close()).To(Succeed())
	})

	It("should write the event as a JSON envelope", func() {
		event := events.NewWalletCreditedEvent("0900000000", 120, 620, "PURCHASE_CREDIT", "bank_txn:FT1")

		producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			env, err := events.DecodeEnvelope(val)
			if err != nil {
				return err
			}
			if env.Type != events.EventTypeWalletCredited || env.ID != event.EventID() {
				return errors.New("unexpected envelope header")
			}
			data, ok := env.Data.(map[string]interface{})
			if !ok || data["user_phone"] != "0900000000" {
				return errors.New("unexpected envelope data")
			}
			return nil
		})

		Expect(forwarder.Handle(context.Background(), event)).To(Succeed())
	})

	It("should surface producer failures", func() {
		producer.ExpectSendMessageAndFail(errors.New("broker down"))

		err := forwarder.Handle(context.Background(), events.NewMemberLoggedInEvent("0900000000", "An"))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("broker down"))
	})
})
