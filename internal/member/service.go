package member

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	errors "github.com/frahmantamala/ran-loyalty/internal"
	"github.com/frahmantamala/ran-loyalty/internal/auth"
	"github.com/frahmantamala/ran-loyalty/internal/core/common/validation"
	walletDatamodel "github.com/frahmantamala/ran-loyalty/internal/core/datamodel/wallet"
	"github.com/frahmantamala/ran-loyalty/internal/core/events"
	"github.com/frahmantamala/ran-loyalty/internal/wallet"
)

type RepositoryAPI interface {
	Get(ctx context.Context, phone string) (*Member, error)
	Create(ctx context.Context, m *Member) error
	TouchLogin(ctx context.Context, phone string, at time.Time) error
}

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type WalletAPI interface {
	Credit(ctx context.Context, req wallet.CreditRequest) (*wallet.Result, error)
	PublishCredited(ctx context.Context, res *wallet.Result)
	Balance(ctx context.Context, phone string) (wallet.Balance, error)
}

type SessionIssuer interface {
	Issue(phone, name string) (auth.Session, error)
}

type Service struct {
	repo         RepositoryAPI
	tx           Transactor
	wallet       WalletAPI
	sessions     SessionIssuer
	publisher    events.Publisher
	welcomeBonus int64
	logger       *slog.Logger
}

func NewService(repo RepositoryAPI, tx Transactor, walletService WalletAPI, sessions SessionIssuer, publisher events.Publisher, welcomeBonus int64, logger *slog.Logger) *Service {
	return &Service{
		repo:         repo,
		tx:           tx,
		wallet:       walletService,
		sessions:     sessions,
		publisher:    publisher,
		welcomeBonus: welcomeBonus,
		logger:       logger,
	}
}

// Register creates a member with the welcome bonus, or logs in the member
// that already owns the phone. Both paths return a session token.
func (s *Service) Register(ctx context.Context, name, phone string) (*Registration, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)

	v := validation.NewValidator()
	v.Field("name", name).Required().MaxLength(100)
	v.Field("phone", phone).Required().Phone()
	if appErr := v.Validate(); appErr != nil {
		return nil, appErr
	}

	existing, err := s.repo.Get(ctx, phone)
	if err != nil {
		s.logger.Error("failed to load member", "phone", phone, "error", err)
		return nil, errors.NewInternalError("Failed to load member", err)
	}
	if existing != nil {
		return s.login(ctx, existing)
	}

	reg, err := s.create(ctx, name, phone)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		// lost a race with another registration of the same phone
		existing, err = s.repo.Get(ctx, phone)
		if err != nil || existing == nil {
			return nil, errors.NewInternalError("Failed to load member", err)
		}
		return s.login(ctx, existing)
	}
	return reg, nil
}

func (s *Service) create(ctx context.Context, name, phone string) (*Registration, error) {
	now := time.Now().UTC()
	m := &Member{Phone: phone, Name: name, CreatedAt: now, LastLoginAt: &now}

	var credit *wallet.Result
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, m); err != nil {
			return err
		}
		if s.welcomeBonus <= 0 {
			return nil
		}
		res, err := s.wallet.Credit(ctx, wallet.CreditRequest{
			Phone:          phone,
			Amount:         s.welcomeBonus,
			IdempotencyKey: wallet.WelcomeKey(phone),
			Type:           walletDatamodel.TypeWelcomeBonus,
			Description:    "Welcome bonus",
			ReferenceID:    phone,
			ReferenceType:  walletDatamodel.ReferenceMember,
		})
		credit = res
		return err
	})
	if err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil
		}
		if _, ok := errors.IsAppError(err); ok {
			return nil, err
		}
		s.logger.Error("failed to register member", "phone", phone, "error", err)
		return nil, errors.NewInternalError("Failed to register member", err)
	}

	s.wallet.PublishCredited(ctx, credit)
	s.publish(ctx, events.NewMemberRegisteredEvent(phone, name, s.welcomeBonus))
	s.logger.Info("member registered", "phone", phone, "welcome_bonus", s.welcomeBonus)

	return s.withSession(&Registration{Member: m, Created: true, WelcomeBonus: s.welcomeBonus})
}

func (s *Service) login(ctx context.Context, m *Member) (*Registration, error) {
	now := time.Now().UTC()
	if err := s.repo.TouchLogin(ctx, m.Phone, now); err != nil {
		s.logger.Warn("failed to record login", "phone", m.Phone, "error", err)
	} else {
		m.LastLoginAt = &now
	}

	s.publish(ctx, events.NewMemberLoggedInEvent(m.Phone, m.Name))
	s.logger.Info("member logged in", "phone", m.Phone)

	return s.withSession(&Registration{Member: m})
}

func (s *Service) withSession(reg *Registration) (*Registration, error) {
	session, err := s.sessions.Issue(reg.Member.Phone, reg.Member.Name)
	if err != nil {
		return nil, errors.NewInternalError("Failed to issue session", err)
	}
	reg.Token = session.Token
	reg.ExpiresAt = session.ExpiresAt
	return reg, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish member event", "event_type", event.EventType(), "error", err)
	}
}

func (s *Service) Profile(ctx context.Context, phone string) (*Profile, error) {
	m, err := s.repo.Get(ctx, phone)
	if err != nil {
		return nil, errors.NewInternalError("Failed to load member", err)
	}
	if m == nil {
		return nil, errors.ErrMemberNotFound
	}

	balance, err := s.wallet.Balance(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("load balance: %w", err)
	}
	return &Profile{Member: m, Balance: balance}, nil
}
