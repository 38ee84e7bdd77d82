package member

import (
	"time"

	memberDatamodel "github.com/frahmantamala/ran-loyalty/internal/core/datamodel/member"
	"github.com/frahmantamala/ran-loyalty/internal/wallet"
)

type Member struct {
	Phone       string     `json:"phone"`
	Name        string     `json:"name"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func FromDataModel(m *memberDatamodel.Member) *Member {
	return &Member{
		Phone:       m.Phone,
		Name:        m.Name,
		CreatedAt:   m.CreatedAt,
		LastLoginAt: m.LastLoginAt,
	}
}

func ToDataModel(m *Member) *memberDatamodel.Member {
	return &memberDatamodel.Member{
		Phone:       m.Phone,
		Name:        m.Name,
		CreatedAt:   m.CreatedAt,
		LastLoginAt: m.LastLoginAt,
	}
}

// Registration is the outcome of Register. Created is false when the phone
// was already known and the call acted as a login.
type Registration struct {
	Member       *Member
	Created      bool
	WelcomeBonus int64
	Token        string
	ExpiresAt    time.Time
}

type Profile struct {
	Member  *Member
	Balance wallet.Balance
}
