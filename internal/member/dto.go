package member

import (
	"time"

	"github.com/frahmantamala/ran-loyalty/internal/wallet"
)

type RegisterRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type SessionResponse struct {
	Success      bool      `json:"success"`
	IsNew        bool      `json:"isNew"`
	Member       *Member   `json:"member"`
	WelcomeBonus int64     `json:"welcomeBonus,omitempty"`
	SessionToken string    `json:"sessionToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

func (r *Registration) ToResponse() SessionResponse {
	return SessionResponse{
		Success:      true,
		IsNew:        r.Created,
		Member:       r.Member,
		WelcomeBonus: r.WelcomeBonus,
		SessionToken: r.Token,
		ExpiresAt:    r.ExpiresAt,
	}
}

type ProfileResponse struct {
	Success bool                   `json:"success"`
	Member  *Member                `json:"member"`
	Wallet  wallet.BalanceResponse `json:"wallet"`
}
