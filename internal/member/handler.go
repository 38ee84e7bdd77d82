package member

import (
	"context"
	"net/http"

	errors "github.com/frahmantamala/ran-loyalty/internal"
	"github.com/frahmantamala/ran-loyalty/internal/transport"
)

type ServiceAPI interface {
	Register(ctx context.Context, name, phone string) (*Registration, error)
	Profile(ctx context.Context, phone string) (*Profile, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// Register handles POST /members/register. New members get 201, returning
// members 200.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleError(w, r, err)
		return
	}

	reg, err := h.Service.Register(r.Context(), req.Name, req.Phone)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	status := http.StatusOK
	if reg.Created {
		status = http.StatusCreated
	}
	h.WriteJSON(w, status, reg.ToResponse())
}

// GetCurrentMember handles GET /members/me
func (h *Handler) GetCurrentMember(w http.ResponseWriter, r *http.Request) {
	phone := errors.PhoneFromContext(r.Context())
	if phone == "" {
		h.HandleError(w, r, errors.ErrUnauthorizedAccess)
		return
	}

	profile, err := h.Service.Profile(r.Context(), phone)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ProfileResponse{
		Success: true,
		Member:  profile.Member,
		Wallet:  profile.Balance.ToResponse(),
	})
}
