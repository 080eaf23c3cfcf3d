package division

import (
	"context"
	"net/http"

	"github.com/frahmantamala/recruiter-reports/internal/transport"
)

type ServiceAPI interface {
	ListDivisions(ctx context.Context) ([]*Division, error)
	GetByID(ctx context.Context, id int64) (*Division, error)
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

type DivisionsResponse struct {
	Divisions []*Division `json:"divisions"`
}

func (h *Handler) ListDivisions(w http.ResponseWriter, r *http.Request) {
	divisions, err := h.Service.ListDivisions(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, DivisionsResponse{Divisions: divisions})
}

func (h *Handler) GetDivision(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	d, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, d)
}
