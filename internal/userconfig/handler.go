package userconfig

import (
	"context"
	"net/http"

	"github.com/frahmantamala/recruiter-reports/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context, includeInactive bool) ([]*UserConfig, error)
	Get(ctx context.Context, configID int64) (*UserConfig, error)
	Create(ctx context.Context, req CreateRequest) (*UserConfig, error)
	Update(ctx context.Context, configID int64, req UpdateRequest) (*UserConfig, error)
	Deactivate(ctx context.Context, configID int64) (*UserConfig, error)
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

func (h *Handler) ListUserConfigs(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	configs, err := h.Service.List(r.Context(), includeInactive)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, UserConfigsResponse{UserConfigs: configs})
}

func (h *Handler) GetUserConfig(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "configID")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	uc, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, uc)
}

func (h *Handler) CreateUserConfig(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	uc, err := h.Service.Create(r.Context(), req)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, uc)
}

func (h *Handler) UpdateUserConfig(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "configID")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	var req UpdateRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	uc, err := h.Service.Update(r.Context(), id, req)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, uc)
}

func (h *Handler) DeactivateUserConfig(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "configID")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	uc, err := h.Service.Deactivate(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, uc)
}
