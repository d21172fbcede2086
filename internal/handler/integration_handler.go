package handler

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"integrations-api/internal/integration"
	"integrations-api/internal/middleware"
	"integrations-api/internal/store"
)

var (
	msgUnauthorized = message{"You must be logged in to do this"}
	msgDeleted      = message{"Integration deleted successfully"}
	msgNotDeleted   = message{"Integration could not be deleted"}
)

type integrationType struct {
	Type string `json:"type"`
}

func (h *Handler) ListIntegrations(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	uid, ok := middleware.UserID(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, msgUnauthorized)
		return nil
	}

	types, err := h.integrations.List(r.Context(), uid)
	if err != nil {
		return err
	}
	out := make([]integrationType, 0, len(types))
	for _, t := range types {
		out = append(out, integrationType{Type: t})
	}
	respondJSON(w, http.StatusOK, out)
	return nil
}

func (h *Handler) RemoveIntegration(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	uid, ok := middleware.UserID(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, msgUnauthorized)
		return nil
	}

	var req integration.RemoveRequest
	if err := decode(w, r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, message{err.Error()})
		return nil
	}

	err := h.integrations.Remove(r.Context(), uid, req)
	var cascade *integration.CascadeError
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, msgDeleted)
	case errors.As(err, &cascade):
		respondJSON(w, http.StatusInternalServerError, msgNotDeleted)
	case errors.Is(err, integration.ErrInvalidRequest):
		respondJSON(w, http.StatusBadRequest, message{"id is required"})
	case errors.Is(err, store.ErrNotFound):
		h.log.Info("remove unknown credential", zap.String("user", uid), zap.String("credential", req.ID))
		respondJSON(w, http.StatusNotFound, message{"Integration not found"})
	default:
		return err
	}
	return nil
}
