package confirmacao

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/dejem9gb/dejem/internal/http/middleware"
)

// Handler orquestra as rotas de confirmação.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Mount registra as rotas do módulo.
func Mount(r chi.Router, h *Handler) {
	r.Route("/confirmacoes/{idSistema}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Put("/", h.handleAtualizar)
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	idSistema := chi.URLParam(r, "idSistema")

	detalhe, err := h.service.Get(r.Context(), idSistema, middleware.GetSubject(r.Context()))
	if err != nil {
		if errors.Is(err, ErrEscalaNaoEncontrada) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "escala não encontrada", nil)
			return
		}
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, detalhe)
}

func (h *Handler) handleAtualizar(w http.ResponseWriter, r *http.Request) {
	idSistema := chi.URLParam(r, "idSistema")

	var input UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "corpo inválido", nil)
		return
	}

	ctx := r.Context()
	err := h.service.Atualizar(ctx, idSistema, middleware.GetSubject(ctx), middleware.GetNivel(ctx), input)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"atualizado": true})
	case errors.Is(err, ErrEscalaNaoEncontrada):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "escala não encontrada", nil)
	case errors.Is(err, ErrSEILinkInvalido), errors.Is(err, ErrStatusInvalido), errors.Is(err, ErrREForaDaEscala):
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	case errors.Is(err, ErrSemPermissao):
		writeError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	default:
		writeInternalError(w, err)
	}
}

// Helpers de resposta JSON compatíveis com o resto do projeto.
type successEnvelope struct {
	Data  any `json:"data"`
	Error any `json:"error"`
}

type errorEnvelope struct {
	Data  any            `json:"data"`
	Error *errorResponse `json:"error"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(successEnvelope{Data: payload, Error: nil})
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Data: nil, Error: &errorResponse{Code: code, Message: message, Details: details}})
}

func writeInternalError(w http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("confirmacao handler error")
	writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
}
