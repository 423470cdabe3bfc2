package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dejem9gb/dejem/internal/repo"
	"github.com/dejem9gb/dejem/internal/service"
)

// ListUsuarios devolve todas as contas cadastradas.
func (h *Handler) ListUsuarios(w http.ResponseWriter, r *http.Request) {
	perfis, err := h.usuarios.Listar(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro ao listar usuários", nil)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"usuarios": perfis})
}

// CreateUsuario abre conta nova com senha temporária por e-mail.
func (h *Handler) CreateUsuario(w http.ResponseWriter, r *http.Request) {
	var input service.CreateUsuarioInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "corpo inválido", nil)
		return
	}

	perfil, err := h.usuarios.Criar(r.Context(), input)
	if err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.Code == "23505":
			WriteError(w, http.StatusConflict, "CONFLICT", "RE já cadastrado", nil)
		case errors.Is(err, service.ErrNivelInvalido), errors.Is(err, service.ErrREInvalido):
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		default:
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		}
		return
	}
	WriteJSON(w, http.StatusCreated, perfil)
}

// UpdateUsuario altera nível, situação e permissões de OPM.
func (h *Handler) UpdateUsuario(w http.ResponseWriter, r *http.Request) {
	re := chi.URLParam(r, "re")

	var input service.UpdateUsuarioInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "corpo inválido", nil)
		return
	}

	perfil, err := h.usuarios.Atualizar(r.Context(), re, input)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "usuário não encontrado", nil)
		case errors.Is(err, service.ErrNivelInvalido):
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		default:
			WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro ao atualizar usuário", nil)
		}
		return
	}
	WriteJSON(w, http.StatusOK, perfil)
}

// ListOPMs devolve o catálogo de OPMs para o formulário de solicitação.
func (h *Handler) ListOPMs(w http.ResponseWriter, r *http.Request) {
	opms, err := h.repository.ListOPMs(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro ao listar OPMs", nil)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"opms": opms})
}

// ListComposicoes devolve as composições de uma OPM.
func (h *Handler) ListComposicoes(w http.ResponseWriter, r *http.Request) {
	codigo := chi.URLParam(r, "codigo")

	composicoes, err := h.repository.ListComposicoes(r.Context(), codigo)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro ao listar composições", nil)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"composicoes": composicoes})
}
