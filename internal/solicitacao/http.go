package solicitacao

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/dejem9gb/dejem/internal/http/middleware"
)

// Limite de upload de comprovante.
const maxAnexoBytes = 10 << 20

// Handler orquestra as rotas de solicitações.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Mount registra as rotas de solicitante (nível 2).
func Mount(r chi.Router, h *Handler) {
	r.Route("/solicitacoes", func(r chi.Router) {
		r.Get("/", h.handleListar)
		r.Post("/", h.handleCriar)
		r.Route("/{id}", func(r chi.Router) {
			r.Post("/anexo", h.handleAnexo)
			r.Put("/detalhes", h.handleDetalhes)
			r.Post("/editar", h.handleEditar)
			r.Post("/confirmar-edicao", h.handleConfirmarEdicao)
			r.Post("/cancelar-edicao", h.handleCancelarEdicao)
			r.Delete("/", h.handleExcluir)
			r.Get("/historico", h.handleHistorico)
		})
	})
}

// MountAdmin registra as rotas administrativas (nível 1).
func MountAdmin(r chi.Router, h *Handler) {
	r.Post("/solicitacoes/export", h.handleExport)
	r.Post("/solicitacoes/{id}/reativar", h.handleReativar)
	r.Post("/solicitacoes/{id}/liberar", h.handleLiberar)
}

func atorFrom(r *http.Request) Ator {
	ctx := r.Context()
	return Ator{
		RE:    middleware.GetSubject(ctx),
		Nome:  middleware.GetNome(ctx),
		Nivel: middleware.GetNivel(ctx),
	}
}

func (h *Handler) handleListar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opm := q.Get("opm")
	mes := queryInt(q.Get("mes"))
	ano := queryInt(q.Get("ano"))
	if opm == "" || mes < 1 || mes > 12 || ano == 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION", "informe opm, mes e ano", nil)
		return
	}

	solicitacoes, err := h.service.Listar(r.Context(), atorFrom(r), opm, mes, ano)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"solicitacoes": solicitacoes})
}

func (h *Handler) handleCriar(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "corpo inválido", nil)
		return
	}

	criadas, err := h.service.Criar(r.Context(), atorFrom(r), input)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"solicitacoes": criadas})
}

func (h *Handler) handleAnexo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := r.ParseMultipartForm(maxAnexoBytes); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "arquivo inválido ou grande demais", nil)
		return
	}

	file, header, err := r.FormFile("arquivo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "campo arquivo obrigatório", nil)
		return
	}
	defer file.Close()

	body, err := io.ReadAll(io.LimitReader(file, maxAnexoBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "falha ao ler arquivo", nil)
		return
	}

	url, err := h.service.AnexarComprovante(r.Context(), atorFrom(r), id, header.Filename, header.Header.Get("Content-Type"), body)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comprovante_url": url})
}

func (h *Handler) handleDetalhes(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var input struct {
		Motivo      string `json:"motivo"`
		Observacoes string `json:"observacoes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "corpo inválido", nil)
		return
	}

	if err := h.service.AtualizarDetalhes(r.Context(), atorFrom(r), id, input.Motivo, input.Observacoes); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"atualizado": true})
}

func (h *Handler) handleEditar(w http.ResponseWriter, r *http.Request) {
	h.transicao(w, r, h.service.IniciarEdicao)
}

func (h *Handler) handleConfirmarEdicao(w http.ResponseWriter, r *http.Request) {
	h.transicao(w, r, h.service.ConfirmarEdicao)
}

func (h *Handler) handleCancelarEdicao(w http.ResponseWriter, r *http.Request) {
	h.transicao(w, r, h.service.CancelarEdicao)
}

func (h *Handler) handleExcluir(w http.ResponseWriter, r *http.Request) {
	h.transicao(w, r, h.service.Excluir)
}

func (h *Handler) handleReativar(w http.ResponseWriter, r *http.Request) {
	h.transicao(w, r, h.service.Reativar)
}

func (h *Handler) handleLiberar(w http.ResponseWriter, r *http.Request) {
	h.transicao(w, r, h.service.Liberar)
}

func (h *Handler) handleHistorico(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	historico, err := h.service.HistoricoDe(r.Context(), atorFrom(r), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"historico": historico})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opm := q.Get("opm")
	mes := queryInt(q.Get("mes"))
	ano := queryInt(q.Get("ano"))
	if opm == "" || mes < 1 || mes > 12 || ano == 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION", "informe opm, mes e ano", nil)
		return
	}

	f, filename, err := h.service.Exportar(r.Context(), atorFrom(r), opm, mes, ano)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := f.Write(w); err != nil {
		log.Error().Err(err).Msg("export de solicitações: falha ao escrever planilha")
	}
}

type transicaoFn func(ctx context.Context, ator Ator, id string) error

func (h *Handler) transicao(w http.ResponseWriter, r *http.Request, fn transicaoFn) {
	id := chi.URLParam(r, "id")
	if err := fn(r.Context(), atorFrom(r), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"atualizado": true})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var dup *DuplicadaError
	switch {
	case errors.As(err, &dup):
		writeError(w, http.StatusConflict, "CONFLICT", dup.Error(), map[string]any{"dias": dup.Dias})
	case errors.Is(err, ErrNaoEncontrada):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrSemPermissaoOPM), errors.Is(err, ErrSomenteCriador), errors.Is(err, ErrSomenteAdmin):
		writeError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	case errors.Is(err, ErrTransicaoInvalida):
		writeError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case errors.Is(err, ErrPrioridadeInvalida), errors.Is(err, ErrVagasInvalidas),
		errors.Is(err, ErrDataInvalida), errors.Is(err, ErrVistoriaPrazo),
		errors.Is(err, ErrVistoriaExpediente):
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	default:
		writeInternalError(w, err)
	}
}

func queryInt(raw string) int {
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0
	}
	return v
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
	log.Error().Err(err).Msg("solicitacao handler error")
	writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
}
