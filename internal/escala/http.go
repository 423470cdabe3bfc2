package escala

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/dejem9gb/dejem/internal/http/middleware"
)

// Handler orquestra as rotas de escalas e exclusões.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Mount registra as rotas do módulo. O gate de nível fica no router.
func Mount(r chi.Router, h *Handler) {
	r.Route("/escalas", func(r chi.Router) {
		r.Get("/", h.handleListar)
		r.Get("/estacoes", h.handleEstacoes)
		r.Get("/export", h.handleExport)
	})
}

// MountExclusoes registra a rota restrita a moderadores.
func MountExclusoes(r chi.Router, h *Handler) {
	r.Get("/exclusoes", h.handleListarExclusoes)
}

func (h *Handler) handleListar(w http.ResponseWriter, r *http.Request) {
	filtro := filtroFromQuery(r)
	pagina, err := h.service.Listar(r.Context(), filtro, middleware.GetSubject(r.Context()))
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pagina)
}

func (h *Handler) handleListarExclusoes(w http.ResponseWriter, r *http.Request) {
	filtro := filtroFromQuery(r)
	pagina, err := h.service.ListarExclusoes(r.Context(), filtro, middleware.GetSubject(r.Context()))
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pagina)
}

func (h *Handler) handleEstacoes(w http.ResponseWriter, r *http.Request) {
	estacoes, err := h.service.Estacoes(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"estacoes": estacoes})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filtro := filtroFromQuery(r)
	views, err := h.service.ListarTodas(r.Context(), false, filtro, middleware.GetSubject(r.Context()))
	if err != nil {
		writeInternalError(w, err)
		return
	}

	f, err := ExportXLSX(views)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ExportFilename(time.Now())+`"`)
	if err := f.Write(w); err != nil {
		log.Error().Err(err).Msg("export de escalas: falha ao escrever planilha")
	}
}

func filtroFromQuery(r *http.Request) Filtro {
	q := r.URL.Query()
	return Filtro{
		Busca:     q.Get("busca"),
		Campo:     q.Get("campo"),
		Dia:       queryInt(q.Get("dia")),
		Mes:       queryInt(q.Get("mes")),
		Ano:       queryInt(q.Get("ano")),
		Estacao:   q.Get("estacao"),
		Pagina:    queryInt(q.Get("pagina")),
		PorPagina: queryInt(q.Get("por_pagina")),
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
	log.Error().Err(err).Msg("escala handler error")
	writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
}
