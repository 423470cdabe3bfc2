package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dejem9gb/dejem/internal/auth"
	httpmiddleware "github.com/dejem9gb/dejem/internal/http/middleware"
	"github.com/dejem9gb/dejem/internal/service"
)

// VerificarRE confirma o RE antes da tela de senha.
func (h *Handler) VerificarRE(w http.ResponseWriter, r *http.Request) {
	var input struct {
		RE string `json:"re"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.RE == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "informe o RE", nil)
		return
	}

	pre, err := h.authService.VerificarRE(r.Context(), input.RE)
	if err != nil {
		h.handleAuthError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, pre)
}

// Login autentica RE + senha.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		RE    string `json:"re"`
		Senha string `json:"senha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.RE == "" || input.Senha == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "informe RE e senha", nil)
		return
	}

	result, err := h.authService.Login(r.Context(), input.RE, input.Senha)
	if err != nil {
		h.handleAuthError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// SenhaTemporaria dispara o e-mail de recuperação. Sempre responde 202
// para não confirmar quais REs existem.
func (h *Handler) SenhaTemporaria(w http.ResponseWriter, r *http.Request) {
	var input struct {
		RE string `json:"re"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.RE == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "informe o RE", nil)
		return
	}

	h.authService.SenhaTemporaria(r.Context(), input.RE)
	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "enviado"})
}

// RedefinirSenha conclui o primeiro acesso ou a recuperação.
func (h *Handler) RedefinirSenha(w http.ResponseWriter, r *http.Request) {
	var input struct {
		RE              string `json:"re"`
		SenhaTemporaria string `json:"senha_temporaria"`
		NovaSenha       string `json:"nova_senha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.RE == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "corpo inválido", nil)
		return
	}

	if err := h.authService.RedefinirSenha(r.Context(), input.RE, input.SenhaTemporaria, input.NovaSenha); err != nil {
		h.handleAuthError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "senha redefinida"})
}

// Refresh rotaciona o refresh token.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	token, ok := refreshFromRequest(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "refresh ausente", nil)
		return
	}

	result, err := h.authService.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrRefreshInvalido) {
			WriteError(w, http.StatusUnauthorized, "AUTH", "refresh inválido", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro ao renovar sessão", nil)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// Logout revoga o refresh token atual.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := refreshFromRequest(r); ok {
		_ = h.authService.Logout(r.Context(), token)
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Me retorna o perfil do usuário autenticado.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	re := httpmiddleware.GetSubject(r.Context())

	perfil, err := h.authService.GetMe(r.Context(), re)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível carregar perfil", nil)
		return
	}
	WriteJSON(w, http.StatusOK, perfil)
}

// AlterarSenha troca a senha do próprio usuário (tela de perfil).
func (h *Handler) AlterarSenha(w http.ResponseWriter, r *http.Request) {
	var input struct {
		SenhaAtual string `json:"senha_atual"`
		NovaSenha  string `json:"nova_senha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "corpo inválido", nil)
		return
	}

	re := httpmiddleware.GetSubject(r.Context())
	if err := h.authService.AlterarSenha(r.Context(), re, input.SenhaAtual, input.NovaSenha); err != nil {
		h.handleAuthError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "senha alterada"})
}

func (h *Handler) handleAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrCredenciaisInvalidas):
		WriteError(w, http.StatusUnauthorized, "AUTH", err.Error(), nil)
	case errors.Is(err, service.ErrContaInativa):
		WriteError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	case errors.Is(err, service.ErrRedefinicaoPendente):
		WriteError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case errors.Is(err, service.ErrSenhaTemporariaExpirada):
		WriteError(w, http.StatusUnauthorized, "AUTH", err.Error(), nil)
	case errors.Is(err, auth.ErrSenhaFraca):
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	default:
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro ao autenticar", nil)
	}
}

// refreshFromRequest aceita o token no corpo JSON ou no cookie de sessão.
func refreshFromRequest(r *http.Request) (string, bool) {
	var input struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err == nil && input.RefreshToken != "" {
		return input.RefreshToken, true
	}
	if cookie, err := r.Cookie("dejem_refresh"); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	return "", false
}
