package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dejem9gb/dejem/internal/auth"
)

type contextKey string

const (
	ContextKeySubject contextKey = "subject"
	ContextKeyNome    contextKey = "nome"
	ContextKeyNivel   contextKey = "nivel"
)

// NivelResolver devolve o nível de acesso atual do RE. A implementação
// consulta cache Redis com TTL curto e cai para o Postgres; a checagem em
// si acontece a cada requisição.
type NivelResolver interface {
	NivelAtual(ctx context.Context, re string) (int, error)
}

// Auth valida JWT de acesso e injeta claims no contexto.
func Auth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "AUTH", "token ausente")
				return
			}

			claims, err := jwtManager.ParseAndValidate(parts[1])
			if err != nil {
				writeError(w, http.StatusUnauthorized, "AUTH", "token inválido")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySubject, claims.Subject)
			ctx = context.WithValue(ctx, ContextKeyNome, claims.Nome)
			ctx = context.WithValue(ctx, ContextKeyNivel, claims.Nivel)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireNivel exige nível numérico menor ou igual ao informado (1 é o mais
// forte). O nível é resolvido de novo a cada requisição: rebaixamento de
// acesso vale imediatamente, sem esperar o token expirar.
func RequireNivel(resolver NivelResolver, nivel int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			re := GetSubject(r.Context())
			if re == "" {
				writeError(w, http.StatusUnauthorized, "AUTH", "não autenticado")
				return
			}

			atual, err := resolver.NivelAtual(r.Context(), re)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "AUTH", "perfil não encontrado")
				return
			}

			if atual > nivel {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Acesso negado")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyNivel, atual)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSubject recupera o RE autenticado do contexto.
func GetSubject(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeySubject).(string)
	return val
}

// GetNome recupera o nome do usuário do contexto.
func GetNome(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeyNome).(string)
	return val
}

// GetNivel recupera o nível de acesso do contexto.
func GetNivel(ctx context.Context) int {
	val, ok := ctx.Value(ContextKeyNivel).(int)
	if !ok {
		return 0
	}
	return val
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": nil,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
