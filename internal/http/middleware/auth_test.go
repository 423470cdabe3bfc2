package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

type stubResolver struct {
	niveis map[string]int
}

func (s *stubResolver) NivelAtual(ctx context.Context, re string) (int, error) {
	nivel, ok := s.niveis[re]
	if !ok {
		return 0, context.Canceled
	}
	return nivel, nil
}

func protectedRouter(resolver *stubResolver, nivel int) http.Handler {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(RequireNivel(resolver, nivel))
		r.Get("/exclusoes", func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"data":"conteudo restrito"}`))
		})
	})
	return r
}

func withSubject(req *http.Request, re string) *http.Request {
	ctx := context.WithValue(req.Context(), ContextKeySubject, re)
	return req.WithContext(ctx)
}

func TestRequireNivelBloqueiaNivelInsuficiente(t *testing.T) {
	resolver := &stubResolver{niveis: map[string]int{"333333": 3}}
	router := protectedRouter(resolver, 2)

	req := withSubject(httptest.NewRequest(http.MethodGet, "/exclusoes", nil), "333333")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("esperava 403, veio %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Acesso negado") {
		t.Fatalf("corpo sem mensagem de acesso negado: %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "conteudo restrito") {
		t.Fatal("conteúdo restrito vazou na resposta 403")
	}
}

func TestRequireNivelPermiteNivelIgualOuMaisForte(t *testing.T) {
	resolver := &stubResolver{niveis: map[string]int{"111111": 1, "222222": 2}}
	router := protectedRouter(resolver, 2)

	for _, re := range []string{"111111", "222222"} {
		req := withSubject(httptest.NewRequest(http.MethodGet, "/exclusoes", nil), re)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("re %s: esperava 200, veio %d", re, rec.Code)
		}
	}
}

func TestRequireNivelSemAutenticacao(t *testing.T) {
	resolver := &stubResolver{niveis: map[string]int{}}
	router := protectedRouter(resolver, 3)

	req := httptest.NewRequest(http.MethodGet, "/exclusoes", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("esperava 401, veio %d", rec.Code)
	}
}

func TestRequireNivelUsaNivelResolvido(t *testing.T) {
	// O nível do token não importa: vale o que o resolver devolver agora.
	resolver := &stubResolver{niveis: map[string]int{"444444": 3}}

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(RequireNivel(resolver, 3))
		r.Get("/me/nivel", func(w http.ResponseWriter, req *http.Request) {
			if nivel := GetNivel(req.Context()); nivel != 3 {
				t.Fatalf("esperava nível 3 no contexto, veio %d", nivel)
			}
			w.WriteHeader(http.StatusOK)
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/me/nivel", nil)
	ctx := context.WithValue(req.Context(), ContextKeySubject, "444444")
	ctx = context.WithValue(ctx, ContextKeyNivel, 1)
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("esperava 200, veio %d", rec.Code)
	}
}
