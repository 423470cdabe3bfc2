package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dejem9gb/dejem/internal/config"
	"github.com/dejem9gb/dejem/internal/confirmacao"
	"github.com/dejem9gb/dejem/internal/escala"
	httpmiddleware "github.com/dejem9gb/dejem/internal/http/middleware"
	"github.com/dejem9gb/dejem/internal/mailer"
	"github.com/dejem9gb/dejem/internal/repo"
	"github.com/dejem9gb/dejem/internal/service"
	"github.com/dejem9gb/dejem/internal/solicitacao"
	"github.com/dejem9gb/dejem/internal/storage"
)

// Handler concentra as dependências das rotas transversais.
type Handler struct {
	cfg           *config.Config
	pool          *pgxpool.Pool
	redis         *redis.Client
	authService   *service.AuthService
	usuarios      *service.UsuarioService
	repository    *repo.Repository
	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
}

// NewRouter monta a árvore de rotas: grupo público com rate limit por IP e
// grupos autenticados com gate de nível por rota.
func NewRouter(cfg *config.Config, pool *pgxpool.Pool, redisClient *redis.Client, authService *service.AuthService, m mailer.Mailer, uploader storage.Uploader) http.Handler {
	repository := repo.New(pool)

	h := &Handler{
		cfg:           cfg,
		pool:          pool,
		redis:         redisClient,
		authService:   authService,
		usuarios:      service.NewUsuarioService(repository, m, authService, cfg.SenhaTempTTL),
		repository:    repository,
		publicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
	}

	escalaRepo := escala.NewRepository(pool)
	escalaHandler := escala.NewHandler(escala.NewService(escalaRepo))

	confirmacaoService := confirmacao.NewService(confirmacao.NewRepository(pool), escalaRepo, cfg.SEIPrefixos)
	confirmacaoHandler := confirmacao.NewHandler(confirmacaoService)

	solicitacaoService := solicitacao.NewService(solicitacao.NewRepository(pool), repository, uploader)
	solicitacaoHandler := solicitacao.NewHandler(solicitacaoService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)

		public.Route("/auth", func(auth chi.Router) {
			auth.Post("/verificar-re", h.VerificarRE)
			auth.Post("/login", h.Login)
			auth.Post("/senha-temporaria", h.SenhaTemporaria)
			auth.Post("/redefinir-senha", h.RedefinirSenha)
			auth.Post("/refresh", h.Refresh)
			auth.Post("/logout", h.Logout)
		})
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(authService.JWT()))
		private.Use(httpmiddleware.UserRateLimit(h.authLimiter))

		private.Get("/me", h.Me)
		private.Put("/me/senha", h.AlterarSenha)

		// Nível 3: todo usuário ativo enxerga escalas e confirmações.
		private.Group(func(basico chi.Router) {
			basico.Use(httpmiddleware.RequireNivel(authService, 3))
			escala.Mount(basico, escalaHandler)
			confirmacao.Mount(basico, confirmacaoHandler)
			basico.Get("/opms", h.ListOPMs)
			basico.Get("/opms/{codigo}/composicoes", h.ListComposicoes)
		})

		// Nível 2: moderadores movimentam exclusões e solicitações.
		private.Group(func(moderador chi.Router) {
			moderador.Use(httpmiddleware.RequireNivel(authService, 2))
			escala.MountExclusoes(moderador, escalaHandler)
			solicitacao.Mount(moderador, solicitacaoHandler)
		})

		// Nível 1: administração.
		private.Group(func(admin chi.Router) {
			admin.Use(httpmiddleware.RequireNivel(authService, 1))
			solicitacao.MountAdmin(admin, solicitacaoHandler)
			admin.Route("/admin/usuarios", func(r chi.Router) {
				r.Get("/", h.ListUsuarios)
				r.Post("/", h.CreateUsuario)
				r.Patch("/{re}", h.UpdateUsuario)
			})
		})
	})

	return r
}

// Health responde status simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready valida conexões com Postgres e Redis.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbErr := h.pool.Ping(ctx)
	redisErr := h.redis.Ping(ctx).Err()

	if dbErr != nil || redisErr != nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "dependências indisponíveis", map[string]any{
			"db":    errorString(dbErr),
			"redis": errorString(redisErr),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
