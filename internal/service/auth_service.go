package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/dejem9gb/dejem/internal/auth"
	"github.com/dejem9gb/dejem/internal/mailer"
	"github.com/dejem9gb/dejem/internal/repo"
)

var (
	// ErrCredenciaisInvalidas indica RE ou senha incorretos.
	ErrCredenciaisInvalidas = errors.New("credenciais inválidas")
	// ErrContaInativa indica conta desativada pelo administrador.
	ErrContaInativa = errors.New("conta desativada")
	// ErrRedefinicaoPendente indica que o acesso exige troca da senha temporária.
	ErrRedefinicaoPendente = errors.New("redefinição de senha pendente")
	// ErrSenhaTemporariaExpirada indica senha temporária vencida.
	ErrSenhaTemporariaExpirada = errors.New("senha temporária expirada")
	// ErrRefreshInvalido indica refresh token inválido ou expirado.
	ErrRefreshInvalido = errors.New("refresh token inválido")
)

type authRepository interface {
	GetUsuario(ctx context.Context, re string) (*repo.Usuario, error)
	GetNivel(ctx context.Context, re string) (int, error)
	SetSenha(ctx context.Context, re, senhaHash string, redefinir bool, expira *time.Time) error
	ListOPMPermissoes(ctx context.Context, re string) ([]string, error)
	SaveRefreshToken(ctx context.Context, hash, re string, expiraEm time.Time) error
	GetRefreshToken(ctx context.Context, hash string) (*repo.TokenRefresh, error)
	DeleteRefreshToken(ctx context.Context, hash string) error
	DeleteRefreshTokensDoRE(ctx context.Context, re string) error
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// AuthService concentra autenticação por RE, sessões e senhas temporárias.
type AuthService struct {
	repo          authRepository
	redis         redisCommander
	jwt           *auth.JWTManager
	mailer        mailer.Mailer
	refreshTTL    time.Duration
	nivelCacheTTL time.Duration
	senhaTempTTL  time.Duration
}

// NewAuthService cria novo serviço.
func NewAuthService(r authRepository, redisClient redisCommander, jwtMgr *auth.JWTManager, m mailer.Mailer, refreshTTL, nivelCacheTTL, senhaTempTTL time.Duration) *AuthService {
	return &AuthService{
		repo:          r,
		redis:         redisClient,
		jwt:           jwtMgr,
		mailer:        m,
		refreshTTL:    refreshTTL,
		nivelCacheTTL: nivelCacheTTL,
		senhaTempTTL:  senhaTempTTL,
	}
}

// JWT expõe o gerenciador de tokens (usado pelo middleware).
func (s *AuthService) JWT() *auth.JWTManager {
	return s.jwt
}

// Perfil é a projeção pública da conta.
type Perfil struct {
	RE             string   `json:"re"`
	Nome           string   `json:"nome"`
	Email          string   `json:"email"`
	Nivel          int      `json:"nivel"`
	PostoGrad      string   `json:"posto_grad"`
	OPM            string   `json:"opm"`
	RedefinirSenha bool     `json:"redefinir_senha"`
	PermissaoOPM   []string `json:"permissao_opm"`
}

// LoginResult agrega tokens e perfil após autenticação.
type LoginResult struct {
	AccessToken     string    `json:"access_token"`
	AccessExpiraEm  time.Time `json:"access_expira_em"`
	RefreshToken    string    `json:"refresh_token"`
	RefreshExpiraEm time.Time `json:"refresh_expira_em"`
	Perfil          Perfil    `json:"perfil"`
}

// PreLogin é a resposta da verificação de RE na tela de login.
type PreLogin struct {
	Nome           string `json:"nome"`
	Email          string `json:"email"`
	RedefinirSenha bool   `json:"redefinir_senha"`
}

// VerificarRE confirma o cadastro do RE antes de pedir a senha.
// O e-mail volta mascarado para não vazar o endereço completo.
func (s *AuthService) VerificarRE(ctx context.Context, re string) (*PreLogin, error) {
	user, err := s.repo.GetUsuario(ctx, strings.TrimSpace(re))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCredenciaisInvalidas
		}
		return nil, err
	}
	if !user.Ativo {
		return nil, ErrContaInativa
	}

	return &PreLogin{
		Nome:           user.Nome,
		Email:          maskEmail(user.Email),
		RedefinirSenha: user.RedefinirSenha,
	}, nil
}

// Login autentica RE + senha e emite par de tokens.
func (s *AuthService) Login(ctx context.Context, re, senha string) (*LoginResult, error) {
	user, err := s.repo.GetUsuario(ctx, strings.TrimSpace(re))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			log.Warn().Msg("login: RE não cadastrado")
			return nil, ErrCredenciaisInvalidas
		}
		return nil, err
	}
	if !user.Ativo {
		return nil, ErrContaInativa
	}

	ok, err := auth.Verify(senha, user.SenhaHash)
	if err != nil || !ok {
		log.Warn().Str("re", user.RE).Msg("login: senha inválida")
		return nil, ErrCredenciaisInvalidas
	}

	// Senha temporária só serve para o fluxo de redefinição.
	if user.RedefinirSenha {
		if user.SenhaTemporariaExpira != nil && time.Now().After(*user.SenhaTemporariaExpira) {
			return nil, ErrSenhaTemporariaExpirada
		}
		return nil, ErrRedefinicaoPendente
	}

	return s.issueTokens(ctx, user)
}

// SenhaTemporaria gera e envia senha provisória por e-mail. Não revela ao
// chamador se o RE existe; falhas viram log e resposta genérica.
func (s *AuthService) SenhaTemporaria(ctx context.Context, re string) {
	user, err := s.repo.GetUsuario(ctx, strings.TrimSpace(re))
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			log.Error().Err(err).Msg("senha temporária: falha ao buscar RE")
		}
		return
	}
	if !user.Ativo || user.Email == "" {
		return
	}

	senha, err := auth.GenerateTempPassword()
	if err != nil {
		log.Error().Err(err).Msg("senha temporária: falha ao gerar")
		return
	}

	hash, err := auth.Hash(senha)
	if err != nil {
		log.Error().Err(err).Msg("senha temporária: falha ao hashear")
		return
	}

	expira := time.Now().Add(s.senhaTempTTL)
	if err := s.repo.SetSenha(ctx, user.RE, hash, true, &expira); err != nil {
		log.Error().Err(err).Str("re", user.RE).Msg("senha temporária: falha ao gravar")
		return
	}

	if err := s.mailer.SendSenhaTemporaria(ctx, user.Email, user.Nome, senha); err != nil {
		log.Error().Err(err).Str("re", user.RE).Msg("senha temporária: falha no envio")
	}
}

// RedefinirSenha conclui o primeiro acesso ou a recuperação de conta.
func (s *AuthService) RedefinirSenha(ctx context.Context, re, senhaTemporaria, novaSenha string) error {
	user, err := s.repo.GetUsuario(ctx, strings.TrimSpace(re))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrCredenciaisInvalidas
		}
		return err
	}
	if !user.Ativo {
		return ErrContaInativa
	}
	if !user.RedefinirSenha {
		return ErrCredenciaisInvalidas
	}
	if user.SenhaTemporariaExpira != nil && time.Now().After(*user.SenhaTemporariaExpira) {
		return ErrSenhaTemporariaExpirada
	}

	ok, err := auth.Verify(senhaTemporaria, user.SenhaHash)
	if err != nil || !ok {
		return ErrCredenciaisInvalidas
	}

	if err := auth.ValidatePasswordStrength(novaSenha); err != nil {
		return err
	}

	hash, err := auth.Hash(novaSenha)
	if err != nil {
		return err
	}
	if err := s.repo.SetSenha(ctx, user.RE, hash, false, nil); err != nil {
		return err
	}

	// Sessões anteriores caem junto com a senha antiga.
	if err := s.repo.DeleteRefreshTokensDoRE(ctx, user.RE); err != nil {
		log.Warn().Err(err).Str("re", user.RE).Msg("redefinir senha: falha ao limpar sessões")
	}

	return nil
}

// AlterarSenha troca a senha de um usuário autenticado.
func (s *AuthService) AlterarSenha(ctx context.Context, re, senhaAtual, novaSenha string) error {
	user, err := s.repo.GetUsuario(ctx, re)
	if err != nil {
		return err
	}

	ok, err := auth.Verify(senhaAtual, user.SenhaHash)
	if err != nil || !ok {
		return ErrCredenciaisInvalidas
	}

	if err := auth.ValidatePasswordStrength(novaSenha); err != nil {
		return err
	}

	hash, err := auth.Hash(novaSenha)
	if err != nil {
		return err
	}
	return s.repo.SetSenha(ctx, re, hash, false, nil)
}

// Refresh rotaciona o refresh token e emite novo par.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (*LoginResult, error) {
	hash := auth.HashRefreshToken(rawRefresh)

	if s.redis != nil {
		if _, err := s.redis.Get(ctx, auth.RefreshRedisKey("dejem", hash)).Result(); err != nil {
			if errors.Is(err, redis.Nil) {
				return nil, ErrRefreshInvalido
			}
			log.Warn().Err(err).Msg("refresh: redis indisponível, seguindo pelo banco")
		}
	}

	token, err := s.repo.GetRefreshToken(ctx, hash)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRefreshInvalido
		}
		return nil, err
	}

	user, err := s.repo.GetUsuario(ctx, token.RE)
	if err != nil || !user.Ativo {
		return nil, ErrRefreshInvalido
	}

	if err := s.discardRefresh(ctx, hash); err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, user)
}

// Logout descarta o refresh token informado.
func (s *AuthService) Logout(ctx context.Context, rawRefresh string) error {
	return s.discardRefresh(ctx, auth.HashRefreshToken(rawRefresh))
}

// GetMe devolve o perfil completo do RE autenticado.
func (s *AuthService) GetMe(ctx context.Context, re string) (*Perfil, error) {
	user, err := s.repo.GetUsuario(ctx, re)
	if err != nil {
		return nil, err
	}

	permissoes, err := s.repo.ListOPMPermissoes(ctx, re)
	if err != nil {
		return nil, err
	}

	perfil := perfilFrom(user)
	perfil.PermissaoOPM = permissoes
	return &perfil, nil
}

// NivelAtual devolve o nível vigente do RE, com cache curto em Redis.
// A checagem acontece em toda requisição; o cache só poupa a ida ao banco.
func (s *AuthService) NivelAtual(ctx context.Context, re string) (int, error) {
	key := "nivel:" + re

	if s.redis != nil {
		if nivel, err := s.redis.Get(ctx, key).Int(); err == nil && nivel >= 1 {
			return nivel, nil
		}
	}

	nivel, err := s.repo.GetNivel(ctx, re)
	if err != nil {
		return 0, err
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, key, nivel, s.nivelCacheTTL).Err(); err != nil {
			log.Warn().Err(err).Msg("nivel: falha ao cachear")
		}
	}

	return nivel, nil
}

// InvalidateNivel descarta o cache de nível (usado após alteração de conta).
func (s *AuthService) InvalidateNivel(ctx context.Context, re string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, "nivel:"+re).Err(); err != nil {
		log.Warn().Err(err).Str("re", re).Msg("nivel: falha ao invalidar cache")
	}
}

func (s *AuthService) issueTokens(ctx context.Context, user *repo.Usuario) (*LoginResult, error) {
	access, accessExp, err := s.jwt.GenerateAccessToken(user.RE, user.Nome, user.Nivel)
	if err != nil {
		return nil, err
	}

	raw, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	refreshExp := time.Now().Add(s.refreshTTL)
	if err := s.repo.SaveRefreshToken(ctx, hash, user.RE, refreshExp); err != nil {
		return nil, err
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, auth.RefreshRedisKey("dejem", hash), user.RE, s.refreshTTL).Err(); err != nil {
			log.Warn().Err(err).Msg("refresh: falha ao registrar no redis")
		}
	}

	permissoes, err := s.repo.ListOPMPermissoes(ctx, user.RE)
	if err != nil {
		return nil, err
	}

	perfil := perfilFrom(user)
	perfil.PermissaoOPM = permissoes

	return &LoginResult{
		AccessToken:     access,
		AccessExpiraEm:  accessExp,
		RefreshToken:    raw,
		RefreshExpiraEm: refreshExp,
		Perfil:          perfil,
	}, nil
}

func (s *AuthService) discardRefresh(ctx context.Context, hash string) error {
	if s.redis != nil {
		if err := s.redis.Del(ctx, auth.RefreshRedisKey("dejem", hash)).Err(); err != nil {
			log.Warn().Err(err).Msg("logout: falha ao remover do redis")
		}
	}
	return s.repo.DeleteRefreshToken(ctx, hash)
}

func perfilFrom(user *repo.Usuario) Perfil {
	return Perfil{
		RE:             user.RE,
		Nome:           user.Nome,
		Email:          user.Email,
		Nivel:          user.Nivel,
		PostoGrad:      user.PostoGrad,
		OPM:            user.OPM,
		RedefinirSenha: user.RedefinirSenha,
	}
}

// maskEmail preserva só o início do local e o domínio: jo***@exemplo.com.
func maskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return email
	}
	local := email[:at]
	visiveis := 2
	if len(local) < 2 {
		visiveis = 1
	}
	return local[:visiveis] + "***" + email[at:]
}
