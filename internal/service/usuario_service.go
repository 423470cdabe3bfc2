package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dejem9gb/dejem/internal/auth"
	"github.com/dejem9gb/dejem/internal/mailer"
	"github.com/dejem9gb/dejem/internal/repo"
	"github.com/dejem9gb/dejem/internal/util"
)

var (
	// ErrNivelInvalido indica nível fora do intervalo 1..3.
	ErrNivelInvalido = errors.New("nível deve ser 1, 2 ou 3")
	// ErrREInvalido indica RE vazio ou malformado.
	ErrREInvalido = errors.New("RE inválido")
)

type usuarioRepository interface {
	GetUsuario(ctx context.Context, re string) (*repo.Usuario, error)
	ListUsuarios(ctx context.Context) ([]repo.Usuario, error)
	CreateUsuario(ctx context.Context, u repo.Usuario) error
	UpdateUsuario(ctx context.Context, re string, nivel *int, ativo *bool) error
	ListOPMPermissoes(ctx context.Context, re string) ([]string, error)
	SetOPMPermissoes(ctx context.Context, re string, codigos []string) error
}

// UsuarioService implementa a administração de contas (nível 1).
type UsuarioService struct {
	repo         usuarioRepository
	mailer       mailer.Mailer
	auth         *AuthService
	senhaTempTTL time.Duration
}

// NewUsuarioService cria o serviço administrativo de contas.
func NewUsuarioService(r usuarioRepository, m mailer.Mailer, authService *AuthService, senhaTempTTL time.Duration) *UsuarioService {
	return &UsuarioService{repo: r, mailer: m, auth: authService, senhaTempTTL: senhaTempTTL}
}

// CreateUsuarioInput é o corpo de criação de conta.
type CreateUsuarioInput struct {
	RE           string   `json:"re"`
	Nome         string   `json:"nome"`
	Email        string   `json:"email"`
	Nivel        int      `json:"nivel"`
	PostoGrad    string   `json:"posto_grad"`
	OPM          string   `json:"opm"`
	PermissaoOPM []string `json:"permissao_opm"`
}

// UpdateUsuarioInput altera campos administrativos de uma conta.
type UpdateUsuarioInput struct {
	Nivel        *int      `json:"nivel"`
	Ativo        *bool     `json:"ativo"`
	PermissaoOPM *[]string `json:"permissao_opm"`
}

// Listar devolve todas as contas com suas permissões de OPM.
func (s *UsuarioService) Listar(ctx context.Context) ([]Perfil, error) {
	usuarios, err := s.repo.ListUsuarios(ctx)
	if err != nil {
		return nil, err
	}

	perfis := make([]Perfil, 0, len(usuarios))
	for i := range usuarios {
		permissoes, err := s.repo.ListOPMPermissoes(ctx, usuarios[i].RE)
		if err != nil {
			return nil, err
		}
		perfil := perfilFrom(&usuarios[i])
		perfil.PermissaoOPM = permissoes
		perfis = append(perfis, perfil)
	}
	return perfis, nil
}

// Criar abre a conta com senha temporária e envia por e-mail.
func (s *UsuarioService) Criar(ctx context.Context, input CreateUsuarioInput) (*Perfil, error) {
	re := strings.TrimSpace(input.RE)
	if re == "" {
		return nil, ErrREInvalido
	}
	if input.Nivel < 1 || input.Nivel > 3 {
		return nil, ErrNivelInvalido
	}
	if err := util.ValidateEmail(input.Email); err != nil {
		return nil, err
	}
	if err := util.RequireString(input.Nome, "nome"); err != nil {
		return nil, err
	}

	senha, err := auth.GenerateTempPassword()
	if err != nil {
		return nil, err
	}
	hash, err := auth.Hash(senha)
	if err != nil {
		return nil, err
	}

	expira := time.Now().Add(s.senhaTempTTL)
	novo := repo.Usuario{
		RE:                    re,
		Nome:                  strings.TrimSpace(input.Nome),
		Email:                 strings.ToLower(strings.TrimSpace(input.Email)),
		SenhaHash:             hash,
		Nivel:                 input.Nivel,
		PostoGrad:             strings.TrimSpace(input.PostoGrad),
		OPM:                   strings.TrimSpace(input.OPM),
		RedefinirSenha:        true,
		SenhaTemporariaExpira: &expira,
		Ativo:                 true,
	}

	if err := s.repo.CreateUsuario(ctx, novo); err != nil {
		return nil, err
	}

	if len(input.PermissaoOPM) > 0 {
		if err := s.repo.SetOPMPermissoes(ctx, re, input.PermissaoOPM); err != nil {
			return nil, err
		}
	}

	if err := s.mailer.SendSenhaTemporaria(ctx, novo.Email, novo.Nome, senha); err != nil {
		log.Error().Err(err).Str("re", re).Msg("criação de conta: falha ao enviar senha temporária")
	}

	perfil := perfilFrom(&novo)
	perfil.PermissaoOPM = input.PermissaoOPM
	return &perfil, nil
}

// Atualizar altera nível, situação e permissões de OPM de uma conta.
func (s *UsuarioService) Atualizar(ctx context.Context, re string, input UpdateUsuarioInput) (*Perfil, error) {
	if input.Nivel != nil && (*input.Nivel < 1 || *input.Nivel > 3) {
		return nil, ErrNivelInvalido
	}

	if input.Nivel != nil || input.Ativo != nil {
		if err := s.repo.UpdateUsuario(ctx, re, input.Nivel, input.Ativo); err != nil {
			return nil, err
		}
	}

	if input.PermissaoOPM != nil {
		if err := s.repo.SetOPMPermissoes(ctx, re, *input.PermissaoOPM); err != nil {
			return nil, err
		}
	}

	// O gate de nível relê o valor novo na próxima requisição.
	s.auth.InvalidateNivel(ctx, re)

	atual, err := s.repo.GetUsuario(ctx, re)
	if err != nil {
		return nil, err
	}
	permissoes, err := s.repo.ListOPMPermissoes(ctx, re)
	if err != nil {
		return nil, err
	}

	perfil := perfilFrom(atual)
	perfil.PermissaoOPM = permissoes
	return &perfil, nil
}
