package confirmacao

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dejem9gb/dejem/internal/escala"
	"github.com/dejem9gb/dejem/internal/repo"
)

var (
	// ErrEscalaNaoEncontrada indica id de sistema sem nenhuma linha de escala.
	ErrEscalaNaoEncontrada = errors.New("escala não encontrada")
	// ErrSEILinkInvalido indica link fora dos prefixos aceitos.
	ErrSEILinkInvalido = errors.New("link SEI fora dos domínios aceitos")
	// ErrStatusInvalido indica status desconhecido no corpo.
	ErrStatusInvalido = errors.New("status de confirmação inválido")
	// ErrSemPermissao indica tentativa de alterar status de outro RE sem ser admin.
	ErrSemPermissao = errors.New("somente administradores alteram status de terceiros")
	// ErrREForaDaEscala indica RE que não pertence à escala informada.
	ErrREForaDaEscala = errors.New("RE não pertence à escala")
)

type dadosRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
	GetDados(ctx context.Context, escalaSistemaID string) (*DadosGerais, error)
	ListConfirmacoes(ctx context.Context, escalaSistemaID string) ([]Confirmacao, error)
	UpsertDadosTx(ctx context.Context, tx pgx.Tx, d DadosGerais, agora time.Time) error
	UpsertConfirmacaoTx(ctx context.Context, tx pgx.Tx, c Confirmacao, agora time.Time) error
}

type rosterRepository interface {
	ListByIDSistema(ctx context.Context, idSistema string) ([]escala.Escala, error)
}

// Service implementa a tela de confirmação de escala.
type Service struct {
	repo        dadosRepository
	roster      rosterRepository
	seiPrefixos []string
}

// NewService cria o serviço com a allowlist de prefixos de link.
func NewService(repo dadosRepository, roster rosterRepository, seiPrefixos []string) *Service {
	return &Service{repo: repo, roster: roster, seiPrefixos: seiPrefixos}
}

// Detalhe agrega tudo que a tela de confirmação mostra para um id externo.
type Detalhe struct {
	Escalas      []escala.View `json:"escalas"`
	DadosGerais  *DadosGerais  `json:"dados_gerais"`
	Confirmacoes []Confirmacao `json:"confirmacoes"`
}

// Get monta o detalhe de confirmação de uma escala.
func (s *Service) Get(ctx context.Context, escalaSistemaID, callerRE string) (*Detalhe, error) {
	linhas, err := s.roster.ListByIDSistema(ctx, escalaSistemaID)
	if err != nil {
		return nil, err
	}
	if len(linhas) == 0 {
		return nil, ErrEscalaNaoEncontrada
	}

	views := make([]escala.View, 0, len(linhas))
	for _, linha := range linhas {
		views = append(views, escala.NewView(linha, callerRE))
	}

	dados, err := s.repo.GetDados(ctx, escalaSistemaID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	confirmacoes, err := s.repo.ListConfirmacoes(ctx, escalaSistemaID)
	if err != nil {
		return nil, err
	}

	return &Detalhe{Escalas: views, DadosGerais: dados, Confirmacoes: confirmacoes}, nil
}

// Atualizar valida e grava dados gerais + status em uma única transação.
// Toda rejeição acontece antes de qualquer escrita.
func (s *Service) Atualizar(ctx context.Context, escalaSistemaID, callerRE string, callerNivel int, input UpdateInput) error {
	seiLink := strings.TrimSpace(input.SEILink)
	if seiLink == "" || !s.seiLinkPermitido(seiLink) {
		return ErrSEILinkInvalido
	}

	linhas, err := s.roster.ListByIDSistema(ctx, escalaSistemaID)
	if err != nil {
		return err
	}
	if len(linhas) == 0 {
		return ErrEscalaNaoEncontrada
	}

	naEscala := make(map[string]struct{}, len(linhas))
	for _, linha := range linhas {
		naEscala[linha.RE] = struct{}{}
	}

	for _, item := range input.Itens {
		if !IsValidStatus(item.Status) {
			return fmt.Errorf("%w: %q", ErrStatusInvalido, item.Status)
		}
		if _, ok := naEscala[item.RE]; !ok {
			return fmt.Errorf("%w: %s", ErrREForaDaEscala, item.RE)
		}
		// O próprio status sempre pode; o de terceiros só com nível 1.
		if item.RE != callerRE && callerNivel != 1 {
			return ErrSemPermissao
		}
	}

	agora := time.Now()
	return s.repo.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		dados := DadosGerais{
			EscalaSistemaID: escalaSistemaID,
			SEILink:         seiLink,
			Observacoes:     strings.TrimSpace(input.Observacoes),
			AtualizadoPorRE: callerRE,
		}
		if err := s.repo.UpsertDadosTx(ctx, tx, dados, agora); err != nil {
			return err
		}

		for _, item := range input.Itens {
			c := Confirmacao{
				EscalaSistemaID: escalaSistemaID,
				RE:              item.RE,
				Status:          item.Status,
				ConfirmadoPorRE: callerRE,
			}
			if err := s.repo.UpsertConfirmacaoTx(ctx, tx, c, agora); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) seiLinkPermitido(link string) bool {
	for _, prefixo := range s.seiPrefixos {
		if strings.HasPrefix(link, prefixo) {
			return true
		}
	}
	return false
}
