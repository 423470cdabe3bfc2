package confirmacao

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dejem9gb/dejem/internal/escala"
)

type stubDadosRepo struct {
	escritas int
}

func (s *stubDadosRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}

func (s *stubDadosRepo) GetDados(ctx context.Context, id string) (*DadosGerais, error) {
	return nil, errors.New("não usado")
}

func (s *stubDadosRepo) ListConfirmacoes(ctx context.Context, id string) ([]Confirmacao, error) {
	return nil, nil
}

func (s *stubDadosRepo) UpsertDadosTx(ctx context.Context, tx pgx.Tx, d DadosGerais, agora time.Time) error {
	s.escritas++
	return nil
}

func (s *stubDadosRepo) UpsertConfirmacaoTx(ctx context.Context, tx pgx.Tx, c Confirmacao, agora time.Time) error {
	s.escritas++
	return nil
}

type stubRoster struct {
	linhas []escala.Escala
}

func (s *stubRoster) ListByIDSistema(ctx context.Context, id string) ([]escala.Escala, error) {
	return s.linhas, nil
}

func fixtureService(repo *stubDadosRepo) *Service {
	roster := &stubRoster{linhas: []escala.Escala{
		{ID: 1, RE: "111111", IDSistema: "ESC-42"},
		{ID: 2, RE: "222222", IDSistema: "ESC-42"},
	}}
	return NewService(repo, roster, []string{"https://sei.sp.gov.br/"})
}

func TestAtualizarRejeitaSEILinkForaDaAllowlist(t *testing.T) {
	repo := &stubDadosRepo{}
	svc := fixtureService(repo)

	input := UpdateInput{
		SEILink: "https://exemplo.com/doc/123",
		Itens:   []Item{{RE: "111111", Status: StatusOK}},
	}

	err := svc.Atualizar(context.Background(), "ESC-42", "111111", 3, input)
	if !errors.Is(err, ErrSEILinkInvalido) {
		t.Fatalf("esperava ErrSEILinkInvalido, veio %v", err)
	}
	if repo.escritas != 0 {
		t.Fatalf("rejeição não pode escrever nada, houve %d escritas", repo.escritas)
	}
}

func TestAtualizarRejeitaSEILinkVazio(t *testing.T) {
	repo := &stubDadosRepo{}
	svc := fixtureService(repo)

	err := svc.Atualizar(context.Background(), "ESC-42", "111111", 3, UpdateInput{})
	if !errors.Is(err, ErrSEILinkInvalido) {
		t.Fatalf("esperava ErrSEILinkInvalido, veio %v", err)
	}
	if repo.escritas != 0 {
		t.Fatalf("houve %d escritas", repo.escritas)
	}
}

func TestAtualizarStatusDeTerceiroExigeAdmin(t *testing.T) {
	repo := &stubDadosRepo{}
	svc := fixtureService(repo)

	input := UpdateInput{
		SEILink: "https://sei.sp.gov.br/processo/99",
		Itens:   []Item{{RE: "222222", Status: StatusOK}},
	}

	// Nível 3 tentando marcar o status de outro RE.
	err := svc.Atualizar(context.Background(), "ESC-42", "111111", 3, input)
	if !errors.Is(err, ErrSemPermissao) {
		t.Fatalf("esperava ErrSemPermissao, veio %v", err)
	}
	if repo.escritas != 0 {
		t.Fatalf("houve %d escritas", repo.escritas)
	}
}

func TestAtualizarRejeitaStatusDesconhecido(t *testing.T) {
	repo := &stubDadosRepo{}
	svc := fixtureService(repo)

	input := UpdateInput{
		SEILink: "https://sei.sp.gov.br/processo/99",
		Itens:   []Item{{RE: "111111", Status: "confirmadissimo"}},
	}

	err := svc.Atualizar(context.Background(), "ESC-42", "111111", 3, input)
	if !errors.Is(err, ErrStatusInvalido) {
		t.Fatalf("esperava ErrStatusInvalido, veio %v", err)
	}
}

func TestAtualizarRejeitaREForaDaEscala(t *testing.T) {
	repo := &stubDadosRepo{}
	svc := fixtureService(repo)

	input := UpdateInput{
		SEILink: "https://sei.sp.gov.br/processo/99",
		Itens:   []Item{{RE: "999999", Status: StatusOK}},
	}

	err := svc.Atualizar(context.Background(), "ESC-42", "111111", 1, input)
	if !errors.Is(err, ErrREForaDaEscala) {
		t.Fatalf("esperava ErrREForaDaEscala, veio %v", err)
	}
}

func TestAtualizarGravaDadosEStatus(t *testing.T) {
	repo := &stubDadosRepo{}
	svc := fixtureService(repo)

	input := UpdateInput{
		SEILink:     "https://sei.sp.gov.br/processo/99",
		Observacoes: "tudo certo",
		Itens:       []Item{{RE: "111111", Status: StatusOK}},
	}

	if err := svc.Atualizar(context.Background(), "ESC-42", "111111", 3, input); err != nil {
		t.Fatal(err)
	}
	// Uma escrita de dados gerais + uma de status.
	if repo.escritas != 2 {
		t.Fatalf("esperava 2 escritas, veio %d", repo.escritas)
	}
}

func TestAtualizarAdminMarcaTerceiros(t *testing.T) {
	repo := &stubDadosRepo{}
	svc := fixtureService(repo)

	input := UpdateInput{
		SEILink: "https://sei.sp.gov.br/processo/99",
		Itens: []Item{
			{RE: "111111", Status: StatusOK},
			{RE: "222222", Status: StatusPendencia},
		},
	}

	if err := svc.Atualizar(context.Background(), "ESC-42", "111111", 1, input); err != nil {
		t.Fatal(err)
	}
	if repo.escritas != 3 {
		t.Fatalf("esperava 3 escritas, veio %d", repo.escritas)
	}
}

func TestAtualizarEscalaInexistente(t *testing.T) {
	repo := &stubDadosRepo{}
	svc := NewService(repo, &stubRoster{}, []string{"https://sei.sp.gov.br/"})

	input := UpdateInput{SEILink: "https://sei.sp.gov.br/processo/99"}
	err := svc.Atualizar(context.Background(), "ESC-00", "111111", 1, input)
	if !errors.Is(err, ErrEscalaNaoEncontrada) {
		t.Fatalf("esperava ErrEscalaNaoEncontrada, veio %v", err)
	}
}
