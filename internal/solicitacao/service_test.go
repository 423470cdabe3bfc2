package solicitacao

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dejem9gb/dejem/internal/repo"
	"github.com/dejem9gb/dejem/internal/storage"
)

type memRepo struct {
	solicitacoes map[string]*Solicitacao
	historico    []Historico
}

func newMemRepo() *memRepo {
	return &memRepo{solicitacoes: make(map[string]*Solicitacao)}
}

func (m *memRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}

func (m *memRepo) List(ctx context.Context, opm string, mes, ano int) ([]Solicitacao, error) {
	var out []Solicitacao
	for _, s := range m.solicitacoes {
		if s.OPMCodigo == opm && int(s.Data.Month()) == mes && s.Data.Year() == ano {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memRepo) Get(ctx context.Context, id string) (*Solicitacao, error) {
	s, ok := m.solicitacoes[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	clone := *s
	return &clone, nil
}

func (m *memRepo) GetTx(ctx context.Context, tx pgx.Tx, id string) (*Solicitacao, error) {
	return m.Get(ctx, id)
}

func (m *memRepo) ListExistingIDsTx(ctx context.Context, tx pgx.Tx, ids []string) (map[string]struct{}, error) {
	existentes := make(map[string]struct{})
	for _, id := range ids {
		if _, ok := m.solicitacoes[id]; ok {
			existentes[id] = struct{}{}
		}
	}
	return existentes, nil
}

func (m *memRepo) InsertTx(ctx context.Context, tx pgx.Tx, s Solicitacao) error {
	if _, ok := m.solicitacoes[s.ID]; ok {
		return errors.New("pk duplicada")
	}
	s.CriadoEm = time.Now()
	m.solicitacoes[s.ID] = &s
	return nil
}

func (m *memRepo) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id string, status int) error {
	s, ok := m.solicitacoes[id]
	if !ok {
		return repo.ErrNotFound
	}
	s.Status = status
	return nil
}

func (m *memRepo) UpdateDetalhesTx(ctx context.Context, tx pgx.Tx, id, motivo, observacoes string) error {
	s, ok := m.solicitacoes[id]
	if !ok {
		return repo.ErrNotFound
	}
	s.Motivo, s.Observacoes = motivo, observacoes
	return nil
}

func (m *memRepo) UpdateComprovanteTx(ctx context.Context, tx pgx.Tx, id, url string) error {
	s, ok := m.solicitacoes[id]
	if !ok {
		return repo.ErrNotFound
	}
	s.ComprovanteURL = url
	return nil
}

func (m *memRepo) AppendHistoricoTx(ctx context.Context, tx pgx.Tx, h Historico) error {
	h.ID = int64(len(m.historico) + 1)
	if h.RegistradoEm.IsZero() {
		h.RegistradoEm = time.Now()
	}
	m.historico = append(m.historico, h)
	return nil
}

func (m *memRepo) ListHistorico(ctx context.Context, id string) ([]Historico, error) {
	var out []Historico
	for _, h := range m.historico {
		if h.SolicitacaoID == id {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *memRepo) ListParaExportTx(ctx context.Context, tx pgx.Tx, opm string, mes, ano int) ([]Solicitacao, error) {
	var out []Solicitacao
	for _, s := range m.solicitacoes {
		if s.OPMCodigo != opm || int(s.Data.Month()) != mes || s.Data.Year() != ano {
			continue
		}
		if s.Status == StatusAberta || s.Status == StatusEmEdicao || s.Status == StatusExcluida {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memRepo) acoes(id string) []string {
	var acoes []string
	for _, h := range m.historico {
		if h.SolicitacaoID == id {
			acoes = append(acoes, h.Acao)
		}
	}
	return acoes
}

type stubCatalog struct {
	permissoes map[string][]string
}

func (c *stubCatalog) GetOPM(ctx context.Context, codigo string) (*repo.OPM, error) {
	return &repo.OPM{Codigo: codigo, Nome: "9º Grupamento de Bombeiros"}, nil
}

func (c *stubCatalog) GetComposicao(ctx context.Context, opm, codigo string) (*repo.Composicao, error) {
	return &repo.Composicao{OPMCodigo: opm, Codigo: codigo, Nome: "UR", Descricao: "Unidade de Resgate"}, nil
}

func (c *stubCatalog) HasOPMPermissao(ctx context.Context, re, opm string) (bool, error) {
	for _, permitida := range c.permissoes[re] {
		if permitida == opm {
			return true, nil
		}
	}
	return false, nil
}

func fixtureService(repo_ *memRepo) *Service {
	catalog := &stubCatalog{permissoes: map[string][]string{"111111": {"EB901"}}}
	svc := NewService(repo_, catalog, storage.NoopUploader{})
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC) }
	return svc
}

var atorComum = Ator{RE: "111111", Nome: "SGT SILVA", Nivel: 2}
var atorAdmin = Ator{RE: "999999", Nome: "CAP ADMIN", Nivel: 1}

func criarBase(t *testing.T, svc *Service, input CreateInput) []Solicitacao {
	t.Helper()
	criadas, err := svc.Criar(context.Background(), atorComum, input)
	if err != nil {
		t.Fatal(err)
	}
	return criadas
}

func inputPadrao() CreateInput {
	return CreateInput{
		OPMCodigo:      "EB901",
		ComposicaoCod:  "C01",
		Data:           "2025-03-10",
		HorarioInicial: "07:00",
		VagasSubtenSgt: 1,
		VagasCbSd:      2,
		Prioridade:     PrioridadeViaturaExtra,
		Motivo:         "reforço operacional",
	}
}

func TestCompositeID(t *testing.T) {
	data := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	got := CompositeID("EB901", "C01", data, "07:30")
	esperado := "EB901C01202503100730"
	if got != esperado {
		t.Fatalf("CompositeID = %q, esperado %q", got, esperado)
	}
}

func TestHorarioFinalDe(t *testing.T) {
	casos := []struct{ inicio, fim string }{
		{"07:00", "15:00"},
		{"10:30", "18:30"},
		{"23:00", "07:00"},
		{"16:01", "00:01"},
	}
	for _, caso := range casos {
		got, err := HorarioFinalDe(caso.inicio)
		if err != nil {
			t.Fatal(err)
		}
		if got != caso.fim {
			t.Errorf("HorarioFinalDe(%q) = %q, esperado %q", caso.inicio, got, caso.fim)
		}
	}

	if _, err := HorarioFinalDe("25h00"); err == nil {
		t.Error("horário inválido deveria falhar")
	}
}

func TestCriarMultiplosDias(t *testing.T) {
	mem := newMemRepo()
	svc := fixtureService(mem)

	input := inputPadrao()
	input.DiasExtras = []int{12, 11}

	criadas := criarBase(t, svc, input)
	if len(criadas) != 3 {
		t.Fatalf("esperava 3 solicitações, veio %d", len(criadas))
	}

	// Dias em ordem crescente, todos com status aberta e histórico de criação.
	dias := []int{criadas[0].Data.Day(), criadas[1].Data.Day(), criadas[2].Data.Day()}
	if dias[0] != 10 || dias[1] != 11 || dias[2] != 12 {
		t.Errorf("dias fora de ordem: %v", dias)
	}
	for _, criada := range criadas {
		if criada.Status != StatusAberta {
			t.Errorf("solicitação %s com status %d", criada.ID, criada.Status)
		}
		if criada.HorarioFinal != "15:00" {
			t.Errorf("horário final %q, esperado 15:00", criada.HorarioFinal)
		}
		acoes := mem.acoes(criada.ID)
		if len(acoes) != 1 || acoes[0] != AcaoCriacao {
			t.Errorf("histórico de %s: %v", criada.ID, acoes)
		}
	}
}

func TestCriarDuplicadaRejeitaLoteInteiro(t *testing.T) {
	mem := newMemRepo()
	svc := fixtureService(mem)

	criarBase(t, svc, inputPadrao())
	antes := len(mem.solicitacoes)

	input := inputPadrao()
	input.DiasExtras = []int{11}
	_, err := svc.Criar(context.Background(), atorComum, input)

	var dup *DuplicadaError
	if !errors.As(err, &dup) {
		t.Fatalf("esperava DuplicadaError, veio %v", err)
	}
	if len(dup.Dias) != 1 || dup.Dias[0] != "10/03/2025" {
		t.Errorf("dias em conflito: %v", dup.Dias)
	}
	// Nada do lote entra, nem o dia 11 que estava livre.
	if len(mem.solicitacoes) != antes {
		t.Errorf("lote parcialmente gravado: %d -> %d", antes, len(mem.solicitacoes))
	}
}

func TestCriarSemPermissaoOPM(t *testing.T) {
	mem := newMemRepo()
	svc := fixtureService(mem)

	input := inputPadrao()
	input.OPMCodigo = "EB902"
	_, err := svc.Criar(context.Background(), atorComum, input)
	if !errors.Is(err, ErrSemPermissaoOPM) {
		t.Fatalf("esperava ErrSemPermissaoOPM, veio %v", err)
	}
}

func TestCriarAdminDispensaPermissaoOPM(t *testing.T) {
	mem := newMemRepo()
	svc := fixtureService(mem)

	input := inputPadrao()
	input.OPMCodigo = "EB902"
	if _, err := svc.Criar(context.Background(), atorAdmin, input); err != nil {
		t.Fatal(err)
	}
}

func TestCriarVistoriaAlemDoPrazo(t *testing.T) {
	mem := newMemRepo()
	svc := fixtureService(mem) // hoje: 01/03/2025

	input := inputPadrao()
	input.Prioridade = PrioridadeVistoriaTecnica
	input.Data = "2025-03-15" // 14 dias à frente

	_, err := svc.Criar(context.Background(), atorComum, input)
	if !errors.Is(err, ErrVistoriaPrazo) {
		t.Fatalf("esperava ErrVistoriaPrazo, veio %v", err)
	}
}

func TestCriarVistoriaPrazoContaDaMeiaNoiteLocal(t *testing.T) {
	mem := newMemRepo()
	svc := fixtureService(mem)
	// 23h local em fuso -03: em UTC já é dia 02/03, mas o prazo conta do dia local.
	brt := time.FixedZone("BRT", -3*3600)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 23, 0, 0, 0, brt) }

	input := inputPadrao()
	input.Prioridade = PrioridadeVistoriaTecnica

	input.Data = "2025-03-12" // 11 dias a partir de 01/03 local
	if _, err := svc.Criar(context.Background(), atorComum, input); !errors.Is(err, ErrVistoriaPrazo) {
		t.Fatalf("esperava ErrVistoriaPrazo, veio %v", err)
	}

	input.Data = "2025-03-11" // exatamente no limite
	if _, err := svc.Criar(context.Background(), atorComum, input); err != nil {
		t.Fatalf("décimo dia deveria passar: %v", err)
	}
}

func TestCriarVistoriaForaDoExpediente(t *testing.T) {
	mem := newMemRepo()
	svc := fixtureService(mem)

	input := inputPadrao()
	input.Prioridade = PrioridadeVistoriaTecnica
	input.Data = "2025-03-05"
	input.HorarioInicial = "14:00" // término 22:00

	_, err := svc.Criar(context.Background(), atorComum, input)
	if !errors.Is(err, ErrVistoriaExpediente) {
		t.Fatalf("esperava ErrVistoriaExpediente, veio %v", err)
	}

	input.Motivo = "vistoria fora do expediente a pedido da empresa"
	if _, err := svc.Criar(context.Background(), atorComum, input); err != nil {
		t.Fatalf("motivo citando expediente deveria passar: %v", err)
	}
}

func TestCicloDeEdicao(t *testing.T) {
	mem := newMemRepo()
	svc := fixtureService(mem)
	ctx := context.Background()

	id := criarBase(t, svc, inputPadrao())[0].ID

	if err := svc.IniciarEdicao(ctx, atorComum, id); err != nil {
		t.Fatal(err)
	}
	if mem.solicitacoes[id].Status != StatusEmEdicao {
		t.Fatalf("status = %d, esperado em edição", mem.solicitacoes[id].Status)
	}

	// Editar de novo enquanto travada não pode.
	if err := svc.IniciarEdicao(ctx, atorComum, id); !errors.Is(err, ErrTransicaoInvalida) {
		t.Fatalf("esperava ErrTransicaoInvalida, veio %v", err)
	}

	if err := svc.AtualizarDetalhes(ctx, atorComum, id, "motivo novo", "obs"); err != nil {
		t.Fatal(err)
	}
	if mem.solicitacoes[id].Motivo != "motivo novo" {
		t.Errorf("motivo não atualizado: %q", mem.solicitacoes[id].Motivo)
	}

	if err := svc.ConfirmarEdicao(ctx, atorComum, id); err != nil {
		t.Fatal(err)
	}
	if mem.solicitacoes[id].Status != StatusAberta {
		t.Fatalf("status = %d, esperado aberta", mem.solicitacoes[id].Status)
	}

	esperado := []string{AcaoCriacao, AcaoInicioEdicao, AcaoEdicaoDetalhes, AcaoConfirmacaoEdicao}
	acoes := mem.acoes(id)
	if len(acoes) != len(esperado) {
		t.Fatalf("histórico: %v", acoes)
	}
	for i := range esperado {
		if acoes[i] != esperado[i] {
			t.Errorf("ação %d = %q, esperado %q", i, acoes[i], esperado[i])
		}
	}
}

func TestDetalhesExigemEdicaoAberta(t *testing.T) {
	mem := newMemRepo()
	svc := fixtureService(mem)
	id := criarBase(t, svc, inputPadrao())[0].ID

	err := svc.AtualizarDetalhes(context.Background(), atorComum, id, "m", "o")
	if !errors.Is(err, ErrTransicaoInvalida) {
		t.Fatalf("esperava ErrTransicaoInvalida, veio %v", err)
	}
}

func TestExclusaoEReativacao(t *testing.T) {
	mem := newMemRepo()
	svc := fixtureService(mem)
	ctx := context.Background()
	id := criarBase(t, svc, inputPadrao())[0].ID

	if err := svc.Excluir(ctx, atorComum, id); err != nil {
		t.Fatal(err)
	}
	if mem.solicitacoes[id].Status != StatusExcluida {
		t.Fatalf("status = %d, esperado excluída", mem.solicitacoes[id].Status)
	}

	// Reativação é administrativa.
	if err := svc.Reativar(ctx, atorComum, id); !errors.Is(err, ErrSomenteAdmin) {
		t.Fatalf("esperava ErrSomenteAdmin, veio %v", err)
	}
	if err := svc.Reativar(ctx, atorAdmin, id); err != nil {
		t.Fatal(err)
	}
	if mem.solicitacoes[id].Status != StatusAberta {
		t.Fatalf("status = %d, esperado aberta", mem.solicitacoes[id].Status)
	}
}

func TestLiberarStatusTravado(t *testing.T) {
	mem := newMemRepo()
	svc := fixtureService(mem)
	ctx := context.Background()
	id := criarBase(t, svc, inputPadrao())[0].ID

	// Liberar só vale para status travados pela administração.
	if err := svc.Liberar(ctx, atorAdmin, id); !errors.Is(err, ErrTransicaoInvalida) {
		t.Fatalf("esperava ErrTransicaoInvalida, veio %v", err)
	}

	mem.solicitacoes[id].Status = StatusErro
	if err := svc.Liberar(ctx, atorAdmin, id); err != nil {
		t.Fatal(err)
	}
	if mem.solicitacoes[id].Status != StatusAberta {
		t.Fatalf("status = %d, esperado aberta", mem.solicitacoes[id].Status)
	}
}

func TestExclusaoSomenteDoCriador(t *testing.T) {
	mem := newMemRepo()
	svc := fixtureService(mem)
	id := criarBase(t, svc, inputPadrao())[0].ID

	outro := Ator{RE: "222222", Nome: "SD SOUZA", Nivel: 2}
	if err := svc.Excluir(context.Background(), outro, id); !errors.Is(err, ErrSomenteCriador) {
		t.Fatalf("esperava ErrSomenteCriador, veio %v", err)
	}
}

func TestExportarMarcaStatusEHistorico(t *testing.T) {
	mem := newMemRepo()
	svc := fixtureService(mem)
	ctx := context.Background()

	input := inputPadrao()
	input.DiasExtras = []int{11}
	ids := []string{}
	for _, criada := range criarBase(t, svc, input) {
		ids = append(ids, criada.ID)
	}

	// Uma excluída também entra no export.
	if err := svc.Excluir(ctx, atorComum, ids[1]); err != nil {
		t.Fatal(err)
	}

	f, filename, err := svc.Exportar(ctx, atorAdmin, "EB901", 3, 2025)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if filename != "solicitacoes_EB901_202503.xlsx" {
		t.Errorf("filename = %q", filename)
	}

	for _, id := range ids {
		if mem.solicitacoes[id].Status != StatusExportada {
			t.Errorf("solicitação %s com status %d após export", id, mem.solicitacoes[id].Status)
		}
		acoes := mem.acoes(id)
		if acoes[len(acoes)-1] != AcaoExportacao {
			t.Errorf("última ação de %s: %q", id, acoes[len(acoes)-1])
		}
	}

	// Segunda exportação não encontra nada pendente.
	f2, _, err := svc.Exportar(ctx, atorAdmin, "EB901", 3, 2025)
	if err != nil {
		t.Fatal(err)
	}
	f2.Close()
}

func TestExportarExigeAdmin(t *testing.T) {
	mem := newMemRepo()
	svc := fixtureService(mem)

	_, _, err := svc.Exportar(context.Background(), atorComum, "EB901", 3, 2025)
	if !errors.Is(err, ErrSomenteAdmin) {
		t.Fatalf("esperava ErrSomenteAdmin, veio %v", err)
	}
}

func TestValidarTransicao(t *testing.T) {
	casos := []struct {
		atual   int
		acao    string
		permite bool
	}{
		{StatusAberta, AcaoInicioEdicao, true},
		{StatusAberta, AcaoExclusao, true},
		{StatusAberta, AcaoConfirmacaoEdicao, false},
		{StatusEmEdicao, AcaoConfirmacaoEdicao, true},
		{StatusEmEdicao, AcaoCancelamentoEdicao, true},
		{StatusEmEdicao, AcaoExclusao, false},
		{StatusExcluida, AcaoReativacaoAdmin, true},
		{StatusAberta, AcaoReativacaoAdmin, false},
		{StatusEscaladaOK, AcaoLiberacaoAdmin, true},
		{StatusExportada, AcaoLiberacaoAdmin, true},
		{StatusErro, AcaoLiberacaoAdmin, true},
		{StatusAberta, AcaoLiberacaoAdmin, false},
		{StatusExcluida, AcaoExportacao, true},
		{StatusEscaladaOK, AcaoExportacao, false},
	}

	for _, caso := range casos {
		err := ValidarTransicao(caso.atual, caso.acao)
		if caso.permite && err != nil {
			t.Errorf("ValidarTransicao(%d, %s) deveria passar: %v", caso.atual, caso.acao, err)
		}
		if !caso.permite && !errors.Is(err, ErrTransicaoInvalida) {
			t.Errorf("ValidarTransicao(%d, %s) deveria falhar", caso.atual, caso.acao)
		}
	}
}
