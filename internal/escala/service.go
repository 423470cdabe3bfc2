package escala

import (
	"context"
	"sort"
	"strings"
)

type listRepository interface {
	List(ctx context.Context, exclusao bool, mes, ano int) ([]Escala, error)
	ListEstacoes(ctx context.Context) ([]string, error)
}

// Service aplica os filtros de tela e a paginação sobre o roster.
type Service struct {
	repo listRepository
}

// NewService cria o serviço de escalas.
func NewService(repo listRepository) *Service {
	return &Service{repo: repo}
}

// Filtro reúne os predicados opcionais da listagem. Zero = não filtra.
type Filtro struct {
	Busca     string
	Campo     string
	Dia       int
	Mes       int
	Ano       int
	Estacao   string
	Pagina    int
	PorPagina int
}

const (
	porPaginaPadrao = 10
	porPaginaMax    = 100
)

// Listar devolve a página pedida do roster ativo.
func (s *Service) Listar(ctx context.Context, f Filtro, callerRE string) (*Pagina, error) {
	return s.listar(ctx, false, f, callerRE)
}

// ListarExclusoes devolve a página pedida da partição de exclusões.
func (s *Service) ListarExclusoes(ctx context.Context, f Filtro, callerRE string) (*Pagina, error) {
	return s.listar(ctx, true, f, callerRE)
}

// ListarTodas devolve a lista filtrada inteira, sem paginação (export).
func (s *Service) ListarTodas(ctx context.Context, exclusao bool, f Filtro, callerRE string) ([]View, error) {
	escalas, err := s.repo.List(ctx, exclusao, f.Mes, f.Ano)
	if err != nil {
		return nil, err
	}
	filtradas := Filtrar(escalas, f)

	views := make([]View, 0, len(filtradas))
	for _, e := range filtradas {
		views = append(views, NewView(e, callerRE))
	}
	return views, nil
}

// Estacoes lista as estações distintas para os filtros de tela.
func (s *Service) Estacoes(ctx context.Context) ([]string, error) {
	return s.repo.ListEstacoes(ctx)
}

func (s *Service) listar(ctx context.Context, exclusao bool, f Filtro, callerRE string) (*Pagina, error) {
	escalas, err := s.repo.List(ctx, exclusao, f.Mes, f.Ano)
	if err != nil {
		return nil, err
	}

	filtradas := Filtrar(escalas, f)
	resumo := resumoDe(filtradas)

	porPagina := f.PorPagina
	if porPagina <= 0 {
		porPagina = porPaginaPadrao
	}
	if porPagina > porPaginaMax {
		porPagina = porPaginaMax
	}

	total := len(filtradas)
	totalPaginas := (total + porPagina - 1) / porPagina

	pagina := f.Pagina
	if pagina <= 0 {
		pagina = 1
	}

	inicio := (pagina - 1) * porPagina
	if inicio > total {
		inicio = total
	}
	fim := inicio + porPagina
	if fim > total {
		fim = total
	}

	itens := make([]View, 0, fim-inicio)
	for _, e := range filtradas[inicio:fim] {
		itens = append(itens, NewView(e, callerRE))
	}

	return &Pagina{
		Itens:        itens,
		Total:        total,
		Pagina:       pagina,
		PorPagina:    porPagina,
		TotalPaginas: totalPaginas,
		Resumo:       resumo,
	}, nil
}

// Filtrar aplica os predicados do filtro em AND sobre a lista e devolve o
// resultado em ordem de data decrescente (estável). Predicados vazios não
// restringem nada, então a ordem de aplicação é indiferente.
func Filtrar(escalas []Escala, f Filtro) []Escala {
	out := make([]Escala, 0, len(escalas))
	for _, e := range escalas {
		if f.Dia > 0 && e.Dia != f.Dia {
			continue
		}
		if f.Mes > 0 && e.Mes != f.Mes {
			continue
		}
		if f.Ano > 0 && e.Ano != f.Ano {
			continue
		}
		if f.Estacao != "" && !strings.EqualFold(e.Estacao, f.Estacao) {
			continue
		}
		if !matchBusca(e, f.Busca, f.Campo) {
			continue
		}
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Ano != b.Ano {
			return a.Ano > b.Ano
		}
		if a.Mes != b.Mes {
			return a.Mes > b.Mes
		}
		return a.Dia > b.Dia
	})

	return out
}

func matchBusca(e Escala, busca, campo string) bool {
	busca = strings.ToLower(strings.TrimSpace(busca))
	if busca == "" {
		return true
	}

	contem := func(valor string) bool {
		return strings.Contains(strings.ToLower(valor), busca)
	}

	switch strings.ToLower(strings.TrimSpace(campo)) {
	case "re":
		return contem(e.RE)
	case "militar":
		return contem(e.Militar)
	case "posto_grad":
		return contem(e.PostoGrad)
	case "opm":
		return contem(e.OPM)
	case "estacao":
		return contem(e.Estacao)
	case "composicao":
		return contem(e.Composicao)
	default:
		return contem(e.RE) || contem(e.Militar) || contem(e.PostoGrad) ||
			contem(e.OPM) || contem(e.Estacao) || contem(e.Composicao)
	}
}

func resumoDe(escalas []Escala) Resumo {
	estacoes := make(map[string]struct{})
	militares := make(map[string]struct{})
	for _, e := range escalas {
		if e.Estacao != "" {
			estacoes[e.Estacao] = struct{}{}
		}
		if e.RE != "" {
			militares[e.RE] = struct{}{}
		}
	}
	return Resumo{
		Total:     len(escalas),
		Estacoes:  len(estacoes),
		Militares: len(militares),
	}
}
