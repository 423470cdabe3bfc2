package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dejem9gb/dejem/internal/auth"
	"github.com/dejem9gb/dejem/internal/db"
)

const schema = `
CREATE TABLE IF NOT EXISTS usuarios (
    re TEXT PRIMARY KEY,
    nome TEXT NOT NULL,
    email TEXT NOT NULL DEFAULT '',
    senha_hash TEXT NOT NULL,
    nivel INT NOT NULL DEFAULT 3,
    posto_grad TEXT NOT NULL DEFAULT '',
    opm TEXT NOT NULL DEFAULT '',
    redefinir_senha BOOLEAN NOT NULL DEFAULT FALSE,
    senha_temporaria_expira TIMESTAMPTZ,
    ativo BOOLEAN NOT NULL DEFAULT TRUE,
    criado_em TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS usuario_opms (
    re TEXT NOT NULL REFERENCES usuarios(re) ON DELETE CASCADE,
    opm_codigo TEXT NOT NULL,
    PRIMARY KEY (re, opm_codigo)
);

CREATE TABLE IF NOT EXISTS tokens_refresh (
    token_hash TEXT PRIMARY KEY,
    re TEXT NOT NULL,
    expira_em TIMESTAMPTZ NOT NULL,
    criado_em TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS opms (
    codigo TEXT PRIMARY KEY,
    nome TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS composicoes (
    opm_codigo TEXT NOT NULL REFERENCES opms(codigo),
    codigo TEXT NOT NULL,
    nome TEXT NOT NULL,
    descricao TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (opm_codigo, codigo)
);

CREATE TABLE IF NOT EXISTS escalas (
    id BIGSERIAL PRIMARY KEY,
    ano INT NOT NULL,
    mes INT NOT NULL,
    dia INT NOT NULL,
    linha INT NOT NULL,
    re TEXT NOT NULL,
    militar TEXT NOT NULL,
    posto_grad TEXT NOT NULL DEFAULT '',
    opm TEXT NOT NULL DEFAULT '',
    estacao TEXT NOT NULL DEFAULT '',
    composicao TEXT NOT NULL DEFAULT '',
    horario_inic DOUBLE PRECISION NOT NULL DEFAULT 0,
    horario_term DOUBLE PRECISION NOT NULL DEFAULT 0,
    id_sistema TEXT NOT NULL DEFAULT '',
    exclusao BOOLEAN NOT NULL DEFAULT FALSE,
    documento TEXT NOT NULL DEFAULT '',
    ausente TEXT NOT NULL DEFAULT '',
    UNIQUE (ano, mes, dia, linha)
);

CREATE INDEX IF NOT EXISTS idx_escalas_periodo ON escalas (exclusao, ano, mes);
CREATE INDEX IF NOT EXISTS idx_escalas_id_sistema ON escalas (id_sistema);

CREATE TABLE IF NOT EXISTS confirmacao_dados (
    escala_sistema_id TEXT PRIMARY KEY,
    sei_link TEXT NOT NULL DEFAULT '',
    observacoes TEXT NOT NULL DEFAULT '',
    atualizado_por_re TEXT NOT NULL,
    atualizado_em TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS confirmacoes (
    escala_sistema_id TEXT NOT NULL,
    re TEXT NOT NULL,
    status TEXT NOT NULL,
    confirmado_por_re TEXT NOT NULL,
    confirmado_em TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (escala_sistema_id, re)
);

CREATE TABLE IF NOT EXISTS solicitacoes (
    id TEXT PRIMARY KEY,
    data DATE NOT NULL,
    opm_codigo TEXT NOT NULL,
    opm_nome TEXT NOT NULL,
    composicao_cod TEXT NOT NULL,
    composicao_nome TEXT NOT NULL,
    descricao TEXT NOT NULL DEFAULT '',
    horario_inicial TEXT NOT NULL,
    horario_final TEXT NOT NULL,
    vagas_subten_sgt INT NOT NULL DEFAULT 0,
    vagas_cb_sd INT NOT NULL DEFAULT 0,
    escalado_subten_sgt INT NOT NULL DEFAULT 0,
    escalado_cb_sd INT NOT NULL DEFAULT 0,
    prioridade TEXT NOT NULL,
    motivo TEXT NOT NULL DEFAULT '',
    observacoes TEXT NOT NULL DEFAULT '',
    comprovante_url TEXT NOT NULL DEFAULT '',
    prazo_inscricao TIMESTAMPTZ,
    criado_por_re TEXT NOT NULL,
    criado_por_nome TEXT NOT NULL,
    criado_em TIMESTAMPTZ NOT NULL DEFAULT now(),
    status INT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_solicitacoes_opm_data ON solicitacoes (opm_codigo, data);

CREATE TABLE IF NOT EXISTS solicitacao_historico (
    id BIGSERIAL PRIMARY KEY,
    solicitacao_id TEXT NOT NULL REFERENCES solicitacoes(id),
    registrado_em TIMESTAMPTZ NOT NULL DEFAULT now(),
    acao TEXT NOT NULL,
    alterado_por_re TEXT NOT NULL,
    alterado_por_nome TEXT NOT NULL,
    observacao TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_historico_solicitacao ON solicitacao_historico (solicitacao_id, registrado_em);
`

// Catálogo inicial das OPMs do 9º GB e suas composições mais comuns.
var opmsIniciais = []struct {
	Codigo string
	Nome   string
}{
	{"EB901", "1º SGB - Campinas"},
	{"EB902", "2º SGB - Campinas Norte"},
	{"EB903", "3º SGB - Valinhos"},
	{"EB904", "4º SGB - Indaiatuba"},
}

var composicoesIniciais = []struct {
	OPMCodigo string
	Codigo    string
	Nome      string
	Descricao string
}{
	{"EB901", "C01", "Auto Bomba", "Guarnição de combate a incêndio"},
	{"EB901", "C02", "Unidade de Resgate", "Guarnição de resgate e salvamento"},
	{"EB902", "C01", "Auto Bomba", "Guarnição de combate a incêndio"},
	{"EB903", "C01", "Unidade de Resgate", "Guarnição de resgate e salvamento"},
	{"EB904", "C01", "Vistoria Técnica", "Equipe de vistoria em edificações"},
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	ctx := context.Background()

	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dsn == "" {
		log.Fatal().Msg("defina DB_DSN ou DATABASE_URL")
	}

	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("não foi possível conectar ao banco")
	}
	defer pool.Close()

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "schema":
		if err := runSchema(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("falha ao aplicar schema")
		}
	case "admin":
		if err := runAdmin(ctx, pool, args); err != nil {
			log.Fatal().Err(err).Msg("falha ao criar admin")
		}
	case "catalogo":
		if err := runCatalogo(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("falha ao semear catálogo")
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "seed CLI")
	fmt.Fprintln(os.Stderr, "uso:")
	fmt.Fprintln(os.Stderr, "  seed schema")
	fmt.Fprintln(os.Stderr, "  seed admin --re 999999 --nome \"Administrador\" --email admin@exemplo.com --senha \"Senha123!\"")
	fmt.Fprintln(os.Stderr, "  seed catalogo")
}

func runSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return err
	}
	log.Info().Msg("schema aplicado")
	return nil
}

func runAdmin(ctx context.Context, pool *pgxpool.Pool, args []string) error {
	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		re    = fs.String("re", "", "RE do administrador")
		nome  = fs.String("nome", "", "nome completo")
		email = fs.String("email", "", "e-mail de contato")
		senha = fs.String("senha", "", "senha inicial")
	)

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *re == "" || *nome == "" || *senha == "" {
		return errors.New("re, nome e senha são obrigatórios")
	}
	if err := auth.ValidatePasswordStrength(*senha); err != nil {
		return err
	}

	hash, err := auth.Hash(*senha)
	if err != nil {
		return fmt.Errorf("hash da senha: %w", err)
	}

	const query = `
        INSERT INTO usuarios (re, nome, email, senha_hash, nivel, ativo)
        VALUES ($1, $2, $3, $4, 1, TRUE)
        ON CONFLICT (re) DO UPDATE SET nome = EXCLUDED.nome, email = EXCLUDED.email,
            senha_hash = EXCLUDED.senha_hash, nivel = 1, ativo = TRUE
    `
	if _, err := pool.Exec(ctx, query, *re, *nome, *email, hash); err != nil {
		return err
	}

	log.Info().Str("re", *re).Msg("administrador criado")
	return nil
}

func runCatalogo(ctx context.Context, pool *pgxpool.Pool) error {
	for _, o := range opmsIniciais {
		const query = `
            INSERT INTO opms (codigo, nome) VALUES ($1, $2)
            ON CONFLICT (codigo) DO UPDATE SET nome = EXCLUDED.nome
        `
		if _, err := pool.Exec(ctx, query, o.Codigo, o.Nome); err != nil {
			return fmt.Errorf("opm %s: %w", o.Codigo, err)
		}
	}

	for _, c := range composicoesIniciais {
		const query = `
            INSERT INTO composicoes (opm_codigo, codigo, nome, descricao) VALUES ($1, $2, $3, $4)
            ON CONFLICT (opm_codigo, codigo) DO UPDATE SET nome = EXCLUDED.nome, descricao = EXCLUDED.descricao
        `
		if _, err := pool.Exec(ctx, query, c.OPMCodigo, c.Codigo, c.Nome, c.Descricao); err != nil {
			return fmt.Errorf("composição %s/%s: %w", c.OPMCodigo, c.Codigo, err)
		}
	}

	log.Info().Int("opms", len(opmsIniciais)).Int("composicoes", len(composicoesIniciais)).Msg("catálogo semeado")
	return nil
}
