package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dejem9gb/dejem/internal/auth"
	"github.com/dejem9gb/dejem/internal/mailer"
	"github.com/dejem9gb/dejem/internal/repo"
)

type stubAuthRepo struct {
	usuarios   map[string]*repo.Usuario
	refresh    map[string]repo.TokenRefresh
	permissoes map[string][]string
}

func newStubAuthRepo() *stubAuthRepo {
	return &stubAuthRepo{
		usuarios:   map[string]*repo.Usuario{},
		refresh:    map[string]repo.TokenRefresh{},
		permissoes: map[string][]string{},
	}
}

func (s *stubAuthRepo) GetUsuario(ctx context.Context, re string) (*repo.Usuario, error) {
	u, ok := s.usuarios[re]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *stubAuthRepo) GetNivel(ctx context.Context, re string) (int, error) {
	u, ok := s.usuarios[re]
	if !ok || !u.Ativo {
		return 0, repo.ErrNotFound
	}
	return u.Nivel, nil
}

func (s *stubAuthRepo) SetSenha(ctx context.Context, re, senhaHash string, redefinir bool, expira *time.Time) error {
	u, ok := s.usuarios[re]
	if !ok {
		return repo.ErrNotFound
	}
	u.SenhaHash = senhaHash
	u.RedefinirSenha = redefinir
	u.SenhaTemporariaExpira = expira
	return nil
}

func (s *stubAuthRepo) ListOPMPermissoes(ctx context.Context, re string) ([]string, error) {
	return s.permissoes[re], nil
}

func (s *stubAuthRepo) SaveRefreshToken(ctx context.Context, hash, re string, expiraEm time.Time) error {
	s.refresh[hash] = repo.TokenRefresh{Hash: hash, RE: re, ExpiraEm: expiraEm, CriadoEm: time.Now()}
	return nil
}

func (s *stubAuthRepo) GetRefreshToken(ctx context.Context, hash string) (*repo.TokenRefresh, error) {
	t, ok := s.refresh[hash]
	if !ok || time.Now().After(t.ExpiraEm) {
		return nil, repo.ErrNotFound
	}
	return &t, nil
}

func (s *stubAuthRepo) DeleteRefreshToken(ctx context.Context, hash string) error {
	delete(s.refresh, hash)
	return nil
}

func (s *stubAuthRepo) DeleteRefreshTokensDoRE(ctx context.Context, re string) error {
	for hash, t := range s.refresh {
		if t.RE == re {
			delete(s.refresh, hash)
		}
	}
	return nil
}

func mustHash(t *testing.T, senha string) string {
	t.Helper()
	hash, err := auth.Hash(senha)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return hash
}

func fixtureAuthService(t *testing.T) (*AuthService, *stubAuthRepo) {
	t.Helper()
	r := newStubAuthRepo()
	r.usuarios["123456"] = &repo.Usuario{
		RE:        "123456",
		Nome:      "Sgt Silva",
		Email:     "silva@exemplo.com",
		SenhaHash: mustHash(t, "Senha123"),
		Nivel:     2,
		Ativo:     true,
	}
	r.permissoes["123456"] = []string{"EB901"}

	jwtMgr := auth.NewJWTManager("segredo-de-teste-com-bytes-suficientes-1234", 15*time.Minute)
	svc := NewAuthService(r, nil, jwtMgr, mailer.LogMailer{}, 30*24*time.Hour, 5*time.Minute, 24*time.Hour)
	return svc, r
}

func TestVerificarRE(t *testing.T) {
	svc, r := fixtureAuthService(t)
	ctx := context.Background()

	pre, err := svc.VerificarRE(ctx, " 123456 ")
	if err != nil {
		t.Fatalf("verificar RE: %v", err)
	}
	if pre.Nome != "Sgt Silva" {
		t.Fatalf("nome errado: %q", pre.Nome)
	}
	if pre.Email != "si***@exemplo.com" {
		t.Fatalf("e-mail sem máscara: %q", pre.Email)
	}

	if _, err := svc.VerificarRE(ctx, "999999"); !errors.Is(err, ErrCredenciaisInvalidas) {
		t.Fatalf("RE inexistente: esperava ErrCredenciaisInvalidas, veio %v", err)
	}

	r.usuarios["123456"].Ativo = false
	if _, err := svc.VerificarRE(ctx, "123456"); !errors.Is(err, ErrContaInativa) {
		t.Fatalf("conta inativa: esperava ErrContaInativa, veio %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, _ := fixtureAuthService(t)
	ctx := context.Background()

	result, err := svc.Login(ctx, "123456", "Senha123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("login sem tokens")
	}
	if result.Perfil.RE != "123456" || result.Perfil.Nivel != 2 {
		t.Fatalf("perfil errado: %+v", result.Perfil)
	}
	if len(result.Perfil.PermissaoOPM) != 1 || result.Perfil.PermissaoOPM[0] != "EB901" {
		t.Fatalf("permissões erradas: %v", result.Perfil.PermissaoOPM)
	}

	claims, err := svc.JWT().ParseAndValidate(result.AccessToken)
	if err != nil {
		t.Fatalf("access token inválido: %v", err)
	}
	if claims.Subject != "123456" {
		t.Fatalf("subject errado: %q", claims.Subject)
	}

	if _, err := svc.Login(ctx, "123456", "errada"); !errors.Is(err, ErrCredenciaisInvalidas) {
		t.Fatalf("senha errada: esperava ErrCredenciaisInvalidas, veio %v", err)
	}
}

func TestLoginComRedefinicaoPendente(t *testing.T) {
	svc, r := fixtureAuthService(t)
	ctx := context.Background()

	futuro := time.Now().Add(time.Hour)
	r.usuarios["123456"].RedefinirSenha = true
	r.usuarios["123456"].SenhaTemporariaExpira = &futuro

	if _, err := svc.Login(ctx, "123456", "Senha123"); !errors.Is(err, ErrRedefinicaoPendente) {
		t.Fatalf("esperava ErrRedefinicaoPendente, veio %v", err)
	}

	passado := time.Now().Add(-time.Hour)
	r.usuarios["123456"].SenhaTemporariaExpira = &passado

	if _, err := svc.Login(ctx, "123456", "Senha123"); !errors.Is(err, ErrSenhaTemporariaExpirada) {
		t.Fatalf("esperava ErrSenhaTemporariaExpirada, veio %v", err)
	}
}

func TestRedefinirSenha(t *testing.T) {
	svc, r := fixtureAuthService(t)
	ctx := context.Background()

	futuro := time.Now().Add(time.Hour)
	r.usuarios["123456"].SenhaHash = mustHash(t, "Temp1234!")
	r.usuarios["123456"].RedefinirSenha = true
	r.usuarios["123456"].SenhaTemporariaExpira = &futuro
	r.refresh["antigo"] = repo.TokenRefresh{Hash: "antigo", RE: "123456", ExpiraEm: futuro}

	if err := svc.RedefinirSenha(ctx, "123456", "Temp1234!", "fraca"); !errors.Is(err, auth.ErrSenhaFraca) {
		t.Fatalf("senha fraca: esperava ErrSenhaFraca, veio %v", err)
	}

	if err := svc.RedefinirSenha(ctx, "123456", "Temp1234!", "NovaSenha9"); err != nil {
		t.Fatalf("redefinir: %v", err)
	}
	if r.usuarios["123456"].RedefinirSenha {
		t.Fatal("flag de redefinição não foi limpa")
	}
	if len(r.refresh) != 0 {
		t.Fatal("sessões antigas não foram revogadas")
	}

	if _, err := svc.Login(ctx, "123456", "NovaSenha9"); err != nil {
		t.Fatalf("login com a nova senha: %v", err)
	}
}

func TestRefreshRotaciona(t *testing.T) {
	svc, _ := fixtureAuthService(t)
	ctx := context.Background()

	login, err := svc.Login(ctx, "123456", "Senha123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	renovado, err := svc.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if renovado.RefreshToken == login.RefreshToken {
		t.Fatal("refresh token não foi rotacionado")
	}

	// O token usado não serve uma segunda vez.
	if _, err := svc.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrRefreshInvalido) {
		t.Fatalf("reuso: esperava ErrRefreshInvalido, veio %v", err)
	}
}

func TestNivelAtualSemRedis(t *testing.T) {
	svc, r := fixtureAuthService(t)
	ctx := context.Background()

	nivel, err := svc.NivelAtual(ctx, "123456")
	if err != nil {
		t.Fatalf("nível: %v", err)
	}
	if nivel != 2 {
		t.Fatalf("esperava nível 2, veio %d", nivel)
	}

	r.usuarios["123456"].Ativo = false
	if _, err := svc.NivelAtual(ctx, "123456"); err == nil {
		t.Fatal("esperava erro para conta inativa")
	}
}

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"silva@exemplo.com", "si***@exemplo.com"},
		{"a@exemplo.com", "a***@exemplo.com"},
		{"sem-arroba", "sem-arroba"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := maskEmail(tc.in); got != tc.out {
			t.Fatalf("maskEmail(%q) = %q, esperava %q", tc.in, got, tc.out)
		}
	}
}
