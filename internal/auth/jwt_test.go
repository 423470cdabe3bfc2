package auth

import (
	"testing"
	"time"
)

const segredoTeste = "segredo-de-teste-com-bytes-suficientes-1234"

func TestJWTRoundtrip(t *testing.T) {
	m := NewJWTManager(segredoTeste, 15*time.Minute)

	signed, expires, err := m.GenerateAccessToken("123456", "Sgt Silva", 2)
	if err != nil {
		t.Fatalf("gerar token: %v", err)
	}
	if time.Until(expires) <= 0 {
		t.Fatal("expiração no passado")
	}

	claims, err := m.ParseAndValidate(signed)
	if err != nil {
		t.Fatalf("validar token: %v", err)
	}
	if claims.Subject != "123456" {
		t.Fatalf("subject errado: %q", claims.Subject)
	}
	if claims.Nome != "Sgt Silva" || claims.Nivel != 2 {
		t.Fatalf("claims erradas: nome=%q nivel=%d", claims.Nome, claims.Nivel)
	}
	if claims.ID == "" {
		t.Fatal("token sem jti")
	}
}

func TestJWTRejeitaSegredoErrado(t *testing.T) {
	emissor := NewJWTManager(segredoTeste, 15*time.Minute)
	validador := NewJWTManager("outro-segredo-igualmente-longo-para-teste-99", 15*time.Minute)

	signed, _, err := emissor.GenerateAccessToken("123456", "Sgt Silva", 2)
	if err != nil {
		t.Fatalf("gerar token: %v", err)
	}

	if _, err := validador.ParseAndValidate(signed); err != ErrTokenInvalido {
		t.Fatalf("esperava ErrTokenInvalido, veio %v", err)
	}
}

func TestJWTRejeitaExpirado(t *testing.T) {
	m := NewJWTManager(segredoTeste, -time.Minute)

	signed, _, err := m.GenerateAccessToken("123456", "Sgt Silva", 2)
	if err != nil {
		t.Fatalf("gerar token: %v", err)
	}

	if _, err := m.ParseAndValidate(signed); err != ErrTokenInvalido {
		t.Fatalf("esperava ErrTokenInvalido, veio %v", err)
	}
}

func TestJWTRejeitaLixo(t *testing.T) {
	m := NewJWTManager(segredoTeste, 15*time.Minute)

	for _, token := range []string{"", "abc", "a.b.c"} {
		if _, err := m.ParseAndValidate(token); err != ErrTokenInvalido {
			t.Fatalf("token %q: esperava ErrTokenInvalido, veio %v", token, err)
		}
	}
}
