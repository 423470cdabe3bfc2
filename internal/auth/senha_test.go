package auth

import (
	"errors"
	"strings"
	"testing"
	"unicode"
)

func TestGenerateTempPassword(t *testing.T) {
	for i := 0; i < 50; i++ {
		senha, err := GenerateTempPassword()
		if err != nil {
			t.Fatalf("gerar senha: %v", err)
		}
		if len(senha) != 9 {
			t.Fatalf("esperava 9 caracteres, veio %d (%q)", len(senha), senha)
		}
		if !strings.HasSuffix(senha, "!") {
			t.Fatalf("senha sem sufixo '!': %q", senha)
		}

		var temMaiuscula, temMinuscula, temDigito bool
		for _, r := range senha {
			switch {
			case unicode.IsUpper(r):
				temMaiuscula = true
			case unicode.IsLower(r):
				temMinuscula = true
			case unicode.IsDigit(r):
				temDigito = true
			}
		}
		if !temMaiuscula || !temMinuscula || !temDigito {
			t.Fatalf("senha sem as três classes obrigatórias: %q", senha)
		}

		if err := ValidatePasswordStrength(senha); err != nil {
			t.Fatalf("senha gerada reprovou na própria validação: %q (%v)", senha, err)
		}
	}
}

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name  string
		senha string
		ok    bool
	}{
		{"valida", "Abcdef12", true},
		{"valida com simbolo", "Abcdef1!", true},
		{"curta", "Ab1", false},
		{"sem maiuscula", "abcdef12", false},
		{"sem minuscula", "ABCDEF12", false},
		{"sem digito", "Abcdefgh", false},
		{"vazia", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePasswordStrength(tc.senha)
			if tc.ok && err != nil {
				t.Fatalf("esperava aprovar %q, veio %v", tc.senha, err)
			}
			if !tc.ok {
				if err == nil {
					t.Fatalf("esperava reprovar %q", tc.senha)
				}
				if !errors.Is(err, ErrSenhaFraca) {
					t.Fatalf("esperava ErrSenhaFraca, veio %v", err)
				}
			}
		})
	}
}
