package auth

import (
	"crypto/rand"
	"errors"
	"math/big"
	"unicode"
)

const (
	maiusculas = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	minusculas = "abcdefghjkmnpqrstuvwxyz"
	digitos    = "23456789"
)

// ErrSenhaFraca indica senha fora dos requisitos mínimos.
var ErrSenhaFraca = errors.New("senha deve ter pelo menos 8 caracteres com maiúscula, minúscula e número")

// GenerateTempPassword gera senha temporária de 8 caracteres com pelo menos
// uma maiúscula, uma minúscula e um dígito, terminada em '!'.
func GenerateTempPassword() (string, error) {
	classes := []string{maiusculas, minusculas, digitos}
	todos := maiusculas + minusculas + digitos

	buf := make([]byte, 0, 9)
	for _, classe := range classes {
		c, err := randomChar(classe)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}
	for len(buf) < 8 {
		c, err := randomChar(todos)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}

	// Embaralha para não fixar a posição das classes obrigatórias.
	for i := len(buf) - 1; i > 0; i-- {
		j, err := randomIndex(i + 1)
		if err != nil {
			return "", err
		}
		buf[i], buf[j] = buf[j], buf[i]
	}

	return string(buf) + "!", nil
}

// ValidatePasswordStrength aplica a regra da tela de perfil.
func ValidatePasswordStrength(senha string) error {
	if len(senha) < 8 {
		return ErrSenhaFraca
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
		return ErrSenhaFraca
	}
	return nil
}

func randomChar(alfabeto string) (byte, error) {
	idx, err := randomIndex(len(alfabeto))
	if err != nil {
		return 0, err
	}
	return alfabeto[idx], nil
}

func randomIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
