package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenInvalido é retornado quando o token não passa na validação.
	ErrTokenInvalido = errors.New("token inválido")
)

// Claims carrega as claims de acesso do DEJEM. Subject é o RE do usuário.
type Claims struct {
	Nome  string `json:"nome"`
	Nivel int    `json:"nivel"`
	jwt.RegisteredClaims
}

// JWTManager emite e valida tokens de acesso HS256.
type JWTManager struct {
	secret    []byte
	accessTTL time.Duration
	issuer    string
}

// NewJWTManager cria gerenciador com segredo compartilhado.
func NewJWTManager(secret string, accessTTL time.Duration) *JWTManager {
	return &JWTManager{
		secret:    []byte(secret),
		accessTTL: accessTTL,
		issuer:    "dejem-9gb",
	}
}

// GenerateAccessToken emite token curto para o RE informado.
func (m *JWTManager) GenerateAccessToken(re, nome string, nivel int) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(m.accessTTL)

	claims := Claims{
		Nome:  nome,
		Nivel: nivel,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   re,
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{"dejem"},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expires, nil
}

// ParseAndValidate confere assinatura, expiração e issuer.
func (m *JWTManager) ParseAndValidate(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalido
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalido
	}

	if claims.Subject == "" {
		return nil, ErrTokenInvalido
	}

	return claims, nil
}
