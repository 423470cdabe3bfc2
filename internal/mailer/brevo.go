package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dejem9gb/dejem/internal/config"
)

// Mailer envia e-mails transacionais do DEJEM.
type Mailer interface {
	SendSenhaTemporaria(ctx context.Context, email, nome, senha string) error
}

// BrevoMailer envia via API transacional da Brevo.
type BrevoMailer struct {
	cfg    config.BrevoConfig
	client *http.Client
}

// NewBrevo cria mailer com timeout curto.
func NewBrevo(cfg config.BrevoConfig) (*BrevoMailer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("mailer: BREVO_API_KEY ausente")
	}
	return &BrevoMailer{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type brevoParty struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoSendRequest struct {
	Sender      brevoParty   `json:"sender"`
	To          []brevoParty `json:"to"`
	Subject     string       `json:"subject"`
	HTMLContent string       `json:"htmlContent"`
}

// SendSenhaTemporaria envia a senha temporária gerada para o e-mail cadastrado.
func (m *BrevoMailer) SendSenhaTemporaria(ctx context.Context, email, nome, senha string) error {
	body := brevoSendRequest{
		Sender:  brevoParty{Name: m.cfg.SenderName, Email: m.cfg.SenderEmail},
		To:      []brevoParty{{Name: nome, Email: email}},
		Subject: "DEJEM - Senha temporária de acesso",
		HTMLContent: fmt.Sprintf(
			"<p>Olá, %s.</p><p>Sua senha temporária de acesso ao sistema DEJEM é:</p>"+
				"<p><strong>%s</strong></p>"+
				"<p>Ela expira em 24 horas. No primeiro acesso será solicitada uma senha definitiva.</p>",
			nome, senha,
		),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	url := strings.TrimRight(m.cfg.APIBase, "/") + "/smtp/email"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", m.cfg.APIKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("mailer: brevo respondeu %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	return nil
}

// LogMailer apenas registra o envio, para ambientes sem BREVO_API_KEY.
type LogMailer struct{}

// SendSenhaTemporaria registra o destino sem expor a senha.
func (LogMailer) SendSenhaTemporaria(ctx context.Context, email, nome, senha string) error {
	log.Warn().Str("email", email).Msg("mailer desativado, senha temporária não enviada")
	return nil
}
