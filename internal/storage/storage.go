package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dejem9gb/dejem/internal/config"
)

// UploadInput representa o envio de um comprovante de solicitação.
type UploadInput struct {
	Key         string
	Body        []byte
	ContentType string
}

// UploadResult descreve o artefato persistido.
type UploadResult struct {
	URL  string
	ETag string
}

// Uploader define comportamento básico para armazenar anexos.
type Uploader interface {
	Upload(ctx context.Context, input UploadInput) (*UploadResult, error)
}

// AnexoKey monta a chave do objeto para um comprovante de solicitação.
// O nome original do arquivo é saneado e prefixado com timestamp para
// evitar colisão entre reenvios.
func AnexoKey(solicitacaoID, filename string) string {
	base := path.Base(filename)
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	return fmt.Sprintf("solicitacoes/%s/%d_%s", solicitacaoID, time.Now().Unix(), base)
}

// NewFromConfig escolhe o backend de anexos conforme STORAGE_PROVIDER.
func NewFromConfig(cfg config.StorageConfig) (Uploader, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "noop":
		return NoopUploader{}, nil
	case "s3":
		return NewS3Uploader(S3Config{
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			Bucket:       cfg.S3Bucket,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			PublicDomain: cfg.S3PublicURL,
		})
	default:
		return nil, fmt.Errorf("storage: provider desconhecido %q", cfg.Provider)
	}
}
