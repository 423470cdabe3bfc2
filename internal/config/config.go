package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config centraliza a configuração carregada do ambiente.
type Config struct {
	Port            int
	DBDSN           string
	RedisURL        string
	JWTAccessTTL    time.Duration
	JWTRefreshTTL   time.Duration
	JWTSecret       string
	AllowOrigins    []string
	RateLimitPublic RateLimitConfig
	RateLimitAuth   RateLimitConfig
	NivelCacheTTL   time.Duration
	SenhaTempTTL    time.Duration
	SEIPrefixos     []string
	Brevo           BrevoConfig
	Storage         StorageConfig
}

// RateLimitConfig representa limites simples para throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// BrevoConfig descreve o provedor de e-mail transacional.
type BrevoConfig struct {
	APIKey      string
	APIBase     string
	SenderName  string
	SenderEmail string
}

// StorageConfig descreve o backend de anexos das solicitações.
type StorageConfig struct {
	Provider    string
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string
}

// Prefixos de link de documento aceitos quando SEI_PREFIXOS não é definido.
var defaultSEIPrefixos = []string{
	"https://sei.sp.gov.br/",
	"http://sistemasadmin.intranet.policiamilitar.sp.gov.br/",
}

// Load carrega variáveis de ambiente e aplica defaults seguros.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return nil, errors.New("PORT inválida")
	}
	cfg.Port = port

	cfg.DBDSN = getEnv("DB_DSN", "")
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN obrigatório")
	}

	cfg.RedisURL = getEnv("REDIS_URL", "")
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL obrigatório")
	}

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", ""))
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET deve ter pelo menos 32 caracteres")
	}

	accessTTL, err := parseDurationEnv("JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.JWTAccessTTL = accessTTL

	refreshTTL, err := parseDurationEnv("JWT_REFRESH_TTL", 30*24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.JWTRefreshTTL = refreshTTL

	nivelTTL, err := parseDurationEnv("NIVEL_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.NivelCacheTTL = nivelTTL

	senhaTempTTL, err := parseDurationEnv("SENHA_TEMP_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.SenhaTempTTL = senhaTempTTL

	allowOrigins := strings.Split(getEnv("ALLOW_ORIGINS", ""), ",")
	cfg.AllowOrigins = nil
	for _, origin := range allowOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}

	cfg.SEIPrefixos = defaultSEIPrefixos
	if raw := strings.TrimSpace(getEnv("SEI_PREFIXOS", "")); raw != "" {
		cfg.SEIPrefixos = nil
		for _, prefix := range strings.Split(raw, ",") {
			prefix = strings.TrimSpace(prefix)
			if prefix != "" {
				cfg.SEIPrefixos = append(cfg.SEIPrefixos, prefix)
			}
		}
	}

	cfg.RateLimitPublic = RateLimitConfig{RequestsPerSecond: 10, Burst: 20}
	cfg.RateLimitAuth = RateLimitConfig{RequestsPerSecond: 10, Burst: 40}

	cfg.Brevo = BrevoConfig{
		APIKey:      strings.TrimSpace(getEnv("BREVO_API_KEY", "")),
		APIBase:     strings.TrimSpace(getEnv("BREVO_API_BASE", "https://api.brevo.com/v3")),
		SenderName:  strings.TrimSpace(getEnv("BREVO_SENDER_NAME", "DEJEM - 9º GB")),
		SenderEmail: strings.TrimSpace(getEnv("BREVO_SENDER_EMAIL", "9gbdejem@gmail.com")),
	}

	cfg.Storage = StorageConfig{
		Provider:    strings.TrimSpace(getEnv("STORAGE_PROVIDER", "noop")),
		S3Endpoint:  strings.TrimSpace(getEnv("STORAGE_S3_ENDPOINT", "")),
		S3Region:    strings.TrimSpace(getEnv("STORAGE_S3_REGION", "auto")),
		S3Bucket:    strings.TrimSpace(getEnv("STORAGE_S3_BUCKET", "")),
		S3AccessKey: strings.TrimSpace(getEnv("STORAGE_S3_ACCESS_KEY", "")),
		S3SecretKey: strings.TrimSpace(getEnv("STORAGE_S3_SECRET_KEY", "")),
		S3PublicURL: strings.TrimSpace(getEnv("STORAGE_S3_PUBLIC_URL", "")),
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.New(key + " inválido")
	}
	return dur, nil
}
