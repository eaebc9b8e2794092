package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aIcoder504/apbmt-2025-conference-system/models"
)

const (
	configPathEnv = "PORTAL_CONFIG"

	defaultPort        = "8080"
	defaultMaxBulkSize = 100
	defaultNotifyDelay = 100 * time.Millisecond
	defaultSMTPPort    = 587
)

// Notification dispatch modes.
const (
	NotifyAsync    = "async"
	NotifyAwaited  = "awaited"
	NotifyQueue    = "queue"
	NotifyDisabled = "disabled"
)

// Identifier policies applied once a batch is structurally valid.
const (
	IDPolicyTolerant = "tolerant"
	IDPolicyStrict   = "strict"
)

// Settings is the runtime configuration shared by the API, worker and CLI.
type Settings struct {
	Environment string
	GinMode     string
	Port        string
	LogLevel    string
	JWTSecret   string

	AllowedOrigins []string

	Database   DatabaseSettings
	SMTP       SMTPSettings
	Redis      RedisSettings
	Conference ConferenceSettings
	Pipeline   PipelineSettings
}

type DatabaseSettings struct {
	Driver   string
	Host     string
	Port     string
	Name     string
	Username string
	Password string
	URL      string
	DebugSQL bool
}

type SMTPSettings struct {
	Host          string
	Port          int
	User          string
	Pass          string
	From          string
	SkipTLSVerify bool
}

type RedisSettings struct {
	Addr     string
	Password string
	DB       int
}

type ConferenceSettings struct {
	Name    string `yaml:"name"`
	Website string `yaml:"website"`
}

// PipelineSettings tunes the status-update pipeline.
type PipelineSettings struct {
	MaxBulkSize       int
	SupportedStatuses []string
	NotifyMode        string
	NotifyDelay       time.Duration
	IDPolicy          string
}

// DefaultPipelineSettings mirrors the behaviour the admin UI was built against.
func DefaultPipelineSettings() PipelineSettings {
	return PipelineSettings{
		MaxBulkSize:       defaultMaxBulkSize,
		SupportedStatuses: append([]string(nil), models.DefaultUpdatableStatuses...),
		NotifyMode:        NotifyAsync,
		NotifyDelay:       defaultNotifyDelay,
		IDPolicy:          IDPolicyTolerant,
	}
}

// Load reads the optional YAML overlay named by PORTAL_CONFIG and then the
// environment. Environment variables take precedence over the file.
func Load() (*Settings, error) {
	s := &Settings{Pipeline: DefaultPipelineSettings()}

	if path := strings.TrimSpace(os.Getenv(configPathEnv)); path != "" {
		if err := s.loadFile(path); err != nil {
			return nil, err
		}
	}

	s.Environment = strings.ToLower(readEnv("ENVIRONMENT", "development"))
	s.GinMode = readEnv("GIN_MODE", "")
	s.Port = readEnv("SERVER_PORT", defaultPort)
	s.LogLevel = readEnv("LOG_LEVEL", "info")
	s.JWTSecret = os.Getenv("JWT_SECRET")
	s.AllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))

	s.Database = DatabaseSettings{
		Driver:   strings.ToLower(readEnv("DB_DRIVER", "mysql")),
		Host:     readEnv("DB_HOST", "127.0.0.1"),
		Port:     os.Getenv("DB_PORT"),
		Name:     os.Getenv("DB_DATABASE"),
		Username: os.Getenv("DB_USERNAME"),
		Password: os.Getenv("DB_PASSWORD"),
		URL:      os.Getenv("DATABASE_URL"),
		DebugSQL: strings.EqualFold(os.Getenv("DEBUG_SQL"), "true"),
	}

	s.SMTP = SMTPSettings{
		Host:          os.Getenv("SMTP_HOST"),
		Port:          parseInt("SMTP_PORT", defaultSMTPPort),
		User:          os.Getenv("SMTP_USER"),
		Pass:          os.Getenv("SMTP_PASS"),
		From:          os.Getenv("SMTP_FROM"),
		SkipTLSVerify: os.Getenv("SMTP_SKIP_TLS_VERIFY") == "1",
	}
	if s.SMTP.Port == 0 {
		s.SMTP.Port = defaultSMTPPort
	}

	s.Redis = RedisSettings{
		Addr:     readEnv("REDIS_ADDR", "127.0.0.1:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       parseInt("REDIS_DB", 0),
	}

	s.Conference.Name = readEnv("CONFERENCE_NAME", s.Conference.Name)
	s.Conference.Website = readEnv("CONFERENCE_WEBSITE", s.Conference.Website)

	s.Pipeline.MaxBulkSize = parseInt("MAX_BULK_SIZE", s.Pipeline.MaxBulkSize)
	s.Pipeline.NotifyMode = strings.ToLower(readEnv("NOTIFY_MODE", s.Pipeline.NotifyMode))
	s.Pipeline.NotifyDelay = parseDuration("NOTIFY_DELAY", s.Pipeline.NotifyDelay)
	s.Pipeline.IDPolicy = strings.ToLower(readEnv("ID_POLICY", s.Pipeline.IDPolicy))

	if err := s.Pipeline.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate normalises zero values and rejects unknown modes.
func (p *PipelineSettings) Validate() error {
	if p.MaxBulkSize <= 0 {
		p.MaxBulkSize = defaultMaxBulkSize
	}
	if len(p.SupportedStatuses) == 0 {
		p.SupportedStatuses = append([]string(nil), models.DefaultUpdatableStatuses...)
	}
	if p.NotifyDelay < 0 {
		p.NotifyDelay = 0
	}
	switch p.NotifyMode {
	case "":
		p.NotifyMode = NotifyAsync
	case NotifyAsync, NotifyAwaited, NotifyQueue, NotifyDisabled:
	default:
		return fmt.Errorf("unknown notify mode %q", p.NotifyMode)
	}
	switch p.IDPolicy {
	case "":
		p.IDPolicy = IDPolicyTolerant
	case IDPolicyTolerant, IDPolicyStrict:
	default:
		return fmt.Errorf("unknown identifier policy %q", p.IDPolicy)
	}
	return nil
}

// IsProduction reports whether ENVIRONMENT=production.
func (s *Settings) IsProduction() bool {
	return s.Environment == "production"
}

func (s *Settings) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var file struct {
		Conference ConferenceSettings `yaml:"conference"`
		Pipeline   struct {
			MaxBulkSize       int      `yaml:"maxBulkSize"`
			SupportedStatuses []string `yaml:"supportedStatuses"`
			NotifyMode        string   `yaml:"notifyMode"`
			NotifyDelay       string   `yaml:"notifyDelay"`
			IDPolicy          string   `yaml:"idPolicy"`
		} `yaml:"pipeline"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	s.Conference = file.Conference
	if file.Pipeline.MaxBulkSize > 0 {
		s.Pipeline.MaxBulkSize = file.Pipeline.MaxBulkSize
	}
	if len(file.Pipeline.SupportedStatuses) > 0 {
		s.Pipeline.SupportedStatuses = file.Pipeline.SupportedStatuses
	}
	if file.Pipeline.NotifyMode != "" {
		s.Pipeline.NotifyMode = strings.ToLower(file.Pipeline.NotifyMode)
	}
	if file.Pipeline.NotifyDelay != "" {
		d, err := time.ParseDuration(file.Pipeline.NotifyDelay)
		if err != nil {
			return fmt.Errorf("parse notifyDelay: %w", err)
		}
		s.Pipeline.NotifyDelay = d
	}
	if file.Pipeline.IDPolicy != "" {
		s.Pipeline.IDPolicy = strings.ToLower(file.Pipeline.IDPolicy)
	}
	return nil
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
