package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Server настройки relay-сервера
type Server struct {
	Addr             string   `yaml:"addr"`
	DBPath           string   `yaml:"db_path"`
	LogLevel         string   `yaml:"log_level"`
	JWTSecret        string   `yaml:"jwt_secret"`
	TokenTTL         Duration `yaml:"token_ttl"`
	SnapshotInterval Duration `yaml:"snapshot_interval"`
	ShutdownTimeout  Duration `yaml:"shutdown_timeout"`
	// MessageRate и MessageBurst ограничивают сообщения одного WebSocket-соединения
	MessageRate  float64 `yaml:"message_rate"`
	MessageBurst int     `yaml:"message_burst"`
	// RateLimit HTTP-запросов в минуту с одного IP; TokenRateLimit - для /api/v1/token
	RateLimit      int  `yaml:"rate_limit"`
	TokenRateLimit int  `yaml:"token_rate_limit"`
	RequireAuth    bool `yaml:"require_auth"`
}

// DefaultServer значения по умолчанию
func DefaultServer() Server {
	return Server{
		Addr:             ":8080",
		DBPath:           "gophboard-relay.db",
		LogLevel:         "info",
		TokenTTL:         Duration(24 * time.Hour),
		SnapshotInterval: Duration(30 * time.Second),
		ShutdownTimeout:  Duration(10 * time.Second),
		MessageRate:      50,
		MessageBurst:     100,
		RateLimit:        600,
		TokenRateLimit:   10,
	}
}

// LoadServer собирает конфигурацию сервера из файла path (может быть пустым)
// и переменных окружения
func LoadServer(path string, lookup LookupFunc) (Server, error) {
	cfg := DefaultServer()
	if err := readYAML(path, &cfg); err != nil {
		return cfg, err
	}

	if lookup == nil {
		lookup = os.LookupEnv
	}
	e := &env{lookup: lookup}
	e.string("ADDR", &cfg.Addr)
	e.string("DB", &cfg.DBPath)
	e.string("LOG_LEVEL", &cfg.LogLevel)
	e.string("JWT_SECRET", &cfg.JWTSecret)
	e.duration("TOKEN_TTL", &cfg.TokenTTL)
	e.duration("SNAPSHOT_INTERVAL", &cfg.SnapshotInterval)
	e.duration("SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout)
	e.float("MESSAGE_RATE", &cfg.MessageRate)
	e.int("MESSAGE_BURST", &cfg.MessageBurst)
	e.int("RATE_LIMIT", &cfg.RateLimit)
	e.int("TOKEN_RATE_LIMIT", &cfg.TokenRateLimit)
	e.bool("REQUIRE_AUTH", &cfg.RequireAuth)
	if err := e.err(); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// Validate проверяет согласованность настроек
func (c Server) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.RequireAuth && c.JWTSecret == "" {
		errs = append(errs, errors.New("require_auth needs jwt_secret"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("token_ttl must be positive, got %s", c.TokenTTL.Std()))
	}
	if c.SnapshotInterval <= 0 {
		errs = append(errs, fmt.Errorf("snapshot_interval must be positive, got %s", c.SnapshotInterval.Std()))
	}
	if c.RateLimit <= 0 || c.TokenRateLimit <= 0 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	return errors.Join(errs...)
}
