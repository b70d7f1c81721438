package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Client настройки CLI-клиента
type Client struct {
	ServerURL string `yaml:"server_url"`
	// Transport вариант транспорта: relay или p2p (только внутри процесса)
	Transport string `yaml:"transport"`
	DBPath    string `yaml:"db_path"`
	LogLevel  string `yaml:"log_level"`
	UserID    string `yaml:"user"`
	Token     string `yaml:"token"`
	// RedisAddr адрес Redis для шины событий проекта; пусто - шина в памяти процесса
	RedisAddr        string   `yaml:"redis_addr"`
	DiffAlgorithm    string   `yaml:"diff_algorithm"`
	AutoSaveInterval Duration `yaml:"autosave_interval"`
	ActivityWindow   Duration `yaml:"activity_window"`
	ThrottleWindow   Duration `yaml:"throttle_window"`
	ActivityDebounce Duration `yaml:"activity_debounce"`
	ActivityCapacity int      `yaml:"activity_capacity"`
	// SyncTimeout сколько ждать состояния комнаты при открытии документа
	SyncTimeout Duration `yaml:"sync_timeout"`
}

// DefaultClient значения по умолчанию
func DefaultClient() Client {
	return Client{
		ServerURL:        "http://localhost:8080",
		Transport:        "relay",
		DBPath:           "gophboard-client.db",
		LogLevel:         "warn",
		UserID:           "userA",
		DiffAlgorithm:    "heuristic",
		AutoSaveInterval: Duration(2 * time.Minute),
		ActivityWindow:   Duration(10 * time.Second),
		ThrottleWindow:   Duration(5 * time.Second),
		ActivityDebounce: Duration(10 * time.Second),
		ActivityCapacity: 100,
		SyncTimeout:      Duration(5 * time.Second),
	}
}

// LoadClient собирает конфигурацию клиента из файла path (может быть пустым)
// и переменных окружения
func LoadClient(path string, lookup LookupFunc) (Client, error) {
	cfg := DefaultClient()
	if err := readYAML(path, &cfg); err != nil {
		return cfg, err
	}

	if lookup == nil {
		lookup = os.LookupEnv
	}
	e := &env{lookup: lookup}
	e.string("SERVER", &cfg.ServerURL)
	e.string("TRANSPORT", &cfg.Transport)
	e.string("CLIENT_DB", &cfg.DBPath)
	e.string("LOG_LEVEL", &cfg.LogLevel)
	e.string("USER", &cfg.UserID)
	e.string("TOKEN", &cfg.Token)
	e.string("REDIS_ADDR", &cfg.RedisAddr)
	e.string("DIFF_ALGORITHM", &cfg.DiffAlgorithm)
	e.duration("AUTOSAVE_INTERVAL", &cfg.AutoSaveInterval)
	e.duration("ACTIVITY_WINDOW", &cfg.ActivityWindow)
	e.duration("THROTTLE_WINDOW", &cfg.ThrottleWindow)
	e.duration("ACTIVITY_DEBOUNCE", &cfg.ActivityDebounce)
	e.int("ACTIVITY_CAPACITY", &cfg.ActivityCapacity)
	e.duration("SYNC_TIMEOUT", &cfg.SyncTimeout)
	if err := e.err(); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// Validate проверяет согласованность настроек
func (c Client) Validate() error {
	var errs []error
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if c.Transport != "relay" && c.Transport != "p2p" {
		errs = append(errs, fmt.Errorf("transport must be relay or p2p, got %q", c.Transport))
	}
	if c.Transport == "relay" && c.ServerURL == "" {
		errs = append(errs, errors.New("server_url is required for relay transport"))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.AutoSaveInterval <= 0 || c.ActivityWindow <= 0 || c.ThrottleWindow <= 0 || c.ActivityDebounce <= 0 || c.SyncTimeout <= 0 {
		errs = append(errs, errors.New("intervals must be positive"))
	}
	if c.ActivityCapacity <= 0 {
		errs = append(errs, errors.New("activity_capacity must be positive"))
	}
	return errors.Join(errs...)
}
