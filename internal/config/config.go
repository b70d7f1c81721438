// Package config собирает настройки клиента и relay-сервера: значения по
// умолчанию, затем необязательный YAML-файл, затем переменные GOPHBOARD_*.
// Флаги командной строки применяются поверх в cmd/.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix префикс переменных окружения
const EnvPrefix = "GOPHBOARD_"

// Duration time.Duration, записываемый в YAML строкой ("30s", "2m")
type Duration time.Duration

// UnmarshalYAML разбирает строку длительности
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML записывает длительность строкой
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std возвращает time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// LookupFunc источник переменных окружения (os.LookupEnv в проде)
type LookupFunc func(key string) (string, bool)

// readYAML читает файл конфигурации поверх значений в out.
// Пустой path - файла нет.
func readYAML(path string, out any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// env применяет переменные окружения к полям конфигурации
type env struct {
	lookup LookupFunc
	errs   []error
}

func (e *env) get(name string) (string, bool) {
	v, ok := e.lookup(EnvPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *env) string(name string, dst *string) {
	if v, ok := e.get(name); ok {
		*dst = v
	}
}

func (e *env) duration(name string, dst *Duration) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
		return
	}
	*dst = Duration(parsed)
}

func (e *env) int(name string, dst *int) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
		return
	}
	*dst = parsed
}

func (e *env) float(name string, dst *float64) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
		return
	}
	*dst = parsed
}

func (e *env) bool(name string, dst *bool) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
		return
	}
	*dst = parsed
}

func (e *env) err() error {
	return errors.Join(e.errs...)
}

// ParseLogLevel разбирает уровень логирования: debug, info, warn, error
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// NewLogger создает текстовый логгер заданного уровня
func NewLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
