package versions

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/gophboard/internal/models"
)

const (
	DefaultAutoSaveInterval = 2 * time.Minute
	DefaultActivityWindow   = 10 * time.Second

	autoSaveTimeout = 30 * time.Second
)

// TickResult исход одного срабатывания автосохранения
type TickResult int

const (
	TickSaved TickResult = iota
	// TickSkipped - не ошибка: другой участник недавно редактировал документ,
	// и его снимок сохранит он сам
	TickSkipped
	TickFailed
)

func (r TickResult) String() string {
	switch r {
	case TickSaved:
		return "saved"
	case TickSkipped:
		return "skipped"
	case TickFailed:
		return "failed"
	default:
		return fmt.Sprintf("tick(%d)", int(r))
	}
}

// Awareness сведения о присутствии участников комнаты.
type Awareness interface {
	// PeerCount число участников, включая себя
	PeerCount() int
	// LastRemoteActivity время последней правки удаленного участника
	LastRemoteActivity() time.Time
}

// VersionAdder сохраняет версии.
type VersionAdder interface {
	AddVersion(ctx context.Context, nv models.NewVersion) (*models.Version, error)
}

// AutoSaverConfig параметры автосохранения
type AutoSaverConfig struct {
	Now            func() time.Time
	DocumentID     string
	ProjectID      string
	CreatedBy      string
	Interval       time.Duration
	ActivityWindow time.Duration
}

// AutoSaver периодически сохраняет снимок документа с isAutoSaved=true.
// Срабатывание пропускается, если в комнате больше одного участника и
// хотя бы один удаленный участник редактировал в пределах ActivityWindow.
type AutoSaver struct {
	adder     VersionAdder
	awareness Awareness
	snapshot  func() ([]byte, error)
	logger    *slog.Logger
	stop      chan struct{}
	done      chan struct{}
	cfg       AutoSaverConfig
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewAutoSaver создает автосохранение. snapshot возвращает полное закодированное состояние.
func NewAutoSaver(adder VersionAdder, snapshot func() ([]byte, error), awareness Awareness, cfg AutoSaverConfig, logger *slog.Logger) *AutoSaver {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultAutoSaveInterval
	}
	if cfg.ActivityWindow <= 0 {
		cfg.ActivityWindow = DefaultActivityWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &AutoSaver{
		adder:     adder,
		awareness: awareness,
		snapshot:  snapshot,
		logger:    logger.With("document_id", cfg.DocumentID),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		cfg:       cfg,
	}
}

// ShouldSkip решает, пропустить ли автосохранение.
func ShouldSkip(peerCount int, lastRemoteActivity, now time.Time, window time.Duration) bool {
	if peerCount <= 1 || lastRemoteActivity.IsZero() {
		return false
	}
	return now.Sub(lastRemoteActivity) < window
}

// Start запускает таймер. Повторный вызов - no-op.
func (a *AutoSaver) Start() {
	a.startOnce.Do(func() {
		go a.loop()
	})
}

// Stop останавливает таймер и ждет завершения текущего срабатывания.
// После возврата ни одно срабатывание не выполняется.
func (a *AutoSaver) Stop() {
	a.stopOnce.Do(func() {
		close(a.stop)
	})
	// если Start не вызывался, горутины нет: закрываем done сами
	a.startOnce.Do(func() {
		close(a.done)
	})
	<-a.done
}

func (a *AutoSaver) loop() {
	defer close(a.done)

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
			// Stop мог прийти одновременно с тиком
			select {
			case <-a.stop:
				return
			default:
			}
			ctx, cancel := context.WithTimeout(context.Background(), autoSaveTimeout)
			a.Tick(ctx)
			cancel()
		}
	}
}

// Tick выполняет одно срабатывание автосохранения.
func (a *AutoSaver) Tick(ctx context.Context) TickResult {
	peers := 1
	var lastRemote time.Time
	if a.awareness != nil {
		peers = a.awareness.PeerCount()
		lastRemote = a.awareness.LastRemoteActivity()
	}

	now := a.cfg.Now()
	if ShouldSkip(peers, lastRemote, now, a.cfg.ActivityWindow) {
		a.logger.Info("Auto-save skipped",
			"result", TickSkipped.String(),
			"peers", peers,
			"remote_active_ago", now.Sub(lastRemote).Round(time.Millisecond),
		)
		return TickSkipped
	}

	content, err := a.snapshot()
	if err != nil {
		a.logger.Warn("Failed to snapshot document for auto-save", "error", err)
		return TickFailed
	}

	_, err = a.adder.AddVersion(ctx, models.NewVersion{
		DocumentID:  a.cfg.DocumentID,
		ProjectID:   a.cfg.ProjectID,
		Title:       TitleAutoSave,
		CreatedBy:   a.cfg.CreatedBy,
		Content:     content,
		IsAutoSaved: true,
	})
	if err != nil {
		a.logger.Warn("Auto-save failed", "error", err)
		return TickFailed
	}
	return TickSaved
}
