package diff

import (
	"log/slog"

	"github.com/iudanet/gophboard/internal/document"
	"github.com/iudanet/gophboard/internal/models"
)

// Differ сравнивает версии документа.
type Differ struct {
	logger    *slog.Logger
	algorithm Algorithm
}

// Option настраивает Differ.
type Option func(*Differ)

// WithAlgorithm выбирает алгоритм выравнивания.
func WithAlgorithm(a Algorithm) Option {
	return func(d *Differ) {
		d.algorithm = a
	}
}

// NewDiffer создает Differ. По умолчанию используется эвристика.
func NewDiffer(logger *slog.Logger, opts ...Option) *Differ {
	d := &Differ{
		logger:    logger,
		algorithm: AlgorithmHeuristic,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Comparison результат сравнения двух версий, упорядоченных по времени.
type Comparison struct {
	Older    *models.Version
	Newer    *models.Version
	Segments []Segment
}

// Versions сравнивает содержимое a (старое) и b (новое).
// Версия, которую не удалось декодировать, считается пустым текстом.
func (d *Differ) Versions(a, b *models.Version) []Segment {
	oldText := d.text(a)
	newText := d.text(b)

	if d.algorithm == AlgorithmMyers {
		return Myers(oldText, newText)
	}
	return Text(oldText, newText)
}

// Compare упорядочивает версии от старой к новой и сравнивает их.
func (d *Differ) Compare(a, b *models.Version) Comparison {
	older, newer := a, b
	if b.Timestamp < a.Timestamp {
		older, newer = b, a
	}
	return Comparison{
		Older:    older,
		Newer:    newer,
		Segments: d.Versions(older, newer),
	}
}

func (d *Differ) text(v *models.Version) string {
	if v == nil {
		return ""
	}
	text, err := document.TextFromState(v.Content)
	if err != nil {
		d.logger.Warn("Failed to extract version text",
			"version_id", v.ID,
			"document_id", v.DocumentID,
			"error", err,
		)
		return ""
	}
	return text
}
