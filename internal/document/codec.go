package document

import (
	"encoding/json"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/klauspost/compress/zstd"

	"github.com/iudanet/gophboard/internal/models"
)

// formatVersion первый байт закодированного состояния
const formatVersion byte = 1

// wireState - формат и полного состояния, и update (дельты).
// Дельта - это просто состояние, содержащее только новые элементы,
// поэтому применение update и слияние состояний - одна и та же операция.
type wireState struct {
	Items      []models.Item   `json:"items,omitempty"`
	Tombstones []models.ItemID `json:"tombstones,omitempty"`
	Marks      []models.Mark   `json:"marks,omitempty"`
}

func (w *wireState) empty() bool {
	return len(w.Items) == 0 && len(w.Tombstones) == 0 && len(w.Marks) == 0
}

var (
	// один поток сжатия: вывод детерминирован для одинакового входа
	encoder, _ = zstd.NewWriter(nil,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	decoder, _ = zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(64<<20),
	)
)

// encodeState сериализует состояние в канонический вид: все коллекции
// отсортированы по идентификаторам, поэтому одинаковое CRDT-состояние
// дает побайтно одинаковый результат.
func encodeState(w *wireState) ([]byte, error) {
	canonical := wireState{
		Items:      append([]models.Item(nil), w.Items...),
		Tombstones: append([]models.ItemID(nil), w.Tombstones...),
		Marks:      append([]models.Mark(nil), w.Marks...),
	}
	sort.Slice(canonical.Items, func(i, j int) bool {
		return canonical.Items[i].ID.Less(canonical.Items[j].ID)
	})
	sort.Slice(canonical.Tombstones, func(i, j int) bool {
		return canonical.Tombstones[i].Less(canonical.Tombstones[j])
	})
	sort.Slice(canonical.Marks, func(i, j int) bool {
		return canonical.Marks[i].ID < canonical.Marks[j].ID
	})

	raw, err := json.Marshal(&canonical)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document state: %w", err)
	}

	return encoder.EncodeAll(raw, []byte{formatVersion}), nil
}

// decodeState разбирает и валидирует состояние. Любая ошибка оборачивает ErrDecode.
func decodeState(data []byte) (*wireState, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("%w: state too short (%d bytes)", ErrDecode, len(data))
	}
	if data[0] != formatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrDecode, data[0])
	}

	raw, err := decoder.DecodeAll(data[1:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	var w wireState
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if err := validateState(&w); err != nil {
		return nil, err
	}
	return &w, nil
}

func validateState(w *wireState) error {
	for _, item := range w.Items {
		if item.ID.IsZero() {
			return fmt.Errorf("%w: item with empty id", ErrDecode)
		}
		if utf8.RuneCountInString(item.Value) != 1 {
			return fmt.Errorf("%w: item %s must hold exactly one rune", ErrDecode, item.ID)
		}
		// origin создан раньше элемента, иначе дерево содержит цикл
		if !item.Origin.IsZero() && item.Origin.Clock >= item.ID.Clock {
			return fmt.Errorf("%w: item %s has origin %s from the future", ErrDecode, item.ID, item.Origin)
		}
	}
	for _, id := range w.Tombstones {
		if id.IsZero() {
			return fmt.Errorf("%w: tombstone with empty id", ErrDecode)
		}
	}
	for _, mark := range w.Marks {
		if mark.ID == "" {
			return fmt.Errorf("%w: mark with empty id", ErrDecode)
		}
		if !mark.Type.IsValid() {
			return fmt.Errorf("%w: unknown mark type %q", ErrDecode, mark.Type)
		}
	}
	return nil
}
