package feedback

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/globaltime"
	payloadschema "github.com/Hardcoreprawn/tech-content-curator-sub000/internal/schema"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/statefile"
)

var errCorruptLog = errors.New("corrupt feedback log")

type storedRecord struct {
	ID              string    `json:"id,omitempty"`
	Stage           string    `json:"stage,omitempty"`
	ItemsProcessed  int       `json:"itemsProcessed"`
	DuplicatesFound int       `json:"duplicatesFound"`
	PatternsUsed    int       `json:"patternsUsed"`
	Timestamp       string    `json:"timestamp"`
	Examples        []Example `json:"examples,omitempty"`
}

func readLog(path string) ([]Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := payloadschema.Validate(payloadschema.FeedbackLog, raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorruptLog, err)
	}

	var stored []storedRecord
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorruptLog, err)
	}

	records := make([]Record, 0, len(stored))
	for i, s := range stored {
		ts, err := globaltime.ParseTimestamp(s.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("%w: session %d: %v", errCorruptLog, i, err)
		}
		records = append(records, Record{
			ID:              s.ID,
			Stage:           s.Stage,
			ItemsProcessed:  s.ItemsProcessed,
			DuplicatesFound: s.DuplicatesFound,
			PatternsUsed:    s.PatternsUsed,
			Timestamp:       ts,
			Examples:        s.Examples,
		})
	}
	return records, nil
}

func writeLog(path string, records []Record) error {
	stored := make([]storedRecord, 0, len(records))
	for _, rec := range records {
		stored = append(stored, storedRecord{
			ID:              rec.ID,
			Stage:           rec.Stage,
			ItemsProcessed:  rec.ItemsProcessed,
			DuplicatesFound: rec.DuplicatesFound,
			PatternsUsed:    rec.PatternsUsed,
			Timestamp:       rec.Timestamp.UTC().Format(time.RFC3339Nano),
			Examples:        rec.Examples,
		})
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("encode feedback log: %w", err)
	}
	return statefile.WriteAtomic(path, append(data, '\n'))
}
