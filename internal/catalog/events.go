package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mediasync/internal/paths"
)

type eventRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Event     string    `json:"event"`
	Payload   any       `json:"payload"`
}

// AppendEvent appends one JSON line to the project's event log. The log is an
// audit aid only; failures to read it never affect catalog state.
func AppendEvent(projectRoot, event string, payload any) error {
	eventsPath := filepath.Join(projectRoot, paths.EventsFile)
	if err := os.MkdirAll(filepath.Dir(eventsPath), 0o755); err != nil {
		return fmt.Errorf("create events directory: %w", err)
	}

	line, err := json.Marshal(eventRecord{
		Timestamp: time.Now().UTC(),
		Event:     event,
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	file, err := os.OpenFile(eventsPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open events log: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}
