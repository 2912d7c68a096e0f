package notify

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"buyScope/internal/model"
)

// JSONL writes alerts as JSON lines to a file, or to a writer such as stdout.
type JSONL struct {
	path string
	out  io.Writer
	mu   sync.Mutex
}

// NewJSONL appends to the file at path. "-" writes to stdout.
func NewJSONL(path string) *JSONL {
	if path == "" || path == "-" {
		return &JSONL{out: os.Stdout}
	}
	return &JSONL{path: path}
}

// NewJSONLWriter writes to w.
func NewJSONLWriter(w io.Writer) *JSONL {
	return &JSONL{out: w}
}

func (s *JSONL) Notify(_ context.Context, alerts []model.BuyAlert) error {
	if len(alerts) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.out != nil {
		return writeAlerts(s.out, alerts)
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	return writeAlerts(file, alerts)
}

func writeAlerts(w io.Writer, alerts []model.BuyAlert) error {
	writer := bufio.NewWriter(w)
	for _, alert := range alerts {
		line, err := json.Marshal(alert)
		if err != nil {
			return fmt.Errorf("marshal alert: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write alert: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
