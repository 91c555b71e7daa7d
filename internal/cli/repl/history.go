package repl

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultHistorySize is the number of entries kept.
const DefaultHistorySize = 1000

// History keeps the lines entered in the REPL.
type History struct {
	entries []string
	maxSize int
	file    string
}

// HistoryOption configures a History.
type HistoryOption func(*History)

// WithHistoryFile sets the file history is persisted to. An empty path
// keeps history in memory only.
func WithHistoryFile(path string) HistoryOption {
	return func(h *History) {
		h.file = path
	}
}

// WithHistorySize sets the number of entries kept.
func WithHistorySize(n int) HistoryOption {
	return func(h *History) {
		if n > 0 {
			h.maxSize = n
		}
	}
}

// DefaultHistoryFile returns ~/.respkv/history, or "" when the home
// directory is unknown.
func DefaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".respkv", "history")
}

// NewHistory creates a History persisted to DefaultHistoryFile unless
// overridden.
func NewHistory(opts ...HistoryOption) *History {
	h := &History{
		entries: make([]string, 0),
		maxSize: DefaultHistorySize,
		file:    DefaultHistoryFile(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Add appends a line. Repeating the previous line is a no-op.
func (h *History) Add(line string) {
	if n := len(h.entries); n > 0 && h.entries[n-1] == line {
		return
	}
	h.entries = append(h.entries, line)
	h.trim()
}

// Get returns the entry at index (0 = most recent), or "".
func (h *History) Get(index int) string {
	if index < 0 || index >= len(h.entries) {
		return ""
	}
	return h.entries[len(h.entries)-1-index]
}

// Len returns the number of entries.
func (h *History) Len() int {
	return len(h.entries)
}

// File returns the persistence path.
func (h *History) File() string {
	return h.file
}

// Load reads the history file. A missing file is not an error.
func (h *History) Load() error {
	if h.file == "" {
		return nil
	}
	file, err := os.Open(h.file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			h.entries = append(h.entries, line)
		}
	}
	h.trim()
	return scanner.Err()
}

// Save writes the history file, creating its directory.
func (h *History) Save() error {
	if h.file == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(h.file), 0o700); err != nil {
		return err
	}

	file, err := os.OpenFile(h.file, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(file)
	for _, entry := range h.entries {
		if _, err := w.WriteString(entry + "\n"); err != nil {
			file.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func (h *History) trim() {
	if over := len(h.entries) - h.maxSize; over > 0 {
		h.entries = append(h.entries[:0:0], h.entries[over:]...)
	}
}
