package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Entry represents a single journal entry
type Entry struct {
	Timestamp time.Time              `json:"timestamp"`
	Action    string                 `json:"action"`
	Status    string                 `json:"status"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Duration  int64                  `json:"duration_ms,omitempty"`
}

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// String formats an entry as a Unix-style log line
// Format: 2026-02-12T10:15:00Z [replay] status=ok key1=val1 error="msg"
func (e *Entry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] status=%s", e.Timestamp.Format(time.RFC3339), e.Action, e.Status)

	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Details[k])
	}

	if e.Duration > 0 {
		fmt.Fprintf(&b, " duration_ms=%d", e.Duration)
	}
	if e.Error != "" {
		fmt.Fprintf(&b, " error=%q", e.Error)
	}
	return b.String()
}

// Index counts today's entries per action
type Index struct {
	Date     string         `json:"date"`
	Entries  int            `json:"entries"`
	ByAction map[string]int `json:"by_action"`
}

// Logger is an append-only journal: one JSON line per entry, one file per
// day, plus index.json
type Logger struct {
	journalDir string
	mu         sync.Mutex

	now func() time.Time
}

// NewLogger creates a new journal logger
func NewLogger(journalDir string) (*Logger, error) {
	if err := os.MkdirAll(journalDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	return &Logger{
		journalDir: journalDir,
		now:        time.Now,
	}, nil
}

// Log appends an entry to the journal
func (l *Logger) Log(action, status string, details map[string]interface{}, err error) error {
	entry := Entry{
		Timestamp: l.now().UTC(),
		Action:    action,
		Status:    status,
		Details:   details,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	return l.append(&entry)
}

// LogRun records a finished command with its duration. The status is
// derived from err.
func (l *Logger) LogRun(action string, started time.Time, details map[string]interface{}, err error) error {
	entry := Entry{
		Timestamp: l.now().UTC(),
		Action:    action,
		Status:    StatusOK,
		Details:   details,
		Duration:  l.now().Sub(started).Milliseconds(),
	}
	if err != nil {
		entry.Status = StatusError
		entry.Error = err.Error()
	}
	return l.append(&entry)
}

// LogError logs an error event
func (l *Logger) LogError(action string, err error, details map[string]interface{}) error {
	return l.Log(action, StatusError, details, err)
}

func (l *Logger) append(entry *Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}

	f, err := os.OpenFile(l.logFile(entry.Timestamp), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write to log: %w", err)
	}

	if err := l.updateIndex(entry); err != nil {
		// Don't fail on index error, just report it
		fmt.Fprintf(os.Stderr, "warning: failed to update index: %v\n", err)
	}
	return nil
}

// logFile returns the path of the day's log file
func (l *Logger) logFile(t time.Time) string {
	return filepath.Join(l.journalDir, t.Format("2006-01-02")+".log")
}

func (l *Logger) indexFile() string {
	return filepath.Join(l.journalDir, "index.json")
}

// updateIndex bumps the counters, resetting them on a new day
func (l *Logger) updateIndex(e *Entry) error {
	index, err := l.readIndex()
	if err != nil {
		return err
	}

	today := e.Timestamp.Format("2006-01-02")
	if index.Date != today {
		index = &Index{Date: today, ByAction: make(map[string]int)}
	}
	index.Entries++
	index.ByAction[e.Action]++

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(l.indexFile(), data, 0644)
}

func (l *Logger) readIndex() (*Index, error) {
	index := &Index{ByAction: make(map[string]int)}
	data, err := os.ReadFile(l.indexFile())
	if os.IsNotExist(err) {
		return index, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, index); err != nil {
		return nil, fmt.Errorf("corrupt journal index: %w", err)
	}
	if index.ByAction == nil {
		index.ByAction = make(map[string]int)
	}
	return index, nil
}

// Index returns today's counters
func (l *Logger) Index() (*Index, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readIndex()
}

// entries reads every log file, oldest first
func (l *Logger) entries() ([]*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	files, err := filepath.Glob(filepath.Join(l.journalDir, "*.log"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var out []*Entry
	for _, file := range files {
		parsed, err := readEntries(file)
		if err != nil {
			return nil, err
		}
		out = append(out, parsed...)
	}
	return out, nil
}

func readEntries(path string) ([]*Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []*Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(text), &e); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filepath.Base(path), line, err)
		}
		out = append(out, &e)
	}
	return out, scanner.Err()
}

// Last returns the last n entries, oldest first
func (l *Logger) Last(n int) ([]*Entry, error) {
	all, err := l.entries()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	if all == nil {
		all = []*Entry{}
	}
	return all, nil
}

// Errors returns every entry with an error status
func (l *Logger) Errors() ([]*Entry, error) {
	return l.filter(func(e *Entry) bool { return e.Status == StatusError })
}

// ByAction returns every entry recorded for action
func (l *Logger) ByAction(action string) ([]*Entry, error) {
	return l.filter(func(e *Entry) bool { return e.Action == action })
}

func (l *Logger) filter(keep func(*Entry) bool) ([]*Entry, error) {
	all, err := l.entries()
	if err != nil {
		return nil, err
	}
	out := []*Entry{}
	for _, e := range all {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out, nil
}
