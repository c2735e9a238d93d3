package engine

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

// DebugLevel defines verbosity
type DebugLevel int

const (
	DebugNone DebugLevel = iota
	DebugSQL
	DebugTrace
	DebugExplain
)

func (l DebugLevel) String() string {
	switch l {
	case DebugSQL:
		return "sql"
	case DebugTrace:
		return "trace"
	case DebugExplain:
		return "explain"
	default:
		return "none"
	}
}

// ParseDebugLevel accepts "none", "sql" (or "1"), "trace" and "explain"
func ParseDebugLevel(s string) (DebugLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "0":
		return DebugNone, nil
	case "sql", "1":
		return DebugSQL, nil
	case "trace":
		return DebugTrace, nil
	case "explain":
		return DebugExplain, nil
	default:
		return DebugNone, fmt.Errorf("unknown debug level %q", s)
	}
}

// DebugContext holds debug configuration
type DebugContext struct {
	Level  DebugLevel
	Writer io.Writer // Where to write (stdout, file, etc)

	EnableTiming bool
	ColorOutput  bool
}

// DefaultDebugContext for production
func DefaultDebugContext() *DebugContext {
	return &DebugContext{
		Level:       DebugNone,
		Writer:      os.Stdout,
		ColorOutput: true,
	}
}

// DebugContextFromEnv reads CHAMELEON_DEBUG ("1", "trace", "explain")
func DebugContextFromEnv() *DebugContext {
	level, err := ParseDebugLevel(os.Getenv("CHAMELEON_DEBUG"))
	if err != nil {
		level = DebugNone
	}

	return &DebugContext{
		Level:       level,
		Writer:      os.Stdout,
		ColorOutput: true,
	}
}

// Enabled reports whether messages at level would be written
func (dc *DebugContext) Enabled(level DebugLevel) bool {
	return dc != nil && level != DebugNone && dc.Level >= level
}

// Log writes debug output
func (dc *DebugContext) Log(level DebugLevel, format string, args ...interface{}) {
	if !dc.Enabled(level) {
		return
	}

	var prefix string
	if dc.ColorOutput {
		prefix = colorPrefix(level)
	} else {
		prefix = textPrefix(level)
	}

	fmt.Fprintf(dc.Writer, prefix+format+"\n", args...)
}

// LogSQL logs generated SQL
func (dc *DebugContext) LogSQL(sql string, args []interface{}) {
	if !dc.Enabled(DebugSQL) {
		return
	}

	header := "[SQL]"
	if dc.ColorOutput {
		header = color.New(color.FgCyan).Sprint(header)
	}
	fmt.Fprintf(dc.Writer, "\n%s\n%s\n", header, sql)
	if len(args) > 0 {
		fmt.Fprintf(dc.Writer, "args: %v\n", args)
	}
	fmt.Fprintln(dc.Writer)
}

// LogQuery logs full query trace
func (dc *DebugContext) LogQuery(sql string, duration time.Duration, rowCount int) {
	if !dc.Enabled(DebugTrace) {
		return
	}

	fmt.Fprintf(dc.Writer, "\n")
	fmt.Fprintf(dc.Writer, "┌─────────────────────────────────────\n")
	fmt.Fprintf(dc.Writer, "│ Query Trace\n")
	fmt.Fprintf(dc.Writer, "├─────────────────────────────────────\n")
	fmt.Fprintf(dc.Writer, "│ SQL:\n│   %s\n", sql)
	fmt.Fprintf(dc.Writer, "│ Duration: %v\n", duration)
	fmt.Fprintf(dc.Writer, "│ Rows: %d\n", rowCount)
	fmt.Fprintf(dc.Writer, "└─────────────────────────────────────\n\n")
}

func colorPrefix(level DebugLevel) string {
	switch level {
	case DebugSQL:
		return color.New(color.FgCyan).Sprint("[DEBUG]") + " "
	case DebugTrace:
		return color.New(color.FgYellow).Sprint("[TRACE]") + " "
	case DebugExplain:
		return color.New(color.FgMagenta).Sprint("[EXPLAIN]") + " "
	default:
		return ""
	}
}

func textPrefix(level DebugLevel) string {
	switch level {
	case DebugSQL:
		return "[DEBUG] "
	case DebugTrace:
		return "[TRACE] "
	case DebugExplain:
		return "[EXPLAIN] "
	default:
		return ""
	}
}
