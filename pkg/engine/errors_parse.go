package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// ParseError locates a syntax error in a schema file
type ParseError struct {
	File    string
	Line    int
	Column  int
	Message string
	Snippet string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ParseError: %s:%d: %s", e.File, e.Line, e.Message)
}

var yamlLine = regexp.MustCompile(`line (\d+): (.+)`)

// locateParseError turns a YAML or JSON decoding error into a ParseError.
// Errors without a position are returned unchanged.
func locateParseError(file, source string, err error) error {
	pe := &ParseError{File: file}

	var syntax *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntax):
		pe.Line, pe.Column = position(source, syntax.Offset)
		pe.Message = syntax.Error()
	case errors.As(err, &typeErr):
		pe.Line, pe.Column = position(source, typeErr.Offset)
		pe.Message = typeErr.Error()
	default:
		m := yamlLine.FindStringSubmatch(err.Error())
		if m == nil {
			return err
		}
		pe.Line, _ = strconv.Atoi(m[1])
		pe.Message = m[2]
	}

	lines := strings.Split(source, "\n")
	if pe.Line >= 1 && pe.Line <= len(lines) {
		pe.Snippet = fmt.Sprintf("%4d | %s", pe.Line, lines[pe.Line-1])
	}
	return pe
}

// position converts a byte offset into a 1-based line and column
func position(source string, offset int64) (line, col int) {
	if offset > int64(len(source)) {
		offset = int64(len(source))
	}
	before := source[:offset]
	line = strings.Count(before, "\n") + 1
	col = int(offset) - strings.LastIndex(before, "\n")
	return line, col
}

func formatParseError(pe *ParseError) string {
	var b strings.Builder

	errorColor := color.New(color.FgRed, color.Bold)
	errorColor.Fprintf(&b, "Error: ")
	fmt.Fprintf(&b, "%s\n\n", pe.Message)

	locationColor := color.New(color.FgCyan)
	locationColor.Fprintf(&b, "  --> ")
	if pe.Column > 0 {
		fmt.Fprintf(&b, "%s:%d:%d\n", pe.File, pe.Line, pe.Column)
	} else {
		fmt.Fprintf(&b, "%s:%d\n", pe.File, pe.Line)
	}

	if pe.Snippet != "" {
		b.WriteString("\n")
		b.WriteString(pe.Snippet)
		b.WriteString("\n")
		if pe.Column > 0 {
			// 7 = width of the "%4d | " gutter
			b.WriteString(strings.Repeat(" ", pe.Column+6))
			b.WriteString("^\n")
		}
	}

	return b.String()
}
