package command

import (
	"fmt"
	"strconv"
	"strings"
)

type (
	// Reader walks a command line one argument at a time. The cursor is a
	// byte offset into the line
	Reader struct {
		input  string
		cursor int
	}

	// SyntaxError reports a line that does not match the grammar
	SyntaxError struct {
		Message string
		Input   string
		Cursor  int
	}
)

const (
	argSeparator = ' '
	escapeChar   = '\\'
)

// NewReader returns a Reader positioned at the start of input
func NewReader(input string) *Reader {
	return &Reader{input: input}
}

// Cursor returns the current offset
func (r *Reader) Cursor() int {
	return r.cursor
}

// CanRead reports whether any input remains
func (r *Reader) CanRead() bool {
	return r.cursor < len(r.input)
}

// Peek returns the next byte without consuming it
func (r *Reader) Peek() byte {
	return r.input[r.cursor]
}

// SkipWhitespace advances past any run of separators
func (r *Reader) SkipWhitespace() {
	for r.CanRead() && r.Peek() == argSeparator {
		r.cursor++
	}
}

// Separator consumes the separator that must precede another argument
func (r *Reader) Separator() error {
	if !r.CanRead() {
		return r.errorf("incomplete command")
	}
	if r.Peek() != argSeparator {
		return r.errorf("expected whitespace to end one argument")
	}
	r.SkipWhitespace()
	if !r.CanRead() {
		return r.errorf("incomplete command")
	}
	return nil
}

// Space consumes exactly one separator, leaving any that follow in place.
// It precedes arguments that take the rest of the line as typed
func (r *Reader) Space() error {
	if !r.CanRead() {
		return r.errorf("incomplete command")
	}
	if r.Peek() != argSeparator {
		return r.errorf("expected whitespace to end one argument")
	}
	r.cursor++
	if !r.CanRead() {
		return r.errorf("incomplete command")
	}
	return nil
}

// Word reads an unquoted word made of letters, digits and _-.+
func (r *Reader) Word() string {
	start := r.cursor
	for r.CanRead() && isWordChar(r.Peek()) {
		r.cursor++
	}
	return r.input[start:r.cursor]
}

// RequiredWord reads a word and fails if it is empty
func (r *Reader) RequiredWord(what string) (string, error) {
	start := r.cursor
	w := r.Word()
	if w == "" {
		return "", r.errorAt(start, "expected %s", what)
	}
	return w, nil
}

// String reads a quoted string, or an unquoted word if the next byte is not
// a quote
func (r *Reader) String() (string, error) {
	if !r.CanRead() {
		return "", r.errorf("expected string")
	}
	q := r.Peek()
	if q != '"' && q != '\'' {
		return r.Word(), nil
	}
	start := r.cursor
	r.cursor++

	var sb strings.Builder
	escaped := false
	for r.CanRead() {
		c := r.Peek()
		r.cursor++
		switch {
		case escaped:
			if c != q && c != escapeChar {
				return "", r.errorAt(r.cursor-1,
					"invalid escape sequence '%c' in quoted string", c)
			}
			sb.WriteByte(c)
			escaped = false
		case c == escapeChar:
			escaped = true
		case c == q:
			return sb.String(), nil
		default:
			sb.WriteByte(c)
		}
	}
	return "", r.errorAt(start, "unclosed quoted string")
}

// Int reads a signed 32-bit integer
func (r *Reader) Int() (int, error) {
	start := r.cursor
	n, err := strconv.ParseInt(r.number(), 10, 32)
	if err != nil {
		return 0, r.numberError(start, "integer")
	}
	return int(n), nil
}

// Long reads a signed 64-bit integer
func (r *Reader) Long() (int64, error) {
	start := r.cursor
	n, err := strconv.ParseInt(r.number(), 10, 64)
	if err != nil {
		return 0, r.numberError(start, "long")
	}
	return n, nil
}

// Bool reads true or false
func (r *Reader) Bool() (bool, error) {
	start := r.cursor
	switch w := r.Word(); w {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "":
		return false, r.errorAt(start, "expected bool")
	default:
		return false, r.errorAt(start,
			"invalid bool, expected true or false but found '%s'", w)
	}
}

// Remaining consumes and returns the rest of the line exactly as typed
func (r *Reader) Remaining() string {
	res := r.input[r.cursor:]
	r.cursor = len(r.input)
	return res
}

// End fails if anything other than trailing separators remains
func (r *Reader) End() error {
	r.SkipWhitespace()
	if r.CanRead() {
		return r.errorf("incorrect argument for command")
	}
	return nil
}

func (r *Reader) number() string {
	start := r.cursor
	for r.CanRead() && isNumberChar(r.Peek()) {
		r.cursor++
	}
	return r.input[start:r.cursor]
}

func (r *Reader) numberError(start int, what string) error {
	if r.cursor == start {
		return r.errorAt(start, "expected %s", what)
	}
	return r.errorAt(start, "invalid %s '%s'", what, r.input[start:r.cursor])
}

func (r *Reader) errorf(format string, args ...any) *SyntaxError {
	return r.errorAt(r.cursor, format, args...)
}

func (r *Reader) errorAt(pos int, format string, args ...any) *SyntaxError {
	return &SyntaxError{
		Message: fmt.Sprintf(format, args...),
		Input:   r.input,
		Cursor:  pos,
	}
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at position %d: %s<--[HERE]",
		e.Message, e.Cursor, e.Input[:e.Cursor])
}

func isWordChar(c byte) bool {
	switch {
	case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	default:
		return c == '_' || c == '-' || c == '.' || c == '+'
	}
}

func isNumberChar(c byte) bool {
	return c >= '0' && c <= '9' || c == '-'
}
