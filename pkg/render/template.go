package render

import (
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"
)

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

// segment is either literal markup or a placeholder expression.
type segment struct {
	text    string
	expr    string
	offset  int
	program Program
}

func (s segment) placeholder() bool {
	return s.expr != "" || s.program != nil
}

// parseTemplate splits markup into literal and placeholder segments. Offsets
// are byte positions of the opening delimiter.
func parseTemplate(markup string) ([]segment, error) {
	var segments []segment
	rest := markup
	consumed := 0
	for {
		start := strings.Index(rest, openDelim)
		if start < 0 {
			if rest != "" {
				segments = append(segments, segment{text: rest, offset: consumed})
			}
			return segments, nil
		}
		if start > 0 {
			segments = append(segments, segment{text: rest[:start], offset: consumed})
		}
		body := rest[start+len(openDelim):]
		end := strings.Index(body, closeDelim)
		if end < 0 {
			return nil, &parseError{offset: consumed + start, err: ErrUnclosedPlaceholder}
		}
		expr := strings.TrimSpace(body[:end])
		if expr == "" {
			return nil, &parseError{offset: consumed + start, err: ErrEmptyExpression}
		}
		segments = append(segments, segment{expr: expr, offset: consumed + start})

		advance := start + len(openDelim) + end + len(closeDelim)
		rest = rest[advance:]
		consumed += advance
	}
}

type parseError struct {
	offset int
	err    error
}

func (e *parseError) Error() string {
	return fmt.Sprintf("offset %d: %v", e.offset, e.err)
}

func (e *parseError) Unwrap() error {
	return e.err
}

// formatValue renders an evaluated placeholder as escaped text. Nil renders
// as the empty string; mappings and lists render as JSON.
func formatValue(value any) (string, error) {
	var text string
	switch typed := value.(type) {
	case nil:
		return "", nil
	case string:
		text = typed
	case bool:
		text = strconv.FormatBool(typed)
	case float64:
		text = strconv.FormatFloat(typed, 'f', -1, 64)
	case fmt.Stringer:
		text = typed.String()
	case map[string]any, []any:
		payload, err := json.Marshal(typed)
		if err != nil {
			return "", err
		}
		text = string(payload)
	default:
		text = fmt.Sprint(typed)
	}
	return html.EscapeString(text), nil
}
