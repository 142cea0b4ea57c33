package job

import "fmt"

// Rationale is an immutable explanation attached to a terminal outcome.
// The zero value is the empty rationale and is always safe to format.
type Rationale struct {
	text string
}

// NewRationale returns a rationale with the given text.
func NewRationale(text string) Rationale {
	return Rationale{text: text}
}

// Rationalef formats a rationale.
func Rationalef(format string, args ...any) Rationale {
	return Rationale{text: fmt.Sprintf(format, args...)}
}

func (r Rationale) Text() string { return r.text }

func (r Rationale) String() string { return r.text }

// IsSpecified reports whether any text was given.
func (r Rationale) IsSpecified() bool { return r.text != "" }

// MarshalText implements encoding.TextMarshaler.
func (r Rationale) MarshalText() ([]byte, error) {
	return []byte(r.text), nil
}
