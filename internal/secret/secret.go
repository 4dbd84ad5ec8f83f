// Package secret provides a wrapper for sensitive values such as passwords,
// password hashes and API credentials.
//
// A Value never renders its content through fmt, encoding/json or zap; the
// only way to read it is Expose.
package secret

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

const redacted = "[REDACTED]"

// Value holds a sensitive byte sequence.
type Value struct {
	b []byte
}

// New copies s into a new Value.
func New(s string) Value {
	return Value{b: []byte(s)}
}

// FromBytes copies b into a new Value.
func FromBytes(b []byte) Value {
	c := make([]byte, len(b))
	copy(c, b)
	return Value{b: c}
}

// Expose returns the underlying bytes. Callers must not retain or log them.
func (v Value) Expose() []byte {
	return v.b
}

// ExposeString returns the underlying value as a string.
func (v Value) ExposeString() string {
	return string(v.b)
}

// IsEmpty reports whether the value holds no bytes.
func (v Value) IsEmpty() bool {
	return len(v.b) == 0
}

// Wipe overwrites the underlying bytes with zeros.
func (v Value) Wipe() {
	for i := range v.b {
		v.b[i] = 0
	}
}

// String implements fmt.Stringer.
func (v Value) String() string {
	return redacted
}

// GoString implements fmt.GoStringer so %#v is redacted as well.
func (v Value) GoString() string {
	return redacted
}

// Format redacts the value for every fmt verb.
func (v Value) Format(f fmt.State, _ rune) {
	_, _ = f.Write([]byte(redacted))
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

// MarshalText implements encoding.TextMarshaler.
func (v Value) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so a Value can be
// loaded from JSON strings and environment variables.
func (v *Value) UnmarshalText(text []byte) error {
	*v = FromBytes(text)
	return nil
}

// MarshalLogObject keeps zap.Any / zap.Object from reflecting into the value.
func (v Value) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("value", redacted)
	return nil
}
