package log

import (
	"bytes"
	"encoding/json"
	"io"
)

// Redacted replaces the value of any sensitive field.
const Redacted = "[REDACTED]"

// sensitiveFields never reach an output in the clear.
var sensitiveFields = []string{
	"mnemonic",
	"passphrase",
	"private_key",
	"privateKey",
	"secret",
	"secret_key",
	"seed",
}

// RedactWriter blanks sensitive fields in JSON log events before they
// reach the wrapped writer.
type RedactWriter struct {
	out io.Writer
}

// NewRedactWriter wraps out.
func NewRedactWriter(out io.Writer) *RedactWriter {
	return &RedactWriter{out: out}
}

// Write implements io.Writer. Events without a sensitive key are passed
// through untouched.
func (r *RedactWriter) Write(p []byte) (int, error) {
	if !mentionsSensitive(p) {
		return r.out.Write(p)
	}

	var event map[string]json.RawMessage
	if err := json.Unmarshal(p, &event); err != nil {
		// Not a JSON event; drop it rather than risk leaking.
		return len(p), nil
	}
	quoted, _ := json.Marshal(Redacted)
	for _, k := range sensitiveFields {
		if _, ok := event[k]; ok {
			event[k] = quoted
		}
	}
	clean, err := json.Marshal(event)
	if err != nil {
		return 0, err
	}
	clean = append(clean, '\n')
	if _, err := r.out.Write(clean); err != nil {
		return 0, err
	}
	return len(p), nil
}

func mentionsSensitive(p []byte) bool {
	for _, k := range sensitiveFields {
		if bytes.Contains(p, []byte(`"`+k+`"`)) {
			return true
		}
	}
	return false
}
