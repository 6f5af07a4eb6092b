package services

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/huangang/annoreview/internal/apperr"
)

var errInvalidJSON = errors.New("invalid JSON")

// compactEvents validates an events payload and compacts it. The value is
// otherwise kept as sent, so a JSON string stays a string. Absent or null
// payloads yield nil (stored as NULL).
func compactEvents(raw []byte) ([]byte, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, errInvalidJSON
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// reviewEvents is compactEvents for review payloads. Review clients send the
// annotation list pre-serialised, so a JSON string holding an array or
// object is unwrapped.
func reviewEvents(raw []byte) ([]byte, error) {
	events, err := compactEvents(raw)
	if err != nil || len(events) == 0 || events[0] != '"' {
		return events, err
	}

	var s string
	if err := json.Unmarshal(events, &s); err != nil {
		return nil, err
	}
	inner := bytes.TrimSpace([]byte(s))
	if len(inner) == 0 || (inner[0] != '[' && inner[0] != '{') || !json.Valid(inner) {
		return events, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, inner); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func eventsOrValidation(raw []byte, field string, normalize func([]byte) ([]byte, error)) ([]byte, error) {
	events, err := normalize(raw)
	if err != nil {
		return nil, apperr.Validation(err, "%s must be valid JSON", field)
	}
	return events, nil
}
