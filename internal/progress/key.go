package progress

import (
	"errors"
	"fmt"
	"strings"
)

// keyPrefix is the first segment of every store key this service owns.
// The flat key format pcafe:<namespace>:<task>:<field> is a compatibility
// contract: data written by older deployments must stay readable.
const keyPrefix = "pcafe"

// Field names as stored in Redis. The label of a task lives under "state",
// the wire name the service has always used.
const (
	fieldState   = "state"
	fieldCurrent = "current"
	fieldMax     = "max"
)

var (
	ErrInvalidCharset = errors.New("segment must match [A-Za-z0-9_.-]")
	ErrInvalidField   = errors.New("field name must not contain ':'")
	ErrBadStructure   = errors.New("key is not pcafe:<namespace>:<task>:<field>")
)

// Key addresses one task within a namespace. Task may contain colons; every
// colon-delimited segment is charset-validated on construction.
type Key struct {
	Namespace string
	Task      string
}

// checkSegment reports whether s contains only identifier characters.
func checkSegment(s string) bool {
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '-' || c == '.':
		default:
			return false
		}
	}
	return true
}

// NewKey validates namespace and every segment of task. Validation failure
// is a hard rejection, never a truncation.
func NewKey(namespace, task string) (Key, error) {
	if !checkSegment(namespace) {
		return Key{}, fmt.Errorf("namespace %q: %w", namespace, ErrInvalidCharset)
	}
	for _, seg := range strings.Split(task, ":") {
		if !checkSegment(seg) {
			return Key{}, fmt.Errorf("task segment %q: %w", seg, ErrInvalidCharset)
		}
	}
	return Key{Namespace: namespace, Task: task}, nil
}

// EncodeKey builds the flat store key for one field of a task.
func EncodeKey(namespace, task, field string) (string, error) {
	k, err := NewKey(namespace, task)
	if err != nil {
		return "", err
	}
	if strings.Contains(field, ":") {
		return "", fmt.Errorf("field %q: %w", field, ErrInvalidField)
	}
	return k.fieldKey(field), nil
}

// fieldKey concatenates without validation; callers pass the field
// constants, which never contain a colon.
func (k Key) fieldKey(field string) string {
	return keyPrefix + ":" + k.Namespace + ":" + k.Task + ":" + field
}

// EncodePattern builds a wildcard pattern matching every field key under
// namespace whose task starts with taskPrefix.
func EncodePattern(namespace, taskPrefix string) (string, error) {
	k, err := NewKey(namespace, taskPrefix)
	if err != nil {
		return "", err
	}
	return keyPrefix + ":" + k.Namespace + ":" + k.Task + "*", nil
}

// DecodeKey is the exact inverse of EncodeKey for keys this service
// produced. Keys from foreign producers are rejected, not guessed at.
func DecodeKey(raw string) (Key, string, error) {
	parts := strings.Split(raw, ":")
	for _, p := range parts {
		if !checkSegment(p) {
			return Key{}, "", fmt.Errorf("segment %q in %q: %w", p, raw, ErrInvalidCharset)
		}
	}
	if len(parts) < 3 || parts[0] != keyPrefix {
		return Key{}, "", fmt.Errorf("key %q: %w", raw, ErrBadStructure)
	}
	k := Key{
		Namespace: parts[1],
		Task:      strings.Join(parts[2:len(parts)-1], ":"),
	}
	return k, parts[len(parts)-1], nil
}
