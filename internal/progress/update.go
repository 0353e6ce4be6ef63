package progress

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ValueTTL is applied to every written field and refreshed fully on each
// write. Fields expire independently.
const ValueTTL = 4 * time.Hour

var ErrInvalidNumber = errors.New("expected a signed integer or \"null\"")

// Presence keeps "caller didn't mention the field" distinct from "caller
// wants it cleared". Collapsing the two is a correctness bug.
type Presence int

const (
	Absent Presence = iota
	Clear
	Set
)

// StringField is a tri-state string value.
type StringField struct {
	Presence Presence
	Value    string
}

// IntField is a tri-state int64 value.
type IntField struct {
	Presence Presence
	Value    int64
}

// Update is one parsed report pair for a single task. Constructed once per
// inbound pair, immutable, consumed by Ops.
type Update struct {
	Key     Key
	State   StringField
	Current IntField
	Max     IntField
}

// ParseUpdate turns one key=value report pair into an Update.
//
// The value grammar is [label "!"] [current] ["/" max]. The label is a
// token, charset-validated like a key segment. An empty current means
// "leave untouched"; the literal "null" means "delete". An empty max after
// the slash is a parse error, not "leave untouched" — the asymmetry with
// current is long-standing observed behavior and is pinned by tests.
func ParseUpdate(namespace, rawKey, rawValue string) (*Update, error) {
	key, err := NewKey(namespace, rawKey)
	if err != nil {
		return nil, err
	}
	u := &Update{Key: key}

	body := rawValue
	if i := strings.Index(rawValue, "!"); i >= 0 {
		label := rawValue[:i]
		if !checkSegment(label) {
			return nil, fmt.Errorf("label %q: %w", label, ErrInvalidCharset)
		}
		u.State = StringField{Presence: Set, Value: label}
		body = rawValue[i+1:]
	}

	cur := body
	if i := strings.Index(body, "/"); i >= 0 {
		cur = body[:i]
		u.Max, err = parseIntToken(body[i+1:], "max")
		if err != nil {
			return nil, err
		}
	}

	if cur != "" {
		u.Current, err = parseIntToken(cur, "current")
		if err != nil {
			return nil, err
		}
	}
	return u, nil
}

func parseIntToken(s, name string) (IntField, error) {
	if strings.EqualFold(s, "null") {
		return IntField{Presence: Clear}, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return IntField{}, fmt.Errorf("%s %q: %w", name, s, ErrInvalidNumber)
	}
	return IntField{Presence: Set, Value: n}, nil
}

// OpKind distinguishes the two store operations an update can produce.
type OpKind int

const (
	OpSet OpKind = iota
	OpDelete
)

// Op is one independent store operation. Ops of a single update carry no
// atomicity guarantee: a fault mid-batch leaves earlier writes visible.
type Op struct {
	Kind  OpKind
	Key   string
	Value string
	TTL   time.Duration
}

// Ops compiles the update into 0–3 store operations, one per mentioned
// field, in state, current, max order.
func (u *Update) Ops() []Op {
	ops := make([]Op, 0, 3)
	ops = appendOp(ops, u.Key, fieldState, u.State.Presence, u.State.Value)
	ops = appendOp(ops, u.Key, fieldCurrent, u.Current.Presence, strconv.FormatInt(u.Current.Value, 10))
	ops = appendOp(ops, u.Key, fieldMax, u.Max.Presence, strconv.FormatInt(u.Max.Value, 10))
	return ops
}

func appendOp(ops []Op, k Key, field string, p Presence, value string) []Op {
	switch p {
	case Set:
		return append(ops, Op{Kind: OpSet, Key: k.fieldKey(field), Value: value, TTL: ValueTTL})
	case Clear:
		return append(ops, Op{Kind: OpDelete, Key: k.fieldKey(field)})
	}
	return ops
}
