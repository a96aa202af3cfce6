package record

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value
type Kind uint8

const (
	// KindNull is the JSON null (also the zero Value)
	KindNull Kind = iota
	// KindString is a JSON string
	KindString
	// KindNumber is a JSON number kept as its literal text
	KindNumber
	// KindBool is a JSON boolean
	KindBool
	// KindArray is an ordered sequence of values
	KindArray
	// KindObject is an ordered set of uniquely keyed members
	KindObject
	// KindOther holds a non-JSON Go value built through FromAny
	KindOther
)

var kindNames = [...]string{"null", "string", "number", "bool", "array", "object", "other"}

// String returns the lower-case kind name
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is one dynamically typed JSON value.
// The zero Value is null. Values are treated as immutable: every stage
// returns a new Value and never edits its input in place
type Value struct {
	kind  Kind
	str   string // string payload, number literal, or Other representation
	b     bool
	arr   []Value
	obj   []Member
	other any
}

// Member is one key/value pair of an object
type Member struct {
	Key   string
	Value Value
}

// Null returns the null value
func Null() Value { return Value{} }

// String returns a string value
func String(s string) Value { return Value{kind: KindString, str: s} }

// Bool returns a boolean value
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a number value from a JSON number literal.
// The literal is not re-validated; Parse is the checked entry point
func Number(n json.Number) Value { return Value{kind: KindNumber, str: string(n)} }

// Int returns an integer number value
func Int(i int64) Value { return Value{kind: KindNumber, str: strconv.FormatInt(i, 10)} }

// Float returns a floating number value. Integral floats keep a ".0" suffix.
// NaN and infinities have no JSON form and come back as KindOther
func Float(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{kind: KindOther, str: strconv.FormatFloat(f, 'g', -1, 64), other: f}
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return Value{kind: KindNumber, str: s}
}

// Array returns an array value holding vs
func Array(vs ...Value) Value { return Value{kind: KindArray, arr: vs} }

// Object returns an object value. Repeated keys collapse onto the first
// position with the last value
func Object(ms ...Member) Value {
	b := newObjectBuilder(len(ms))
	for _, m := range ms {
		b.set(m.Key, m.Value)
	}
	return b.value()
}

// M is shorthand for building a Member
func M(key string, v Value) Member { return Member{Key: key, Value: v} }

// Other wraps a Go value that has no JSON variant.
// Its canonical string representation is fmt.Sprint(x)
func Other(x any) Value { return Value{kind: KindOther, str: fmt.Sprint(x), other: x} }

// FromAny converts common Go values into a Value.
// map[string]any members are added in sorted key order since Go maps are unordered
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case json.Number:
		return Number(t)
	case int:
		return Int(int64(t))
	case int8:
		return Int(int64(t))
	case int16:
		return Int(int64(t))
	case int32:
		return Int(int64(t))
	case int64:
		return Int(t)
	case uint8:
		return Int(int64(t))
	case uint16:
		return Int(int64(t))
	case uint32:
		return Int(int64(t))
	case uint:
		return Value{kind: KindNumber, str: strconv.FormatUint(uint64(t), 10)}
	case uint64:
		return Value{kind: KindNumber, str: strconv.FormatUint(t, 10)}
	case float32:
		return Float(float64(t))
	case float64:
		return Float(t)
	case []any:
		out := make([]Value, len(t))
		for i := range t {
			out[i] = FromAny(t[i])
		}
		return Array(out...)
	case []Value:
		return Array(t...)
	case map[string]any:
		keys := slices.Sorted(maps.Keys(t))
		ms := make([]Member, 0, len(keys))
		for _, k := range keys {
			ms = append(ms, Member{Key: k, Value: FromAny(t[k])})
		}
		return Object(ms...)
	default:
		return Other(x)
	}
}

// Kind reports the variant held by v
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string payload when v is a string
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Literal returns the JSON literal of a number
func (v Value) Literal() (json.Number, bool) { return json.Number(v.str), v.kind == KindNumber }

// Float returns the numeric value of a number.
// Out of range literals resolve to a signed infinity
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.str, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f, true
		}
		return 0, false
	}
	return f, true
}

// Boolean returns the payload of a bool
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBool }

// Items returns the elements of an array, nil otherwise
func (v Value) Items() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.arr
}

// Members returns the members of an object in order, nil otherwise
func (v Value) Members() []Member {
	if v.kind != KindObject {
		return nil
	}
	return v.obj
}

// Len returns the element or member count for arrays and objects
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.obj)
	}
	return 0
}

// Get looks up a top-level member of an object
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	for i := range v.obj {
		if v.obj[i].Key == key {
			return v.obj[i].Value, true
		}
	}
	return Value{}, false
}

// Keys returns the member keys of an object in order
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	out := make([]string, len(v.obj))
	for i := range v.obj {
		out[i] = v.obj[i].Key
	}
	return out
}

// Repr returns the canonical string representation used when a value
// has to be degraded to a string
func (v Value) Repr() string {
	switch v.kind {
	case KindString, KindNumber, KindOther:
		return v.str
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNull:
		return "null"
	default:
		return string(Marshal(v, Compact))
	}
}

// Equal reports deep equality. Object member order is ignored and numbers
// compare by numeric value when both literals parse
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindString, KindOther:
		return a.str == b.str
	case KindBool:
		return a.b == b.b
	case KindNumber:
		if a.str == b.str {
			return true
		}
		fa, oka := a.Float()
		fb, okb := b.Float()
		return oka && okb && fa == fb
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.obj) != len(b.obj) {
			return false
		}
		for _, m := range a.obj {
			other, ok := b.Get(m.Key)
			if !ok || !Equal(m.Value, other) {
				return false
			}
		}
		return true
	}
	return false
}

// objectBuilder accumulates members with replace-in-place semantics for repeated keys
type objectBuilder struct {
	members []Member
	index   map[string]int
}

// linearLimit is the member count above which lookups switch to a map
const linearLimit = 16

func newObjectBuilder(n int) *objectBuilder {
	return &objectBuilder{members: make([]Member, 0, n)}
}

func (b *objectBuilder) find(key string) (int, bool) {
	if b.index != nil {
		i, ok := b.index[key]
		return i, ok
	}
	for i := range b.members {
		if b.members[i].Key == key {
			return i, true
		}
	}
	return 0, false
}

func (b *objectBuilder) set(key string, v Value) {
	if i, ok := b.find(key); ok {
		b.members[i].Value = v
		return
	}
	b.members = append(b.members, Member{Key: key, Value: v})
	switch {
	case b.index != nil:
		b.index[key] = len(b.members) - 1
	case len(b.members) > linearLimit:
		b.index = make(map[string]int, len(b.members)*2)
		for i := range b.members {
			b.index[b.members[i].Key] = i
		}
	}
}

func (b *objectBuilder) get(key string) (Value, bool) {
	if i, ok := b.find(key); ok {
		return b.members[i].Value, true
	}
	return Value{}, false
}

func (b *objectBuilder) value() Value {
	return Value{kind: KindObject, obj: b.members}
}
