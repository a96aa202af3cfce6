package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrTrailingData is returned when a line holds more than one JSON value
var ErrTrailingData = errors.New("record: trailing data after JSON value")

// Parse decodes exactly one JSON value from data.
// Object member order is preserved and repeated keys keep their first
// position with the last value. Numbers keep their literal text
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := parseValue(dec)
	if err != nil {
		return Value{}, err
	}
	switch _, err := dec.Token(); {
	case err == io.EOF:
		return v, nil
	case err == nil:
		return Value{}, ErrTrailingData
	default:
		return Value{}, err
	}
}

func parseValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return Value{}, io.ErrUnexpectedEOF
		}
		return Value{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return parseObject(dec)
		case '[':
			return parseArray(dec)
		default:
			return Value{}, fmt.Errorf("record: unexpected delimiter %q", rune(t))
		}
	case string:
		return String(t), nil
	case json.Number:
		return Number(t), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null(), nil
	default:
		return Value{}, fmt.Errorf("record: unexpected token %T", tok)
	}
}

func parseObject(dec *json.Decoder) (Value, error) {
	b := newObjectBuilder(8)
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		key, ok := kt.(string)
		if !ok {
			return Value{}, fmt.Errorf("record: object key is %T, want string", kt)
		}
		v, err := parseValue(dec)
		if err != nil {
			return Value{}, err
		}
		b.set(key, v)
	}
	// closing brace
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return b.value(), nil
}

func parseArray(dec *json.Decoder) (Value, error) {
	var out []Value
	for dec.More() {
		v, err := parseValue(dec)
		if err != nil {
			return Value{}, err
		}
		out = append(out, v)
	}
	// closing bracket
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	if out == nil {
		out = []Value{}
	}
	return Array(out...), nil
}
