package record

import (
	"unicode/utf16"
	"unicode/utf8"
)

// Encoding controls how Append writes a Value
type Encoding struct {
	// EscapeNonASCII writes DEL and every rune past it as \uXXXX (surrogate pairs above the BMP)
	EscapeNonASCII bool
	// Spaced separates members with ", " and keys from values with ": "
	Spaced bool
}

var (
	// Default is ASCII-only and spaced, matching the existing cleaned files
	Default = Encoding{EscapeNonASCII: true, Spaced: true}
	// Compact is plain UTF-8 with no separator padding
	Compact = Encoding{}
)

const hexDigits = "0123456789abcdef"

// Marshal returns the JSON encoding of v
func Marshal(v Value, enc Encoding) []byte {
	return Append(make([]byte, 0, 256), v, enc)
}

// Append appends the JSON encoding of v to dst and returns the extended buffer
func Append(dst []byte, v Value, enc Encoding) []byte {
	switch v.kind {
	case KindNull:
		return append(dst, "null"...)
	case KindString, KindOther:
		return appendString(dst, v.str, enc.EscapeNonASCII)
	case KindNumber:
		if v.str == "" {
			return append(dst, '0')
		}
		return append(dst, v.str...)
	case KindBool:
		if v.b {
			return append(dst, "true"...)
		}
		return append(dst, "false"...)
	case KindArray:
		dst = append(dst, '[')
		for i := range v.arr {
			if i > 0 {
				dst = appendComma(dst, enc)
			}
			dst = Append(dst, v.arr[i], enc)
		}
		return append(dst, ']')
	case KindObject:
		dst = append(dst, '{')
		for i := range v.obj {
			if i > 0 {
				dst = appendComma(dst, enc)
			}
			dst = appendString(dst, v.obj[i].Key, enc.EscapeNonASCII)
			dst = append(dst, ':')
			if enc.Spaced {
				dst = append(dst, ' ')
			}
			dst = Append(dst, v.obj[i].Value, enc)
		}
		return append(dst, '}')
	}
	return append(dst, "null"...)
}

func appendComma(dst []byte, enc Encoding) []byte {
	if enc.Spaced {
		return append(dst, ',', ' ')
	}
	return append(dst, ',')
}

// appendString writes s as a quoted JSON string.
// Invalid UTF-8 bytes are written as U+FFFD
func appendString(dst []byte, s string, escapeNonASCII bool) []byte {
	dst = append(dst, '"')
	start := 0
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			if c >= 0x20 && c != '"' && c != '\\' && (c != 0x7f || !escapeNonASCII) {
				i++
				continue
			}
			dst = append(dst, s[start:i]...)
			switch c {
			case '"', '\\':
				dst = append(dst, '\\', c)
			case '\n':
				dst = append(dst, '\\', 'n')
			case '\r':
				dst = append(dst, '\\', 'r')
			case '\t':
				dst = append(dst, '\\', 't')
			case '\b':
				dst = append(dst, '\\', 'b')
			case '\f':
				dst = append(dst, '\\', 'f')
			default:
				dst = appendU4(dst, rune(c))
			}
			i++
			start = i
			continue
		}

		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			dst = append(dst, s[start:i]...)
			if escapeNonASCII {
				dst = appendU4(dst, utf8.RuneError)
			} else {
				dst = utf8.AppendRune(dst, utf8.RuneError)
			}
			i++
			start = i
			continue
		}
		if escapeNonASCII {
			dst = append(dst, s[start:i]...)
			if r > 0xFFFF {
				hi, lo := utf16.EncodeRune(r)
				dst = appendU4(dst, hi)
				dst = appendU4(dst, lo)
			} else {
				dst = appendU4(dst, r)
			}
			i += size
			start = i
			continue
		}
		i += size
	}
	dst = append(dst, s[start:]...)
	return append(dst, '"')
}

func appendU4(dst []byte, r rune) []byte {
	return append(dst, '\\', 'u',
		hexDigits[(r>>12)&0xF], hexDigits[(r>>8)&0xF], hexDigits[(r>>4)&0xF], hexDigits[r&0xF])
}
