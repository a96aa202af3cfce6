package record

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Substitutes written by Clean
const (
	Unknown      = "Unknown" // empty or whitespace-only string
	NotAvailable = "N/A"     // null
)

// Source and derived field names used by DeriveFeatures
const (
	FieldPrice           = "price"
	FieldOverall         = "overall"
	FieldPriceCategory   = "price_category"
	FieldReviewSentiment = "review_sentiment"
)

// Price buckets
const (
	PriceLow    = "Low"
	PriceMedium = "Medium"
	PriceHigh   = "High"
)

// Sentiment buckets
const (
	SentimentPositive = "Positive"
	SentimentNeutral  = "Neutral"
	SentimentNegative = "Negative"
)

// Transform runs Clean, RenameKeys and DeriveFeatures in that order.
// It never fails and never mutates v
func Transform(v Value) Value {
	return DeriveFeatures(RenameKeys(Clean(v)))
}

// Clean replaces nulls, trims strings and degrades non-JSON values.
// Arrays get a shallow pass: objects inside are cleaned, strings trimmed
// without the Unknown substitute, nulls replaced, the rest kept as is
func Clean(v Value) Value {
	switch v.kind {
	case KindString:
		if s := trim(v.str); s != "" {
			return String(s)
		}
		return String(Unknown)
	case KindNull:
		return String(NotAvailable)
	case KindNumber, KindBool:
		return v
	case KindArray:
		out := make([]Value, len(v.arr))
		for i, el := range v.arr {
			switch el.kind {
			case KindObject:
				out[i] = Clean(el)
			case KindString:
				out[i] = String(trim(el.str))
			case KindNull:
				out[i] = String(NotAvailable)
			default:
				out[i] = el
			}
		}
		return Array(out...)
	case KindObject:
		ms := make([]Member, len(v.obj))
		for i, m := range v.obj {
			ms[i] = Member{Key: m.Key, Value: Clean(m.Value)}
		}
		return Value{kind: KindObject, obj: ms}
	default:
		return String(v.str)
	}
}

// RenameKeys normalizes every object key with NormalizeKey, descending into
// object values but not into arrays. Keys that collapse onto the same name
// keep the first position and the last value
func RenameKeys(v Value) Value {
	if v.kind != KindObject {
		return v
	}
	b := newObjectBuilder(len(v.obj))
	for _, m := range v.obj {
		b.set(NormalizeKey(m.Key), RenameKeys(m.Value))
	}
	return b.value()
}

var lowerPool = sync.Pool{
	New: func() any {
		c := cases.Lower(language.Und)
		return &c
	},
}

// NormalizeKey lower-cases k and turns each space into an underscore.
// Only U+0020 is replaced; tabs and other separators stay
func NormalizeKey(k string) string {
	if isASCII(k) {
		return asciiKey(k)
	}
	c := lowerPool.Get().(*cases.Caser)
	s := c.String(k)
	c.Reset()
	lowerPool.Put(c)
	return strings.ReplaceAll(s, " ", "_")
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func asciiKey(k string) string {
	dirty := false
	for i := 0; i < len(k); i++ {
		if c := k[i]; c == ' ' || ('A' <= c && c <= 'Z') {
			dirty = true
			break
		}
	}
	if !dirty {
		return k
	}
	b := []byte(k)
	for i, c := range b {
		switch {
		case c == ' ':
			b[i] = '_'
		case 'A' <= c && c <= 'Z':
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// DeriveFeatures adds price_category and review_sentiment to a top-level
// object when price or overall hold a number. Existing derived members are
// overwritten in place. Non-objects are returned unchanged
func DeriveFeatures(v Value) Value {
	if v.kind != KindObject {
		return v
	}
	price, hasPrice := numberField(v, FieldPrice)
	overall, hasOverall := numberField(v, FieldOverall)
	if !hasPrice && !hasOverall {
		return v
	}

	b := newObjectBuilder(len(v.obj) + 2)
	for _, m := range v.obj {
		b.set(m.Key, m.Value)
	}
	if hasPrice {
		b.set(FieldPriceCategory, String(PriceCategory(price)))
	}
	if hasOverall {
		b.set(FieldReviewSentiment, String(Sentiment(overall)))
	}
	return b.value()
}

// numberField reads a top-level number. Booleans count as 1 and 0
func numberField(v Value, key string) (float64, bool) {
	f, ok := v.Get(key)
	if !ok {
		return 0, false
	}
	if b, ok := f.Boolean(); ok {
		if b {
			return 1, true
		}
		return 0, true
	}
	return f.Float()
}

// PriceCategory buckets a price: below 100 Low, 100 through 200 Medium, above High.
// NaN falls through to High
func PriceCategory(p float64) string {
	switch {
	case p < 100:
		return PriceLow
	case p <= 200:
		return PriceMedium
	default:
		return PriceHigh
	}
}

// Sentiment buckets a star rating: 4 and up Positive, 2.5 up to 4 Neutral, below Negative
func Sentiment(overall float64) string {
	switch {
	case overall >= 4.0:
		return SentimentPositive
	case overall >= 2.5:
		return SentimentNeutral
	default:
		return SentimentNegative
	}
}

// trim strips Unicode white space and the ASCII separators FS GS RS US
func trim(s string) string {
	return strings.TrimFunc(s, isTrimSpace)
}

func isTrimSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1C && r <= 0x1F)
}
