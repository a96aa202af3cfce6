package record

import (
	"strconv"
)

// Violation is one place where a value breaks the cleaned record rules
type Violation struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

func (v Violation) String() string { return v.Path + ": " + v.Reason }

// Check reports every way v differs from what Transform produces.
// A nil result means v is a valid cleaned record
func Check(v Value) []Violation {
	c := checker{}
	c.value("$", v, true)
	if v.kind == KindObject {
		c.features(v)
	}
	return c.out
}

type checker struct {
	out []Violation
}

func (c *checker) add(path, reason string) {
	c.out = append(c.out, Violation{Path: path, Reason: reason})
}

// value checks a member value. keys reports whether object keys at this level must be normalized
func (c *checker) value(path string, v Value, keys bool) {
	switch v.kind {
	case KindNull:
		c.add(path, "null value")
	case KindString:
		switch t := trim(v.str); {
		case t == "":
			c.add(path, "empty string")
		case t != v.str:
			c.add(path, "untrimmed string")
		}
	case KindOther:
		c.add(path, "non-JSON value")
	case KindObject:
		for _, m := range v.obj {
			p := path + "." + m.Key
			if keys && NormalizeKey(m.Key) != m.Key {
				c.add(p, "key not normalized")
			}
			c.value(p, m.Value, keys)
		}
	case KindArray:
		for i, el := range v.arr {
			p := path + "[" + strconv.Itoa(i) + "]"
			switch el.kind {
			case KindNull:
				c.add(p, "null element")
			case KindString:
				if trim(el.str) != el.str {
					c.add(p, "untrimmed string")
				}
			case KindObject:
				c.value(p, el, false)
			}
		}
	}
}

func (c *checker) features(v Value) {
	if p, ok := numberField(v, FieldPrice); ok {
		c.derived(v, FieldPriceCategory, PriceCategory(p))
	}
	if o, ok := numberField(v, FieldOverall); ok {
		c.derived(v, FieldReviewSentiment, Sentiment(o))
	}
}

func (c *checker) derived(v Value, key, want string) {
	path := "$." + key
	got, ok := v.Get(key)
	if !ok {
		c.add(path, "missing derived feature")
		return
	}
	if s, _ := got.Str(); s != want {
		c.add(path, "want "+strconv.Quote(want)+" got "+got.Repr())
	}
}
