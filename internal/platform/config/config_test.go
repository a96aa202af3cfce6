package config

import (
	"slices"
	"testing"
	"time"
)

func TestPrefix(t *testing.T) {
	c := New().Prefix("RP_").Prefix("API_")
	if got := c.key("PORT"); got != "RP_API_PORT" {
		t.Fatalf("key = %q", got)
	}
	t.Setenv("RP_API_PORT", " :9000 ")
	if got := c.MayString("PORT", ":4000"); got != ":9000" {
		t.Fatalf("MayString = %q", got)
	}
}

func TestMayScalars(t *testing.T) {
	c := New().Prefix("T_")
	tests := []struct {
		name string
		env  string
		get  func() any
		want any
	}{
		{"string unset", "", func() any { return c.MayString("V", "def") }, "def"},
		{"string blank", "   ", func() any { return c.MayString("V", "def") }, "def"},
		{"int", "42", func() any { return c.MayInt("V", 1) }, 42},
		{"int negative", "-3", func() any { return c.MayInt("V", 1) }, -3},
		{"int invalid", "4x", func() any { return c.MayInt("V", 1) }, 1},
		{"bool", "true", func() any { return c.MayBool("V", false) }, true},
		{"bool numeric", "0", func() any { return c.MayBool("V", true) }, false},
		{"bool invalid", "yes", func() any { return c.MayBool("V", true) }, true},
		{"duration", "250ms", func() any { return c.MayDuration("V", time.Second) }, 250 * time.Millisecond},
		{"duration invalid", "5", func() any { return c.MayDuration("V", time.Second) }, time.Second},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("T_V", tc.env)
			if got := tc.get(); got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestMayCSV(t *testing.T) {
	def := []string{"*"}
	tests := []struct {
		env  string
		want []string
	}{
		{"", def},
		{" , ,", def},
		{"https://a.test", []string{"https://a.test"}},
		{" a , ,b ", []string{"a", "b"}},
	}
	for _, tc := range tests {
		t.Setenv("T_ORIGINS", tc.env)
		if got := New().Prefix("T_").MayCSV("ORIGINS", def); !slices.Equal(got, tc.want) {
			t.Fatalf("%q: got %v want %v", tc.env, got, tc.want)
		}
	}
}
