// Package config reads typed settings from prefixed environment variables
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"reviewprep/internal/platform/logger"
)

// Conf is a prefixed view over the environment, e.g. New().Prefix("RP_API_")
type Conf struct{ prefix string }

// New returns the unprefixed root view
func New() Conf { return Conf{} }

// Prefix returns a child view whose keys are prefixed with p
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

func (c Conf) key(k string) string { return c.prefix + k }

// lookup returns def when key is unset or blank and when parse fails,
// logging a warning in the latter case
func lookup[T any](c Conf, key string, def T, parse func(string) (T, error)) T {
	k := c.key(key)
	s := strings.TrimSpace(os.Getenv(k))
	if s == "" {
		return def
	}
	v, err := parse(s)
	if err != nil {
		logger.Get().Warn().Str("key", k).Str("value", s).Interface("default", def).Err(err).
			Msg("config: invalid value, using default")
		return def
	}
	return v
}

// MayString returns the trimmed value or def
func (c Conf) MayString(key, def string) string {
	return lookup(c, key, def, func(s string) (string, error) { return s, nil })
}

// MayInt returns the value as an int or def
func (c Conf) MayInt(key string, def int) int { return lookup(c, key, def, strconv.Atoi) }

// MayBool accepts what strconv.ParseBool accepts
func (c Conf) MayBool(key string, def bool) bool { return lookup(c, key, def, strconv.ParseBool) }

// MayDuration accepts Go durations like 250ms or 6h
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	return lookup(c, key, def, time.ParseDuration)
}

// MayCSV splits a comma separated value, dropping blanks; def when nothing is left
func (c Conf) MayCSV(key string, def []string) []string {
	out := lookup(c, key, nil, func(s string) ([]string, error) {
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		return parts, nil
	})
	if len(out) == 0 {
		return def
	}
	return out
}
