package utils

import (
	"strings"
	"time"
)

var globEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
)

// EscapeGlob quotes the characters a Redis glob pattern treats specially.
func EscapeGlob(s string) string {
	return globEscaper.Replace(s)
}

// ContainsPattern returns the glob matching every key that contains substr.
func ContainsPattern(substr string) string {
	return "*" + EscapeGlob(substr) + "*"
}

// WholeSeconds rounds ttl up to whole seconds, never below one.
func WholeSeconds(ttl time.Duration) time.Duration {
	if ttl <= time.Second {
		return time.Second
	}
	if rem := ttl % time.Second; rem > 0 {
		return ttl - rem + time.Second
	}
	return ttl
}

// GetExpirationTime returns the first ttl if given, else defaultTime.
func GetExpirationTime(defaultTime time.Duration, ttl ...time.Duration) time.Duration {
	if len(ttl) > 0 && ttl[0] > 0 {
		return ttl[0]
	}
	return defaultTime
}
