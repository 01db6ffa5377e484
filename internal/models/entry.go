package models

import "time"

// Entry is a Tier 1 cache item. The value is held by reference and never serialized.
type Entry[V any] struct {
	Value     V
	ExpiresAt time.Time
}

// NewEntry creates an Entry that lives for ttl from now.
func NewEntry[V any](value V, ttl time.Duration) Entry[V] {
	return Entry[V]{
		Value:     value,
		ExpiresAt: time.Now().Add(ttl),
	}
}

// IsExpired checks if the entry has expired.
func (e Entry[V]) IsExpired() bool {
	return !time.Now().Before(e.ExpiresAt)
}

// Refreshed returns a copy of the entry whose age is reset to zero.
func (e Entry[V]) Refreshed(ttl time.Duration) Entry[V] {
	return NewEntry(e.Value, ttl)
}
