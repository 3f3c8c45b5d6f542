// Package cache stores fetched pages, extracted text and search results keyed
// by the hash of a canonical URL.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Namespace separates the kinds of payload kept under the same key.
type Namespace string

const (
	NamespaceHTML    Namespace = "html"
	NamespaceText    Namespace = "text"
	NamespaceResults Namespace = "results"
)

// ErrNotFound is returned by Read when no entry exists for a key.
var ErrNotFound = errors.New("cache entry not found")

// Store is a content-addressable byte store. Writes are idempotent per key.
type Store interface {
	Exists(ctx context.Context, ns Namespace, key string) (bool, error)
	Read(ctx context.Context, ns Namespace, key string) ([]byte, error)
	Write(ctx context.Context, ns Namespace, key string, data []byte) error
}

// Pruner is implemented by stores that can drop stale entries.
type Pruner interface {
	Prune(ctx context.Context, olderThan time.Time) (int, error)
}

func (ns Namespace) extension() string {
	switch ns {
	case NamespaceHTML:
		return ".html"
	case NamespaceText:
		return ".txt"
	case NamespaceResults:
		return ".json"
	default:
		return ".bin"
	}
}

func (ns Namespace) validate() error {
	switch ns {
	case NamespaceHTML, NamespaceText, NamespaceResults:
		return nil
	default:
		return fmt.Errorf("unknown cache namespace %q", string(ns))
	}
}

func validateKey(key string) error {
	if key == "" {
		return errors.New("cache key is required")
	}
	for _, r := range key {
		isHex := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
		if !isHex {
			return fmt.Errorf("cache key %q is not a lowercase hex digest", key)
		}
	}
	return nil
}

// Nop is a Store that never holds anything.
type Nop struct{}

func (Nop) Exists(context.Context, Namespace, string) (bool, error) { return false, nil }
func (Nop) Read(context.Context, Namespace, string) ([]byte, error) { return nil, ErrNotFound }
func (Nop) Write(context.Context, Namespace, string, []byte) error  { return nil }
