// Package idgen hands out the keys the display uses to tell log entries
// apart. Keys carry no meaning beyond being unique within a process.
package idgen

import (
	"fmt"
	"strconv"
	"sync/atomic"

	nanoid "github.com/matoous/go-nanoid/v2"
)

const (
	DefaultPrefix = "log-"
	Length        = 10 // random characters after the prefix

	alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// Func returns a fresh key on every call.
type Func func() (string, error)

// Generate returns a random key such as "log-4fZq0aK9Lm".
func Generate() (string, error) {
	return Prefixed(DefaultPrefix)()
}

// Prefixed returns a random key source bound to prefix.
func Prefixed(prefix string) Func {
	return func() (string, error) {
		id, err := nanoid.Generate(alphabet, Length)
		if err != nil {
			return "", fmt.Errorf("generating entry id: %w", err)
		}
		return prefix + id, nil
	}
}

// Sequence yields prefix1, prefix2, ... and is safe for concurrent use.
// Tests use it for predictable keys.
func Sequence(prefix string) Func {
	var n atomic.Uint64
	return func() (string, error) {
		return prefix + strconv.FormatUint(n.Add(1), 10), nil
	}
}
