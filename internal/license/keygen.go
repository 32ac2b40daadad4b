// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package license

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

const (
	keyPrefix     = "LIC"
	keyBlockCount = 4
	keyBlockLen   = 4
	keyAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// KeyGenerator produces opaque license keys of the form
// LIC-XXXX-XXXX-XXXX-XXXX. Keys are random tokens, not verifiable
// credentials; collisions are astronomically unlikely but not impossible,
// which is why the stores retry creation on a unique-key conflict.
type KeyGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewKeyGenerator returns a generator seeded from the wall clock.
func NewKeyGenerator() *KeyGenerator {
	return NewKeyGeneratorWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewKeyGeneratorWithSource returns a generator backed by the given source.
// Tests inject a fixed seed to get deterministic keys.
func NewKeyGeneratorWithSource(src rand.Source) *KeyGenerator {
	return &KeyGenerator{rng: rand.New(src)}
}

// Generate returns a new license key.
func (g *KeyGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var sb strings.Builder
	sb.Grow(len(keyPrefix) + keyBlockCount*(keyBlockLen+1))
	sb.WriteString(keyPrefix)

	for b := 0; b < keyBlockCount; b++ {
		sb.WriteByte('-')
		for i := 0; i < keyBlockLen; i++ {
			sb.WriteByte(keyAlphabet[g.rng.Intn(len(keyAlphabet))])
		}
	}

	return sb.String()
}
