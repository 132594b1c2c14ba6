// Package rand generates random test data
package rand

import (
	"math/rand"
	"sync"
	"time"
)

const letterBytes = "abcdefghijklmnopqrstuvwxyz0123456789"

var (
	mx  sync.Mutex
	src = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec
)

// Bytes returns a random slice of bytes
func Bytes(n int) []byte {
	b := make([]byte, n)
	mx.Lock()
	defer mx.Unlock()
	_, _ = src.Read(b)
	return b
}

// LetterBytes returns a random slice of bytes picked in the [0-9]|[a-z] range
func LetterBytes(n int) []byte {
	b := make([]byte, n)
	mx.Lock()
	defer mx.Unlock()
	for i := range b {
		b[i] = letterBytes[src.Intn(len(letterBytes))]
	}
	return b
}

// LetterString returns a random string picked in the [0-9]|[a-z] range
func LetterString(n int) string {
	return string(LetterBytes(n))
}

// Perm returns a random permutation of [0, n)
func Perm(n int) []int {
	mx.Lock()
	defer mx.Unlock()
	return src.Perm(n)
}
