package rand

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandLetterBytes(t *testing.T) {
	name := LetterBytes(20)
	assert.Len(t, name, 20)
	for _, c := range name {
		assert.Contains(t, letterBytes, string(c))
	}
	assert.Len(t, LetterString(7), 7)
}

func TestRandBytes(t *testing.T) {
	assert.Len(t, Bytes(0), 0)
	assert.Len(t, Bytes(1000), 1000)
	assert.NotEqual(t, Bytes(32), Bytes(32))
}

func TestPerm(t *testing.T) {
	p := Perm(10)
	sort.Ints(p)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, p)
}

func benchmarkRandBytes(b *testing.B, size int) {
	for n := 0; n < b.N; n++ {
		_ = Bytes(size)
	}
}

func BenchmarkRandBytes20(b *testing.B)      { benchmarkRandBytes(b, 20) }
func BenchmarkRandBytes1000(b *testing.B)    { benchmarkRandBytes(b, 1000) }
func BenchmarkRandBytes1000000(b *testing.B) { benchmarkRandBytes(b, 1000000) }
