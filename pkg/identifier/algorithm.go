package identifier

import (
	"fmt"

	blake2b "github.com/minio/blake2b-simd"
	"github.com/zeebo/blake3"
)

// HashSize is the size in bytes of the hashes computed by all supported algorithms
const HashSize = 32

// Algorithm is a content hashing scheme
type Algorithm uint8

const (
	// Blake3 is the BLAKE3 hash with a 256 bits output (https://github.com/BLAKE3-team/BLAKE3)
	Blake3 Algorithm = 1

	// Blake2b256 is the BLAKE2b hash truncated to 256 bits.
	//
	// The implementation we use (https://github.com/minio/blake2b-simd) takes advantage of AVX2
	// whenever available.
	Blake2b256 Algorithm = 2

	// DefaultAlgorithm used to build hash-ref identifiers
	DefaultAlgorithm = Blake3
)

// Valid tells if the algorithm is supported
func (a Algorithm) Valid() bool {
	return a == Blake3 || a == Blake2b256
}

// HashSize is the size of the hash produced by this algorithm
func (a Algorithm) HashSize() int {
	return HashSize
}

// Sum computes the hash of some content
func (a Algorithm) Sum(data []byte) ([HashSize]byte, error) {
	var sum [HashSize]byte
	switch a {
	case Blake3:
		return blake3.Sum256(data), nil
	case Blake2b256:
		hasher, err := blake2b.New(&blake2b.Config{Size: HashSize})
		if err != nil {
			return sum, err
		}
		_, _ = hasher.Write(data)
		copy(sum[:], hasher.Sum(nil))
		return sum, nil
	default:
		return sum, invalid("unsupported hash algorithm %d", uint8(a))
	}
}

func (a Algorithm) String() string {
	switch a {
	case Blake3:
		return "blake3"
	case Blake2b256:
		return "blake2b-256"
	default:
		return fmt.Sprintf("algorithm(%d)", uint8(a))
	}
}

// ParseAlgorithm resolves an algorithm by name
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "", "blake3":
		return Blake3, nil
	case "blake2b", "blake2b-256":
		return Blake2b256, nil
	default:
		return 0, invalid("unknown hash algorithm %q", name)
	}
}
