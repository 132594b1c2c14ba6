// Package identifier implements content fingerprints.
//
// An Identifier either carries a small payload inline (data identifier), or
// refers to content stored elsewhere by its size and cryptographic hash
// (hash-ref identifier). Both encodings are opaque to consumers: providers
// resolve data identifiers without touching storage.
package identifier

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/oneconcern/contentstore/pkg/errors"
)

// ErrInvalidIdentifier indicates a malformed identifier, or an unsupported hash algorithm
var ErrInvalidIdentifier = errors.New("invalid identifier")

// Kind of identifier encoding. The value is also the leading tag byte of the binary encoding.
type Kind uint8

const (
	// KindData identifies content embedded in the identifier itself
	KindData Kind = 1

	// KindHashRef identifies content by size and hash
	KindHashRef Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindHashRef:
		return "hash-ref"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

const (
	// DefaultInlineThreshold is the largest payload, in bytes, embedded inline by default
	DefaultInlineThreshold = 64

	// MaxInlineSize bounds the payload accepted in a data identifier
	MaxInlineSize = 4096
)

// Identifier is an immutable content fingerprint. Identifiers are comparable with ==.
//
// The zero value is not a valid identifier.
type Identifier struct {
	kind Kind
	size uint64
	alg  Algorithm
	data string // inline payload or raw hash
}

// New computes the hash-ref identifier of some content with the default algorithm.
func New(data []byte) Identifier {
	id, _ := NewWithAlgorithm(DefaultAlgorithm, data)
	return id
}

// NewWithAlgorithm computes the hash-ref identifier of some content with a given algorithm.
func NewWithAlgorithm(alg Algorithm, data []byte) (Identifier, error) {
	sum, err := alg.Sum(data)
	if err != nil {
		return Identifier{}, err
	}
	return Identifier{
		kind: KindHashRef,
		size: uint64(len(data)),
		alg:  alg,
		data: string(sum[:]),
	}, nil
}

// NewData builds a data identifier which embeds its content.
func NewData(data []byte) Identifier {
	return Identifier{
		kind: KindData,
		size: uint64(len(data)),
		data: string(data),
	}
}

// ForContent returns a data identifier when the content size is at or below the threshold,
// and a hash-ref identifier otherwise. A negative threshold disables inlining.
func ForContent(data []byte, threshold int) Identifier {
	if threshold >= 0 && len(data) <= threshold && len(data) <= MaxInlineSize {
		return NewData(data)
	}
	return New(data)
}

// Kind of encoding
func (i Identifier) Kind() Kind { return i.kind }

// IsZero tells if this identifier is the zero value
func (i Identifier) IsZero() bool { return i.kind == 0 }

// IsData tells if the content is embedded in this identifier
func (i Identifier) IsData() bool { return i.kind == KindData }

// IsHashRef tells if the content lives in some storage
func (i Identifier) IsHashRef() bool { return i.kind == KindHashRef }

// Size of the identified content, in bytes
func (i Identifier) Size() uint64 { return i.size }

// Algorithm used to compute the hash. Data identifiers report 0.
func (i Identifier) Algorithm() Algorithm { return i.alg }

// Data returns a copy of the embedded content, or nil for hash-ref identifiers
func (i Identifier) Data() []byte {
	if i.kind != KindData {
		return nil
	}
	return []byte(i.data)
}

// Hash returns a copy of the raw hash, or nil for data identifiers
func (i Identifier) Hash() []byte {
	if i.kind != KindHashRef {
		return nil
	}
	return []byte(i.data)
}

// HashString is the hex representation of the raw hash, or an empty string for data identifiers
func (i Identifier) HashString() string {
	if i.kind != KindHashRef {
		return ""
	}
	return hex.EncodeToString([]byte(i.data))
}

// Matches verifies that some content is the one identified
func (i Identifier) Matches(data []byte) bool {
	switch i.kind {
	case KindData:
		return i.data == string(data)
	case KindHashRef:
		if uint64(len(data)) != i.size {
			return false
		}
		other, err := NewWithAlgorithm(i.alg, data)
		if err != nil {
			return false
		}
		return other.data == i.data
	default:
		return false
	}
}

// Bytes renders the canonical binary encoding of this identifier.
//
// Data identifiers are encoded as the kind tag followed by the payload.
// Hash-ref identifiers are encoded as the kind tag, the content size as an unsigned varint,
// the algorithm byte and the raw hash.
func (i Identifier) Bytes() []byte {
	switch i.kind {
	case KindData:
		buf := make([]byte, 0, 1+len(i.data))
		buf = append(buf, byte(KindData))
		return append(buf, i.data...)
	case KindHashRef:
		buf := make([]byte, 0, 2+binary.MaxVarintLen64+len(i.data))
		buf = append(buf, byte(KindHashRef))
		buf = binary.AppendUvarint(buf, i.size)
		buf = append(buf, byte(i.alg))
		return append(buf, i.data...)
	default:
		return nil
	}
}

// String renders the identifier as lower-case hex
func (i Identifier) String() string {
	return hex.EncodeToString(i.Bytes())
}

// Compare identifiers by their binary encoding
func (i Identifier) Compare(other Identifier) int {
	return bytes.Compare(i.Bytes(), other.Bytes())
}

// FromBytes decodes the binary encoding of an identifier
func FromBytes(buf []byte) (Identifier, error) {
	if len(buf) == 0 {
		return Identifier{}, invalid("empty identifier")
	}
	switch Kind(buf[0]) {
	case KindData:
		payload := buf[1:]
		if len(payload) > MaxInlineSize {
			return Identifier{}, invalid("inline payload of %d bytes exceeds %d", len(payload), MaxInlineSize)
		}
		return NewData(payload), nil
	case KindHashRef:
		size, n := binary.Uvarint(buf[1:])
		if n <= 0 {
			return Identifier{}, invalid("malformed size")
		}
		rest := buf[1+n:]
		if len(rest) < 1 {
			return Identifier{}, invalid("missing hash algorithm")
		}
		alg := Algorithm(rest[0])
		if !alg.Valid() {
			return Identifier{}, invalid("unknown hash algorithm %d", rest[0])
		}
		hash := rest[1:]
		if len(hash) != alg.HashSize() {
			return Identifier{}, invalid("hash has %d bytes, expected %d", len(hash), alg.HashSize())
		}
		return Identifier{
			kind: KindHashRef,
			size: size,
			alg:  alg,
			data: string(hash),
		}, nil
	default:
		return Identifier{}, invalid("unknown identifier kind %d", buf[0])
	}
}

// Parse the hex representation of an identifier
func Parse(s string) (Identifier, error) {
	buf, err := hex.DecodeString(s)
	if err != nil {
		return Identifier{}, ErrInvalidIdentifier.Wrap(fmt.Errorf("%q: %w", s, err))
	}
	return FromBytes(buf)
}

// MustParse parses an identifier or panics
func MustParse(s string) Identifier {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// MarshalText implements encoding.TextMarshaler
func (i Identifier) MarshalText() ([]byte, error) {
	if i.IsZero() {
		return []byte{}, nil
	}
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (i *Identifier) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*i = Identifier{}
		return nil
	}
	id, err := Parse(string(text))
	if err != nil {
		return err
	}
	*i = id
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler
func (i Identifier) MarshalBinary() ([]byte, error) {
	return i.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler
func (i *Identifier) UnmarshalBinary(buf []byte) error {
	id, err := FromBytes(buf)
	if err != nil {
		return err
	}
	*i = id
	return nil
}

func invalid(format string, args ...interface{}) error {
	return ErrInvalidIdentifier.Wrapf(format, args...)
}
