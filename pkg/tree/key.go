package tree

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"

	"github.com/oneconcern/contentstore/pkg/provider/status"
)

// IndexKey is a byte string ordered lexicographically
type IndexKey []byte

// Compare keys lexicographically
func (k IndexKey) Compare(other IndexKey) int {
	return bytes.Compare(k, other)
}

// Equal keys
func (k IndexKey) Equal(other IndexKey) bool {
	return bytes.Equal(k, other)
}

// HasPrefix tells if the key starts with some prefix
func (k IndexKey) HasPrefix(prefix IndexKey) bool {
	return bytes.HasPrefix(k, prefix)
}

// Clone the key
func (k IndexKey) Clone() IndexKey {
	if k == nil {
		return nil
	}
	return append(IndexKey{}, k...)
}

// String renders printable keys as text, other keys as hex
func (k IndexKey) String() string {
	for _, c := range k {
		if c < 0x20 || c > 0x7e {
			return "0x" + hex.EncodeToString(k)
		}
	}
	return string(k)
}

// Join concatenates keys
func Join(parts ...IndexKey) IndexKey {
	var n int
	for _, p := range parts {
		n += len(p)
	}
	key := make(IndexKey, 0, n)
	for _, p := range parts {
		key = append(key, p...)
	}
	return key
}

// Compose builds the key of a composite index: the first part prefixed by its length as an
// uvarint, then the second part. The second part may itself be a composed key.
func Compose(first, second IndexKey) IndexKey {
	key := make(IndexKey, 0, binary.MaxVarintLen64+len(first)+len(second))
	key = binary.AppendUvarint(key, uint64(len(first)))
	key = append(key, first...)
	return append(key, second...)
}

// Decompose splits a key built by Compose
func (k IndexKey) Decompose() (first, second IndexKey, err error) {
	l, n := binary.Uvarint(k)
	if n <= 0 || l > uint64(len(k)-n) {
		return nil, nil, status.ErrInvalid.Wrapf("key %v is not a composite key", k)
	}
	return k[n : n+int(l)], k[n+int(l):], nil
}

// PrefixEnd returns the key > all the keys with prefix p, but < any other key.
// It returns nil when no such key exists.
func PrefixEnd(prefix IndexKey) IndexKey {
	for i := len(prefix) - 1; i >= 0; i-- {
		if c := prefix[i]; c < 0xff {
			end := make(IndexKey, i+1)
			copy(end, prefix)
			end[i] = c + 1
			return end
		}
	}
	return nil
}

// KeyAfter returns the key ordered immediately after k
func KeyAfter(k IndexKey) IndexKey {
	return append(k.Clone(), 0x00)
}

// BoundKind qualifies a range bound
type BoundKind uint8

const (
	// Unbounded range side
	Unbounded BoundKind = iota
	// Included bound key
	Included
	// Excluded bound key
	Excluded
)

// Bound is one side of a KeyRange
type Bound struct {
	Kind BoundKind
	Key  IndexKey
}

// IncludedBound builds a bound including its key
func IncludedBound(k IndexKey) Bound { return Bound{Kind: Included, Key: k} }

// ExcludedBound builds a bound excluding its key
func ExcludedBound(k IndexKey) Bound { return Bound{Kind: Excluded, Key: k} }

// KeyRange is a range of keys. The zero value contains all keys.
type KeyRange struct {
	Start Bound
	End   Bound
}

// PrefixRange contains all the keys starting with a prefix
func PrefixRange(prefix IndexKey) KeyRange {
	r := KeyRange{Start: IncludedBound(prefix)}
	if end := PrefixEnd(prefix); end != nil {
		r.End = ExcludedBound(end)
	}
	return r
}

// Contains tells if a key is in the range
func (r KeyRange) Contains(k IndexKey) bool {
	return !r.Before(k) && !r.After(k)
}

// Before tells if a key sorts before the start of the range
func (r KeyRange) Before(k IndexKey) bool {
	switch r.Start.Kind {
	case Included:
		return k.Compare(r.Start.Key) < 0
	case Excluded:
		return k.Compare(r.Start.Key) <= 0
	default:
		return false
	}
}

// After tells if a key sorts after the end of the range
func (r KeyRange) After(k IndexKey) bool {
	switch r.End.Kind {
	case Included:
		return k.Compare(r.End.Key) > 0
	case Excluded:
		return k.Compare(r.End.Key) >= 0
	default:
		return false
	}
}
