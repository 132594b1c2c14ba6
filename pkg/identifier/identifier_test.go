package identifier

import (
	"bytes"
	"strings"
	"testing"

	"github.com/oneconcern/contentstore/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsDeterministic(t *testing.T) {
	content := []byte("the quick brown fox jumps over the lazy dog")

	id1 := New(content)
	id2 := New(append([]byte{}, content...))
	assert.Equal(t, id1, id2)
	assert.True(t, id1.IsHashRef())
	assert.False(t, id1.IsData())
	assert.EqualValues(t, len(content), id1.Size())
	assert.Equal(t, Blake3, id1.Algorithm())
	assert.Len(t, id1.Hash(), HashSize)
	assert.Nil(t, id1.Data())

	other := New([]byte("the quick brown fox jumps over the lazy cat"))
	assert.NotEqual(t, id1, other)
}

func TestAlgorithms(t *testing.T) {
	content := []byte("some content")

	b3, err := NewWithAlgorithm(Blake3, content)
	require.NoError(t, err)
	b2, err := NewWithAlgorithm(Blake2b256, content)
	require.NoError(t, err)

	assert.NotEqual(t, b3, b2)
	assert.True(t, b2.Matches(content))
	assert.Equal(t, Blake2b256, b2.Algorithm())

	_, err = NewWithAlgorithm(Algorithm(42), content)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidIdentifier))

	alg, err := ParseAlgorithm("blake2b")
	require.NoError(t, err)
	assert.Equal(t, Blake2b256, alg)
	_, err = ParseAlgorithm("md5")
	require.Error(t, err)
}

func TestForContent(t *testing.T) {
	small := []byte("tiny")
	large := bytes.Repeat([]byte("x"), DefaultInlineThreshold+1)

	id := ForContent(small, DefaultInlineThreshold)
	require.True(t, id.IsData())
	assert.Equal(t, small, id.Data())
	assert.True(t, id.Matches(small))
	assert.False(t, id.Matches([]byte("other")))

	id = ForContent(bytes.Repeat([]byte("x"), DefaultInlineThreshold), DefaultInlineThreshold)
	assert.True(t, id.IsData(), "threshold is inclusive")

	id = ForContent(large, DefaultInlineThreshold)
	assert.True(t, id.IsHashRef())
	assert.True(t, id.Matches(large))

	id = ForContent(small, -1)
	assert.True(t, id.IsHashRef())

	// both encodings of the same content are distinct identifiers
	assert.NotEqual(t, NewData(small), New(small))
}

func TestMatchesDetectsTampering(t *testing.T) {
	content := []byte("original")
	id := New(content)

	assert.False(t, id.Matches([]byte("origina1")))
	assert.False(t, id.Matches([]byte("original+")))
	assert.False(t, Identifier{}.Matches(content))
}

func TestEncoding(t *testing.T) {
	for _, id := range []Identifier{
		New([]byte("hash me")),
		NewData([]byte("inline")),
		NewData(nil),
	} {
		decoded, err := FromBytes(id.Bytes())
		require.NoError(t, err)
		assert.Equal(t, id, decoded)

		parsed, err := Parse(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
		assert.Equal(t, strings.ToLower(id.String()), id.String())

		text, err := id.MarshalText()
		require.NoError(t, err)
		var fromText Identifier
		require.NoError(t, fromText.UnmarshalText(text))
		assert.Equal(t, id, fromText)
	}

	// hash-ref layout: tag, varint size, algorithm, hash
	id := New(bytes.Repeat([]byte("a"), 300))
	buf := id.Bytes()
	assert.Equal(t, byte(KindHashRef), buf[0])
	assert.Equal(t, []byte{0xac, 0x02}, buf[1:3])
	assert.Equal(t, byte(Blake3), buf[3])
	assert.Equal(t, id.Hash(), buf[4:])
}

func TestDecodeErrors(t *testing.T) {
	for _, buf := range [][]byte{
		nil,
		{0x7f},
		{byte(KindHashRef)},
		{byte(KindHashRef), 0x01},
		{byte(KindHashRef), 0x01, 0x09, 0x00},
		{byte(KindHashRef), 0x01, byte(Blake3), 0x00, 0x01},
	} {
		_, err := FromBytes(buf)
		require.Errorf(t, err, "expected error on %x", buf)
		assert.True(t, errors.Is(err, ErrInvalidIdentifier))
	}

	_, err := Parse("not hex")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidIdentifier))

	assert.Panics(t, func() { _ = MustParse("zz") })
}

func TestZero(t *testing.T) {
	var id Identifier
	assert.True(t, id.IsZero())
	assert.Empty(t, id.Bytes())

	text, err := id.MarshalText()
	require.NoError(t, err)
	assert.Empty(t, text)

	var back Identifier
	require.NoError(t, back.UnmarshalText(text))
	assert.True(t, back.IsZero())
}
