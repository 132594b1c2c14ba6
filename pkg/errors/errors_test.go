package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	e1 := New("cause1")
	e2 := New("cause2").Wrap(e1)
	e := New("dummy").Wrap(e2)
	e3 := e.Unwrap()
	assert.True(t, Is(e, e1))
	assert.True(t, Is(e, e2))
	assert.True(t, e3 == e2)
}

func TestWrapKeepsSentinel(t *testing.T) {
	sentinel := New("not found")
	cause := fmt.Errorf("key %q", "abc")

	wrapped := sentinel.Wrap(cause)
	assert.True(t, Is(wrapped, sentinel))
	assert.True(t, Is(wrapped, cause))
	assert.Equal(t, `not found: key "abc"`, wrapped.Error())

	// the sentinel itself is left untouched
	assert.Nil(t, sentinel.Unwrap())
	assert.Equal(t, "not found", sentinel.Error())

	other := New("not found")
	assert.False(t, Is(wrapped, other))

	outer := fmt.Errorf("reading: %w", sentinel.Wrapf("id %d", 12))
	assert.True(t, Is(outer, sentinel))

	var target *Error
	assert.True(t, As(outer, &target))
	assert.True(t, Is(target, sentinel))
}

func TestIncluding(t *testing.T) {
	specific := New("invalid identifier")
	general := New("invalid argument").Including(specific)

	err := fmt.Errorf("parsing: %w", specific.Wrapf("bad hex"))
	assert.True(t, Is(err, specific))
	assert.True(t, Is(err, general))
	assert.False(t, Is(general.Wrapf("bad key"), specific))
	assert.Equal(t, "invalid argument: bad key", general.Wrapf("bad key").Error())

	unrelated := New("not found")
	assert.False(t, Is(unrelated.Wrapf("key"), general))
}
