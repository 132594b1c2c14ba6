package status

import (
	"testing"

	"github.com/oneconcern/contentstore/pkg/errors"
	"github.com/oneconcern/contentstore/pkg/identifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvalidIdentifierIsInvalid(t *testing.T) {
	_, err := identifier.Parse("not hex")
	require.Error(t, err)
	assert.True(t, errors.Is(err, identifier.ErrInvalidIdentifier))
	assert.True(t, errors.Is(err, ErrInvalid))
	assert.False(t, errors.Is(err, ErrCorruptedContent))

	_, err = identifier.ParseAlgorithm("md5")
	assert.True(t, errors.Is(err, ErrInvalid))

	assert.False(t, errors.Is(ErrInvalid.Wrapf("bad key"), identifier.ErrInvalidIdentifier))
}
