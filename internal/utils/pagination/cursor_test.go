package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svcErr "github.com/oggyb/matcha/internal/errors"
)

func TestEncodeDecode(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	token, err := Encode(At(42, at))
	require.NoError(t, err)

	c, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), c.ID)
	assert.True(t, c.Time().Equal(at))
}

func TestDecodeEmptyAndInvalid(t *testing.T) {
	c, err := Decode("")
	require.NoError(t, err)
	assert.True(t, c.IsZero())

	_, err = Decode("%%%")
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, 5, ClampLimit(5))
	assert.Equal(t, MaxLimit, ClampLimit(1000))
}

func TestPage(t *testing.T) {
	rows := []int{5, 4, 3}
	key := func(v int) Cursor { return Cursor{ID: uint64(v), CreatedUnix: 1} }

	out, next := Page(rows, 2, key)
	assert.Equal(t, []int{5, 4}, out)
	require.NotNil(t, next)
	c, err := Decode(*next)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), c.ID)

	out, next = Page(rows, 3, key)
	assert.Len(t, out, 3)
	assert.Nil(t, next)
}
