package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSize(t *testing.T) {
	require.Equal(t, DefaultLimit, Pagination{}.Size())
	require.Equal(t, MaxLimit, Pagination{Limit: 1000}.Size())
	require.Equal(t, 7, Pagination{Limit: 7}.Size())
}

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2024, 6, 30, 12, 0, 0, 123, time.UTC)
	s, err := EncodeCursor(Cursor{CreatedAt: at, ID: 42})
	require.NoError(t, err)

	c, err := DecodeCursor(s)
	require.NoError(t, err)
	require.True(t, at.Equal(c.CreatedAt))
	require.EqualValues(t, 42, c.ID)

	_, err = DecodeCursor("%%%")
	require.Error(t, err)
	_, err = DecodeCursor("e30") // {}
	require.ErrorContains(t, err, "missing timestamp")
}

func TestPage(t *testing.T) {
	at := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	rows := []*Cursor{{CreatedAt: at, ID: 1}, {CreatedAt: at, ID: 2}, {CreatedAt: at, ID: 3}}
	self := func(c *Cursor) Cursor { return *c }

	page, info, err := Page(rows, 2, self)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.True(t, info.HasMore)
	next, err := DecodeCursor(info.NextCursor)
	require.NoError(t, err)
	require.EqualValues(t, 2, next.ID)

	page, info, err = Page(rows, 3, self)
	require.NoError(t, err)
	require.Len(t, page, 3)
	require.False(t, info.HasMore)
	require.Empty(t, info.NextCursor)
}
