package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct{ id string }

func TestBuildCursorPageInfo(t *testing.T) {
	rows := []*row{{"1"}, {"2"}, {"3"}}

	t.Run("has more", func(t *testing.T) {
		page, info := BuildCursorPageInfo(rows, 2, func(r *row) string { return r.id })
		assert.Len(t, page, 2)
		assert.True(t, info.HasMore)
		assert.Equal(t, "2", info.NextPageToken)
	})

	t.Run("last page", func(t *testing.T) {
		page, info := BuildCursorPageInfo(rows, 3, func(r *row) string { return r.id })
		assert.Len(t, page, 3)
		assert.False(t, info.HasMore)
		assert.Empty(t, info.NextPageToken)
	})
}

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "42", CreatedAt: "2026-01-01T00:00:00Z"})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", cursor.ID)

	_, err = DecodeCursor("%%%")
	assert.ErrorIs(t, err, ErrInvalidPageToken)

	empty, err := DecodeCursor("")
	assert.NoError(t, err)
	assert.Nil(t, empty)
}

func TestLimitClamps(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Limit())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 1000}.Limit())
	assert.Equal(t, 5, Pagination{PageSize: 5}.Limit())
}
