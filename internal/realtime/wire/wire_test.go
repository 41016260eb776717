package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRoundTripsRecord(t *testing.T) {
	type comment struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}
	e, err := NewEvent(TableComments, Insert, comment{ID: "c1", PostID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, TableComments, e.Table)
	assert.False(t, e.At.IsZero())

	var got comment
	require.NoError(t, e.Decode(&got))
	assert.Equal(t, comment{ID: "c1", PostID: "p1"}, got)
}

func TestNewEventRejectsUnencodable(t *testing.T) {
	_, err := NewEvent(TablePosts, Update, make(chan int))
	assert.Error(t, err)
}
