package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeToken(t *testing.T) {
	entryDate := time.Date(2023, 5, 15, 0, 0, 0, 0, time.UTC)
	createdAt := time.Date(2023, 5, 15, 14, 30, 45, 123456789, time.UTC)

	token := EncodeToken(entryDate, createdAt, "je-42")
	assert.NotEmpty(t, token, "Token should not be empty")

	cursor, err := DecodeToken(token)
	require.NoError(t, err)
	assert.Equal(t, entryDate, cursor.EntryDate)
	assert.Equal(t, createdAt, cursor.CreatedAt)
	assert.Equal(t, "je-42", cursor.ID)

	// Zero time values survive a round trip
	zero := time.Time{}
	cursor, err = DecodeToken(EncodeToken(zero, zero, "x"))
	require.NoError(t, err)
	assert.Equal(t, zero, cursor.EntryDate)
}

func TestDecodeTokenError(t *testing.T) {
	_, err := DecodeToken("this is not base64!")
	assert.ErrorContains(t, err, "base64 decode")

	_, err = DecodeToken(base64.StdEncoding.EncodeToString([]byte("2023-05-15T00:00:00Z")))
	assert.ErrorContains(t, err, "split")

	_, err = DecodeToken(base64.StdEncoding.EncodeToString([]byte("notadate|2023-05-15T14:30:45Z|id")))
	assert.ErrorContains(t, err, "entry date parse")

	_, err = DecodeToken(base64.StdEncoding.EncodeToString([]byte("2023-05-15T00:00:00Z|nope|id")))
	assert.ErrorContains(t, err, "created_at parse")

	_, err = DecodeToken(base64.StdEncoding.EncodeToString([]byte("2023-05-15T00:00:00Z|2023-05-15T00:00:00Z|")))
	assert.ErrorContains(t, err, "missing id")
}

func TestCursor_After(t *testing.T) {
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	created := day.Add(time.Hour)
	c := Cursor{EntryDate: day, CreatedAt: created, ID: "m"}

	assert.True(t, c.After(day.AddDate(0, 0, -1), created, "z"), "older entry date is on a later page")
	assert.False(t, c.After(day.AddDate(0, 0, 1), created, "a"))
	assert.True(t, c.After(day, created.Add(-time.Minute), "z"))
	assert.True(t, c.After(day, created, "a"))
	assert.False(t, c.After(day, created, "m"), "the cursor row itself is not repeated")
}
