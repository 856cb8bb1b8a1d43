package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEpochRoundTrip(t *testing.T) {
	millis, err := FromEpoch("2025-08-04T09:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2025-08-04T09:00:00Z", FormatEpoch(millis))
	assert.True(t, IsMinuteExact(millis))
	assert.False(t, IsMinuteExact(millis+1))

	_, err = FromEpoch("tomorrow")
	assert.Error(t, err)
}

func TestSanitize(t *testing.T) {
	desc := "  notes  "
	req := struct {
		Title string
		Desc  *string
		Tags  []string
		Count int
	}{Title: " hi ", Desc: &desc, Tags: []string{" a", "b "}, Count: 3}

	Sanitize(&req)
	assert.Equal(t, "hi", req.Title)
	assert.Equal(t, "notes", *req.Desc)
	assert.Equal(t, []string{"a", "b"}, req.Tags)

	assert.Panics(t, func() { Sanitize(req) })
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 0, WordCount("   "))
	assert.Equal(t, 3, WordCount("one two\tthree\n"))
}
