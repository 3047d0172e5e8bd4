package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToBool(t *testing.T) {
	assert.True(t, ToBool(true))
	assert.True(t, ToBool("true"))
	assert.True(t, ToBool("True"))
	assert.True(t, ToBool("1"))
	assert.True(t, ToBool(1))
	assert.False(t, ToBool("false"))
	assert.False(t, ToBool(""))
	assert.False(t, ToBool(nil))
}

func TestToTime(t *testing.T) {
	ref := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, ref, ToTime(ref))
	assert.Equal(t, ref, ToTime(ref.Format(time.RFC3339)))
	assert.Equal(t, ref, ToTime(ref.Unix()))
	assert.True(t, ToTime("garbage").IsZero())
	assert.True(t, ToTime(nil).IsZero())
}
