package envutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFloatFallsBackOnGarbage(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_FLOAT", "abc")
	assert.Equal(t, 0.5, Float("ENVUTIL_TEST_FLOAT", 0.5))
	t.Setenv("ENVUTIL_TEST_FLOAT", " 0.75 ")
	assert.Equal(t, 0.75, Float("ENVUTIL_TEST_FLOAT", 0.5))
}

func TestBool(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_BOOL", "off")
	assert.False(t, Bool("ENVUTIL_TEST_BOOL", true))
	t.Setenv("ENVUTIL_TEST_BOOL", "maybe")
	assert.True(t, Bool("ENVUTIL_TEST_BOOL", true))
}

func TestDuration(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_DUR", "30m")
	assert.Equal(t, 30*time.Minute, Duration("ENVUTIL_TEST_DUR", time.Second))
	t.Setenv("ENVUTIL_TEST_DUR", "90")
	assert.Equal(t, 90*time.Second, Duration("ENVUTIL_TEST_DUR", time.Second))
	t.Setenv("ENVUTIL_TEST_DUR", "")
	assert.Equal(t, time.Second, Duration("ENVUTIL_TEST_DUR", time.Second))
}
