package exam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetOrCreate(t *testing.T) {
	r := NewRegistry()

	sess := r.GetOrCreate("42")
	require.NotNil(t, sess)
	assert.Equal(t, "42", sess.RoomKey())
	assert.Equal(t, 1, r.Len())

	again := r.GetOrCreate("42")
	assert.Same(t, sess, again, "same key must return the same session")
	assert.Equal(t, 1, r.Len())

	other := r.GetOrCreate("43")
	assert.NotSame(t, sess, other)
	assert.Equal(t, 2, r.Len())
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Get("missing")
	assert.False(t, ok)

	created := r.GetOrCreate("roomA")
	got, ok := r.Get("roomA")
	require.True(t, ok)
	assert.Same(t, created, got)
}

func TestRoomSessionDefaults(t *testing.T) {
	r := NewRegistry()
	sess := r.GetOrCreate("fresh")

	assert.Equal(t, 0, sess.Remaining())
	assert.False(t, sess.Running())
	assert.Empty(t, sess.Status())
}
