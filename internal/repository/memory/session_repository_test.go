package memory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestActiveSessionRepository(t *testing.T) {
	r := NewActiveSessionRepository()
	a, b := uuid.New(), uuid.New()

	r.Save("alice", a)
	r.Save("bob", b)
	assert.Equal(t, 2, r.Count())

	got, ok := r.Get("alice")
	assert.True(t, ok)
	assert.Equal(t, a, got)

	user, ok := r.DeleteSession(b)
	assert.True(t, ok)
	assert.Equal(t, "bob", user)
	_, ok = r.Get("bob")
	assert.False(t, ok)

	_, ok = r.DeleteSession(uuid.New())
	assert.False(t, ok)

	r.Delete("alice")
	assert.Equal(t, 0, r.Count())
}
