package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	err := New(KindObjectNotFound, "object not found").
		WithContext("service", "fs").
		WithContext("path", "dir/a.txt")

	msg := err.Error()
	assert.Contains(t, msg, "object not found")
	assert.Contains(t, msg, "service=fs")
	assert.Contains(t, msg, "path=dir/a.txt")
}

func TestKindOf(t *testing.T) {
	err := New(KindConfigInvalid, "bad root")
	assert.Equal(t, KindConfigInvalid, KindOf(err))

	wrapped := fmt.Errorf("outer: %w", err)
	assert.Equal(t, KindConfigInvalid, KindOf(wrapped))

	assert.Equal(t, KindUnexpected, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnexpected, KindOf(nil))
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("disk on fire")
	err := New(KindUnexpected, "read failed").WithSource(inner)

	require.ErrorIs(t, err, inner)
}

func TestIsByKind(t *testing.T) {
	a := New(KindObjectNotFound, "a is gone")
	b := New(KindObjectNotFound, "b is gone")
	c := New(KindUnsupported, "no can do")

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestImmutability(t *testing.T) {
	base := New(KindUnexpected, "base")
	derived := base.WithContext("k", "v").Temporary()

	assert.NotContains(t, base.Error(), "k=v")
	assert.False(t, IsTemporary(base))
	assert.True(t, IsTemporary(derived))
}

func TestTemporary(t *testing.T) {
	assert.True(t, IsTemporary(New(KindUnexpected, "flaky").Temporary()))
	assert.False(t, IsTemporary(New(KindUnexpected, "flaky").Temporary().Permanent()))

	// These kinds never become retryable.
	assert.False(t, IsTemporary(New(KindUnsupported, "nope").Temporary()))
	assert.False(t, IsTemporary(New(KindConfigInvalid, "nope").Temporary()))
}

func TestHelpers(t *testing.T) {
	assert.True(t, IsObjectNotFound(New(KindObjectNotFound, "gone")))
	assert.False(t, IsObjectNotFound(New(KindUnexpected, "gone")))
	assert.True(t, IsUnsupported(New(KindUnsupported, "no")))
	assert.False(t, IsUnsupported(nil))
}
