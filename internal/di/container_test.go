// internal/di/container_test.go
package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainerRegisterAndGet(t *testing.T) {
	c := NewContainer()

	c.Register("store", "first")
	assert.Equal(t, "first", c.Get("store"))

	// Re-registering under the same name replaces the instance
	c.Register("store", "second")
	assert.Equal(t, "second", c.Get("store"))
}

func TestContainerGetMissingReturnsNil(t *testing.T) {
	c := NewContainer()

	assert.Nil(t, c.Get("missing"))
}
