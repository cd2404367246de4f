// internal/di/container.go
package di

import (
	"sync"
)

// Container is a small name-to-instance dependency container. The app wires
// services into it in dependency order; the router pulls them out by name.
type Container struct {
	services map[string]interface{}
	mutex    sync.RWMutex
}

// NewContainer creates an empty container
func NewContainer() *Container {
	return &Container{
		services: make(map[string]interface{}),
	}
}

// Register stores a service instance under a name
func (c *Container) Register(name string, service interface{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.services[name] = service
}

// Get returns a registered service or nil
func (c *Container) Get(name string) interface{} {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	service, exists := c.services[name]
	if !exists {
		return nil
	}

	return service
}
