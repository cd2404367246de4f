// internal/services/autosave_service.go
package services

import (
	"sync"
	"time"

	"github.com/johnmartinello/gscript/internal/utils"
)

// AutosaveService saves the project after a quiet period of edits. Every
// dirty-marking change re-arms the timer, so the save fires only once the
// author has been idle for the full delay. Projects that have never been
// saved (no file path) are left alone.
type AutosaveService struct {
	persistence *PersistenceService
	delay       time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool

	unsubscribe func()
}

// NewAutosaveService creates the scheduler and subscribes it to the store
func NewAutosaveService(store *ProjectService, persistence *PersistenceService, delay time.Duration) *AutosaveService {
	s := &AutosaveService{
		persistence: persistence,
		delay:       delay,
	}
	s.unsubscribe = store.Subscribe(func(snap Snapshot) {
		if snap.Dirty && snap.FilePath != "" {
			s.arm()
		}
	})
	return s
}

// arm starts or restarts the debounce timer
func (s *AutosaveService) arm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.fire)
}

// fire performs the save. A failed autosave is logged and not retried; the
// next edit re-arms the timer anyway.
func (s *AutosaveService) fire() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	// A manual save may have landed while the timer was pending
	if !s.persistence.Store.Dirty() {
		return
	}
	if _, err := s.persistence.Save(""); err != nil {
		utils.GetLogger().Warn("autosave failed", map[string]interface{}{"error": err.Error()})
	}
}

// Stop disarms the scheduler on teardown. A save already in flight is not
// cancelled.
func (s *AutosaveService) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}
