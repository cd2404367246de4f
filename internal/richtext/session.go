// internal/richtext/session.go
package richtext

import (
	"github.com/johnmartinello/gscript/internal/services"
)

// Host is the rich-text editor consumed by a session. SetContent replaces
// the whole document programmatically; Content returns what the editor
// currently holds. The host calls the session back through
// HandleContentChanged whenever its content changes, including changes the
// session itself caused via SetContent.
type Host interface {
	SetContent(doc Doc)
	Content() Doc
}

// Session wires one editor host to the store. It owns the echo-suppression
// guard: a SetContent issued by the session flips suppress for exactly the
// duration of the call, so the host's synchronous change notification for
// that render is dropped instead of being written back to the store.
type Session struct {
	store    *services.ProjectService
	host     Host
	sceneID  string
	suppress bool
}

// NewSession creates a session bound to a store and host. No scene is
// active until SetScene.
func NewSession(store *services.ProjectService, host Host) *Session {
	return &Session{
		store: store,
		host:  host,
	}
}

// SceneID returns the scene currently shown, empty when none
func (s *Session) SceneID() string {
	return s.sceneID
}

// SetScene switches the editor to a scene. A scene switch always does a
// full programmatic replacement, never a diff: the editor instance is
// reused across scenes and must discard the previous scene's content
// completely.
func (s *Session) SetScene(sceneID string) error {
	scene, err := s.store.GetScene(sceneID)
	if err != nil {
		return err
	}
	s.sceneID = sceneID
	s.render(BeatsToDoc(scene.Beats))
	return nil
}

// HandleContentChanged is the host's content-change callback. Reverse-maps
// the document and pushes it into the store unless the change is an echo of
// the session's own render or value-identical to the store's current beats.
func (s *Session) HandleContentChanged() error {
	if s.suppress || s.sceneID == "" {
		return nil
	}
	next := DocToBeats(s.host.Content())
	scene, err := s.store.GetScene(s.sceneID)
	if err != nil {
		return err
	}
	if BeatsEqual(next, scene.Beats) {
		return nil
	}
	return s.store.SetBeats(s.sceneID, next)
}

// Refresh re-renders from the store when a change originated elsewhere
// (graph connect, API edit). Content-equal states are left alone so the
// author's cursor is not disturbed mid-keystroke.
func (s *Session) Refresh() error {
	if s.sceneID == "" {
		return nil
	}
	scene, err := s.store.GetScene(s.sceneID)
	if err != nil {
		// Scene deleted under the session; drop it.
		s.sceneID = ""
		return nil
	}
	current := DocToBeats(s.host.Content())
	if BeatsEqual(current, scene.Beats) {
		return nil
	}
	s.render(BeatsToDoc(scene.Beats))
	return nil
}

// render performs a programmatic content replacement under the suppression
// guard. The flag is cleared synchronously before returning, so only
// notifications emitted during the SetContent call itself are swallowed.
func (s *Session) render(doc Doc) {
	s.suppress = true
	defer func() { s.suppress = false }()
	s.host.SetContent(doc)
}
