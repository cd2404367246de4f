// internal/services/persistence_service.go
package services

import (
	"github.com/johnmartinello/gscript/internal/storage"
	"github.com/johnmartinello/gscript/internal/utils"
)

// DialogHost is the host-environment capability for picking file paths.
// Both methods return ok=false when the user dismisses the dialog; that is
// a result, not an error.
type DialogHost interface {
	PromptOpen() (path string, ok bool)
	PromptSave(suggested string) (path string, ok bool)
}

// PersistenceService connects the store to .gscript files on disk: open
// adopts a document wholesale, save writes the current snapshot and adopts
// the path written to. Dialog prompting is delegated to the host.
type PersistenceService struct {
	Store  *ProjectService
	Files  *storage.GScriptStore
	Dialog DialogHost
}

// NewPersistenceService creates the service. dialog may be nil when the
// caller always supplies explicit paths (the HTTP API does).
func NewPersistenceService(store *ProjectService, files *storage.GScriptStore, dialog DialogHost) *PersistenceService {
	return &PersistenceService{
		Store:  store,
		Files:  files,
		Dialog: dialog,
	}
}

// Open loads a project. With an empty path the host is prompted; a
// dismissed dialog returns ("", nil) and the store is untouched. A document
// that fails to parse is rejected without replacing the loaded project.
func (s *PersistenceService) Open(path string) (string, error) {
	if path == "" {
		if s.Dialog == nil {
			return "", nil
		}
		chosen, ok := s.Dialog.PromptOpen()
		if !ok {
			return "", nil
		}
		path = chosen
	}

	project, err := s.Files.Load(path)
	if err != nil {
		utils.GetLogger().Error("failed to open project", map[string]interface{}{
			"path": path, "error": err.Error(),
		})
		return "", err
	}

	s.Store.SetProject(project)
	s.Store.SetFilePath(path)
	utils.GetLogger().Info("project opened", map[string]interface{}{
		"path": path, "scenes": len(project.Scenes),
	})
	return path, nil
}

// Save writes the current project. An empty path falls back to the store's
// current file path, then to a host prompt; a dismissed prompt returns
// ("", nil) with nothing written. On success the store adopts the path and
// the dirty flag clears.
func (s *PersistenceService) Save(path string) (string, error) {
	if path == "" {
		path = s.Store.FilePath()
	}
	if path == "" {
		if s.Dialog == nil {
			return "", nil
		}
		chosen, ok := s.Dialog.PromptSave(s.suggestedName())
		if !ok {
			return "", nil
		}
		path = chosen
	}

	snap := s.Store.Snapshot()
	if err := s.Files.Save(path, snap.Project); err != nil {
		utils.GetLogger().Error("failed to save project", map[string]interface{}{
			"path": path, "error": err.Error(),
		})
		return "", err
	}

	s.Store.MarkSaved(path)
	utils.GetLogger().Info("project saved", map[string]interface{}{"path": path})
	return path, nil
}

// SaveAs always prompts (or uses the explicit path) instead of reusing the
// current one
func (s *PersistenceService) SaveAs(path string) (string, error) {
	if path == "" {
		if s.Dialog == nil {
			return "", nil
		}
		chosen, ok := s.Dialog.PromptSave(s.suggestedName())
		if !ok {
			return "", nil
		}
		path = chosen
	}
	return s.Save(path)
}

func (s *PersistenceService) suggestedName() string {
	snap := s.Store.Snapshot()
	if snap.Project == nil {
		return "untitled.gscript"
	}
	return snap.Project.Name + ".gscript"
}
