// internal/storage/gscript_file.go
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	apperrors "github.com/johnmartinello/gscript/internal/errors"
	"github.com/johnmartinello/gscript/internal/models"
)

// GScriptStore reads and writes .gscript project files. Writes are atomic
// (temp file then rename) and serialized per path, so a crashed save never
// leaves a half-written project behind.
type GScriptStore struct {
	fileLocks sync.Map // path -> *sync.RWMutex
}

// NewGScriptStore creates a store
func NewGScriptStore() *GScriptStore {
	return &GScriptStore{}
}

func (s *GScriptStore) getFileLock(fullPath string) *sync.RWMutex {
	value, _ := s.fileLocks.LoadOrStore(fullPath, &sync.RWMutex{})
	return value.(*sync.RWMutex)
}

// Encode serializes a project to the .gscript wire form: indented JSON whose
// field names mirror the document model exactly
func Encode(project *models.Project) ([]byte, error) {
	if project == nil {
		return nil, apperrors.NewValidationError("cannot encode a nil project", nil)
	}
	data, err := json.MarshalIndent(project, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize project: %w", err)
	}
	return data, nil
}

// Decode parses .gscript bytes and validates structural invariants. A
// failure here means the file is rejected wholesale; no partial project is
// ever returned.
func Decode(data []byte) (*models.Project, error) {
	var project models.Project
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, apperrors.NewMalformedDocumentError("failed to parse project file", err)
	}
	if err := validate(&project); err != nil {
		return nil, err
	}
	// Normalize nil collections so the loaded project behaves like a
	// freshly constructed one.
	if project.Scenes == nil {
		project.Scenes = []models.Scene{}
	}
	if project.Edges == nil {
		project.Edges = []models.GraphEdge{}
	}
	if project.Variables == nil {
		project.Variables = []models.Variable{}
	}
	if project.Chapters == nil {
		project.Chapters = []models.ChapterGroup{}
	}
	if project.NodePositions == nil {
		project.NodePositions = map[string]models.GraphNodePosition{}
	}
	for i := range project.Scenes {
		if project.Scenes[i].Beats == nil {
			project.Scenes[i].Beats = []models.Beat{}
		}
	}
	return &project, nil
}

// validate enforces what must hold for any persisted document: ids present,
// beat types known, and no edge referencing a scene that is not in the file
func validate(project *models.Project) error {
	if project.ID == "" {
		return apperrors.NewMalformedDocumentError("project has no id", nil)
	}
	sceneIDs := make(map[string]bool, len(project.Scenes))
	for _, scene := range project.Scenes {
		if scene.ID == "" {
			return apperrors.NewMalformedDocumentError("scene has no id", nil)
		}
		sceneIDs[scene.ID] = true
		for _, beat := range scene.Beats {
			if !beat.Type.Valid() {
				return apperrors.NewMalformedDocumentError(
					fmt.Sprintf("scene %s has a beat of unknown type %q", scene.ID, beat.Type), nil)
			}
		}
	}
	for _, edge := range project.Edges {
		if !sceneIDs[edge.SourceSceneID] || !sceneIDs[edge.TargetSceneID] {
			return apperrors.NewMalformedDocumentError(
				fmt.Sprintf("edge %s references a scene not in the file", edge.ID), nil)
		}
	}
	return nil
}

// Save writes a project to path atomically
func (s *GScriptStore) Save(path string, project *models.Project) error {
	data, err := Encode(project)
	if err != nil {
		return err
	}

	lock := s.getFileLock(path)
	lock.Lock()
	defer lock.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to finalize save: %w", err)
	}

	return nil
}

// Load reads and decodes a project from path
func (s *GScriptStore) Load(path string) (*models.Project, error) {
	lock := s.getFileLock(path)
	lock.RLock()
	defer lock.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}
	return Decode(data)
}
