// internal/graphview/adapter.go
package graphview

import (
	"sync"

	"github.com/johnmartinello/gscript/internal/models"
	"github.com/johnmartinello/gscript/internal/services"
)

// Node is one visual node record handed to the graph renderer
type Node struct {
	ID       string                   `json:"id"`
	Title    string                   `json:"title"`
	Position models.GraphNodePosition `json:"position"`
	Selected bool                     `json:"selected"`
}

// Edge is one visual edge record handed to the graph renderer
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

// Adapter projects store state into renderer records and translates
// renderer gestures back into store operations. It subscribes to the store,
// so edits made in the text view show up in the graph without the graph
// having authored them.
type Adapter struct {
	store *services.ProjectService

	mu    sync.RWMutex
	nodes []Node
	edges []Edge

	unsubscribe func()
}

// NewAdapter creates an adapter, derives the initial view and subscribes to
// store changes
func NewAdapter(store *services.ProjectService) *Adapter {
	a := &Adapter{store: store}
	a.derive(store.Snapshot())
	a.unsubscribe = store.Subscribe(func(snap services.Snapshot) {
		a.derive(snap)
	})
	return a
}

// Close detaches the adapter from the store
func (a *Adapter) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
}

// Nodes returns the current visual nodes
func (a *Adapter) Nodes() []Node {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]Node(nil), a.nodes...)
}

// Edges returns the current visual edges
func (a *Adapter) Edges() []Edge {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]Edge(nil), a.edges...)
}

// derive rebuilds the node and edge records from a store snapshot
func (a *Adapter) derive(snap services.Snapshot) {
	var nodes []Node
	var edges []Edge
	if snap.Project != nil {
		nodes = make([]Node, 0, len(snap.Project.Scenes))
		for _, scene := range snap.Project.Scenes {
			pos := snap.Project.NodePositions[scene.ID] // zero value when absent
			nodes = append(nodes, Node{
				ID:       scene.ID,
				Title:    scene.Title,
				Position: pos,
				Selected: snap.SelectedSceneID == scene.ID,
			})
		}
		edges = make([]Edge, 0, len(snap.Project.Edges))
		for _, e := range snap.Project.Edges {
			edges = append(edges, Edge{
				ID:     e.ID,
				Source: e.SourceSceneID,
				Target: e.TargetSceneID,
				Label:  e.Label,
			})
		}
	}

	a.mu.Lock()
	a.nodes = nodes
	a.edges = edges
	a.mu.Unlock()
}

// MoveNode writes a drag's end position back into the layout mapping
func (a *Adapter) MoveNode(sceneID string, position models.GraphNodePosition) error {
	return a.store.SetNodePosition(sceneID, position)
}

// Connect handles a manual connect gesture between two nodes. The store
// synthesizes the backing choice-point beat and the mirrored edge.
func (a *Adapter) Connect(sourceSceneID, targetSceneID string) (models.GraphEdge, error) {
	return a.store.AddEdgeFromConnection(sourceSceneID, targetSceneID)
}

// OpenScene handles a node double-click: select the scene, leave the view
// mode alone. Selection drives which scene the editor panel shows.
func (a *Adapter) OpenScene(sceneID string) {
	a.store.SelectScene(sceneID)
}
