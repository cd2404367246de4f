// internal/graphview/adapter_test.go
package graphview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnmartinello/gscript/internal/models"
	"github.com/johnmartinello/gscript/internal/services"
)

func newAdapterFixture(t *testing.T) (*services.ProjectService, *Adapter) {
	t.Helper()
	store := services.NewProjectService()
	store.NewProjectDoc()
	adapter := NewAdapter(store)
	t.Cleanup(adapter.Close)
	return store, adapter
}

func TestAdapterTracksTextSideEdits(t *testing.T) {
	store, adapter := newAdapterFixture(t)
	assert.Empty(t, adapter.Nodes())

	source, err := store.AddScene("Source")
	require.NoError(t, err)
	target, err := store.AddScene("Target")
	require.NoError(t, err)

	// An edit made entirely in the text view
	option := models.NewChoiceOption()
	option.Label = "descend"
	option.TargetSceneID = target.ID
	require.NoError(t, store.SetBeats(source.ID, []models.Beat{
		models.NewChoicePointBeat(option),
	}))

	nodes := adapter.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, source.ID, nodes[0].ID)
	assert.Equal(t, models.GraphNodePosition{X: 100, Y: 100}, nodes[0].Position)
	assert.True(t, nodes[1].Selected, "AddScene selects the new scene")

	edges := adapter.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, source.ID, edges[0].Source)
	assert.Equal(t, target.ID, edges[0].Target)
	assert.Equal(t, "descend", edges[0].Label)
}

func TestConnectGesture(t *testing.T) {
	store, adapter := newAdapterFixture(t)
	intro, _ := store.AddScene("Intro")
	middle, _ := store.AddScene("Middle")

	edge, err := adapter.Connect(intro.ID, middle.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, edge.ChoiceOptionID)

	// The gesture shows up in the adapter's own view via the subscription
	require.Len(t, adapter.Edges(), 1)

	// And in the source scene's beat list
	scene, err := store.GetScene(intro.ID)
	require.NoError(t, err)
	require.Len(t, scene.Beats, 1)
	assert.Equal(t, models.BeatChoicePoint, scene.Beats[0].Type)
}

func TestMoveNode(t *testing.T) {
	store, adapter := newAdapterFixture(t)
	scene, _ := store.AddScene("Scene")

	require.NoError(t, adapter.MoveNode(scene.ID, models.GraphNodePosition{X: 420, Y: 37}))

	nodes := adapter.Nodes()
	require.Len(t, nodes, 1)
	assert.Equal(t, models.GraphNodePosition{X: 420, Y: 37}, nodes[0].Position)

	err := adapter.MoveNode("missing", models.GraphNodePosition{})
	require.Error(t, err)
}

func TestOpenSceneSelectsWithoutSwitchingView(t *testing.T) {
	store, adapter := newAdapterFixture(t)
	a, _ := store.AddScene("A")
	b, _ := store.AddScene("B")
	store.SetViewMode(services.ViewGraph)

	adapter.OpenScene(a.ID)

	snap := store.Snapshot()
	assert.Equal(t, a.ID, snap.SelectedSceneID)
	assert.Equal(t, services.ViewGraph, snap.ViewMode)

	nodes := adapter.Nodes()
	require.Len(t, nodes, 2)
	assert.True(t, nodes[0].Selected)
	assert.False(t, nodes[1].Selected)
	_ = b
}

func TestCloseStopsTracking(t *testing.T) {
	store, adapter := newAdapterFixture(t)
	store.AddScene("Before")
	require.Len(t, adapter.Nodes(), 1)

	adapter.Close()
	store.AddScene("After")
	assert.Len(t, adapter.Nodes(), 1)
}
