// internal/api/router_test.go
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnmartinello/gscript/internal/di"
	"github.com/johnmartinello/gscript/internal/graphview"
	"github.com/johnmartinello/gscript/internal/models"
	"github.com/johnmartinello/gscript/internal/services"
	"github.com/johnmartinello/gscript/internal/storage"
)

type apiFixture struct {
	store  *services.ProjectService
	router *gin.Engine
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := services.NewProjectService()
	store.NewProjectDoc()
	persistence := services.NewPersistenceService(store, storage.NewGScriptStore(), nil)
	export := services.NewExportService(t.TempDir())
	graph := graphview.NewAdapter(store)
	t.Cleanup(graph.Close)
	feed := NewChangeFeed(store)
	t.Cleanup(feed.Close)

	container := di.NewContainer()
	container.Register("project", store)
	container.Register("persistence", persistence)
	container.Register("export", export)
	container.Register("graph", graph)
	container.Register("feed", feed)

	router, err := SetupRouter(container, false)
	require.NoError(t, err)
	return &apiFixture{store: store, router: router}
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetProject(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, http.MethodGet, "/api/project", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeEnvelope(t, w)
	assert.True(t, resp.Success)

	data, _ := json.Marshal(resp.Data)
	var snap services.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, "Untitled", snap.Project.Name)
	assert.False(t, snap.Dirty)
}

func TestSceneLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/scenes", gin.H{"title": "Intro"})
	require.Equal(t, http.StatusCreated, w.Code)
	var scene models.Scene
	data, _ := json.Marshal(decodeEnvelope(t, w).Data)
	require.NoError(t, json.Unmarshal(data, &scene))
	assert.Equal(t, "Intro", scene.Title)

	w = f.do(t, http.MethodPut, "/api/scenes/"+scene.ID, gin.H{"title": "Prologue"})
	require.Equal(t, http.StatusOK, w.Code)
	got, err := f.store.GetScene(scene.ID)
	require.NoError(t, err)
	assert.Equal(t, "Prologue", got.Title)

	w = f.do(t, http.MethodDelete, "/api/scenes/"+scene.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, f.store.Snapshot().Project.Scenes)

	w = f.do(t, http.MethodGet, "/api/scenes/"+scene.ID, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeEnvelope(t, w)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestPutSceneDocSuppressesEcho(t *testing.T) {
	f := newAPIFixture(t)
	scene, err := f.store.AddScene("Scene")
	require.NoError(t, err)
	require.NoError(t, f.store.SetBeats(scene.ID, []models.Beat{
		models.NewTextBeat(models.BeatAction, "stable"),
	}))
	before := f.store.Revision()

	// Fetch the document and put it straight back, as an echoing editor would
	w := f.do(t, http.MethodGet, "/api/scenes/"+scene.ID+"/doc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var doc json.RawMessage
	data, _ := json.Marshal(decodeEnvelope(t, w).Data)
	doc = data

	req := httptest.NewRequest(http.MethodPut, "/api/scenes/"+scene.ID+"/doc", bytes.NewReader(doc))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeEnvelope(t, rec)
	payload, _ := json.Marshal(body.Data)
	assert.JSONEq(t, `{"changed": false}`, string(payload))
	assert.Equal(t, before, f.store.Revision(), "an echoed document must not burn a revision")
}

func TestConnectEndpointSynthesizesBeatAndEdge(t *testing.T) {
	f := newAPIFixture(t)
	intro, _ := f.store.AddScene("Intro")
	middle, _ := f.store.AddScene("Middle")

	w := f.do(t, http.MethodPost, "/api/graph/connections", gin.H{
		"source_scene_id": intro.ID,
		"target_scene_id": middle.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	snap := f.store.Snapshot()
	require.Len(t, snap.Project.Edges, 1)
	scene, err := f.store.GetScene(intro.ID)
	require.NoError(t, err)
	require.Len(t, scene.Beats, 1)
	assert.Equal(t, models.BeatChoicePoint, scene.Beats[0].Type)

	// Stale source: the scene vanished between render and gesture
	w = f.do(t, http.MethodPost, "/api/graph/connections", gin.H{
		"source_scene_id": "gone",
		"target_scene_id": middle.ID,
	})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestViewModeValidation(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPut, "/api/view", gin.H{"mode": "split"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, services.ViewSplit, f.store.Snapshot().ViewMode)

	w = f.do(t, http.MethodPut, "/api/view", gin.H{"mode": "kaleidoscope"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaveWithoutPathIsCancelledNotFailed(t *testing.T) {
	f := newAPIFixture(t)
	f.store.AddScene("Unsaved")

	// No path in the request, none in the store, no dialog host wired
	w := f.do(t, http.MethodPost, "/api/project/save", gin.H{})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, "save cancelled", resp.Message)
}

func TestBeatRoutes(t *testing.T) {
	f := newAPIFixture(t)
	scene, _ := f.store.AddScene("Scene")

	w := f.do(t, http.MethodPost, fmt.Sprintf("/api/scenes/%s/beats", scene.ID), gin.H{
		"beat": gin.H{"type": "action", "text": "first"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/scenes/%s/beats", scene.ID), gin.H{
		"beat": gin.H{"type": "explosion"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	got, _ := f.store.GetScene(scene.ID)
	require.Len(t, got.Beats, 1)
	beatID := got.Beats[0].ID

	w = f.do(t, http.MethodPut, fmt.Sprintf("/api/scenes/%s/beats/%s", scene.ID, beatID), gin.H{
		"text": "rewritten",
	})
	require.Equal(t, http.StatusOK, w.Code)
	got, _ = f.store.GetScene(scene.ID)
	assert.Equal(t, "rewritten", got.Beats[0].Text)

	w = f.do(t, http.MethodDelete, fmt.Sprintf("/api/scenes/%s/beats/%s", scene.ID, beatID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	got, _ = f.store.GetScene(scene.ID)
	assert.Empty(t, got.Beats)
}

func TestSetBeatsRejectsUnknownTypes(t *testing.T) {
	f := newAPIFixture(t)
	scene, _ := f.store.AddScene("Scene")
	before := f.store.Revision()

	w := f.do(t, http.MethodPut, fmt.Sprintf("/api/scenes/%s/beats", scene.ID), gin.H{
		"beats": []gin.H{
			{"type": "action", "text": "fine"},
			{"type": "montage", "text": "not a beat type"},
		},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeEnvelope(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Equal(t, before, f.store.Revision())
}

func TestChoiceOptionRoutesKeepGraphInSync(t *testing.T) {
	f := newAPIFixture(t)
	source, _ := f.store.AddScene("Source")
	target, _ := f.store.AddScene("Target")
	beat := models.NewChoicePointBeat()
	require.NoError(t, f.store.SetBeats(source.ID, []models.Beat{beat}))

	w := f.do(t, http.MethodPost,
		fmt.Sprintf("/api/scenes/%s/beats/%s/options", source.ID, beat.ID), nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var option models.ChoiceOption
	data, _ := json.Marshal(decodeEnvelope(t, w).Data)
	require.NoError(t, json.Unmarshal(data, &option))

	w = f.do(t, http.MethodPut,
		fmt.Sprintf("/api/scenes/%s/beats/%s/options/%s", source.ID, beat.ID, option.ID),
		gin.H{"target_scene_id": target.ID, "label": "descend"})
	require.Equal(t, http.StatusOK, w.Code)

	edges := f.store.Snapshot().Project.Edges
	require.Len(t, edges, 1)
	assert.Equal(t, option.ID, edges[0].ChoiceOptionID)

	w = f.do(t, http.MethodDelete,
		fmt.Sprintf("/api/scenes/%s/beats/%s/options/%s", source.ID, beat.ID, option.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, f.store.Snapshot().Project.Edges)
}

func TestGetGraph(t *testing.T) {
	f := newAPIFixture(t)
	intro, _ := f.store.AddScene("Intro")
	middle, _ := f.store.AddScene("Middle")
	_, err := f.store.AddEdgeFromConnection(intro.ID, middle.ID)
	require.NoError(t, err)

	w := f.do(t, http.MethodGet, "/api/graph", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Nodes []graphview.Node `json:"nodes"`
		Edges []graphview.Edge `json:"edges"`
	}
	data, _ := json.Marshal(decodeEnvelope(t, w).Data)
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Len(t, payload.Nodes, 2)
	assert.Len(t, payload.Edges, 1)
}
