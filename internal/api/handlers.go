// internal/api/handlers.go
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/johnmartinello/gscript/internal/graphview"
	"github.com/johnmartinello/gscript/internal/models"
	"github.com/johnmartinello/gscript/internal/richtext"
	"github.com/johnmartinello/gscript/internal/services"
)

// Handler serves the editing API consumed by the editor and graph views
type Handler struct {
	Store       *services.ProjectService
	Persistence *services.PersistenceService
	Export      *services.ExportService
	Graph       *graphview.Adapter
	Feed        *ChangeFeed
	Response    *ResponseHelper
}

// NewHandler creates the API handler
func NewHandler(
	store *services.ProjectService,
	persistence *services.PersistenceService,
	export *services.ExportService,
	graph *graphview.Adapter,
	feed *ChangeFeed,
) *Handler {
	return &Handler{
		Store:       store,
		Persistence: persistence,
		Export:      export,
		Graph:       graph,
		Feed:        feed,
		Response:    NewResponseHelper(),
	}
}

// ------------------------------------------------
// Project
// ------------------------------------------------

// GetProject returns the full store snapshot
func (h *Handler) GetProject(c *gin.Context) {
	h.Response.Success(c, h.Store.Snapshot())
}

// NewProject replaces the store with a fresh empty project
func (h *Handler) NewProject(c *gin.Context) {
	h.Store.NewProjectDoc()
	h.Response.Success(c, h.Store.Snapshot())
}

// RenameProject sets the project display name
func (h *Handler) RenameProject(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "name is required")
		return
	}
	if err := h.Store.RenameProject(req.Name); err != nil {
		h.Response.Error(c, err)
		return
	}
	h.Response.Success(c, h.Store.Snapshot())
}

// OpenProject loads a .gscript file into the store. Without a path the host
// dialog is prompted; cancellation is a no-result, not an error.
func (h *Handler) OpenProject(c *gin.Context) {
	var req struct {
		Path string `json:"path"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		h.Response.BadRequest(c, "invalid request body")
		return
	}
	path, err := h.Persistence.Open(req.Path)
	if err != nil {
		h.Response.Error(c, err)
		return
	}
	if path == "" {
		h.Response.NoResult(c, "open cancelled")
		return
	}
	h.Response.Success(c, h.Store.Snapshot())
}

// SaveProject writes the project to disk, reusing the current path when the
// request carries none
func (h *Handler) SaveProject(c *gin.Context) {
	var req struct {
		Path   string `json:"path"`
		SaveAs bool   `json:"save_as"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		h.Response.BadRequest(c, "invalid request body")
		return
	}

	var path string
	var err error
	if req.SaveAs {
		path, err = h.Persistence.SaveAs(req.Path)
	} else {
		path, err = h.Persistence.Save(req.Path)
	}
	if err != nil {
		h.Response.Error(c, err)
		return
	}
	if path == "" {
		h.Response.NoResult(c, "save cancelled")
		return
	}
	h.Response.Success(c, gin.H{"path": path})
}

// ------------------------------------------------
// Selection and view
// ------------------------------------------------

// SetSelection sets the scene shown in the editor panel and, optionally,
// the beat under the editor cursor
func (h *Handler) SetSelection(c *gin.Context) {
	var req struct {
		SceneID string `json:"scene_id"`
		BeatID  string `json:"beat_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body")
		return
	}
	h.Store.SelectScene(req.SceneID)
	if err := h.Store.SetActiveBeat(req.BeatID); err != nil {
		h.Response.Error(c, err)
		return
	}
	h.Response.Success(c, gin.H{
		"selected_scene_id": req.SceneID,
		"active_beat_id":    req.BeatID,
	})
}

// SetViewMode switches the panel layout
func (h *Handler) SetViewMode(c *gin.Context) {
	var req struct {
		Mode services.ViewMode `json:"mode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "mode is required")
		return
	}
	switch req.Mode {
	case services.ViewEditor, services.ViewGraph, services.ViewSplit, services.ViewHelp:
	default:
		h.Response.BadRequest(c, "unknown view mode")
		return
	}
	h.Store.SetViewMode(req.Mode)
	h.Response.Success(c, gin.H{"view_mode": req.Mode})
}

// ------------------------------------------------
// Scenes
// ------------------------------------------------

// AddScene appends a scene
func (h *Handler) AddScene(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		h.Response.BadRequest(c, "invalid request body")
		return
	}
	scene, err := h.Store.AddScene(req.Title)
	if err != nil {
		h.Response.Error(c, err)
		return
	}
	h.Response.Created(c, scene)
}

// GetScene returns one scene
func (h *Handler) GetScene(c *gin.Context) {
	scene, err := h.Store.GetScene(c.Param("id"))
	if err != nil {
		h.Response.Error(c, err)
		return
	}
	h.Response.Success(c, scene)
}

// UpdateScene patches a scene's title or chapter
func (h *Handler) UpdateScene(c *gin.Context) {
	var req struct {
		Title     *string `json:"title"`
		ChapterID *string `json:"chapter_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body")
		return
	}
	err := h.Store.UpdateScene(c.Param("id"), services.ScenePatch{
		Title:     req.Title,
		ChapterID: req.ChapterID,
	})
	if err != nil {
		h.Response.Error(c, err)
		return
	}
	h.Response.Success(c, nil, "scene updated")
}

// DeleteScene removes a scene with full cascade
func (h *Handler) DeleteScene(c *gin.Context) {
	if err := h.Store.DeleteScene(c.Param("id")); err != nil {
		h.Response.Error(c, err)
		return
	}
	h.Response.Success(c, nil, "scene deleted")
}

// ------------------------------------------------
// Beats and the rich-text document
// ------------------------------------------------

// GetSceneDoc returns the scene's beats rendered as the rich-text document
func (h *Handler) GetSceneDoc(c *gin.Context) {
	scene, err := h.Store.GetScene(c.Param("id"))
	if err != nil {
		h.Response.Error(c, err)
		return
	}
	h.Response.Success(c, richtext.BeatsToDoc(scene.Beats))
}

// PutSceneDoc accepts the editor's document, reverse-maps it and writes it
// through SetBeats. Value-identical documents are suppressed before they
// touch the store, so an editor echoing a programmatic render does not burn
// a revision.
func (h *Handler) PutSceneDoc(c *gin.Context) {
	var doc richtext.Doc
	if err := c.ShouldBindJSON(&doc); err != nil {
		h.Response.BadRequest(c, "invalid document")
		return
	}
	sceneID := c.Param("id")
	scene, err := h.Store.GetScene(sceneID)
	if err != nil {
		h.Response.Error(c, err)
		return
	}
	beats := richtext.DocToBeats(doc)
	if richtext.BeatsEqual(beats, scene.Beats) {
		h.Response.Success(c, gin.H{"changed": false})
		return
	}
	if err := h.Store.SetBeats(sceneID, beats); err != nil {
		h.Response.Error(c, err)
		return
	}
	h.Response.Success(c, gin.H{"changed": true})
}

// SetBeats replaces a scene's beat list directly
func (h *Handler) SetBeats(c *gin.Context) {
	var req struct {
		Beats []models.Beat `json:"beats"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body")
		return
	}
	if err := h.Store.SetBeats(c.Param("id"), req.Beats); err != nil {
		h.Response.Error(c, err)
		return
	}
	h.Response.Success(c, nil, "beats replaced")
}

// AddBeat inserts a beat
func (h *Handler) AddBeat(c *gin.Context) {
	var req struct {
		Beat  models.Beat `json:"beat"`
		Index *int        `json:"index"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body")
		return
	}
	if req.Beat.ID == "" {
		req.Beat.ID = models.NewBeatID()
	}
	if !req.Beat.Type.Valid() {
		h.Response.BadRequest(c, "unknown beat type")
		return
	}
	index := -1
	if req.Index != nil {
		index = *req.Index
	}
	if err := h.Store.AddBeat(c.Param("id"), req.Beat, index); err != nil {
		h.Response.Error(c, err)
		return
	}
	h.Response.Created(c, req.Beat)
}

// UpdateBeat patches a beat's payload
func (h *Handler) UpdateBeat(c *gin.Context) {
	var req struct {
		Type       *models.BeatType      `json:"type"`
		Text       *string               `json:"text"`
		Options    []models.ChoiceOption `json:"options"`
		VariableID *string               `json:"variable_id"`
		Value      *string               `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body")
		return
	}
	if req.Type != nil && !req.Type.Valid() {
		h.Response.BadRequest(c, "unknown beat type")
		return
	}
	err := h.Store.UpdateBeat(c.Param("id"), c.Param("beatId"), services.BeatPatch{
		Type:       req.Type,
		Text:       req.Text,
		Options:    req.Options,
		VariableID: req.VariableID,
		Value:      req.Value,
	})
	if err != nil {
		h.Response.Error(c, err)
		return
	}
	h.Response.Success(c, nil, "beat updated")
}

// RemoveBeat deletes a beat (cascading derived edges for choice points)
func (h *Handler) RemoveBeat(c *gin.Context) {
	if err := h.Store.RemoveBeat(c.Param("id"), c.Param("beatId")); err != nil {
		h.Response.Error(c, err)
		return
	}
	h.Response.Success(c, nil, "beat removed")
}

// ReorderBeats moves a beat within a scene
func (h *Handler) ReorderBeats(c *gin.Context) {
	var req struct {
		FromIndex int `json:"from_index"`
		ToIndex   int `json:"to_index"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body")
		return
	}
	if err := h.Store.ReorderBeats(c.Param("id"), req.FromIndex, req.ToIndex); err != nil {
		h.Response.Error(c, err)
		return
	}
	h.Response.Success(c, nil, "beats reordered")
}

// ------------------------------------------------
// Choice options
// ------------------------------------------------

// AddChoiceOption appends an empty option to a choice point
func (h *Handler) AddChoiceOption(c *gin.Context) {
	option, err := h.Store.AddChoiceOption(c.Param("id"), c.Param("beatId"))
	if err != nil {
		h.Response.Error(c, err)
		return
	}
	h.Response.Created(c, option)
}

// UpdateChoiceOption patches an option; the mirrored edge follows
func (h *Handler) UpdateChoiceOption(c *gin.Context) {
	var req struct {
		Label         *string `json:"label"`
		TargetSceneID *string `json:"target_scene_id"`
		Condition     *string `json:"condition"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body")
		return
	}
	err := h.Store.UpdateChoiceOption(c.Param("id"), c.Param("beatId"), c.Param("optionId"),
		services.ChoiceOptionPatch{
			Label:         req.Label,
			TargetSceneID: req.TargetSceneID,
			Condition:     req.Condition,
		})
	if err != nil {
		h.Response.Error(c, err)
		return
	}
	h.Response.Success(c, nil, "option updated")
}

// RemoveChoiceOption deletes an option and its derived edge
func (h *Handler) RemoveChoiceOption(c *gin.Context) {
	err := h.Store.RemoveChoiceOption(c.Param("id"), c.Param("beatId"), c.Param("optionId"))
	if err != nil {
		h.Response.Error(c, err)
		return
	}
	h.Response.Success(c, nil, "option removed")
}

// ------------------------------------------------
// Graph
// ------------------------------------------------

// GetGraph returns the renderer's node and edge records
func (h *Handler) GetGraph(c *gin.Context) {
	h.Response.Success(c, gin.H{
		"nodes": h.Graph.Nodes(),
		"edges": h.Graph.Edges(),
	})
}

// Connect handles a connect gesture between two scenes
func (h *Handler) Connect(c *gin.Context) {
	var req struct {
		SourceSceneID string `json:"source_scene_id" binding:"required"`
		TargetSceneID string `json:"target_scene_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "source_scene_id and target_scene_id are required")
		return
	}
	edge, err := h.Graph.Connect(req.SourceSceneID, req.TargetSceneID)
	if err != nil {
		h.Response.Error(c, err)
		return
	}
	h.Response.Created(c, edge)
}

// MoveNode records a node drag
func (h *Handler) MoveNode(c *gin.Context) {
	var req models.GraphNodePosition
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body")
		return
	}
	if err := h.Graph.MoveNode(c.Param("id"), req); err != nil {
		h.Response.Error(c, err)
		return
	}
	h.Response.Success(c, nil, "position updated")
}

// SetNodePositions replaces the whole layout mapping
func (h *Handler) SetNodePositions(c *gin.Context) {
	var req map[string]models.GraphNodePosition
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body")
		return
	}
	if err := h.Store.SetNodePositions(req); err != nil {
		h.Response.Error(c, err)
		return
	}
	h.Response.Success(c, nil, "positions updated")
}

// AddEdge creates a free-floating edge (no backing choice option)
func (h *Handler) AddEdge(c *gin.Context) {
	var req struct {
		SourceSceneID string `json:"source_scene_id" binding:"required"`
		TargetSceneID string `json:"target_scene_id" binding:"required"`
		Label         string `json:"label"`
		Condition     string `json:"condition"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "source_scene_id and target_scene_id are required")
		return
	}
	edge := models.NewGraphEdge(req.SourceSceneID, req.TargetSceneID, "", req.Label, req.Condition)
	if err := h.Store.AddEdge(edge); err != nil {
		h.Response.Error(c, err)
		return
	}
	h.Response.Created(c, edge)
}

// UpdateEdge patches an edge
func (h *Handler) UpdateEdge(c *gin.Context) {
	var req struct {
		TargetSceneID *string `json:"target_scene_id"`
		Label         *string `json:"label"`
		Condition     *string `json:"condition"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body")
		return
	}
	err := h.Store.UpdateEdge(c.Param("id"), services.EdgePatch{
		TargetSceneID: req.TargetSceneID,
		Label:         req.Label,
		Condition:     req.Condition,
	})
	if err != nil {
		h.Response.Error(c, err)
		return
	}
	h.Response.Success(c, nil, "edge updated")
}

// RemoveEdge deletes an edge
func (h *Handler) RemoveEdge(c *gin.Context) {
	if err := h.Store.RemoveEdge(c.Param("id")); err != nil {
		h.Response.Error(c, err)
		return
	}
	h.Response.Success(c, nil, "edge removed")
}

// ------------------------------------------------
// Variables
// ------------------------------------------------

// AddVariable creates a variable definition
func (h *Handler) AddVariable(c *gin.Context) {
	var req struct {
		Name         string              `json:"name"`
		Type         models.VariableType `json:"type"`
		DefaultValue string              `json:"default_value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		h.Response.BadRequest(c, "invalid request body")
		return
	}
	variable := models.NewVariable(req.Name)
	if req.Type != "" {
		variable.Type = req.Type
	}
	if req.DefaultValue != "" {
		variable.DefaultValue = req.DefaultValue
	}
	if err := h.Store.AddVariable(variable); err != nil {
		h.Response.Error(c, err)
		return
	}
	h.Response.Created(c, variable)
}

// UpdateVariable patches a variable definition
func (h *Handler) UpdateVariable(c *gin.Context) {
	var req struct {
		Name         *string              `json:"name"`
		Type         *models.VariableType `json:"type"`
		DefaultValue *string              `json:"default_value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body")
		return
	}
	err := h.Store.UpdateVariable(c.Param("id"), services.VariablePatch{
		Name:         req.Name,
		Type:         req.Type,
		DefaultValue: req.DefaultValue,
	})
	if err != nil {
		h.Response.Error(c, err)
		return
	}
	h.Response.Success(c, nil, "variable updated")
}

// RemoveVariable deletes a variable definition
func (h *Handler) RemoveVariable(c *gin.Context) {
	if err := h.Store.RemoveVariable(c.Param("id")); err != nil {
		h.Response.Error(c, err)
		return
	}
	h.Response.Success(c, nil, "variable removed")
}

// ------------------------------------------------
// Export
// ------------------------------------------------

// ExportScreenplay writes the screenplay HTML render to the export dir
func (h *Handler) ExportScreenplay(c *gin.Context) {
	snap := h.Store.Snapshot()
	result, err := h.Export.SaveScreenplayHTML(snap.Project)
	if err != nil {
		h.Response.Error(c, err)
		return
	}
	h.Response.Success(c, result)
}

// ExportGraphPNG writes the graph snapshot to the export dir
func (h *Handler) ExportGraphPNG(c *gin.Context) {
	snap := h.Store.Snapshot()
	result, err := h.Export.SaveGraphPNG(snap.Project)
	if err != nil {
		h.Response.Error(c, err)
		return
	}
	h.Response.Success(c, result)
}

// ChangeFeedSocket upgrades the connection to the change feed
func (h *Handler) ChangeFeedSocket(c *gin.Context) {
	h.Feed.Handle(c)
}
