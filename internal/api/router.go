// internal/api/router.go
package api

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/johnmartinello/gscript/internal/di"
	"github.com/johnmartinello/gscript/internal/graphview"
	"github.com/johnmartinello/gscript/internal/services"
)

// SetupRouter wires the HTTP routes. Services come from the container; the
// router never constructs them itself.
func SetupRouter(container *di.Container, debugMode bool) (*gin.Engine, error) {
	if !debugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	store, ok := container.Get("project").(*services.ProjectService)
	if !ok {
		return nil, fmt.Errorf("project store not initialized")
	}
	persistence, ok := container.Get("persistence").(*services.PersistenceService)
	if !ok {
		return nil, fmt.Errorf("persistence service not initialized")
	}
	export, ok := container.Get("export").(*services.ExportService)
	if !ok {
		return nil, fmt.Errorf("export service not initialized")
	}
	graph, ok := container.Get("graph").(*graphview.Adapter)
	if !ok {
		return nil, fmt.Errorf("graph adapter not initialized")
	}
	feed, ok := container.Get("feed").(*ChangeFeed)
	if !ok {
		return nil, fmt.Errorf("change feed not initialized")
	}

	handler := NewHandler(store, persistence, export, graph, feed)

	r := gin.Default()
	r.Use(corsMiddleware())

	// Change feed for all connected views
	r.GET("/ws", handler.ChangeFeedSocket)

	apiGroup := r.Group("/api")
	{
		// Project lifecycle
		apiGroup.GET("/project", handler.GetProject)
		apiGroup.POST("/project/new", handler.NewProject)
		apiGroup.PUT("/project", handler.RenameProject)
		apiGroup.POST("/project/open", handler.OpenProject)
		apiGroup.POST("/project/save", handler.SaveProject)

		// Selection and view state
		apiGroup.PUT("/selection", handler.SetSelection)
		apiGroup.PUT("/view", handler.SetViewMode)

		// Scenes
		apiGroup.POST("/scenes", handler.AddScene)
		apiGroup.GET("/scenes/:id", handler.GetScene)
		apiGroup.PUT("/scenes/:id", handler.UpdateScene)
		apiGroup.DELETE("/scenes/:id", handler.DeleteScene)

		// Beats and the rich-text document
		apiGroup.GET("/scenes/:id/doc", handler.GetSceneDoc)
		apiGroup.PUT("/scenes/:id/doc", handler.PutSceneDoc)
		apiGroup.PUT("/scenes/:id/beats", handler.SetBeats)
		apiGroup.POST("/scenes/:id/beats", handler.AddBeat)
		apiGroup.PUT("/scenes/:id/beats/reorder", handler.ReorderBeats)
		apiGroup.PUT("/scenes/:id/beats/:beatId", handler.UpdateBeat)
		apiGroup.DELETE("/scenes/:id/beats/:beatId", handler.RemoveBeat)

		// Choice options
		apiGroup.POST("/scenes/:id/beats/:beatId/options", handler.AddChoiceOption)
		apiGroup.PUT("/scenes/:id/beats/:beatId/options/:optionId", handler.UpdateChoiceOption)
		apiGroup.DELETE("/scenes/:id/beats/:beatId/options/:optionId", handler.RemoveChoiceOption)

		// Graph view
		apiGroup.GET("/graph", handler.GetGraph)
		apiGroup.POST("/graph/connections", handler.Connect)
		apiGroup.PUT("/graph/positions", handler.SetNodePositions)
		apiGroup.PUT("/graph/positions/:id", handler.MoveNode)

		// Edges
		apiGroup.POST("/edges", handler.AddEdge)
		apiGroup.PUT("/edges/:id", handler.UpdateEdge)
		apiGroup.DELETE("/edges/:id", handler.RemoveEdge)

		// Variables
		apiGroup.POST("/variables", handler.AddVariable)
		apiGroup.PUT("/variables/:id", handler.UpdateVariable)
		apiGroup.DELETE("/variables/:id", handler.RemoveVariable)

		// Export
		apiGroup.POST("/export/screenplay", handler.ExportScreenplay)
		apiGroup.POST("/export/graph", handler.ExportGraphPNG)
	}

	return r, nil
}
