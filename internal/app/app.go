// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/johnmartinello/gscript/internal/api"
	"github.com/johnmartinello/gscript/internal/config"
	"github.com/johnmartinello/gscript/internal/di"
	"github.com/johnmartinello/gscript/internal/graphview"
	"github.com/johnmartinello/gscript/internal/services"
	"github.com/johnmartinello/gscript/internal/storage"
	"github.com/johnmartinello/gscript/internal/utils"
)

// App owns the wired service graph and the HTTP server
type App struct {
	Config    *config.Config
	Container *di.Container

	store    *services.ProjectService
	autosave *services.AutosaveService
	graph    *graphview.Adapter
	feed     *api.ChangeFeed
	server   *http.Server
}

// New wires every service in dependency order and registers them in the
// container
func New(cfg *config.Config) (*App, error) {
	container := di.NewContainer()

	store := services.NewProjectService()
	container.Register("project", store)

	files := storage.NewGScriptStore()
	container.Register("files", files)

	persistence := services.NewPersistenceService(store, files, nil)
	container.Register("persistence", persistence)

	autosave := services.NewAutosaveService(store, persistence, cfg.AutosaveDelay)
	container.Register("autosave", autosave)

	export := services.NewExportService(cfg.ExportDir)
	container.Register("export", export)

	graph := graphview.NewAdapter(store)
	container.Register("graph", graph)

	feed := api.NewChangeFeed(store)
	container.Register("feed", feed)

	// The server starts with an empty untitled project, like the desktop
	// shell did.
	store.NewProjectDoc()

	return &App{
		Config:    cfg,
		Container: container,
		store:     store,
		autosave:  autosave,
		graph:     graph,
		feed:      feed,
	}, nil
}

// Run starts the HTTP server and blocks until it stops
func (a *App) Run() error {
	router, err := api.SetupRouter(a.Container, a.Config.DebugMode)
	if err != nil {
		return fmt.Errorf("failed to set up router: %w", err)
	}

	a.server = &http.Server{
		Addr:    ":" + a.Config.Port,
		Handler: router,
	}

	utils.GetLogger().Infof("listening on port %s", a.Config.Port)
	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the autosave scheduler, detaches the views and drains the
// HTTP server
func (a *App) Shutdown(ctx context.Context) error {
	a.autosave.Stop()
	a.graph.Close()
	a.feed.Close()

	if a.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return a.server.Shutdown(shutdownCtx)
}
