package imports

import (
	"github.com/bibliotech/bibliotech/pkg/config"
	"github.com/labstack/echo/v4"
)

// RegisterRoutesWithGroup adds the upload and history endpoints for one
// import type to a staff-only group, e.g. POST /authors/import.
func RegisterRoutesWithGroup(g *echo.Group, importType string, importService *Service, cfg *config.Config) {
	h := &handler{
		importService: importService,
		cfg:           cfg,
		importType:    importType,
	}

	g.POST("/import", h.upload)
	g.GET("/imports", h.listRuns)
}

// RegisterRunRoutes adds the history across every import type.
func RegisterRunRoutes(g *echo.Group, importService *Service) {
	h := &handler{
		importService: importService,
	}

	g.GET("/runs", h.listRuns)
	g.GET("/runs/:id", h.retrieveRun)
}
