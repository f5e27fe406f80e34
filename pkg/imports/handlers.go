package imports

import (
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bibliotech/bibliotech/pkg/auth"
	"github.com/bibliotech/bibliotech/pkg/config"
	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/fileutils"
	"github.com/bibliotech/bibliotech/pkg/imports/sheet"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

type handler struct {
	importService *Service
	cfg           *config.Config

	// Empty on the cross-type history routes.
	importType string
}

func (h *handler) upload(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)

	params := UploadPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	fh, ok := params.FormFiles["file"]
	if !ok {
		return errcodes.ValidationError("A spreadsheet is required in the file field.")
	}
	if fh.Size == 0 {
		return errcodes.ValidationError("The uploaded file is empty.")
	}
	if fh.Size > h.cfg.MaxUploadBytes {
		return errcodes.FileTooLarge(h.cfg.MaxUploadBytes)
	}
	if !sheet.Supported(fh.Filename) {
		return errcodes.UnsupportedMediaType()
	}

	src, err := fh.Open()
	if err != nil {
		return errors.WithStack(err)
	}
	defer src.Close()

	dir := filepath.Join(h.cfg.UploadsDir, "imports", h.importType)
	name := fileutils.UploadName(h.importType, fh.Filename, time.Now())
	path, size, err := fileutils.SaveUpload(dir, name, src, h.cfg.MaxUploadBytes)
	if err != nil {
		if errors.Is(err, fileutils.ErrTooLarge) {
			return errcodes.FileTooLarge(h.cfg.MaxUploadBytes)
		}
		return errors.WithStack(err)
	}
	if err := checkContent(path); err != nil {
		if rmErr := fileutils.RemoveQuietly(path); rmErr != nil {
			log.Err(rmErr).Warn("failed to remove rejected upload", logger.Data{"path": path})
		}
		return err
	}
	log.Info("import file received", logger.Data{"type": h.importType, "path": path, "size": size})

	opts := ImportOptions{
		Type:               h.importType,
		FilePath:           path,
		Notes:              params.Notes,
		UpdateExisting:     params.UpdateExisting,
		CreateDependencies: params.CreateDependencies,
		CreateCopies:       params.CreateCopies,
		CreateUsers:        params.CreateUsers,
	}
	if userID, ok := auth.GetUserIDFromContext(c); ok {
		opts.UserID = &userID
	}

	result, err := h.importService.Import(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, result))
}

func (h *handler) listRuns(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListRunsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}
	if h.importType != "" {
		params.Type = &h.importType
	}

	runs, total, err := h.importService.ListRunsWithTotal(ctx, ListRunsOptions{
		Type:   params.Type,
		Limit:  &params.Limit,
		Offset: &params.Offset,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]interface{}{
		"items": runs,
		"total": total,
	}))
}

func (h *handler) retrieveRun(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Import run")
	}

	run, err := h.importService.RetrieveRun(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, run))
}
