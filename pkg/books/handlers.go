package books

import (
	"net/http"
	"strconv"
	"time"

	"github.com/bibliotech/bibliotech/pkg/csvexport"
	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

type handler struct {
	bookService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	books, total, err := h.bookService.ListBooksWithTotal(ctx, ListBooksOptions{
		Limit:    &params.Limit,
		Offset:   &params.Offset,
		Search:   params.Search,
		AuthorID: params.AuthorID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]interface{}{
		"items": books,
		"total": total,
	}))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	publishedAt, err := parseOptionalDate("published_at", params.PublishedAt)
	if err != nil {
		return err
	}

	book := &models.Book{
		Title:       params.Title,
		AuthorID:    params.AuthorID,
		ISBN:        params.ISBN,
		Publisher:   params.Publisher,
		PublishedAt: publishedAt,
		Pages:       params.Pages,
		Genre:       params.Genre,
	}
	if err := h.bookService.CreateBook(ctx, book, params.Copies); err != nil {
		return errors.WithStack(err)
	}

	logger.FromContext(ctx).Info("book created", logger.Data{"book_id": book.ID, "copies": params.Copies})

	return errors.WithStack(c.JSON(http.StatusCreated, book))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	params := UpdateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed
	opts := UpdateBookOptions{Columns: []string{}}

	if params.Title != nil && *params.Title != book.Title {
		book.Title = *params.Title
		opts.Columns = append(opts.Columns, "title")
	}
	if params.AuthorID != nil && *params.AuthorID != book.AuthorID {
		book.AuthorID = *params.AuthorID
		book.Author = nil
		opts.Columns = append(opts.Columns, "author_id")
	}
	if params.ISBN != nil {
		book.ISBN = params.ISBN
		opts.Columns = append(opts.Columns, "isbn")
	}
	if params.Publisher != nil {
		book.Publisher = params.Publisher
		opts.Columns = append(opts.Columns, "publisher")
	}
	if params.PublishedAt != nil {
		publishedAt, err := parseOptionalDate("published_at", params.PublishedAt)
		if err != nil {
			return err
		}
		book.PublishedAt = publishedAt
		opts.Columns = append(opts.Columns, "published_at")
	}
	if params.Pages != nil {
		book.Pages = params.Pages
		opts.Columns = append(opts.Columns, "pages")
	}
	if params.Genre != nil {
		book.Genre = params.Genre
		opts.Columns = append(opts.Columns, "genre")
	}

	if err := h.bookService.UpdateBook(ctx, book, opts); err != nil {
		return errors.WithStack(err)
	}

	book, err = h.bookService.RetrieveBook(ctx, RetrieveBookOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) genres(c echo.Context) error {
	genres, err := h.bookService.ListGenres(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.JSON(http.StatusOK, genres))
}

func (h *handler) export(c echo.Context) error {
	rows, err := h.bookService.ExportRows(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(csvexport.Respond(c, "books.csv", ExportHeader, rows))
}

func (h *handler) listCopies(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}
	if _, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{ID: &id}); err != nil {
		return errors.WithStack(err)
	}

	copies, err := h.bookService.ListCopies(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.JSON(http.StatusOK, copies))
}

func (h *handler) addCopies(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	params := AddCopiesPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	if _, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{ID: &id}); err != nil {
		return errors.WithStack(err)
	}

	copies, err := h.bookService.AddCopies(ctx, id, params.Count, params.Location)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.JSON(http.StatusCreated, copies))
}

func (h *handler) retrieveCopy(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Copy")
	}

	cp, err := h.bookService.RetrieveCopy(c.Request().Context(), id)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.JSON(http.StatusOK, cp))
}

func (h *handler) updateCopy(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Copy")
	}

	params := UpdateCopyPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	cp, err := h.bookService.RetrieveCopy(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}
	previousStatus := cp.Status

	opts := UpdateCopyOptions{Columns: []string{}}
	if params.Status != nil && *params.Status != cp.Status {
		cp.Status = *params.Status
		opts.Columns = append(opts.Columns, "status")
	}
	if params.Location != nil {
		cp.Location = params.Location
		opts.Columns = append(opts.Columns, "location")
	}

	if err := h.bookService.UpdateCopy(ctx, cp, previousStatus, opts); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.JSON(http.StatusOK, cp))
}

func parseOptionalDate(field string, s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := models.ParseDate(*s)
	if err != nil {
		return nil, errcodes.ValidationError(strconv.Quote(field) + " should be in the format of YYYY-MM-DD")
	}
	return &d, nil
}
