package authors

import (
	"net/http"
	"strconv"
	"time"

	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	authorService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListAuthorsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	authors, total, err := h.authorService.ListAuthorsWithTotal(ctx, ListAuthorsOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		Search: params.Search,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]interface{}{
		"items": authors,
		"total": total,
	}))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateAuthorPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	birthDate, err := parseOptionalDate(params.BirthDate)
	if err != nil {
		return err
	}

	author := &models.Author{
		Name:        params.Name,
		Surname:     params.Surname,
		Nationality: params.Nationality,
		BirthDate:   birthDate,
		Bio:         params.Bio,
	}
	if err := h.authorService.CreateAuthor(ctx, author); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, author))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Author")
	}

	author, err := h.authorService.RetrieveAuthor(ctx, RetrieveAuthorOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	bookCount, err := h.authorService.CountBooks(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	response := struct {
		*models.Author
		BookCount int `json:"book_count"`
	}{author, bookCount}

	return errors.WithStack(c.JSON(http.StatusOK, response))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Author")
	}

	params := UpdateAuthorPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	author, err := h.authorService.RetrieveAuthor(ctx, RetrieveAuthorOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed
	opts := UpdateAuthorOptions{Columns: []string{}}

	if params.Name != nil && *params.Name != author.Name {
		author.Name = *params.Name
		opts.Columns = append(opts.Columns, "name")
	}
	if params.Surname != nil && *params.Surname != author.Surname {
		author.Surname = *params.Surname
		opts.Columns = append(opts.Columns, "surname")
	}
	if params.Nationality != nil {
		author.Nationality = params.Nationality
		opts.Columns = append(opts.Columns, "nationality")
	}
	if params.BirthDate != nil {
		birthDate, err := parseOptionalDate(params.BirthDate)
		if err != nil {
			return err
		}
		author.BirthDate = birthDate
		opts.Columns = append(opts.Columns, "birth_date")
	}
	if params.Bio != nil {
		author.Bio = params.Bio
		opts.Columns = append(opts.Columns, "bio")
	}

	if err := h.authorService.UpdateAuthor(ctx, author, opts); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, author))
}

// parseOptionalDate turns an already validated date string into a date. An
// empty string clears the value.
func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := models.ParseDate(*s)
	if err != nil {
		return nil, errcodes.ValidationError(`"birth_date" should be in the format of YYYY-MM-DD`)
	}
	return &d, nil
}
