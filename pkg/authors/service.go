package authors

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type RetrieveAuthorOptions struct {
	ID *int
	// Name and Surname together look an author up by its natural key,
	// ignoring case.
	Name    *string
	Surname *string
}

type ListAuthorsOptions struct {
	Limit  *int
	Offset *int
	Search *string

	includeTotal bool
}

type UpdateAuthorOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateAuthor(ctx context.Context, author *models.Author) error {
	now := time.Now()
	if author.CreatedAt.IsZero() {
		author.CreatedAt = now
	}
	author.UpdatedAt = author.CreatedAt

	_, err := svc.db.
		NewInsert().
		Model(author).
		Returning("*").
		Exec(ctx)
	return errors.WithStack(err)
}

func (svc *Service) RetrieveAuthor(ctx context.Context, opts RetrieveAuthorOptions) (*models.Author, error) {
	author := &models.Author{}

	q := svc.db.
		NewSelect().
		Model(author)

	if opts.ID != nil {
		q = q.Where("a.id = ?", *opts.ID)
	}
	if opts.Name != nil && opts.Surname != nil {
		q = q.Where("a.name = ? COLLATE NOCASE AND a.surname = ? COLLATE NOCASE", strings.TrimSpace(*opts.Name), strings.TrimSpace(*opts.Surname))
	}

	err := q.Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Author")
		}
		return nil, errors.WithStack(err)
	}

	return author, nil
}

func (svc *Service) ListAuthors(ctx context.Context, opts ListAuthorsOptions) ([]*models.Author, error) {
	a, _, err := svc.listAuthorsWithTotal(ctx, opts)
	return a, errors.WithStack(err)
}

func (svc *Service) ListAuthorsWithTotal(ctx context.Context, opts ListAuthorsOptions) ([]*models.Author, int, error) {
	opts.includeTotal = true
	return svc.listAuthorsWithTotal(ctx, opts)
}

func (svc *Service) listAuthorsWithTotal(ctx context.Context, opts ListAuthorsOptions) ([]*models.Author, int, error) {
	var authors []*models.Author
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&authors).
		OrderExpr("a.surname COLLATE NOCASE ASC, a.name COLLATE NOCASE ASC")

	if opts.Search != nil && *opts.Search != "" {
		like := "%" + *opts.Search + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("a.name LIKE ?", like).
				WhereOr("a.surname LIKE ?", like).
				WhereOr("a.nationality LIKE ?", like).
				WhereOr("(a.name || ' ' || a.surname) LIKE ?", like)
		})
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return authors, total, nil
}

func (svc *Service) UpdateAuthor(ctx context.Context, author *models.Author, opts UpdateAuthorOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	author.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(author).
		Column(columns...).
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}

// CountBooks returns how many books are attributed to the author.
func (svc *Service) CountBooks(ctx context.Context, authorID int) (int, error) {
	count, err := svc.db.
		NewSelect().
		Model((*models.Book)(nil)).
		Where("author_id = ?", authorID).
		Count(ctx)
	return count, errors.WithStack(err)
}
