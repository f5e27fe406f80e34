package books

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

type RetrieveBookOptions struct {
	ID   *int
	ISBN *string
}

type ListBooksOptions struct {
	Limit  *int
	Offset *int
	// Search matches title, author name or surname, and genre.
	Search *string
	// Title, Author and Genre narrow the member catalogue search.
	Title    *string
	Author   *string
	Genre    *string
	AuthorID *int

	includeTotal bool
}

type UpdateBookOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// NormalizeISBN strips the dashes and spaces people type into ISBNs.
func NormalizeISBN(isbn string) string {
	return strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(isbn)))
}

// CreateBook inserts the book together with copies new available copies.
func (svc *Service) CreateBook(ctx context.Context, book *models.Book, copies int) error {
	now := time.Now()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = now
	}
	book.UpdatedAt = book.CreatedAt
	book.ISBN = normalizeISBNPtr(book.ISBN)

	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := ensureUniqueISBN(ctx, tx, book); err != nil {
			return err
		}
		if err := ensureAuthor(ctx, tx, book.AuthorID); err != nil {
			return err
		}

		_, err := tx.NewInsert().Model(book).Returning("*").Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		newCopies, err := NewCopies(ctx, tx, book.ID, copies, map[string]bool{})
		if err != nil {
			return err
		}
		if len(newCopies) > 0 {
			_, err = tx.NewInsert().Model(&newCopies).Returning("*").Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}
		book.Copies = newCopies
		book.TotalCopies = len(newCopies)
		book.AvailableCopies = len(newCopies)
		return nil
	})
}

func normalizeISBNPtr(isbn *string) *string {
	if isbn == nil {
		return nil
	}
	n := NormalizeISBN(*isbn)
	if n == "" {
		return nil
	}
	return &n
}

func ensureUniqueISBN(ctx context.Context, idb bun.IDB, book *models.Book) error {
	if book.ISBN == nil {
		return nil
	}
	q := idb.NewSelect().Model((*models.Book)(nil)).Where("isbn = ?", *book.ISBN)
	if book.ID != 0 {
		q = q.Where("id != ?", book.ID)
	}
	exists, err := q.Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if exists {
		return errcodes.Conflict("A book with this ISBN already exists.")
	}
	return nil
}

func ensureAuthor(ctx context.Context, idb bun.IDB, authorID int) error {
	exists, err := idb.NewSelect().Model((*models.Author)(nil)).Where("id = ?", authorID).Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if !exists {
		return errcodes.NotFound("Author")
	}
	return nil
}

func (svc *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*models.Book, error) {
	book := &models.Book{}

	q := svc.db.
		NewSelect().
		Model(book).
		Relation("Author").
		Relation("Copies", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("cp.code ASC")
		})

	if opts.ID != nil {
		q = q.Where("b.id = ?", *opts.ID)
	}
	if opts.ISBN != nil {
		q = q.Where("b.isbn = ?", NormalizeISBN(*opts.ISBN))
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	for _, c := range book.Copies {
		book.TotalCopies++
		if c.IsAvailable() {
			book.AvailableCopies++
		}
	}

	return book, nil
}

func (svc *Service) ListBooks(ctx context.Context, opts ListBooksOptions) ([]*models.Book, error) {
	b, _, err := svc.listBooksWithTotal(ctx, opts)
	return b, errors.WithStack(err)
}

func (svc *Service) ListBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	opts.includeTotal = true
	return svc.listBooksWithTotal(ctx, opts)
}

func (svc *Service) listBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	var books []*models.Book
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&books).
		ColumnExpr("b.*").
		ColumnExpr("(SELECT COUNT(*) FROM copies AS c WHERE c.book_id = b.id AND c.status = ?) AS available_copies", models.CopyStatusAvailable).
		ColumnExpr("(SELECT COUNT(*) FROM copies AS c WHERE c.book_id = b.id) AS total_copies").
		Relation("Author").
		OrderExpr("b.title COLLATE NOCASE ASC")

	if opts.Search != nil && *opts.Search != "" {
		like := "%" + *opts.Search + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("b.title LIKE ?", like).
				WhereOr("author.name LIKE ?", like).
				WhereOr("author.surname LIKE ?", like).
				WhereOr("b.genre LIKE ?", like)
		})
	}
	if opts.Title != nil && *opts.Title != "" {
		q = q.Where("b.title LIKE ?", "%"+*opts.Title+"%")
	}
	if opts.Author != nil && *opts.Author != "" {
		like := "%" + *opts.Author + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("author.name LIKE ?", like).WhereOr("author.surname LIKE ?", like)
		})
	}
	if opts.Genre != nil && *opts.Genre != "" {
		q = q.Where("b.genre LIKE ?", "%"+*opts.Genre+"%")
	}
	if opts.AuthorID != nil {
		q = q.Where("b.author_id = ?", *opts.AuthorID)
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

	return books, total, nil
}

func (svc *Service) UpdateBook(ctx context.Context, book *models.Book, opts UpdateBookOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	for _, col := range opts.Columns {
		switch col {
		case "isbn":
			book.ISBN = normalizeISBNPtr(book.ISBN)
			if err := ensureUniqueISBN(ctx, svc.db, book); err != nil {
				return err
			}
		case "author_id":
			if err := ensureAuthor(ctx, svc.db, book.AuthorID); err != nil {
				return err
			}
		}
	}

	book.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(book).
		Column(columns...).
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}

// ListGenres returns the distinct, non-empty genres in the catalogue.
func (svc *Service) ListGenres(ctx context.Context) ([]string, error) {
	genres := []string{}
	err := svc.db.
		NewSelect().
		Model((*models.Book)(nil)).
		ColumnExpr("DISTINCT b.genre").
		Where("b.genre IS NOT NULL").
		Where("b.genre != ''").
		OrderExpr("b.genre COLLATE NOCASE ASC").
		Scan(ctx, &genres)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return genres, nil
}

// CountAvailableCopies returns how many copies of the book can be lent now.
func CountAvailableCopies(ctx context.Context, idb bun.IDB, bookID int) (int, error) {
	count, err := idb.
		NewSelect().
		Model((*models.Copy)(nil)).
		Where("book_id = ?", bookID).
		Where("status = ?", models.CopyStatusAvailable).
		Count(ctx)
	return count, errors.WithStack(err)
}
