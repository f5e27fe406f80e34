package imports

import (
	"context"
	"strings"
	"time"

	"github.com/bibliotech/bibliotech/pkg/books"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/pkg/errors"
)

type bookRow struct {
	title         string
	authorName    string
	authorSurname string
	isbn          *string
	publisher     *string
	publishedAt   *time.Time
	pages         *int
	genre         *string
	copies        int
}

func parseBookRow(r record) (*bookRow, []string) {
	var problems []string
	title := cleanText(r.get(colTitle))
	authorName := titleCase(r.get(colAuthorName))
	authorSurname := titleCase(r.get(colAuthorSurname))
	if title == "" {
		problems = append(problems, "title is required")
	}
	if authorName == "" {
		problems = append(problems, "author name is required")
	}
	if authorSurname == "" {
		problems = append(problems, "author surname is required")
	}
	if len(problems) > 0 {
		return nil, problems
	}

	copies := parseInt(r.get(colCopies), 1)
	if copies < 1 {
		copies = 1
	}

	return &bookRow{
		title:         title,
		authorName:    authorName,
		authorSurname: authorSurname,
		isbn:          isbnCell(r.get(colISBN)),
		publisher:     textPtr(r.get(colPublisher)),
		publishedAt:   parseDate(r.get(colPublishedAt)),
		pages:         parseIntPtr(r.get(colPages)),
		genre:         textPtr(r.get(colGenre)),
		copies:        copies,
	}, nil
}

// apply overwrites the mutable fields of b. ISBN and author are the book's
// identity and are left alone.
func (row *bookRow) apply(b *models.Book) {
	b.Title = row.title
	if row.publisher != nil {
		b.Publisher = row.publisher
	}
	if row.publishedAt != nil {
		b.PublishedAt = row.publishedAt
	}
	if row.pages != nil {
		b.Pages = row.pages
	}
	if row.genre != nil {
		b.Genre = row.genre
	}
}

// plannedBook is a book the run will insert or update, along with how many
// copies it should end up with.
type plannedBook struct {
	book   *models.Book
	author *models.Author
	isNew  bool
	copies int
}

func (im *importer) books(ctx context.Context, records []record) error {
	authorsByKey, err := im.loadAuthors(ctx)
	if err != nil {
		return err
	}

	var stored []*models.Book
	err = im.tx.NewSelect().
		Model(&stored).
		Where("b.isbn IS NOT NULL").
		Scan(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	byISBN := make(map[string]*plannedBook, len(stored))
	for _, b := range stored {
		byISBN[*b.ISBN] = &plannedBook{book: b}
	}

	now := time.Now()
	var newAuthors []*models.Author
	var planned []*plannedBook
	queued := map[int]bool{}

	for _, r := range records {
		row, problems := parseBookRow(r)
		if len(problems) > 0 {
			im.skip(r.number, "%s", strings.Join(problems, ", "))
			continue
		}

		if row.isbn != nil {
			if existing, ok := byISBN[*row.isbn]; ok {
				if !im.opts.UpdateExisting {
					im.skip(r.number, "book with ISBN '%s' already exists", *row.isbn)
					continue
				}
				row.apply(existing.book)
				existing.book.UpdatedAt = now
				if im.opts.CreateCopies && row.copies > existing.copies {
					existing.copies = row.copies
				}
				if !existing.isNew && !queued[existing.book.ID] {
					queued[existing.book.ID] = true
					planned = append(planned, existing)
				}
				im.result.Updated++
				continue
			}
		}

		key := authorKey(row.authorName, row.authorSurname)
		author, ok := authorsByKey[key]
		if !ok {
			if !im.opts.CreateDependencies {
				im.skip(r.number, "author '%s %s' does not exist", row.authorName, row.authorSurname)
				continue
			}
			author = &models.Author{CreatedAt: now, UpdatedAt: now, Name: row.authorName, Surname: row.authorSurname}
			authorsByKey[key] = author
			newAuthors = append(newAuthors, author)
		}

		book := &models.Book{CreatedAt: now, UpdatedAt: now, ISBN: row.isbn}
		row.apply(book)
		p := &plannedBook{book: book, author: author, isNew: true}
		if im.opts.CreateCopies {
			p.copies = row.copies
		}
		if row.isbn != nil {
			byISBN[*row.isbn] = p
		}
		planned = append(planned, p)
		im.result.Created++
	}

	if err := insertBatches(ctx, im.tx, newAuthors); err != nil {
		return err
	}
	im.result.AuthorsCreated = len(newAuthors)

	var toCreate, toUpdate []*models.Book
	for _, p := range planned {
		if p.isNew {
			p.book.AuthorID = p.author.ID
			toCreate = append(toCreate, p.book)
		} else {
			toUpdate = append(toUpdate, p.book)
		}
	}
	if err := insertBatches(ctx, im.tx, toCreate); err != nil {
		return err
	}
	if err := updateBulk(ctx, im.tx, toUpdate, "title", "publisher", "published_at", "pages", "genre"); err != nil {
		return err
	}

	if !im.opts.CreateCopies {
		return nil
	}
	return im.addCopies(ctx, planned)
}

// addCopies tops every planned book up to its wanted number of copies.
func (im *importer) addCopies(ctx context.Context, planned []*plannedBook) error {
	var copies []*models.Copy
	taken := map[string]bool{}
	for _, p := range planned {
		if p.copies == 0 {
			continue
		}
		have := 0
		if !p.isNew {
			n, err := im.tx.NewSelect().
				Model((*models.Copy)(nil)).
				Where("book_id = ?", p.book.ID).
				Count(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			have = n
		}
		if p.copies <= have {
			continue
		}
		created, err := books.NewCopies(ctx, im.tx, p.book.ID, p.copies-have, taken)
		if err != nil {
			return err
		}
		copies = append(copies, created...)
	}

	if err := insertBatches(ctx, im.tx, copies); err != nil {
		return err
	}
	im.result.CopiesCreated = len(copies)
	return nil
}
