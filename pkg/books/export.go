package books

import (
	"context"
	"strconv"

	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/pkg/errors"
)

var ExportHeader = []string{"title", "author", "genre", "isbn", "registered_at", "copies"}

// ExportRows returns every book as a CSV row, ordered by title.
func (svc *Service) ExportRows(ctx context.Context) ([][]string, error) {
	var books []*models.Book
	err := svc.db.
		NewSelect().
		Model(&books).
		ColumnExpr("b.*").
		ColumnExpr("(SELECT COUNT(*) FROM copies AS c WHERE c.book_id = b.id) AS total_copies").
		Relation("Author").
		OrderExpr("b.title COLLATE NOCASE ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	rows := make([][]string, 0, len(books))
	for _, b := range books {
		author := ""
		if b.Author != nil {
			author = b.Author.FullName()
		}
		rows = append(rows, []string{
			b.Title,
			author,
			deref(b.Genre),
			deref(b.ISBN),
			models.FormatDate(b.CreatedAt),
			strconv.Itoa(b.TotalCopies),
		})
	}
	return rows, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
