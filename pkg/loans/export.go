package loans

import (
	"context"

	"github.com/bibliotech/bibliotech/pkg/models"
)

var ExportHeader = []string{"member", "book", "copy_code", "loaned_at", "due_at", "returned_at", "status"}

// ExportRows returns every loan as a CSV row, newest first.
func (svc *Service) ExportRows(ctx context.Context) ([][]string, error) {
	loans, err := svc.ListLoans(ctx, ListLoansOptions{})
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(loans))
	for _, l := range loans {
		var member, book, code, returned string
		if l.Member != nil {
			member = l.Member.FullName()
		}
		if l.Copy != nil {
			code = l.Copy.Code
			if l.Copy.Book != nil {
				book = l.Copy.Book.Title
			}
		}
		if l.ReturnedAt != nil {
			returned = models.FormatDate(*l.ReturnedAt)
		}
		rows = append(rows, []string{
			member,
			book,
			code,
			models.FormatDate(l.LoanedAt),
			models.FormatDate(l.DueAt),
			returned,
			l.Status,
		})
	}
	return rows, nil
}
