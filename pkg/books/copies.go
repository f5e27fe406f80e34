package books

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type UpdateCopyOptions struct {
	Columns []string
}

// CopyCodes generates n codes of the form "<book id>-EJ-<seq>". The sequence
// continues after the highest numeric suffix among bookCodes. A code that is
// already in taken gets "-1", "-2", ... appended until it is free. Every
// returned code is added to taken.
func CopyCodes(bookID int, bookCodes []string, taken map[string]bool, n int) []string {
	prefix := fmt.Sprintf("%d-EJ-", bookID)
	last := 0
	for _, code := range bookCodes {
		if !strings.HasPrefix(code, prefix) {
			continue
		}
		seq, err := strconv.Atoi(strings.TrimPrefix(code, prefix))
		if err == nil && seq > last {
			last = seq
		}
	}

	codes := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		base := fmt.Sprintf("%s%d", prefix, last+i)
		code := base
		for suffix := 1; taken[code]; suffix++ {
			code = fmt.Sprintf("%s-%d", base, suffix)
		}
		taken[code] = true
		codes = append(codes, code)
	}
	return codes
}

// NewCopies builds n available copies for a book, with codes that collide
// with neither the stored codes nor taken. Nothing is inserted.
func NewCopies(ctx context.Context, idb bun.IDB, bookID int, n int, taken map[string]bool) ([]*models.Copy, error) {
	if n <= 0 {
		return nil, nil
	}

	var bookCodes []string
	err := idb.NewSelect().
		Model((*models.Copy)(nil)).
		Column("code").
		Where("book_id = ?", bookID).
		Scan(ctx, &bookCodes)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	prefix := fmt.Sprintf("%d-EJ-", bookID)
	for code := range taken {
		if strings.HasPrefix(code, prefix) {
			bookCodes = append(bookCodes, code)
		}
	}

	// Anything that could collide, including codes another book happens to
	// use with this prefix.
	var stored []string
	err = idb.NewSelect().
		Model((*models.Copy)(nil)).
		Column("code").
		Where("code LIKE ?", prefix+"%").
		Scan(ctx, &stored)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	for _, code := range stored {
		taken[code] = true
	}

	now := time.Now()
	codes := CopyCodes(bookID, bookCodes, taken, n)
	copies := make([]*models.Copy, 0, len(codes))
	for _, code := range codes {
		copies = append(copies, &models.Copy{
			CreatedAt: now,
			UpdatedAt: now,
			BookID:    bookID,
			Code:      code,
			Status:    models.CopyStatusAvailable,
		})
	}
	return copies, nil
}

// AddCopies creates n new available copies of a book.
func (svc *Service) AddCopies(ctx context.Context, bookID int, n int, location *string) ([]*models.Copy, error) {
	var copies []*models.Copy
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var err error
		copies, err = NewCopies(ctx, tx, bookID, n, map[string]bool{})
		if err != nil {
			return err
		}
		for _, c := range copies {
			c.Location = location
		}
		_, err = tx.NewInsert().Model(&copies).Returning("*").Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}
	return copies, nil
}

func (svc *Service) ListCopies(ctx context.Context, bookID int) ([]*models.Copy, error) {
	copies := []*models.Copy{}
	err := svc.db.
		NewSelect().
		Model(&copies).
		Where("cp.book_id = ?", bookID).
		Order("cp.code ASC").
		Scan(ctx)
	return copies, errors.WithStack(err)
}

func (svc *Service) RetrieveCopy(ctx context.Context, id int) (*models.Copy, error) {
	c := &models.Copy{}
	err := svc.db.
		NewSelect().
		Model(c).
		Relation("Book").
		Where("cp.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Copy")
		}
		return nil, errors.WithStack(err)
	}
	return c, nil
}

// UpdateCopy changes a copy's status or location. Loaned is set and cleared
// by the loan ledger only, so staff can't move a copy into or out of it here.
func (svc *Service) UpdateCopy(ctx context.Context, c *models.Copy, previousStatus string, opts UpdateCopyOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	for _, col := range opts.Columns {
		if col != "status" || c.Status == previousStatus {
			continue
		}
		if c.Status == models.CopyStatusLoaned || previousStatus == models.CopyStatusLoaned {
			return errcodes.ValidationError("Loaned copies change status through loans and returns.")
		}
	}

	c.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(c).
		Column(columns...).
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}
