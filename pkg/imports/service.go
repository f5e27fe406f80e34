// Package imports loads authors, books and members from uploaded
// spreadsheets and keeps an audit trail of every run.
package imports

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/fileutils"
	"github.com/bibliotech/bibliotech/pkg/imports/sheet"
	"github.com/bibliotech/bibliotech/pkg/metrics"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/bibliotech/bibliotech/pkg/roles"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

// Types lists the import types in the order they're usually run.
var Types = []string{models.ImportTypeAuthors, models.ImportTypeBooks, models.ImportTypeMembers}

// insertBatchSize keeps multi-row inserts under SQLite's bound parameter
// limit.
const insertBatchSize = 500

type ImportOptions struct {
	Type     string
	FilePath string
	UserID   *int
	Notes    *string

	// UpdateExisting overwrites rows that match an existing record instead
	// of skipping them.
	UpdateExisting bool
	// CreateDependencies creates missing authors while importing books.
	CreateDependencies bool
	// CreateCopies gives every imported book its copies.
	CreateCopies bool
	// CreateUsers gives every new member a user account.
	CreateUsers bool
}

type Result struct {
	TotalRows      int      `json:"total_rows"`
	Created        int      `json:"created"`
	Updated        int      `json:"updated"`
	Skipped        int      `json:"skipped"`
	Errors         []string `json:"errors"`
	AuthorsCreated int      `json:"authors_created"`
	CopiesCreated  int      `json:"copies_created"`
	UsersCreated   int      `json:"users_created"`
	RunID          int      `json:"run_id"`
}

type ListRunsOptions struct {
	Type   *string
	Limit  *int
	Offset *int

	includeTotal bool
}

type Service struct {
	db       *bun.DB
	resolver *roles.Resolver
}

func NewService(db *bun.DB, resolver *roles.Resolver) *Service {
	return &Service{db, resolver}
}

// IsType reports whether t names a supported import type.
func IsType(t string) bool {
	_, ok := columns[t]
	return ok
}

// Import reads the spreadsheet at opts.FilePath and applies it in a single
// transaction that also records the ImportRun. Problems with individual rows
// are reported in the result; problems with the file as a whole fail the run,
// in which case nothing is written and the file is removed.
func (svc *Service) Import(ctx context.Context, opts ImportOptions) (*Result, error) {
	log := logger.FromContext(ctx)

	result, invalidate, err := svc.run(ctx, opts)
	if err != nil {
		metrics.ImportRuns.WithLabelValues(opts.Type, "failed").Inc()
		if rmErr := fileutils.RemoveQuietly(opts.FilePath); rmErr != nil {
			log.Err(rmErr).Warn("failed to remove import file", logger.Data{"path": opts.FilePath})
		}
		log.Err(err).Warn("import failed", logger.Data{"type": opts.Type, "path": opts.FilePath})
		return nil, err
	}

	for _, userID := range invalidate {
		if err := svc.resolver.Invalidate(ctx, userID); err != nil {
			log.Err(err).Warn("failed to invalidate role cache", logger.Data{"user_id": userID})
		}
	}

	metrics.ImportRuns.WithLabelValues(opts.Type, "completed").Inc()
	metrics.ImportRows.WithLabelValues(opts.Type, "created").Add(float64(result.Created))
	metrics.ImportRows.WithLabelValues(opts.Type, "updated").Add(float64(result.Updated))
	metrics.ImportRows.WithLabelValues(opts.Type, "skipped").Add(float64(result.Skipped))

	log.Info("import completed", logger.Data{
		"type":       opts.Type,
		"run_id":     result.RunID,
		"total_rows": result.TotalRows,
		"created":    result.Created,
		"updated":    result.Updated,
		"skipped":    result.Skipped,
	})
	return result, nil
}

func (svc *Service) run(ctx context.Context, opts ImportOptions) (*Result, []int, error) {
	cs, ok := columns[opts.Type]
	if !ok {
		return nil, nil, errcodes.ValidationError(fmt.Sprintf("Unknown import type %q.", opts.Type))
	}

	records, err := readRecords(opts.FilePath, cs)
	if err != nil {
		return nil, nil, err
	}

	im := &importer{
		opts:   opts,
		result: &Result{TotalRows: len(records), Errors: []string{}},
	}

	err = svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		im.tx = tx

		var err error
		switch opts.Type {
		case models.ImportTypeAuthors:
			err = im.authors(ctx, records)
		case models.ImportTypeBooks:
			err = im.books(ctx, records)
		case models.ImportTypeMembers:
			err = im.members(ctx, records)
		}
		if err != nil {
			return err
		}

		res := im.result
		now := time.Now()
		run := &models.ImportRun{
			CreatedAt:  now,
			UpdatedAt:  now,
			Type:       opts.Type,
			FilePath:   opts.FilePath,
			UserID:     opts.UserID,
			TotalRows:  res.TotalRows,
			Created:    res.Created,
			Updated:    res.Updated,
			Skipped:    res.Skipped,
			ErrorCount: len(res.Errors),
			Notes:      opts.Notes,
			DetailsParsed: &models.ImportRunDetails{
				Errors:         res.Errors,
				AuthorsCreated: res.AuthorsCreated,
				CopiesCreated:  res.CopiesCreated,
				UsersCreated:   res.UsersCreated,
			},
		}
		if err := run.MarshalDetails(); err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(run).Returning("*").Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
		res.RunID = run.ID
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return im.result, im.invalidate, nil
}

type record struct {
	number int
	values map[string]string
}

func (r record) get(col string) string {
	return r.values[col]
}

// readRecords turns the first worksheet into records keyed by canonical
// column. The first non-blank row is the header; blank rows are ignored.
func readRecords(path string, cs columnSet) ([]record, error) {
	rows, err := sheet.Open(path)
	if err != nil {
		if errors.Is(err, sheet.ErrUnsupportedFormat) {
			return nil, errcodes.UnsupportedMediaType()
		}
		return nil, errcodes.ImportFailed(fmt.Sprintf("The spreadsheet could not be read: %s", errors.Cause(err)))
	}

	headerAt := -1
	for i, row := range rows {
		if !blank(row) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, errcodes.ImportFailed("The spreadsheet is empty.")
	}

	index := map[int]string{}
	present := map[string]bool{}
	for i, cell := range rows[headerAt] {
		col := cs.canonical(cell)
		if col == "" || present[col] {
			continue
		}
		index[i] = col
		present[col] = true
	}

	var missing []string
	for _, col := range cs.required {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, errcodes.ImportFailed(fmt.Sprintf("Missing required columns: %s.", strings.Join(missing, ", ")))
	}

	var records []record
	for i := headerAt + 1; i < len(rows); i++ {
		row := rows[i]
		if blank(row) {
			continue
		}
		values := make(map[string]string, len(index))
		for j, cell := range row {
			if col, ok := index[j]; ok {
				values[col] = cell
			}
		}
		records = append(records, record{number: i + 1, values: values})
	}
	return records, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func (svc *Service) RetrieveRun(ctx context.Context, id int) (*models.ImportRun, error) {
	run := &models.ImportRun{}
	err := svc.db.
		NewSelect().
		Model(run).
		Relation("User").
		Where("ir.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Import run")
		}
		return nil, errors.WithStack(err)
	}
	if err := run.UnmarshalDetails(); err != nil {
		return nil, err
	}
	return run, nil
}

func (svc *Service) ListRuns(ctx context.Context, opts ListRunsOptions) ([]*models.ImportRun, error) {
	r, _, err := svc.listRunsWithTotal(ctx, opts)
	return r, errors.WithStack(err)
}

func (svc *Service) ListRunsWithTotal(ctx context.Context, opts ListRunsOptions) ([]*models.ImportRun, int, error) {
	opts.includeTotal = true
	return svc.listRunsWithTotal(ctx, opts)
}

func (svc *Service) listRunsWithTotal(ctx context.Context, opts ListRunsOptions) ([]*models.ImportRun, int, error) {
	var runs []*models.ImportRun
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&runs).
		Relation("User").
		OrderExpr("ir.created_at DESC, ir.id DESC")

	if opts.Type != nil {
		q = q.Where("ir.type = ?", *opts.Type)
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

	for _, run := range runs {
		if err := run.UnmarshalDetails(); err != nil {
			return nil, 0, err
		}
	}

	return runs, total, nil
}

// importer carries the state of one run. All queries go through tx.
type importer struct {
	tx     bun.Tx
	opts   ImportOptions
	result *Result

	// Users whose cached role may be stale once the run commits.
	invalidate []int
}

func (im *importer) skip(number int, msg string, args ...interface{}) {
	im.result.Skipped++
	im.result.Errors = append(im.result.Errors, rowError(number, msg, args...))
}

func insertBatches[T any](ctx context.Context, idb bun.IDB, rows []T) error {
	for start := 0; start < len(rows); start += insertBatchSize {
		batch := rows[start:min(start+insertBatchSize, len(rows))]
		if _, err := idb.NewInsert().Model(&batch).Returning("*").Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// updateBulk writes the given columns for every row, one statement per
// batch. Only use it when none of the columns is unique, since every row in a
// batch is written at once.
func updateBulk[T any](ctx context.Context, idb bun.IDB, rows []T, columns ...string) error {
	columns = append(columns, "updated_at")
	for start := 0; start < len(rows); start += insertBatchSize {
		batch := rows[start:min(start+insertBatchSize, len(rows))]
		if _, err := idb.NewUpdate().Model(&batch).Column(columns...).Bulk().Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// updateEach writes the given columns for every row. Rows are updated one at
// a time, in order, so a unique value released by an earlier row can be
// taken by a later one.
func updateEach[T any](ctx context.Context, idb bun.IDB, rows []T, columns ...string) error {
	columns = append(columns, "updated_at")
	for _, row := range rows {
		if _, err := idb.NewUpdate().Model(row).Column(columns...).WherePK().Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func authorKey(name, surname string) string {
	return strings.ToLower(strings.TrimSpace(name)) + "\x00" + strings.ToLower(strings.TrimSpace(surname))
}

// loadAuthors indexes every stored author by name and surname.
func (im *importer) loadAuthors(ctx context.Context) (map[string]*models.Author, error) {
	var authors []*models.Author
	if err := im.tx.NewSelect().Model(&authors).Order("a.id ASC").Scan(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	byKey := make(map[string]*models.Author, len(authors))
	for _, a := range authors {
		key := authorKey(a.Name, a.Surname)
		if _, ok := byKey[key]; !ok {
			byKey[key] = a
		}
	}
	return byKey, nil
}

func sortedKeys(m map[int]bool) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
