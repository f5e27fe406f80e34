package books

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/migrations"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func createAuthor(t *testing.T, db *bun.DB, name, surname string) *models.Author {
	t.Helper()
	author := &models.Author{CreatedAt: time.Now(), UpdatedAt: time.Now(), Name: name, Surname: surname}
	_, err := db.NewInsert().Model(author).Exec(context.Background())
	require.NoError(t, err)
	return author
}

func TestCopyCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		bookCodes []string
		taken     []string
		n         int
		want      []string
	}{
		{
			name: "first copies",
			n:    2,
			want: []string{"7-EJ-1", "7-EJ-2"},
		},
		{
			name:      "continues after highest numeric suffix",
			bookCodes: []string{"7-EJ-2", "7-EJ-10", "7-EJ-3-1", "LEGACY-99"},
			n:         1,
			want:      []string{"7-EJ-11"},
		},
		{
			name:  "collisions get a counter",
			taken: []string{"7-EJ-1", "7-EJ-1-1"},
			n:     2,
			want:  []string{"7-EJ-1-2", "7-EJ-2"},
		},
		{
			name: "zero copies",
			n:    0,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			taken := map[string]bool{}
			for _, code := range tt.taken {
				taken[code] = true
			}
			got := CopyCodes(7, tt.bookCodes, taken, tt.n)
			assert.Equal(t, tt.want, got)
			for _, code := range got {
				assert.True(t, taken[code])
			}
		})
	}
}

func TestNormalizeISBN(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "9788437604947", NormalizeISBN(" 978-84-376 0494-7 "))
	assert.Equal(t, "843760494X", NormalizeISBN("84-376-0494-x"))
}

func TestCreateBook_WithCopies(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)
	author := createAuthor(t, db, "Julio", "Cortázar")

	book := &models.Book{Title: "Rayuela", AuthorID: author.ID, ISBN: pointerutil.String("978-84-376-0494-7")}
	require.NoError(t, svc.CreateBook(ctx, book, 3))
	assert.Equal(t, "9788437604947", *book.ISBN)
	require.Len(t, book.Copies, 3)

	got, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ISBN: pointerutil.String("9788437604947")})
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalCopies)
	assert.Equal(t, 3, got.AvailableCopies)
	assert.Equal(t, "Cortázar", got.Author.Surname)

	dup := &models.Book{Title: "Rayuela (bis)", AuthorID: author.ID, ISBN: pointerutil.String("9788437604947")}
	err = svc.CreateBook(ctx, dup, 1)
	assert.True(t, errcodes.HasCode(err, "conflict"))

	orphan := &models.Book{Title: "Sin autor", AuthorID: 999}
	err = svc.CreateBook(ctx, orphan, 1)
	assert.True(t, errcodes.HasCode(err, "not_found"))

	count, err := db.NewSelect().Model((*models.Book)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAddCopies_ContinuesSequence(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)
	author := createAuthor(t, db, "Jorge Luis", "Borges")

	book := &models.Book{Title: "Ficciones", AuthorID: author.ID}
	require.NoError(t, svc.CreateBook(ctx, book, 2))

	copies, err := svc.AddCopies(ctx, book.ID, 2, pointerutil.String("Sala A"))
	require.NoError(t, err)
	require.Len(t, copies, 2)
	assert.Equal(t, copyCode(book.ID, 3), copies[0].Code)
	assert.Equal(t, copyCode(book.ID, 4), copies[1].Code)
	assert.Equal(t, "Sala A", *copies[1].Location)
}

func TestListBooksWithTotal_CountsAndSearch(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)
	borges := createAuthor(t, db, "Jorge Luis", "Borges")
	allende := createAuthor(t, db, "Isabel", "Allende")

	ficciones := &models.Book{Title: "Ficciones", AuthorID: borges.ID, Genre: pointerutil.String("Cuento")}
	require.NoError(t, svc.CreateBook(ctx, ficciones, 2))
	aleph := &models.Book{Title: "El Aleph", AuthorID: borges.ID, Genre: pointerutil.String("Cuento")}
	require.NoError(t, svc.CreateBook(ctx, aleph, 1))
	casa := &models.Book{Title: "La casa de los espíritus", AuthorID: allende.ID, Genre: pointerutil.String("Novela")}
	require.NoError(t, svc.CreateBook(ctx, casa, 1))

	_, err := db.NewUpdate().Model((*models.Copy)(nil)).
		Set("status = ?", models.CopyStatusRepair).
		Where("book_id = ?", ficciones.ID).
		Where("code = ?", copyCode(ficciones.ID, 1)).
		Exec(ctx)
	require.NoError(t, err)

	books, total, err := svc.ListBooksWithTotal(ctx, ListBooksOptions{Search: pointerutil.String("borges")})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, books, 2)
	assert.Equal(t, "El Aleph", books[0].Title)
	assert.Equal(t, "Ficciones", books[1].Title)
	assert.Equal(t, 1, books[1].AvailableCopies)
	assert.Equal(t, 2, books[1].TotalCopies)
	assert.Equal(t, "Borges", books[1].Author.Surname)

	books, err = svc.ListBooks(ctx, ListBooksOptions{Genre: pointerutil.String("novela"), Author: pointerutil.String("allende")})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, casa.ID, books[0].ID)

	genres, err := svc.ListGenres(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cuento", "Novela"}, genres)

	rows, err := svc.ExportRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"El Aleph", "Jorge Luis Borges", "Cuento", "", models.FormatDate(aleph.CreatedAt), "1"}, rows[0])
}

func TestUpdateCopy_LoanedIsReserved(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)
	author := createAuthor(t, db, "Ana María", "Matute")
	book := &models.Book{Title: "Olvidado rey Gudú", AuthorID: author.ID}
	require.NoError(t, svc.CreateBook(ctx, book, 1))

	cp := book.Copies[0]
	cp.Status = models.CopyStatusLoaned
	err := svc.UpdateCopy(ctx, cp, models.CopyStatusAvailable, UpdateCopyOptions{Columns: []string{"status"}})
	assert.True(t, errcodes.HasCode(err, "validation_error"))

	cp.Status = models.CopyStatusLost
	require.NoError(t, svc.UpdateCopy(ctx, cp, models.CopyStatusAvailable, UpdateCopyOptions{Columns: []string{"status"}}))

	got, err := svc.RetrieveCopy(ctx, cp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CopyStatusLost, got.Status)
	assert.Equal(t, book.Title, got.Book.Title)
}

func copyCode(bookID, n int) string {
	return CopyCodes(bookID, nil, map[string]bool{}, n)[n-1]
}
