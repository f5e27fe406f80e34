package reservations

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/migrations"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/bibliotech/bibliotech/pkg/notify"
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

// seed creates a book with one copy in the given status and an active member.
func seed(t *testing.T, db *bun.DB, copyStatus string) (*models.Book, *models.Copy, *models.Member) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	author := &models.Author{CreatedAt: now, UpdatedAt: now, Name: "Ursula", Surname: "Le Guin"}
	_, err := db.NewInsert().Model(author).Exec(ctx)
	require.NoError(t, err)

	book := &models.Book{CreatedAt: now, UpdatedAt: now, Title: "A Wizard of Earthsea", AuthorID: author.ID}
	_, err = db.NewInsert().Model(book).Exec(ctx)
	require.NoError(t, err)

	cp := &models.Copy{CreatedAt: now, UpdatedAt: now, BookID: book.ID, Code: "1-EJ-1", Status: copyStatus}
	_, err = db.NewInsert().Model(cp).Exec(ctx)
	require.NoError(t, err)

	member := &models.Member{
		CreatedAt: now, UpdatedAt: now,
		Name: "Ged", Surname: "Sparrowhawk", Identification: "100", Email: "ged@example.com", IsActive: true,
	}
	_, err = db.NewInsert().Model(member).Exec(ctx)
	require.NoError(t, err)

	return book, cp, member
}

func TestCreateReservation_OnlyWhenNothingIsOnTheShelf(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	recorder := &notify.Recorder{}
	svc := NewService(db, recorder)

	book, cp, member := seed(t, db, models.CopyStatusAvailable)

	_, err := svc.CreateReservation(ctx, CreateReservationOptions{MemberID: member.ID, BookID: book.ID})
	assert.True(t, errcodes.HasCode(err, "reservation_rejected"))

	_, err = db.NewUpdate().Model((*models.Copy)(nil)).Set("status = ?", models.CopyStatusLoaned).Where("id = ?", cp.ID).Exec(ctx)
	require.NoError(t, err)

	reservation, err := svc.CreateReservation(ctx, CreateReservationOptions{MemberID: member.ID, BookID: book.ID})
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusPending, reservation.Status)
	assert.False(t, reservation.ReservedAt.IsZero())

	_, err = svc.CreateReservation(ctx, CreateReservationOptions{MemberID: member.ID, BookID: book.ID})
	assert.True(t, errcodes.HasCode(err, "reservation_rejected"))

	_, err = svc.CreateReservation(ctx, CreateReservationOptions{MemberID: member.ID, BookID: book.ID + 100})
	assert.True(t, errcodes.HasCode(err, "not_found"))

	require.Len(t, recorder.Events, 1)
	assert.Equal(t, notify.EventReservationCreated, recorder.Events[0].Type)
	assert.Equal(t, "ged@example.com", recorder.Events[0].Email)
}

func TestConfirmAndCancel(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	recorder := &notify.Recorder{}
	svc := NewService(db, recorder)

	book, _, member := seed(t, db, models.CopyStatusLoaned)

	created, err := svc.CreateReservation(ctx, CreateReservationOptions{MemberID: member.ID, BookID: book.ID})
	require.NoError(t, err)

	reservation, err := svc.RetrieveReservation(ctx, RetrieveReservationOptions{ID: &created.ID})
	require.NoError(t, err)
	require.NoError(t, svc.Confirm(ctx, reservation))
	assert.Equal(t, models.ReservationStatusNotified, reservation.Status)

	err = svc.Cancel(ctx, reservation)
	assert.True(t, errcodes.HasCode(err, "reservation_rejected"))

	// The book can be reserved again once the earlier hold is no longer pending.
	second, err := svc.CreateReservation(ctx, CreateReservationOptions{MemberID: member.ID, BookID: book.ID})
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(ctx, second))

	pending, err := svc.CountPending(ctx, &member.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, pending)

	types := []string{}
	for _, e := range recorder.Events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{
		notify.EventReservationCreated,
		notify.EventReservationConfirmed,
		notify.EventReservationCreated,
		notify.EventReservationCancelled,
	}, types)
}

func TestCreateReservation_NotificationFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db, &notify.Recorder{Err: assert.AnError})

	book, _, member := seed(t, db, models.CopyStatusLost)

	reservation, err := svc.CreateReservation(ctx, CreateReservationOptions{MemberID: member.ID, BookID: book.ID})
	require.NoError(t, err)
	assert.NotZero(t, reservation.ID)
}

func TestListReservationsWithTotal(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db, notify.NewLogNotifier())

	book, _, member := seed(t, db, models.CopyStatusLoaned)
	_, err := svc.CreateReservation(ctx, CreateReservationOptions{MemberID: member.ID, BookID: book.ID})
	require.NoError(t, err)

	reservations, total, err := svc.ListReservationsWithTotal(ctx, ListReservationsOptions{Search: pointerutil.String("earthsea")})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.NotNil(t, reservations[0].Book)
	require.NotNil(t, reservations[0].Book.Author)
	assert.Equal(t, "Le Guin", reservations[0].Book.Author.Surname)

	_, total, err = svc.ListReservationsWithTotal(ctx, ListReservationsOptions{Status: pointerutil.String(models.ReservationStatusCancelled)})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}
