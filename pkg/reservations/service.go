package reservations

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bibliotech/bibliotech/pkg/books"
	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/bibliotech/bibliotech/pkg/notify"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

type CreateReservationOptions struct {
	MemberID int
	BookID   int
	Notes    *string
}

type RetrieveReservationOptions struct {
	ID       *int
	MemberID *int
}

type ListReservationsOptions struct {
	Limit    *int
	Offset   *int
	Search   *string
	Status   *string
	MemberID *int

	includeTotal bool
}

type Service struct {
	db       *bun.DB
	notifier notify.Notifier
}

func NewService(db *bun.DB, notifier notify.Notifier) *Service {
	return &Service{db, notifier}
}

// CreateReservation places a hold on a book. Holds are only taken while no
// copy is on the shelf, and a member can hold a book once at a time.
func (svc *Service) CreateReservation(ctx context.Context, opts CreateReservationOptions) (*models.Reservation, error) {
	member := &models.Member{}
	if err := svc.db.NewSelect().Model(member).Where("m.id = ?", opts.MemberID).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Member")
		}
		return nil, errors.WithStack(err)
	}
	if !member.IsActive {
		return nil, errcodes.ReservationRejected("Member is not active.")
	}

	book := &models.Book{}
	if err := svc.db.NewSelect().Model(book).Where("b.id = ?", opts.BookID).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	reservation := &models.Reservation{
		MemberID: member.ID,
		BookID:   book.ID,
		Status:   models.ReservationStatusPending,
		Notes:    opts.Notes,
	}

	err := svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		available, err := books.CountAvailableCopies(ctx, tx, book.ID)
		if err != nil {
			return err
		}
		if available > 0 {
			return errcodes.ReservationRejected("This book has copies available. Borrow one instead of reserving it.")
		}

		exists, err := tx.NewSelect().
			Model((*models.Reservation)(nil)).
			Where("member_id = ?", member.ID).
			Where("book_id = ?", book.ID).
			Where("status = ?", models.ReservationStatusPending).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if exists {
			return errcodes.ReservationRejected("You already have a pending reservation for this book.")
		}

		now := time.Now()
		reservation.CreatedAt = now
		reservation.UpdatedAt = now
		reservation.ReservedAt = now
		_, err = tx.NewInsert().Model(reservation).Returning("*").Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}

	reservation.Member = member
	reservation.Book = book

	logger.FromContext(ctx).Info("reservation created", logger.Data{"reservation_id": reservation.ID, "member_id": member.ID, "book_id": book.ID})
	svc.send(ctx, notify.EventReservationCreated, reservation,
		"Reservation received",
		fmt.Sprintf("We have your reservation for %q. We'll let you know when a copy is ready.", book.Title))

	return reservation, nil
}

func (svc *Service) RetrieveReservation(ctx context.Context, opts RetrieveReservationOptions) (*models.Reservation, error) {
	reservation := &models.Reservation{}

	q := svc.db.
		NewSelect().
		Model(reservation).
		Relation("Member").
		Relation("Book").
		Relation("Book.Author")

	if opts.ID != nil {
		q = q.Where("r.id = ?", *opts.ID)
	}
	if opts.MemberID != nil {
		q = q.Where("r.member_id = ?", *opts.MemberID)
	}

	err := q.Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Reservation")
		}
		return nil, errors.WithStack(err)
	}

	return reservation, nil
}

func (svc *Service) ListReservations(ctx context.Context, opts ListReservationsOptions) ([]*models.Reservation, error) {
	r, _, err := svc.listReservationsWithTotal(ctx, opts)
	return r, errors.WithStack(err)
}

func (svc *Service) ListReservationsWithTotal(ctx context.Context, opts ListReservationsOptions) ([]*models.Reservation, int, error) {
	opts.includeTotal = true
	return svc.listReservationsWithTotal(ctx, opts)
}

func (svc *Service) listReservationsWithTotal(ctx context.Context, opts ListReservationsOptions) ([]*models.Reservation, int, error) {
	var reservations []*models.Reservation
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&reservations).
		Relation("Member").
		Relation("Book").
		Relation("Book.Author").
		OrderExpr("r.reserved_at DESC, r.id DESC")

	if opts.Search != nil && *opts.Search != "" {
		like := "%" + *opts.Search + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("member.name LIKE ?", like).
				WhereOr("member.surname LIKE ?", like).
				WhereOr("book.title LIKE ?", like)
		})
	}
	if opts.Status != nil {
		q = q.Where("r.status = ?", *opts.Status)
	}
	if opts.MemberID != nil {
		q = q.Where("r.member_id = ?", *opts.MemberID)
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

	return reservations, total, nil
}

// CountPending counts pending reservations, optionally for one member.
func (svc *Service) CountPending(ctx context.Context, memberID *int) (int, error) {
	q := svc.db.NewSelect().
		Model((*models.Reservation)(nil)).
		Where("status = ?", models.ReservationStatusPending)
	if memberID != nil {
		q = q.Where("member_id = ?", *memberID)
	}
	n, err := q.Count(ctx)
	return n, errors.WithStack(err)
}

// Confirm tells the member their reserved book is ready. Only pending
// reservations can be confirmed.
func (svc *Service) Confirm(ctx context.Context, reservation *models.Reservation) error {
	if err := svc.transition(ctx, reservation, models.ReservationStatusNotified); err != nil {
		return err
	}

	title := ""
	if reservation.Book != nil {
		title = reservation.Book.Title
	}
	svc.send(ctx, notify.EventReservationConfirmed, reservation,
		"Your reservation is ready",
		fmt.Sprintf("A copy of %q is waiting for you at the desk.", title))
	return nil
}

// Cancel withdraws a pending reservation.
func (svc *Service) Cancel(ctx context.Context, reservation *models.Reservation) error {
	if err := svc.transition(ctx, reservation, models.ReservationStatusCancelled); err != nil {
		return err
	}

	title := ""
	if reservation.Book != nil {
		title = reservation.Book.Title
	}
	svc.send(ctx, notify.EventReservationCancelled, reservation,
		"Reservation cancelled",
		fmt.Sprintf("Your reservation for %q has been cancelled.", title))
	return nil
}

func (svc *Service) transition(ctx context.Context, reservation *models.Reservation, status string) error {
	if reservation.Status != models.ReservationStatusPending {
		return errcodes.ReservationRejected(fmt.Sprintf("Only pending reservations can be %s.", status))
	}

	now := time.Now()
	res, err := svc.db.NewUpdate().
		Model((*models.Reservation)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", now).
		Where("id = ?", reservation.ID).
		Where("status = ?", models.ReservationStatusPending).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.WithStack(err)
	} else if n == 0 {
		return errcodes.ReservationRejected(fmt.Sprintf("Only pending reservations can be %s.", status))
	}

	reservation.Status = status
	reservation.UpdatedAt = now
	logger.FromContext(ctx).Info("reservation updated", logger.Data{"reservation_id": reservation.ID, "status": status})
	return nil
}

func (svc *Service) send(ctx context.Context, eventType string, reservation *models.Reservation, subject, message string) {
	email := ""
	if reservation.Member != nil {
		email = reservation.Member.Email
	}
	event := notify.NewEvent(eventType, reservation.MemberID, email, subject, message)
	event.Payload["reservation_id"] = reservation.ID
	event.Payload["book_id"] = reservation.BookID
	notify.Send(ctx, svc.notifier, event)
}
