package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		statements := []string{
			`
			CREATE TABLE users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				username TEXT NOT NULL UNIQUE COLLATE NOCASE,
				email TEXT COLLATE NOCASE,
				password_hash TEXT NOT NULL,
				first_name TEXT NOT NULL DEFAULT '',
				last_name TEXT NOT NULL DEFAULT '',
				is_admin BOOLEAN NOT NULL DEFAULT FALSE,
				is_active BOOLEAN NOT NULL DEFAULT TRUE
			)
			`,
			`
			CREATE TABLE authors (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				name TEXT NOT NULL,
				surname TEXT NOT NULL,
				nationality TEXT,
				birth_date TIMESTAMPTZ,
				bio TEXT
			)
			`,
			`CREATE INDEX ix_authors_full_name ON authors (name COLLATE NOCASE, surname COLLATE NOCASE)`,
			`
			CREATE TABLE books (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				title TEXT NOT NULL,
				author_id INTEGER REFERENCES authors (id) NOT NULL,
				isbn TEXT,
				publisher TEXT,
				published_at TIMESTAMPTZ,
				pages INTEGER,
				genre TEXT
			)
			`,
			`CREATE UNIQUE INDEX ux_books_isbn ON books (isbn) WHERE isbn IS NOT NULL`,
			`CREATE INDEX ix_books_author_id ON books (author_id)`,
			`CREATE INDEX ix_books_title ON books (title COLLATE NOCASE)`,
			`
			CREATE TABLE copies (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				book_id INTEGER REFERENCES books (id) ON DELETE CASCADE NOT NULL,
				code TEXT NOT NULL UNIQUE,
				status TEXT NOT NULL DEFAULT 'available',
				location TEXT
			)
			`,
			`CREATE INDEX ix_copies_book_id_status ON copies (book_id, status)`,
			`
			CREATE TABLE members (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				user_id INTEGER UNIQUE REFERENCES users (id) ON DELETE SET NULL,
				name TEXT NOT NULL,
				surname TEXT NOT NULL,
				identification TEXT NOT NULL UNIQUE,
				email TEXT NOT NULL UNIQUE COLLATE NOCASE,
				phone TEXT,
				is_active BOOLEAN NOT NULL DEFAULT TRUE
			)
			`,
			`
			CREATE TABLE staff (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				user_id INTEGER UNIQUE REFERENCES users (id) ON DELETE CASCADE NOT NULL,
				name TEXT NOT NULL,
				surname TEXT NOT NULL,
				position TEXT NOT NULL,
				is_active BOOLEAN NOT NULL DEFAULT TRUE
			)
			`,
			`
			CREATE TABLE loans (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				member_id INTEGER REFERENCES members (id) NOT NULL,
				copy_id INTEGER REFERENCES copies (id) NOT NULL,
				loaned_at TIMESTAMPTZ NOT NULL,
				due_at TIMESTAMPTZ NOT NULL,
				returned_at TIMESTAMPTZ,
				status TEXT NOT NULL DEFAULT 'pending',
				notes TEXT
			)
			`,
			// A copy can only be out on one pending loan at a time.
			`CREATE UNIQUE INDEX ux_loans_pending_copy ON loans (copy_id) WHERE status = 'pending'`,
			`CREATE INDEX ix_loans_member_id_status ON loans (member_id, status)`,
			`CREATE INDEX ix_loans_status_due_at ON loans (status, due_at)`,
			`
			CREATE TABLE reservations (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				member_id INTEGER REFERENCES members (id) NOT NULL,
				book_id INTEGER REFERENCES books (id) NOT NULL,
				reserved_at TIMESTAMPTZ NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending',
				notes TEXT
			)
			`,
			`CREATE UNIQUE INDEX ux_reservations_pending ON reservations (member_id, book_id) WHERE status = 'pending'`,
			`
			CREATE TABLE import_runs (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				type TEXT NOT NULL,
				file_path TEXT NOT NULL DEFAULT '',
				user_id INTEGER REFERENCES users (id) ON DELETE SET NULL,
				total_rows INTEGER NOT NULL DEFAULT 0,
				created INTEGER NOT NULL DEFAULT 0,
				updated INTEGER NOT NULL DEFAULT 0,
				skipped INTEGER NOT NULL DEFAULT 0,
				error_count INTEGER NOT NULL DEFAULT 0,
				details TEXT,
				notes TEXT
			)
			`,
			`CREATE INDEX ix_import_runs_type_created_at ON import_runs (type, created_at)`,
		}

		for _, stmt := range statements {
			if _, err := db.Exec(stmt); err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	down := func(_ context.Context, db *bun.DB) error {
		tables := []string{"import_runs", "reservations", "loans", "staff", "members", "copies", "books", "authors", "users"}
		for _, table := range tables {
			if _, err := db.Exec("DROP TABLE IF EXISTS " + table); err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	Migrations.MustRegister(up, down)
}
