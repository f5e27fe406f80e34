package imports

import (
	"context"
	"strings"
	"time"

	"github.com/bibliotech/bibliotech/pkg/models"
)

type authorRow struct {
	name        string
	surname     string
	nationality *string
	birthDate   *time.Time
	bio         *string
}

func parseAuthorRow(r record) (*authorRow, []string) {
	var problems []string
	name := titleCase(r.get(colName))
	surname := titleCase(r.get(colSurname))
	if name == "" {
		problems = append(problems, "name is required")
	}
	if surname == "" {
		problems = append(problems, "surname is required")
	}
	if len(problems) > 0 {
		return nil, problems
	}
	return &authorRow{
		name:        name,
		surname:     surname,
		nationality: textPtr(r.get(colNationality)),
		birthDate:   parseDate(r.get(colBirthDate)),
		bio:         textPtr(r.get(colBio)),
	}, nil
}

// apply overwrites the mutable fields of a. Name and surname are the
// author's identity and are left alone.
func (row *authorRow) apply(a *models.Author) {
	if row.nationality != nil {
		a.Nationality = row.nationality
	}
	if row.birthDate != nil {
		a.BirthDate = row.birthDate
	}
	if row.bio != nil {
		a.Bio = row.bio
	}
}

func (im *importer) authors(ctx context.Context, records []record) error {
	byKey, err := im.loadAuthors(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	var toCreate, toUpdate []*models.Author
	queued := map[int]bool{}

	for _, r := range records {
		row, problems := parseAuthorRow(r)
		if len(problems) > 0 {
			im.skip(r.number, "%s", strings.Join(problems, ", "))
			continue
		}

		key := authorKey(row.name, row.surname)
		if existing, ok := byKey[key]; ok {
			if !im.opts.UpdateExisting {
				im.skip(r.number, "author '%s %s' already exists", row.name, row.surname)
				continue
			}
			row.apply(existing)
			existing.UpdatedAt = now
			// Authors created earlier in this file are still pending
			// insertion and pick up the new values as they are.
			if existing.ID != 0 && !queued[existing.ID] {
				queued[existing.ID] = true
				toUpdate = append(toUpdate, existing)
			}
			im.result.Updated++
			continue
		}

		author := &models.Author{CreatedAt: now, UpdatedAt: now, Name: row.name, Surname: row.surname}
		row.apply(author)
		byKey[key] = author
		toCreate = append(toCreate, author)
		im.result.Created++
	}

	if err := insertBatches(ctx, im.tx, toCreate); err != nil {
		return err
	}
	return updateBulk(ctx, im.tx, toUpdate, "nationality", "birth_date", "bio")
}
