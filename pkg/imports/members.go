package imports

import (
	"context"
	"strings"
	"time"

	"github.com/bibliotech/bibliotech/pkg/auth"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/bibliotech/bibliotech/pkg/users"
	"github.com/pkg/errors"
)

type memberRow struct {
	name           string
	surname        string
	identification string
	email          string
	phone          *string
	active         bool
}

func parseMemberRow(r record) (*memberRow, []string) {
	var problems []string
	name := titleCase(r.get(colName))
	surname := titleCase(r.get(colSurname))
	identification := cleanText(r.get(colIdentification))
	email := cleanEmail(r.get(colEmail))
	if name == "" {
		problems = append(problems, "name is required")
	}
	if surname == "" {
		problems = append(problems, "surname is required")
	}
	if identification == "" {
		problems = append(problems, "identification is required")
	}
	if p := emailProblem(email); p != "" {
		problems = append(problems, p)
	}
	if len(problems) > 0 {
		return nil, problems
	}
	return &memberRow{
		name:           name,
		surname:        surname,
		identification: identification,
		email:          email,
		phone:          textPtr(r.get(colPhone)),
		active:         parseBool(r.get(colActive)),
	}, nil
}

func (im *importer) members(ctx context.Context, records []record) error {
	var stored []*models.Member
	if err := im.tx.NewSelect().Model(&stored).Scan(ctx); err != nil {
		return errors.WithStack(err)
	}
	byIdentification := make(map[string]*models.Member, len(stored))
	byEmail := make(map[string]*models.Member, len(stored))
	for _, m := range stored {
		byIdentification[m.Identification] = m
		byEmail[strings.ToLower(m.Email)] = m
	}

	now := time.Now()
	var toCreate, toUpdate []*models.Member
	queued := map[int]bool{}
	invalidate := map[int]bool{}

	for _, r := range records {
		row, problems := parseMemberRow(r)
		if len(problems) > 0 {
			im.skip(r.number, "%s", strings.Join(problems, ", "))
			continue
		}

		existing, ok := byIdentification[row.identification]
		if !ok {
			existing, ok = byEmail[row.email]
		}
		if ok {
			if !im.opts.UpdateExisting {
				im.skip(r.number, "member with identification '%s' or email '%s' already exists", row.identification, row.email)
				continue
			}
			if other, taken := byEmail[row.email]; taken && other != existing {
				im.skip(r.number, "email '%s' belongs to another member", row.email)
				continue
			}

			delete(byEmail, strings.ToLower(existing.Email))
			byEmail[row.email] = existing
			if existing.IsActive != row.active && existing.UserID != nil {
				invalidate[*existing.UserID] = true
			}
			existing.Name = row.name
			existing.Surname = row.surname
			existing.Email = row.email
			if row.phone != nil {
				existing.Phone = row.phone
			}
			existing.IsActive = row.active
			existing.UpdatedAt = now
			if existing.ID != 0 && !queued[existing.ID] {
				queued[existing.ID] = true
				toUpdate = append(toUpdate, existing)
			}
			im.result.Updated++
			continue
		}

		member := &models.Member{
			CreatedAt:      now,
			UpdatedAt:      now,
			Name:           row.name,
			Surname:        row.surname,
			Identification: row.identification,
			Email:          row.email,
			Phone:          row.phone,
			IsActive:       row.active,
		}
		byIdentification[member.Identification] = member
		byEmail[member.Email] = member
		toCreate = append(toCreate, member)
		im.result.Created++
	}

	// Updates run in row order, so an email released by an earlier row can
	// be taken by a later one.
	if err := updateEach(ctx, im.tx, toUpdate, "name", "surname", "email", "phone", "is_active"); err != nil {
		return err
	}
	if err := insertBatches(ctx, im.tx, toCreate); err != nil {
		return err
	}
	im.invalidate = sortedKeys(invalidate)

	if !im.opts.CreateUsers {
		return nil
	}
	return im.createUsers(ctx, toCreate)
}

// createUsers gives each member an account named after the local part of
// their email and their identification, with a random temporary password.
func (im *importer) createUsers(ctx context.Context, members []*models.Member) error {
	if len(members) == 0 {
		return nil
	}

	taken := map[string]bool{}
	accounts := make([]*models.User, 0, len(members))
	for _, m := range members {
		local := m.Email[:strings.LastIndex(m.Email, "@")]
		username, err := users.UniqueUsername(ctx, im.tx, local+"_"+m.Identification, taken)
		if err != nil {
			return err
		}
		hash, err := auth.HashTemporaryPassword(users.TemporaryPassword())
		if err != nil {
			return err
		}
		email := m.Email
		accounts = append(accounts, &models.User{
			CreatedAt:    m.CreatedAt,
			UpdatedAt:    m.CreatedAt,
			Username:     username,
			Email:        &email,
			PasswordHash: hash,
			FirstName:    m.Name,
			LastName:     m.Surname,
			IsActive:     m.IsActive,
		})
	}

	if err := insertBatches(ctx, im.tx, accounts); err != nil {
		return err
	}
	for i, m := range members {
		m.UserID = &accounts[i].ID
	}
	if err := updateEach(ctx, im.tx, members, "user_id"); err != nil {
		return err
	}
	im.result.UsersCreated = len(accounts)
	return nil
}
