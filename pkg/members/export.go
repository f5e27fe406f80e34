package members

import (
	"context"

	"github.com/bibliotech/bibliotech/pkg/models"
)

var ExportHeader = []string{"name", "surname", "identification", "email", "active", "registered_at"}

// ExportRows returns every member as a CSV row, in the same order as the
// member list.
func (svc *Service) ExportRows(ctx context.Context) ([][]string, error) {
	members, err := svc.ListMembers(ctx, ListMembersOptions{})
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(members))
	for _, m := range members {
		active := "no"
		if m.IsActive {
			active = "yes"
		}
		rows = append(rows, []string{
			m.Name,
			m.Surname,
			m.Identification,
			m.Email,
			active,
			models.FormatDate(m.CreatedAt),
		})
	}
	return rows, nil
}
