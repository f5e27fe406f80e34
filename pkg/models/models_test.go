package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	in := time.Date(2026, 3, 14, 23, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), DateOf(in))
	assert.Equal(t, "14/03/2026", FormatDate(DateOf(in)))
}

func TestLoan_IsLate(t *testing.T) {
	today := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	returnedAt := today

	tests := []struct {
		name string
		loan Loan
		want bool
	}{
		{"pending and due today", Loan{Status: LoanStatusPending, DueAt: today}, false},
		{"pending and due yesterday", Loan{Status: LoanStatusPending, DueAt: today.AddDate(0, 0, -1)}, true},
		{"already marked overdue", Loan{Status: LoanStatusOverdue, DueAt: today.AddDate(0, 0, 3)}, true},
		{"returned late", Loan{Status: LoanStatusReturned, DueAt: today.AddDate(0, 0, -9), ReturnedAt: &returnedAt}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.loan.IsLate(today))
		})
	}
}

func TestImportRun_Details(t *testing.T) {
	run := &ImportRun{DetailsParsed: &ImportRunDetails{
		Errors:         []string{"Row 3: missing title"},
		AuthorsCreated: 2,
	}}
	require.NoError(t, run.MarshalDetails())
	assert.JSONEq(t, `{"errors":["Row 3: missing title"],"authors_created":2}`, run.Details)

	loaded := &ImportRun{Details: run.Details}
	require.NoError(t, loaded.UnmarshalDetails())
	assert.Equal(t, run.DetailsParsed, loaded.DetailsParsed)
}

func TestJob_UnmarshalData(t *testing.T) {
	job := &Job{Type: JobTypeMarkOverdue, Data: `{"trigger":"schedule","marked":4}`}
	require.NoError(t, job.UnmarshalData())
	assert.Equal(t, &JobMarkOverdueData{Trigger: "schedule", Marked: 4}, job.DataParsed)

	unknown := &Job{Type: "reindex", Data: `{}`}
	assert.Error(t, unknown.UnmarshalData())
}

func TestUser_DisplayName(t *testing.T) {
	assert.Equal(t, "ana", (&User{Username: "ana"}).DisplayName())
	assert.Equal(t, "Ana Ruiz", (&User{Username: "ana", FirstName: "Ana", LastName: "Ruiz"}).DisplayName())
}
