package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"biblioteca/internal/models"
)

func TestLoanStats(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "Ana", "ana@example.com", models.UserStateActive)
	popular := f.seedBook(t, "Cien años de soledad", "978-84-376-0494-7")
	other := f.seedBook(t, "Rayuela", "978-84-204-0574-7")

	day3 := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	day5 := time.Date(2025, 3, 5, 16, 0, 0, 0, time.UTC)
	returnedAt := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	seedLoan := func(book *models.Book, loanDate time.Time, state models.LoanState, returned *time.Time) {
		require.NoError(t, f.db.Create(&models.Loan{
			BookID:     book.ID,
			UserID:     user.ID,
			IssuedBy:   uuid.New(),
			LoanDate:   loanDate,
			DueDate:    loanDate.AddDate(0, 0, 14),
			ReturnedAt: returned,
			State:      state,
		}).Error)
	}

	seedLoan(popular, day3, models.LoanStateActive, nil)
	seedLoan(popular, day5, models.LoanStateReturned, &returnedAt)
	seedLoan(other, day3, models.LoanStateActive, nil)

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC)

	stats, err := f.stats.LoanStats(from, to)
	require.NoError(t, err)

	require.Equal(t, int64(3), stats.LoansInRange)
	require.Equal(t, int64(2), stats.ActiveLoans)
	require.Equal(t, int64(1), stats.ReturnedInRange)
	require.Equal(t, int64(2), stats.BooksLoaned)
	require.Equal(t, int64(0), stats.BooksAvailable)

	require.Equal(t, []DayCount{
		{Date: "03/03", Count: 2},
		{Date: "05/03", Count: 1},
	}, stats.LoansPerDay)

	require.Len(t, stats.TopBooks, 2)
	require.Equal(t, "Cien años de soledad", stats.TopBooks[0].Title)
	require.Equal(t, int64(2), stats.TopBooks[0].Count)
	require.Equal(t, "Rayuela", stats.TopBooks[1].Title)
	require.Equal(t, int64(1), stats.TopBooks[1].Count)
}

func TestLoanStatsDefaultsToCurrentMonth(t *testing.T) {
	f := newFixture(t)

	stats, err := f.stats.LoanStats(time.Time{}, time.Time{})
	require.NoError(t, err)

	now := time.Now().UTC()
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	require.True(t, stats.From.Equal(firstOfMonth))
	require.True(t, stats.To.Equal(firstOfMonth.AddDate(0, 1, 0).AddDate(0, 0, -1)))
	require.Empty(t, stats.LoansPerDay)
	require.Empty(t, stats.TopBooks)
}
