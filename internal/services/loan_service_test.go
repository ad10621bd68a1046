package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"biblioteca/internal/models"
)

func TestCreateLoanMarksBookLoaned(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "Ana Pérez", "ana@example.com", models.UserStateActive)
	book := f.seedBook(t, "El Quijote", "978-84-376-0494-7")

	now := time.Now().UTC()
	loan, err := f.loans.CreateLoan(CreateLoanInput{
		BookID:   book.ID,
		UserID:   user.ID,
		IssuedBy: uuid.New(),
		LoanDate: now,
		DueDate:  now.AddDate(0, 0, 14),
	})
	require.NoError(t, err)
	require.Equal(t, models.LoanStateActive, loan.State)
	require.Equal(t, 0, loan.Renewals)
	require.Nil(t, loan.ReturnedAt)

	require.Equal(t, models.BookStateLoaned, f.reloadBook(t, book.ID).State)

	// A second borrower is rejected while the book is out.
	other := f.seedUser(t, "Luis Gómez", "luis@example.com", models.UserStateActive)
	_, err = f.loans.CreateLoan(CreateLoanInput{
		BookID:   book.ID,
		UserID:   other.ID,
		IssuedBy: uuid.New(),
		LoanDate: now,
		DueDate:  now.AddDate(0, 0, 14),
	})
	require.ErrorIs(t, err, ErrBookNotAvailable)
}

func TestCreateLoanValidations(t *testing.T) {
	f := newFixture(t)
	active := f.seedUser(t, "Ana", "ana@example.com", models.UserStateActive)
	inactive := f.seedUser(t, "Baja", "baja@example.com", models.UserStateInactive)
	book := f.seedBook(t, "Rayuela", "978-84-204-0574-7")

	now := time.Now().UTC()

	_, err := f.loans.CreateLoan(CreateLoanInput{
		BookID: book.ID, UserID: active.ID, IssuedBy: uuid.New(),
		LoanDate: now, DueDate: now,
	})
	require.ErrorIs(t, err, ErrInvalidDueDate)

	_, err = f.loans.CreateLoan(CreateLoanInput{
		BookID: book.ID, UserID: uuid.New(), IssuedBy: uuid.New(),
		LoanDate: now, DueDate: now.AddDate(0, 0, 7),
	})
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.loans.CreateLoan(CreateLoanInput{
		BookID: book.ID, UserID: inactive.ID, IssuedBy: uuid.New(),
		LoanDate: now, DueDate: now.AddDate(0, 0, 7),
	})
	require.ErrorIs(t, err, ErrUserInactive)

	_, err = f.loans.CreateLoan(CreateLoanInput{
		BookID: uuid.New(), UserID: active.ID, IssuedBy: uuid.New(),
		LoanDate: now, DueDate: now.AddDate(0, 0, 7),
	})
	require.ErrorIs(t, err, ErrBookNotFound)
}

func TestReturnLoanFreesBook(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "Ana", "ana@example.com", models.UserStateActive)
	book := f.seedBook(t, "Ficciones", "978-84-206-3312-6")

	now := time.Now().UTC()
	loan, err := f.loans.CreateLoan(CreateLoanInput{
		BookID: book.ID, UserID: user.ID, IssuedBy: uuid.New(),
		LoanDate: now, DueDate: now.AddDate(0, 0, 14),
	})
	require.NoError(t, err)

	returned, err := f.loans.ReturnLoan(loan.ID)
	require.NoError(t, err)
	require.Equal(t, models.LoanStateReturned, returned.State)
	require.NotNil(t, returned.ReturnedAt)

	require.Equal(t, models.BookStateAvailable, f.reloadBook(t, book.ID).State)

	// RETURNED is terminal.
	_, err = f.loans.ReturnLoan(loan.ID)
	require.ErrorIs(t, err, ErrLoanNotActive)

	// The freed book can go out again.
	_, err = f.loans.CreateLoan(CreateLoanInput{
		BookID: book.ID, UserID: user.ID, IssuedBy: uuid.New(),
		LoanDate: now, DueDate: now.AddDate(0, 0, 14),
	})
	require.NoError(t, err)
}

func TestRenewLoanPushesDueDateForward(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "Ana", "ana@example.com", models.UserStateActive)
	book := f.seedBook(t, "Pedro Páramo", "978-84-376-0222-6")

	loanDate := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	dueDate := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	loan, err := f.loans.CreateLoan(CreateLoanInput{
		BookID: book.ID, UserID: user.ID, IssuedBy: uuid.New(),
		LoanDate: loanDate, DueDate: dueDate,
	})
	require.NoError(t, err)

	// Not after the current due date.
	_, err = f.loans.RenewLoan(loan.ID, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, ErrInvalidRenewalDate)
	_, err = f.loans.RenewLoan(loan.ID, dueDate)
	require.ErrorIs(t, err, ErrInvalidRenewalDate)

	renewed, err := f.loans.RenewLoan(loan.ID, time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 1, renewed.Renewals)
	require.True(t, renewed.DueDate.Equal(time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)))

	_, err = f.loans.RenewLoan(uuid.New(), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, ErrLoanNotFound)

	_, err = f.loans.ReturnLoan(loan.ID)
	require.NoError(t, err)
	_, err = f.loans.RenewLoan(loan.ID, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, ErrLoanNotActive)
}

func TestListActiveLoansComputesDaysOverdue(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "Ana", "ana@example.com", models.UserStateActive)
	overdueBook := f.seedBook(t, "La Colmena", "978-84-376-0223-3")
	onTimeBook := f.seedBook(t, "Nada", "978-84-233-5100-1")

	now := time.Now().UTC()
	_, err := f.loans.CreateLoan(CreateLoanInput{
		BookID: overdueBook.ID, UserID: user.ID, IssuedBy: uuid.New(),
		LoanDate: now.AddDate(0, 0, -10), DueDate: now.AddDate(0, 0, -3),
	})
	require.NoError(t, err)
	_, err = f.loans.CreateLoan(CreateLoanInput{
		BookID: onTimeBook.ID, UserID: user.ID, IssuedBy: uuid.New(),
		LoanDate: now, DueDate: now.AddDate(0, 0, 7),
	})
	require.NoError(t, err)

	active, err := f.loans.ListActiveLoans()
	require.NoError(t, err)
	require.Len(t, active, 2)

	byBook := map[uuid.UUID]int{}
	for _, l := range active {
		byBook[l.BookID] = l.DaysOverdue
	}
	require.Equal(t, 3, byBook[overdueBook.ID])
	require.Equal(t, 0, byBook[onTimeBook.ID])
}

func TestSearchLoansByUserTitleAndISBN(t *testing.T) {
	f := newFixture(t)
	ana := f.seedUser(t, "Ana Pérez", "ana@example.com", models.UserStateActive)
	luis := f.seedUser(t, "Luis Gómez", "luis@example.com", models.UserStateActive)
	quijote := f.seedBook(t, "El Quijote", "978-84-376-0494-7")
	rayuela := f.seedBook(t, "Rayuela", "978-84-204-0574-7")

	now := time.Now().UTC()
	for _, pair := range []struct {
		user *models.User
		book *models.Book
	}{{ana, quijote}, {luis, rayuela}} {
		_, err := f.loans.CreateLoan(CreateLoanInput{
			BookID: pair.book.ID, UserID: pair.user.ID, IssuedBy: uuid.New(),
			LoanDate: now, DueDate: now.AddDate(0, 0, 14),
		})
		require.NoError(t, err)
	}

	byUser, err := f.loans.SearchLoans("ana")
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	require.Equal(t, ana.ID, byUser[0].UserID)

	byTitle, err := f.loans.SearchLoans("rayuela")
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	require.Equal(t, rayuela.ID, byTitle[0].BookID)

	byISBN, err := f.loans.SearchLoans("0494")
	require.NoError(t, err)
	require.Len(t, byISBN, 1)
	require.Equal(t, quijote.ID, byISBN[0].BookID)

	_, err = f.loans.SearchLoans("   ")
	require.Error(t, err)
}

func TestLatestLoan(t *testing.T) {
	f := newFixture(t)

	_, err := f.loans.LatestLoan()
	require.ErrorIs(t, err, ErrLoanNotFound)

	user := f.seedUser(t, "Ana", "ana@example.com", models.UserStateActive)
	older := f.seedBook(t, "Libro Antiguo", "978-84-000-0001-1")
	newer := f.seedBook(t, "Libro Nuevo", "978-84-000-0002-8")

	now := time.Now().UTC()
	_, err = f.loans.CreateLoan(CreateLoanInput{
		BookID: older.ID, UserID: user.ID, IssuedBy: uuid.New(),
		LoanDate: now.AddDate(0, 0, -5), DueDate: now.AddDate(0, 0, 9),
	})
	require.NoError(t, err)
	_, err = f.loans.CreateLoan(CreateLoanInput{
		BookID: newer.ID, UserID: user.ID, IssuedBy: uuid.New(),
		LoanDate: now, DueDate: now.AddDate(0, 0, 14),
	})
	require.NoError(t, err)

	latest, err := f.loans.LatestLoan()
	require.NoError(t, err)
	require.Equal(t, newer.ID, latest.BookID)
}
