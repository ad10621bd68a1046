package services

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"biblioteca/internal/models"
	"biblioteca/internal/repositories"
)

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

var (
	// ErrBookNotFound is returned when the requested book does not exist.
	ErrBookNotFound = errors.New("book not found")

	// ErrUserNotFound is returned when the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserInactive is returned when the borrowing user's account is not active.
	ErrUserInactive = errors.New("user is not active")

	// ErrLoanNotFound is returned when the referenced loan does not exist.
	ErrLoanNotFound = errors.New("loan not found")

	// ErrLoanNotActive is returned when a return or renewal targets a loan
	// that has already been closed.
	ErrLoanNotActive = errors.New("loan is not active")

	// ErrBookNotAvailable is returned when a loan is requested for a book
	// whose state is not AVAILABLE (already loaned or reserved).
	ErrBookNotAvailable = errors.New("book is not available")

	// ErrInvalidDueDate is returned when a due date does not lie strictly
	// after the dates it must follow.
	ErrInvalidDueDate = errors.New("due date must be later than the loan date")

	// ErrInvalidRenewalDate is returned when a renewal date is not later than
	// both the current due date and the loan date.
	ErrInvalidRenewalDate = errors.New("new due date must be later than the current due date")

	// ErrBookConflict is returned when a concurrent writer changed the book's
	// state between our read and our write. The request can be retried.
	ErrBookConflict = errors.New("book was modified concurrently, retry the operation")
)

// ─── Loan Service ─────────────────────────────────────────────────────────────

// CreateLoanInput carries everything needed to issue a loan. IssuedBy is the
// authenticated staff principal, passed explicitly per request.
type CreateLoanInput struct {
	BookID   uuid.UUID
	UserID   uuid.UUID
	IssuedBy uuid.UUID
	LoanDate time.Time
	DueDate  time.Time
}

// LoanWithOverdue decorates a loan with its days-overdue count,
// max(0, today - dueDate) in whole calendar days.
type LoanWithOverdue struct {
	models.Loan
	DaysOverdue int `json:"days_overdue"`
}

// LoanService owns the loan lifecycle: Active -> Returned, one way.
type LoanService interface {
	CreateLoan(in CreateLoanInput) (*models.Loan, error)
	RenewLoan(loanID uuid.UUID, newDueDate time.Time) (*models.Loan, error)
	ReturnLoan(loanID uuid.UUID) (*models.Loan, error)

	LatestLoan() (*models.Loan, error)
	ListLoans() ([]models.Loan, error)
	ListActiveLoans() ([]LoanWithOverdue, error)
	SearchLoans(term string) ([]models.Loan, error)
}

type loanService struct {
	db       *gorm.DB
	userRepo repositories.UserRepository
	bookRepo repositories.BookRepository
	loanRepo repositories.LoanRepository
}

func NewLoanService(
	db *gorm.DB,
	userRepo repositories.UserRepository,
	bookRepo repositories.BookRepository,
	loanRepo repositories.LoanRepository,
) LoanService {
	return &loanService{
		db:       db,
		userRepo: userRepo,
		bookRepo: bookRepo,
		loanRepo: loanRepo,
	}
}

// CreateLoan issues a loan inside one transaction.
//
// Book.State is the single source of truth for availability: the book row is
// locked, its state must be AVAILABLE, and the state flip to LOANED is written
// with a version-conditional update. The active-loan row check is kept as a
// backstop inside the same transaction, so the two can never disagree.
func (s *loanService) CreateLoan(in CreateLoanInput) (*models.Loan, error) {
	if !in.DueDate.After(in.LoanDate) {
		return nil, ErrInvalidDueDate
	}

	var created *models.Loan

	err := s.db.Transaction(func(tx *gorm.DB) error {
		user, err := s.userRepo.GetByID(tx, in.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if user.State != models.UserStateActive {
			return ErrUserInactive
		}

		book, err := s.bookRepo.GetByIDForUpdate(tx, in.BookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}
		if book.State != models.BookStateAvailable {
			return ErrBookNotAvailable
		}

		// Backstop: the state flag and the loan table must agree.
		hasActive, err := s.loanRepo.ExistsActiveForBook(tx, in.BookID)
		if err != nil {
			return err
		}
		if hasActive {
			log.Printf("[WARN] CreateLoan: book %s is AVAILABLE but has an active loan row", in.BookID)
			return ErrBookNotAvailable
		}

		loan := &models.Loan{
			BookID:   in.BookID,
			UserID:   in.UserID,
			IssuedBy: in.IssuedBy,
			LoanDate: in.LoanDate,
			DueDate:  in.DueDate,
			Renewals: 0,
			State:    models.LoanStateActive,
		}
		if err := s.loanRepo.Create(tx, loan); err != nil {
			log.Printf("[ERROR] CreateLoan: failed to create loan record: %v", err)
			return err
		}

		affected, err := s.bookRepo.SetState(tx, book.ID, models.BookStateLoaned, book.Version)
		if err != nil {
			log.Printf("[ERROR] CreateLoan: failed to mark book %s LOANED: %v", book.ID, err)
			return err
		}
		if affected == 0 {
			return ErrBookConflict
		}

		created = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] CreateLoan: loan %s issued for book %s / user %s, due %s",
		created.ID, created.BookID, created.UserID, created.DueDate.Format("2006-01-02"))
	return created, nil
}

// RenewLoan pushes the due date of an active loan forward and counts the renewal.
func (s *loanService) RenewLoan(loanID uuid.UUID, newDueDate time.Time) (*models.Loan, error) {
	var renewed *models.Loan

	err := s.db.Transaction(func(tx *gorm.DB) error {
		loan, err := s.loanRepo.GetByIDForUpdate(tx, loanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLoanNotFound
			}
			return err
		}
		if loan.State != models.LoanStateActive {
			return ErrLoanNotActive
		}
		if !newDueDate.After(loan.DueDate) || !newDueDate.After(loan.LoanDate) {
			return ErrInvalidRenewalDate
		}

		if err := s.loanRepo.Renew(tx, loan.ID, newDueDate); err != nil {
			log.Printf("[ERROR] RenewLoan: failed to renew loan %s: %v", loanID, err)
			return err
		}

		loan.DueDate = newDueDate
		loan.Renewals++
		renewed = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] RenewLoan: loan %s renewed to %s (renewals=%d)",
		renewed.ID, renewed.DueDate.Format("2006-01-02"), renewed.Renewals)
	return renewed, nil
}

// ReturnLoan closes an active loan and frees the book.
//
// The next queued reservation is NOT promoted here; freeing the book is
// unconditional and a later reservation starts a fresh priority sequence.
func (s *loanService) ReturnLoan(loanID uuid.UUID) (*models.Loan, error) {
	var returned *models.Loan

	err := s.db.Transaction(func(tx *gorm.DB) error {
		loan, err := s.loanRepo.GetByIDForUpdate(tx, loanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLoanNotFound
			}
			return err
		}
		if loan.State != models.LoanStateActive {
			return ErrLoanNotActive
		}

		now := time.Now().UTC()
		if err := s.loanRepo.MarkReturned(tx, loan.ID, now); err != nil {
			log.Printf("[ERROR] ReturnLoan: failed to mark loan %s returned: %v", loanID, err)
			return err
		}

		book, err := s.bookRepo.GetByIDForUpdate(tx, loan.BookID)
		if err != nil {
			return err
		}
		affected, err := s.bookRepo.SetState(tx, book.ID, models.BookStateAvailable, book.Version)
		if err != nil {
			log.Printf("[ERROR] ReturnLoan: failed to mark book %s AVAILABLE: %v", book.ID, err)
			return err
		}
		if affected == 0 {
			return ErrBookConflict
		}

		loan.State = models.LoanStateReturned
		loan.ReturnedAt = &now
		returned = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] ReturnLoan: loan %s returned, book %s freed", returned.ID, returned.BookID)
	return returned, nil
}

// ─── Queries ──────────────────────────────────────────────────────────────────

func (s *loanService) LatestLoan() (*models.Loan, error) {
	loan, err := s.loanRepo.Latest(nil)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}
	return loan, nil
}

func (s *loanService) ListLoans() ([]models.Loan, error) {
	return s.loanRepo.List(nil)
}

func (s *loanService) ListActiveLoans() ([]LoanWithOverdue, error) {
	loans, err := s.loanRepo.ListActive(nil)
	if err != nil {
		return nil, err
	}
	out := make([]LoanWithOverdue, 0, len(loans))
	now := time.Now().UTC()
	for _, loan := range loans {
		out = append(out, LoanWithOverdue{
			Loan:        loan,
			DaysOverdue: daysOverdue(loan.DueDate, now),
		})
	}
	return out, nil
}

func (s *loanService) SearchLoans(term string) ([]models.Loan, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, errors.New("search term must not be empty")
	}
	return s.loanRepo.Search(nil, term)
}

// daysOverdue computes max(0, today - dueDate) in whole calendar days,
// truncating both timestamps to midnight UTC.
func daysOverdue(dueDate, now time.Time) int {
	dueMidnight := dueDate.UTC().Truncate(24 * time.Hour)
	nowMidnight := now.UTC().Truncate(24 * time.Hour)
	days := int(nowMidnight.Sub(dueMidnight).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
