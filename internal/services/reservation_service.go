package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"biblioteca/internal/models"
	"biblioteca/internal/repositories"
)

// MaxActiveReservationsPerUser caps how many ACTIVE reservations one user may
// hold system-wide, so a single user cannot hoard the queue across many titles.
const MaxActiveReservationsPerUser = 3

var (
	// ErrReservationNotFound is returned when the referenced reservation does not exist.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrReservationNotActive is returned when a cancel targets a reservation
	// already cancelled or expired.
	ErrReservationNotActive = errors.New("reservation is not active")

	// ErrReservationCapExceeded is returned when the user already holds the
	// maximum number of active reservations.
	ErrReservationCapExceeded = errors.New("user already holds the maximum number of active reservations")

	// ErrDuplicateReservation is returned when the user already has an active
	// reservation for the same book.
	ErrDuplicateReservation = errors.New("user already has an active reservation for this book")
)

// ExpireResult summarizes one expiration sweep.
type ExpireResult struct {
	Processed     int `json:"processed"`
	BooksFreed    int `json:"books_freed"`
	UsersNotified int `json:"users_notified"`
}

// ReservationFilter narrows ListReservations. The HTTP layer pins non-staff
// callers to their own user id before building the filter; staff may set any
// user id, or none to list everything.
type ReservationFilter struct {
	UserID *uuid.UUID
	State  *models.ReservationState
}

// ReservationService owns the reservation lifecycle:
// Active -> Cancelled or Active -> Expired, both terminal.
type ReservationService interface {
	CreateReservation(bookID, userID uuid.UUID) (*models.Reservation, error)
	CancelReservation(reservationID uuid.UUID) error
	ExpireReservations(cutoffAgeDays int) (*ExpireResult, error)

	ListReservations(filter ReservationFilter) ([]models.Reservation, error)
	CountActiveForUser(userID uuid.UUID) (int64, error)
}

type reservationService struct {
	db       *gorm.DB
	userRepo repositories.UserRepository
	bookRepo repositories.BookRepository
	resRepo  repositories.ReservationRepository
	notifier NotificationService
}

func NewReservationService(
	db *gorm.DB,
	userRepo repositories.UserRepository,
	bookRepo repositories.BookRepository,
	resRepo repositories.ReservationRepository,
	notifier NotificationService,
) ReservationService {
	return &reservationService{
		db:       db,
		userRepo: userRepo,
		bookRepo: bookRepo,
		resRepo:  resRepo,
		notifier: notifier,
	}
}

// CreateReservation places a claim on an available book.
//
// Preconditions, checked in order: book exists; user exists; user's active
// reservation count is under the global cap; book state is AVAILABLE; the user
// has no active reservation for this same book. Priority continues the book's
// active sequence: 1 + max(active priorities), so a fully drained queue
// restarts at 1.
func (s *reservationService) CreateReservation(bookID, userID uuid.UUID) (*models.Reservation, error) {
	var created *models.Reservation

	err := s.db.Transaction(func(tx *gorm.DB) error {
		book, err := s.bookRepo.GetByIDForUpdate(tx, bookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		if _, err := s.userRepo.GetByID(tx, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		activeCount, err := s.resRepo.CountActiveByUser(tx, userID)
		if err != nil {
			return err
		}
		if activeCount >= MaxActiveReservationsPerUser {
			return ErrReservationCapExceeded
		}

		if book.State != models.BookStateAvailable {
			return ErrBookNotAvailable
		}

		duplicate, err := s.resRepo.ExistsActiveByUserAndBook(tx, userID, bookID)
		if err != nil {
			return err
		}
		if duplicate {
			return ErrDuplicateReservation
		}

		maxPriority, err := s.resRepo.MaxActivePriority(tx, bookID)
		if err != nil {
			return err
		}

		reservation := &models.Reservation{
			BookID:     bookID,
			UserID:     userID,
			ReservedAt: time.Now().UTC(),
			Priority:   maxPriority + 1,
			State:      models.ReservationStateActive,
		}
		if err := s.resRepo.Create(tx, reservation); err != nil {
			log.Printf("[ERROR] CreateReservation: failed to create reservation for user %s / book %s: %v", userID, bookID, err)
			return err
		}

		affected, err := s.bookRepo.SetState(tx, book.ID, models.BookStateReserved, book.Version)
		if err != nil {
			log.Printf("[ERROR] CreateReservation: failed to mark book %s RESERVED: %v", book.ID, err)
			return err
		}
		if affected == 0 {
			return ErrBookConflict
		}

		created = reservation
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] CreateReservation: reservation %s created for user %s / book %s at priority %d",
		created.ID, created.UserID, created.BookID, created.Priority)
	return created, nil
}

// CancelReservation transitions an active reservation to CANCELLED and frees
// the book unconditionally.
func (s *reservationService) CancelReservation(reservationID uuid.UUID) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		reservation, err := s.resRepo.GetByIDForUpdate(tx, reservationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReservationNotFound
			}
			return err
		}
		if reservation.State != models.ReservationStateActive {
			return ErrReservationNotActive
		}

		affected, err := s.resRepo.SetStateIfActive(tx, reservation.ID, models.ReservationStateCancelled)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrReservationNotActive
		}

		book, err := s.bookRepo.GetByIDForUpdate(tx, reservation.BookID)
		if err != nil {
			return err
		}
		rows, err := s.bookRepo.SetState(tx, book.ID, models.BookStateAvailable, book.Version)
		if err != nil {
			log.Printf("[ERROR] CancelReservation: failed to free book %s: %v", book.ID, err)
			return err
		}
		if rows == 0 {
			return ErrBookConflict
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("[INFO] CancelReservation: reservation %s cancelled", reservationID)
	return nil
}

// ExpireReservations sweeps ACTIVE reservations older than cutoffAgeDays.
//
// Each eligible row is processed in its own transaction with a conditional
// state update, so the sweep tolerates interleaving with live creates and
// cancels: a row already transitioned by someone else is skipped, and
// re-running the sweep with no intervening writes processes zero rows.
// Notification failures never roll back the expiry.
func (s *reservationService) ExpireReservations(cutoffAgeDays int) (*ExpireResult, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -cutoffAgeDays)

	candidates, err := s.resRepo.ListActiveReservedBefore(nil, cutoff)
	if err != nil {
		return nil, err
	}

	result := &ExpireResult{}
	for _, candidate := range candidates {
		var expired, freed bool

		err := s.db.Transaction(func(tx *gorm.DB) error {
			affected, err := s.resRepo.SetStateIfActive(tx, candidate.ID, models.ReservationStateExpired)
			if err != nil {
				return err
			}
			if affected == 0 {
				// Cancelled or expired since we selected it.
				return nil
			}
			expired = true

			book, err := s.bookRepo.GetByIDForUpdate(tx, candidate.BookID)
			if err != nil {
				return err
			}
			if book.State == models.BookStateReserved {
				rows, err := s.bookRepo.SetState(tx, book.ID, models.BookStateAvailable, book.Version)
				if err != nil {
					return err
				}
				if rows > 0 {
					freed = true
				}
			}
			return nil
		})
		if err != nil {
			log.Printf("[ERROR] ExpireReservations: failed to expire reservation %s: %v", candidate.ID, err)
			continue
		}
		// Only rows this sweep actually transitioned are counted and notified;
		// a candidate cancelled between selection and the transaction is skipped.
		if !expired {
			continue
		}
		result.Processed++
		if freed {
			result.BooksFreed++
		}

		if candidate.Book.Title != "" || candidate.User.Email != "" {
			subject := "Reservation expired"
			message := fmt.Sprintf("Your reservation for %q placed on %s has expired.",
				candidate.Book.Title, candidate.ReservedAt.Format("2006-01-02"))
			if _, err := s.notifier.Create(candidate.UserID, subject, message, true); err != nil {
				log.Printf("[WARN] ExpireReservations: failed to notify user %s: %v", candidate.UserID, err)
			} else {
				result.UsersNotified++
			}
		}
	}

	log.Printf("[INFO] ExpireReservations: processed=%d booksFreed=%d usersNotified=%d",
		result.Processed, result.BooksFreed, result.UsersNotified)
	return result, nil
}

// ─── Queries ──────────────────────────────────────────────────────────────────

func (s *reservationService) ListReservations(filter ReservationFilter) ([]models.Reservation, error) {
	return s.resRepo.List(nil, filter.UserID, filter.State)
}

func (s *reservationService) CountActiveForUser(userID uuid.UUID) (int64, error) {
	return s.resRepo.CountActiveByUser(nil, userID)
}
