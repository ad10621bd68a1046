package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"biblioteca/internal/mailer"
	"biblioteca/internal/models"
	"biblioteca/internal/repositories"
)

// ErrNotificationNotFound is returned when the referenced notification does not exist.
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationService persists per-user notices and runs the due-loan
// reminder sweep. Email delivery is fire-and-forget: the notification row is
// committed first and a failed send is only logged.
type NotificationService interface {
	Create(userID uuid.UUID, subject, message string, sendEmail bool) (*models.Notification, error)
	RemindDueLoans(daysAhead int) (int, error)

	ListForUser(userID uuid.UUID) ([]models.Notification, error)
	// MarkRead is scoped to the owning user; someone else's notification id
	// reads as not found.
	MarkRead(userID, notificationID uuid.UUID) error
	MarkAllRead(userID uuid.UUID) (int64, error)
}

type notificationService struct {
	db        *gorm.DB
	userRepo  repositories.UserRepository
	loanRepo  repositories.LoanRepository
	notifRepo repositories.NotificationRepository
	mail      mailer.Mailer
}

func NewNotificationService(
	db *gorm.DB,
	userRepo repositories.UserRepository,
	loanRepo repositories.LoanRepository,
	notifRepo repositories.NotificationRepository,
	mail mailer.Mailer,
) NotificationService {
	return &notificationService{
		db:        db,
		userRepo:  userRepo,
		loanRepo:  loanRepo,
		notifRepo: notifRepo,
		mail:      mail,
	}
}

func (s *notificationService) Create(userID uuid.UUID, subject, message string, sendEmail bool) (*models.Notification, error) {
	user, err := s.userRepo.GetByID(nil, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	notification := &models.Notification{
		UserID:  userID,
		Subject: subject,
		Message: message,
		SentAt:  time.Now().UTC(),
		State:   models.NotificationStateUnread,
	}
	if err := s.notifRepo.Create(nil, notification); err != nil {
		log.Printf("[ERROR] Create notification for user %s: %v", userID, err)
		return nil, err
	}

	if sendEmail && user.Email != "" {
		go s.deliver(user.Email, subject, message)
	}
	return notification, nil
}

// RemindDueLoans notifies every user whose active loan is due exactly
// daysAhead days from today. Returns the number of reminders created.
func (s *notificationService) RemindDueLoans(daysAhead int) (int, error) {
	target := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, daysAhead)

	loans, err := s.loanRepo.ListActiveDueBetween(nil, target, target.AddDate(0, 0, 1))
	if err != nil {
		return 0, err
	}
	if len(loans) == 0 {
		log.Printf("[INFO] RemindDueLoans: no loans due on %s", target.Format("2006-01-02"))
		return 0, nil
	}

	processed := 0
	for _, loan := range loans {
		subject := "Return reminder"
		message := fmt.Sprintf("The book %q must be returned by %s.",
			loan.Book.Title, loan.DueDate.Format("2006-01-02"))

		notification := &models.Notification{
			UserID:  loan.UserID,
			Subject: subject,
			Message: message,
			SentAt:  time.Now().UTC(),
			State:   models.NotificationStateUnread,
		}
		if err := s.notifRepo.Create(nil, notification); err != nil {
			log.Printf("[ERROR] RemindDueLoans: failed to create reminder for loan %s: %v", loan.ID, err)
			continue
		}
		processed++

		if loan.User.Email != "" {
			go s.deliver(loan.User.Email, subject, message)
		}
	}

	log.Printf("[INFO] RemindDueLoans: created %d reminders for %s", processed, target.Format("2006-01-02"))
	return processed, nil
}

func (s *notificationService) ListForUser(userID uuid.UUID) ([]models.Notification, error) {
	return s.notifRepo.ListByUser(nil, userID)
}

func (s *notificationService) MarkRead(userID, notificationID uuid.UUID) error {
	affected, err := s.notifRepo.MarkRead(nil, userID, notificationID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *notificationService) MarkAllRead(userID uuid.UUID) (int64, error) {
	return s.notifRepo.MarkAllRead(nil, userID)
}

func (s *notificationService) deliver(email, subject, message string) {
	body := fmt.Sprintf(
		`<html><body style="font-family: Arial, sans-serif; color: #333;">
<h2>%s</h2>
<p>%s</p>
<hr/>
<p style="font-size: 12px; color: #888;">Municipal Library<br/>This is an automated message, please do not reply.</p>
</body></html>`, subject, message)

	if err := s.mail.Send(email, subject, body); err != nil {
		log.Printf("[WARN] mail delivery to %s failed: %v", email, err)
	}
}
