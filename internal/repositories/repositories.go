package repositories

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"biblioteca/internal/models"
)

// Every method takes an optional *gorm.DB so calls compose inside a caller's
// transaction; nil falls back to the repository's own handle.

type UserRepository interface {
	Create(db *gorm.DB, user *models.User) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.User, error)
	GetByEmail(db *gorm.DB, email string) (*models.User, error)
	ListActive(db *gorm.DB) ([]models.User, error)
}

type RoleRepository interface {
	Create(db *gorm.DB, role *models.Role) error
	GetByNames(db *gorm.DB, names []string) ([]models.Role, error)
	List(db *gorm.DB) ([]models.Role, error)
}

type BookRepository interface {
	Create(db *gorm.DB, book *models.Book) error
	Save(db *gorm.DB, book *models.Book) error
	Delete(db *gorm.DB, id uuid.UUID) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error)
	GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Book, error)
	List(db *gorm.DB, search string, offset, limit int) ([]models.Book, int64, error)
	ListByState(db *gorm.DB, state models.BookState) ([]models.Book, error)
	// SetState writes the new state only if the version token still matches;
	// returns the number of rows affected (0 means a concurrent writer won).
	SetState(db *gorm.DB, id uuid.UUID, state models.BookState, fromVersion int64) (int64, error)
}

type LoanRepository interface {
	Create(db *gorm.DB, loan *models.Loan) error
	GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Loan, error)
	ExistsActiveForBook(db *gorm.DB, bookID uuid.UUID) (bool, error)
	MarkReturned(db *gorm.DB, id uuid.UUID, returnedAt time.Time) error
	Renew(db *gorm.DB, id uuid.UUID, newDueDate time.Time) error
	Latest(db *gorm.DB) (*models.Loan, error)
	List(db *gorm.DB) ([]models.Loan, error)
	ListActive(db *gorm.DB) ([]models.Loan, error)
	Search(db *gorm.DB, term string) ([]models.Loan, error)
	ListActiveDueBetween(db *gorm.DB, from, to time.Time) ([]models.Loan, error)
	CountCreatedBetween(db *gorm.DB, from, to time.Time) (int64, error)
	CountActive(db *gorm.DB) (int64, error)
	CountReturnedBetween(db *gorm.DB, from, to time.Time) (int64, error)
	ListLoanDatesBetween(db *gorm.DB, from, to time.Time) ([]time.Time, error)
	TopLoanedTitles(db *gorm.DB, from, to time.Time, limit int) ([]TitleCount, error)
}

// TitleCount is one row of the most-loaned-titles ranking.
type TitleCount struct {
	Title string `json:"title"`
	Count int64  `json:"count"`
}

type ReservationRepository interface {
	Create(db *gorm.DB, res *models.Reservation) error
	GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Reservation, error)
	CountActiveByUser(db *gorm.DB, userID uuid.UUID) (int64, error)
	ExistsActiveByUserAndBook(db *gorm.DB, userID, bookID uuid.UUID) (bool, error)
	MaxActivePriority(db *gorm.DB, bookID uuid.UUID) (int, error)
	// SetStateIfActive transitions a reservation out of ACTIVE; returns rows
	// affected so a sweep interleaving with live cancels never double-processes.
	SetStateIfActive(db *gorm.DB, id uuid.UUID, state models.ReservationState) (int64, error)
	ListActiveReservedBefore(db *gorm.DB, cutoff time.Time) ([]models.Reservation, error)
	List(db *gorm.DB, userID *uuid.UUID, state *models.ReservationState) ([]models.Reservation, error)
}

type NotificationRepository interface {
	Create(db *gorm.DB, n *models.Notification) error
	ListByUser(db *gorm.DB, userID uuid.UUID) ([]models.Notification, error)
	// MarkRead only touches rows owned by userID; 0 rows affected means the
	// notification does not exist or belongs to someone else.
	MarkRead(db *gorm.DB, userID, id uuid.UUID) (int64, error)
	MarkAllRead(db *gorm.DB, userID uuid.UUID) (int64, error)
}

// concrete implementations

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(db *gorm.DB, user *models.User) error {
	if db == nil {
		db = r.db
	}
	return db.Create(user).Error
}

func (r *userRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.Preload("Roles").First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(db *gorm.DB, email string) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.Preload("Roles").First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ListActive(db *gorm.DB) ([]models.User, error) {
	if db == nil {
		db = r.db
	}
	var users []models.User
	if err := db.Where("state = ?", models.UserStateActive).
		Order("name").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

type roleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) Create(db *gorm.DB, role *models.Role) error {
	if db == nil {
		db = r.db
	}
	return db.Create(role).Error
}

func (r *roleRepository) GetByNames(db *gorm.DB, names []string) ([]models.Role, error) {
	if db == nil {
		db = r.db
	}
	var roles []models.Role
	if err := db.Where("name IN ?", names).Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *roleRepository) List(db *gorm.DB) ([]models.Role, error) {
	if db == nil {
		db = r.db
	}
	var roles []models.Role
	if err := db.Order("name").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Create(book).Error
}

func (r *bookRepository) Save(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Session(&gorm.Session{FullSaveAssociations: true}).Save(book).Error
}

func (r *bookRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Select(clause.Associations).Delete(&models.Book{ID: id}).Error
}

func (r *bookRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	if err := db.Preload("Authors").Preload("Genres").
		First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&book, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) List(db *gorm.DB, search string, offset, limit int) ([]models.Book, int64, error) {
	if db == nil {
		db = r.db
	}
	query := db.Model(&models.Book{})
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where(
			"LOWER(title) LIKE LOWER(?) OR LOWER(isbn) LIKE LOWER(?)",
			pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var books []models.Book
	if err := query.Preload("Authors").Preload("Genres").
		Order("title").
		Offset(offset).Limit(limit).
		Find(&books).Error; err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

func (r *bookRepository) ListByState(db *gorm.DB, state models.BookState) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	var books []models.Book
	if err := db.Where("state = ?", state).
		Order("title").
		Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) SetState(db *gorm.DB, id uuid.UUID, state models.BookState, fromVersion int64) (int64, error) {
	if db == nil {
		db = r.db
	}
	result := db.Model(&models.Book{}).
		Where("id = ? AND version = ?", id, fromVersion).
		Updates(map[string]interface{}{
			"state":   state,
			"version": fromVersion + 1,
		})
	return result.RowsAffected, result.Error
}

type loanRepository struct {
	db *gorm.DB
}

func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(db *gorm.DB, loan *models.Loan) error {
	if db == nil {
		db = r.db
	}
	return db.Create(loan).Error
}

func (r *loanRepository) GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Loan, error) {
	if db == nil {
		db = r.db
	}
	var loan models.Loan
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&loan, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) ExistsActiveForBook(db *gorm.DB, bookID uuid.UUID) (bool, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Loan{}).
		Where("book_id = ? AND state = ?", bookID, models.LoanStateActive).
		Count(&count).Error
	return count > 0, err
}

func (r *loanRepository) MarkReturned(db *gorm.DB, id uuid.UUID, returnedAt time.Time) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Loan{}).
		Where("id = ? AND state = ?", id, models.LoanStateActive).
		Updates(map[string]interface{}{
			"state":       models.LoanStateReturned,
			"returned_at": returnedAt,
		}).Error
}

func (r *loanRepository) Renew(db *gorm.DB, id uuid.UUID, newDueDate time.Time) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Loan{}).
		Where("id = ? AND state = ?", id, models.LoanStateActive).
		Updates(map[string]interface{}{
			"due_date": newDueDate,
			"renewals": gorm.Expr("renewals + 1"),
		}).Error
}

func (r *loanRepository) Latest(db *gorm.DB) (*models.Loan, error) {
	if db == nil {
		db = r.db
	}
	var loan models.Loan
	err := db.Preload("Book").Preload("User").
		Where("state = ?", models.LoanStateActive).
		Order("loan_date DESC").
		First(&loan).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) List(db *gorm.DB) ([]models.Loan, error) {
	if db == nil {
		db = r.db
	}
	var loans []models.Loan
	if err := db.Preload("Book").Preload("User").
		Order("loan_date DESC").
		Find(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *loanRepository) ListActive(db *gorm.DB) ([]models.Loan, error) {
	if db == nil {
		db = r.db
	}
	var loans []models.Loan
	if err := db.Preload("Book").Preload("User").
		Where("state = ?", models.LoanStateActive).
		Order("loan_date DESC").
		Find(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *loanRepository) Search(db *gorm.DB, term string) ([]models.Loan, error) {
	if db == nil {
		db = r.db
	}
	pattern := "%" + term + "%"
	var loans []models.Loan
	err := db.Preload("Book").Preload("User").
		Joins("JOIN books ON books.id = loans.book_id").
		Joins("JOIN users ON users.id = loans.user_id").
		Where(
			"LOWER(users.name) LIKE LOWER(?) OR LOWER(books.title) LIKE LOWER(?) OR LOWER(books.isbn) LIKE LOWER(?)",
			pattern, pattern, pattern,
		).
		Order("loans.loan_date DESC").
		Find(&loans).Error
	if err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *loanRepository) ListActiveDueBetween(db *gorm.DB, from, to time.Time) ([]models.Loan, error) {
	if db == nil {
		db = r.db
	}
	var loans []models.Loan
	err := db.Preload("Book").Preload("User").
		Where("state = ? AND due_date >= ? AND due_date < ?", models.LoanStateActive, from, to).
		Find(&loans).Error
	if err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *loanRepository) CountCreatedBetween(db *gorm.DB, from, to time.Time) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Loan{}).
		Where("loan_date >= ? AND loan_date <= ?", from, to).
		Count(&count).Error
	return count, err
}

func (r *loanRepository) CountActive(db *gorm.DB) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Loan{}).
		Where("state = ? AND returned_at IS NULL", models.LoanStateActive).
		Count(&count).Error
	return count, err
}

func (r *loanRepository) CountReturnedBetween(db *gorm.DB, from, to time.Time) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Loan{}).
		Where("returned_at >= ? AND returned_at <= ?", from, to).
		Count(&count).Error
	return count, err
}

func (r *loanRepository) ListLoanDatesBetween(db *gorm.DB, from, to time.Time) ([]time.Time, error) {
	if db == nil {
		db = r.db
	}
	var dates []time.Time
	err := db.Model(&models.Loan{}).
		Where("loan_date >= ? AND loan_date <= ?", from, to).
		Pluck("loan_date", &dates).Error
	return dates, err
}

func (r *loanRepository) TopLoanedTitles(db *gorm.DB, from, to time.Time, limit int) ([]TitleCount, error) {
	if db == nil {
		db = r.db
	}
	var rows []TitleCount
	err := db.Model(&models.Loan{}).
		Select("books.title AS title, COUNT(loans.id) AS count").
		Joins("JOIN books ON books.id = loans.book_id").
		Where("loans.loan_date >= ? AND loans.loan_date <= ?", from, to).
		Group("books.title").
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

type reservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) ReservationRepository {
	return &reservationRepository{db: db}
}

func (r *reservationRepository) Create(db *gorm.DB, res *models.Reservation) error {
	if db == nil {
		db = r.db
	}
	return db.Create(res).Error
}

func (r *reservationRepository) GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Reservation, error) {
	if db == nil {
		db = r.db
	}
	var res models.Reservation
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&res, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *reservationRepository) CountActiveByUser(db *gorm.DB, userID uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Reservation{}).
		Where("user_id = ? AND state = ?", userID, models.ReservationStateActive).
		Count(&count).Error
	return count, err
}

func (r *reservationRepository) ExistsActiveByUserAndBook(db *gorm.DB, userID, bookID uuid.UUID) (bool, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Reservation{}).
		Where("user_id = ? AND book_id = ? AND state = ?", userID, bookID, models.ReservationStateActive).
		Count(&count).Error
	return count > 0, err
}

func (r *reservationRepository) MaxActivePriority(db *gorm.DB, bookID uuid.UUID) (int, error) {
	if db == nil {
		db = r.db
	}
	var maxPriority int
	err := db.Model(&models.Reservation{}).
		Where("book_id = ? AND state = ?", bookID, models.ReservationStateActive).
		Select("COALESCE(MAX(priority), 0)").
		Scan(&maxPriority).Error
	return maxPriority, err
}

func (r *reservationRepository) SetStateIfActive(db *gorm.DB, id uuid.UUID, state models.ReservationState) (int64, error) {
	if db == nil {
		db = r.db
	}
	result := db.Model(&models.Reservation{}).
		Where("id = ? AND state = ?", id, models.ReservationStateActive).
		Update("state", state)
	return result.RowsAffected, result.Error
}

func (r *reservationRepository) ListActiveReservedBefore(db *gorm.DB, cutoff time.Time) ([]models.Reservation, error) {
	if db == nil {
		db = r.db
	}
	var reservations []models.Reservation
	err := db.Preload("Book").Preload("User").
		Where("state = ? AND reserved_at <= ?", models.ReservationStateActive, cutoff).
		Order("reserved_at").
		Find(&reservations).Error
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

func (r *reservationRepository) List(db *gorm.DB, userID *uuid.UUID, state *models.ReservationState) ([]models.Reservation, error) {
	if db == nil {
		db = r.db
	}
	query := db.Preload("Book").Preload("User")
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	if state != nil {
		query = query.Where("state = ?", *state)
	}
	var reservations []models.Reservation
	if err := query.Order("reserved_at DESC").Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(db *gorm.DB, n *models.Notification) error {
	if db == nil {
		db = r.db
	}
	return db.Create(n).Error
}

func (r *notificationRepository) ListByUser(db *gorm.DB, userID uuid.UUID) ([]models.Notification, error) {
	if db == nil {
		db = r.db
	}
	var notifications []models.Notification
	if err := db.Where("user_id = ?", userID).
		Order("sent_at DESC").
		Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *notificationRepository) MarkRead(db *gorm.DB, userID, id uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	result := db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("state", models.NotificationStateRead)
	return result.RowsAffected, result.Error
}

func (r *notificationRepository) MarkAllRead(db *gorm.DB, userID uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	result := db.Model(&models.Notification{}).
		Where("user_id = ? AND state = ?", userID, models.NotificationStateUnread).
		Update("state", models.NotificationStateRead)
	return result.RowsAffected, result.Error
}
