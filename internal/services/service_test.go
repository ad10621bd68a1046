package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"biblioteca/internal/mailer"
	"biblioteca/internal/models"
	"biblioteca/internal/repositories"
)

// fixture wires every service against an in-memory database with the roles
// and reference entities the tests assume.
type fixture struct {
	db *gorm.DB

	users         UserService
	loans         LoanService
	reservations  ReservationService
	notifications NotificationService
	catalog       CatalogService
	stats         StatsService

	editorial models.Editorial
	section   models.Section
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps every session on the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.All()...))

	userRepo := repositories.NewUserRepository(db)
	roleRepo := repositories.NewRoleRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	loanRepo := repositories.NewLoanRepository(db)
	resRepo := repositories.NewReservationRepository(db)
	notifRepo := repositories.NewNotificationRepository(db)

	notifications := NewNotificationService(db, userRepo, loanRepo, notifRepo, mailer.Nop{})

	f := &fixture{
		db:            db,
		users:         NewUserService(db, userRepo, roleRepo),
		loans:         NewLoanService(db, userRepo, bookRepo, loanRepo),
		reservations:  NewReservationService(db, userRepo, bookRepo, resRepo, notifications),
		notifications: notifications,
		catalog:       NewCatalogService(db, bookRepo),
		stats:         NewStatsService(db, loanRepo),
	}

	for _, name := range []string{"Lector", "Bibliotecario"} {
		require.NoError(t, roleRepo.Create(nil, &models.Role{Name: name, State: "ACTIVE"}))
	}

	f.editorial = models.Editorial{Name: "Editorial Planeta"}
	require.NoError(t, db.Create(&f.editorial).Error)
	f.section = models.Section{Name: "Literatura", Location: "Planta 1"}
	require.NoError(t, db.Create(&f.section).Error)

	return f
}

func (f *fixture) seedUser(t *testing.T, name, email string, state models.UserState) *models.User {
	t.Helper()
	user := &models.User{
		NationalID:   uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: "irrelevant",
		RegisteredAt: time.Now().UTC(),
		State:        state,
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func (f *fixture) seedBook(t *testing.T, title, isbn string) *models.Book {
	t.Helper()
	book := &models.Book{
		Title:       title,
		ISBN:        isbn,
		State:       models.BookStateAvailable,
		EditorialID: f.editorial.ID,
		SectionID:   f.section.ID,
	}
	require.NoError(t, f.db.Create(book).Error)
	return book
}

func (f *fixture) reloadBook(t *testing.T, id uuid.UUID) *models.Book {
	t.Helper()
	var book models.Book
	require.NoError(t, f.db.First(&book, "id = ?", id).Error)
	return &book
}

func (f *fixture) reloadReservation(t *testing.T, id uuid.UUID) *models.Reservation {
	t.Helper()
	var res models.Reservation
	require.NoError(t, f.db.First(&res, "id = ?", id).Error)
	return &res
}
