package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"biblioteca/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func seedBook(t *testing.T, db *gorm.DB) *models.Book {
	t.Helper()
	editorial := models.Editorial{Name: "Tusquets"}
	require.NoError(t, db.Create(&editorial).Error)
	section := models.Section{Name: "Ensayo"}
	require.NoError(t, db.Create(&section).Error)

	book := &models.Book{
		Title: "Libro de Prueba", ISBN: "978-84-000-0099-0",
		State: models.BookStateAvailable, EditorialID: editorial.ID, SectionID: section.ID,
	}
	require.NoError(t, db.Create(book).Error)
	return book
}

func TestBookSetStateIsVersionConditional(t *testing.T) {
	db := newTestDB(t)
	repo := NewBookRepository(db)
	book := seedBook(t, db)

	affected, err := repo.SetState(nil, book.ID, models.BookStateLoaned, book.Version)
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)

	// A writer holding the stale version token loses the race: zero rows.
	affected, err = repo.SetState(nil, book.ID, models.BookStateReserved, book.Version)
	require.NoError(t, err)
	require.Equal(t, int64(0), affected)

	current, err := repo.GetByID(nil, book.ID)
	require.NoError(t, err)
	require.Equal(t, models.BookStateLoaned, current.State)
	require.Equal(t, book.Version+1, current.Version)

	// The fresh token succeeds again.
	affected, err = repo.SetState(nil, book.ID, models.BookStateAvailable, current.Version)
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)
}

func TestReservationSetStateIfActive(t *testing.T) {
	db := newTestDB(t)
	repo := NewReservationRepository(db)
	book := seedBook(t, db)

	user := models.User{
		NationalID: "12345678A", Name: "Ana", Email: "ana@example.com",
		PasswordHash: "x", RegisteredAt: time.Now().UTC(), State: models.UserStateActive,
	}
	require.NoError(t, db.Create(&user).Error)

	res := &models.Reservation{
		BookID: book.ID, UserID: user.ID,
		ReservedAt: time.Now().UTC(), Priority: 1, State: models.ReservationStateActive,
	}
	require.NoError(t, repo.Create(nil, res))

	affected, err := repo.SetStateIfActive(nil, res.ID, models.ReservationStateCancelled)
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)

	// Already out of ACTIVE: the conditional update touches nothing, so an
	// expiration sweep interleaving with a cancel never double-processes.
	affected, err = repo.SetStateIfActive(nil, res.ID, models.ReservationStateExpired)
	require.NoError(t, err)
	require.Equal(t, int64(0), affected)

	var reloaded models.Reservation
	require.NoError(t, db.First(&reloaded, "id = ?", res.ID).Error)
	require.Equal(t, models.ReservationStateCancelled, reloaded.State)
}
