package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"biblioteca/internal/models"
)

func TestCreateBookWithAssociations(t *testing.T) {
	f := newFixture(t)
	author, err := f.catalog.CreateAuthor("Gabriel García Márquez")
	require.NoError(t, err)
	genre, err := f.catalog.CreateGenre("Realismo mágico")
	require.NoError(t, err)

	book, err := f.catalog.CreateBook(BookInput{
		Title:       "Cien años de soledad",
		ISBN:        "978-84-376-0494-7",
		Description: "La saga de los Buendía.",
		EditorialID: f.editorial.ID,
		SectionID:   f.section.ID,
		AuthorIDs:   []uuid.UUID{author.ID},
		GenreIDs:    []uuid.UUID{genre.ID},
	})
	require.NoError(t, err)
	require.Equal(t, models.BookStateAvailable, book.State)
	require.Len(t, book.Authors, 1)
	require.Len(t, book.Genres, 1)

	_, err = f.catalog.CreateBook(BookInput{
		Title:       "Otro título",
		ISBN:        "978-84-376-0494-7",
		EditorialID: f.editorial.ID,
		SectionID:   f.section.ID,
	})
	require.ErrorIs(t, err, ErrISBNTaken)
}

func TestCreateBookValidatesReferences(t *testing.T) {
	f := newFixture(t)

	_, err := f.catalog.CreateBook(BookInput{
		Title: "Sin editorial", ISBN: "978-84-555-0001-6",
		EditorialID: uuid.New(), SectionID: f.section.ID,
	})
	require.ErrorIs(t, err, ErrEditorialNotFound)

	_, err = f.catalog.CreateBook(BookInput{
		Title: "Sin sección", ISBN: "978-84-555-0002-3",
		EditorialID: f.editorial.ID, SectionID: uuid.New(),
	})
	require.ErrorIs(t, err, ErrSectionNotFound)

	_, err = f.catalog.CreateBook(BookInput{
		Title: "Autor fantasma", ISBN: "978-84-555-0003-0",
		EditorialID: f.editorial.ID, SectionID: f.section.ID,
		AuthorIDs: []uuid.UUID{uuid.New()},
	})
	require.ErrorIs(t, err, ErrAuthorNotFound)

	_, err = f.catalog.CreateBook(BookInput{
		Title: "Género fantasma", ISBN: "978-84-555-0004-7",
		EditorialID: f.editorial.ID, SectionID: f.section.ID,
		GenreIDs: []uuid.UUID{uuid.New()},
	})
	require.ErrorIs(t, err, ErrGenreNotFound)
}

func TestUpdateBook(t *testing.T) {
	f := newFixture(t)
	book := f.seedBook(t, "Primera Edición", "978-84-666-0001-5")
	other := f.seedBook(t, "Otro Libro", "978-84-666-0002-2")
	author, err := f.catalog.CreateAuthor("Julio Cortázar")
	require.NoError(t, err)

	updated, err := f.catalog.UpdateBook(book.ID, BookInput{
		Title:       "Segunda Edición",
		ISBN:        book.ISBN,
		EditorialID: f.editorial.ID,
		SectionID:   f.section.ID,
		AuthorIDs:   []uuid.UUID{author.ID},
	})
	require.NoError(t, err)
	require.Equal(t, "Segunda Edición", updated.Title)
	require.Len(t, updated.Authors, 1)

	// The ISBN of another book cannot be taken over.
	_, err = f.catalog.UpdateBook(book.ID, BookInput{
		Title: "Segunda Edición", ISBN: other.ISBN,
		EditorialID: f.editorial.ID, SectionID: f.section.ID,
	})
	require.ErrorIs(t, err, ErrISBNTaken)

	_, err = f.catalog.UpdateBook(uuid.New(), BookInput{
		Title: "Nadie", ISBN: "978-84-666-0003-9",
		EditorialID: f.editorial.ID, SectionID: f.section.ID,
	})
	require.ErrorIs(t, err, ErrBookNotFound)
}

func TestDeleteBook(t *testing.T) {
	f := newFixture(t)
	free := f.seedBook(t, "Prescindible", "978-84-777-0001-4")
	loaned := f.seedBook(t, "Prestado", "978-84-777-0002-1")
	require.NoError(t, f.db.Model(loaned).Update("state", models.BookStateLoaned).Error)

	require.NoError(t, f.catalog.DeleteBook(free.ID))
	_, err := f.catalog.GetBook(free.ID)
	require.ErrorIs(t, err, ErrBookNotFound)

	require.ErrorIs(t, f.catalog.DeleteBook(loaned.ID), ErrBookInUse)
	require.ErrorIs(t, f.catalog.DeleteBook(uuid.New()), ErrBookNotFound)
}

func TestListBooksSearchAndPagination(t *testing.T) {
	f := newFixture(t)
	f.seedBook(t, "Historia de España", "978-84-888-0001-3")
	f.seedBook(t, "Historia de Roma", "978-84-888-0002-0")
	f.seedBook(t, "Poesía Completa", "978-84-888-0003-7")

	page, err := f.catalog.ListBooks("historia", 1, 20)
	require.NoError(t, err)
	require.Equal(t, int64(2), page.Total)
	require.Len(t, page.Books, 2)

	// Page size 1 walks the result set in title order.
	first, err := f.catalog.ListBooks("historia", 1, 1)
	require.NoError(t, err)
	require.Len(t, first.Books, 1)
	require.Equal(t, "Historia de España", first.Books[0].Title)

	second, err := f.catalog.ListBooks("historia", 2, 1)
	require.NoError(t, err)
	require.Len(t, second.Books, 1)
	require.Equal(t, "Historia de Roma", second.Books[0].Title)
}

func TestListAvailableBooks(t *testing.T) {
	f := newFixture(t)
	available := f.seedBook(t, "Disponible", "978-84-999-0001-2")
	loaned := f.seedBook(t, "Fuera", "978-84-999-0002-9")
	require.NoError(t, f.db.Model(loaned).Update("state", models.BookStateLoaned).Error)

	books, err := f.catalog.ListAvailableBooks()
	require.NoError(t, err)
	require.Len(t, books, 1)
	require.Equal(t, available.ID, books[0].ID)
}
