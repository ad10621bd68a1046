package services

import (
	"errors"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"biblioteca/internal/models"
	"biblioteca/internal/repositories"
)

var (
	// ErrISBNTaken is returned when another book already carries the ISBN.
	ErrISBNTaken = errors.New("a book with this ISBN already exists")

	// ErrEditorialNotFound is returned when the referenced editorial does not exist.
	ErrEditorialNotFound = errors.New("editorial not found")

	// ErrSectionNotFound is returned when the referenced section does not exist.
	ErrSectionNotFound = errors.New("section not found")

	// ErrAuthorNotFound is returned when one of the referenced authors does not exist.
	ErrAuthorNotFound = errors.New("one or more authors not found")

	// ErrGenreNotFound is returned when one of the referenced genres does not exist.
	ErrGenreNotFound = errors.New("one or more genres not found")

	// ErrBookInUse is returned when a delete targets a book that is currently
	// loaned or reserved.
	ErrBookInUse = errors.New("book is currently loaned or reserved")
)

// BookInput is the mutable surface of a catalog entry.
type BookInput struct {
	Title       string
	ISBN        string
	Description string
	CoverURL    string
	EditorialID uuid.UUID
	SectionID   uuid.UUID
	AuthorIDs   []uuid.UUID
	GenreIDs    []uuid.UUID
}

// BookPage is one page of catalog results.
type BookPage struct {
	Books []models.Book `json:"books"`
	Total int64         `json:"total"`
}

// CatalogService manages books and the reference entities they hang off.
type CatalogService interface {
	CreateBook(in BookInput) (*models.Book, error)
	UpdateBook(id uuid.UUID, in BookInput) (*models.Book, error)
	DeleteBook(id uuid.UUID) error
	GetBook(id uuid.UUID) (*models.Book, error)
	ListBooks(search string, page, pageSize int) (*BookPage, error)
	ListAvailableBooks() ([]models.Book, error)

	CreateAuthor(name string) (*models.Author, error)
	CreateGenre(name string) (*models.Genre, error)
	CreateEditorial(name string) (*models.Editorial, error)
	CreateSection(name, location string) (*models.Section, error)
	ListAuthors() ([]models.Author, error)
	ListGenres() ([]models.Genre, error)
	ListEditorials() ([]models.Editorial, error)
	ListSections() ([]models.Section, error)
}

type catalogService struct {
	db       *gorm.DB
	bookRepo repositories.BookRepository
}

func NewCatalogService(db *gorm.DB, bookRepo repositories.BookRepository) CatalogService {
	return &catalogService{db: db, bookRepo: bookRepo}
}

// CreateBook inserts a catalog entry with its author and genre associations,
// validating every referenced entity first. New books start AVAILABLE.
func (s *catalogService) CreateBook(in BookInput) (*models.Book, error) {
	var created *models.Book

	err := s.db.Transaction(func(tx *gorm.DB) error {
		authors, genres, err := s.resolveAssociations(tx, in)
		if err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.Book{}).Where("isbn = ?", in.ISBN).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrISBNTaken
		}

		book := &models.Book{
			Title:       in.Title,
			ISBN:        in.ISBN,
			Description: in.Description,
			CoverURL:    in.CoverURL,
			State:       models.BookStateAvailable,
			EditorialID: in.EditorialID,
			SectionID:   in.SectionID,
			Authors:     authors,
			Genres:      genres,
		}
		if err := s.bookRepo.Create(tx, book); err != nil {
			log.Printf("[ERROR] CreateBook: failed to create %q: %v", in.Title, err)
			return err
		}
		created = book
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] CreateBook: created %q (id=%s, isbn=%s)", created.Title, created.ID, created.ISBN)
	return created, nil
}

// UpdateBook rewrites the descriptive fields and associations of a book.
// Availability state is never touched here; that belongs to the loan and
// reservation services.
func (s *catalogService) UpdateBook(id uuid.UUID, in BookInput) (*models.Book, error) {
	var updated *models.Book

	err := s.db.Transaction(func(tx *gorm.DB) error {
		book, err := s.bookRepo.GetByIDForUpdate(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		authors, genres, err := s.resolveAssociations(tx, in)
		if err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.Book{}).
			Where("isbn = ? AND id <> ?", in.ISBN, id).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrISBNTaken
		}

		book.Title = in.Title
		book.ISBN = in.ISBN
		book.Description = in.Description
		book.CoverURL = in.CoverURL
		book.EditorialID = in.EditorialID
		book.SectionID = in.SectionID

		if err := tx.Model(book).Updates(map[string]interface{}{
			"title":        book.Title,
			"isbn":         book.ISBN,
			"description":  book.Description,
			"cover_url":    book.CoverURL,
			"editorial_id": book.EditorialID,
			"section_id":   book.SectionID,
		}).Error; err != nil {
			return err
		}
		if err := tx.Model(book).Association("Authors").Replace(authors); err != nil {
			return err
		}
		if err := tx.Model(book).Association("Genres").Replace(genres); err != nil {
			return err
		}

		book.Authors = authors
		book.Genres = genres
		updated = book
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] UpdateBook: updated %q (id=%s)", updated.Title, updated.ID)
	return updated, nil
}

// DeleteBook removes a book that is not currently loaned or reserved.
func (s *catalogService) DeleteBook(id uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		book, err := s.bookRepo.GetByIDForUpdate(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}
		if book.State != models.BookStateAvailable {
			return ErrBookInUse
		}
		if err := s.bookRepo.Delete(tx, id); err != nil {
			log.Printf("[ERROR] DeleteBook: failed to delete %s: %v", id, err)
			return err
		}
		return nil
	})
}

func (s *catalogService) GetBook(id uuid.UUID) (*models.Book, error) {
	book, err := s.bookRepo.GetByID(nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return book, nil
}

func (s *catalogService) ListBooks(search string, page, pageSize int) (*BookPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	books, total, err := s.bookRepo.List(nil, search, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}
	return &BookPage{Books: books, Total: total}, nil
}

func (s *catalogService) ListAvailableBooks() ([]models.Book, error) {
	return s.bookRepo.ListByState(nil, models.BookStateAvailable)
}

// resolveAssociations loads the referenced editorial, section, authors and
// genres, failing with a specific not-found error when any are missing.
func (s *catalogService) resolveAssociations(tx *gorm.DB, in BookInput) ([]models.Author, []models.Genre, error) {
	var editorial models.Editorial
	if err := tx.First(&editorial, "id = ?", in.EditorialID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrEditorialNotFound
		}
		return nil, nil, err
	}
	var section models.Section
	if err := tx.First(&section, "id = ?", in.SectionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrSectionNotFound
		}
		return nil, nil, err
	}

	var authors []models.Author
	if len(in.AuthorIDs) > 0 {
		if err := tx.Where("id IN ?", in.AuthorIDs).Find(&authors).Error; err != nil {
			return nil, nil, err
		}
		if len(authors) != len(in.AuthorIDs) {
			return nil, nil, ErrAuthorNotFound
		}
	}

	var genres []models.Genre
	if len(in.GenreIDs) > 0 {
		if err := tx.Where("id IN ?", in.GenreIDs).Find(&genres).Error; err != nil {
			return nil, nil, err
		}
		if len(genres) != len(in.GenreIDs) {
			return nil, nil, ErrGenreNotFound
		}
	}

	return authors, genres, nil
}

func (s *catalogService) CreateAuthor(name string) (*models.Author, error) {
	author := &models.Author{Name: name}
	if err := s.db.Create(author).Error; err != nil {
		return nil, err
	}
	return author, nil
}

func (s *catalogService) CreateGenre(name string) (*models.Genre, error) {
	genre := &models.Genre{Name: name}
	if err := s.db.Create(genre).Error; err != nil {
		return nil, err
	}
	return genre, nil
}

func (s *catalogService) CreateEditorial(name string) (*models.Editorial, error) {
	editorial := &models.Editorial{Name: name}
	if err := s.db.Create(editorial).Error; err != nil {
		return nil, err
	}
	return editorial, nil
}

func (s *catalogService) CreateSection(name, location string) (*models.Section, error) {
	section := &models.Section{Name: name, Location: location}
	if err := s.db.Create(section).Error; err != nil {
		return nil, err
	}
	return section, nil
}

func (s *catalogService) ListAuthors() ([]models.Author, error) {
	var authors []models.Author
	if err := s.db.Order("name").Find(&authors).Error; err != nil {
		return nil, err
	}
	return authors, nil
}

func (s *catalogService) ListGenres() ([]models.Genre, error) {
	var genres []models.Genre
	if err := s.db.Order("name").Find(&genres).Error; err != nil {
		return nil, err
	}
	return genres, nil
}

func (s *catalogService) ListEditorials() ([]models.Editorial, error) {
	var editorials []models.Editorial
	if err := s.db.Order("name").Find(&editorials).Error; err != nil {
		return nil, err
	}
	return editorials, nil
}

func (s *catalogService) ListSections() ([]models.Section, error) {
	var sections []models.Section
	if err := s.db.Order("name").Find(&sections).Error; err != nil {
		return nil, err
	}
	return sections, nil
}
