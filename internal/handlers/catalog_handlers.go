package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"biblioteca/internal/services"
)

type bookRequest struct {
	Title       string   `json:"title" binding:"required"`
	ISBN        string   `json:"isbn" binding:"required"`
	Description string   `json:"description"`
	CoverURL    string   `json:"cover_url"`
	EditorialID string   `json:"editorial_id" binding:"required,uuid"`
	SectionID   string   `json:"section_id" binding:"required,uuid"`
	AuthorIDs   []string `json:"author_ids"`
	GenreIDs    []string `json:"genre_ids"`
}

func (r bookRequest) toInput() (services.BookInput, error) {
	editorialID, err := uuid.Parse(r.EditorialID)
	if err != nil {
		return services.BookInput{}, err
	}
	sectionID, err := uuid.Parse(r.SectionID)
	if err != nil {
		return services.BookInput{}, err
	}
	authorIDs, err := parseUUIDs(r.AuthorIDs)
	if err != nil {
		return services.BookInput{}, err
	}
	genreIDs, err := parseUUIDs(r.GenreIDs)
	if err != nil {
		return services.BookInput{}, err
	}
	return services.BookInput{
		Title:       r.Title,
		ISBN:        r.ISBN,
		Description: r.Description,
		CoverURL:    r.CoverURL,
		EditorialID: editorialID,
		SectionID:   sectionID,
		AuthorIDs:   authorIDs,
		GenreIDs:    genreIDs,
	}, nil
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func (h *Handlers) createBook(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondBadRequest(c, "invalid uuid in request")
		return
	}

	book, err := h.catalog.CreateBook(in)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "book created", book)
}

func (h *Handlers) updateBook(c *gin.Context) {
	bookID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid book id")
		return
	}
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondBadRequest(c, "invalid uuid in request")
		return
	}

	book, err := h.catalog.UpdateBook(bookID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "book updated", book)
}

func (h *Handlers) deleteBook(c *gin.Context) {
	bookID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid book id")
		return
	}
	if err := h.catalog.DeleteBook(bookID); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "book deleted", nil)
}

func (h *Handlers) getBook(c *gin.Context) {
	bookID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid book id")
		return
	}
	book, err := h.catalog.GetBook(bookID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", book)
}

func (h *Handlers) listBooks(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	result, err := h.catalog.ListBooks(c.Query("buscar"), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", result)
}

func (h *Handlers) listAvailableBooks(c *gin.Context) {
	books, err := h.catalog.ListAvailableBooks()
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", books)
}

type nameRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handlers) createAuthor(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	author, err := h.catalog.CreateAuthor(req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "author created", author)
}

func (h *Handlers) createGenre(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	genre, err := h.catalog.CreateGenre(req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "genre created", genre)
}

func (h *Handlers) createEditorial(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	editorial, err := h.catalog.CreateEditorial(req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "editorial created", editorial)
}

type sectionRequest struct {
	Name     string `json:"name" binding:"required"`
	Location string `json:"location"`
}

func (h *Handlers) createSection(c *gin.Context) {
	var req sectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	section, err := h.catalog.CreateSection(req.Name, req.Location)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "section created", section)
}

func (h *Handlers) listAuthors(c *gin.Context) {
	authors, err := h.catalog.ListAuthors()
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", authors)
}

func (h *Handlers) listGenres(c *gin.Context) {
	genres, err := h.catalog.ListGenres()
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", genres)
}

func (h *Handlers) listEditorials(c *gin.Context) {
	editorials, err := h.catalog.ListEditorials()
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", editorials)
}

func (h *Handlers) listSections(c *gin.Context) {
	sections, err := h.catalog.ListSections()
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", sections)
}
