package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"biblioteca/internal/auth"
	"biblioteca/internal/services"
)

type createLoanRequest struct {
	BookID   string    `json:"book_id" binding:"required,uuid"`
	UserID   string    `json:"user_id" binding:"required,uuid"`
	LoanDate time.Time `json:"loan_date" binding:"required"`
	DueDate  time.Time `json:"due_date" binding:"required"`
}

func (h *Handlers) createLoan(c *gin.Context) {
	var req createLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	bookID, _ := uuid.Parse(req.BookID)
	userID, _ := uuid.Parse(req.UserID)

	loan, err := h.loans.CreateLoan(services.CreateLoanInput{
		BookID:   bookID,
		UserID:   userID,
		IssuedBy: auth.UserID(c),
		LoanDate: req.LoanDate,
		DueDate:  req.DueDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "loan created", loan)
}

type renewLoanRequest struct {
	DueDate time.Time `json:"due_date" binding:"required"`
}

func (h *Handlers) renewLoan(c *gin.Context) {
	loanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid loan id")
		return
	}
	var req renewLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	loan, err := h.loans.RenewLoan(loanID, req.DueDate)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "due date updated", loan)
}

func (h *Handlers) returnLoan(c *gin.Context) {
	loanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid loan id")
		return
	}

	loan, err := h.loans.ReturnLoan(loanID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "return registered", loan)
}

func (h *Handlers) latestLoan(c *gin.Context) {
	loan, err := h.loans.LatestLoan()
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", loan)
}

func (h *Handlers) listLoans(c *gin.Context) {
	loans, err := h.loans.ListLoans()
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", loans)
}

func (h *Handlers) listActiveLoans(c *gin.Context) {
	loans, err := h.loans.ListActiveLoans()
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", loans)
}

func (h *Handlers) searchLoans(c *gin.Context) {
	term := c.Query("termino")
	if term == "" {
		respondBadRequest(c, "a search term is required")
		return
	}
	loans, err := h.loans.SearchLoans(term)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", loans)
}

func (h *Handlers) loanStats(c *gin.Context) {
	var from, to time.Time
	if v := c.Query("desde"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			respondBadRequest(c, "invalid desde date, expected YYYY-MM-DD")
			return
		}
		from = parsed
	}
	if v := c.Query("hasta"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			respondBadRequest(c, "invalid hasta date, expected YYYY-MM-DD")
			return
		}
		to = parsed
	}

	stats, err := h.stats.LoanStats(from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", stats)
}
