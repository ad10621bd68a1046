package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"biblioteca/internal/auth"
	"biblioteca/internal/models"
	"biblioteca/internal/services"
)

type createReservationRequest struct {
	BookID string `json:"book_id" binding:"required,uuid"`
}

func (h *Handlers) createReservation(c *gin.Context) {
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	bookID, _ := uuid.Parse(req.BookID)

	reservation, err := h.reservations.CreateReservation(bookID, auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "reservation created", reservation)
}

func (h *Handlers) cancelReservation(c *gin.Context) {
	reservationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid reservation id")
		return
	}

	if err := h.reservations.CancelReservation(reservationID); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "reservation cancelled", nil)
}

// listReservations filters by userId and estado. Only staff may list other
// users' reservations; a non-staff caller is pinned to their own.
func (h *Handlers) listReservations(c *gin.Context) {
	var filter services.ReservationFilter

	if v := c.Query("userId"); v != "" {
		userID, err := uuid.Parse(v)
		if err != nil {
			respondBadRequest(c, "invalid userId")
			return
		}
		filter.UserID = &userID
	}
	if !auth.HasRole(c, auth.RoleStaff) {
		self := auth.UserID(c)
		filter.UserID = &self
	}

	if v := c.Query("estado"); v != "" {
		state := models.ReservationState(v)
		switch state {
		case models.ReservationStateActive, models.ReservationStateCancelled, models.ReservationStateExpired:
			filter.State = &state
		default:
			respondBadRequest(c, "invalid estado")
			return
		}
	}

	reservations, err := h.reservations.ListReservations(filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", reservations)
}
