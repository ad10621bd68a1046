package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"biblioteca/internal/services"
)

type registerRequest struct {
	NationalID string   `json:"national_id" binding:"required"`
	Name       string   `json:"name" binding:"required"`
	Email      string   `json:"email" binding:"required,email"`
	Password   string   `json:"password" binding:"required,min=8"`
	Roles      []string `json:"roles"`
}

func (h *Handlers) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	user, err := h.users.Register(services.RegisterUserInput{
		NationalID: req.NationalID,
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		RoleNames:  req.Roles,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "user registered", user)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

func (h *Handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	user, err := h.users.Authenticate(req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	roles := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, role.Name)
	}
	token, err := h.tokens.Issue(user.ID, roles)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "login successful", loginResponse{Token: token, User: user})
}

func (h *Handlers) listActiveUsers(c *gin.Context) {
	users, err := h.users.ListActiveUsers()
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", users)
}
