package services

import (
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"biblioteca/internal/models"
	"biblioteca/internal/repositories"
)

var (
	// ErrEmailTaken is returned when the email is already registered.
	ErrEmailTaken = errors.New("email is already registered")

	// ErrNationalIDTaken is returned when the national ID is already registered.
	ErrNationalIDTaken = errors.New("national ID is already registered")

	// ErrRoleNotFound is returned when one of the requested roles does not exist.
	ErrRoleNotFound = errors.New("one or more roles not found")

	// ErrInvalidCredentials is returned on a failed login. Deliberately the
	// same for unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// RegisterUserInput is the signup payload.
type RegisterUserInput struct {
	NationalID string
	Name       string
	Email      string
	Password   string
	RoleNames  []string
}

// UserService owns accounts: registration, credential checks, directory queries.
type UserService interface {
	Register(in RegisterUserInput) (*models.User, error)
	// Authenticate verifies credentials and returns the account. Inactive
	// accounts are rejected with ErrUserInactive.
	Authenticate(email, password string) (*models.User, error)
	GetUser(id uuid.UUID) (*models.User, error)
	ListActiveUsers() ([]models.User, error)
}

type userService struct {
	db       *gorm.DB
	userRepo repositories.UserRepository
	roleRepo repositories.RoleRepository
}

func NewUserService(db *gorm.DB, userRepo repositories.UserRepository, roleRepo repositories.RoleRepository) UserService {
	return &userService{db: db, userRepo: userRepo, roleRepo: roleRepo}
}

func (s *userService) Register(in RegisterUserInput) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var created *models.User

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailTaken
		}
		if err := tx.Model(&models.User{}).Where("national_id = ?", in.NationalID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrNationalIDTaken
		}

		roleNames := in.RoleNames
		if len(roleNames) == 0 {
			roleNames = []string{"Lector"}
		}
		roles, err := s.roleRepo.GetByNames(tx, roleNames)
		if err != nil {
			return err
		}
		if len(roles) != len(roleNames) {
			return ErrRoleNotFound
		}

		user := &models.User{
			NationalID:   in.NationalID,
			Name:         in.Name,
			Email:        in.Email,
			PasswordHash: string(hash),
			RegisteredAt: time.Now().UTC(),
			State:        models.UserStateActive,
			Roles:        roles,
		}
		if err := s.userRepo.Create(tx, user); err != nil {
			log.Printf("[ERROR] Register: failed to create user %s: %v", in.Email, err)
			return err
		}
		created = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] Register: created user %s (id=%s)", created.Email, created.ID)
	return created, nil
}

func (s *userService) Authenticate(email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(nil, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.State != models.UserStateActive {
		return nil, ErrUserInactive
	}
	return user, nil
}

func (s *userService) GetUser(id uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) ListActiveUsers() ([]models.User, error) {
	return s.userRepo.ListActive(nil)
}
