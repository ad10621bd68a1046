package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserState string

const (
	UserStateActive   UserState = "ACTIVE"
	UserStateInactive UserState = "INACTIVE"
)

type BookState string

const (
	BookStateAvailable BookState = "AVAILABLE"
	BookStateLoaned    BookState = "LOANED"
	BookStateReserved  BookState = "RESERVED"
)

type LoanState string

const (
	LoanStateActive   LoanState = "ACTIVE"
	LoanStateReturned LoanState = "RETURNED"
)

type ReservationState string

const (
	ReservationStateActive    ReservationState = "ACTIVE"
	ReservationStateCancelled ReservationState = "CANCELLED"
	ReservationStateExpired   ReservationState = "EXPIRED"
)

type NotificationState string

const (
	NotificationStateUnread NotificationState = "UNREAD"
	NotificationStateRead   NotificationState = "READ"
)

type Role struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	State       string    `gorm:"size:20;not null;default:ACTIVE" json:"state"`
}

func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	NationalID   string    `gorm:"size:50;not null;uniqueIndex" json:"national_id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	RegisteredAt time.Time `gorm:"not null" json:"registered_at"`
	State        UserState `gorm:"size:20;not null;index" json:"state"`
	Roles        []Role    `gorm:"many2many:user_roles;" json:"roles,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type Editorial struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
}

func (e *Editorial) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

type Section struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name     string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Location string    `gorm:"size:255" json:"location"`
}

func (s *Section) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

type Author struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"size:255;not null" json:"name"`
}

func (a *Author) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

type Genre struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
}

func (g *Genre) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// Book carries the availability flag every loan/reservation transition reads
// and writes. Version is an optimistic-concurrency token: state changes are
// written with a version-conditional UPDATE, so a concurrent writer that lost
// the race is rejected instead of overwriting state.
type Book struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null;index" json:"title"`
	ISBN        string    `gorm:"size:32;not null;uniqueIndex" json:"isbn"`
	Description string    `gorm:"type:text" json:"description"`
	CoverURL    string    `gorm:"size:512" json:"cover_url"`
	State       BookState `gorm:"size:20;not null;index" json:"state"`
	Version     int64     `gorm:"not null;default:0" json:"-"`
	EditorialID uuid.UUID `gorm:"type:uuid;not null;index" json:"editorial_id"`
	Editorial   Editorial `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	SectionID   uuid.UUID `gorm:"type:uuid;not null;index" json:"section_id"`
	Section     Section   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	Authors     []Author  `gorm:"many2many:book_authors;" json:"authors,omitempty"`
	Genres      []Genre   `gorm:"many2many:book_genres;" json:"genres,omitempty"`
}

func (b *Book) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

type Loan struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BookID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"book_id"`
	Book       Book       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User       User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	IssuedBy   uuid.UUID  `gorm:"type:uuid;not null" json:"issued_by"`
	LoanDate   time.Time  `gorm:"not null" json:"loan_date"`
	DueDate    time.Time  `gorm:"not null;index" json:"due_date"`
	ReturnedAt *time.Time `json:"returned_at"`
	Renewals   int        `gorm:"not null;default:0" json:"renewals"`
	State      LoanState  `gorm:"size:20;not null;index" json:"state"`
}

func (l *Loan) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

type Reservation struct {
	ID         uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	BookID     uuid.UUID        `gorm:"type:uuid;not null;index" json:"book_id"`
	Book       Book             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID     uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	User       User             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ReservedAt time.Time        `gorm:"not null;index" json:"reserved_at"`
	Priority   int              `gorm:"not null" json:"priority"`
	State      ReservationState `gorm:"size:20;not null;index" json:"state"`
}

func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

type Notification struct {
	ID      uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	User    User              `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Subject string            `gorm:"size:255;not null" json:"subject"`
	Message string            `gorm:"type:text;not null" json:"message"`
	SentAt  time.Time         `gorm:"not null;index" json:"sent_at"`
	State   NotificationState `gorm:"size:20;not null;default:UNREAD" json:"state"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// All lists every model in dependency order, for migrations.
func All() []any {
	return []any{
		&Role{}, &User{}, &Editorial{}, &Section{}, &Author{}, &Genre{},
		&Book{}, &Loan{}, &Reservation{}, &Notification{},
	}
}
