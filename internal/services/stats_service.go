package services

import (
	"sort"
	"time"

	"gorm.io/gorm"

	"biblioteca/internal/models"
	"biblioteca/internal/repositories"
)

// DayCount is the number of loans issued on one calendar day.
type DayCount struct {
	Date  string `json:"date"` // dd/MM
	Count int    `json:"count"`
}

// LoanStatistics aggregates loan activity over a date range.
type LoanStatistics struct {
	From            time.Time                 `json:"from"`
	To              time.Time                 `json:"to"`
	LoansInRange    int64                     `json:"loans_in_range"`
	ActiveLoans     int64                     `json:"active_loans"`
	ReturnedInRange int64                     `json:"returned_in_range"`
	BooksLoaned     int64                     `json:"books_loaned"`
	BooksAvailable  int64                     `json:"books_available"`
	LoansPerDay     []DayCount                `json:"loans_per_day"`
	TopBooks        []repositories.TitleCount `json:"top_books"`
}

// StatsService computes the reporting numbers behind the staff dashboard.
type StatsService interface {
	// LoanStats aggregates over [from, to]; zero values default to the
	// current calendar month.
	LoanStats(from, to time.Time) (*LoanStatistics, error)
}

type statsService struct {
	db       *gorm.DB
	loanRepo repositories.LoanRepository
}

func NewStatsService(db *gorm.DB, loanRepo repositories.LoanRepository) StatsService {
	return &statsService{db: db, loanRepo: loanRepo}
}

func (s *statsService) LoanStats(from, to time.Time) (*LoanStatistics, error) {
	now := time.Now().UTC()
	if from.IsZero() {
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	if to.IsZero() {
		to = from.AddDate(0, 1, 0).AddDate(0, 0, -1)
	}

	stats := &LoanStatistics{From: from, To: to}

	var err error
	if stats.LoansInRange, err = s.loanRepo.CountCreatedBetween(nil, from, to); err != nil {
		return nil, err
	}
	if stats.ActiveLoans, err = s.loanRepo.CountActive(nil); err != nil {
		return nil, err
	}
	if stats.ReturnedInRange, err = s.loanRepo.CountReturnedBetween(nil, from, to); err != nil {
		return nil, err
	}

	var totalBooks int64
	if err := s.db.Model(&models.Book{}).Count(&totalBooks).Error; err != nil {
		return nil, err
	}
	stats.BooksLoaned = stats.ActiveLoans
	stats.BooksAvailable = totalBooks - stats.BooksLoaned

	dates, err := s.loanRepo.ListLoanDatesBetween(nil, from, to)
	if err != nil {
		return nil, err
	}
	stats.LoansPerDay = groupByDay(dates)

	if stats.TopBooks, err = s.loanRepo.TopLoanedTitles(nil, from, to, 10); err != nil {
		return nil, err
	}

	return stats, nil
}

func groupByDay(dates []time.Time) []DayCount {
	counts := make(map[time.Time]int)
	for _, d := range dates {
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		counts[day]++
	}

	days := make([]time.Time, 0, len(counts))
	for day := range counts {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	out := make([]DayCount, 0, len(days))
	for _, day := range days {
		out = append(out, DayCount{Date: day.Format("02/01"), Count: counts[day]})
	}
	return out
}
