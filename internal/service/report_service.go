package service

import (
	"fmt"

	"escaperoom/internal/models"
	"escaperoom/internal/repository"
)

// ReportService resolves staff queries about a student's finished games.
// It only hands result records over; aggregation happens elsewhere.
type ReportService struct {
	users   *repository.UserRepository
	results *repository.ResultRepository
}

// NewReportService creates a new report service
func NewReportService(users *repository.UserRepository, results *repository.ResultRepository) *ReportService {
	return &ReportService{users: users, results: results}
}

// StudentResults looks up a student's results. found is false when no
// student matches the name, course and class group.
func (s *ReportService) StudentResults(name, course, group string) ([]models.Result, bool, error) {
	student, err := s.users.GetStudent(name, course, group)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up student: %w", err)
	}
	if student == nil {
		return nil, false, nil
	}

	results, err := s.results.ListByUser(student.ID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load results: %w", err)
	}
	return results, true, nil
}
