package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"escaperoom/internal/models"
)

func TestUserStaffLookup(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	staff := &models.User{
		ID:           uuid.NewString(),
		Type:         models.UserTypeInstructor,
		Name:         "Marta",
		Username:     "marta.profe",
		PasswordHash: "$2a$10$hash",
		Email:        "marta@example.com",
	}
	if err := repo.Create(staff); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetStaffByUsername(models.UserTypeInstructor, "marta.profe")
	if err != nil {
		t.Fatalf("GetStaffByUsername failed: %v", err)
	}
	if got == nil || got.ID != staff.ID {
		t.Fatal("expected staff user by username")
	}

	// A coordinator lookup on an instructor username misses.
	got, err = repo.GetStaffByUsername(models.UserTypeCoordinator, "marta.profe")
	if err != nil {
		t.Fatalf("GetStaffByUsername failed: %v", err)
	}
	if got != nil {
		t.Fatal("expected miss for wrong user type")
	}
}

func TestUserStudentLookup(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	student := &models.User{
		ID:     uuid.NewString(),
		Type:   models.UserTypeStudent,
		Name:   "Lucia",
		Course: "2-eso",
		Group:  "B",
	}
	if err := repo.Create(student); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetStudent("Lucia", "2-eso", "B")
	if err != nil {
		t.Fatalf("GetStudent failed: %v", err)
	}
	if got == nil || got.ID != student.ID {
		t.Fatal("expected student by name, course and group")
	}

	got, err = repo.GetStudent("Lucia", "2-eso", "A")
	if err != nil {
		t.Fatalf("GetStudent failed: %v", err)
	}
	if got != nil {
		t.Fatal("expected miss for different group")
	}
}

func TestResultAppendAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewResultRepository(db)

	start := time.Now().UTC().Add(-10 * time.Minute).Truncate(time.Second)
	first := &models.Result{
		ID:             uuid.NewString(),
		UserID:         "user-1",
		FailuresTotal:  3,
		PuzzlesCleared: 0,
		StartedAt:      start,
		EndedAt:        start.Add(5 * time.Minute),
	}
	second := &models.Result{
		ID:             uuid.NewString(),
		UserID:         "user-1",
		FailuresTotal:  1,
		PuzzlesCleared: 2,
		StartedAt:      start.Add(6 * time.Minute),
		EndedAt:        start.Add(9 * time.Minute),
	}
	for _, result := range []*models.Result{first, second} {
		if err := repo.Append(result); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	results, err := repo.ListByUser("user-1")
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].ID != second.ID {
		t.Error("expected newest result first")
	}

	other, err := repo.ListByUser("user-2")
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(other) != 0 {
		t.Fatal("expected no results for another user")
	}
}
