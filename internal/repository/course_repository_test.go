package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/hqnguyen/seat-bot/internal/entities"
)

func newTestRepository(t *testing.T) *SQLiteCourseRepository {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test-courses.db")
	repo, err := NewSQLiteCourseRepository(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize repository: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Failed to close repository: %v", err)
		}
	})
	return repo
}

func testRow(classCode, courseCode string, seats, capacity int, observedAt time.Time) entities.CourseRow {
	return entities.CourseRow{
		ClassCode:      classCode,
		CourseCode:     courseCode,
		CourseName:     "Test Course",
		AvailableSeats: seats,
		TotalCapacity:  capacity,
		Schedule:       "Mon 7:00-9:00",
		Room:           "A-301",
		Instructor:     "Dr. Pham",
		Status:         "Open",
		ObservedAt:     observedAt,
	}
}

func TestCourseStateUpsertAndGet(t *testing.T) {
	repo := newTestRepository(t)
	now := time.Now().Truncate(time.Second)

	// Unknown class code returns no state and no error
	state, err := repo.GetCourseState("CS403A")
	if err != nil {
		t.Fatalf("GetCourseState failed: %v", err)
	}
	if state != nil {
		t.Fatalf("Expected no state for unknown class code, got %+v", state)
	}

	if err := repo.UpsertCourseState(testRow("CS403A", "CS 403", 5, 30, now)); err != nil {
		t.Fatalf("UpsertCourseState failed: %v", err)
	}

	state, err = repo.GetCourseState("CS403A")
	if err != nil {
		t.Fatalf("GetCourseState failed: %v", err)
	}
	if state == nil {
		t.Fatal("Expected stored state after upsert")
	}
	if state.AvailableSeats != 5 || state.TotalCapacity != 30 {
		t.Errorf("Expected 5/30 seats, got %d/%d", state.AvailableSeats, state.TotalCapacity)
	}
	if state.CourseCode != "CS 403" {
		t.Errorf("Expected course code CS 403, got %s", state.CourseCode)
	}
	if state.Room != "A-301" || state.Instructor != "Dr. Pham" {
		t.Errorf("Display fields not round-tripped: %+v", state.CourseRow)
	}

	// Upserting the same class code overwrites rather than duplicating
	later := now.Add(10 * time.Minute)
	if err := repo.UpsertCourseState(testRow("CS403A", "CS 403", 8, 30, later)); err != nil {
		t.Fatalf("UpsertCourseState failed: %v", err)
	}

	state, err = repo.GetCourseState("CS403A")
	if err != nil {
		t.Fatalf("GetCourseState failed: %v", err)
	}
	if state.AvailableSeats != 8 {
		t.Errorf("Expected updated seat count 8, got %d", state.AvailableSeats)
	}

	all, err := repo.AllCourseStates()
	if err != nil {
		t.Fatalf("AllCourseStates failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("Expected exactly one state per class code, got %d", len(all))
	}
}

func TestGetCoursesByCode(t *testing.T) {
	repo := newTestRepository(t)
	now := time.Now().Truncate(time.Second)

	rows := []entities.CourseRow{
		testRow("CS403A", "CS 403", 5, 30, now),
		testRow("CS403B", "CS 403", 0, 30, now),
		testRow("MTH101A", "MTH 101", 12, 40, now),
	}
	for _, row := range rows {
		if err := repo.UpsertCourseState(row); err != nil {
			t.Fatalf("UpsertCourseState failed: %v", err)
		}
	}

	classes, err := repo.GetCoursesByCode("CS 403")
	if err != nil {
		t.Fatalf("GetCoursesByCode failed: %v", err)
	}
	if len(classes) != 2 {
		t.Fatalf("Expected 2 classes for CS 403, got %d", len(classes))
	}
	if classes[0].ClassCode != "CS403A" || classes[1].ClassCode != "CS403B" {
		t.Errorf("Expected classes ordered by class code, got %s, %s",
			classes[0].ClassCode, classes[1].ClassCode)
	}
}

func TestSeatHistoryAppendAndGet(t *testing.T) {
	repo := newTestRepository(t)
	base := time.Now().Truncate(time.Second)

	for i := 0; i < 5; i++ {
		entry := entities.SeatHistoryEntry{
			ClassCode:      "CS403A",
			AvailableSeats: i,
			TotalCapacity:  30,
			ObservedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.AppendSeatHistory(entry); err != nil {
			t.Fatalf("AppendSeatHistory failed: %v", err)
		}
	}

	history, err := repo.GetSeatHistory("CS403A", 3)
	if err != nil {
		t.Fatalf("GetSeatHistory failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("Expected 3 history entries with limit, got %d", len(history))
	}
	if history[0].AvailableSeats != 4 {
		t.Errorf("Expected newest entry first (4 seats), got %d", history[0].AvailableSeats)
	}

	all, err := repo.GetSeatHistory("CS403A", 0)
	if err != nil {
		t.Fatalf("GetSeatHistory failed: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("Expected all 5 history entries without limit, got %d", len(all))
	}

	other, err := repo.GetSeatHistory("MTH101A", 0)
	if err != nil {
		t.Fatalf("GetSeatHistory failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("Expected no history for unknown class code, got %d entries", len(other))
	}
}

func TestWatchlistAddIsIdempotentUpsert(t *testing.T) {
	repo := newTestRepository(t)

	if err := repo.AddWatchedCourse("CS 403", 0); err != nil {
		t.Fatalf("AddWatchedCourse failed: %v", err)
	}

	// Re-adding updates the threshold instead of duplicating
	if err := repo.AddWatchedCourse("CS 403", 5); err != nil {
		t.Fatalf("AddWatchedCourse failed: %v", err)
	}

	entries, err := repo.ListWatchedCourses(false)
	if err != nil {
		t.Fatalf("ListWatchedCourses failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 watchlist entry after re-add, got %d", len(entries))
	}
	if entries[0].NotifyWhenSeatsGT != 5 {
		t.Errorf("Expected updated threshold 5, got %d", entries[0].NotifyWhenSeatsGT)
	}
	if !entries[0].IsActive {
		t.Error("Expected entry to be active")
	}
	if entries[0].AddedAt.IsZero() {
		t.Error("Expected added_at to be set")
	}
}

func TestWatchlistDeactivateKeepsEntry(t *testing.T) {
	repo := newTestRepository(t)

	if err := repo.AddWatchedCourse("CS 403", 0); err != nil {
		t.Fatalf("AddWatchedCourse failed: %v", err)
	}
	if err := repo.AddWatchedCourse("MTH 101", 2); err != nil {
		t.Fatalf("AddWatchedCourse failed: %v", err)
	}

	if err := repo.DeactivateWatchedCourse("CS 403"); err != nil {
		t.Fatalf("DeactivateWatchedCourse failed: %v", err)
	}

	active, err := repo.ListWatchedCourses(true)
	if err != nil {
		t.Fatalf("ListWatchedCourses failed: %v", err)
	}
	if len(active) != 1 || active[0].CourseCode != "MTH 101" {
		t.Errorf("Expected only MTH 101 active, got %+v", active)
	}

	all, err := repo.ListWatchedCourses(false)
	if err != nil {
		t.Fatalf("ListWatchedCourses failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected deactivated entry to be retained, got %d entries", len(all))
	}

	// Re-adding reactivates
	if err := repo.AddWatchedCourse("CS 403", 1); err != nil {
		t.Fatalf("AddWatchedCourse failed: %v", err)
	}
	active, err = repo.ListWatchedCourses(true)
	if err != nil {
		t.Fatalf("ListWatchedCourses failed: %v", err)
	}
	if len(active) != 2 {
		t.Errorf("Expected re-added course to be active again, got %d entries", len(active))
	}
}

func TestWatchlistDeactivateUnknownCourse(t *testing.T) {
	repo := newTestRepository(t)

	if err := repo.DeactivateWatchedCourse("NOPE 999"); err == nil {
		t.Error("Expected error when deactivating a course that was never added")
	}
}
