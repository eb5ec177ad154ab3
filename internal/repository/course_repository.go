// Package repository provides data access implementations
package repository

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/hqnguyen/seat-bot/internal/entities"
	_ "github.com/mattn/go-sqlite3"
)

// CourseRepository defines the persistence operations used by the
// monitoring cycle: the latest-state snapshot store, the append-only
// seat history, and the watchlist registry.
type CourseRepository interface {
	GetCourseState(classCode string) (*entities.StoredCourseState, error)
	UpsertCourseState(row entities.CourseRow) error
	AllCourseStates() ([]entities.StoredCourseState, error)
	GetCoursesByCode(courseCode string) ([]entities.StoredCourseState, error)

	AppendSeatHistory(entry entities.SeatHistoryEntry) error
	GetSeatHistory(classCode string, limit int) ([]entities.SeatHistoryEntry, error)

	AddWatchedCourse(courseCode string, threshold int) error
	DeactivateWatchedCourse(courseCode string) error
	ListWatchedCourses(activeOnly bool) ([]entities.WatchlistEntry, error)

	Close() error
}

// SQLiteCourseRepository implements CourseRepository using SQLite
type SQLiteCourseRepository struct {
	db     *sql.DB
	DBPath string
}

// NewSQLiteCourseRepository creates and initializes a new SQLite repository
func NewSQLiteCourseRepository(dbPath string) (*SQLiteCourseRepository, error) {
	if dbPath == "" {
		// Set default path if not specified
		dbDir := "data"
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %v", err)
		}
		dbPath = filepath.Join(dbDir, "courses.db")
	} else if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %v", err)
		}
	}

	log.Printf("Opening database at %s", dbPath)
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS courses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		course_code TEXT NOT NULL,
		course_name TEXT,
		class_code TEXT UNIQUE NOT NULL,
		available_seats INTEGER NOT NULL,
		total_capacity INTEGER NOT NULL,
		schedule TEXT,
		room TEXT,
		instructor TEXT,
		status TEXT,
		observed_at DATETIME NOT NULL,
		last_updated DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS seat_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		class_code TEXT NOT NULL,
		available_seats INTEGER NOT NULL,
		total_capacity INTEGER NOT NULL,
		observed_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS monitored_courses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		course_code TEXT UNIQUE NOT NULL,
		notify_when_seats_gt INTEGER NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		added_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_courses_course_code ON courses(course_code);
	CREATE INDEX IF NOT EXISTS idx_seat_history_class_code ON seat_history(class_code);`

	_, err = db.Exec(createTableSQL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %v", err)
	}

	return &SQLiteCourseRepository{
		db:     db,
		DBPath: dbPath,
	}, nil
}

// Close closes the database connection
func (r *SQLiteCourseRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// GetCourseState returns the stored state for a class code, or nil if
// the class code has never been observed.
func (r *SQLiteCourseRepository) GetCourseState(classCode string) (*entities.StoredCourseState, error) {
	query := `
		SELECT id, course_code, course_name, class_code, available_seats,
		       total_capacity, schedule, room, instructor, status,
		       observed_at, last_updated
		FROM courses
		WHERE class_code = ?`

	var state entities.StoredCourseState
	err := r.db.QueryRow(query, classCode).Scan(
		&state.ID,
		&state.CourseCode,
		&state.CourseName,
		&state.ClassCode,
		&state.AvailableSeats,
		&state.TotalCapacity,
		&state.Schedule,
		&state.Room,
		&state.Instructor,
		&state.Status,
		&state.ObservedAt,
		&state.LastUpdated,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query course state for %s: %v", classCode, err)
	}
	return &state, nil
}

// UpsertCourseState replaces the stored state for a class code.
// Each call is a single autocommit statement, so rows written before
// a mid-cycle failure stay committed.
func (r *SQLiteCourseRepository) UpsertCourseState(row entities.CourseRow) error {
	_, err := r.db.Exec(`
		INSERT INTO courses (course_code, course_name, class_code, available_seats,
		                     total_capacity, schedule, room, instructor, status,
		                     observed_at, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(class_code) DO UPDATE SET
			course_code=excluded.course_code,
			course_name=excluded.course_name,
			available_seats=excluded.available_seats,
			total_capacity=excluded.total_capacity,
			schedule=excluded.schedule,
			room=excluded.room,
			instructor=excluded.instructor,
			status=excluded.status,
			observed_at=excluded.observed_at,
			last_updated=excluded.last_updated`,
		row.CourseCode,
		row.CourseName,
		row.ClassCode,
		row.AvailableSeats,
		row.TotalCapacity,
		row.Schedule,
		row.Room,
		row.Instructor,
		row.Status,
		row.ObservedAt,
		row.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert course state for %s: %v", row.ClassCode, err)
	}
	return nil
}

// AllCourseStates returns the stored state of every known class code.
func (r *SQLiteCourseRepository) AllCourseStates() ([]entities.StoredCourseState, error) {
	query := `
		SELECT id, course_code, course_name, class_code, available_seats,
		       total_capacity, schedule, room, instructor, status,
		       observed_at, last_updated
		FROM courses
		ORDER BY course_code, class_code`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query course states: %v", err)
	}
	defer rows.Close()

	return scanCourseStates(rows)
}

// GetCoursesByCode returns the stored state of every class belonging
// to a course code.
func (r *SQLiteCourseRepository) GetCoursesByCode(courseCode string) ([]entities.StoredCourseState, error) {
	query := `
		SELECT id, course_code, course_name, class_code, available_seats,
		       total_capacity, schedule, room, instructor, status,
		       observed_at, last_updated
		FROM courses
		WHERE course_code = ?
		ORDER BY class_code`

	rows, err := r.db.Query(query, courseCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses for %s: %v", courseCode, err)
	}
	defer rows.Close()

	return scanCourseStates(rows)
}

func scanCourseStates(rows *sql.Rows) ([]entities.StoredCourseState, error) {
	var result []entities.StoredCourseState
	for rows.Next() {
		var state entities.StoredCourseState
		if err := rows.Scan(
			&state.ID,
			&state.CourseCode,
			&state.CourseName,
			&state.ClassCode,
			&state.AvailableSeats,
			&state.TotalCapacity,
			&state.Schedule,
			&state.Room,
			&state.Instructor,
			&state.Status,
			&state.ObservedAt,
			&state.LastUpdated,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		result = append(result, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %v", err)
	}
	return result, nil
}

// AppendSeatHistory writes one immutable audit record of an observed
// seat count.
func (r *SQLiteCourseRepository) AppendSeatHistory(entry entities.SeatHistoryEntry) error {
	_, err := r.db.Exec(`
		INSERT INTO seat_history (class_code, available_seats, total_capacity, observed_at)
		VALUES (?, ?, ?, ?)`,
		entry.ClassCode,
		entry.AvailableSeats,
		entry.TotalCapacity,
		entry.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append seat history for %s: %v", entry.ClassCode, err)
	}
	return nil
}

// GetSeatHistory returns the most recent history entries for a class
// code, newest first. A limit <= 0 returns all entries.
func (r *SQLiteCourseRepository) GetSeatHistory(classCode string, limit int) ([]entities.SeatHistoryEntry, error) {
	query := `
		SELECT class_code, available_seats, total_capacity, observed_at
		FROM seat_history
		WHERE class_code = ?
		ORDER BY observed_at DESC, id DESC`
	args := []interface{}{classCode}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query seat history for %s: %v", classCode, err)
	}
	defer rows.Close()

	var result []entities.SeatHistoryEntry
	for rows.Next() {
		var entry entities.SeatHistoryEntry
		if err := rows.Scan(
			&entry.ClassCode,
			&entry.AvailableSeats,
			&entry.TotalCapacity,
			&entry.ObservedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %v", err)
	}
	return result, nil
}

// AddWatchedCourse adds a course code to the watchlist. Re-adding an
// existing course updates its threshold and reactivates it instead of
// duplicating the entry.
func (r *SQLiteCourseRepository) AddWatchedCourse(courseCode string, threshold int) error {
	_, err := r.db.Exec(`
		INSERT INTO monitored_courses (course_code, notify_when_seats_gt, is_active, added_at)
		VALUES (?, ?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(course_code) DO UPDATE SET
			notify_when_seats_gt=excluded.notify_when_seats_gt,
			is_active=1`,
		courseCode,
		threshold,
	)
	if err != nil {
		return fmt.Errorf("failed to add watched course %s: %v", courseCode, err)
	}
	return nil
}

// DeactivateWatchedCourse excludes a course from notification
// decisions while keeping its entry for the audit trail.
func (r *SQLiteCourseRepository) DeactivateWatchedCourse(courseCode string) error {
	res, err := r.db.Exec(`
		UPDATE monitored_courses SET is_active = 0 WHERE course_code = ?`,
		courseCode,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate watched course %s: %v", courseCode, err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("course %s is not on the watchlist", courseCode)
	}
	return nil
}

// ListWatchedCourses returns watchlist entries, optionally only the
// active ones.
func (r *SQLiteCourseRepository) ListWatchedCourses(activeOnly bool) ([]entities.WatchlistEntry, error) {
	query := `
		SELECT course_code, notify_when_seats_gt, is_active, added_at
		FROM monitored_courses`
	if activeOnly {
		query += " WHERE is_active = 1"
	}
	query += " ORDER BY course_code"

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query watched courses: %v", err)
	}
	defer rows.Close()

	var result []entities.WatchlistEntry
	for rows.Next() {
		var entry entities.WatchlistEntry
		if err := rows.Scan(
			&entry.CourseCode,
			&entry.NotifyWhenSeatsGT,
			&entry.IsActive,
			&entry.AddedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %v", err)
	}
	return result, nil
}
