// Package entities contains the core domain objects for the seat-bot application
package entities

import (
	"time"
)

// CourseRow represents one scraped class section at a point in time.
// The scraper supplies the CourseCode alongside the ClassCode so the
// monitoring core never has to re-derive the mapping from identifier
// naming conventions.
type CourseRow struct {
	ClassCode      string    // Registration code, unique per section
	CourseCode     string    // Course identifier shared by sections, e.g. "CS 403"
	CourseName     string    // Full course name for display
	AvailableSeats int       // Number of open seats
	TotalCapacity  int       // Total seats in the section
	Schedule       string    // Class schedule text
	Room           string    // Room number/location
	Instructor     string    // Instructor name
	Status         string    // Registration status text
	ObservedAt     time.Time // When this observation was scraped
}

// StoredCourseState is the most recently persisted CourseRow for a
// class code. Exactly one exists per class code; it is overwritten on
// every poll that observes the section and never deleted automatically.
type StoredCourseState struct {
	ID          int64
	CourseRow
	LastUpdated time.Time
}

// SeatHistoryEntry is one append-only audit record of an observed
// seat count. Immutable once written.
type SeatHistoryEntry struct {
	ClassCode      string
	AvailableSeats int
	TotalCapacity  int
	ObservedAt     time.Time
}

// WatchlistEntry marks a course code as monitored. A section becomes
// notify-worthy when its available seats exceed NotifyWhenSeatsGT.
// Entries are deactivated rather than deleted.
type WatchlistEntry struct {
	CourseCode        string
	NotifyWhenSeatsGT int
	IsActive          bool
	AddedAt           time.Time
}

// ChangeEvent describes one detected seat-count transition for a class
// section. PreviousSeats is nil when the class code was first seen in
// the current poll.
type ChangeEvent struct {
	ClassCode     string
	CourseCode    string
	PreviousSeats *int
	CurrentSeats  int
	Delta         int
	PreviousRow   *StoredCourseState
	CurrentRow    CourseRow
}

// NotificationPayload carries everything the notification transport
// needs to render a seat alert. Display fields come from the current
// scraped row unchanged.
type NotificationPayload struct {
	CourseCode    string
	CourseName    string
	ClassCode     string
	PreviousSeats *int
	CurrentSeats  int
	Delta         int
	TotalCapacity int
	Schedule      string
	Room          string
	Instructor    string
	Status        string
	ObservedAt    time.Time
}

// CycleSummary reports the outcome of one monitoring cycle. A cycle
// that gets past the fetch step always produces a summary, even when
// individual rows, notifications, or history writes failed.
type CycleSummary struct {
	RowsSeen            int
	RowsSkipped         int
	ChangesDetected     int
	Disappeared         int
	NotificationsSent   int
	NotificationsFailed int
	HistoryFailures     int
	Errors              []string
}
