package usecases

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hqnguyen/seat-bot/internal/entities"
)

type stubStateReader struct {
	states map[string]entities.StoredCourseState
	err    error
}

func (s *stubStateReader) GetCourseState(classCode string) (*entities.StoredCourseState, error) {
	if s.err != nil {
		return nil, s.err
	}
	state, ok := s.states[classCode]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func courseRow(classCode, courseCode string, seats, capacity int) entities.CourseRow {
	return entities.CourseRow{
		ClassCode:      classCode,
		CourseCode:     courseCode,
		AvailableSeats: seats,
		TotalCapacity:  capacity,
		ObservedAt:     time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

func storedState(row entities.CourseRow) entities.StoredCourseState {
	return entities.StoredCourseState{CourseRow: row, LastUpdated: row.ObservedAt}
}

func TestDetectChangesFirstSeen(t *testing.T) {
	store := &stubStateReader{states: map[string]entities.StoredCourseState{}}
	rows := []entities.CourseRow{
		courseRow("CS403A", "CS 403", 5, 30),
		courseRow("CS403B", "CS 403", 0, 30),
	}

	events, err := DetectChanges(rows, store)
	require.NoError(t, err)
	require.Len(t, events, 2)

	for i, event := range events {
		assert.Nil(t, event.PreviousSeats, "first-seen event must have nil previous seats")
		assert.Equal(t, rows[i].ClassCode, event.ClassCode)
		assert.Equal(t, rows[i].AvailableSeats, event.CurrentSeats)
		assert.Equal(t, rows[i].AvailableSeats, event.Delta, "first-seen delta is the full current count")
		assert.Nil(t, event.PreviousRow)
	}
}

func TestDetectChangesUnchangedRowsEmitNothing(t *testing.T) {
	row := courseRow("CS403A", "CS 403", 5, 30)
	store := &stubStateReader{states: map[string]entities.StoredCourseState{
		"CS403A": storedState(row),
	}}

	events, err := DetectChanges([]entities.CourseRow{row}, store)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestDetectChangesSignedDelta(t *testing.T) {
	previous := courseRow("CS403A", "CS 403", 10, 30)
	store := &stubStateReader{states: map[string]entities.StoredCourseState{
		"CS403A": storedState(previous),
	}}

	current := courseRow("CS403A", "CS 403", 7, 30)
	events, err := DetectChanges([]entities.CourseRow{current}, store)
	require.NoError(t, err)
	require.Len(t, events, 1)

	event := events[0]
	require.NotNil(t, event.PreviousSeats)
	assert.Equal(t, 10, *event.PreviousSeats)
	assert.Equal(t, 7, event.CurrentSeats)
	assert.Equal(t, -3, event.Delta)
	require.NotNil(t, event.PreviousRow)
	assert.Equal(t, 10, event.PreviousRow.AvailableSeats)
}

func TestDetectChangesKeepsInputOrder(t *testing.T) {
	store := &stubStateReader{states: map[string]entities.StoredCourseState{
		"B": storedState(courseRow("B", "MTH 101", 2, 20)),
	}}
	rows := []entities.CourseRow{
		courseRow("Z", "CS 403", 1, 30),
		courseRow("B", "MTH 101", 4, 20),
		courseRow("A", "CS 403", 2, 30),
	}

	events, err := DetectChanges(rows, store)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "Z", events[0].ClassCode)
	assert.Equal(t, "B", events[1].ClassCode)
	assert.Equal(t, "A", events[2].ClassCode)
}

func TestDetectChangesStoreReadFailure(t *testing.T) {
	store := &stubStateReader{err: errors.New("disk on fire")}

	_, err := DetectChanges([]entities.CourseRow{courseRow("CS403A", "CS 403", 5, 30)}, store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CS403A")
}
