package usecases

import (
	"fmt"

	"github.com/hqnguyen/seat-bot/internal/entities"
)

// StateReader is the subset of the repository the change detector
// needs: lookups of previously stored state by class code.
type StateReader interface {
	GetCourseState(classCode string) (*entities.StoredCourseState, error)
}

// DetectChanges compares a freshly scraped snapshot against stored
// state and returns one ChangeEvent per class section whose seat count
// differs from the last observation.
//
// A class code seen for the first time produces an event with a nil
// PreviousSeats and Delta equal to the current count. Sections whose
// count is unchanged produce no event. Class codes present in the
// store but absent from the snapshot are not emitted here; the
// orchestrator logs those separately. Events keep the order of the
// input rows.
func DetectChanges(rows []entities.CourseRow, store StateReader) ([]entities.ChangeEvent, error) {
	var events []entities.ChangeEvent
	for _, row := range rows {
		prev, err := store.GetCourseState(row.ClassCode)
		if err != nil {
			return nil, fmt.Errorf("failed to read stored state for %s: %w", row.ClassCode, err)
		}

		if prev == nil {
			events = append(events, entities.ChangeEvent{
				ClassCode:    row.ClassCode,
				CourseCode:   row.CourseCode,
				CurrentSeats: row.AvailableSeats,
				Delta:        row.AvailableSeats,
				CurrentRow:   row,
			})
			continue
		}

		if prev.AvailableSeats == row.AvailableSeats {
			continue
		}

		previousSeats := prev.AvailableSeats
		events = append(events, entities.ChangeEvent{
			ClassCode:     row.ClassCode,
			CourseCode:    row.CourseCode,
			PreviousSeats: &previousSeats,
			CurrentSeats:  row.AvailableSeats,
			Delta:         row.AvailableSeats - prev.AvailableSeats,
			PreviousRow:   prev,
			CurrentRow:    row,
		})
	}
	return events, nil
}
