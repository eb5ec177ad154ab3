package usecases

import (
	"log"

	"github.com/hqnguyen/seat-bot/internal/entities"
)

// DecideNotifications filters change events through the watchlist and
// returns a payload for every event worth alerting on.
//
// An event qualifies when an active watchlist entry exists for its
// course code and the current seat count is strictly above that
// entry's threshold. Events whose previous count was already above the
// threshold are suppressed: the alert for that level fired when the
// count first crossed, and re-alerting on every fluctuation above the
// threshold would spam subscribers. If a deployment wants an alert on
// every qualifying poll instead, removing the suppression branch is
// the only change needed.
//
// The function is pure apart from logging; calling it twice with the
// same inputs yields the same payloads.
func DecideNotifications(events []entities.ChangeEvent, watchlist []entities.WatchlistEntry) []entities.NotificationPayload {
	active := make(map[string]entities.WatchlistEntry, len(watchlist))
	for _, entry := range watchlist {
		if entry.IsActive {
			active[entry.CourseCode] = entry
		}
	}

	var payloads []entities.NotificationPayload
	for _, event := range events {
		entry, ok := active[event.CourseCode]
		if !ok {
			continue
		}

		threshold := entry.NotifyWhenSeatsGT
		wasAbove := event.PreviousSeats != nil && *event.PreviousSeats > threshold

		if event.CurrentSeats <= threshold {
			if wasAbove {
				log.Printf("Class %s (%s) dropped to %d seats, at or below notify threshold %d",
					event.ClassCode, event.CourseCode, event.CurrentSeats, threshold)
			}
			continue
		}

		if wasAbove {
			log.Printf("Suppressing alert for class %s (%s): previous count %d was already above threshold %d",
				event.ClassCode, event.CourseCode, *event.PreviousSeats, threshold)
			continue
		}

		row := event.CurrentRow
		payloads = append(payloads, entities.NotificationPayload{
			CourseCode:    event.CourseCode,
			CourseName:    row.CourseName,
			ClassCode:     event.ClassCode,
			PreviousSeats: event.PreviousSeats,
			CurrentSeats:  event.CurrentSeats,
			Delta:         event.Delta,
			TotalCapacity: row.TotalCapacity,
			Schedule:      row.Schedule,
			Room:          row.Room,
			Instructor:    row.Instructor,
			Status:        row.Status,
			ObservedAt:    row.ObservedAt,
		})
	}
	return payloads
}
