// Package usecases contains the application's business logic
package usecases

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/hqnguyen/seat-bot/internal/entities"
	"github.com/hqnguyen/seat-bot/internal/repository"
)

// dispatchWorkers bounds concurrent notification sends in one cycle.
const dispatchWorkers = 4

// Scraper produces the current snapshot of course rows for the given
// course codes.
type Scraper interface {
	ScrapeCourses(courseCodes []string) ([]entities.CourseRow, error)
}

// Notifier delivers messages to subscribers. Each call reports a
// binary success/failure for the whole delivery.
type Notifier interface {
	SendSeatAlert(payload entities.NotificationPayload) error
	SendSummary(text string) error
	SendErrorNotification(message, details string) error
	TestConnection() error
}

// MonitorUseCase ties the scraper, store, change detection, decision
// engine and notifier together into monitoring cycles, and exposes
// the administrative operations of the watchlist.
type MonitorUseCase struct {
	repo     repository.CourseRepository
	scraper  Scraper
	notifier Notifier
}

// NewMonitorUseCase creates a new monitor use case
func NewMonitorUseCase(repo repository.CourseRepository, scraper Scraper, notifier Notifier) *MonitorUseCase {
	return &MonitorUseCase{
		repo:     repo,
		scraper:  scraper,
		notifier: notifier,
	}
}

// RunCycleOnce executes one complete monitoring cycle:
// fetch -> detect -> decide -> persist -> dispatch -> record history.
//
// Only a fetch failure aborts before any mutation. Malformed rows are
// skipped per row, dispatch failures are collected per payload, and
// history write failures are counted; all of those still end the cycle
// with a summary. A store failure is fatal from its point of failure
// onward, with earlier writes staying committed.
func (uc *MonitorUseCase) RunCycleOnce() (*entities.CycleSummary, error) {
	log.Println("Starting monitoring cycle...")
	summary := &entities.CycleSummary{}

	watched, err := uc.repo.ListWatchedCourses(true)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	if len(watched) == 0 {
		log.Println("No courses are being monitored, skipping cycle")
		return summary, nil
	}

	codes := make([]string, 0, len(watched))
	for _, entry := range watched {
		codes = append(codes, entry.CourseCode)
	}
	log.Printf("Monitoring %d courses: %s", len(codes), strings.Join(codes, ", "))

	rows, err := uc.scraper.ScrapeCourses(codes)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	summary.RowsSeen = len(rows)
	log.Printf("Scraped %d course rows", len(rows))

	valid := make([]entities.CourseRow, 0, len(rows))
	for _, row := range rows {
		if err := validateRow(row); err != nil {
			summary.RowsSkipped++
			summary.Errors = append(summary.Errors, err.Error())
			log.Printf("Warning: skipping row: %v", err)
			continue
		}
		if row.AvailableSeats > row.TotalCapacity {
			// Website data is occasionally inconsistent; worth a log
			// line but not a skipped row.
			log.Printf("Warning: class %s reports %d available seats over capacity %d",
				row.ClassCode, row.AvailableSeats, row.TotalCapacity)
		}
		valid = append(valid, row)
	}

	events, err := DetectChanges(valid, uc.repo)
	if err != nil {
		summary.Errors = append(summary.Errors, err.Error())
		return summary, &PersistenceError{Err: err}
	}
	summary.ChangesDetected = len(events)
	log.Printf("Detected %d seat changes", len(events))

	disappeared, err := uc.countDisappeared(valid)
	if err != nil {
		log.Printf("Warning: failed to check for disappeared class codes: %v", err)
	} else if disappeared > 0 {
		summary.Disappeared = disappeared
		log.Printf("%d previously seen class codes are missing from this snapshot", disappeared)
	}

	payloads := DecideNotifications(events, watched)
	log.Printf("%d changes are notification-worthy", len(payloads))

	// Persist before dispatching: a crash between the two loses at
	// most one cycle's notifications and never double-persists.
	for _, row := range valid {
		if err := uc.repo.UpsertCourseState(row); err != nil {
			perr := &PersistenceError{ClassCode: row.ClassCode, Err: err}
			summary.Errors = append(summary.Errors, perr.Error())
			return summary, perr
		}
	}

	sent, failures := uc.dispatch(payloads)
	summary.NotificationsSent = sent
	summary.NotificationsFailed = len(failures)
	for _, failure := range failures {
		summary.Errors = append(summary.Errors, failure.Error())
		log.Printf("Error: %v", failure)
	}

	// History records every observed row, changed or not, so the audit
	// trail stays complete. A failed append is loud but never rolls
	// back the notifications already sent.
	for _, row := range valid {
		entry := entities.SeatHistoryEntry{
			ClassCode:      row.ClassCode,
			AvailableSeats: row.AvailableSeats,
			TotalCapacity:  row.TotalCapacity,
			ObservedAt:     row.ObservedAt,
		}
		if err := uc.repo.AppendSeatHistory(entry); err != nil {
			summary.HistoryFailures++
			summary.Errors = append(summary.Errors, err.Error())
			log.Printf("Error: failed to record seat history for %s: %v", row.ClassCode, err)
		}
	}

	log.Printf("Cycle complete: %d rows seen, %d skipped, %d changes, %d notifications sent, %d failed",
		summary.RowsSeen, summary.RowsSkipped, summary.ChangesDetected,
		summary.NotificationsSent, summary.NotificationsFailed)
	return summary, nil
}

func validateRow(row entities.CourseRow) error {
	switch {
	case strings.TrimSpace(row.ClassCode) == "":
		return &MalformedRowError{ClassCode: row.CourseCode, Reason: "missing class code"}
	case strings.TrimSpace(row.CourseCode) == "":
		return &MalformedRowError{ClassCode: row.ClassCode, Reason: "missing course code"}
	case row.AvailableSeats < 0:
		return &MalformedRowError{ClassCode: row.ClassCode, Reason: fmt.Sprintf("negative available seats %d", row.AvailableSeats)}
	case row.TotalCapacity < 0:
		return &MalformedRowError{ClassCode: row.ClassCode, Reason: fmt.Sprintf("negative total capacity %d", row.TotalCapacity)}
	}
	return nil
}

// countDisappeared reports how many stored class codes are absent from
// the current snapshot. Disappearance is diagnostic only; stored state
// is never deleted because of it.
func (uc *MonitorUseCase) countDisappeared(rows []entities.CourseRow) (int, error) {
	stored, err := uc.repo.AllCourseStates()
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		seen[row.ClassCode] = true
	}
	missing := 0
	for _, state := range stored {
		if !seen[state.ClassCode] {
			missing++
		}
	}
	return missing, nil
}

// dispatch sends every payload through a bounded pool of workers. One
// failing payload never blocks delivery attempts for the others.
func (uc *MonitorUseCase) dispatch(payloads []entities.NotificationPayload) (int, []*DispatchError) {
	if len(payloads) == 0 {
		return 0, nil
	}

	var (
		mu       sync.Mutex
		sent     int
		failures []*DispatchError
		wg       sync.WaitGroup
	)
	sem := make(chan struct{}, dispatchWorkers)

	for _, payload := range payloads {
		wg.Add(1)
		sem <- struct{}{}
		go func(p entities.NotificationPayload) {
			defer wg.Done()
			defer func() { <-sem }()

			err := uc.notifier.SendSeatAlert(p)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, &DispatchError{ClassCode: p.ClassCode, Err: err})
			} else {
				sent++
				log.Printf("Sent seat alert for class %s (%s)", p.ClassCode, p.CourseCode)
			}
		}(payload)
	}
	wg.Wait()
	return sent, failures
}

// AddCourse puts a course code on the watchlist. Re-adding an existing
// course updates its threshold and reactivates it.
func (uc *MonitorUseCase) AddCourse(courseCode string, threshold int) error {
	courseCode = strings.TrimSpace(courseCode)
	if courseCode == "" {
		return fmt.Errorf("course code must not be empty")
	}
	if threshold < 0 {
		return fmt.Errorf("notification threshold must not be negative, got %d", threshold)
	}
	if err := uc.repo.AddWatchedCourse(courseCode, threshold); err != nil {
		return err
	}
	log.Printf("Added %s to the watchlist (notify when seats > %d)", courseCode, threshold)
	return nil
}

// DeactivateCourse stops notifications for a course code while keeping
// its watchlist entry.
func (uc *MonitorUseCase) DeactivateCourse(courseCode string) error {
	if err := uc.repo.DeactivateWatchedCourse(strings.TrimSpace(courseCode)); err != nil {
		return err
	}
	log.Printf("Deactivated %s on the watchlist", courseCode)
	return nil
}

// ListWatched returns the watchlist entries, optionally only active ones.
func (uc *MonitorUseCase) ListWatched(activeOnly bool) ([]entities.WatchlistEntry, error) {
	return uc.repo.ListWatchedCourses(activeOnly)
}

// CoursesFor returns the latest stored state of every class belonging
// to a course code.
func (uc *MonitorUseCase) CoursesFor(courseCode string) ([]entities.StoredCourseState, error) {
	return uc.repo.GetCoursesByCode(courseCode)
}

// Summarize builds a report of every watched course and its latest
// known class states, sends it through the notifier and returns the
// text. A failed send is logged but does not discard the report.
func (uc *MonitorUseCase) Summarize() (string, error) {
	watched, err := uc.repo.ListWatchedCourses(true)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("📋 Monitoring Summary\n\n")
	b.WriteString(fmt.Sprintf("🔍 Watched courses: %d\n", len(watched)))
	b.WriteString(fmt.Sprintf("🕒 Generated: %s\n", time.Now().Format("2006-01-02 15:04:05")))

	for _, entry := range watched {
		classes, err := uc.repo.GetCoursesByCode(entry.CourseCode)
		if err != nil {
			return "", err
		}
		b.WriteString(fmt.Sprintf("\n• %s (notify when seats > %d)\n", entry.CourseCode, entry.NotifyWhenSeatsGT))
		if len(classes) == 0 {
			b.WriteString("  no classes observed yet\n")
			continue
		}
		for _, class := range classes {
			b.WriteString(fmt.Sprintf("  %s: %d/%d seats, last seen %s\n",
				class.ClassCode, class.AvailableSeats, class.TotalCapacity,
				class.LastUpdated.Format("2006-01-02 15:04")))
		}
	}

	text := b.String()
	if err := uc.notifier.SendSummary(text); err != nil {
		log.Printf("Warning: failed to send summary notification: %v", err)
	}
	return text, nil
}

// TestScraper runs one scrape of the watched courses without touching
// the store, for manual verification.
func (uc *MonitorUseCase) TestScraper() ([]entities.CourseRow, error) {
	watched, err := uc.repo.ListWatchedCourses(true)
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(watched))
	for _, entry := range watched {
		codes = append(codes, entry.CourseCode)
	}
	if len(codes) == 0 {
		return nil, fmt.Errorf("no courses on the watchlist to scrape")
	}
	return uc.scraper.ScrapeCourses(codes)
}

// TestTelegram verifies the notification transport end to end.
func (uc *MonitorUseCase) TestTelegram() error {
	return uc.notifier.TestConnection()
}

// ReportCycleFailure pushes a cycle-level error to subscribers so a
// broken scrape does not go unnoticed until someone reads the logs.
func (uc *MonitorUseCase) ReportCycleFailure(err error) {
	if err == nil {
		return
	}
	if nerr := uc.notifier.SendErrorNotification("Monitoring cycle failed", err.Error()); nerr != nil {
		log.Printf("Error: failed to send error notification: %v", nerr)
	}
}
