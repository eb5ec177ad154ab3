package api

import (
	"strings"
	"testing"
	"time"

	"github.com/hqnguyen/seat-bot/internal/entities"
)

func TestFormatSeatAlert(t *testing.T) {
	previous := 0
	payload := entities.NotificationPayload{
		CourseCode:    "CS 403",
		CourseName:    "Software Architecture",
		ClassCode:     "CS403A",
		PreviousSeats: &previous,
		CurrentSeats:  5,
		Delta:         5,
		TotalCapacity: 30,
		Schedule:      "Mon 7:00-9:00",
		Room:          "A-301",
		Instructor:    "Dr. Pham",
		Status:        "Open",
		ObservedAt:    time.Date(2026, 4, 18, 8, 0, 0, 0, time.UTC),
	}

	text := FormatSeatAlert(payload)

	for _, want := range []string{
		"CS 403",
		"Software Architecture",
		"CS403A",
		"5/30",
		"(was 0, +5)",
		"Mon 7:00-9:00",
		"A-301",
		"Dr. Pham",
		"2026-04-18 08:00:00",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected alert to contain %q, got:\n%s", want, text)
		}
	}
}

func TestFormatSeatAlertFirstSeen(t *testing.T) {
	payload := entities.NotificationPayload{
		CourseCode:    "CS 403",
		ClassCode:     "CS403A",
		CurrentSeats:  3,
		Delta:         3,
		TotalCapacity: 30,
		ObservedAt:    time.Now(),
	}

	text := FormatSeatAlert(payload)
	if !strings.Contains(text, "first seen") {
		t.Errorf("Expected first-seen marker in alert, got:\n%s", text)
	}
	if strings.Contains(text, "📚") {
		t.Errorf("Expected course name line to be omitted when empty, got:\n%s", text)
	}
}

func TestDisabledNotifierRefusesToSend(t *testing.T) {
	notifier, err := NewTelegramNotifier("", nil)
	if err != nil {
		t.Fatalf("NewTelegramNotifier failed: %v", err)
	}

	if err := notifier.SendSummary("hello"); err == nil {
		t.Error("Expected error from disabled notifier")
	}
	if err := notifier.TestConnection(); err == nil {
		t.Error("Expected error from disabled notifier")
	}
}
