// Package api handles outbound messaging to subscribers
package api

import (
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hqnguyen/seat-bot/internal/entities"
)

// TelegramNotifier sends seat alerts and reports to a fixed list of
// chats. An empty bot token disables sending so administrative
// commands work without credentials.
type TelegramNotifier struct {
	bot     *tgbotapi.BotAPI
	chatIDs []int64
	enabled bool
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(botToken string, chatIDs []int64) (*TelegramNotifier, error) {
	if botToken == "" {
		log.Println("No Telegram bot token configured - notifications disabled")
		return &TelegramNotifier{enabled: false}, nil
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %v", err)
	}
	log.Printf("Authorized on account %s, notifying %d chat(s)", bot.Self.UserName, len(chatIDs))

	return &TelegramNotifier{
		bot:     bot,
		chatIDs: chatIDs,
		enabled: true,
	}, nil
}

// SendSeatAlert delivers one seat-availability alert to every
// configured chat.
func (n *TelegramNotifier) SendSeatAlert(payload entities.NotificationPayload) error {
	return n.broadcast(FormatSeatAlert(payload))
}

// SendSummary delivers a pre-rendered monitoring summary.
func (n *TelegramNotifier) SendSummary(text string) error {
	return n.broadcast(text)
}

// SendErrorNotification reports a cycle-level failure to subscribers.
func (n *TelegramNotifier) SendErrorNotification(message, details string) error {
	var b strings.Builder
	b.WriteString("⚠️ Error Alert\n\n")
	b.WriteString(fmt.Sprintf("Error: %s\n", message))
	if details != "" {
		b.WriteString(fmt.Sprintf("\nDetails: %s\n", details))
	}
	b.WriteString(fmt.Sprintf("\n🕒 %s", time.Now().Format("2006-01-02 15:04:05")))
	return n.broadcast(b.String())
}

// TestConnection sends a test message to every configured chat.
func (n *TelegramNotifier) TestConnection() error {
	return n.broadcast("✅ Test Message\n\nTelegram notification system is working!")
}

func (n *TelegramNotifier) broadcast(text string) error {
	if !n.enabled {
		return fmt.Errorf("telegram notifications are disabled")
	}
	if len(n.chatIDs) == 0 {
		return fmt.Errorf("no telegram chat ids configured")
	}

	var firstErr error
	for _, chatID := range n.chatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := n.bot.Send(msg); err != nil {
			log.Printf("Error sending message to chat %d: %v", chatID, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to send to chat %d: %v", chatID, err)
			}
		}
	}
	return firstErr
}

// FormatSeatAlert renders a notification payload for display
func FormatSeatAlert(p entities.NotificationPayload) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🎯 %s has seats!\n\n", p.CourseCode))
	if p.CourseName != "" {
		b.WriteString(fmt.Sprintf("📚 %s\n", p.CourseName))
	}
	b.WriteString(fmt.Sprintf("🏫 Class: %s\n", p.ClassCode))

	if p.PreviousSeats != nil {
		b.WriteString(fmt.Sprintf("💺 Seats: %d/%d (was %d, %+d)\n", p.CurrentSeats, p.TotalCapacity, *p.PreviousSeats, p.Delta))
	} else {
		b.WriteString(fmt.Sprintf("💺 Seats: %d/%d (first seen)\n", p.CurrentSeats, p.TotalCapacity))
	}

	if p.Schedule != "" {
		b.WriteString(fmt.Sprintf("⏰ %s\n", p.Schedule))
	}
	if p.Room != "" {
		b.WriteString(fmt.Sprintf("📍 %s\n", p.Room))
	}
	if p.Instructor != "" {
		b.WriteString(fmt.Sprintf("👨‍🏫 %s\n", p.Instructor))
	}
	if p.Status != "" {
		b.WriteString(fmt.Sprintf("ℹ️ %s\n", p.Status))
	}

	b.WriteString(fmt.Sprintf("\n🕒 %s", p.ObservedAt.Format("2006-01-02 15:04:05")))
	return b.String()
}
