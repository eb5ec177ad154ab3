package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/hqnguyen/seat-bot/internal/api"
	"github.com/hqnguyen/seat-bot/internal/config"
	"github.com/hqnguyen/seat-bot/internal/integration"
	"github.com/hqnguyen/seat-bot/internal/repository"
	"github.com/hqnguyen/seat-bot/internal/usecases"
)

func main() {
	// Configure logging
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "seat-bot",
		Short:         "Course seat availability monitor",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")

	root.AddCommand(newStartCmd(&configPath))
	root.AddCommand(newCheckOnceCmd(&configPath))
	root.AddCommand(newAddCourseCmd(&configPath))
	root.AddCommand(newDeactivateCmd(&configPath))
	root.AddCommand(newListCmd(&configPath))
	root.AddCommand(newSummaryCmd(&configPath))
	root.AddCommand(newTestScraperCmd(&configPath))
	root.AddCommand(newTestTelegramCmd(&configPath))
	return root
}

type app struct {
	cfg     *config.Config
	repo    *repository.SQLiteCourseRepository
	useCase *usecases.MonitorUseCase
}

func (a *app) close() {
	if err := a.repo.Close(); err != nil {
		log.Printf("Error closing repository: %v", err)
	}
}

func loadApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	repo, err := repository.NewSQLiteCourseRepository(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}

	scraper := integration.NewCourseScraper(cfg.Monitoring.TargetURL, cfg.ScrapeTimeout())

	notifier, err := api.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatIDs)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to initialize Telegram notifier: %w", err)
	}

	useCase := usecases.NewMonitorUseCase(repo, scraper, notifier)

	// Seed the watchlist from the configuration so a fresh deployment
	// monitors its configured courses without a manual add-course step.
	for _, course := range cfg.Courses {
		if err := useCase.AddCourse(course.Code, course.NotifyWhenSeatsGT); err != nil {
			log.Printf("Warning: failed to add configured course %q: %v", course.Code, err)
		}
	}

	return &app{cfg: cfg, repo: repo, useCase: useCase}, nil
}

func runCycle(a *app) {
	summary, err := a.useCase.RunCycleOnce()
	if err != nil {
		log.Printf("Monitoring cycle failed: %v", err)
		a.useCase.ReportCycleFailure(err)
		return
	}
	if len(summary.Errors) > 0 {
		log.Printf("Cycle finished with %d per-item failures", len(summary.Errors))
	}
}

func newStartCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the monitoring scheduler",
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			// Run immediately on startup
			runCycle(a)

			c := cron.New()
			spec := fmt.Sprintf("@every %dm", a.cfg.Monitoring.IntervalMinutes)
			if _, err := c.AddFunc(spec, func() { runCycle(a) }); err != nil {
				return fmt.Errorf("failed to set up cron job: %w", err)
			}

			log.Printf("Monitor scheduled to run every %d minute(s)", a.cfg.Monitoring.IntervalMinutes)
			c.Start()

			// Keep the program running
			select {}
		},
	}
}

func newCheckOnceCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check-once",
		Short: "Run a single monitoring cycle and exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			summary, err := a.useCase.RunCycleOnce()
			if err != nil {
				a.useCase.ReportCycleFailure(err)
				return err
			}

			fmt.Printf("Rows seen:            %d\n", summary.RowsSeen)
			fmt.Printf("Rows skipped:         %d\n", summary.RowsSkipped)
			fmt.Printf("Changes detected:     %d\n", summary.ChangesDetected)
			fmt.Printf("Notifications sent:   %d\n", summary.NotificationsSent)
			fmt.Printf("Notifications failed: %d\n", summary.NotificationsFailed)
			for _, msg := range summary.Errors {
				fmt.Printf("  - %s\n", msg)
			}
			return nil
		},
	}
}

func newAddCourseCmd(configPath *string) *cobra.Command {
	var threshold int

	cmd := &cobra.Command{
		Use:   "add-course COURSE_CODE",
		Short: "Add a course to the watchlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.useCase.AddCourse(args[0], threshold); err != nil {
				return err
			}
			fmt.Printf("Added %s to the watchlist (notify when seats > %d)\n", args[0], threshold)
			return nil
		},
	}
	cmd.Flags().IntVarP(&threshold, "threshold", "t", 0, "notify when available seats exceed this value")
	return cmd
}

func newDeactivateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate COURSE_CODE",
		Short: "Stop notifications for a course without deleting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.useCase.DeactivateCourse(args[0]); err != nil {
				return err
			}
			fmt.Printf("Deactivated %s\n", args[0])
			return nil
		},
	}
}

func newListCmd(configPath *string) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List watched courses and their latest state",
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			watched, err := a.useCase.ListWatched(!all)
			if err != nil {
				return err
			}
			if len(watched) == 0 {
				fmt.Println("No courses are currently being monitored")
				return nil
			}

			fmt.Printf("Watched courses (%d):\n", len(watched))
			for _, entry := range watched {
				state := "active"
				if !entry.IsActive {
					state = "inactive"
				}
				fmt.Printf("  • %s [%s] notify when seats > %d, added %s\n",
					entry.CourseCode, state, entry.NotifyWhenSeatsGT,
					entry.AddedAt.Format("2006-01-02"))

				classes, err := a.useCase.CoursesFor(entry.CourseCode)
				if err != nil {
					return err
				}
				for _, class := range classes {
					fmt.Printf("      %s: %d/%d seats\n",
						class.ClassCode, class.AvailableSeats, class.TotalCapacity)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include deactivated courses")
	return cmd
}

func newSummaryCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Send and print a monitoring summary",
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			text, err := a.useCase.Summarize()
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		},
	}
}

func newTestScraperCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "test-scraper",
		Short: "Run the scraper once and print what it finds",
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			rows, err := a.useCase.TestScraper()
			if err != nil {
				return err
			}
			fmt.Printf("Scraper found %d class rows:\n", len(rows))
			for i, row := range rows {
				if i >= 10 {
					fmt.Printf("  ... and %d more\n", len(rows)-10)
					break
				}
				fmt.Printf("  • %s %s: %d/%d seats, %s\n",
					row.CourseCode, row.ClassCode, row.AvailableSeats, row.TotalCapacity, row.Room)
			}
			return nil
		},
	}
}

func newTestTelegramCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "test-telegram",
		Short: "Send a test message to the configured chats",
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.useCase.TestTelegram(); err != nil {
				return err
			}
			fmt.Println("Telegram test passed")
			return nil
		},
	}
}
