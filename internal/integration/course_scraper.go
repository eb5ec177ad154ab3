// Package integration handles external service interactions
package integration

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/hqnguyen/seat-bot/internal/entities"
)

// fullStatusText is what the registration site prints in the seat cell
// when a class has no seats left.
const fullStatusText = "Hết chỗ"

// CourseScraper extracts course rows from the university registration
// search page.
type CourseScraper struct {
	searchURL string
	client    *http.Client
}

// NewCourseScraper creates a new course scraper. An empty URL selects
// the default registration search page.
func NewCourseScraper(searchURL string, timeout time.Duration) *CourseScraper {
	if searchURL == "" {
		// Default source URL
		searchURL = "https://courses.duytan.edu.vn/Sites/Home_ChuongTrinhDaoTao.aspx?p=home_coursesearch"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CourseScraper{
		searchURL: searchURL,
		client:    &http.Client{Timeout: timeout},
	}
}

// ScrapeCourses fetches the result table for every course code and
// returns all extracted rows. Any failed fetch aborts the snapshot:
// a partial snapshot would make every missing section look unchanged.
func (cs *CourseScraper) ScrapeCourses(courseCodes []string) ([]entities.CourseRow, error) {
	var all []entities.CourseRow
	for _, code := range courseCodes {
		rows, err := cs.scrapeCourse(code)
		if err != nil {
			return nil, fmt.Errorf("failed to scrape %s: %w", code, err)
		}
		log.Printf("Found %d classes for %s", len(rows), code)
		all = append(all, rows...)
	}
	return all, nil
}

func (cs *CourseScraper) scrapeCourse(courseCode string) ([]entities.CourseRow, error) {
	reqURL := cs.searchURL
	if strings.Contains(reqURL, "?") {
		reqURL += "&courseCode=" + url.QueryEscape(courseCode)
	} else {
		reqURL += "?courseCode=" + url.QueryEscape(courseCode)
	}

	log.Printf("Sending HTTP request for course %s", courseCode)
	res, err := cs.client.Get(reqURL)
	if err != nil {
		log.Printf("Error fetching data: %v", err)
		return nil, fmt.Errorf("failed to fetch the webpage: %v", err)
	}
	defer res.Body.Close()

	if res.StatusCode != 200 {
		log.Printf("Received unexpected status code: %d %s", res.StatusCode, res.Status)
		return nil, fmt.Errorf("unexpected status code: %d %s", res.StatusCode, res.Status)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		log.Printf("Error parsing HTML: %v", err)
		return nil, fmt.Errorf("failed to parse the webpage: %v", err)
	}

	observedAt := cs.ExtractTimestamp(doc)

	var data []entities.CourseRow
	rowCount := 0
	skipped := 0

	// Iterate over each table row in the search results
	doc.Find("table tbody tr").Each(func(index int, row *goquery.Selection) {
		rowCount++
		cells := row.Find("td")
		if cells.Length() < 8 {
			return
		}

		courseName := strings.TrimSpace(cells.Eq(0).Text())
		classCode := strings.TrimSpace(cells.Eq(1).Text())
		seatsText := strings.TrimSpace(cells.Eq(2).Text())
		capacityText := strings.TrimSpace(cells.Eq(3).Text())
		schedule := strings.TrimSpace(cells.Eq(4).Text())
		room := strings.TrimSpace(cells.Eq(5).Text())
		instructor := strings.TrimSpace(cells.Eq(6).Text())
		status := strings.TrimSpace(cells.Eq(7).Text())

		availableSeats, err := parseSeatCount(seatsText)
		if err != nil {
			log.Printf("Warning: skipping row with unparseable seat count %q: %v", seatsText, err)
			skipped++
			return
		}
		totalCapacity, err := strconv.Atoi(capacityText)
		if err != nil {
			log.Printf("Warning: skipping row with unparseable capacity %q", capacityText)
			skipped++
			return
		}

		data = append(data, entities.CourseRow{
			ClassCode:      classCode,
			CourseCode:     courseCode,
			CourseName:     courseName,
			AvailableSeats: availableSeats,
			TotalCapacity:  totalCapacity,
			Schedule:       schedule,
			Room:           room,
			Instructor:     instructor,
			Status:         status,
			ObservedAt:     observedAt,
		})
	})

	log.Printf("Parsed %d rows for %s, extracted %d valid entries, skipped %d", rowCount, courseCode, len(data), skipped)
	return data, nil
}

// parseSeatCount interprets the seat cell, which is either a number or
// the site's sold-out marker.
func parseSeatCount(text string) (int, error) {
	if strings.EqualFold(text, fullStatusText) {
		return 0, nil
	}
	return strconv.Atoi(text)
}

// ExtractTimestamp reads the page's own "last updated" header so every
// row of one snapshot carries the same observation time. Falls back to
// the current time when the header is missing or unparseable.
func (cs *CourseScraper) ExtractTimestamp(doc *goquery.Document) time.Time {
	timestamp := time.Now()
	timestampText := ""

	selectors := []string{
		"div.update-time",
		"div.col-md-12",
		"h4",
	}

	for _, selector := range selectors {
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if strings.Contains(text, "Cập nhật:") {
				timestampText = text
			}
		})
		if timestampText != "" {
			break
		}
	}

	if timestampText == "" {
		log.Printf("Update time not found on page, using current time")
		return timestamp
	}

	// Expected format: "Cập nhật: 18.04.2025 08:00"
	raw := strings.TrimSpace(strings.TrimPrefix(timestampText, "Cập nhật:"))
	loc, _ := time.LoadLocation("Asia/Ho_Chi_Minh")
	parsed, err := time.ParseInLocation("02.01.2006 15:04", raw, loc)
	if err != nil {
		log.Printf("Failed to parse update time from %q: %v", raw, err)
		return timestamp
	}

	log.Printf("Extracted page update time: %s", parsed.Format(time.RFC3339))
	return parsed
}
