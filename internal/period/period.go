// Package period models reporting periods and their due dates.
package period

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Type is the periodicity of a dataset.
type Type string

const (
	Daily     Type = "Daily"
	Weekly    Type = "Weekly"
	Monthly   Type = "Monthly"
	Quarterly Type = "Quarterly"
	Yearly    Type = "Yearly"
)

// Period is a concrete reporting period. EndDate is the due date.
type Period struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// ParseType converts a stored period type name.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case Daily, Weekly, Monthly, Quarterly, Yearly:
		return t, nil
	}
	return "", fmt.Errorf("unsupported period type: %q", s)
}

// CreatePeriod returns the period of this type containing now.
func (t Type) CreatePeriod(now time.Time) (Period, error) {
	day := truncateDay(now)
	y, m, d := day.Date()
	loc := day.Location()

	switch t {
	case Daily:
		return Period{ID: day.Format("20060102"), Type: t, StartDate: day, EndDate: day}, nil

	case Weekly:
		offset := (int(day.Weekday()) + 6) % 7
		start := time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
		isoYear, week := start.ISOWeek()
		return Period{
			ID:        fmt.Sprintf("%dW%d", isoYear, week),
			Type:      t,
			StartDate: start,
			EndDate:   time.Date(y, m, d-offset+6, 0, 0, 0, 0, loc),
		}, nil

	case Monthly:
		return Period{
			ID:        fmt.Sprintf("%d%02d", y, int(m)),
			Type:      t,
			StartDate: time.Date(y, m, 1, 0, 0, 0, 0, loc),
			EndDate:   time.Date(y, m+1, 0, 0, 0, 0, 0, loc),
		}, nil

	case Quarterly:
		q := (int(m)-1)/3 + 1
		first := time.Month((q-1)*3 + 1)
		return Period{
			ID:        fmt.Sprintf("%dQ%d", y, q),
			Type:      t,
			StartDate: time.Date(y, first, 1, 0, 0, 0, 0, loc),
			EndDate:   time.Date(y, first+3, 0, 0, 0, 0, 0, loc),
		}, nil

	case Yearly:
		return Period{
			ID:        strconv.Itoa(y),
			Type:      t,
			StartDate: time.Date(y, time.January, 1, 0, 0, 0, 0, loc),
			EndDate:   time.Date(y, time.December, 31, 0, 0, 0, 0, loc),
		}, nil
	}

	return Period{}, fmt.Errorf("unsupported period type: %q", string(t))
}

var (
	dailyID     = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)
	weeklyID    = regexp.MustCompile(`^(\d{4})W(\d{1,2})$`)
	monthlyID   = regexp.MustCompile(`^(\d{4})(\d{2})$`)
	quarterlyID = regexp.MustCompile(`^(\d{4})Q([1-4])$`)
	yearlyID    = regexp.MustCompile(`^(\d{4})$`)
)

// Parse rebuilds a period from its ISO identifier, e.g. 20260115, 2026W3,
// 202601, 2026Q1 or 2026.
func Parse(id string, loc *time.Location) (Period, error) {
	if loc == nil {
		loc = time.UTC
	}

	if g := dailyID.FindStringSubmatch(id); g != nil {
		day := time.Date(atoi(g[1]), time.Month(atoi(g[2])), atoi(g[3]), 0, 0, 0, 0, loc)
		if day.Format("20060102") != id {
			return Period{}, fmt.Errorf("invalid daily period: %q", id)
		}
		return Daily.CreatePeriod(day)
	}
	if g := weeklyID.FindStringSubmatch(id); g != nil {
		year, week := atoi(g[1]), atoi(g[2])
		// January 4th is always in ISO week 1.
		jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, loc)
		monday := jan4.AddDate(0, 0, -((int(jan4.Weekday())+6)%7)+(week-1)*7)
		p, err := Weekly.CreatePeriod(monday)
		if err != nil || p.ID != id {
			return Period{}, fmt.Errorf("invalid weekly period: %q", id)
		}
		return p, nil
	}
	if g := monthlyID.FindStringSubmatch(id); g != nil {
		month := atoi(g[2])
		if month < 1 || month > 12 {
			return Period{}, fmt.Errorf("invalid monthly period: %q", id)
		}
		return Monthly.CreatePeriod(time.Date(atoi(g[1]), time.Month(month), 1, 0, 0, 0, 0, loc))
	}
	if g := quarterlyID.FindStringSubmatch(id); g != nil {
		month := time.Month((atoi(g[2])-1)*3 + 1)
		return Quarterly.CreatePeriod(time.Date(atoi(g[1]), month, 1, 0, 0, 0, 0, loc))
	}
	if g := yearlyID.FindStringSubmatch(id); g != nil {
		return Yearly.CreatePeriod(time.Date(atoi(g[1]), time.January, 1, 0, 0, 0, 0, loc))
	}

	return Period{}, fmt.Errorf("unrecognised period identifier: %q", id)
}

// DaysBetween returns the number of calendar days from `from` to `to`,
// negative when `to` is before `from`. Times of day are ignored.
func DaysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.In(from.Location()).Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
