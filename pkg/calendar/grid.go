package calendar

import (
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// GridSize is the number of cells of a month view: six weeks of seven days.
const GridSize = 42

var ErrInvalidMonth = errors.New("invalid month")

// DayCell is one square of the month grid.
type DayCell struct {
	DayNumber      int
	Date           civil.Date
	IsCurrentMonth bool
	IsToday        bool
	IsPast         bool
}

// BuildGrid lays out the given month as a Sunday-first grid of GridSize cells.
// The grid starts with the trailing days of the previous month so that the 1st lands
// on its weekday column, and is padded with the leading days of the next month.
func BuildGrid(year int, month time.Month, today civil.Date) ([]DayCell, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: %d, expected 1-12", ErrInvalidMonth, month)
	}

	first := civil.Date{Year: year, Month: month, Day: 1}
	leading := int(first.In(time.UTC).Weekday())

	cells := make([]DayCell, 0, GridSize)
	for date := first.AddDays(-leading); len(cells) < GridSize; date = date.AddDays(1) {
		cells = append(cells, DayCell{
			DayNumber:      date.Day,
			Date:           date,
			IsCurrentMonth: date.Year == year && date.Month == month,
			IsToday:        date == today,
			IsPast:         date.Before(today),
		})
	}
	return cells, nil
}

// DaysInMonth returns the number of days of month in year, accounting for leap years.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// PreviousMonth returns the month before the given one, rolling January back to
// December of the previous year.
func PreviousMonth(year int, month time.Month) (int, time.Month) {
	if month == time.January {
		return year - 1, time.December
	}
	return year, month - 1
}

// NextMonth returns the month after the given one, rolling December over to
// January of the next year.
func NextMonth(year int, month time.Month) (int, time.Month) {
	if month == time.December {
		return year + 1, time.January
	}
	return year, month + 1
}

// MonthsBetween returns how many months the second month lies after the first one.
// The result is negative when it lies before.
func MonthsBetween(fromYear int, fromMonth time.Month, toYear int, toMonth time.Month) int {
	return (toYear-fromYear)*12 + int(toMonth) - int(fromMonth)
}
