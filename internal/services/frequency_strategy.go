// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for recurring schedule arithmetic.
// Each frequency type (daily, weekly, monthly, yearly) has its own stepper
// that computes the next occurrence of a repeating transaction.

package services

import (
	"fmt"
	"time"

	"budgetapp/internal/core"
)

// scheduleHour is the hour every date is pinned to before arithmetic, so a
// daylight-saving shift can never move a result onto the neighbouring day.
const scheduleHour = 12

// Stepper is the strategy interface for advancing a recurring schedule.
// Each implementation encapsulates the calendar rule of one frequency.
type Stepper interface {
	// Next returns the occurrence following from.
	Next(from time.Time) time.Time
}

// DailyStepper implements Stepper for daily rules.
type DailyStepper struct{}

// Next adds one day.
func (DailyStepper) Next(from time.Time) time.Time {
	return from.AddDate(0, 0, 1)
}

// WeeklyStepper implements Stepper for weekly rules.
type WeeklyStepper struct{}

// Next adds seven days.
func (WeeklyStepper) Next(from time.Time) time.Time {
	return from.AddDate(0, 0, 7)
}

// MonthlyStepper implements Stepper for monthly rules.
type MonthlyStepper struct{}

// Next keeps the day of month, clamped to the length of the following month.
func (MonthlyStepper) Next(from time.Time) time.Time {
	return addMonthsClamped(from, 1)
}

// YearlyStepper implements Stepper for yearly rules.
type YearlyStepper struct{}

// Next moves one year ahead; Feb 29 becomes Feb 28 outside leap years.
func (YearlyStepper) Next(from time.Time) time.Time {
	return addMonthsClamped(from, 12)
}

func addMonthsClamped(from time.Time, months int) time.Time {
	// Anchor on the first of the month so time.AddDate cannot overflow into
	// the month after (Jan 31 + 1 month would otherwise land on Mar 2/3).
	first := time.Date(from.Year(), from.Month(), 1, from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location())
	target := first.AddDate(0, months, 0)
	day := from.Day()
	if last := core.DaysInMonth(target.Year(), target.Month()); day > last {
		day = last
	}
	return target.AddDate(0, 0, day-1)
}

// steppers maps frequencies to their corresponding strategies.
var steppers = map[core.Frequency]Stepper{
	core.Daily:   DailyStepper{},
	core.Weekly:  WeeklyStepper{},
	core.Monthly: MonthlyStepper{},
	core.Yearly:  YearlyStepper{},
}

// GetStepper returns the stepper for a frequency.
// Returns an error if the frequency is not supported.
func GetStepper(frequency core.Frequency) (Stepper, error) {
	stepper, ok := steppers[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %q", frequency)
	}
	return stepper, nil
}

// Advance returns the occurrence after date for the given frequency.
func Advance(date core.Date, frequency core.Frequency) (core.Date, error) {
	stepper, err := GetStepper(frequency)
	if err != nil {
		return core.Date{}, err
	}
	pinned := time.Date(date.Year(), time.Month(date.Month()), date.Day(), scheduleHour, 0, 0, 0, time.UTC)
	return core.DateOf(stepper.Next(pinned)), nil
}
