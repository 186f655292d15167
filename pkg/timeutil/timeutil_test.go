package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartOfWeek(t *testing.T) {
	tests := []struct {
		name   string
		anchor time.Time
		want   time.Time
	}{
		{"monday stays", Date(2026, 2, 23), Date(2026, 2, 23)},
		{"wednesday rewinds", Date(2026, 2, 25), Date(2026, 2, 23)},
		{"sunday rewinds to previous monday", Date(2026, 3, 1), Date(2026, 2, 23)},
		{"crosses month boundary", Date(2026, 3, 4), Date(2026, 3, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(StartOfWeek(tt.anchor)),
				"got %v, want %v", StartOfWeek(tt.anchor), tt.want)
		})
	}
}

func TestSchoolWeekDates(t *testing.T) {
	// Thursday 26 Feb 2026
	dates := SchoolWeekDates(Date(2026, 2, 26))

	require.Len(t, dates, 5)
	assert.Equal(t, "2026-02-23", FormatISODate(dates[0]))
	assert.Equal(t, "2026-02-27", FormatISODate(dates[4]))
	for i, d := range dates {
		assert.Equal(t, time.Weekday((i+1)%7), d.Weekday())
	}
}

func TestSchoolWeekDates_FromWeekend(t *testing.T) {
	// Saturday still yields the current week's Mon-Fri, matching the
	// behavior users expect from the week view on weekends.
	dates := SchoolWeekDates(Date(2026, 2, 28))

	require.Len(t, dates, 5)
	assert.Equal(t, "2026-02-23", FormatISODate(dates[0]))
}

func TestFormatISODate_ConvertsToMoscow(t *testing.T) {
	// 23:30 UTC is already the next day in Moscow.
	utc := time.Date(2026, 2, 23, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-02-24", FormatISODate(utc))
}

func TestParseISODate(t *testing.T) {
	d, err := ParseISODate("2026-02-24")
	require.NoError(t, err)
	assert.True(t, Date(2026, 2, 24).Equal(d))

	_, err = ParseISODate("24.02.2026")
	assert.Error(t, err)
}

func TestSameDay(t *testing.T) {
	a := time.Date(2026, 2, 23, 22, 0, 0, 0, time.UTC) // 01:00 Feb 24 MSK
	b := Date(2026, 2, 24)
	assert.True(t, SameDay(a, b))
	assert.False(t, SameDay(Date(2026, 2, 23), b))
}
