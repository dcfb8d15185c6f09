package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
)

func TestReminderWindow_Contains(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC) }
	w := ReminderWindow{
		FromDate: day(10),
		FromTime: domain.TimeOfDay(12 * 60),
		ToDate:   day(11),
		ToTime:   domain.TimeOfDay(12 * 60),
	}

	tests := []struct {
		name string
		date time.Time
		at   domain.TimeOfDay
		want bool
	}{
		{"started earlier today", day(10), 10 * 60, false},
		{"starts at window open", day(10), 12 * 60, true},
		{"later today", day(10), 18 * 60, true},
		{"tomorrow morning", day(11), 10 * 60, true},
		{"tomorrow after horizon", day(11), 12*60 + 1, false},
		{"yesterday", day(9), 18 * 60, false},
		{"day after", day(12), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.Contains(tt.date, tt.at))
		})
	}
}
