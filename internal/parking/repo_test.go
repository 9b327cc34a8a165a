package parking

import (
	"testing"
	"time"
)

func TestStartOfDay(t *testing.T) {
	hanoi := time.FixedZone("ICT", 7*3600)

	cases := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			"utc afternoon",
			time.Date(2026, 8, 28, 15, 42, 3, 0, time.UTC),
			time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			"non-utc keeps local date",
			// UTC 时间还在 27 日，本地已是 28 日凌晨
			time.Date(2026, 8, 28, 1, 30, 0, 0, hanoi),
			time.Date(2026, 8, 28, 0, 0, 0, 0, hanoi),
		},
		{
			"already midnight",
			time.Date(2026, 8, 28, 0, 0, 0, 0, hanoi),
			time.Date(2026, 8, 28, 0, 0, 0, 0, hanoi),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := startOfDay(tc.in)
			if !got.Equal(tc.want) || got.Location() != tc.in.Location() {
				t.Fatalf("startOfDay(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
