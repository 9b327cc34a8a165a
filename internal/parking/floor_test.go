package parking

import "testing"

func TestParseWeight(t *testing.T) {
	cases := []struct {
		name string
		spec string
		want int
	}{
		{"single value", "1350", 1350},
		{"with unit suffix", "1350 kg", 1350},
		{"range takes average", "2470-2668", 2569},
		{"range with spaces", " 1200 - 1400 ", 1300},
		{"odd range floors", "1001-1002", 1001},
		{"empty", "", DefaultWeightKg},
		{"unknown marker", "Unknown", DefaultWeightKg},
		{"garbage", "n/a", DefaultWeightKg},
		{"dash only", "-", DefaultWeightKg},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseWeight(tc.spec); got != tc.want {
				t.Fatalf("ParseWeight(%q) = %d, want %d", tc.spec, got, tc.want)
			}
		})
	}
}

func TestClassifyFloorBoundaries(t *testing.T) {
	cases := []struct {
		weight int
		want   int
	}{
		{500, 1},
		{999, 1},
		{1000, 2},
		{1500, 2},
		{2000, 2},
		{2001, 3},
		{2600, 3},
	}
	for _, tc := range cases {
		if got := ClassifyFloor(tc.weight); got != tc.want {
			t.Fatalf("ClassifyFloor(%d) = %d, want %d", tc.weight, got, tc.want)
		}
	}
}

func TestSlotCode(t *testing.T) {
	cases := []struct {
		floor, index int
		want         string
	}{
		{1, 0, "I.A"},
		{2, 1, "II.B"},
		{3, 19, "III.T"},
	}
	for _, tc := range cases {
		if got := SlotCode(tc.floor, tc.index); got != tc.want {
			t.Fatalf("SlotCode(%d, %d) = %q, want %q", tc.floor, tc.index, got, tc.want)
		}
	}
}
