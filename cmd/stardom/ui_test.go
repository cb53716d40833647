package main

import (
	"testing"

	"stardom/internal/game"
)

func TestFormatting(t *testing.T) {
	cases := []struct {
		name string
		got  string
		want string
	}{
		{"comma small", comma(999), "999"},
		{"comma thousands", comma(1234567), "1,234,567"},
		{"comma negative", comma(-12000), "-12,000"},
		{"micros whole", formatMicros(5_000 * game.MicrosPerDollar), "5,000.00"},
		{"micros cents", formatMicros(1_234_560), "1.23"},
		{"micros negative", formatMicros(-2_500_000), "-2.50"},
		{"truncate short", truncate("Hit", 10), "Hit"},
		{"truncate long", truncate("A Very Long Song Title", 10), "A Very ..."},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, tc.got, tc.want)
		}
	}
}

func TestSongStatus(t *testing.T) {
	cases := []struct {
		song game.Song
		want string
	}{
		{game.Song{}, "draft"},
		{game.Song{Released: true, IsActive: true}, "charting"},
		{game.Song{Released: true}, "catalog"},
	}
	for _, tc := range cases {
		if got := songStatus(tc.song); got != tc.want {
			t.Fatalf("songStatus(%+v) = %q want %q", tc.song, got, tc.want)
		}
	}
}
