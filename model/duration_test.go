package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		want    string
	}{
		{"zero", 0, "0:00"},
		{"pads single digit seconds", 65.9, "1:05"},
		{"under a minute", 59.99, "0:59"},
		{"exact minutes", 180, "3:00"},
		{"over an hour stays in minutes", 3725, "62:05"},
		{"negative is not normalized", -5, "-1:-5"},
		{"NaN", math.NaN(), "NaN:NaN"},
		{"infinite", math.Inf(1), "+Inf:NaN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.seconds))
		})
	}
}

func TestSong_EnsureURL(t *testing.T) {
	s := &Song{File: "http://cdn/a.mp3"}
	s.EnsureURL()
	assert.Equal(t, "http://cdn/a.mp3", s.URL)

	s = &Song{File: "http://cdn/a.mp3", URL: "http://other/a.mp3"}
	s.EnsureURL()
	assert.Equal(t, "http://other/a.mp3", s.URL)
}
