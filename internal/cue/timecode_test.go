package cue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTimecode(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"00:00:00.000", 0},
		{"00:00:01.500", 1500},
		{"00:01:00.000", 60000},
		{"01:00:00.000", 3600000},
		{"01:02:03.456", 3723456},
		{"0:00:01.000", -1},   // too short
		{"00:00:01.00", -1},   // missing digit
		{"00-00-01.000", -1},  // wrong separators
		{"00:61:00.000", -1},  // minutes out of range
		{"00:00:61.000", -1},  // seconds out of range
		{"00:00:0a.000", -1},  // non-digit
		{"00:00:01,000", -1},  // SRT comma form
		{"garbage here", -1},
		{"", -1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseTimecode(tc.in), "input %q", tc.in)
	}
}

func TestFormatTimecodeRoundTrip(t *testing.T) {
	for _, ms := range []int64{0, 999, 1000, 61500, 3723456, 86399999} {
		assert.Equal(t, ms, ParseTimecode(FormatTimecode(ms)))
	}
}

func TestFormatTimecodeClampsNegative(t *testing.T) {
	assert.Equal(t, "00:00:00.000", FormatTimecode(-5))
}
