package cue

import "fmt"

// ParseTimecode converts a fixed-width HH:MM:SS.mmm string to integer
// milliseconds. Anything not matching the pattern yields -1 so callers
// can drop the value instead of guessing.
func ParseTimecode(s string) int64 {
	if len(s) != 12 || s[2] != ':' || s[5] != ':' || s[8] != '.' {
		return -1
	}
	h, ok1 := twoDigits(s[0], s[1])
	m, ok2 := twoDigits(s[3], s[4])
	sec, ok3 := twoDigits(s[6], s[7])
	if !ok1 || !ok2 || !ok3 || m > 59 || sec > 59 {
		return -1
	}
	var ms int64
	for i := 9; i < 12; i++ {
		d := s[i]
		if d < '0' || d > '9' {
			return -1
		}
		ms = ms*10 + int64(d-'0')
	}
	return ((h*60+m)*60+sec)*1000 + ms
}

// FormatTimecode renders milliseconds as HH:MM:SS.mmm.
func FormatTimecode(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	h := ms / 3600000
	m := (ms / 60000) % 60
	s := (ms / 1000) % 60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms%1000)
}

func twoDigits(a, b byte) (int64, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int64(a-'0')*10 + int64(b-'0'), true
}
