package utils

import (
	"strconv"
	"time"
)

// IDSequence hands out message ids derived from the submission time in milliseconds.
// Ids never repeat: a value that would not be greater than the previous one is bumped.
// Not safe for concurrent use.
type IDSequence struct {
	last int64
}

// Next returns the id for a submission made at now.
func (s *IDSequence) Next(now time.Time) string {
	v := now.UnixMilli()
	if v <= s.last {
		v = s.last + 1
	}
	s.last = v
	return strconv.FormatInt(v, 10)
}
