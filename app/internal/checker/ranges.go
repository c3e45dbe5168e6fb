package checker

import (
	"fmt"
	"strconv"
	"strings"
)

// StatusRange is an inclusive range of accepted HTTP status codes.
type StatusRange struct {
	Lo int
	Hi int
}

// StatusRanges is the typed form of a monitor's accepted-status string,
// parsed once at configuration time rather than per probe. An empty list
// means the default 200-399.
type StatusRanges []StatusRange

// ParseStatusRanges parses "200-299,404" style configuration into a typed
// range list. The empty string yields nil (default acceptance).
func ParseStatusRanges(s string) (StatusRanges, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var ranges StatusRanges
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, found := strings.Cut(part, "-"); found {
			a, err1 := strconv.Atoi(strings.TrimSpace(lo))
			b, err2 := strconv.Atoi(strings.TrimSpace(hi))
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("invalid status range %q", part)
			}
			if a > b {
				return nil, fmt.Errorf("inverted status range %q", part)
			}
			ranges = append(ranges, StatusRange{Lo: a, Hi: b})
			continue
		}
		code, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid status code %q", part)
		}
		ranges = append(ranges, StatusRange{Lo: code, Hi: code})
	}
	return ranges, nil
}

// Contains reports whether code is accepted. A nil/empty range list accepts
// the default 200-399.
func (rs StatusRanges) Contains(code int) bool {
	if len(rs) == 0 {
		return code >= 200 && code <= 399
	}
	for _, r := range rs {
		if code >= r.Lo && code <= r.Hi {
			return true
		}
	}
	return false
}
