package memory

import "time"

// Clock returns the current time. Stores default to time.Now in UTC; tests
// replace it to drive expiration and staleness deterministically.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

func (c Clock) now() time.Time {
	if c == nil {
		return systemClock()
	}
	return c()
}

func timePtr(t time.Time) *time.Time { return &t }

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
