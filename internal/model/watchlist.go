package model

import "strings"

// WatchList is an immutable ordered set of airport codes.
type WatchList struct {
	codes []string
	set   map[string]struct{}
}

// NewWatchList upper-cases and trims codes, dropping blanks and duplicates
// while keeping first-seen order.
func NewWatchList(codes ...string) WatchList {
	w := WatchList{set: make(map[string]struct{}, len(codes))}
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if _, ok := w.set[c]; ok {
			continue
		}
		w.set[c] = struct{}{}
		w.codes = append(w.codes, c)
	}
	return w
}

// Contains reports whether code is watched. The empty code never is.
func (w WatchList) Contains(code string) bool {
	if code == "" {
		return false
	}
	_, ok := w.set[code]
	return ok
}

// Codes returns a copy of the watched codes in configured order.
func (w WatchList) Codes() []string {
	out := make([]string, len(w.codes))
	copy(out, w.codes)
	return out
}

func (w WatchList) Len() int { return len(w.codes) }
