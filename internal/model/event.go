package model

import "time"

// EventKind classifies a flight relative to the watch-list.
type EventKind int

const (
	KindNone EventKind = iota
	KindCombined
	KindDeparture
	KindArrival
)

func (k EventKind) String() string {
	switch k {
	case KindCombined:
		return "combined"
	case KindDeparture:
		return "departure"
	case KindArrival:
		return "arrival"
	default:
		return "none"
	}
}

// MarshalText encodes the kind by name so JSON outputs stay readable.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// EventKey identifies a flight event for deduplication. A plan change
// (diversion) yields a new key.
type EventKey struct {
	Callsign  string
	Departure string
	Arrival   string
}

func (k EventKey) String() string {
	return k.Callsign + "-" + k.Departure + "-" + k.Arrival
}

// Notification is a classified flight event ready for delivery.
type Notification struct {
	ID         int64        `json:"id"`
	Kind       EventKind    `json:"kind"`
	Key        EventKey     `json:"-"`
	Record     FlightRecord `json:"flight"`
	ObservedAt time.Time    `json:"observed_at"`
}

// Receipt describes a delivered notification. Linked holds the receipts of
// other destinations that received the same notification.
type Receipt struct {
	Destination string
	MessageID   string
	SentAt      time.Time
	Linked      []Receipt
}

// All returns r followed by its linked receipts, each without links.
func (r Receipt) All() []Receipt {
	out := make([]Receipt, 0, 1+len(r.Linked))
	linked := r.Linked
	r.Linked = nil
	out = append(out, r)
	return append(out, linked...)
}
