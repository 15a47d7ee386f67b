package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/crimson-sun/flightwatch/internal/airports"
	"github.com/crimson-sun/flightwatch/internal/model"
)

const (
	ColorCombined  = 0x0000FF
	ColorDeparture = 0x00FF00
	ColorArrival   = 0xFFA500
	ColorManual    = 0x00BFFF

	maxFieldLen   = 1000
	defaultFooter = "IVAO Flight Monitor"
)

// Formatter renders notifications and listings for chat destinations.
type Formatter struct {
	Airports *airports.Directory // optional
	Footer   string
}

// Title returns the card title for a kind.
func Title(k model.EventKind) string {
	switch k {
	case model.KindCombined:
		return "Departure and Arrival"
	case model.KindDeparture:
		return "Departure"
	case model.KindArrival:
		return "Arrival"
	default:
		return "Flight"
	}
}

// Color returns the card color for a kind.
func Color(k model.EventKind) int {
	switch k {
	case model.KindCombined:
		return ColorCombined
	case model.KindDeparture:
		return ColorDeparture
	case model.KindArrival:
		return ColorArrival
	default:
		return ColorManual
	}
}

// Embed builds the card for a notification.
func (f Formatter) Embed(n model.Notification) *discordgo.MessageEmbed {
	e := f.card(n.Record, Title(n.Kind), Color(n.Kind), n.ObservedAt)
	e.Description = f.description(n.Record)
	return e
}

// ManualEmbed builds the card used by the on-demand check command.
func (f Formatter) ManualEmbed(r model.FlightRecord, at time.Time) *discordgo.MessageEmbed {
	return f.card(r, "IVAO Manual Check: "+r.Callsign, ColorManual, at)
}

func (f Formatter) card(r model.FlightRecord, title string, color int, at time.Time) *discordgo.MessageEmbed {
	footer := f.Footer
	if footer == "" {
		footer = defaultFooter
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "✈️ Callsign", Value: orNA(r.Callsign), Inline: true},
		{Name: "🛫 Departure", Value: f.Airports.Display(r.Departure), Inline: true},
		{Name: "🛬 Arrival", Value: f.Airports.Display(r.Arrival), Inline: true},
		{Name: "🛩 Aircraft", Value: orNA(r.Aircraft), Inline: true},
		{Name: "🧭 Cruise FL", Value: orDefault(r.Level, "Not Filed"), Inline: true},
		{Name: "🗺 Route", Value: truncate(orNA(r.Route), maxFieldLen)},
	}
	if r.Remarks != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "📝 Remarks", Value: truncate(r.Remarks, maxFieldLen)})
	}
	return &discordgo.MessageEmbed{
		Title:     title,
		Color:     color,
		Fields:    fields,
		Timestamp: at.UTC().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: footer},
	}
}

func (f Formatter) description(r model.FlightRecord) string {
	return fmt.Sprintf("ID: %s\nCallsign: %s\nDeparture: %s\nArrival: %s",
		r.SubjectID, r.Callsign, f.Airports.Display(r.Departure), f.Airports.Display(r.Arrival))
}

// Text renders a notification as a single plain-text message.
func (f Formatter) Text(n model.Notification) string {
	return Title(n.Kind) + ": " + Line(n.Record)
}

// Line renders a record as one listing line.
func Line(r model.FlightRecord) string {
	return fmt.Sprintf("ID: %s, Departure: %s, Arrival: %s, Callsign: %s.",
		r.SubjectID, orNA(r.Departure), orNA(r.Arrival), r.Callsign)
}

// Pages joins lines under header into messages no longer than limit runes.
// A single oversized line is truncated.
func Pages(header string, lines []string, limit int) []string {
	var (
		pages []string
		b     strings.Builder
		n     int
	)
	flush := func() {
		if b.Len() > 0 {
			pages = append(pages, strings.TrimRight(b.String(), "\n"))
			b.Reset()
			n = 0
		}
	}
	add := func(s string) {
		s = truncate(s, limit-1)
		l := len([]rune(s)) + 1
		if n+l > limit {
			flush()
		}
		b.WriteString(s)
		b.WriteByte('\n')
		n += l
	}
	if header != "" {
		add(header)
	}
	for _, line := range lines {
		add(line)
	}
	flush()
	return pages
}

func orNA(s string) string { return orDefault(s, "N/A") }

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
