package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/crimson-sun/flightwatch/internal/connector"
	"github.com/crimson-sun/flightwatch/internal/model"
	"github.com/crimson-sun/flightwatch/internal/output"
)

type mockLister struct {
	records []model.FlightRecord
	ok      bool
	err     error
	calls   int
}

func (m *mockLister) ListCurrent(context.Context) ([]model.FlightRecord, bool, error) {
	m.calls++
	return m.records, m.ok, m.err
}

type mockChannel struct {
	mu       sync.Mutex
	messages []string
	embeds   []*discordgo.MessageEmbed
	channels []string
}

func (m *mockChannel) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, content)
	m.channels = append(m.channels, channelID)
	return &discordgo.Message{ID: "m", ChannelID: channelID, Content: content}, nil
}

func (m *mockChannel) ChannelMessageSendEmbed(channelID string, e *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embeds = append(m.embeds, e)
	m.channels = append(m.channels, channelID)
	return &discordgo.Message{ID: "e", ChannelID: channelID}, nil
}

func message(author, content string) *discordgo.Message {
	return &discordgo.Message{
		ChannelID: "chan-1",
		Content:   content,
		Author:    &discordgo.User{ID: author, Username: "pilot"},
	}
}

func rec(id, cs, dep, arr string) model.FlightRecord {
	return model.FlightRecord{SubjectID: id, Callsign: cs, Departure: dep, Arrival: arr, HasFlightPlan: true}
}

func TestFlightsListing(t *testing.T) {
	l := &mockLister{ok: true, records: []model.FlightRecord{
		rec("1", "ABC123", "OJAI", "ORBI"),
		rec("2", "XYZ1", "OJAI", ""),
	}}
	ch := &mockChannel{}
	New(l, output.Formatter{}).HandleMessage(context.Background(), ch, "bot", message("user", "!flights"))

	if len(ch.messages) != 1 {
		t.Fatalf("sent %d messages, want 1", len(ch.messages))
	}
	want := "Current flights:\n" +
		"ID: 1, Departure: OJAI, Arrival: ORBI, Callsign: ABC123.\n" +
		"ID: 2, Departure: OJAI, Arrival: N/A, Callsign: XYZ1."
	if ch.messages[0] != want {
		t.Errorf("listing =\n%s\nwant\n%s", ch.messages[0], want)
	}
	if ch.channels[0] != "chan-1" {
		t.Errorf("replied in %q, want chan-1", ch.channels[0])
	}
}

func TestFlightsNoMatches(t *testing.T) {
	l := &mockLister{ok: true}
	ch := &mockChannel{}
	New(l, output.Formatter{}).HandleMessage(context.Background(), ch, "bot", message("user", "!flights"))

	if len(ch.messages) != 1 || ch.messages[0] != ReplyNoFlights {
		t.Fatalf("messages = %q, want %q", ch.messages, ReplyNoFlights)
	}
}

func TestFlightsFetchError(t *testing.T) {
	l := &mockLister{ok: false, err: &connector.FetchError{Source: "ivao", Err: errors.New("502")}}
	ch := &mockChannel{}
	New(l, output.Formatter{}).HandleMessage(context.Background(), ch, "bot", message("user", "!flights"))

	if len(ch.messages) != 1 || ch.messages[0] != ReplyFetchError {
		t.Fatalf("messages = %q, want %q", ch.messages, ReplyFetchError)
	}
}

func TestIgnoresOwnMessages(t *testing.T) {
	l := &mockLister{ok: true}
	ch := &mockChannel{}
	New(l, output.Formatter{}).HandleMessage(context.Background(), ch, "bot", message("bot", "!flights"))

	if l.calls != 0 || len(ch.messages) != 0 {
		t.Fatalf("bot answered itself: calls=%d messages=%v", l.calls, ch.messages)
	}
}

func TestIgnoresOtherContent(t *testing.T) {
	l := &mockLister{ok: true}
	ch := &mockChannel{}
	b := New(l, output.Formatter{})
	for _, content := range []string{"hello", "!flight", "!flights please", " !flights ", "!flights\n", "!FLIGHTS", ""} {
		b.HandleMessage(context.Background(), ch, "bot", message("user", content))
	}
	b.HandleMessage(context.Background(), ch, "bot", &discordgo.Message{Content: "!flights"})

	if l.calls != 0 || len(ch.messages) != 0 {
		t.Fatalf("unexpected replies: calls=%d messages=%v", l.calls, ch.messages)
	}
}

func TestListingPagesUnderLimit(t *testing.T) {
	var records []model.FlightRecord
	for i := 0; i < 80; i++ {
		records = append(records, rec("1234567", "CALLSIGN", "OJAI", "ORBI"))
	}
	l := &mockLister{ok: true, records: records}
	ch := &mockChannel{}
	New(l, output.Formatter{}).HandleMessage(context.Background(), ch, "bot", message("user", "!flights"))

	if len(ch.messages) < 2 {
		t.Fatalf("expected listing split across messages, got %d", len(ch.messages))
	}
	total := 0
	for i, msg := range ch.messages {
		if n := len([]rune(msg)); n > messageLimit {
			t.Errorf("message %d has %d runes, over the cap", i, n)
		}
		total += strings.Count(msg, "Callsign: CALLSIGN.")
	}
	if total != 80 {
		t.Errorf("listed %d flights, want 80", total)
	}
	if !strings.HasPrefix(ch.messages[0], ReplyHeader) {
		t.Error("first page should start with the header")
	}
}

func TestCheckFlightsSendsManualCards(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	l := &mockLister{ok: true, records: []model.FlightRecord{
		rec("1", "ABC123", "OJAI", "ORBI"),
		rec("2", "XYZ1", "OJAI", "KJFK"),
	}}
	ch := &mockChannel{}
	New(l, output.Formatter{}, WithClock(func() time.Time { return at })).
		HandleMessage(context.Background(), ch, "bot", message("user", "!checkflights"))

	if len(ch.embeds) != 2 {
		t.Fatalf("sent %d embeds, want 2", len(ch.embeds))
	}
	if ch.embeds[0].Title != "IVAO Manual Check: ABC123" {
		t.Errorf("title = %q", ch.embeds[0].Title)
	}
	if ch.embeds[0].Color != output.ColorManual {
		t.Errorf("color = %#x, want manual", ch.embeds[0].Color)
	}
	if ch.embeds[1].Timestamp != at.Format(time.RFC3339) {
		t.Errorf("timestamp = %q", ch.embeds[1].Timestamp)
	}
}

func TestCheckFlightsNoMatches(t *testing.T) {
	l := &mockLister{ok: true}
	ch := &mockChannel{}
	New(l, output.Formatter{}).HandleMessage(context.Background(), ch, "bot", message("user", "!checkflights"))

	if len(ch.embeds) != 0 || len(ch.messages) != 1 || ch.messages[0] != ReplyNoFlights {
		t.Fatalf("embeds=%d messages=%q", len(ch.embeds), ch.messages)
	}
}
