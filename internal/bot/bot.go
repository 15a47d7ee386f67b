package bot

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/crimson-sun/flightwatch/internal/logging"
	"github.com/crimson-sun/flightwatch/internal/model"
	"github.com/crimson-sun/flightwatch/internal/output"
)

const (
	CommandFlights      = "!flights"
	CommandCheckFlights = "!checkflights"

	ReplyFetchError = "Error fetching flight data."
	ReplyNoFlights  = "No relevant flights found."
	ReplyHeader     = "Current flights:"

	// messageLimit is Discord's per-message content cap.
	messageLimit   = 2000
	defaultTimeout = 30 * time.Second
)

// Intents are the gateway intents the bot needs to read commands.
const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

// Lister returns the flights currently touching the watch-list.
type Lister interface {
	ListCurrent(ctx context.Context) ([]model.FlightRecord, bool, error)
}

// ChannelAPI is the subset of *discordgo.Session used for replies.
type ChannelAPI interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Option configures a Bot.
type Option func(*Bot)

// WithTimeout bounds the work done for one command. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return func(b *Bot) { b.timeout = d }
}

// WithClock overrides the time stamped on manual-check cards.
func WithClock(now func() time.Time) Option {
	return func(b *Bot) { b.now = now }
}

// Bot answers on-demand listing commands in chat.
type Bot struct {
	lister  Lister
	format  output.Formatter
	timeout time.Duration
	now     func() time.Time
}

// New creates a Bot that lists flights through l.
func New(l Lister, format output.Formatter, opts ...Option) *Bot {
	b := &Bot{lister: l, format: format, timeout: defaultTimeout, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Register installs the message handler on a discordgo session.
func (b *Bot) Register(s *discordgo.Session) func() {
	return s.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		selfID := ""
		if s.State != nil && s.State.User != nil {
			selfID = s.State.User.ID
		}
		b.HandleMessage(context.Background(), s, selfID, m.Message)
	})
}

// HandleMessage dispatches a chat message. Messages authored by selfID
// and anything that is not a known command are ignored.
func (b *Bot) HandleMessage(ctx context.Context, api ChannelAPI, selfID string, m *discordgo.Message) {
	if m == nil || m.Author == nil || m.Author.ID == selfID {
		return
	}

	cmd := m.Content
	if cmd != CommandFlights && cmd != CommandCheckFlights {
		return
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	ctx = logging.WithLogFields(ctx, logging.LogFields{Component: "flightwatch.bot"})
	slog.InfoContext(ctx, "command received", "command", cmd, "channel", m.ChannelID, "author", m.Author.Username)

	records, ok, err := b.lister.ListCurrent(ctx)
	if !ok {
		slog.WarnContext(ctx, "listing fetch failed", "error", err)
		b.send(ctx, api, m.ChannelID, ReplyFetchError)
		return
	}
	if len(records) == 0 {
		b.send(ctx, api, m.ChannelID, ReplyNoFlights)
		return
	}

	if cmd == CommandCheckFlights {
		b.sendCards(ctx, api, m.ChannelID, records)
		return
	}
	b.sendListing(ctx, api, m.ChannelID, records)
}

func (b *Bot) sendListing(ctx context.Context, api ChannelAPI, channelID string, records []model.FlightRecord) {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, output.Line(r))
	}
	for _, page := range output.Pages(ReplyHeader, lines, messageLimit) {
		if !b.send(ctx, api, channelID, page) {
			return
		}
	}
}

func (b *Bot) sendCards(ctx context.Context, api ChannelAPI, channelID string, records []model.FlightRecord) {
	at := b.now()
	for _, r := range records {
		if _, err := api.ChannelMessageSendEmbed(channelID, b.format.ManualEmbed(r, at), discordgo.WithContext(ctx)); err != nil {
			slog.WarnContext(ctx, "send manual check card failed", "callsign", r.Callsign, "error", err)
			return
		}
	}
}

func (b *Bot) send(ctx context.Context, api ChannelAPI, channelID, content string) bool {
	if _, err := api.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx)); err != nil {
		slog.WarnContext(ctx, "send reply failed", "channel", channelID, "error", err)
		return false
	}
	return true
}
