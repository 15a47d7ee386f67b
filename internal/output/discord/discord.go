package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/crimson-sun/flightwatch/internal/model"
	"github.com/crimson-sun/flightwatch/internal/output"
)

// ChannelAPI is the subset of *discordgo.Session used for delivery.
type ChannelAPI interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

// Output posts notification cards to a fixed Discord channel.
type Output struct {
	api       ChannelAPI
	channelID string
	format    output.Formatter
}

// New creates a Discord channel output.
func New(api ChannelAPI, channelID string, format output.Formatter) *Output {
	return &Output{api: api, channelID: channelID, format: format}
}

func (o *Output) Notify(ctx context.Context, n model.Notification) (model.Receipt, error) {
	msg, err := o.api.ChannelMessageSendEmbed(o.channelID, o.format.Embed(n), discordgo.WithContext(ctx))
	if err != nil {
		return model.Receipt{}, &output.DeliveryError{Destination: "discord", Key: n.Key, Err: err}
	}
	return model.Receipt{
		Destination: "discord:" + o.channelID,
		MessageID:   msg.ID,
		SentAt:      time.Now(),
	}, nil
}

// Delete removes a message this output sent.
func (o *Output) Delete(ctx context.Context, r model.Receipt) error {
	if err := o.api.ChannelMessageDelete(o.channelID, r.MessageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord output: delete %s: %w", r.MessageID, err)
	}
	return nil
}

// Close is a no-op; the session is owned by the caller.
func (o *Output) Close() error {
	return nil
}
