package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/loykin/servermgr/internal/relay"
	"github.com/loykin/servermgr/internal/resolver"
)

// Actions are the operations reachable through slash commands.
type Actions interface {
	Stop()
	Quit()
	Send(text string)
}

// rest is the part of the discordgo session used for channels and messages.
type rest interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Bot connects to the gateway, registers the slash command group and
// resolves log channels. It implements resolver.Client.
type Bot struct {
	session *discordgo.Session
	api     rest
	actions Actions
	onReady func()
	log     *slog.Logger

	readyOnce sync.Once
	removers  []func()
}

type Option func(*Bot)

// WithReadyHandler is called once, on the first gateway Ready event.
func WithReadyHandler(f func()) Option {
	return func(b *Bot) { b.onReady = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Bot) { b.log = l }
}

// New creates a bot for token. Nothing is opened until Open.
func New(token string, actions Actions, opts ...Option) (*Bot, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	b := &Bot{session: s, api: s, actions: actions, log: slog.Default()}
	for _, o := range opts {
		o(b)
	}
	b.removers = append(b.removers,
		s.AddHandler(b.handleReady),
		s.AddHandler(b.handleInteraction),
	)
	return b, nil
}

// Open connects to the gateway.
func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	return nil
}

// Close disconnects from the gateway.
func (b *Bot) Close() error {
	for _, rm := range b.removers {
		rm()
	}
	b.removers = nil
	return b.session.Close()
}

func (b *Bot) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	b.readyOnce.Do(func() {
		// a bot user shares its id with its application
		if _, err := s.ApplicationCommandCreate(r.User.ID, "", Command()); err != nil {
			b.log.Error("slash command registration failed", "error", err)
		}
		b.log.Info("discord gateway ready", "user", r.User.Username, "guilds", len(r.Guilds))
		if b.onReady != nil {
			b.onReady()
		}
	})
}

// ResolveChannel fetches the channel id.
func (b *Bot) ResolveChannel(ctx context.Context, id string) (relay.Channel, error) {
	return resolve(ctx, b.api, id)
}

func resolve(ctx context.Context, api rest, id string) (relay.Channel, error) {
	ch, err := api.Channel(id, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify(err)
	}
	return &channel{api: api, id: ch.ID, name: ch.Name}, nil
}

// classify maps REST failures onto the resolver's terminal errors.
func classify(err error) error {
	var re *discordgo.RESTError
	if !errors.As(err, &re) || re.Response == nil {
		return err
	}
	switch re.Response.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %v", resolver.ErrNotFound, err)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %v", resolver.ErrBadRequest, err)
	default:
		return err
	}
}

type channel struct {
	api  rest
	id   string
	name string
}

func (c *channel) ID() string { return c.id }

func (c *channel) Send(ctx context.Context, content string) error {
	_, err := c.api.ChannelMessageSend(c.id, content, discordgo.WithContext(ctx))
	return err
}
