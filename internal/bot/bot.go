package bot

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Intents the bot needs to read guild message text.
const Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

// Bot owns the Discord gateway session.
type Bot struct {
	session *discordgo.Session
	logger  *zap.Logger

	stopOnce sync.Once
	done     chan struct{}
}

// New creates a Bot authenticated with token and routes messages to h.
//
// Precondition: token must be non-empty; h and logger must be non-nil.
// Postcondition: Returns a Bot whose session is not yet open.
func New(token string, h *Handler, logger *zap.Logger) (*Bot, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	s.Identify.Intents = Intents
	s.AddHandler(h.OnMessageCreate)
	s.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		logger.Info("discord bot ready",
			zap.String("user", r.User.Username),
			zap.Int("guilds", len(r.Guilds)),
		)
	})
	return &Bot{session: s, logger: logger, done: make(chan struct{})}, nil
}

// Start opens the gateway connection and blocks until Stop is called.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening discord session: %w", err)
	}
	<-b.done
	return nil
}

// Stop closes the gateway connection and unblocks Start.
func (b *Bot) Stop() {
	b.stopOnce.Do(func() {
		if err := b.session.Close(); err != nil {
			b.logger.Warn("closing discord session", zap.Error(err))
		}
		close(b.done)
	})
}
