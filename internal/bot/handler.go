// Package bot answers roll and initiative text commands posted in Discord
// guild channels.
package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/grinmorio/rolling/internal/apperr"
	"github.com/grinmorio/rolling/internal/rolling"
	"github.com/grinmorio/rolling/internal/rolling/dice"
	"github.com/grinmorio/rolling/internal/rolling/initiative"
)

// Embed colours.
const (
	colorRoll    = 0x5865f2
	colorInfo    = 0x00b0f4
	colorSuccess = 0x57f287
	colorError   = 0xed4245
)

// maxFieldLen is Discord's limit for an embed field value.
const maxFieldLen = 1024

const requestTimeout = 10 * time.Second

var initiativeCommand = regexp.MustCompile(`^iniciativa\(([-+]?\d+)\)$`)

// Service is the subset of rolling.Service the bot calls.
type Service interface {
	RollExpression(ctx context.Context, expression, userID, guildID, username string) (dice.Outcome, error)
	RollInitiative(ctx context.Context, modifier int, userID, guildID, username string) (rolling.InitiativeRoll, error)
	ListInitiative(ctx context.Context, guildID string) ([]initiative.Entry, error)
	ClearInitiative(ctx context.Context, guildID string) error
}

// Replier sends channel messages. *discordgo.Session satisfies it.
type Replier interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Handler routes guild messages to the rolling service.
type Handler struct {
	svc    Service
	logger *zap.Logger
}

// NewHandler creates a Handler.
//
// Precondition: svc and logger must be non-nil.
func NewHandler(svc Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// OnMessageCreate is the discordgo event callback.
func (h *Handler) OnMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	h.Handle(ctx, s, m.Message)
}

// Handle answers m if it is a recognised command. Messages from bots, direct
// messages and ordinary chat are ignored.
func (h *Handler) Handle(ctx context.Context, r Replier, m *discordgo.Message) {
	if m == nil || m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	content := strings.ToLower(strings.TrimSpace(m.Content))

	var embed *discordgo.MessageEmbed
	switch {
	case content == "limpariniciativas":
		embed = h.clear(ctx, m)
	case content == "listariniciativas":
		embed = h.list(ctx, m)
	case initiativeCommand.MatchString(content):
		embed = h.initiative(ctx, m, content)
	case dice.IsRollCommand(content):
		embed = h.roll(ctx, m, content)
	default:
		return
	}

	_, err := r.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Embeds:    []*discordgo.MessageEmbed{embed},
		Reference: m.Reference(),
	})
	if err != nil {
		h.logger.Warn("sending discord reply",
			zap.String("guild_id", m.GuildID),
			zap.String("channel_id", m.ChannelID),
			zap.Error(err),
		)
	}
}

func (h *Handler) clear(ctx context.Context, m *discordgo.Message) *discordgo.MessageEmbed {
	if err := h.svc.ClearInitiative(ctx, m.GuildID); err != nil {
		return h.errorEmbed("Falha ao Limpar", err, m)
	}
	return &discordgo.MessageEmbed{
		Title:       "Iniciativa Resetada",
		Description: "A ordem de combate foi limpa com sucesso.",
		Color:       colorSuccess,
	}
}

func (h *Handler) list(ctx context.Context, m *discordgo.Message) *discordgo.MessageEmbed {
	entries, err := h.svc.ListInitiative(ctx, m.GuildID)
	if err != nil {
		return h.errorEmbed("Lista Vazia", err, m)
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("%dº - <@%s> (**%d**) - %s", i+1, e.UserID, e.Value, e.Username)
	}
	return &discordgo.MessageEmbed{
		Title:       "Ordem de Combate",
		Description: strings.Join(lines, "\n"),
		Color:       colorInfo,
	}
}

func (h *Handler) initiative(ctx context.Context, m *discordgo.Message, content string) *discordgo.MessageEmbed {
	match := initiativeCommand.FindStringSubmatch(content)
	modifier, err := strconv.Atoi(match[1])
	if err != nil {
		return h.errorEmbed("Falha na Iniciativa", apperr.Wrap(apperr.CodeValidation, "Modificador inválido.", err), m)
	}

	res, err := h.svc.RollInitiative(ctx, modifier, m.Author.ID, m.GuildID, m.Author.Username)
	if err != nil {
		return h.errorEmbed("Falha na Iniciativa", err, m)
	}
	lines := make([]string, len(res.Ordered))
	for i, e := range res.Ordered {
		lines[i] = fmt.Sprintf("%dº - <@%s> (%d)", i+1, e.UserID, e.Value)
	}
	return &discordgo.MessageEmbed{
		Title:       "📋 Ordem das Iniciativas",
		Description: strings.Join(lines, "\n"),
		Color:       colorInfo,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%s rolou %s (%s)", m.Author.Username, res.Roll.DisplayTotal(), strings.Join(res.Roll.Details, " ")),
		},
	}
}

func (h *Handler) roll(ctx context.Context, m *discordgo.Message, content string) *discordgo.MessageEmbed {
	out, err := h.svc.RollExpression(ctx, content, m.Author.ID, m.GuildID, m.Author.Username)
	if err != nil {
		return h.errorEmbed("Falha na Rolagem", err, m)
	}
	h.logger.Info("text roll",
		zap.String("guild_id", m.GuildID),
		zap.String("user_id", m.Author.ID),
		zap.String("expression", content),
		zap.String("total", out.DisplayTotal()),
	)
	return &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{
			Name:    m.Author.Username,
			IconURL: m.Author.AvatarURL(""),
		},
		Title:       fmt.Sprintf("Rolagem: `%s`", content),
		Description: fmt.Sprintf("**Resultado Final: %s**", out.DisplayTotal()),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Detalhes da Rolagem", Value: truncate(strings.Join(out.Details, "\n"), maxFieldLen)},
		},
		Color:     colorRoll,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// errorEmbed shows the user-facing message of validation and not-found
// errors; anything else is logged and shown generically.
func (h *Handler) errorEmbed(title string, err error, m *discordgo.Message) *discordgo.MessageEmbed {
	msg := "Ocorreu um erro inesperado."
	var appErr *apperr.Error
	if errors.As(err, &appErr) && (appErr.Code == apperr.CodeValidation || appErr.Code == apperr.CodeNotFound) {
		msg = apperr.MessageOf(err)
	} else {
		h.logger.Error("discord command failed",
			zap.String("guild_id", m.GuildID),
			zap.String("user_id", m.Author.ID),
			zap.String("content", m.Content),
			zap.Error(err),
		)
	}
	return &discordgo.MessageEmbed{
		Title:       "❌ " + title,
		Description: msg,
		Color:       colorError,
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
