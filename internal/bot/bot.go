// Package bot plays the configured variants from Telegram chats.
package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/xtding233/outcome-engine/internal/catalog"
	"github.com/xtding233/outcome-engine/internal/cooldown"
	"github.com/xtding233/outcome-engine/internal/engine"
	"github.com/xtding233/outcome-engine/internal/session"
)

// Sender is the part of *tgbotapi.BotAPI the bot uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot answers commands. Each Telegram user plays as player "tg:<id>".
type Bot struct {
	API      Sender
	Sessions *session.Registry
	Variants interface{ Keys() []string }
	Logger   zerolog.Logger
}

func New(api Sender, sessions *session.Registry, variants interface{ Keys() []string }, log zerolog.Logger) *Bot {
	return &Bot{API: api, Sessions: sessions, Variants: variants, Logger: log}
}

// Player is the session player id of a Telegram user.
func Player(userID int64) string { return "tg:" + strconv.FormatInt(userID, 10) }

// HandleUpdate answers a command message; anything else is ignored.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	m := u.Message
	if m == nil || !m.IsCommand() || m.From == nil {
		return
	}
	lang := cooldown.ParseLang(m.From.LanguageCode)
	text := b.Reply(ctx, m.From.ID, lang, m.Command(), m.CommandArguments())

	b.Logger.Debug().Int64("user", m.From.ID).Str("command", m.Command()).Msg("telegram command")
	msg := tgbotapi.NewMessage(m.Chat.ID, text)
	msg.ReplyToMessageID = m.MessageID
	if _, err := b.API.Send(msg); err != nil {
		b.Logger.Error().Err(err).Int64("chat", m.Chat.ID).Msg("send reply")
	}
}

const help = `/dice [profile] roll the dice
/bull deal a bull hand
/wheel spin the wheel
/history <variant> [n] last results
/cooldown <variant> time until the next play
/variants list variants`

// Reply computes the answer to one command.
func (b *Bot) Reply(ctx context.Context, userID int64, lang language.Tag, cmd, args string) string {
	fields := strings.Fields(args)
	arg := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}
	switch cmd {
	case "start", "help":
		return help
	case "variants":
		return strings.Join(b.Variants.Keys(), "\n")
	case "dice":
		key := "dice"
		if p := arg(0); p != "" {
			key += "-" + p
		}
		return b.play(ctx, userID, lang, key)
	case "bull", "wheel":
		return b.play(ctx, userID, lang, cmd)
	case "history":
		if arg(0) == "" {
			return "usage: /history <variant> [n]"
		}
		n := 5
		if v := arg(1); v != "" {
			var err error
			if n, err = strconv.Atoi(v); err != nil {
				return "n must be a number"
			}
		}
		return b.history(ctx, userID, arg(0), n)
	case "cooldown":
		if arg(0) == "" {
			return "usage: /cooldown <variant>"
		}
		return b.cooldown(ctx, userID, lang, arg(0))
	}
	return "unknown command, try /help"
}

func (b *Bot) play(ctx context.Context, userID int64, lang language.Tag, variant string) string {
	s, err := b.Sessions.Session(ctx, Player(userID), variant)
	if err != nil {
		return b.failure(err, lang)
	}
	res, err := s.Play(ctx)
	if err != nil {
		return b.failure(err, lang)
	}
	return res.Summary
}

func (b *Bot) history(ctx context.Context, userID int64, variant string, n int) string {
	s, err := b.Sessions.Session(ctx, Player(userID), variant)
	if err != nil {
		return b.failure(err, language.English)
	}
	es := s.History(n)
	if len(es) == 0 {
		return "no plays yet"
	}
	lines := make([]string, 0, len(es))
	for _, e := range es {
		mark := ""
		if !e.Terminal {
			mark = " (abandoned)"
		}
		lines = append(lines, e.Time.Format("01-02 15:04")+"  "+e.Summary+mark)
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) cooldown(ctx context.Context, userID int64, lang language.Tag, variant string) string {
	s, err := b.Sessions.Session(ctx, Player(userID), variant)
	if err != nil {
		return b.failure(err, lang)
	}
	st, err := s.Cooldown(ctx)
	if err != nil {
		return b.failure(err, lang)
	}
	if !st.Locked {
		return "ready"
	}
	return cooldown.Countdown(lang, st.Remaining)
}

func (b *Bot) failure(err error, lang language.Tag) string {
	var locked *cooldown.LockedError
	switch {
	case errors.As(err, &locked):
		return cooldown.Countdown(lang, locked.Remaining)
	case errors.Is(err, catalog.ErrUnknownVariant):
		return "unknown variant, try /variants"
	case errors.Is(err, engine.ErrIllegalAttempt):
		return err.Error()
	}
	b.Logger.Error().Err(err).Msg("bot command failed")
	return "something went wrong"
}
