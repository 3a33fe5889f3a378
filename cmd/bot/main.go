package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/xtding233/outcome-engine/internal/app"
	"github.com/xtding233/outcome-engine/internal/bot"
	"github.com/xtding233/outcome-engine/internal/config"
)

func main() {
	s, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("load config")
	}
	log := s.Logger(os.Stderr)
	if err := run(s, log); err != nil {
		log.Fatal().Err(err).Msg("bot stopped")
	}
}

func run(s config.Settings, log zerolog.Logger) error {
	if s.TelegramToken == "" {
		return errors.New("OUTCOME_TELEGRAM_TOKEN is required")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, s, log)
	if err != nil {
		return err
	}
	defer a.Close()
	go a.Watch(ctx)

	api, err := tgbotapi.NewBotAPI(s.TelegramToken)
	if err != nil {
		return err
	}
	log.Info().Str("account", api.Self.UserName).Msg("bot authorized")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)
	b := bot.New(api, a.Sessions, a.Catalog, log)
	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			return nil
		case up := <-updates:
			b.HandleUpdate(ctx, up)
		}
	}
}
