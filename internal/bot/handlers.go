package bot

import (
	"log/slog"

	"gopkg.in/telebot.v4"
)

// handleStart — отправляет справку по доступным командам бота
func (b *Bot) handleStart(c telebot.Context) error {
	return c.Send(helpText)
}

// handlePrice — цена из сохранённого источника или из указанного аргументом
func (b *Bot) handlePrice(c telebot.Context) error {
	b.logger.Debug("bot: /price received",
		slog.Int64("chat_id", c.Chat().ID),
		slog.Int("args_len", len(c.Args())),
	)
	return b.send(c, b.replies.price(b.ctx, c.Args()))
}

// handleSources — список поддерживаемых источников
func (b *Bot) handleSources(c telebot.Context) error {
	return b.send(c, b.replies.sources(b.ctx))
}

// handleSource — смена предпочитаемого источника
func (b *Bot) handleSource(c telebot.Context) error {
	return b.send(c, b.replies.setSource(b.ctx, c.Args()))
}

func (b *Bot) send(c telebot.Context, msg string) error {
	if err := c.Send(msg); err != nil {
		b.logger.Error("bot: send failed",
			slog.Int64("chat_id", c.Chat().ID),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}
