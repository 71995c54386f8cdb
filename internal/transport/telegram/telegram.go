// Package telegram implements transport.Sender over the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"stampbot/pkg/logx"
)

type Config struct {
	Token  string
	ChatID int64

	// RatePerSec caps outgoing sends. Telegram throttles bots well below
	// this in group chats; 1/s is a safe default for a broadcast channel.
	RatePerSec int

	// Offline skips the getMe handshake. Tests only.
	Offline bool
}

// Sender sends to a single, fixed chat. It is constructed once at process
// start and never reassigned.
type Sender struct {
	bot     *tele.Bot
	chat    tele.ChatID
	limiter *rate.Limiter
	log     logx.Logger
}

func New(cfg Config, log logx.Logger) (*Sender, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is not set")
	}
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Offline: cfg.Offline,
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}
	return &Sender{
		bot:     b,
		chat:    tele.ChatID(cfg.ChatID),
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		log:     log,
	}, nil
}

var htmlOpts = &tele.SendOptions{ParseMode: tele.ModeHTML}

func (s *Sender) SendText(ctx context.Context, text string) error {
	for _, chunk := range splitText(text, telegramTextLimit) {
		if err := s.wait(ctx); err != nil {
			return err
		}
		if _, err := s.bot.Send(s.chat, chunk, htmlOpts); err != nil {
			return err
		}
	}
	s.log.Debug("text sent", logx.Int("len", len(text)))
	return nil
}

func (s *Sender) SendPhoto(ctx context.Context, url, caption string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	p := &tele.Photo{File: tele.FromURL(url), Caption: caption}
	if _, err := s.bot.Send(s.chat, p, htmlOpts); err != nil {
		return err
	}
	s.log.Debug("photo sent", logx.String("url", url))
	return nil
}

func (s *Sender) wait(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.limiter.Wait(ctx)
}

// Close releases the underlying bot. The bot never polls for updates, so
// this is bookkeeping only.
func (s *Sender) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.bot.Stop()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(2 * time.Second):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

const telegramTextLimit = 4000

// splitText splits long messages into chunks that are safe to send to
// Telegram. It prefers newline boundaries and (best-effort) avoids splitting
// inside an HTML tag.
func splitText(s string, limit int) []string {
	if limit <= 0 {
		limit = telegramTextLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := start + limit
		if end > len(rs) {
			end = len(rs)
		}

		// Prefer splitting on a newline near the end of the window.
		if end < len(rs) {
			for i := end - 1; i > start; i-- {
				if rs[i] == '\n' && i-start >= limit/3 {
					end = i + 1
					break
				}
			}
		}

		// Best-effort: don't split inside a tag.
		if end < len(rs) {
			lastOpen, lastClose := -1, -1
			for i := start; i < end; i++ {
				switch rs[i] {
				case '<':
					lastOpen = i
				case '>':
					lastClose = i
				}
			}
			if lastOpen > lastClose && lastOpen > start+1 {
				end = lastOpen
			}
		}

		chunk := strings.TrimRight(string(rs[start:end]), "\n")
		out = append(out, chunk)

		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}
