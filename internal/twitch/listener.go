package twitch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/diegowsan/saltyboyC/internal/config"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	ircEndpoint = "wss://irc-ws.chat.twitch.tv:443/"
	channel     = "#saltybet"
	announcer   = "waifu4u"

	readTimeout      = 6 * time.Minute // the announcer posts at least every few minutes
	reconnectBackoff = 10 * time.Second
)

// Listener maintains a websocket IRC connection to the SaltyBet channel and
// emits parsed announcer messages.
type Listener struct {
	username string
	token    string
	logger   zerolog.Logger
}

func NewListener(cfg *config.Config, logger zerolog.Logger) *Listener {
	return &Listener{username: cfg.TwitchUser, token: cfg.TwitchToken, logger: logger}
}

// Listen connects and streams announcer messages until the context is
// cancelled, reconnecting with backoff on any connection failure. The
// returned channel is closed when the context ends.
func (l *Listener) Listen(ctx context.Context) (<-chan Message, error) {
	if l.username == "" || l.token == "" {
		return nil, fmt.Errorf("twitch credentials not configured")
	}

	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			if err := l.run(ctx, out); err != nil {
				l.logger.Warn().Err(err).Msg("chat connection lost, reconnecting")
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectBackoff):
			}
		}
	}()
	return out, nil
}

// run holds one connection for its lifetime.
func (l *Listener) run(ctx context.Context, out chan<- Message) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, ircEndpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to dial chat: %w", err)
	}
	defer conn.Close()

	token := l.token
	if !strings.HasPrefix(token, "oauth:") {
		token = "oauth:" + token
	}
	for _, line := range []string{
		"PASS " + token,
		"NICK " + l.username,
		"JOIN " + channel,
	} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			return fmt.Errorf("failed to send %q: %w", strings.Fields(line)[0], err)
		}
	}
	l.logger.Info().Str("channel", channel).Msg("joined chat")

	// Close the connection when the context ends so the read loop unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return err
		}
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read failed: %w", err)
		}

		for _, line := range strings.Split(string(payload), "\r\n") {
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "PING") {
				pong := strings.Replace(line, "PING", "PONG", 1)
				if err := conn.WriteMessage(websocket.TextMessage, []byte(pong)); err != nil {
					return fmt.Errorf("failed to answer ping: %w", err)
				}
				continue
			}

			sender, text, ok := parsePrivmsg(line)
			if !ok || sender != announcer {
				continue
			}
			msg, ok := ParseAnnouncement(text)
			if !ok {
				continue
			}

			select {
			case out <- msg:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// parsePrivmsg extracts the sender and text of a channel PRIVMSG line, e.g.
// ":waifu4u!waifu4u@waifu4u.tmi.twitch.tv PRIVMSG #saltybet :Bets are OPEN ...".
func parsePrivmsg(line string) (sender, text string, ok bool) {
	if !strings.HasPrefix(line, ":") {
		return "", "", false
	}
	prefixEnd := strings.Index(line, " ")
	if prefixEnd < 0 {
		return "", "", false
	}
	prefix := line[1:prefixEnd]
	rest := line[prefixEnd+1:]

	if !strings.HasPrefix(rest, "PRIVMSG "+channel+" :") {
		return "", "", false
	}
	text = rest[len("PRIVMSG "+channel+" :"):]

	if bang := strings.Index(prefix, "!"); bang >= 0 {
		prefix = prefix[:bang]
	}
	return prefix, text, true
}
