package notify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Gangu030/GANGU-PRO/internal/metrics"
)

const queueCapacity = 64

// Telegram pushes messages to a chat through the bot API. A bounded queue is
// drained by a single sender goroutine; when the queue is full the message is
// dropped and counted, never blocking trading logic.
type Telegram struct {
	base   string
	token  string
	chatID string
	client *http.Client
	log    zerolog.Logger

	queue chan string
	once  sync.Once
	done  chan struct{}
}

// Option configures Telegram construction parameters.
type Option func(*Telegram)

// WithBaseURL overrides the bot API host, mainly for tests.
func WithBaseURL(base string) Option {
	return func(t *Telegram) {
		if base != "" {
			t.base = base
		}
	}
}

// NewTelegram starts the sender goroutine and returns the notifier.
func NewTelegram(token, chatID string, log zerolog.Logger, opts ...Option) *Telegram {
	t := &Telegram{
		base:   "https://api.telegram.org",
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
		queue:  make(chan string, queueCapacity),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	go t.drain()
	return t
}

// Notify enqueues the message, dropping it if the queue is full.
func (t *Telegram) Notify(text string) {
	select {
	case t.queue <- text:
	default:
		metrics.NotificationsDropped.Inc()
		t.log.Warn().Msg("notification queue full, dropping message")
	}
}

// Close stops the sender after the queue drains.
func (t *Telegram) Close() {
	t.once.Do(func() {
		close(t.queue)
		<-t.done
	})
}

func (t *Telegram) drain() {
	defer close(t.done)
	for text := range t.queue {
		t.send(text)
	}
}

func (t *Telegram) send(text string) {
	payload := map[string]string{"chat_id": t.chatID, "text": text}
	body, _ := json.Marshal(payload)

	resp, err := t.client.Post(t.base+"/bot"+t.token+"/sendMessage", "application/json", bytes.NewReader(body))
	if err != nil {
		t.log.Warn().Err(err).Msg("telegram send failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.log.Warn().Int("status", resp.StatusCode).Msg("telegram send rejected")
	}
}
