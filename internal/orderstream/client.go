package orderstream

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"wyvern-matchbot/internal/opensea"
)

const DefaultPingInterval = 10 * time.Second

const EventItemListed = "item_listed"

type subscribeRequest struct {
	Action      string   `json:"action"`
	Collections []string `json:"collections"`
	Events      []string `json:"events"`
}

// Message is one feed envelope. Payload is the order record for listing
// events and is left raw for everything else.
type Message struct {
	Event      string          `json:"event"`
	Collection string          `json:"collection"`
	SentAt     int64           `json:"sent_at"`
	Payload    json.RawMessage `json:"payload"`
}

type Options struct {
	PingInterval time.Duration

	BackoffMin time.Duration
	BackoffMax time.Duration

	OutBuffer int
}

func (o Options) withDefaults() Options {
	if o.PingInterval <= 0 {
		o.PingInterval = DefaultPingInterval
	}
	if o.BackoffMin <= 0 {
		o.BackoffMin = 500 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 15 * time.Second
	}
	if o.OutBuffer <= 0 {
		o.OutBuffer = 256
	}
	return o
}

// Start connects to the listing feed and emits messages until ctx is done,
// reconnecting with jittered exponential backoff.
func Start(ctx context.Context, url string, collections []string, opts Options) (<-chan Message, <-chan error) {
	opts = opts.withDefaults()
	out := make(chan Message, opts.OutBuffer)
	errs := make(chan error, 16)

	go func() {
		defer close(out)
		defer close(errs)
		if url == "" {
			sendErr(errs, fmt.Errorf("orderstream: empty url"))
			return
		}

		delay := opts.BackoffMin
		for ctx.Err() == nil {
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
			if err == nil {
				delay = opts.BackoffMin
				s := &session{conn: conn, out: out, errs: errs, ping: opts.PingInterval}
				err = s.run(ctx, collections)
			} else {
				err = fmt.Errorf("orderstream dial: %w", err)
			}
			if ctx.Err() != nil {
				return
			}
			sendErr(errs, err)
			sleepWithJitter(ctx, delay)
			delay = nextBackoff(delay, opts.BackoffMax)
		}
	}()
	return out, errs
}

// session is one websocket connection. Writes (subscribe, pings) share wmu.
type session struct {
	conn *websocket.Conn
	wmu  sync.Mutex
	ping time.Duration

	out  chan<- Message
	errs chan<- error
}

func (s *session) write(mt int, b []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(3 * time.Second))
	return s.conn.WriteMessage(mt, b)
}

// run subscribes and pumps messages until the connection drops. A nil error
// means the server closed the connection cleanly.
func (s *session) run(ctx context.Context, collections []string) error {
	defer s.conn.Close()

	req, err := json.Marshal(subscribeRequest{
		Action:      "subscribe",
		Collections: collections,
		Events:      []string{EventItemListed},
	})
	if err != nil {
		return fmt.Errorf("orderstream subscribe: %w", err)
	}
	if err := s.write(websocket.TextMessage, req); err != nil {
		return fmt.Errorf("orderstream subscribe: %w", err)
	}

	// keepalive must be gone before run returns: Start closes errs after.
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.keepalive(ctx, done)
	}()
	defer wg.Wait()
	defer close(done)

	for {
		mt, b, err := s.conn.ReadMessage()
		switch {
		case err == nil:
		case ctx.Err() != nil, websocket.IsCloseError(err, websocket.CloseNormalClosure):
			return nil
		default:
			return fmt.Errorf("orderstream read: %w", err)
		}
		if mt != websocket.TextMessage || len(b) == 0 {
			continue
		}

		var m Message
		if err := json.Unmarshal(b, &m); err != nil {
			sendErr(s.errs, fmt.Errorf("orderstream json decode: %w", err))
			continue
		}
		// Listings are never dropped; a slow consumer blocks the read loop.
		select {
		case s.out <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

// keepalive pings on an interval and closes the connection when ctx ends so
// the blocked read returns.
func (s *session) keepalive(ctx context.Context, done <-chan struct{}) {
	t := time.NewTicker(s.ping)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			_ = s.conn.Close()
			return
		case <-t.C:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				sendErr(s.errs, fmt.Errorf("orderstream ping: %w", err))
				_ = s.conn.Close()
				return
			}
		}
	}
}

// Source turns item_listed messages into order records for the runner.
type Source struct {
	URL         string
	Collections []string
	Options     Options
}

func (s *Source) Orders(ctx context.Context) (<-chan opensea.Order, <-chan error) {
	msgs, streamErrs := Start(ctx, s.URL, s.Collections, s.Options)
	out := make(chan opensea.Order, cap(msgs))
	errs := make(chan error, 16)

	go func() {
		defer close(out)
		defer close(errs)
		// Forward stream errors until the stream goroutine closes its channel.
		fwd := make(chan struct{})
		go func() {
			defer close(fwd)
			for err := range streamErrs {
				sendErr(errs, err)
			}
		}()
		defer func() { <-fwd }()

		for m := range msgs {
			o, ok, err := listing(m)
			if err != nil {
				sendErr(errs, err)
			}
			if !ok {
				continue
			}
			select {
			case out <- o:
			case <-ctx.Done():
				for range msgs {
				}
				return
			}
		}
	}()
	return out, errs
}

// listing extracts the order record from an item_listed message.
func listing(m Message) (opensea.Order, bool, error) {
	var o opensea.Order
	if m.Event != EventItemListed || len(m.Payload) == 0 {
		return o, false, nil
	}
	if err := json.Unmarshal(m.Payload, &o); err != nil {
		return o, false, fmt.Errorf("orderstream payload (%s): %w", m.Collection, err)
	}
	return o, true, nil
}

func sendErr(ch chan<- error, err error) {
	if err == nil {
		return
	}
	select {
	case ch <- err:
	default:
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	if cur*2 > max {
		return max
	}
	return cur * 2
}

func sleepWithJitter(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	if j := int64(d) / 7; j > 0 {
		d += time.Duration(rand.Int64N(2*j+1) - j)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
