// Package live implements the broadcast hub that pushes rotating QR tokens
// and keep-alive pings to subscribed organizer connections.
package live

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"rollcall/backend/internal/qrtoken"
	rounddomain "rollcall/backend/internal/round/domain"
	"rollcall/backend/internal/telemetry"
)

// Sentinel errors surfaced synchronously to Subscribe callers.
var (
	ErrRoundNotFound  = errors.New("round not found")
	ErrForbidden      = errors.New("caller is not an organizer of this round's session")
	ErrRoundNotActive = errors.New("round is not active")
	ErrShuttingDown   = errors.New("hub is shutting down")
)

// Event names on the live stream.
const (
	EventQRToken = "qrToken"
	EventPing    = "ping"
)

// lookupTimeout bounds the round re-fetch inside timer callbacks.
const lookupTimeout = 5 * time.Second

// subscriptionBuffer is the per-connection event buffer. A connection that
// cannot drain this many pending events is considered broken and pruned.
const subscriptionBuffer = 8

// QRTokenPayload is the qrToken event body.
type QRTokenPayload struct {
	RoundID               string `json:"roundId"`
	QRUrl                 string `json:"qrUrl"`
	ExpiresAtEpochSeconds int64  `json:"expiresAtEpochSeconds"`
}

// Event is one server-initiated push on a live connection.
type Event struct {
	Name string
	Data *QRTokenPayload // nil for ping
}

// Subscription is one live connection to a round's event stream. Events()
// is closed when the connection is pruned, the round leaves ACTIVE, or the
// hub shuts down.
type Subscription struct {
	RoundID string

	ch     chan Event
	closed bool // guarded by the owning feed's mutex
}

// Events returns the stream of pushes for this connection.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// RoundGetter is the round lookup the hub re-checks status against.
type RoundGetter interface {
	GetByID(ctx context.Context, id string) (*rounddomain.Round, error)
}

// AdminChecker answers whether a caller may administer a session's rounds.
type AdminChecker interface {
	IsSessionAdmin(ctx context.Context, callerID, sessionID string) (bool, error)
}

// Hub owns the per-round connection sets and timers. One feed goroutine per
// round with at least one subscriber; no lock is shared across rounds' pushes.
type Hub struct {
	rounds    RoundGetter
	admins    AdminChecker
	issuer    *qrtoken.Issuer
	qrBaseURL string
	keepalive time.Duration
	metrics   *telemetry.Metrics
	log       *zap.Logger
	now       func() time.Time

	mu       sync.Mutex
	feeds    map[string]*feed
	draining bool
	wg       sync.WaitGroup
}

// NewHub returns a hub pushing tokens from issuer against qrBaseURL.
// metrics may be nil.
func NewHub(
	rounds RoundGetter,
	admins AdminChecker,
	issuer *qrtoken.Issuer,
	qrBaseURL string,
	keepalive time.Duration,
	metrics *telemetry.Metrics,
	log *zap.Logger,
) *Hub {
	return &Hub{
		rounds:    rounds,
		admins:    admins,
		issuer:    issuer,
		qrBaseURL: qrBaseURL,
		keepalive: keepalive,
		metrics:   metrics,
		log:       log,
		now:       time.Now,
		feeds:     make(map[string]*feed),
	}
}

// feed is the per-round broadcast state: the subscriber set plus the single
// goroutine servicing the rotation and keep-alive timers.
type feed struct {
	roundID string

	mu   sync.Mutex
	subs map[*Subscription]struct{}

	stop     chan struct{}
	stopOnce sync.Once
}

// Subscribe registers a live connection for roundID. It fails with
// ErrRoundNotFound, ErrForbidden, or ErrRoundNotActive (status recomputed
// from wall-clock time, never the cached column). On success the current
// token has already been delivered to the subscription before returning;
// all later pushes are asynchronous.
func (h *Hub) Subscribe(ctx context.Context, roundID, callerID string) (*Subscription, error) {
	round, err := h.rounds.GetByID(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round == nil {
		return nil, ErrRoundNotFound
	}
	ok, err := h.admins.IsSessionAdmin(ctx, callerID, round.SessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	if round.ComputeStatus(h.now()) != rounddomain.StatusActive {
		return nil, ErrRoundNotActive
	}

	f, err := h.feedFor(roundID)
	if err != nil {
		return nil, err
	}

	sub := &Subscription{RoundID: roundID, ch: make(chan Event, subscriptionBuffer)}

	// Registering and the first push happen under the feed lock so a rotation
	// firing concurrently cannot deliver a newer token before the initial one.
	f.mu.Lock()
	select {
	case <-f.stop:
		f.mu.Unlock()
		return nil, ErrRoundNotActive
	default:
	}
	sub.ch <- h.tokenEvent(round.ID, round.Secret)
	f.subs[sub] = struct{}{}
	f.mu.Unlock()

	h.metrics.ConnectionOpened(ctx)
	h.log.Info("live subscriber joined", zap.String("round_id", roundID), zap.String("caller", callerID))
	return sub, nil
}

// Unsubscribe removes the connection; disconnect, timeout, and transport
// error all land here. When the round's last connection leaves, its timers
// are torn down. Safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	f := h.feeds[sub.RoundID]
	h.mu.Unlock()
	if f == nil {
		return
	}

	f.mu.Lock()
	_, present := f.subs[sub]
	if present {
		delete(f.subs, sub)
		if !sub.closed {
			sub.closed = true
			close(sub.ch)
		}
	}
	empty := len(f.subs) == 0
	f.mu.Unlock()

	if present {
		h.metrics.ConnectionClosed(context.Background())
	}
	if empty {
		h.teardown(f)
	}
}

// Shutdown closes every live connection across every round, cancels all
// timers, and waits for feed goroutines up to the context deadline.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.draining = true
	feeds := make([]*feed, 0, len(h.feeds))
	for _, f := range h.feeds {
		feeds = append(feeds, f)
	}
	h.mu.Unlock()

	for _, f := range feeds {
		h.teardown(f)
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("hub shutdown: %w", ctx.Err())
	}
}

// feedFor returns the round's feed, arming the rotation and keep-alive
// timers exactly once per round regardless of how many connections join.
func (h *Hub) feedFor(roundID string) (*feed, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.draining {
		return nil, ErrShuttingDown
	}
	if f, ok := h.feeds[roundID]; ok {
		return f, nil
	}
	f := &feed{
		roundID: roundID,
		subs:    make(map[*Subscription]struct{}),
		stop:    make(chan struct{}),
	}
	h.feeds[roundID] = f
	h.wg.Add(1)
	go h.run(f)
	return f, nil
}

// teardown cancels a feed's timers and closes its remaining connections.
// Idempotent: invoked from "no longer ACTIVE", "last subscriber left", and
// Shutdown, in any combination.
func (h *Hub) teardown(f *feed) {
	f.stopOnce.Do(func() { close(f.stop) })

	h.mu.Lock()
	if h.feeds[f.roundID] == f {
		delete(h.feeds, f.roundID)
	}
	h.mu.Unlock()

	f.mu.Lock()
	closed := 0
	for sub := range f.subs {
		delete(f.subs, sub)
		if !sub.closed {
			sub.closed = true
			close(sub.ch)
		}
		closed++
	}
	f.mu.Unlock()
	for i := 0; i < closed; i++ {
		h.metrics.ConnectionClosed(context.Background())
	}
}

// run services one round's rotation and keep-alive timers until teardown.
// The rotation timer is re-armed on each window boundary rather than ticking,
// so pushes stay aligned to window edges.
func (h *Hub) run(f *feed) {
	defer h.wg.Done()

	rotation := time.NewTimer(time.Until(h.issuer.NextBoundary(h.now())))
	defer rotation.Stop()
	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-f.stop:
			return
		case <-rotation.C:
			h.protect(f.roundID, "rotate", func() { h.rotate(f) })
			rotation.Reset(time.Until(h.issuer.NextBoundary(h.now())))
		case <-keepalive.C:
			h.protect(f.roundID, "keepalive", func() {
				h.broadcast(f, Event{Name: EventPing})
			})
		}
	}
}

// rotate re-checks the round and pushes a fresh token to every connection.
// A round that left ACTIVE is terminal: connections and timers are torn down.
func (h *Hub) rotate(f *feed) {
	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	round, err := h.rounds.GetByID(ctx, f.roundID)
	if err != nil {
		h.log.Warn("round refresh failed, keeping timer", zap.String("round_id", f.roundID), zap.Error(err))
		return
	}
	if round == nil || round.ComputeStatus(h.now()) != rounddomain.StatusActive {
		h.log.Info("round no longer active, closing live feed", zap.String("round_id", f.roundID))
		h.teardown(f)
		return
	}

	h.broadcast(f, h.tokenEvent(round.ID, round.Secret))
	h.metrics.RecordRotation(ctx)
}

// broadcast delivers ev to every live connection. A connection whose buffer
// is full is pruned; its failure never affects delivery to the others.
func (h *Hub) broadcast(f *feed, ev Event) {
	f.mu.Lock()
	pruned := 0
	for sub := range f.subs {
		select {
		case sub.ch <- ev:
		default:
			delete(f.subs, sub)
			sub.closed = true
			close(sub.ch)
			pruned++
			h.log.Warn("pruned stalled live connection", zap.String("round_id", f.roundID))
		}
	}
	empty := len(f.subs) == 0
	f.mu.Unlock()

	for i := 0; i < pruned; i++ {
		h.metrics.ConnectionClosed(context.Background())
	}
	if empty && pruned > 0 {
		h.teardown(f)
	}
}

// protect runs a timer callback, converting a panic into a log line so a
// scheduling failure never cancels the timer's future firings.
func (h *Hub) protect(roundID, op string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("timer callback panicked",
				zap.String("round_id", roundID),
				zap.String("operation", op),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()
	fn()
}

// tokenEvent derives the current token and wraps it as a qrToken event.
// Only the derived token is embedded in the URL, never the secret.
func (h *Hub) tokenEvent(roundID string, secret []byte) Event {
	tok := h.issuer.Issue(roundID, secret, h.now())
	qr := fmt.Sprintf("%s/checkin?round=%s&token=%s",
		h.qrBaseURL, url.QueryEscape(roundID), url.QueryEscape(tok.Value))
	return Event{
		Name: EventQRToken,
		Data: &QRTokenPayload{
			RoundID:               roundID,
			QRUrl:                 qr,
			ExpiresAtEpochSeconds: tok.ExpiresAt.Unix(),
		},
	}
}
