package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"nftmarket/core/events"
	"nftmarket/observability"
)

const (
	wsWriteTimeout   = 10 * time.Second
	wsStreamBacklog  = 256
	wsSnapshotPage   = 100
	wsSnapshotType   = "market.offer.snapshot"
	marketOfferTopic = "market.offer."
	commissionTopic  = "market.commission."
)

var errStreamOverflow = errors.New("rpc: market stream subscriber fell behind")

type wsMessage struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Offer      *offerJSON        `json:"offer,omitempty"`
}

// marketStream buffers committed market events for one websocket client.
// Emit runs while the node holds its state lock, so it never blocks: a client
// that falls wsStreamBacklog messages behind is disconnected.
type marketStream struct {
	updates chan wsMessage

	once    sync.Once
	dropped chan struct{}
}

func newMarketStream() *marketStream {
	return &marketStream{
		updates: make(chan wsMessage, wsStreamBacklog),
		dropped: make(chan struct{}),
	}
}

func (m *marketStream) Emit(evt events.Event) {
	payload, ok := evt.(events.Payload)
	if !ok {
		return
	}
	typ := evt.EventType()
	if !strings.HasPrefix(typ, marketOfferTopic) && !strings.HasPrefix(typ, commissionTopic) {
		return
	}
	rendered := payload.Event()
	if rendered == nil {
		return
	}
	attrs := make(map[string]string, len(rendered.Attributes))
	for k, v := range rendered.Attributes {
		attrs[k] = v
	}
	select {
	case m.updates <- wsMessage{Type: typ, Attributes: attrs}:
	default:
		m.once.Do(func() { close(m.dropped) })
	}
}

// handleMarketWS streams market events as JSON text frames. An optional
// "from" query parameter first replays snapshots of offers with id >= from.
func (s *Server) handleMarketWS(w http.ResponseWriter, r *http.Request) {
	if s == nil || s.node == nil {
		http.Error(w, "node unavailable", http.StatusServiceUnavailable)
		return
	}
	if !s.allowSource(s.clientSource(r)) {
		observability.ModuleMetrics().RecordThrottle("rpc", "rate_limit")
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}
	var (
		from       uint64
		replayFrom bool
	)
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid from parameter", http.StatusBadRequest)
			return
		}
		from, replayFrom = parsed, true
	}

	stream := newMarketStream()
	unsubscribe := s.node.Subscribe(stream)
	defer unsubscribe()

	// Streams outlive the server read and write timeouts.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	ctx := conn.CloseRead(r.Context())

	if err := s.streamMarket(ctx, conn, stream, from, replayFrom); err != nil {
		switch {
		case errors.Is(err, errStreamOverflow):
			_ = conn.Close(websocket.StatusPolicyViolation, "stream overflow")
		case websocket.CloseStatus(err) == -1 && ctx.Err() == nil:
			s.logger.Warn("market stream failed", "error", err)
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Server) streamMarket(ctx context.Context, conn *websocket.Conn, stream *marketStream, from uint64, replay bool) error {
	if replay {
		if err := s.writeSnapshots(ctx, conn, from); err != nil {
			return err
		}
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stream.dropped:
			return errStreamOverflow
		case msg := <-stream.updates:
			if err := writeWSMessage(ctx, conn, msg); err != nil {
				return err
			}
		}
	}
}

func (s *Server) writeSnapshots(ctx context.Context, conn *websocket.Conn, from uint64) error {
	count, err := s.node.MarketNumberOfOffer()
	if err != nil {
		return err
	}
	for start := from; start < count; start += wsSnapshotPage {
		end := start + wsSnapshotPage - 1
		if end >= count {
			end = count - 1
		}
		offers, err := s.node.MarketBatchGetOffer(start, end)
		if err != nil {
			return err
		}
		for _, offer := range offers {
			snapshot := newOfferJSON(offer)
			if err := writeWSMessage(ctx, conn, wsMessage{Type: wsSnapshotType, Offer: &snapshot}); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeWSMessage(ctx context.Context, conn *websocket.Conn, msg wsMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
