package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"rdxflow/config"
	"rdxflow/internal/models"
	"rdxflow/logger"
)

// tickMessage is the wire shape of one quote on the vendor feed.
type tickMessage struct {
	Symbol    string  `json:"symbol"`
	LastPrice float64 `json:"last_price"`
	Volume    float64 `json:"volume"`
	Timestamp int64   `json:"timestamp"`
}

// Feed subscribes to a vendor websocket quote stream and buffers ticks into
// fully-formed RawTable batches. The pipeline assumes no concurrent mutation
// of its inputs, so the feed only ever hands off complete batches, never a
// table it is still appending to.
type Feed struct {
	cfg config.FeedConfig
	out chan<- models.RawTable
	log *logger.Entry

	mu      sync.Mutex
	conn    *websocket.Conn
	pending []models.RawRecord
	running bool
	wg      sync.WaitGroup
}

// NewFeed wires a feed to the batch output channel.
func NewFeed(cfg config.FeedConfig, out chan<- models.RawTable) *Feed {
	return &Feed{
		cfg: cfg,
		out: out,
		log: logger.GetLogger().WithComponent("feed"),
	}
}

// Start connects, subscribes and begins the read and flush loops.
func (f *Feed) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return fmt.Errorf("feed already running")
	}
	f.running = true
	f.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial feed %s: %w", f.cfg.URL, err)
	}

	sub := map[string]interface{}{"action": "subscribe", "symbols": f.cfg.Symbols}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return fmt.Errorf("subscribe: %w", err)
	}

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()

	f.log.WithFields(logger.Fields{"url": f.cfg.URL, "symbols": len(f.cfg.Symbols)}).Info("feed connected")

	f.wg.Add(2)
	go f.readLoop(ctx)
	go f.flushLoop(ctx)
	return nil
}

// Stop closes the connection and waits for the loops to drain.
func (f *Feed) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	if f.conn != nil {
		f.conn.Close()
	}
	f.mu.Unlock()

	f.wg.Wait()
	f.flush()
}

func (f *Feed) readLoop(ctx context.Context) {
	defer f.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, payload, err := f.conn.ReadMessage()
		if err != nil {
			f.mu.Lock()
			running := f.running
			f.mu.Unlock()
			if running {
				f.log.WithError(err).Warn("feed read failed; stopping")
			}
			return
		}

		var tick tickMessage
		if err := json.Unmarshal(payload, &tick); err != nil || tick.Symbol == "" {
			f.log.WithError(err).Debug("unparseable tick; dropped")
			continue
		}

		f.append(tick)
	}
}

func (f *Feed) flushLoop(ctx context.Context) {
	defer f.wg.Done()
	ticker := time.NewTicker(f.cfg.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.flush()
		}
	}
}

// feedHeaders matches the legacy cash dialect so the batches flow through
// the same column mapping as an uploaded file.
var feedHeaders = []string{"SYMBOL", "CLOSE_PRICE", "TTL_TRD_QNTY", "DATE1"}

func (f *Feed) append(tick tickMessage) {
	rec := models.RawRecord{
		"SYMBOL":       tick.Symbol,
		"CLOSE_PRICE":  strconv.FormatFloat(tick.LastPrice, 'f', -1, 64),
		"TTL_TRD_QNTY": strconv.FormatFloat(tick.Volume, 'f', -1, 64),
		"DATE1":        time.UnixMilli(tick.Timestamp).UTC().Format("2006-01-02"),
	}

	f.mu.Lock()
	f.pending = append(f.pending, rec)
	full := len(f.pending) >= f.cfg.BatchSize
	f.mu.Unlock()

	if full {
		f.flush()
	}
}

func (f *Feed) flush() {
	f.mu.Lock()
	if len(f.pending) == 0 {
		f.mu.Unlock()
		return
	}
	batch := f.pending
	f.pending = nil
	f.mu.Unlock()

	headers := make([]string, len(feedHeaders))
	copy(headers, feedHeaders)
	f.out <- models.RawTable{Headers: headers, Records: batch}
	f.log.WithFields(logger.Fields{"rows": len(batch)}).Debug("feed batch handed off")
}
