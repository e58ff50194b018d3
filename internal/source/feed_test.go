package source

import (
	"testing"
	"time"

	"rdxflow/config"
	"rdxflow/internal/models"
)

func feedTick(symbol string, price, volume float64) tickMessage {
	return tickMessage{
		Symbol:    symbol,
		LastPrice: price,
		Volume:    volume,
		Timestamp: time.Date(2024, 2, 28, 15, 30, 0, 0, time.UTC).UnixMilli(),
	}
}

func TestFeedFlushesOnBatchSize(t *testing.T) {
	out := make(chan models.RawTable, 1)
	feed := NewFeed(config.FeedConfig{BatchSize: 2, FlushInterval: time.Hour}, out)

	feed.append(feedTick("ABC", 150.25, 1000))
	select {
	case batch := <-out:
		t.Fatalf("batch handed off before batch size reached: %+v", batch)
	default:
	}

	feed.append(feedTick("XYZ", 99, 500))

	var batch models.RawTable
	select {
	case batch = <-out:
	default:
		t.Fatalf("full batch not handed off")
	}

	if len(batch.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(batch.Records))
	}
	if len(batch.Headers) != len(feedHeaders) {
		t.Fatalf("unexpected headers: %v", batch.Headers)
	}
	first := batch.Records[0]
	if first["SYMBOL"] != "ABC" || first["CLOSE_PRICE"] != "150.25" {
		t.Fatalf("unexpected first record: %v", first)
	}
	if first["DATE1"] != "2024-02-28" {
		t.Fatalf("unexpected trade date: %q", first["DATE1"])
	}

	// pending buffer resets after a hand-off
	feed.flush()
	select {
	case batch = <-out:
		t.Fatalf("empty flush produced a batch: %+v", batch)
	default:
	}
}

func TestFeedFlushDeliversPartialBatch(t *testing.T) {
	out := make(chan models.RawTable, 1)
	feed := NewFeed(config.FeedConfig{BatchSize: 100, FlushInterval: time.Hour}, out)

	feed.append(feedTick("ABC", 150.25, 1000))
	feed.flush()

	select {
	case batch := <-out:
		if len(batch.Records) != 1 || batch.Records[0]["SYMBOL"] != "ABC" {
			t.Fatalf("unexpected batch: %+v", batch)
		}
	default:
		t.Fatalf("flush did not hand off the pending rows")
	}
}
