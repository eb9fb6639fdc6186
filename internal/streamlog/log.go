// Package streamlog implements the Stream Log (C1): a thin, well-specified
// shim over Redis Streams providing append, consumer-group reads in three
// best-effort phases, acknowledgement, and introspection.
package streamlog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nextchamp-saqib/pulse/internal/pulseerr"
)

// Entry is a normalized stream record.
type Entry struct {
	ID   string
	Data map[string]string
}

// Log wraps a Redis client scoped to a single tenant's stream.
type Log struct {
	client   *redis.Client
	tenant   string
	name     string
	group    string
	consumer string
	maxLen   int64
	logger   *slog.Logger
}

// New returns a Log bound to the stream key "<tenant>:<streamName>".
// Distinct consumer identities are required across concurrent workers;
// otherwise crash-recovery/reclaim semantics collapse onto one another.
func New(client *redis.Client, tenant, streamName, group, consumer string, maxLen int64, logger *slog.Logger) *Log {
	if tenant == "" {
		tenant = "default"
	}
	return &Log{
		client:   client,
		tenant:   tenant,
		name:     streamName,
		group:    group,
		consumer: consumer,
		maxLen:   maxLen,
		logger:   logger.With("component", "streamlog", "stream", Key(tenant, streamName)),
	}
}

// Key builds the tenant-qualified stream key.
func Key(tenant, streamName string) string {
	return fmt.Sprintf("%s:%s", tenant, streamName)
}

func (l *Log) key() string { return Key(l.tenant, l.name) }

// EnsureGroup creates the consumer group at id 0 if it does not exist,
// creating the stream itself (mkstream) when absent. The well-known
// "group already exists" error is swallowed.
func (l *Log) EnsureGroup(ctx context.Context) error {
	err := l.client.XGroupCreateMkStream(ctx, l.key(), l.group, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return pulseerr.Transport("ensure consumer group", err)
	}
	return nil
}

func isBusyGroup(err error) bool {
	return err != nil && strings.Contains(err.Error(), "BUSYGROUP")
}

// Append adds one entry to the stream with approximate maxlen trimming.
// Null/empty field values are dropped before stringifying the rest.
func (l *Log) Append(ctx context.Context, fields map[string]interface{}) (string, error) {
	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		values[k] = stringify(v)
	}

	id, err := l.client.XAdd(ctx, &redis.XAddArgs{
		Stream: l.key(),
		MaxLen: l.maxLen,
		Approx: true,
		ID:     "*",
		Values: values,
	}).Result()
	if err != nil {
		return "", pulseerr.Transport("append entry", err)
	}
	return id, nil
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Read returns up to count entries, gathered in three best-effort phases,
// in order, stopping once the count is met: pending reclaim for this
// consumer, stale claim from idle peers, then new delivery. A failure in
// one phase never aborts the others.
func (l *Log) Read(ctx context.Context, count int64, minIdle time.Duration) []Entry {
	if count <= 0 {
		return nil
	}

	entries := make([]Entry, 0, count)

	entries = append(entries, l.readPending(ctx, count)...)
	if int64(len(entries)) >= count {
		return entries[:count]
	}

	entries = append(entries, l.readStale(ctx, count-int64(len(entries)), minIdle)...)
	if int64(len(entries)) >= count {
		return entries[:count]
	}

	entries = append(entries, l.readNew(ctx, count-int64(len(entries)))...)
	if int64(len(entries)) > count {
		entries = entries[:count]
	}
	return entries
}

func (l *Log) readPending(ctx context.Context, count int64) []Entry {
	res, err := l.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    l.group,
		Consumer: l.consumer,
		Streams:  []string{l.key(), "0"},
		Count:    count,
	}).Result()
	if err != nil && err != redis.Nil {
		l.logger.Warn("pending reclaim failed", "error", err)
		return nil
	}
	return normalize(res)
}

func (l *Log) readStale(ctx context.Context, count int64, minIdle time.Duration) []Entry {
	if count <= 0 {
		return nil
	}
	messages, _, err := l.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   l.key(),
		Group:    l.group,
		Consumer: l.consumer,
		MinIdle:  minIdle,
		Start:    "0-0",
		Count:    count,
	}).Result()
	if err != nil && err != redis.Nil {
		l.logger.Warn("stale claim failed", "error", err)
		return nil
	}
	return normalizeMessages(messages)
}

func (l *Log) readNew(ctx context.Context, count int64) []Entry {
	if count <= 0 {
		return nil
	}
	res, err := l.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    l.group,
		Consumer: l.consumer,
		Streams:  []string{l.key(), ">"},
		Count:    count,
	}).Result()
	if err != nil && err != redis.Nil {
		l.logger.Warn("new delivery read failed", "error", err)
		return nil
	}
	return normalize(res)
}

func normalize(streams []redis.XStream) []Entry {
	if len(streams) == 0 {
		return nil
	}
	return normalizeMessages(streams[0].Messages)
}

func normalizeMessages(messages []redis.XMessage) []Entry {
	entries := make([]Entry, 0, len(messages))
	for _, m := range messages {
		data := make(map[string]string, len(m.Values))
		for k, v := range m.Values {
			if s, ok := v.(string); ok {
				data[k] = s
			} else {
				data[k] = fmt.Sprintf("%v", v)
			}
		}
		entries = append(entries, Entry{ID: m.ID, Data: data})
	}
	return entries
}

// Ack acknowledges the given entry ids. No-op on an empty list, safe to
// call with ids gathered from any phase of Read.
func (l *Log) Ack(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := l.client.XAck(ctx, l.key(), l.group, ids...).Err(); err != nil {
		return pulseerr.Transport("ack entries", err)
	}
	return nil
}

// DeleteEntry removes a single entry from the stream.
func (l *Log) DeleteEntry(ctx context.Context, id string) error {
	if err := l.client.XDel(ctx, l.key(), id).Err(); err != nil {
		return pulseerr.Transport("delete entry", err)
	}
	return nil
}

// DeleteStream removes the entire stream key.
func (l *Log) DeleteStream(ctx context.Context) error {
	if err := l.client.Del(ctx, l.key()).Err(); err != nil {
		return pulseerr.Transport("delete stream", err)
	}
	return nil
}

// Length returns the stream length, or 0 on failure.
func (l *Log) Length(ctx context.Context) int64 {
	n, err := l.client.XLen(ctx, l.key()).Result()
	if err != nil {
		l.logger.Warn("xlen failed", "error", err)
		return 0
	}
	return n
}

// MemoryBytes returns the approximate memory footprint of the stream key,
// or 0 on failure.
func (l *Log) MemoryBytes(ctx context.Context) int64 {
	n, err := l.client.MemoryUsage(ctx, l.key()).Result()
	if err != nil {
		l.logger.Warn("memory usage failed", "error", err)
		return 0
	}
	return n
}

// RateLast returns the number of entries appended within the last
// interval, via an XRANGE window, or 0 on failure.
func (l *Log) RateLast(ctx context.Context, interval time.Duration) int64 {
	sinceMs := time.Now().Add(-interval).UnixMilli()
	entries, err := l.client.XRangeN(ctx, l.key(), fmt.Sprintf("%d", sinceMs), "+", 0).Result()
	if err != nil {
		l.logger.Warn("rate window read failed", "error", err)
		return 0
	}
	return int64(len(entries))
}

// UnackedLength sums pending+lag across consumer groups matching this
// stream's group, or 0 on failure.
func (l *Log) UnackedLength(ctx context.Context) int64 {
	groups, err := l.client.XInfoGroups(ctx, l.key()).Result()
	if err != nil {
		l.logger.Warn("xinfo groups failed", "error", err)
		return 0
	}
	var total int64
	for _, g := range groups {
		if g.Name == l.group {
			total += g.Pending + g.Lag
		}
	}
	return total
}

// Consumers reports per-consumer pending count and idle time for this
// stream's group, or an empty slice on failure.
type ConsumerInfo struct {
	Name    string
	Pending int64
	IdleSec float64
}

func (l *Log) Consumers(ctx context.Context) []ConsumerInfo {
	consumers, err := l.client.XInfoConsumers(ctx, l.key(), l.group).Result()
	if err != nil {
		l.logger.Warn("xinfo consumers failed", "error", err)
		return nil
	}
	out := make([]ConsumerInfo, 0, len(consumers))
	for _, c := range consumers {
		out = append(out, ConsumerInfo{
			Name:    c.Name,
			Pending: c.Pending,
			IdleSec: c.Idle.Seconds(),
		})
	}
	return out
}

// Order selects ascending (Range) or descending (RevRange) iteration.
type Order int

const (
	Ascending Order = iota
	Descending
)

// Range returns up to count entries between minID and maxID ("-"/"+" for
// the extremes), in the requested order, or an empty slice on failure.
func (l *Log) Range(ctx context.Context, minID, maxID string, count int64, order Order) []Entry {
	var (
		res []redis.XMessage
		err error
	)
	if order == Descending {
		res, err = l.client.XRevRangeN(ctx, l.key(), maxID, minID, count).Result()
	} else {
		res, err = l.client.XRangeN(ctx, l.key(), minID, maxID, count).Result()
	}
	if err != nil {
		l.logger.Warn("range read failed", "error", err)
		return nil
	}
	return normalizeMessages(res)
}

// ReceiptTime extracts the millisecond timestamp embedded in a stream
// entry id ("<ms>-<seq>") as a UTC time, used by introspection to compute
// processing lag.
func ReceiptTime(id string) (time.Time, error) {
	msPart := id
	if idx := strings.IndexByte(id, '-'); idx >= 0 {
		msPart = id[:idx]
	}
	ms, err := strconv.ParseInt(msPart, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse entry id %q: %w", id, err)
	}
	return time.UnixMilli(ms).UTC(), nil
}
