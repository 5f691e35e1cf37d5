// Package dedupfilter implements a fingerprint-based deduplication filter:
// an LRU-with-TTL cache keyed on a fast non-cryptographic hash of each
// record's tag and body, dropping any record whose fingerprint was already seen
// within the cache's retention window.
package dedupfilter

import (
	"container/list"
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"ssw-logs-capture/pkg/codec"
	"ssw-logs-capture/pkg/filter"
	"ssw-logs-capture/pkg/pipeerr"
	"ssw-logs-capture/pkg/record"

	"github.com/cespare/xxhash/v2"
)

const (
	defaultMaxCacheSize = 100000
	defaultTTL          = time.Hour
)

// Filter drops records whose fingerprint has already been seen, per tag.
type Filter struct {
	mode         codec.TimestampMode
	maxCacheSize int
	ttl          time.Duration
	fields       []string // field paths hashed; empty means the whole body

	mu      sync.Mutex
	entries map[uint64]*list.Element
	order   *list.List // front = most recently seen
}

type cacheEntry struct {
	fingerprint uint64
	seenAt      time.Time
}

// New constructs a Filter that re-encodes survivors using mode.
func New(mode codec.TimestampMode) *Filter {
	return &Filter{mode: mode}
}

// Schema implements filter.Plugin.
func (f *Filter) Schema() filter.ConfigSchema {
	return filter.ConfigSchema{Accepted: []string{"Match", "TTL", "MaxCacheSize", "Fields"}}
}

// Init implements filter.Plugin.
func (f *Filter) Init(raw filter.RawConfig) error {
	f.maxCacheSize = defaultMaxCacheSize
	f.ttl = defaultTTL

	if v, ok := raw.First("MaxCacheSize"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return pipeerr.New(pipeerr.KindConfiguration, pipeerr.CodeMissingConfigKey, "dedup",
				"MaxCacheSize must be a positive integer")
		}
		f.maxCacheSize = n
	}
	if v, ok := raw.First("TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return pipeerr.New(pipeerr.KindConfiguration, pipeerr.CodeMissingConfigKey, "dedup",
				"TTL must be a positive duration")
		}
		f.ttl = d
	}
	if v, ok := raw.First("Fields"); ok {
		for _, p := range strings.Split(v, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				f.fields = append(f.fields, p)
			}
		}
	}

	f.entries = make(map[uint64]*list.Element)
	f.order = list.New()
	return nil
}

// Exit implements filter.Plugin.
func (f *Filter) Exit() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = nil
	f.order = nil
	return nil
}

// FilterBatch implements filter.Plugin. Metrics scrape payloads have no
// per-record identity to fingerprint and pass through unmodified.
func (f *Filter) FilterBatch(_ context.Context, tag string, eventType record.EventType, data []byte) (filter.Result, error) {
	if eventType == record.EventMetrics {
		return filter.Result{Verdict: filter.Notouch}, nil
	}

	dec := codec.NewDecoder(data, false)
	enc := codec.NewEncoder(f.mode)

	dropped := false
	for {
		rec, status, err := dec.Next()
		switch status {
		case codec.StatusOK:
			if f.isDuplicate(fingerprint(tag, rec.Body, f.fields)) {
				dropped = true
				continue
			}
			if encErr := encodeRecord(enc, rec); encErr != nil {
				return filter.Result{}, encErr
			}
		case codec.StatusEnd:
			if !dropped {
				return filter.Result{Verdict: filter.Notouch}, nil
			}
			return filter.Result{Verdict: filter.Modified, Buffer: enc.TakeBuffer()}, nil
		case codec.StatusMalformedSkipped:
			dropped = true
			continue
		case codec.StatusAbandoned:
			return filter.Result{}, err
		case codec.StatusNeedMoreData:
			return filter.Result{}, pipeerr.New(pipeerr.KindDecode, pipeerr.CodeMalformed, "dedup",
				"batch truncated mid-record")
		}
	}
}

func encodeRecord(enc *codec.Encoder, rec record.Record) error {
	enc.BeginRecord()
	if err := enc.AppendTimestamp(rec.Timestamp); err != nil {
		return err
	}
	if rec.Metadata != nil {
		for _, key := range rec.Metadata.Keys() {
			v, _ := rec.Metadata.Get(key)
			if err := enc.Append(codec.FieldMetadata, key, v); err != nil {
				return err
			}
		}
	}
	for _, key := range rec.Body.Keys() {
		v, _ := rec.Body.Get(key)
		if err := enc.Append(codec.FieldBody, key, v); err != nil {
			return err
		}
	}
	return enc.CommitRecord()
}

func fingerprint(tag string, body *record.Map, fields []string) uint64 {
	h := xxhash.New()
	h.Write([]byte(tag))
	h.Write([]byte{0})
	if len(fields) == 0 {
		hashMap(h, body)
	} else {
		for _, path := range fields {
			v, ok := body.Resolve(strings.Split(path, "."))
			if !ok {
				continue
			}
			s, _ := v.Stringify()
			h.Write([]byte(path))
			h.Write([]byte{'='})
			h.Write([]byte(s))
			h.Write([]byte{';'})
		}
	}
	return h.Sum64()
}

func hashMap(h *xxhash.Digest, m *record.Map) {
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		h.Write([]byte(k))
		h.Write([]byte{'='})
		if s, ok := v.Stringify(); ok {
			h.Write([]byte(s))
		} else if nested, ok := v.AsMap(); ok {
			hashMap(h, nested)
		}
		h.Write([]byte{';'})
	}
}

// isDuplicate reports whether fp was already seen within the TTL window,
// recording it as seen either way. Expired entries are evicted lazily on
// lookup rather than by a background sweep, matching the filter's
// synchronous, non-blocking contract.
func (f *Filter) isDuplicate(fp uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	if el, ok := f.entries[fp]; ok {
		entry := el.Value.(*cacheEntry)
		if now.Sub(entry.seenAt) <= f.ttl {
			entry.seenAt = now
			f.order.MoveToFront(el)
			return true
		}
		f.order.Remove(el)
		delete(f.entries, fp)
	}

	el := f.order.PushFront(&cacheEntry{fingerprint: fp, seenAt: now})
	f.entries[fp] = el
	for f.order.Len() > f.maxCacheSize {
		back := f.order.Back()
		if back == nil {
			break
		}
		f.order.Remove(back)
		delete(f.entries, back.Value.(*cacheEntry).fingerprint)
	}
	return false
}
