package grepfilter

import (
	"context"

	"ssw-logs-capture/pkg/codec"
	"ssw-logs-capture/pkg/filter"
	"ssw-logs-capture/pkg/pipeerr"
	"ssw-logs-capture/pkg/record"
)

// Filter is the reference stateful filter: it evaluates include/exclude
// regex rules against each record's body and re-emits only the records
// that pass.
type Filter struct {
	mode TimestampMode
	cfg  compiledConfig
}

// TimestampMode selects which wire encoding re-emitted records use. It is
// a thin alias over codec.TimestampMode so callers of this package never
// need to import codec just to configure a Filter.
type TimestampMode = codec.TimestampMode

// New constructs a Filter that re-encodes kept records using mode.
func New(mode TimestampMode) *Filter {
	return &Filter{mode: mode}
}

// Schema implements filter.Plugin.
func (f *Filter) Schema() filter.ConfigSchema { return Schema() }

// Init implements filter.Plugin: it compiles the rule set and rejects
// contradictory or malformed configuration.
func (f *Filter) Init(raw filter.RawConfig) error {
	cfg, err := compileConfig(raw)
	if err != nil {
		return err
	}
	f.cfg = cfg
	return nil
}

// Exit implements filter.Plugin. The filter holds no resources beyond its
// compiled rules.
func (f *Filter) Exit() error { return nil }

// FilterBatch implements filter.Plugin.
func (f *Filter) FilterBatch(_ context.Context, _ string, eventType record.EventType, data []byte) (filter.Result, error) {
	if eventType == record.EventMetrics {
		return f.filterMetrics(data)
	}
	return f.filterRecords(data)
}

// filterRecords decodes data as a batch of records, keeps only those that
// satisfy the rule algebra, and re-encodes the survivors. Per the spec's
// optimization, it returns Notouch when every record was kept so the
// chain forwards the original buffer with no allocation.
func (f *Filter) filterRecords(data []byte) (filter.Result, error) {
	dec := codec.NewDecoder(data, false)
	enc := codec.NewEncoder(f.mode)

	dropped := false
	for {
		rec, status, err := dec.Next()
		switch status {
		case codec.StatusOK:
			if f.keep(rec.Body) {
				if encErr := encodeRecord(enc, rec); encErr != nil {
					return filter.Result{}, encErr
				}
			} else {
				dropped = true
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
			// A batch handed to a filter is always complete; truncation
			// here means the upstream codec produced a malformed batch.
			return filter.Result{}, pipeerr.New(pipeerr.KindDecode, pipeerr.CodeMalformed, "grep",
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

// keep evaluates the full INCLUDE/EXCLUDE algebra for one record's body
// against the compiled rule set.
func (f *Filter) keep(body *record.Map) bool {
	include := evalGroup(f.cfg.includes, f.cfg.op, body, true)
	exclude := evalGroup(f.cfg.excludes, f.cfg.op, body, false)
	return include && !exclude
}

// evalGroup combines the per-rule results of one kind (all includes, or
// all excludes) under the configured operator. vacuousTrue is the result
// when the group is empty: includes are vacuously satisfied, excludes are
// vacuously unsatisfied.
func evalGroup(rules []Rule, op LogicalOp, body *record.Map, vacuousTrue bool) bool {
	if len(rules) == 0 {
		return vacuousTrue
	}

	effectiveOp := op
	if effectiveOp == OpLegacy {
		if vacuousTrue {
			effectiveOp = OpAnd // legacy: includes AND together
		} else {
			effectiveOp = OpOr // legacy: excludes OR together
		}
	}

	if effectiveOp == OpAnd {
		for _, r := range rules {
			if !matchRule(r, body) {
				return false
			}
		}
		return true
	}

	for _, r := range rules {
		if matchRule(r, body) {
			return true
		}
	}
	return false
}

// matchRule resolves a rule's field path against body and tests the
// compiled regex against the resolved value's string form. Resolution
// failure, and resolution to a non-scalar value, both evaluate to false
// per the "no match" decision for ambiguous field paths.
func matchRule(r Rule, body *record.Map) bool {
	v, ok := body.Resolve(r.FieldPath)
	if !ok || !v.IsScalar() {
		return false
	}
	s, ok := v.Stringify()
	if !ok {
		return false
	}
	return r.Pattern.MatchString(s)
}
