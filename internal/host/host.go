// Package host wires a loaded config.Config into a running pipeline: it
// builds the filter chain, starts inputs, and fans surviving batches out to
// every configured output through a worker pool guarded by a circuit
// breaker, observing back-pressure on each output's queue depth.
package host

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"ssw-logs-capture/internal/config"
	"ssw-logs-capture/internal/input/filetail"
	"ssw-logs-capture/internal/output/kafkaout"
	"ssw-logs-capture/internal/output/stdoutout"
	"ssw-logs-capture/pkg/backpressure"
	"ssw-logs-capture/pkg/circuitbreaker"
	"ssw-logs-capture/pkg/codec"
	"ssw-logs-capture/pkg/compression"
	"ssw-logs-capture/pkg/dedupfilter"
	"ssw-logs-capture/pkg/filepos"
	"ssw-logs-capture/pkg/filter"
	"ssw-logs-capture/pkg/grepfilter"
	"ssw-logs-capture/pkg/metrics"
	"ssw-logs-capture/pkg/pipeerr"
	"ssw-logs-capture/pkg/record"
	"ssw-logs-capture/pkg/resourcemon"
	"ssw-logs-capture/pkg/workerpool"

	"github.com/sirupsen/logrus"
)

// sender is what every output implementation presents to the Host.
type sender interface {
	Send(ctx context.Context, tag string, data []byte) error
}

type outputBinding struct {
	name          string
	send          sender
	breaker       *circuitbreaker.Breaker
	backpressure  *backpressure.Manager
	highWaterMark int
	queueDepth    int64
}

// Host runs one pipeline: its inputs, filter chain, and outputs.
type Host struct {
	cfg    *config.Config
	logger *logrus.Logger

	chain       *filter.Chain
	metrics     *metrics.Registry
	pool        *workerpool.Pool
	outputs     []*outputBinding
	inputs      []*filetail.Input
	posStore    *filepos.Store
	resourceMon *resourcemon.Monitor

	paused int32
	wg     sync.WaitGroup
}

// New builds a Host from cfg. It registers filters and constructs outputs
// but does not start any goroutines until Run.
func New(cfg *config.Config, checkpointPath string, logger *logrus.Logger) (*Host, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	metricsReg := metrics.New()

	chain := filter.NewChain(logger)
	chain.SetDurationObserver(func(name string, d time.Duration) {
		metricsReg.FilterDuration.WithLabelValues(name).Observe(d.Seconds())
	})
	if err := registerFilters(chain, cfg.Filters); err != nil {
		return nil, err
	}
	// file inputs are the only input kind this host supports today, and
	// they only ever produce LOGS records.
	registered := map[record.EventType]bool{record.EventLogs: true}
	if err := chain.ValidateEventTypes(registered); err != nil {
		return nil, err
	}

	posStore, err := filepos.Open(checkpointPath, logger)
	if err != nil {
		return nil, err
	}

	h := &Host{
		cfg:         cfg,
		logger:      logger,
		chain:       chain,
		metrics:     metricsReg,
		pool:        workerpool.New(workerpool.Config{Workers: cfg.WorkerPool.Workers, QueueSize: cfg.WorkerPool.QueueSize, JobTimeout: cfg.WorkerPool.JobTimeout}, logger),
		posStore:    posStore,
		resourceMon: resourcemon.New(resourcemon.Config{}, logger),
	}

	if err := h.buildOutputs(); err != nil {
		return nil, err
	}
	h.buildInputs()
	return h, nil
}

func registerFilters(chain *filter.Chain, filters []config.FilterConfig) error {
	for _, f := range filters {
		rawConfig := filter.RawConfig{}
		if len(f.Regex) > 0 {
			rawConfig["Regex"] = f.Regex
		}
		if len(f.Exclude) > 0 {
			rawConfig["Exclude"] = f.Exclude
		}
		if f.LogicalOp != "" {
			rawConfig["Logical_Op"] = []string{f.LogicalOp}
		}
		if len(f.MetricsRegex) > 0 {
			rawConfig["Metrics.Regex"] = f.MetricsRegex
		}
		if len(f.MetricsExclude) > 0 {
			rawConfig["Metrics.Exclude"] = f.MetricsExclude
		}
		if f.TTL != "" {
			rawConfig["TTL"] = []string{f.TTL}
		}
		if f.MaxCacheSize > 0 {
			rawConfig["MaxCacheSize"] = []string{fmt.Sprint(f.MaxCacheSize)}
		}
		if len(f.Fields) > 0 {
			rawConfig["Fields"] = []string{joinComma(f.Fields)}
		}

		var plugin filter.Plugin
		switch f.Type {
		case "grep":
			plugin = grepfilter.New(codec.TimestampNative)
		case "dedup":
			plugin = dedupfilter.New(codec.TimestampNative)
		default:
			return pipeerr.New(pipeerr.KindConfiguration, pipeerr.CodeUnknownConfigKey, "host",
				"unsupported filter type "+f.Type)
		}

		allTypes := []record.EventType{record.EventLogs, record.EventMetrics, record.EventTraces}
		if err := chain.Register(f.Type, plugin, f.Match, allTypes, rawConfig); err != nil {
			return err
		}
	}
	return nil
}

func joinComma(fields []string) string {
	s := ""
	for i, f := range fields {
		if i > 0 {
			s += ","
		}
		s += f
	}
	return s
}

func (h *Host) buildOutputs() error {
	for _, o := range h.cfg.Outputs {
		var s sender
		switch o.Type {
		case "kafka":
			out, err := kafkaout.New(kafkaout.Config{
				Name:      o.Name,
				Brokers:   o.Brokers,
				Topic:     o.Topic,
				SASLUser:  o.SASLUser,
				SASLPass:  o.SASLPass,
				Algorithm: compression.Algorithm(o.Compression),
			}, h.logger)
			if err != nil {
				return err
			}
			s = out
		case "stdout":
			stdout := stdoutout.New(os.Stdout)
			s = stdoutSender{stdout}
		default:
			return pipeerr.New(pipeerr.KindConfiguration, pipeerr.CodeUnknownConfigKey, "host",
				"unsupported output type "+o.Type)
		}

		h.outputs = append(h.outputs, &outputBinding{
			name:    o.Name,
			send:    s,
			breaker: circuitbreaker.New(o.Name, circuitbreaker.Config{}),
			backpressure: backpressure.NewManager(backpressure.Config{
				HighWaterMark: h.cfg.Backpressure.HighWaterMark,
				LowWaterMark:  h.cfg.Backpressure.LowWaterMark,
			}, h.logger),
			highWaterMark: h.cfg.Backpressure.HighWaterMark,
		})
	}
	return nil
}

type stdoutSender struct{ out *stdoutout.Output }

func (s stdoutSender) Send(_ context.Context, tag string, data []byte) error {
	return s.out.Send(tag, data)
}

func (h *Host) buildInputs() {
	for _, in := range h.cfg.Inputs {
		h.inputs = append(h.inputs, filetail.New(filetail.Config{Path: in.Path, Tag: in.Tag}, h, h.posStore, h.logger))
	}
}

// Run starts the worker pool, every input, and (if configured) the metrics
// HTTP listener, then blocks until ctx is canceled.
func (h *Host) Run(ctx context.Context) error {
	if err := h.chain.Start(); err != nil {
		return err
	}
	if err := h.pool.Start(); err != nil {
		return err
	}
	if h.cfg.Metrics.Enabled {
		if err := h.metrics.Serve(h.cfg.Metrics.Listen); err != nil {
			return err
		}
	}

	for _, in := range h.inputs {
		h.wg.Add(1)
		go func(in *filetail.Input) {
			defer h.wg.Done()
			if err := in.Run(ctx); err != nil {
				h.logger.WithError(err).Error("host: input exited with error")
			}
		}(in)
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.resourceMon.Start(ctx)
	}()
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.publishResourceSamples(ctx)
	}()

	<-ctx.Done()
	h.stop()
	return nil
}

// publishResourceSamples copies the resourcemon's latest reading into the
// process resource gauges on a fixed tick until ctx is canceled.
func (h *Host) publishResourceSamples(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sample := h.resourceMon.Latest()
			h.metrics.ResourceCPUPercent.Set(sample.CPUPercent)
			h.metrics.ResourceMemoryRSS.Set(float64(sample.MemoryRSS))
			h.metrics.ResourceGoroutines.Set(float64(sample.Goroutines))
		}
	}
}

func (h *Host) stop() {
	h.wg.Wait()
	h.chain.Stop()
	h.pool.Stop()
	_ = h.metrics.Shutdown(context.Background())
	if h.posStore != nil {
		if err := h.posStore.Flush(); err != nil {
			h.logger.WithError(err).Warn("host: failed to checkpoint file positions")
		}
	}
}

// Accept implements filetail.Sink. It dispatches one batch through the
// filter chain and, if it survives, fans it out to every output.
func (h *Host) Accept(ctx context.Context, tag string, eventType record.EventType, data []byte) error {
	h.waitWhilePaused(ctx)

	h.metrics.RecordsIn.WithLabelValues(tag).Inc()

	out, dropped, err := h.chain.Dispatch(ctx, tag, eventType, data)
	if err != nil {
		h.logger.WithError(err).Warn("host: filter chain error, batch dropped")
		return nil
	}
	if dropped {
		h.metrics.RecordsDropped.WithLabelValues("chain").Inc()
		return nil
	}

	anyPaused := false
	for _, ob := range h.outputs {
		if h.send(ctx, ob, tag, out) {
			anyPaused = true
		}
	}
	h.setPaused(anyPaused)
	return nil
}

// send submits one batch to ob's output queue and reports whether ob's
// queue is now over its high water mark. Every output is observed on every
// Accept call, so the caller can OR the results together: the pipeline
// pauses if ANY output is congested, not just whichever output happened to
// be checked last.
func (h *Host) send(ctx context.Context, ob *outputBinding, tag string, data []byte) bool {
	depth := atomic.AddInt64(&ob.queueDepth, 1)
	h.metrics.QueueDepth.WithLabelValues(ob.name).Set(float64(depth))
	if ob.highWaterMark > 0 {
		h.metrics.QueueUtilization.WithLabelValues(ob.name).Set(float64(depth) / float64(ob.highWaterMark))
	}

	job := workerpool.SendJob{
		OutputName: ob.name,
		Execute: func(ctx context.Context) error {
			defer func() {
				d := atomic.AddInt64(&ob.queueDepth, -1)
				h.metrics.QueueDepth.WithLabelValues(ob.name).Set(float64(d))
			}()
			err := ob.breaker.Execute(func() error { return ob.send.Send(ctx, tag, data) })
			if err != nil {
				return err
			}
			h.metrics.RecordsOut.WithLabelValues(ob.name).Inc()
			return nil
		},
	}

	if ob.breaker.State() != "closed" {
		h.metrics.CircuitBreakerState.WithLabelValues(ob.name).Set(1)
	} else {
		h.metrics.CircuitBreakerState.WithLabelValues(ob.name).Set(0)
	}

	if err := h.pool.Submit(job); err != nil {
		h.logger.WithError(err).WithField("output", ob.name).Warn("host: output queue full, batch dropped")
		h.metrics.RecordsDropped.WithLabelValues(ob.name).Inc()
		atomic.AddInt64(&ob.queueDepth, -1)
		return ob.backpressure.Observe(int(atomic.LoadInt64(&ob.queueDepth)))
	}

	paused := ob.backpressure.Observe(int(atomic.LoadInt64(&ob.queueDepth)))
	if paused {
		h.metrics.BackpressurePauses.Inc()
	}
	return paused
}

func (h *Host) setPaused(paused bool) {
	if paused {
		atomic.StoreInt32(&h.paused, 1)
	} else {
		atomic.StoreInt32(&h.paused, 0)
	}
}

// waitWhilePaused blocks the calling input goroutine while any output's
// queue is over its high water mark, polling until it drains below the low
// water mark or ctx is canceled. This is the input side of the
// high/low water-mark pause-resume contract.
func (h *Host) waitWhilePaused(ctx context.Context) {
	for atomic.LoadInt32(&h.paused) == 1 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Millisecond):
		}
		anyPaused := false
		for _, ob := range h.outputs {
			if ob.backpressure.Observe(int(atomic.LoadInt64(&ob.queueDepth))) {
				anyPaused = true
			}
		}
		h.setPaused(anyPaused)
	}
}
