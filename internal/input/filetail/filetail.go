// Package filetail follows a log file and turns each new line into a LOGS
// record, encoded through pkg/codec and handed to a Sink for tag-based
// dispatch into the filter chain.
package filetail

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"ssw-logs-capture/pkg/codec"
	"ssw-logs-capture/pkg/filepos"
	"ssw-logs-capture/pkg/record"

	"github.com/fsnotify/fsnotify"
	"github.com/nxadm/tail"
	"github.com/sirupsen/logrus"
)

// Sink receives one encoded single-record batch for dispatch, tagged with
// the input's configured tag.
type Sink interface {
	Accept(ctx context.Context, tag string, eventType record.EventType, data []byte) error
}

// Config describes one file input.
type Config struct {
	Path string
	Tag  string
}

// Input tails one file, restarting the tail whenever fsnotify observes the
// file being replaced (the common log-rotation pattern: rename + recreate
// under the same path).
type Input struct {
	config Config
	sink   Sink
	store  *filepos.Store
	logger *logrus.Logger
}

// New constructs an Input. store may be nil, in which case tailing always
// starts at the end of the file.
func New(config Config, sink Sink, store *filepos.Store, logger *logrus.Logger) *Input {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Input{config: config, sink: sink, store: store, logger: logger}
}

// Run tails the file until ctx is canceled, restarting on rotation. It
// blocks the calling goroutine — callers run it with `go`.
func (in *Input) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(in.config.Path)
	if err := watcher.Add(dir); err != nil {
		in.logger.WithError(err).Warn("filetail: could not watch directory for rotation")
	}

	for {
		if err := in.tailOnce(ctx, watcher); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

// tailOnce runs one tail.Tail lifetime: from open to either ctx
// cancellation or a rotation event on the watched directory.
func (in *Input) tailOnce(ctx context.Context, watcher *fsnotify.Watcher) error {
	seek := tail.SeekInfo{Whence: os.SEEK_END}
	var offset int64
	if fi, err := os.Stat(in.config.Path); err == nil {
		offset = fi.Size()
	}
	if in.store != nil {
		if c, ok := in.store.Get(in.config.Path); ok {
			seek = tail.SeekInfo{Offset: c.Offset, Whence: os.SEEK_SET}
			offset = c.Offset
		}
	}

	t, err := tail.TailFile(in.config.Path, tail.Config{
		Follow:    true,
		ReOpen:    false,
		Location:  &seek,
		MustExist: false,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return err
	}
	defer t.Stop()

	for {
		select {
		case line, ok := <-t.Lines:
			if !ok {
				return nil
			}
			if line.Err != nil {
				in.logger.WithError(line.Err).Warn("filetail: line read error")
				continue
			}
			offset += int64(len(line.Text)) + 1
			if err := in.dispatchLine(ctx, line.Text); err != nil {
				return err
			}
			if in.store != nil {
				in.store.Update(in.config.Path, in.config.Tag, 0, offset)
			}
		case event, ok := <-watcher.Events:
			if !ok {
				continue
			}
			if filepath.Clean(event.Name) == filepath.Clean(in.config.Path) &&
				(event.Op&fsnotify.Create != 0 || event.Op&fsnotify.Remove != 0 || event.Op&fsnotify.Rename != 0) {
				in.logger.WithField("path", in.config.Path).Info("filetail: rotation detected, reopening")
				if in.store != nil {
					in.store.Update(in.config.Path, in.config.Tag, 0, 0)
				}
				return nil
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (in *Input) dispatchLine(ctx context.Context, line string) error {
	enc := codec.NewEncoder(codec.TimestampNative)
	enc.BeginRecord()
	now := time.Now()
	ts := record.Timestamp{Sec: uint32(now.Unix()), Nsec: uint32(now.Nanosecond())}
	if err := enc.AppendTimestamp(ts); err != nil {
		return err
	}
	if err := enc.AppendString(codec.FieldBody, "log", line); err != nil {
		return err
	}
	if err := enc.CommitRecord(); err != nil {
		return err
	}
	return in.sink.Accept(ctx, in.config.Tag, record.EventLogs, enc.TakeBuffer())
}
