package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bolasblack/dirsync/internal/config"
	"github.com/bolasblack/dirsync/internal/journal"
	"github.com/bolasblack/dirsync/internal/mirror"
	"github.com/bolasblack/dirsync/internal/state"
	"github.com/bolasblack/dirsync/internal/util"
)

// syncer runs passes for one source/replica pair and records their outcome
// in the status file.
type syncer struct {
	env        *util.Env
	cfg        config.Config
	dryRun     bool
	reconciler *mirror.Reconciler
}

// prepareSyncer checks the log file, takes the replica lock and warns about
// source drift. Dry runs write nothing, so they skip all three and print
// their events to out instead of the log file. The returned release func is
// never nil.
func prepareSyncer(env *util.Env, cfg config.Config, out io.Writer, dryRun bool) (*syncer, func(), error) {
	release := func() {}
	s := &syncer{env: env, cfg: cfg, dryRun: dryRun}

	opts := cfg.ReconcilerOptions()
	if dryRun {
		opts = append(opts, mirror.WithDryRun())
		s.reconciler = mirror.New(env.Fs, mirror.LoggerFunc(func(ev mirror.Event) {
			fmt.Fprintln(out, ev.Message())
		}), opts...)
		return s, release, nil
	}

	j := journal.New(env.Fs, cfg.LogFile)
	if err := j.Check(); err != nil {
		return nil, release, fmt.Errorf("log file %s is not writable: %w", j.Path(), err)
	}
	s.reconciler = mirror.New(env.Fs, j, opts...)

	lock, err := state.AcquireLock(env, cfg.StateDir, cfg.Replica)
	if err != nil {
		return nil, release, err
	}
	release = func() {
		if err := lock.Unlock(); err != nil {
			slog.Warn("failed to release replica lock", "path", lock.Path(), "error", err)
		}
	}

	st, created, err := state.LoadOrCreate(env, cfg.StateDir, cfg.Source, cfg.Replica)
	if err != nil {
		slog.Warn("failed to load status file", "error", err)
		return s, release, nil
	}
	if !created && displaySourceDrift(out, st.DetectSourceDrift(cfg.Source)) {
		st.UpdateSource(cfg.Source)
		if err := state.Save(env, cfg.StateDir, st); err != nil {
			slog.Warn("failed to save status file", "error", err)
		}
	}
	return s, release, nil
}

// pass runs one reconciliation and records it.
func (s *syncer) pass() (*mirror.Report, error) {
	report, err := s.reconciler.Reconcile(s.cfg.Source, s.cfg.Replica)
	logSummary(report, err)
	if !s.dryRun {
		s.record(report, err)
	}
	return report, err
}

func (s *syncer) record(report *mirror.Report, passErr error) {
	st, _, err := state.LoadOrCreate(s.env, s.cfg.StateDir, s.cfg.Source, s.cfg.Replica)
	if err != nil {
		slog.Warn("failed to load status file", "error", err)
		return
	}
	st.Record(report, passErr)
	if err := state.Save(s.env, s.cfg.StateDir, st); err != nil {
		slog.Warn("failed to save status file", "error", err)
	}
}

// logSummary reports a pass on the console. Passes that changed nothing are
// only visible at debug level.
func logSummary(report *mirror.Report, passErr error) {
	if passErr != nil {
		return
	}
	attrs := []any{
		"pass", report.ID,
		"changes", report.Changes(),
		"copied", util.Bytes(report.BytesCopied),
		"errors", len(report.Errors),
		"took", report.Duration.Round(time.Millisecond),
	}
	if report.Changes() == 0 && len(report.Errors) == 0 {
		slog.Debug("pass complete", attrs...)
		return
	}
	slog.Info("pass complete", attrs...)
}

// printReport writes a one-line summary of a pass for humans.
func printReport(w io.Writer, report *mirror.Report) {
	verb := "changed"
	if report.DryRun {
		verb = "would change"
	}
	summary := fmt.Sprintf("%s %s, %s copied, in %s",
		util.Count(report.Changes(), "entry", "entries"), verb,
		util.Bytes(report.BytesCopied), report.Duration.Round(time.Millisecond))

	if n := len(report.Errors); n > 0 {
		progressWarn(w, "%s; %s failed\n", summary, util.Count(n, "entry", "entries"))
		return
	}
	progressDone(w, "%s\n", summary)
}
