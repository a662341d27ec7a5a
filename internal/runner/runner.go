// Package runner implements the processing runner: it pairs a parsed
// diff's files against a configuration's concerns/signals, in declared
// order, fetching content lazily through a ContentProvider and assembling
// ReportOutputs.
package runner

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/re-cinq/signalwatch/internal/config"
	"github.com/re-cinq/signalwatch/internal/diffparse"
	"github.com/re-cinq/signalwatch/internal/provider"
	"github.com/re-cinq/signalwatch/internal/report"
	"github.com/re-cinq/signalwatch/internal/watch"
)

// Refs names the two revisions a run compares.
type Refs struct {
	Base string
	Head string
}

// Context is a run's processing context: the content provider and the
// base/head revisions to fetch file versions at.
type Context struct {
	Provider provider.ContentProvider
	Refs     Refs
}

// Failure records a per-(file, concern, signal) error that did not abort
// the run: the runner never aborts the whole run on a per-signal failure,
// it records the error and continues with the rest.
type Failure struct {
	File    string
	Concern string
	Signal  int
	Err     error
}

// Result is the runner's contract output: the ordered report sequence,
// any per-signal failures, and concern-scoped context accumulated by
// matching signals.
type Result struct {
	Reports  []report.Output
	Failures []Failure
	Concerns map[string]map[string]string
}

// task is one dispatched (file, concern-index, signal-index) unit; tasks
// are built in that tuple's order, and each result is stored at its task's
// index, so declared order survives concurrent execution without a sort.
type task struct {
	fileIndex    int
	concernIndex int
	signalIndex  int
	file         diffparse.FileChange
	concern      config.Concern
	sigRef       config.SignalRef
}

type outcome struct {
	report  *report.Output
	failure *Failure
	concern string
	contrib map[string]string
}

// Run executes the processing runner over files against cfg, per the
// traversal order files × concerns (declared order) × signals (declared
// order). Dispatch is concurrent; results are collected by (file-index,
// concern-index, signal-index) and re-emitted in that tuple's
// lexicographic order so parallelism never changes the sequence.
func Run(ctx context.Context, files []diffparse.FileChange, cfg *config.Config, pctx Context) (*Result, error) {
	var tasks []task
	for fi, f := range files {
		for ci, c := range cfg.Concerns {
			for si, sigRef := range c.Signals {
				tasks = append(tasks, task{
					fileIndex: fi, concernIndex: ci, signalIndex: si,
					file: f, concern: c, sigRef: sigRef,
				})
			}
		}
	}

	outcomes := make([]outcome, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(16)
	for i, t := range tasks {
		i, t := i, t
		g.Go(func() error {
			out, failure, contrib := runOne(gctx, cfg, t, pctx)
			outcomes[i] = outcome{report: out, failure: failure, concern: t.concern.Name, contrib: contrib}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// outcomes is already in tasks' declaration order (fileIndex, concernIndex,
	// signalIndex), which is exactly the tuple order the loop above built it
	// in, so no further sort is needed to restore sequence.
	result := &Result{Concerns: map[string]map[string]string{}}
	for _, o := range outcomes {
		if o.report != nil {
			result.Reports = append(result.Reports, *o.report)
		}
		if o.failure != nil {
			result.Failures = append(result.Failures, *o.failure)
		}
		if len(o.contrib) > 0 {
			dst, ok := result.Concerns[o.concern]
			if !ok {
				dst = map[string]string{}
				result.Concerns[o.concern] = dst
			}
			for k, v := range o.contrib {
				dst[k] = v
			}
			n, _ := strconv.Atoi(dst["matchCount"])
			dst["matchCount"] = strconv.Itoa(n + 1)
		}
	}
	if len(result.Concerns) == 0 {
		result.Concerns = nil
	}
	return result, nil
}

// runOne runs one (file, concern, signal) triple. Any error here is a
// per-signal failure, not a fatal run error: extractor errors,
// unresolvable references and missing reports all collapse to a recorded
// Failure so the rest of the run proceeds.
func runOne(ctx context.Context, cfg *config.Config, t task, pctx Context) (out *report.Output, fail *Failure, contrib map[string]string) {
	recordFailure := func(err error) {
		fail = &Failure{File: t.file.EffectivePath(), Concern: t.concern.Name, Signal: t.signalIndex, Err: err}
	}

	sig, err := cfg.ResolveSignal(t.sigRef)
	if err != nil {
		recordFailure(fmt.Errorf("resolving signal: %w", err))
		return
	}

	watchCfg, err := cfg.ResolveWatch(sig.Watch)
	if err != nil {
		recordFailure(fmt.Errorf("resolving watch: %w", err))
		return
	}

	effectivePath := t.file.EffectivePath()
	if !watch.MatchesInclude(*watchCfg, effectivePath) {
		return
	}

	versions, err := materializeVersions(ctx, pctx, t.file)
	if err != nil {
		recordFailure(fmt.Errorf("fetching file versions: %w", err))
		return
	}

	filterResult, err := watch.Apply(ctx, versions, *watchCfg, effectivePath)
	if err != nil {
		recordFailure(fmt.Errorf("running watch: %w", err))
		return
	}
	if filterResult == nil {
		return
	}

	reportCfg, err := cfg.ResolveReport(sig.Report)
	if err != nil {
		recordFailure(fmt.Errorf("resolving report: %w", err))
		return
	}

	rendered, err := report.Render(*reportCfg, filterResult, effectivePath)
	if err != nil {
		recordFailure(fmt.Errorf("rendering report: %w", err))
		return
	}
	if sig.Notify != nil {
		rendered.Notify = sig.Notify
	}

	out = rendered
	contrib = concernContribution(t.concern, effectivePath)
	return
}

// materializeVersions fetches a file's old/new content through the
// ContentProvider: absence is not an error, and an add/delete change
// naturally yields one absent side via an empty path.
func materializeVersions(ctx context.Context, pctx Context, f diffparse.FileChange) (watch.FileVersions, error) {
	var versions watch.FileVersions

	if f.OldPath != "" && f.Kind != diffparse.Add {
		old, err := pctx.Provider.Content(ctx, pctx.Refs.Base, f.OldPath)
		if err != nil {
			return versions, err
		}
		versions.Old = old
	}
	if f.NewPath != "" && f.Kind != diffparse.Delete {
		newContent, err := pctx.Provider.Content(ctx, pctx.Refs.Head, f.NewPath)
		if err != nil {
			return versions, err
		}
		versions.New = newContent
	}
	return versions, nil
}

// concernContribution updates a concern's shared context: every matching
// signal records that its concern touched this file, accumulated across
// all files for that concern id.
func concernContribution(c config.Concern, effectivePath string) map[string]string {
	return map[string]string{"lastFile": effectivePath}
}
