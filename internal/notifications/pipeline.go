package notifications

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/svitlo/svitlo-bot/internal/metrics"
	"github.com/svitlo/svitlo-bot/internal/runlock"
	"github.com/svitlo/svitlo-bot/internal/schedule"
)

const releaseTimeout = 5 * time.Second

// Deps holds the collaborators of a Pipeline.
type Deps struct {
	Fetcher    Fetcher
	Records    RecordStore
	Dispatcher *Dispatcher
	Lock       runlock.Locker
	Metrics    metrics.Sink
}

// Pipeline runs one detection-and-dispatch cycle at a time.
type Pipeline struct {
	deps   Deps
	policy Policy
	logger *slog.Logger
	now    func() time.Time

	// ReadOnly skips every record commit. Used by dry runs so a previewed
	// change is still detected by the next real run.
	ReadOnly bool
}

// NewPipeline creates a pipeline. A nil lock falls back to an in-process one.
func NewPipeline(deps Deps, policy Policy, logger *slog.Logger) *Pipeline {
	if deps.Lock == nil {
		deps.Lock = runlock.NewLocal()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoopSink()
	}
	return &Pipeline{deps: deps, policy: policy, logger: logger, now: time.Now}
}

// RunOnce executes FETCH → NORMALIZE → [per group: DETECT → DIFF → DISPATCH
// → COMMIT] under the run lock.
//
// It returns ErrRunInProgress when another run holds the lock and a
// *FetchError when the upstream document could not be obtained; in both
// cases no record is touched. Per-group failures are reported in the result
// and never abort the other groups.
func (p *Pipeline) RunOnce(ctx context.Context) (RunResult, error) {
	start := p.now()
	result := RunResult{RunID: uuid.NewString()}
	logger := p.logger.With("run_id", result.RunID)

	release, err := p.deps.Lock.Acquire(ctx)
	if err != nil {
		result.Duration = time.Since(start)
		if errors.Is(err, runlock.ErrHeld) {
			logger.Info("Check skipped, another run holds the lock")
			p.deps.Metrics.RunCompleted(metrics.RunSkipped, result.Duration)
			return result, ErrRunInProgress
		}
		p.deps.Metrics.RunCompleted(metrics.RunFailed, result.Duration)
		return result, err
	}
	defer func() {
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := release(relCtx); err != nil {
			logger.Error("Failed to release run lock", "error", err)
		}
	}()

	snap, err := p.deps.Fetcher.Fetch(ctx)
	if err == nil && snap == nil {
		err = errors.New("fetcher returned no snapshot")
	}
	if err != nil {
		fe := &FetchError{Err: err}
		logger.Error("Fetch failed, run aborted", "error", err)
		result.AddError(fe.Error())
		result.Duration = time.Since(start)
		p.deps.Metrics.RunCompleted(metrics.RunFetchError, result.Duration)
		return result, fe
	}

	current := p.normalize(snap, &result, logger)
	for _, cur := range current {
		p.processGroup(ctx, cur, &result, logger)
	}

	result.Duration = time.Since(start)
	outcome := metrics.RunOK
	if len(result.Errors) > 0 {
		outcome = metrics.RunFailed
	}
	p.deps.Metrics.RunCompleted(outcome, result.Duration)
	logger.Info("Check complete", "summary", result.Summary(), "duration", result.Duration)
	return result, nil
}

// normalize converts every raw group, skipping malformed and duplicate ones.
func (p *Pipeline) normalize(snap *schedule.Snapshot, result *RunResult, logger *slog.Logger) []schedule.GroupSchedule {
	seen := make(map[schedule.GroupID]bool, len(snap.Groups))
	out := make([]schedule.GroupSchedule, 0, len(snap.Groups))
	for _, raw := range snap.Groups {
		cur, err := schedule.Normalize(raw)
		if err == nil && seen[cur.Group] {
			err = &schedule.MalformedScheduleError{Group: raw.Label, Reason: "group appears twice in one document"}
		}
		if err != nil {
			result.Malformed++
			result.AddError(err.Error())
			p.deps.Metrics.GroupProcessed(metrics.GroupMalformed)
			logger.Warn("Skipping malformed group", "group", raw.Label, "error", err)
			continue
		}
		seen[cur.Group] = true
		out = append(out, cur)
	}
	result.Groups = len(out)

	var missing []string
	for _, g := range schedule.AllGroups() {
		if !seen[g] {
			missing = append(missing, g.String())
		}
	}
	if len(missing) > 0 {
		result.Missing = len(missing)
		logger.Warn("Groups missing from upstream, records left untouched", "groups", missing)
	}
	return out
}

func (p *Pipeline) processGroup(ctx context.Context, cur schedule.GroupSchedule, result *RunResult, logger *slog.Logger) {
	logger = logger.With("group", cur.Group)

	var prev *schedule.Record
	rec, err := p.deps.Records.GetRecord(ctx, cur.Group)
	switch {
	case err == nil:
		prev = &rec
	case errors.Is(err, schedule.ErrRecordNotFound):
	default:
		result.ReadFailed++
		result.AddErrorf("read record for group %s: %v", cur.Group, err)
		logger.Error("Failed to read record, group skipped", "error", err)
		return
	}

	cs, changed := Detect(cur, prev)
	switch {
	case !changed:
		result.Unchanged++
		p.deps.Metrics.GroupProcessed(metrics.GroupUnchanged)
		return
	case cs.FirstObservation:
		result.FirstObserved++
		p.deps.Metrics.GroupProcessed(metrics.GroupFirstObserved)
		logger.Info("First observation, storing without notification")
		p.commit(ctx, cur, result, logger)
		return
	case !p.policy.ShouldNotify(cs):
		result.Suppressed++
		p.deps.Metrics.GroupProcessed(metrics.GroupSuppressed)
		logger.Info("Change suppressed by policy", "today", cs.Today.Kind, "tomorrow", cs.Tomorrow.Kind)
		if cs.Tomorrow.Kind == schedule.Withdrawn {
			// Keep the tomorrow subscribers already have, so its return
			// is not announced as a new publication.
			cur.Tomorrow = prev.Schedule.Tomorrow
			if schedule.Compute(cur) == prev.Fingerprint {
				return
			}
		}
		p.commit(ctx, cur, result, logger)
		return
	}

	result.Changed++
	p.deps.Metrics.GroupProcessed(metrics.GroupChanged)
	logger.Info("Schedule changed", "today", cs.Today.Kind, "tomorrow", cs.Tomorrow.Kind)

	dr, err := p.deps.Dispatcher.Dispatch(ctx, cs)
	result.Sent += dr.Sent
	result.SendFailed += dr.Failed
	if err != nil {
		result.AddErrorf("dispatch group %s: %v", cur.Group, err)
		logger.Error("Dispatch aborted, record not committed", "error", err)
		return
	}
	p.commit(ctx, cur, result, logger)
}

// commit replaces the group's record. On failure the change is discarded and
// the next run detects it again.
func (p *Pipeline) commit(ctx context.Context, cur schedule.GroupSchedule, result *RunResult, logger *slog.Logger) {
	if p.ReadOnly {
		logger.Info("Read-only run, record not committed")
		return
	}
	if err := p.deps.Records.SaveRecord(ctx, schedule.NewRecord(cur, p.now())); err != nil {
		swe := &StoreWriteError{Group: cur.Group, Err: err}
		result.CommitFailed++
		result.AddError(swe.Error())
		p.deps.Metrics.GroupProcessed(metrics.GroupCommitFailed)
		logger.Error("Commit failed, change will be detected again", "error", err)
	}
}
