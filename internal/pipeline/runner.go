package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"dubbin/internal/fingerprint"
	"dubbin/internal/logging"
	"dubbin/internal/manifest"
	"dubbin/internal/services"
	"dubbin/internal/workspace"
)

// Reasons a phase runs or skips. Surfaced in run summaries and dry-run
// plans.
const (
	ReasonForced        = "forced"
	ReasonNoRecord      = "never ran"
	ReasonVersion       = "phase version changed"
	ReasonInputChanged  = "inputs changed"
	ReasonConfigChanged = "settings changed"
	ReasonOutputDrift   = "outputs modified or missing"
	ReasonNotSucceeded  = "last run did not succeed"
	ReasonUpstream      = "upstream phase will run"
	ReasonFresh         = "up to date"
	ReasonBounded       = "after requested range"
)

// Decision is the freshness verdict for one phase.
type Decision struct {
	Phase  string
	Run    bool
	Reason string
}

// PhaseResult records how one phase ended during a live run.
type PhaseResult struct {
	Phase    string
	Status   string
	Reason   string
	Duration time.Duration
	Err      error
}

// Summary aggregates a pipeline invocation.
type Summary struct {
	RunID   string
	Results []PhaseResult
}

// Ran reports how many phases executed.
func (s *Summary) Ran() int {
	n := 0
	for _, r := range s.Results {
		if r.Status == manifest.StatusSucceeded || r.Status == manifest.StatusFailed {
			n++
		}
	}
	return n
}

// Failed returns the first failed result, if any.
func (s *Summary) Failed() *PhaseResult {
	for i := range s.Results {
		if s.Results[i].Status == manifest.StatusFailed {
			return &s.Results[i]
		}
	}
	return nil
}

// Options bound and force a pipeline invocation.
type Options struct {
	// From forces the named phase and everything after it to run.
	From string
	// To stops the pipeline after the named phase.
	To string
	// DryRun evaluates the plan without executing anything.
	DryRun bool
}

// Runner drives phases in order, consulting the manifest to skip work whose
// inputs, settings, and outputs are all unchanged.
type Runner struct {
	phases []Phase
	logger *slog.Logger
}

// NewRunner builds a runner over an ordered phase list.
func NewRunner(phases []Phase, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{phases: phases, logger: logger}
}

// Phases returns the ordered phase names.
func (r *Runner) Phases() []string {
	names := make([]string, len(r.phases))
	for i, p := range r.phases {
		names[i] = p.Name()
	}
	return names
}

func (r *Runner) checkBounds(opts Options) error {
	known := map[string]bool{}
	for _, p := range r.phases {
		known[p.Name()] = true
	}
	if opts.From != "" && !known[opts.From] {
		return services.Wrap(services.ErrValidation, "", "plan", fmt.Sprintf("unknown phase %q", opts.From), nil)
	}
	if opts.To != "" && !known[opts.To] {
		return services.Wrap(services.ErrValidation, "", "plan", fmt.Sprintf("unknown phase %q", opts.To), nil)
	}
	return nil
}

// settingsFingerprint hashes the phase's configuration subset.
func settingsFingerprint(p Phase) string {
	return fingerprint.Config(p.Settings())
}

// evaluate applies the freshness rules to one phase. Rules are checked in a
// fixed order; the first match wins.
func evaluate(ws *workspace.Workspace, m *manifest.Manifest, p Phase, forced bool) (Decision, map[string]string, error) {
	d := Decision{Phase: p.Name()}
	if forced {
		d.Run, d.Reason = true, ReasonForced
	}

	inputs, err := fingerprintInputs(ws, p)
	if err != nil {
		return d, nil, err
	}
	if d.Run {
		return d, inputs, nil
	}

	rec := m.Record(p.Name())
	switch {
	case rec == nil:
		d.Run, d.Reason = true, ReasonNoRecord
	case rec.Version != p.Version():
		d.Run, d.Reason = true, ReasonVersion
	case !maps.Equal(rec.InputFingerprints, inputs):
		d.Run, d.Reason = true, ReasonInputChanged
	case rec.ConfigFingerprint != settingsFingerprint(p):
		d.Run, d.Reason = true, ReasonConfigChanged
	case rec.Status == manifest.StatusSucceeded && outputsDrifted(ws, p, rec):
		d.Run, d.Reason = true, ReasonOutputDrift
	case rec.Status != manifest.StatusSucceeded:
		d.Run, d.Reason = true, ReasonNotSucceeded
	default:
		d.Run, d.Reason = false, ReasonFresh
	}
	return d, inputs, nil
}

// outputsDrifted reports whether any declared output is missing or no longer
// matches its recorded fingerprint. Manual edits to outputs force a rerun
// unless they are blessed first. Only succeeded records have output
// fingerprints to drift from; a failed record reruns under its own rule.
func outputsDrifted(ws *workspace.Workspace, p Phase, rec *manifest.PhaseRecord) bool {
	for _, key := range p.Provides() {
		recorded, ok := rec.OutputFingerprints[key]
		if !ok {
			return true
		}
		current, err := fingerprintArtifact(ws, key)
		if err != nil || current != recorded {
			return true
		}
	}
	return false
}

// Plan evaluates every phase without running anything. Phases downstream of
// one that would run are marked stale through their shared artifacts, since
// their inputs will change once the upstream phase executes.
func (r *Runner) Plan(ws *workspace.Workspace, m *manifest.Manifest, opts Options) ([]Decision, error) {
	if err := r.checkBounds(opts); err != nil {
		return nil, err
	}
	decisions := make([]Decision, 0, len(r.phases))
	staleArtifacts := map[string]bool{}
	forced := false
	bounded := false
	for _, p := range r.phases {
		if bounded {
			decisions = append(decisions, Decision{Phase: p.Name(), Reason: ReasonBounded})
			continue
		}
		if opts.From != "" && p.Name() == opts.From {
			forced = true
		}
		d, _, err := evaluate(ws, m, p, forced)
		if err != nil {
			return nil, err
		}
		if !d.Run {
			for _, key := range p.Requires() {
				if staleArtifacts[key] {
					d.Run, d.Reason = true, ReasonUpstream
					break
				}
			}
		}
		if d.Run {
			for _, key := range p.Provides() {
				staleArtifacts[key] = true
			}
		}
		decisions = append(decisions, d)
		if opts.To != "" && p.Name() == opts.To {
			bounded = true
		}
	}
	return decisions, nil
}

// Run executes the pipeline. Each phase is evaluated just before it would
// run, so artifacts rewritten by an earlier phase are seen with their fresh
// fingerprints.
func (r *Runner) Run(ctx context.Context, ws *workspace.Workspace, m *manifest.Manifest, opts Options) (*Summary, error) {
	if err := r.checkBounds(opts); err != nil {
		return nil, err
	}
	m.BeginJob()
	if err := m.Save(); err != nil {
		return nil, err
	}
	summary := &Summary{RunID: m.Job.RunID}
	forced := false
	for _, p := range r.phases {
		if err := ctx.Err(); err != nil {
			return summary, services.Wrap(services.ErrTransient, p.Name(), "run", "pipeline interrupted", err)
		}
		if opts.From != "" && p.Name() == opts.From {
			forced = true
		}
		result, err := r.runPhase(ctx, ws, m, p, forced)
		summary.Results = append(summary.Results, result)
		if err != nil {
			return summary, err
		}
		if opts.To != "" && p.Name() == opts.To {
			break
		}
	}
	return summary, nil
}

func (r *Runner) runPhase(ctx context.Context, ws *workspace.Workspace, m *manifest.Manifest, p Phase, forced bool) (PhaseResult, error) {
	name := p.Name()
	ctx = services.WithPhase(ctx, name)
	logger := logging.WithContext(ctx, r.logger)
	decision, inputs, err := evaluate(ws, m, p, forced)
	if err != nil {
		wrapped := services.Wrap(services.ErrValidation, name, "evaluate", "cannot evaluate phase inputs", err)
		m.FailPhase(name, wrapped)
		_ = m.Save()
		return PhaseResult{Phase: name, Status: manifest.StatusFailed, Err: wrapped}, wrapped
	}
	if !decision.Run {
		logger.Debug("phase skipped",
			logging.String("reason", decision.Reason))
		return PhaseResult{Phase: name, Status: manifest.StatusSkipped, Reason: decision.Reason}, nil
	}

	m.BeginPhase(name, p.Version(), settingsFingerprint(p), inputs)
	if err := m.Save(); err != nil {
		return PhaseResult{Phase: name, Status: manifest.StatusFailed, Err: err}, err
	}
	logger.Info("phase started",
		logging.String(logging.FieldEventType, "phase_start"),
		logging.String("reason", decision.Reason))

	start := time.Now()
	runErr := p.Run(ctx, ws)
	elapsed := time.Since(start)
	if runErr == nil {
		var outputs map[string]string
		outputs, runErr = fingerprintOutputs(ws, p)
		if runErr != nil {
			runErr = services.Wrap(services.ErrValidation, name, "finalize", "phase did not produce declared outputs", runErr)
		} else {
			m.CompletePhase(name, outputs)
		}
	}
	if runErr != nil {
		m.FailPhase(name, runErr)
		_ = m.Save()
		logger.Error("phase failed",
			logging.String(logging.FieldEventType, "phase_failure"),
			logging.Duration("duration", elapsed),
			logging.Error(runErr))
		return PhaseResult{Phase: name, Status: manifest.StatusFailed, Reason: decision.Reason, Duration: elapsed, Err: runErr}, runErr
	}
	if err := m.Save(); err != nil {
		return PhaseResult{Phase: name, Status: manifest.StatusFailed, Err: err}, err
	}
	logger.Info("phase completed",
		logging.String(logging.FieldEventType, "phase_complete"),
		logging.Duration("duration", elapsed))
	return PhaseResult{Phase: name, Status: manifest.StatusSucceeded, Reason: decision.Reason, Duration: elapsed}, nil
}

// Bless re-baselines phases after manual artifact edits. With an empty phase
// name every phase whose outputs all exist is blessed; otherwise only the
// named phase. Current file contents become the recorded output
// fingerprints.
func (r *Runner) Bless(ws *workspace.Workspace, m *manifest.Manifest, phaseName string) ([]string, error) {
	var blessed []string
	for _, p := range r.phases {
		if phaseName != "" && p.Name() != phaseName {
			continue
		}
		outputs, err := fingerprintOutputs(ws, p)
		if err != nil {
			if phaseName != "" {
				return nil, services.Wrap(services.ErrValidation, p.Name(), "bless", "outputs incomplete", err)
			}
			continue
		}
		if m.Record(p.Name()) == nil {
			// Bless covers edits to prior runs; a phase that never ran
			// has nothing to baseline against.
			if phaseName != "" {
				return nil, services.Wrap(services.ErrValidation, p.Name(), "bless", "phase has never run", nil)
			}
			continue
		}
		if err := m.Bless(p.Name(), p.Version(), settingsFingerprint(p), outputs); err != nil {
			return nil, err
		}
		blessed = append(blessed, p.Name())
	}
	if phaseName != "" && len(blessed) == 0 {
		return nil, services.Wrap(services.ErrValidation, phaseName, "bless", "unknown phase", nil)
	}
	if len(blessed) > 0 {
		if err := m.Save(); err != nil {
			return nil, err
		}
	}
	return blessed, nil
}
