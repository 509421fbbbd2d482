package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"dubbin/internal/fileutil"
)

// SchemaVersion guards against reading manifests written by an incompatible
// layout.
const SchemaVersion = 1

// Status values for a phase record.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// PhaseRecord captures one phase's last run: what it saw, what it produced,
// and how it ended.
type PhaseRecord struct {
	Status             string            `json:"status"`
	Version            int               `json:"version"`
	ConfigFingerprint  string            `json:"config_fingerprint,omitempty"`
	InputFingerprints  map[string]string `json:"input_fingerprints,omitempty"`
	OutputFingerprints map[string]string `json:"output_fingerprints,omitempty"`
	StartedAt          time.Time         `json:"started_at,omitempty"`
	FinishedAt         time.Time         `json:"finished_at,omitempty"`
	Error              string            `json:"error,omitempty"`
}

// Job identifies the most recent pipeline invocation over this workspace.
type Job struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Manifest is the single source of truth for phase freshness in an episode
// workspace.
type Manifest struct {
	Schema  int                     `json:"schema"`
	Episode string                  `json:"episode"`
	Video   string                  `json:"video,omitempty"`
	Job     Job                     `json:"job"`
	Phases  map[string]*PhaseRecord `json:"phases"`

	path string
	now  func() time.Time
}

// New creates an empty manifest for an episode.
func New(path, episode string) *Manifest {
	return &Manifest{
		Schema:  SchemaVersion,
		Episode: episode,
		Phases:  map[string]*PhaseRecord{},
		path:    path,
		now:     time.Now,
	}
}

// Load reads the manifest at path. A missing file yields a fresh manifest; a
// corrupt or incompatible one is an error rather than a silent reset.
func Load(path, episode string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(path, episode), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.Schema != SchemaVersion {
		return nil, fmt.Errorf("manifest %s has schema %d, want %d", path, m.Schema, SchemaVersion)
	}
	if m.Phases == nil {
		m.Phases = map[string]*PhaseRecord{}
	}
	m.path = path
	m.now = time.Now
	return &m, nil
}

// Save writes the manifest atomically so a crash never leaves a torn file.
func (m *Manifest) Save() error {
	m.Job.UpdatedAt = m.now().UTC()
	if err := fileutil.WriteJSONAtomic(m.path, m); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}
	return nil
}

// BeginJob stamps a fresh run identifier. Called once per pipeline
// invocation.
func (m *Manifest) BeginJob() {
	m.Job.RunID = uuid.NewString()
	m.Job.StartedAt = m.now().UTC()
}

// Record returns the stored record for a phase, or nil when the phase has
// never run.
func (m *Manifest) Record(phase string) *PhaseRecord {
	return m.Phases[phase]
}

// BeginPhase marks a phase as running and records what it is about to
// consume. Previous output fingerprints are dropped so an interrupted run is
// never mistaken for a completed one.
func (m *Manifest) BeginPhase(phase string, version int, configFP string, inputs map[string]string) *PhaseRecord {
	rec := &PhaseRecord{
		Status:            StatusRunning,
		Version:           version,
		ConfigFingerprint: configFP,
		InputFingerprints: inputs,
		StartedAt:         m.now().UTC(),
	}
	m.Phases[phase] = rec
	return rec
}

// CompletePhase marks the phase succeeded with the fingerprints of what it
// produced.
func (m *Manifest) CompletePhase(phase string, outputs map[string]string) {
	rec := m.Phases[phase]
	if rec == nil {
		return
	}
	rec.Status = StatusSucceeded
	rec.OutputFingerprints = outputs
	rec.FinishedAt = m.now().UTC()
	rec.Error = ""
}

// FailPhase marks the phase failed with a summary of the cause.
func (m *Manifest) FailPhase(phase string, cause error) {
	rec := m.Phases[phase]
	if rec == nil {
		rec = &PhaseRecord{Status: StatusFailed, StartedAt: m.now().UTC()}
		m.Phases[phase] = rec
	}
	rec.Status = StatusFailed
	rec.FinishedAt = m.now().UTC()
	if cause != nil {
		rec.Error = cause.Error()
	}
}

// Bless overwrites a phase's baseline after a manual artifact edit: the
// given output fingerprints become the new expectation, the status becomes
// succeeded, and any stale error is cleared. Version and config fingerprint
// are re-stamped so the next plan does not immediately invalidate the edit.
func (m *Manifest) Bless(phase string, version int, configFP string, outputs map[string]string) error {
	rec := m.Phases[phase]
	if rec == nil {
		return fmt.Errorf("phase %s has no record to bless", phase)
	}
	rec.Status = StatusSucceeded
	rec.Version = version
	rec.ConfigFingerprint = configFP
	rec.OutputFingerprints = outputs
	rec.FinishedAt = m.now().UTC()
	rec.Error = ""
	return nil
}
