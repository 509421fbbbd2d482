package voice

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"dubbin/internal/fileutil"
)

// SpeakerToRole maps recognized speaker labels to role names, keyed by
// episode. Entries are created empty when an episode is first processed and
// filled in by hand.
type SpeakerToRole struct {
	Episodes map[string]map[string]string `json:"episodes"`
}

// LoadSpeakerToRole reads the registry; a missing file is an empty
// registry.
func LoadSpeakerToRole(path string) (*SpeakerToRole, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &SpeakerToRole{Episodes: map[string]map[string]string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read speaker registry: %w", err)
	}
	var r SpeakerToRole
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse speaker registry %s: %w", path, err)
	}
	if r.Episodes == nil {
		r.Episodes = map[string]map[string]string{}
	}
	return &r, nil
}

// Save writes the registry atomically.
func (r *SpeakerToRole) Save(path string) error {
	return fileutil.WriteJSONAtomic(path, r)
}

// EnsureSpeakers guarantees an entry exists for every speaker seen in the
// episode, without touching assignments already made. Reports whether the
// registry changed.
func (r *SpeakerToRole) EnsureSpeakers(episode string, speakers []string) bool {
	if r.Episodes[episode] == nil {
		r.Episodes[episode] = map[string]string{}
	}
	changed := false
	for _, s := range speakers {
		if _, ok := r.Episodes[episode][s]; !ok {
			r.Episodes[episode][s] = ""
			changed = true
		}
	}
	return changed
}

// Role returns the role assigned to a speaker in an episode, or empty.
func (r *SpeakerToRole) Role(episode, speaker string) string {
	return r.Episodes[episode][speaker]
}

// RoleCast maps role names to synthesis voices, with per-gender default
// roles for speakers nobody has cast yet.
type RoleCast struct {
	Cast map[string]string `json:"cast"`
	// DefaultRoles maps gender (male, female, unknown) to a role name in
	// Cast.
	DefaultRoles map[string]string `json:"default_roles"`
}

// LoadRoleCast reads the cast registry; a missing file is an empty cast.
func LoadRoleCast(path string) (*RoleCast, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &RoleCast{Cast: map[string]string{}, DefaultRoles: map[string]string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read role cast: %w", err)
	}
	var c RoleCast
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse role cast %s: %w", path, err)
	}
	if c.Cast == nil {
		c.Cast = map[string]string{}
	}
	if c.DefaultRoles == nil {
		c.DefaultRoles = map[string]string{}
	}
	return &c, nil
}

// Save writes the cast atomically.
func (c *RoleCast) Save(path string) error {
	return fileutil.WriteJSONAtomic(path, c)
}
