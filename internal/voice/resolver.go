package voice

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"dubbin/internal/fileutil"
)

// Assignment sources, recorded so later runs can audit which branch
// resolution took.
const (
	SourceMapped         = "mapped"
	SourceGenderFallback = "gender_fallback"
	SourceDefault        = "default"
)

// Assignment is the resolved voice for one speaker.
type Assignment struct {
	RoleID  string `json:"role_id"`
	VoiceID string `json:"voice_id"`
	Source  string `json:"source"`
}

// Snapshot is the persisted resolution result for an episode.
type Snapshot struct {
	Episode  string                `json:"episode"`
	Speakers map[string]Assignment `json:"speakers"`
}

// Save writes the snapshot atomically.
func (s *Snapshot) Save(path string) error {
	return fileutil.WriteJSONAtomic(path, s)
}

// LoadSnapshot reads a persisted voice assignment snapshot.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read voice assignment: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse voice assignment %s: %w", path, err)
	}
	return &s, nil
}

// Resolver performs the two-level speaker to voice lookup.
type Resolver struct {
	roles *SpeakerToRole
	cast  *RoleCast
}

// NewResolver builds a resolver over the show registries.
func NewResolver(roles *SpeakerToRole, cast *RoleCast) *Resolver {
	return &Resolver{roles: roles, cast: cast}
}

// Resolve finds the voice for one speaker: the explicit role mapping first,
// then the gender's default role, then the unknown-gender default. A
// speaker no branch can resolve is an error the operator must fix by
// editing the registries.
func (r *Resolver) Resolve(episode, speaker, gender string) (Assignment, error) {
	if role := r.roles.Role(episode, speaker); role != "" {
		if voice, ok := r.cast.Cast[role]; ok {
			return Assignment{RoleID: role, VoiceID: voice, Source: SourceMapped}, nil
		}
		return Assignment{}, fmt.Errorf("speaker %s maps to role %q with no cast voice", speaker, role)
	}
	if gender == "male" || gender == "female" {
		if role, ok := r.cast.DefaultRoles[gender]; ok {
			if voice, ok := r.cast.Cast[role]; ok {
				return Assignment{RoleID: role, VoiceID: voice, Source: SourceGenderFallback}, nil
			}
		}
	}
	if role, ok := r.cast.DefaultRoles["unknown"]; ok {
		if voice, ok := r.cast.Cast[role]; ok {
			return Assignment{RoleID: role, VoiceID: voice, Source: SourceDefault}, nil
		}
	}
	return Assignment{}, fmt.Errorf("no voice resolves for speaker %s (gender %s); assign a role or set default_roles", speaker, gender)
}

// ResolveAll produces the assignment snapshot for every speaker in the
// episode.
func (r *Resolver) ResolveAll(episode string, genders map[string]string) (*Snapshot, error) {
	snap := &Snapshot{Episode: episode, Speakers: map[string]Assignment{}}
	speakers := make([]string, 0, len(genders))
	for s := range genders {
		speakers = append(speakers, s)
	}
	sort.Strings(speakers)
	for _, s := range speakers {
		a, err := r.Resolve(episode, s, genders[s])
		if err != nil {
			return nil, err
		}
		snap.Speakers[s] = a
	}
	return snap, nil
}
