package voice

import (
	"path/filepath"
	"testing"
)

func testRegistries() (*SpeakerToRole, *RoleCast) {
	roles := &SpeakerToRole{Episodes: map[string]map[string]string{
		"ep01": {"1": "hero", "2": ""},
	}}
	cast := &RoleCast{
		Cast: map[string]string{
			"hero":            "zh_male_hero",
			"generic_male":    "en_male_adam",
			"generic_female":  "en_female_sarah",
			"generic_neutral": "en_neutral_sky",
		},
		DefaultRoles: map[string]string{
			"male":    "generic_male",
			"female":  "generic_female",
			"unknown": "generic_neutral",
		},
	}
	return roles, cast
}

func TestResolveMapped(t *testing.T) {
	r := NewResolver(testRegistries())
	a, err := r.Resolve("ep01", "1", "male")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if a.Source != SourceMapped || a.RoleID != "hero" || a.VoiceID != "zh_male_hero" {
		t.Errorf("assignment = %+v", a)
	}
}

func TestResolveGenderFallback(t *testing.T) {
	r := NewResolver(testRegistries())
	a, err := r.Resolve("ep01", "2", "female")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if a.Source != SourceGenderFallback || a.VoiceID != "en_female_sarah" {
		t.Errorf("assignment = %+v", a)
	}
}

func TestResolveUnknownGenderUsesNeutral(t *testing.T) {
	r := NewResolver(testRegistries())
	a, err := r.Resolve("ep01", "3", "unknown")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if a.Source != SourceDefault || a.VoiceID != "en_neutral_sky" {
		t.Errorf("assignment = %+v", a)
	}
}

func TestResolveMappedRoleWithoutVoiceFails(t *testing.T) {
	roles, cast := testRegistries()
	roles.Episodes["ep01"]["1"] = "uncast_role"
	r := NewResolver(roles, cast)
	if _, err := r.Resolve("ep01", "1", "male"); err == nil {
		t.Error("expected error for role with no cast voice")
	}
}

func TestResolveNothingConfigured(t *testing.T) {
	r := NewResolver(
		&SpeakerToRole{Episodes: map[string]map[string]string{}},
		&RoleCast{Cast: map[string]string{}, DefaultRoles: map[string]string{}},
	)
	if _, err := r.Resolve("ep01", "1", "male"); err == nil {
		t.Error("expected resolution error")
	}
}

func TestResolveAllSnapshot(t *testing.T) {
	r := NewResolver(testRegistries())
	snap, err := r.ResolveAll("ep01", map[string]string{"1": "male", "2": "female"})
	if err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	if len(snap.Speakers) != 2 {
		t.Fatalf("speakers = %d", len(snap.Speakers))
	}
	if snap.Speakers["1"].Source != SourceMapped || snap.Speakers["2"].Source != SourceGenderFallback {
		t.Errorf("snapshot = %+v", snap.Speakers)
	}

	path := filepath.Join(t.TempDir(), "voice_assignment.json")
	if err := snap.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if loaded.Speakers["1"].VoiceID != "zh_male_hero" {
		t.Errorf("loaded = %+v", loaded.Speakers)
	}
}

func TestEnsureSpeakersPreservesAssignments(t *testing.T) {
	roles, _ := testRegistries()
	changed := roles.EnsureSpeakers("ep01", []string{"1", "2", "3"})
	if !changed {
		t.Error("expected registry change for new speaker")
	}
	if roles.Episodes["ep01"]["1"] != "hero" {
		t.Error("existing assignment overwritten")
	}
	if v, ok := roles.Episodes["ep01"]["3"]; !ok || v != "" {
		t.Errorf("new speaker entry = %q, %v", v, ok)
	}
	if roles.EnsureSpeakers("ep01", []string{"1", "2", "3"}) {
		t.Error("second call should be a no-op")
	}
}

func TestRegistryRoundTrip(t *testing.T) {
	roles, cast := testRegistries()
	dir := t.TempDir()

	rolesPath := filepath.Join(dir, "speaker_to_role.json")
	if err := roles.Save(rolesPath); err != nil {
		t.Fatal(err)
	}
	loadedRoles, err := LoadSpeakerToRole(rolesPath)
	if err != nil {
		t.Fatalf("LoadSpeakerToRole: %v", err)
	}
	if loadedRoles.Role("ep01", "1") != "hero" {
		t.Errorf("roles = %+v", loadedRoles.Episodes)
	}

	castPath := filepath.Join(dir, "role_cast.json")
	if err := cast.Save(castPath); err != nil {
		t.Fatal(err)
	}
	loadedCast, err := LoadRoleCast(castPath)
	if err != nil {
		t.Fatalf("LoadRoleCast: %v", err)
	}
	if loadedCast.Cast["hero"] != "zh_male_hero" {
		t.Errorf("cast = %+v", loadedCast.Cast)
	}
}

func TestLoadMissingRegistriesAreEmpty(t *testing.T) {
	dir := t.TempDir()
	roles, err := LoadSpeakerToRole(filepath.Join(dir, "none.json"))
	if err != nil || len(roles.Episodes) != 0 {
		t.Errorf("roles = %+v, err = %v", roles, err)
	}
	cast, err := LoadRoleCast(filepath.Join(dir, "none.json"))
	if err != nil || len(cast.Cast) != 0 {
		t.Errorf("cast = %+v, err = %v", cast, err)
	}
}
