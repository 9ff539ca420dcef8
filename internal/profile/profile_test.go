package profile

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestListRuleFiles(t *testing.T) {
	base := t.TempDir()
	catalog := NewCatalog(base, "")

	names, err := catalog.ListRuleFiles()
	if err != nil || len(names) != 0 {
		t.Fatalf("missing CFG dir: names=%v err=%v", names, err)
	}

	writeFile(t, filepath.Join(base, RulesDirName, "b.ini"), "")
	writeFile(t, filepath.Join(base, RulesDirName, "A.INI"), "")
	writeFile(t, filepath.Join(base, RulesDirName, "notes.txt"), "")
	writeFile(t, filepath.Join(base, RulesDirName, KeyMapFileName), "")
	if err := os.Mkdir(filepath.Join(base, RulesDirName, "dir.ini"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	names, err = catalog.ListRuleFiles()
	if err != nil {
		t.Fatalf("ListRuleFiles error: %v", err)
	}
	if want := []string{"A.INI", "b.ini"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("ListRuleFiles = %v, want %v", names, want)
	}
}

func TestFindKeyMapOrder(t *testing.T) {
	base := t.TempDir()
	work := t.TempDir()
	catalog := NewCatalog(base, work)

	if _, ok := catalog.FindKeyMap(); ok {
		t.Fatalf("expected no key map")
	}

	inBase := filepath.Join(base, KeyMapFileName)
	writeFile(t, inBase, "")
	if path, ok := catalog.FindKeyMap(); !ok || path != inBase {
		t.Fatalf("FindKeyMap = %q, %v; want %q", path, ok, inBase)
	}

	inCFG := filepath.Join(base, RulesDirName, KeyMapFileName)
	writeFile(t, inCFG, "")
	if path, _ := catalog.FindKeyMap(); path != inCFG {
		t.Fatalf("CFG key map should win over base dir, got %q", path)
	}

	inWork := filepath.Join(work, KeyMapFileName)
	writeFile(t, inWork, "")
	if path, _ := catalog.FindKeyMap(); path != inWork {
		t.Fatalf("working dir key map should win, got %q", path)
	}
}

func TestResolveRuleFile(t *testing.T) {
	base := t.TempDir()
	catalog := NewCatalog(base, "")
	rules := filepath.Join(base, RulesDirName)

	tests := map[string]string{
		"pvp":         filepath.Join(rules, "pvp.ini"),
		" pvp.ini ":   filepath.Join(rules, "pvp.ini"),
		"macros.conf": filepath.Join(rules, "macros.conf"),
		"sub/x.ini":   filepath.Clean("sub/x.ini"),
	}
	for in, want := range tests {
		got, err := catalog.ResolveRuleFile(in)
		if err != nil {
			t.Fatalf("ResolveRuleFile(%q) error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ResolveRuleFile(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := catalog.ResolveRuleFile("  "); err == nil {
		t.Fatalf("expected error for empty name")
	}

	if got := catalog.DisplayName(filepath.Join(rules, "pvp.ini")); got != "pvp.ini" {
		t.Fatalf("DisplayName inside CFG = %q", got)
	}
	outside := filepath.Join(base, "elsewhere.ini")
	if got := catalog.DisplayName(outside); got != outside {
		t.Fatalf("DisplayName outside CFG = %q", got)
	}
}

func TestSelectStartup(t *testing.T) {
	base := t.TempDir()
	catalog := NewCatalog(base, "")
	rules := filepath.Join(base, RulesDirName)

	if _, err := catalog.SelectStartup("", ""); !errors.Is(err, ErrNoRuleFiles) {
		t.Fatalf("expected ErrNoRuleFiles, got %v", err)
	}

	writeFile(t, filepath.Join(rules, "alpha.ini"), "")
	writeFile(t, filepath.Join(rules, "beta.ini"), "")

	sel, err := catalog.SelectStartup("", "")
	if err != nil || sel.Origin != OriginFirst || sel.Path != filepath.Join(rules, "alpha.ini") {
		t.Fatalf("first available: %+v, %v", sel, err)
	}

	sel, err = catalog.SelectStartup("", "beta.ini")
	if err != nil || sel.Origin != OriginLast || sel.Path != filepath.Join(rules, "beta.ini") {
		t.Fatalf("last active: %+v, %v", sel, err)
	}

	sel, err = catalog.SelectStartup("", "deleted.ini")
	if err != nil || sel.Origin != OriginFirst {
		t.Fatalf("stale pointer should be ignored: %+v, %v", sel, err)
	}

	sel, err = catalog.SelectStartup("custom", "beta.ini")
	if err != nil || sel.Origin != OriginArgument || sel.Path != filepath.Join(rules, "custom.ini") {
		t.Fatalf("explicit argument: %+v, %v", sel, err)
	}
}

func TestStateRoundTripPreservesUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	state := NewState(path)

	name, err := state.LastRuleSet()
	if err != nil || name != "" {
		t.Fatalf("fresh state: %q, %v", name, err)
	}

	writeFile(t, path, `{"theme":"dark","last_rule_set":"old.ini"}`)
	if name, _ := state.LastRuleSet(); name != "old.ini" {
		t.Fatalf("LastRuleSet = %q, want old.ini", name)
	}

	if err := state.SetLastRuleSet("pvp.ini"); err != nil {
		t.Fatalf("SetLastRuleSet error: %v", err)
	}
	if name, _ := state.LastRuleSet(); name != "pvp.ini" {
		t.Fatalf("LastRuleSet after set = %q", name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	if !strings.Contains(string(data), `"theme":"dark"`) || !strings.Contains(string(data), `"updated_at"`) {
		t.Fatalf("unexpected state document %s", data)
	}
	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestStateRecoversFromCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	writeFile(t, path, "{not json")
	state := NewState(path)

	if _, err := state.LastRuleSet(); err == nil {
		t.Fatalf("expected parse error")
	}
	if err := state.SetLastRuleSet("a.ini"); err != nil {
		t.Fatalf("SetLastRuleSet error: %v", err)
	}
	if name, err := state.LastRuleSet(); err != nil || name != "a.ini" {
		t.Fatalf("after rewrite: %q, %v", name, err)
	}
}
