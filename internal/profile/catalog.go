// Package profile locates rule files and the key map on disk and remembers
// which rule set was active last.
package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	RulesDirName   = "CFG"
	KeyMapFileName = "KeyMapping.cfg"
	RuleFileExt    = ".ini"
)

var ErrNoRuleFiles = errors.New("no rule files found")

// Origin says how a startup rule file was chosen.
type Origin string

const (
	OriginArgument Origin = "argument"
	OriginLast     Origin = "last-active"
	OriginFirst    Origin = "first-available"
)

type Selection struct {
	Path   string
	Origin Origin
}

// Catalog resolves rule files under <BaseDir>/CFG. WorkDir is searched first
// for the key map.
type Catalog struct {
	BaseDir string
	WorkDir string
}

// DefaultBaseDir is the directory holding the running executable.
func DefaultBaseDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locating executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

func NewCatalog(baseDir, workDir string) *Catalog {
	return &Catalog{BaseDir: baseDir, WorkDir: workDir}
}

func (c *Catalog) RulesDir() string {
	return filepath.Join(c.BaseDir, RulesDirName)
}

// ListRuleFiles returns the *.ini file names in the rules directory, sorted
// case-insensitively. A missing directory yields an empty list.
func (c *Catalog) ListRuleFiles() ([]string, error) {
	entries, err := os.ReadDir(c.RulesDir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading rules dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), RuleFileExt) {
			names = append(names, entry.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	return names, nil
}

// KeyMapCandidates lists where the key map is looked for, in order.
func (c *Catalog) KeyMapCandidates() []string {
	var candidates []string
	if c.WorkDir != "" {
		candidates = append(candidates, filepath.Join(c.WorkDir, KeyMapFileName))
	}
	return append(candidates,
		filepath.Join(c.RulesDir(), KeyMapFileName),
		filepath.Join(c.BaseDir, KeyMapFileName),
	)
}

// FindKeyMap returns the first existing key map candidate.
func (c *Catalog) FindKeyMap() (string, bool) {
	for _, path := range c.KeyMapCandidates() {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// ResolveRuleFile maps a name to a path. Bare names live in the rules
// directory and get the .ini extension when they have none; anything with a
// directory component is used as given.
func (c *Catalog) ResolveRuleFile(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("empty rule file name")
	}
	if filepath.IsAbs(name) || strings.ContainsAny(name, `/\`) {
		return filepath.Clean(name), nil
	}
	if filepath.Ext(name) == "" {
		name += RuleFileExt
	}
	return filepath.Join(c.RulesDir(), name), nil
}

// DisplayName is how a rule file is remembered and reported: the bare file
// name inside the rules directory, the full path elsewhere.
func (c *Catalog) DisplayName(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rulesDir, err := filepath.Abs(c.RulesDir())
	if err != nil {
		return abs
	}
	if filepath.Dir(abs) == rulesDir {
		return filepath.Base(abs)
	}
	return abs
}

// SelectStartup picks the rule file to load first: the explicit argument,
// then the last-active name if that file still exists, then the first rule
// file in the rules directory.
func (c *Catalog) SelectStartup(explicit, lastActive string) (Selection, error) {
	if strings.TrimSpace(explicit) != "" {
		path, err := c.ResolveRuleFile(explicit)
		if err != nil {
			return Selection{}, err
		}
		return Selection{Path: path, Origin: OriginArgument}, nil
	}

	if strings.TrimSpace(lastActive) != "" {
		if path, err := c.ResolveRuleFile(lastActive); err == nil && fileExists(path) {
			return Selection{Path: path, Origin: OriginLast}, nil
		}
	}

	names, err := c.ListRuleFiles()
	if err != nil {
		return Selection{}, err
	}
	if len(names) == 0 {
		return Selection{}, fmt.Errorf("%w in %s", ErrNoRuleFiles, c.RulesDir())
	}
	return Selection{Path: filepath.Join(c.RulesDir(), names[0]), Origin: OriginFirst}, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
