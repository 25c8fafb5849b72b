// Package project identifies the project a working directory belongs to, so
// sessions rooted in the same git repository share one project ID even when
// opened from different subdirectories or worktrees.
package project

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// noVCSID is the project ID assigned to directories with no detectable VCS
// root — every such directory collapses onto one shared project.
const noVCSID = "global"

// idCacheFile is where a resolved git project ID is persisted underneath a
// repository's git dir, so repeat lookups skip the rev-list walk.
const idCacheFile = "coreassist"

// Info contains project metadata.
type Info struct {
	ID       string  `json:"id"`
	Worktree string  `json:"worktree"`
	VCSDir   *string `json:"vcsDir,omitempty"`
	VCS      *string `json:"vcs,omitempty"`
}

// registry memoizes FromDirectory results per absolute directory, so
// repeated lookups for the same working directory (one per tool call, say)
// don't re-shell out to git each time.
var (
	registryMu sync.RWMutex
	registry   = make(map[string]*Info)
)

// FromDirectory resolves the project a working directory belongs to:
//  1. walk up from directory looking for a .git entry
//  2. resolve the worktree root and real git dir (handles linked worktrees)
//  3. reuse the ID cached at <gitdir>/coreassist if one exists
//  4. otherwise derive the ID from the repository's root commit and cache it
//  5. directories outside any git repository all resolve to noVCSID
func FromDirectory(directory string) (*Info, error) {
	directory, err := filepath.Abs(directory)
	if err != nil {
		return nil, err
	}

	if info, ok := lookupCached(directory); ok {
		return info, nil
	}

	gitDir := findGitDir(directory)
	if gitDir == "" {
		return rememberInfo(directory, &Info{ID: noVCSID, Worktree: "/"}), nil
	}

	worktree := resolveWorktree(gitDir)
	gitDir = resolveGitDir(worktree, gitDir)

	cacheFile := filepath.Join(gitDir, idCacheFile)
	if id, ok := readCachedID(cacheFile); ok {
		return rememberInfo(directory, gitInfo(id, worktree, gitDir)), nil
	}

	id := getGitProjectID(worktree)
	if id == "" {
		id = noVCSID
	} else {
		_ = os.WriteFile(cacheFile, []byte(id), 0644)
	}

	return rememberInfo(directory, gitInfo(id, worktree, gitDir)), nil
}

func gitInfo(id, worktree, gitDir string) *Info {
	vcs := "git"
	return &Info{ID: id, Worktree: worktree, VCSDir: &gitDir, VCS: &vcs}
}

// resolveWorktree asks git for the repository's top-level directory;
// gitDir's parent is used as a fallback if git isn't on PATH.
func resolveWorktree(gitDir string) string {
	worktree := filepath.Dir(gitDir)
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = worktree
	if output, err := cmd.Output(); err == nil {
		worktree = strings.TrimSpace(string(output))
	}
	return worktree
}

// resolveGitDir asks git for the real git dir from worktree, which differs
// from fallback when worktree is a linked worktree rather than the main
// checkout.
func resolveGitDir(worktree, fallback string) string {
	cmd := exec.Command("git", "rev-parse", "--git-dir")
	cmd.Dir = worktree
	output, err := cmd.Output()
	if err != nil {
		return fallback
	}
	resolved := strings.TrimSpace(string(output))
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(worktree, resolved)
	}
	return resolved
}

func readCachedID(cacheFile string) (string, bool) {
	data, err := os.ReadFile(cacheFile)
	if err != nil || len(data) == 0 {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

// GetProjectID returns just the project ID for a directory.
func GetProjectID(directory string) (string, error) {
	info, err := FromDirectory(directory)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

// HashDirectory derives a project ID straight from the directory path
// instead of git history, for the rare non-git working directory that still
// needs a stable per-path (rather than globally shared) identity.
func HashDirectory(directory string) string {
	h := sha256.New()
	h.Write([]byte(directory))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// findGitDir walks up from start looking for a .git entry, following the
// "gitdir: <path>" indirection a linked worktree or submodule leaves behind
// instead of a real directory.
func findGitDir(start string) string {
	current := start
	for {
		if gitDir := readGitEntry(current); gitDir != "" {
			return gitDir
		}

		parent := filepath.Dir(current)
		if parent == current {
			return ""
		}
		current = parent
	}
}

func readGitEntry(dir string) string {
	gitPath := filepath.Join(dir, ".git")
	info, err := os.Stat(gitPath)
	if err != nil {
		return ""
	}
	if info.IsDir() {
		return gitPath
	}

	content, err := os.ReadFile(gitPath)
	if err != nil {
		return ""
	}
	line := strings.TrimSpace(string(content))
	if !strings.HasPrefix(line, "gitdir: ") {
		return ""
	}
	gitdir := strings.TrimPrefix(line, "gitdir: ")
	if !filepath.IsAbs(gitdir) {
		gitdir = filepath.Join(dir, gitdir)
	}
	return gitdir
}

// getGitProjectID derives a stable project ID from a repository's root
// commit(s) — the SHA of the first commit never changes even as history is
// rewritten downstream, unlike HEAD or a branch name. Repos with more than
// one root (e.g. a history merged from an unrelated tree) sort their root
// SHAs and take the first, so the choice is deterministic across machines.
func getGitProjectID(worktree string) string {
	cmd := exec.Command("git", "rev-list", "--max-parents=0", "--all")
	cmd.Dir = worktree
	output, err := cmd.Output()
	if err != nil {
		return ""
	}

	var roots []string
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			roots = append(roots, line)
		}
	}
	if len(roots) == 0 {
		return ""
	}

	sort.Strings(roots)
	return roots[0]
}

// lookupCached returns a previously resolved Info for directory, if any.
func lookupCached(directory string) (*Info, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	info, ok := registry[directory]
	return info, ok
}

// rememberInfo stores info under directory and returns it, so callers can
// resolve-and-cache in one expression.
func rememberInfo(directory string, info *Info) *Info {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[directory] = info
	return info
}

// ClearCache drops every memoized directory->project mapping. Tests use
// this between cases that reuse the same temp directory path; long-running
// processes have no other reason to call it since a directory's project
// identity never changes without the directory itself changing.
func ClearCache() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]*Info)
}
