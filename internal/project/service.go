// Package project provides project management functionality.
package project

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/coreassist/coreassist/pkg/types"
)

// Service answers the HTTP-facing "what project is this" question for a
// directory. Unlike FromDirectory it never shells out to git: the API only
// needs a stable per-path identifier and whether a .git entry is present,
// not the repository's true history-derived identity, so it stays cheap
// enough to call on every request.
type Service struct {
	workDir string
}

// NewService creates a project service rooted at workDir.
func NewService(workDir string) *Service {
	return &Service{workDir: workDir}
}

// List returns every project visible from the service's working directory.
// A single coreassist instance only ever sees the one project it was
// started in, so this always returns a slice of one.
func (s *Service) List(ctx context.Context) ([]types.Project, error) {
	current, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	return []types.Project{*current}, nil
}

// ListForDir is List for an explicit directory rather than the service's
// default working directory.
func (s *Service) ListForDir(ctx context.Context, dir string) ([]types.Project, error) {
	current, err := s.CurrentForDir(ctx, dir)
	if err != nil {
		return nil, err
	}
	return []types.Project{*current}, nil
}

// Current returns the project rooted at the service's working directory.
func (s *Service) Current(ctx context.Context) (*types.Project, error) {
	return s.CurrentForDir(ctx, s.workDir)
}

// CurrentForDir resolves dir to a types.Project: ID is HashDirectory's
// path-derived hash (reused rather than recomputed here, so the HTTP
// surface and the session store's fallback ID agree on one directory's
// identity), VCS is "git" when dir has a .git entry, and Time.Created
// falls back to now() if the directory can't be stat'd.
func (s *Service) CurrentForDir(ctx context.Context, dir string) (*types.Project, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	var vcs string
	if _, err := os.Stat(filepath.Join(absPath, ".git")); err == nil {
		vcs = "git"
	}

	created := time.Now().UnixMilli()
	if stat, err := os.Stat(absPath); err == nil {
		created = stat.ModTime().UnixMilli()
	}

	return &types.Project{
		ID:       HashDirectory(absPath),
		Worktree: absPath,
		VCS:      vcs,
		Time: types.ProjectTime{
			Created: created,
		},
	}, nil
}
