package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"mercator-hq/tripwire/pkg/trigger"
)

// GitSource loads policy definitions from a Git repository. It clones the
// repository to a local path and reads definitions from a subdirectory of
// the working tree; Pull refreshes the tree so the next load picks up
// newer commits.
type GitSource struct {
	url       string
	ref       string
	path      string
	localPath string
	timeout   time.Duration
	logger    *slog.Logger

	mu   sync.Mutex
	repo *gogit.Repository
}

// GitSourceConfig configures a Git policy source.
type GitSourceConfig struct {
	// URL is the repository URL.
	URL string

	// Ref is the branch to track (default: main).
	Ref string

	// Path is the directory inside the repository holding policy files
	// (default: repository root).
	Path string

	// LocalPath is where the repository is cloned (default: a directory
	// under the system temp dir).
	LocalPath string

	// Timeout bounds clone and pull operations (default: 30s).
	Timeout time.Duration
}

// NewGitSource creates a Git policy source.
func NewGitSource(cfg GitSourceConfig, logger *slog.Logger) (*GitSource, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("repository URL cannot be empty")
	}
	if cfg.Ref == "" {
		cfg.Ref = "main"
	}
	if cfg.LocalPath == "" {
		cfg.LocalPath = filepath.Join(os.TempDir(), "tripwire-policies")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &GitSource{
		url:       cfg.URL,
		ref:       cfg.Ref,
		path:      cfg.Path,
		localPath: cfg.LocalPath,
		timeout:   cfg.Timeout,
		logger:    logger.With("component", "policy_git"),
	}, nil
}

// Clone initializes the local checkout. If a repository already exists at
// the local path it is opened instead.
func (s *GitSource) Clone(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	gitDir := filepath.Join(s.localPath, ".git")
	if _, err := os.Stat(gitDir); err == nil {
		repo, err := gogit.PlainOpen(s.localPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repo: %w", err)
		}
		s.repo = repo
		return nil
	}

	if err := os.MkdirAll(s.localPath, 0755); err != nil {
		return fmt.Errorf("failed to create repository directory: %w", err)
	}

	cloneCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	repo, err := gogit.PlainCloneContext(cloneCtx, s.localPath, false, &gogit.CloneOptions{
		URL:           s.url,
		ReferenceName: plumbing.NewBranchReferenceName(s.ref),
		SingleBranch:  true,
	})
	if err != nil {
		return fmt.Errorf("failed to clone repository: %w", err)
	}

	s.repo = repo
	s.logger.Info("cloned policy repository",
		"url", s.url,
		"ref", s.ref,
		"local_path", s.localPath,
	)
	return nil
}

// Pull fetches the latest commits from the remote. It returns true when
// HEAD moved, meaning the policy files may have changed.
func (s *GitSource) Pull(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == nil {
		return false, fmt.Errorf("repository not initialized, call Clone() first")
	}

	ref, err := s.repo.Head()
	if err != nil {
		return false, fmt.Errorf("failed to get HEAD: %w", err)
	}
	before := ref.Hash()

	worktree, err := s.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree: %w", err)
	}

	pullCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err = worktree.PullContext(pullCtx, &gogit.PullOptions{RemoteName: "origin"})
	if err != nil && err != gogit.NoErrAlreadyUpToDate {
		return false, fmt.Errorf("failed to pull: %w", err)
	}

	after, err := s.repo.Head()
	if err != nil {
		return false, fmt.Errorf("failed to get HEAD after pull: %w", err)
	}

	changed := before != after.Hash()
	if changed {
		s.logger.Info("policy repository updated",
			"from", before.String(),
			"to", after.Hash().String(),
		)
	}
	return changed, nil
}

// HeadCommit returns the SHA of the current checkout.
func (s *GitSource) HeadCommit() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == nil {
		return "", fmt.Errorf("repository not initialized")
	}
	ref, err := s.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

// LoadPolicies reads policy definitions from the checked-out tree.
func (s *GitSource) LoadPolicies() ([]trigger.Policy, error) {
	s.mu.Lock()
	if s.repo == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("repository not initialized, call Clone() first")
	}
	root := filepath.Join(s.localPath, s.path)
	s.mu.Unlock()

	return NewFileSource(root, s.logger).LoadPolicies()
}
