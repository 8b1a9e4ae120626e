// Package gitsource keeps local checkouts of git repositories that hold
// card notes.
package gitsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

// Syncer clones or fast-forwards repositories below BaseDir.
type Syncer struct {
	BaseDir  string
	Progress io.Writer // may be nil
	Logger   *slog.Logger
}

func (s *Syncer) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Checkout makes sure an up-to-date copy of repoURL exists below BaseDir
// and returns its path.
func (s *Syncer) Checkout(ctx context.Context, repoURL string) (string, error) {
	localPath, err := LocalPath(s.BaseDir, repoURL)
	if err != nil {
		return "", err
	}
	if err := s.Sync(ctx, repoURL, localPath); err != nil {
		return "", err
	}
	return localPath, nil
}

// Sync clones repoURL into localPath if nothing is there yet and pulls
// otherwise.
func (s *Syncer) Sync(ctx context.Context, repoURL, localPath string) error {
	log := s.logger().With("url", repoURL, "path", localPath)

	_, err := os.Stat(localPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Info("cloning repository")
		if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(localPath), err)
		}
		_, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{
			URL:      repoURL,
			Progress: s.Progress,
		})
		if err != nil {
			return fmt.Errorf("failed to clone repo %s: %w", repoURL, err)
		}
		log.Info("clone complete")

	case err == nil:
		log.Info("pulling repository")
		repo, err := git.PlainOpen(localPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
		}
		worktree, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("failed to get worktree for repo at %s: %w", localPath, err)
		}
		err = worktree.PullContext(ctx, &git.PullOptions{
			RemoteName: "origin",
			Progress:   s.Progress,
		})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
		}
		log.Info("pull complete")

	default:
		return fmt.Errorf("error checking path %s: %w", localPath, err)
	}
	return nil
}

// IsRemote reports whether source looks like a git URL rather than a
// local path: an http(s), ssh or git URL, or the scp-like user@host:path
// form.
func IsRemote(source string) bool {
	if u, err := url.Parse(source); err == nil {
		switch u.Scheme {
		case "http", "https", "ssh", "git":
			return u.Host != ""
		}
	}
	return scpLike(source) != nil
}

type scpURL struct {
	host, path string
}

func scpLike(s string) *scpURL {
	at := strings.Index(s, "@")
	colon := strings.Index(s, ":")
	if at <= 0 || colon < at || strings.Contains(s[:colon], "/") {
		return nil
	}
	return &scpURL{host: s[at+1 : colon], path: s[colon+1:]}
}

// LocalPath maps a repository URL to a directory below baseDir named after
// its host and path, without the .git suffix.
func LocalPath(baseDir, repoURL string) (string, error) {
	if u, err := url.Parse(repoURL); err == nil && u.Host != "" {
		switch u.Scheme {
		case "http", "https", "ssh", "git":
			return join(baseDir, u.Hostname(), u.Path)
		}
	}
	if scp := scpLike(repoURL); scp != nil && scp.host != "" {
		return join(baseDir, scp.host, scp.path)
	}
	return "", fmt.Errorf("could not parse git URL: %s", repoURL)
}

func join(baseDir, host, repoPath string) (string, error) {
	repoPath = strings.Trim(strings.TrimSuffix(repoPath, ".git"), "/")
	if repoPath == "" || strings.Contains(repoPath, "..") {
		return "", fmt.Errorf("could not derive a checkout path for %s/%s", host, repoPath)
	}
	return filepath.Join(baseDir, host, filepath.FromSlash(repoPath)), nil
}
