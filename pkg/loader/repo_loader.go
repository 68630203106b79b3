package loader

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

var codeExtensions = map[string]bool{
	".js":   true,
	".ts":   true,
	".py":   true,
	".java": true,
	".go":   true,
}

var skippedDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	".git":         true,
}

// RepoLoader clones a public GitHub repository and extracts its source files.
type RepoLoader struct {
	tempDir  string
	maxBytes int64
}

func NewRepoLoader(tempDir string, maxBytes int64) *RepoLoader {
	return &RepoLoader{tempDir: tempDir, maxBytes: maxBytes}
}

// Load shallow-clones the repository at url into a scratch directory, walks
// it for supported code files, and returns one document per file. The clone
// is always removed before returning.
func (l *RepoLoader) Load(ctx context.Context, url string) ([]*Document, error) {
	dir, err := os.MkdirTemp(l.tempDir, "repo-clone-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCloneFailed, err)
	}
	defer os.RemoveAll(dir)

	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", "--single-branch", url, dir)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCloneFailed, strings.TrimSpace(string(out)))
	}

	docs, err := l.collect(dir)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNoCodeFiles
	}
	return docs, nil
}

func (l *RepoLoader) collect(root string) ([]*Document, error) {
	var docs []*Document

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		if !codeExtensions[ext] {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() > l.maxBytes {
			return nil // oversized source files are skipped, not fatal
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		content := strings.TrimSpace(string(raw))
		if content == "" {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = d.Name()
		}

		docs = append(docs, &Document{
			Content:  content,
			Source:   rel,
			Metadata: map[string]string{"type": strings.TrimPrefix(ext, ".")},
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk cloned repository: %w", err)
	}

	return docs, nil
}
