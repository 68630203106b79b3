package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	gh "github.com/google/go-github/v81/github"
)

var (
	ErrInvalidRepoURL  = errors.New("invalid github repository url")
	ErrRepoNotFound    = errors.New("github repository not found")
	ErrRepoUnreachable = errors.New("github repository check failed")
)

var repoURLPattern = regexp.MustCompile(`^(https?://)?(www\.)?github\.com/[\w-]+/[\w.-]+/?$`)

// Repo identifies a GitHub repository.
type Repo struct {
	Owner string
	Name  string
}

// CloneURL returns the https clone endpoint for the repository.
func (r Repo) CloneURL() string {
	return fmt.Sprintf("https://github.com/%s/%s.git", r.Owner, r.Name)
}

func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// ParseRepoURL validates a repository URL and extracts owner and name.
func ParseRepoURL(url string) (Repo, error) {
	trimmed := strings.TrimSpace(url)
	if !repoURLPattern.MatchString(trimmed) {
		return Repo{}, fmt.Errorf("%w: %s", ErrInvalidRepoURL, url)
	}

	trimmed = strings.TrimSuffix(trimmed, "/")
	trimmed = strings.TrimSuffix(trimmed, ".git")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 {
		return Repo{}, fmt.Errorf("%w: %s", ErrInvalidRepoURL, url)
	}

	return Repo{
		Owner: parts[len(parts)-2],
		Name:  parts[len(parts)-1],
	}, nil
}

// Client answers questions about repositories through the GitHub API.
type Client struct {
	api *gh.Client
}

// NewClient builds a GitHub API client. The token is optional; without one
// requests run against the unauthenticated rate limit, which is enough for
// existence checks on public repositories.
func NewClient(token string) *Client {
	client := gh.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return &Client{api: client}
}

// Exists reports whether the repository is visible through the API.
func (c *Client) Exists(ctx context.Context, repo Repo) (bool, error) {
	_, resp, err := c.api.Repositories.Get(ctx, repo.Owner, repo.Name)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRepoUnreachable, err)
	}
	return true, nil
}
