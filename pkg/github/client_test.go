package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{
			name:      "full https url",
			url:       "https://github.com/gofiber/fiber",
			wantOwner: "gofiber",
			wantRepo:  "fiber",
		},
		{
			name:      "no scheme",
			url:       "github.com/nats-io/nats.go",
			wantOwner: "nats-io",
			wantRepo:  "nats.go",
		},
		{
			name:      "www prefix and trailing slash",
			url:       "https://www.github.com/google/uuid/",
			wantOwner: "google",
			wantRepo:  "uuid",
		},
		{
			name:    "not a github url",
			url:     "https://gitlab.com/foo/bar",
			wantErr: true,
		},
		{
			name:    "missing repo segment",
			url:     "https://github.com/justowner",
			wantErr: true,
		},
		{
			name:    "extra path segments",
			url:     "https://github.com/foo/bar/tree/main",
			wantErr: true,
		},
		{
			name:    "empty",
			url:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, err := ParseRepoURL(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRepoURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOwner, repo.Owner)
			assert.Equal(t, tt.wantRepo, repo.Name)
		})
	}
}

func TestRepoCloneURL(t *testing.T) {
	repo := Repo{Owner: "gofiber", Name: "fiber"}
	assert.Equal(t, "https://github.com/gofiber/fiber.git", repo.CloneURL())
	assert.Equal(t, "gofiber/fiber", repo.String())
}
