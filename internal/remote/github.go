package remote

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
)

// GitHubResolver asks the GitHub API for a repository's clone URL and embeds
// the token in it. It works against github.com and GitHub Enterprise.
type GitHubResolver struct {
	client *github.Client
	token  string
}

// NewGitHubResolver creates a GitHubResolver for hostname authenticated with token
func NewGitHubResolver(ctx context.Context, hostname, token string) (*GitHubResolver, error) {
	client, err := createGitHubClient(ctx, hostname, token)
	if err != nil {
		return nil, err
	}
	return &GitHubResolver{client: client, token: token}, nil
}

// NewGitHubResolverWithClient wraps an existing client
func NewGitHubResolverWithClient(client *github.Client, token string) *GitHubResolver {
	return &GitHubResolver{client: client, token: token}
}

// Resolve looks up the clone URL of repoName
func (r *GitHubResolver) Resolve(ctx context.Context, repoName string) (string, error) {
	if err := checkName(repoName); err != nil {
		return "", err
	}
	owner, name, ok := strings.Cut(repoName, "/")
	if !ok {
		return "", fmt.Errorf("repository name %q must be of the form owner/name", repoName)
	}

	repo, _, err := r.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return "", fmt.Errorf("failed to look up %s: %w", repoName, err)
	}
	cloneURL := repo.GetCloneURL()
	if cloneURL == "" {
		return "", fmt.Errorf("repository %s has no clone URL", repoName)
	}
	if r.token == "" {
		return cloneURL, nil
	}

	u, err := url.Parse(cloneURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse clone URL of %s: %w", repoName, err)
	}
	u.User = url.UserPassword("x-access-token", r.token)
	return u.String(), nil
}

func createGitHubClient(ctx context.Context, hostname, token string) (*github.Client, error) {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	client := github.NewClient(tc)

	// GitHub Enterprise serves the API under /api/v3/
	if hostname != "" && hostname != DefaultHost {
		baseURL, err := url.Parse(fmt.Sprintf("https://%s/api/v3/", hostname))
		if err != nil {
			return nil, fmt.Errorf("failed to parse base URL for hostname %s: %w", hostname, err)
		}
		uploadURL, err := url.Parse(fmt.Sprintf("https://%s/api/uploads/", hostname))
		if err != nil {
			return nil, fmt.Errorf("failed to parse upload URL for hostname %s: %w", hostname, err)
		}
		client.BaseURL = baseURL
		client.UploadURL = uploadURL
	}

	return client, nil
}
