package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"

	"github.com/everstacklabs/librarian/internal/config"
)

// PublishRequest is one snapshot update to publish.
type PublishRequest struct {
	Branch string
	Title  string
	Body   string
	Files  []string
	Draft  bool
}

// Publisher delivers persisted snapshot files somewhere reviewable.
type Publisher interface {
	Publish(ctx context.Context, req PublishRequest) (int, error)
}

// GitHubPublisher commits the files on a new branch, pushes it and opens a
// pull request against the base branch.
type GitHubPublisher struct {
	gh       config.GitHubConfig
	repoPath string
	client   *github.Client
}

// NewGitHubPublisher authenticates with the configured token.
func NewGitHubPublisher(ctx context.Context, gh config.GitHubConfig, repoPath string) *GitHubPublisher {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: gh.Token})
	return newGitHubPublisher(gh, repoPath, oauth2.NewClient(ctx, ts))
}

func newGitHubPublisher(gh config.GitHubConfig, repoPath string, hc *http.Client) *GitHubPublisher {
	return &GitHubPublisher{gh: gh, repoPath: repoPath, client: github.NewClient(hc)}
}

func (p *GitHubPublisher) Publish(ctx context.Context, req PublishRequest) (int, error) {
	gitOps, err := OpenRepo(p.repoPath, p.gh.Token)
	if err != nil {
		return 0, err
	}

	if err := gitOps.CreateBranch(req.Branch); err != nil {
		return 0, fmt.Errorf("creating branch: %w", err)
	}
	if err := gitOps.Add(req.Files...); err != nil {
		return 0, fmt.Errorf("staging snapshot: %w", err)
	}
	if _, err := gitOps.Commit(req.Title); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	if err := gitOps.Push(req.Branch); err != nil {
		return 0, fmt.Errorf("pushing: %w", err)
	}

	return p.openPR(ctx, req)
}

func (p *GitHubPublisher) openPR(ctx context.Context, req PublishRequest) (int, error) {
	pr, _, err := p.client.PullRequests.Create(ctx, p.gh.Owner, p.gh.Repo, &github.NewPullRequest{
		Title: github.String(req.Title),
		Body:  github.String(req.Body),
		Head:  github.String(req.Branch),
		Base:  github.String(p.gh.BaseBranch),
		Draft: github.Bool(req.Draft),
	})
	if err != nil {
		return 0, fmt.Errorf("creating PR: %w", err)
	}

	slog.Info("PR created",
		"number", pr.GetNumber(),
		"draft", req.Draft,
		"url", pr.GetHTMLURL())

	return pr.GetNumber(), nil
}
