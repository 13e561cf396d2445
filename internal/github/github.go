package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	gh "github.com/google/go-github/v75/github"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/joescharf/crev/internal/models"
	"github.com/joescharf/crev/internal/svcerr"
)

const (
	// DefaultTimeout bounds every single call to the GitHub API.
	DefaultTimeout = 30 * time.Second

	entryFile = "file"
	entryDir  = "dir"
)

// DefaultExtensions are the source file extensions fetched for review.
var DefaultExtensions = []string{".py", ".js", ".ts", ".java", ".cpp", ".cs", ".go", ".rb", ".php"}

// Config holds repository client settings.
type Config struct {
	Token      string
	BaseURL    string // API root, defaults to https://api.github.com/
	Timeout    time.Duration
	Extensions []string
	Ignore     []string // gitignore-style patterns matched against entry paths
}

// Client lists and fetches repository files through the GitHub contents API.
type Client struct {
	api        *gh.Client
	extensions map[string]bool
	ignore     *gitignore.GitIgnore
	progress   func(models.FileRecord)
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithProgress registers fn to be called after each file is fetched.
func WithProgress(fn func(models.FileRecord)) Option {
	return func(c *Client) { c.progress = fn }
}

// WithLogger sets the logger used for skipped entries.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client from cfg.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	api := gh.NewClient(&http.Client{Timeout: timeout})
	if cfg.Token != "" {
		api = api.WithAuthToken(cfg.Token)
	}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parse GitHub API URL: %w", err)
		}
		api.BaseURL = u
	}

	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	c := &Client{
		api:        api,
		extensions: make(map[string]bool, len(exts)),
		logger:     slog.Default(),
	}
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		c.extensions[e] = true
	}
	if len(cfg.Ignore) > 0 {
		c.ignore = gitignore.CompileIgnoreLines(cfg.Ignore...)
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// frame is one pending directory listing in the walk.
type frame struct {
	entries []*gh.RepositoryContent
	next    int
}

// FetchFiles returns every reviewable file in the repository at repoURL.
// Files appear in the order the contents API lists them, with directories
// expanded in place. Files or sub-directories the API refuses to serve are
// skipped; a transport failure aborts the walk.
func (c *Client) FetchFiles(ctx context.Context, repoURL string) ([]models.FileRecord, error) {
	ref, err := ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	root, resp, err := c.list(ctx, fmt.Sprintf("repos/%s/%s/contents", ref.Owner, ref.Name))
	if err != nil {
		return nil, rootError(ref, resp, err)
	}

	files := []models.FileRecord{}
	skipped := 0
	stack := []*frame{{entries: root}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.entries) {
			stack = stack[:len(stack)-1]
			continue
		}
		entry := top.entries[top.next]
		top.next++

		switch entry.GetType() {
		case entryFile:
			if !c.wanted(entry.GetPath(), entry.GetName()) {
				continue
			}
			content, ok, err := c.download(ctx, entry.GetDownloadURL())
			if err != nil {
				return nil, svcerr.Wrap(err, "Unable to reach GitHub API").With("path", entry.GetPath())
			}
			if !ok {
				skipped++
				c.logger.Debug("skipping unfetchable file", "repo", ref.FullName(), "path", entry.GetPath())
				continue
			}
			rec := models.FileRecord{Path: entry.GetPath(), Content: content, Size: entry.GetSize()}
			files = append(files, rec)
			if c.progress != nil {
				c.progress(rec)
			}

		case entryDir:
			if c.ignored(entry.GetPath(), true) {
				continue
			}
			sub, resp, err := c.list(ctx, entry.GetURL())
			if err != nil {
				if resp == nil {
					return nil, svcerr.Wrap(err, "Unable to reach GitHub API").With("path", entry.GetPath())
				}
				skipped++
				c.logger.Debug("skipping unlistable directory", "repo", ref.FullName(), "path", entry.GetPath(), "status", resp.StatusCode)
				continue
			}
			stack = append(stack, &frame{entries: sub})
		}
	}

	if skipped > 0 {
		c.logger.Warn("some repository entries could not be fetched", "repo", ref.FullName(), "skipped", skipped)
	}
	return files, nil
}

// rootError maps a failed top-level listing to a service error.
func rootError(ref RepositoryReference, resp *gh.Response, err error) error {
	if resp == nil {
		return svcerr.Wrap(err, "Unable to reach GitHub API").With("repo", ref.FullName())
	}
	switch code := resp.StatusCode; {
	case code == http.StatusNotFound:
		return svcerr.New("Repository not found").With("repo", ref.FullName())
	case code == http.StatusForbidden:
		return svcerr.New("Access denied. Check GitHub token permissions").With("repo", ref.FullName())
	case code < 200 || code > 299:
		msg := http.StatusText(code)
		var er *gh.ErrorResponse
		if errors.As(err, &er) && er.Message != "" {
			msg = er.Message
		}
		return svcerr.New("GitHub API error: %s", msg).With("repo", ref.FullName()).With("status", fmt.Sprint(code))
	default:
		return svcerr.Wrap(err, "Unexpected GitHub API response format").With("repo", ref.FullName())
	}
}

// list fetches one contents listing. A nil response means the request
// never got an answer.
func (c *Client) list(ctx context.Context, u string) ([]*gh.RepositoryContent, *gh.Response, error) {
	req, err := c.api.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, nil, err
	}
	var entries []*gh.RepositoryContent
	resp, err := c.api.Do(ctx, req, &entries)
	if err != nil {
		return nil, resp, err
	}
	return entries, resp, nil
}

// download returns the body at u. ok is false when the server answered
// with a non-success status.
func (c *Client) download(ctx context.Context, u string) (content string, ok bool, err error) {
	if u == "" {
		return "", false, nil
	}
	req, err := c.api.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return "", false, err
	}
	resp, err := c.api.BareDo(ctx, req)
	if err != nil {
		if resp != nil {
			return "", false, nil
		}
		return "", false, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, err
	}
	return string(body), true, nil
}

func (c *Client) wanted(p, name string) bool {
	if name == "" {
		name = path.Base(p)
	}
	if !c.extensions[strings.ToLower(path.Ext(name))] {
		return false
	}
	return !c.ignored(p, false)
}

func (c *Client) ignored(p string, dir bool) bool {
	if c.ignore == nil {
		return false
	}
	if c.ignore.MatchesPath(p) {
		return true
	}
	return dir && c.ignore.MatchesPath(p+"/")
}
