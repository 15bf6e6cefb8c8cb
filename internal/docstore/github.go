package docstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.github.com"

// GitHub implements Client against the GitHub Contents API.
type GitHub struct {
	owner   string
	repo    string
	branch  string
	token   string
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

// Option configures a GitHub client.
type Option func(*GitHub)

// WithBaseURL points the client at a different API host. Used by tests.
func WithBaseURL(u string) Option {
	return func(g *GitHub) { g.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *GitHub) { g.client = c }
}

// WithLogger sets the logger. Nil discards.
func WithLogger(l *slog.Logger) Option {
	return func(g *GitHub) { g.log = l }
}

// NewGitHub creates a Contents API client for owner/repo on branch.
func NewGitHub(owner, repo, branch, token string, opts ...Option) *GitHub {
	g := &GitHub{
		owner:   owner,
		repo:    repo,
		branch:  branch,
		token:   token,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = slog.New(slog.DiscardHandler)
	}
	return g
}

// contentResponse is the subset of the Contents API GET payload we use.
type contentResponse struct {
	Content string `json:"content"`
	SHA     string `json:"sha"`
}

// putRequest is the Contents API PUT payload. SHA is omitted on create.
type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

func (g *GitHub) contentsURL(path string) string {
	// Escape per segment; the path separator itself must survive.
	segs := strings.Split(path, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", g.baseURL, g.owner, g.repo, strings.Join(segs, "/"))
}

// Read fetches and decodes the document at path.
func (g *GitHub) Read(ctx context.Context, path string) (*Document, error) {
	u := g.contentsURL(path) + "?ref=" + url.QueryEscape(g.branch)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &TransportError{Op: "read", Path: path, Err: err}
	}
	g.setHeaders(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "read", Path: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Op: "read", Path: path, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "read", Path: path, Err: err}
	}

	var cr contentResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, &TransportError{Op: "read", Path: path, Err: fmt.Errorf("decode response: %w", err)}
	}

	// The API wraps base64 at 60 columns; strip all whitespace first.
	raw := strings.Map(dropSpace, cr.Content)
	content, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, &TransportError{Op: "read", Path: path, Err: fmt.Errorf("decode content: %w", err)}
	}

	return &Document{Content: content, SHA: cr.SHA}, nil
}

// Write creates or updates the document at path. It reads the path first to
// attach the current version token; the probe is best-effort, so both a
// missing document and a failed probe fall through to a token-less PUT and
// the PUT's own status decides.
func (g *GitHub) Write(ctx context.Context, path string, content []byte, message string) error {
	var sha string
	prior, err := g.Read(ctx, path)
	switch {
	case err == nil:
		sha = prior.SHA
	case errors.Is(err, ErrNotFound):
		// First write creates the document.
	default:
		g.log.Warn("version probe failed, writing without token",
			slog.String("path", path), slog.String("error", err.Error()))
	}

	if message == "" {
		message = "Update " + path
	}

	payload, err := json.Marshal(putRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		Branch:  g.branch,
		SHA:     sha,
	})
	if err != nil {
		return &TransportError{Op: "write", Path: path, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, g.contentsURL(path), bytes.NewReader(payload))
	if err != nil {
		return &TransportError{Op: "write", Path: path, Err: err}
	}
	g.setHeaders(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return &TransportError{Op: "write", Path: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		g.log.Debug("document written", slog.String("path", path), slog.Bool("created", resp.StatusCode == http.StatusCreated))
		return nil
	case http.StatusConflict, http.StatusUnprocessableEntity:
		g.log.Warn("write rejected on version mismatch", slog.String("path", path))
		return &ConflictError{Path: path, SHA: sha}
	default:
		return &TransportError{Op: "write", Path: path, Status: resp.StatusCode}
	}
}

func (g *GitHub) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "token "+g.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Content-Type", "application/json")
}

func dropSpace(r rune) rune {
	switch r {
	case ' ', '\n', '\r', '\t':
		return -1
	}
	return r
}
