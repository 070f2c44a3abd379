// Package github is a small read-only client for the GitHub REST API.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"benchtop/internal/core/errors"
	"benchtop/internal/shared/observability"
	"benchtop/internal/shared/util"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultBaseURL = "https://api.github.com"
	maxBodyBytes   = 32 << 20
)

type Options struct {
	BaseURL           string
	Token             string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	UserAgent         string
	// HTTPClient overrides the transport; Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client caches every successful GET for the life of the session. Callers
// clear it wholesale on context switches.
type Client struct {
	baseURL   string
	token     string
	userAgent string
	http      *http.Client
	limiter   *util.Limiter

	mu        sync.RWMutex
	cache     map[string][]byte
	rateLimit RateLimit
}

func New(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "benchtop"
	}
	return &Client{
		baseURL:   base,
		token:     strings.TrimSpace(opts.Token),
		userAgent: ua,
		http:      hc,
		limiter:   util.NewLimiter(opts.RequestsPerSecond, opts.Burst),
		cache:     make(map[string][]byte),
	}
}

func (c *Client) Repository(ctx context.Context, repo RepoRef) (Repository, error) {
	var out Repository
	err := c.getJSON(ctx, "repository", repoPath(repo), nil, &out)
	return out, errors.AddContext(err, errors.CtxRepo, repo.String())
}

// Contents lists a directory. A file path yields a single entry.
func (c *Client) Contents(ctx context.Context, repo RepoRef, path, ref string) ([]Entry, error) {
	body, err := c.get(ctx, "contents", contentsPath(repo, path), refQuery(ref))
	if err != nil {
		return nil, errors.AddContext(errors.AddContext(err, errors.CtxRepo, repo.String()), errors.CtxPath, path)
	}
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '{' {
		var one Entry
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, errors.Wrap(err, errors.CodeParse, "decode contents")
		}
		return []Entry{one}, nil
	}
	var entries []Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, errors.Wrap(err, errors.CodeParse, "decode contents")
	}
	return entries, nil
}

// File fetches one blob and decodes its content. Blobs the contents API
// will not inline (over 1MB) are read from their download URL.
func (c *Client) File(ctx context.Context, repo RepoRef, path, ref string) (File, error) {
	var f File
	err := c.getJSON(ctx, "contents", contentsPath(repo, path), refQuery(ref), &f)
	if err != nil {
		return f, errors.AddContext(errors.AddContext(err, errors.CtxRepo, repo.String()), errors.CtxPath, path)
	}
	if f.Type != "" && f.Type != "file" {
		return f, errors.AddContext(errors.New(errors.CodeValidationError, path+" is a "+f.Type), errors.CtxRepo, repo.String())
	}

	switch {
	case f.Encoding == "base64":
		decoded, err := base64.StdEncoding.DecodeString(stripNewlines(f.Raw))
		if err != nil {
			return f, errors.AddContext(errors.Wrap(err, errors.CodeParse, "decode file content"), errors.CtxPath, path)
		}
		f.Content = decoded
	case f.DownloadURL != "":
		raw, err := c.getURL(ctx, "raw", f.DownloadURL)
		if err != nil {
			return f, errors.AddContext(err, errors.CtxPath, path)
		}
		f.Content = raw
	default:
		f.Content = []byte(f.Raw)
	}
	f.Raw = ""
	return f, nil
}

func (c *Client) Commits(ctx context.Context, repo RepoRef, q CommitQuery) ([]Commit, error) {
	query := url.Values{}
	if q.Path != "" {
		query.Set("path", q.Path)
	}
	if q.SHA != "" {
		query.Set("sha", q.SHA)
	}
	if q.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(min(q.PerPage, 100)))
	}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	var out []Commit
	err := c.getJSON(ctx, "commits", repoPath(repo)+"/commits", query, &out)
	return out, errors.AddContext(err, errors.CtxRepo, repo.String())
}

// Commit fetches one commit including its stats and changed files.
func (c *Client) Commit(ctx context.Context, repo RepoRef, sha string) (Commit, error) {
	var out Commit
	err := c.getJSON(ctx, "commit", repoPath(repo)+"/commits/"+url.PathEscape(sha), nil, &out)
	if err != nil {
		return out, errors.AddContext(errors.AddContext(err, errors.CtxRepo, repo.String()), errors.CtxSHA, sha)
	}
	return out, nil
}

// Tree returns the full recursive tree at ref.
func (c *Client) Tree(ctx context.Context, repo RepoRef, ref string) (Tree, error) {
	var out Tree
	err := c.getJSON(ctx, "tree", repoPath(repo)+"/git/trees/"+url.PathEscape(ref), url.Values{"recursive": {"1"}}, &out)
	if err != nil {
		return out, errors.AddContext(errors.AddContext(err, errors.CtxRepo, repo.String()), errors.CtxSHA, ref)
	}
	if out.Truncated {
		slog.Warn("github tree truncated", "repo", repo.String(), "sha", ref, "entries", len(out.Entries))
	}
	return out, nil
}

// ClearCache drops every cached response.
func (c *Client) ClearCache() {
	c.mu.Lock()
	c.cache = make(map[string][]byte)
	c.mu.Unlock()
}

func (c *Client) CacheLen() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// RateLimit returns the quota from the most recent response.
func (c *Client) RateLimit() RateLimit {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rateLimit
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	body, err := c.get(ctx, endpoint, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, errors.CodeParse, "decode "+endpoint+" response")
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values) ([]byte, error) {
	full := c.baseURL + path
	if len(query) > 0 {
		full += "?" + query.Encode()
	}
	return c.getURL(ctx, endpoint, full)
}

func (c *Client) getURL(ctx context.Context, endpoint, full string) ([]byte, error) {
	c.mu.RLock()
	cached, ok := c.cache[full]
	c.mu.RUnlock()
	if ok {
		observability.GitHubCacheHitsTotal.Inc()
		return cached, nil
	}

	ctx, span := observability.Tracer.Start(ctx, "github."+endpoint)
	defer span.End()
	span.SetAttributes(attribute.String("http.url", full))

	if err := c.limiter.Wait(ctx, 1); err != nil {
		return nil, errors.Wrap(err, errors.CodeNetwork, "rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "build request")
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	observability.GitHubRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.GitHubRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNetwork, "GET "+endpoint), errors.CtxURL, full)
	}
	defer resp.Body.Close()

	observability.GitHubRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.recordRateLimit(resp.Header)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNetwork, "read "+endpoint+" response")
	}
	if resp.StatusCode >= 400 {
		err := statusError(resp, body)
		span.SetStatus(codes.Error, err.Error())
		slog.Debug("github request failed", "url", full, "status", resp.StatusCode, "error", err)
		return nil, err
	}

	c.mu.Lock()
	c.cache[full] = body
	c.mu.Unlock()
	return body, nil
}

func (c *Client) recordRateLimit(h http.Header) {
	remaining := h.Get("X-RateLimit-Remaining")
	if remaining == "" {
		return
	}
	rl := RateLimit{}
	rl.Remaining, _ = strconv.Atoi(remaining)
	rl.Limit, _ = strconv.Atoi(h.Get("X-RateLimit-Limit"))
	if reset, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		rl.Reset = time.Unix(reset, 0)
	}
	c.mu.Lock()
	c.rateLimit = rl
	c.mu.Unlock()
}

type apiError struct {
	Message string `json:"message"`
}

func statusError(resp *http.Response, body []byte) error {
	var ae apiError
	_ = json.Unmarshal(body, &ae)
	msg := ae.Message
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.New(errors.CodeNotFound, msg)
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		if reset, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
			msg = fmt.Sprintf("%s (resets %s)", msg, time.Unix(reset, 0).Format(time.Kitchen))
		}
		return errors.New(errors.CodeRateLimited, msg)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return errors.New(errors.CodePermissionDenied, msg)
	default:
		return errors.New(errors.CodeNetwork, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, msg))
	}
}

func repoPath(repo RepoRef) string {
	return "/repos/" + url.PathEscape(repo.Owner) + "/" + url.PathEscape(repo.Name)
}

func contentsPath(repo RepoRef, p string) string {
	segments := util.SplitSegments(p)
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return repoPath(repo) + "/contents/" + strings.Join(segments, "/")
}

func refQuery(ref string) url.Values {
	if ref == "" {
		return nil
	}
	return url.Values{"ref": {ref}}
}

func stripNewlines(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}
