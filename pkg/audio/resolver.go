// Package audio resolves human-recorded pronunciation clips for reconciled
// vocabulary entries via a token-authenticated provider API. Resolution is
// best-effort: a failed or missing lookup leaves the entry without audio,
// it never aborts deck assembly.
package audio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/japaniel/jlptdeck/pkg/backoff"
	"github.com/japaniel/jlptdeck/pkg/lexicon"
)

const maxAudioSize = 16 * 1024 * 1024

// Options configures the Resolver.
type Options struct {
	BaseURL string
	// TokenPath is the credential file holding the bearer token.
	TokenPath string
	// CatalogPath caches the provider's vocabulary catalog between runs.
	// Delete the file to force a refresh.
	CatalogPath string
	// MediaDir receives downloaded clips, named <seq>.<ext>.
	MediaDir   string
	Timeout    time.Duration
	Workers    int
	MaxRetries int
	RetryBase  time.Duration
	RetryCap   time.Duration
}

func (o *Options) applyDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.RetryBase <= 0 {
		o.RetryBase = 500 * time.Millisecond
	}
	if o.RetryCap <= 0 {
		o.RetryCap = 8 * time.Second
	}
}

// Resolver looks up and downloads pronunciation clips. Construct it with
// NewResolver, then LoadCatalog once before resolving.
type Resolver struct {
	opts    Options
	http    *http.Client
	log     *slog.Logger
	token   string
	catalog map[string]string // (form, reading) -> clip URL
}

// NewResolver reads the credential file and prepares a resolver. A missing
// or empty credential is an *AuthError.
func NewResolver(opts Options, logger *slog.Logger) (*Resolver, error) {
	opts.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	token, err := readToken(opts.TokenPath)
	if err != nil {
		return nil, err
	}
	return &Resolver{
		opts:  opts,
		http:  &http.Client{Timeout: opts.Timeout},
		log:   logger.With("component", "audio"),
		token: token,
	}, nil
}

func readToken(path string) (string, error) {
	if path == "" {
		return "", &AuthError{Reason: "no credential file configured"}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", &AuthError{Reason: "read credential file " + path, Err: err}
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", &AuthError{Reason: "credential file " + path + " is empty"}
	}
	return token, nil
}

// subjectsResponse is one page of the provider's vocabulary catalog.
type subjectsResponse struct {
	Pages struct {
		NextURL string `json:"next_url"`
	} `json:"pages"`
	Data []struct {
		Data struct {
			Characters string `json:"characters"`
			Readings   []struct {
				Reading string `json:"reading"`
			} `json:"readings"`
			PronunciationAudios []struct {
				URL string `json:"url"`
			} `json:"pronunciation_audios"`
		} `json:"data"`
	} `json:"data"`
}

// LoadCatalog builds the (form, reading) -> clip URL index, reading the
// local cache file when present and walking the paginated API otherwise.
func (r *Resolver) LoadCatalog(ctx context.Context) error {
	if r.opts.CatalogPath != "" {
		if raw, err := os.ReadFile(r.opts.CatalogPath); err == nil {
			catalog := make(map[string]string)
			if err := json.Unmarshal(raw, &catalog); err == nil {
				r.catalog = catalog
				r.log.Debug("catalog loaded from cache", "entries", len(catalog))
				return nil
			}
			r.log.Warn("ignoring unreadable catalog cache", "path", r.opts.CatalogPath)
		}
	}

	catalog := make(map[string]string)
	next := strings.TrimRight(r.opts.BaseURL, "/") + "/v2/subjects?types=vocabulary"
	for next != "" {
		page, err := r.fetchCatalogPage(ctx, next)
		if err != nil {
			return err
		}
		for _, subj := range page.Data {
			d := subj.Data
			if d.Characters == "" || len(d.PronunciationAudios) == 0 {
				continue
			}
			reading := ""
			if len(d.Readings) > 0 {
				reading = d.Readings[0].Reading
			}
			key := catalogKey(d.Characters, reading)
			// First clip per word wins.
			if _, ok := catalog[key]; !ok {
				catalog[key] = d.PronunciationAudios[0].URL
			}
		}
		next = page.Pages.NextURL
	}
	r.catalog = catalog

	if r.opts.CatalogPath != "" {
		if raw, err := json.Marshal(catalog); err == nil {
			if err := os.MkdirAll(filepath.Dir(r.opts.CatalogPath), 0o755); err == nil {
				_ = os.WriteFile(r.opts.CatalogPath, raw, 0o644)
			}
		}
	}
	r.log.Info("catalog loaded", "entries", len(catalog))
	return nil
}

func (r *Resolver) fetchCatalogPage(ctx context.Context, url string) (*subjectsResponse, error) {
	sched := backoff.New(r.opts.MaxRetries, r.opts.RetryBase, r.opts.RetryCap)
	for {
		page, err := r.fetchCatalogOnce(ctx, url)
		if err == nil {
			return page, nil
		}
		var authErr *AuthError
		if ctx.Err() != nil || errors.As(err, &authErr) {
			return nil, err
		}
		delay, ok := sched.Next()
		if !ok {
			return nil, fmt.Errorf("catalog page failed after %d attempts: %w", sched.Attempts(), err)
		}
		r.log.Warn("catalog fetch retry", "attempt", sched.Attempts(), "delay", delay, "error", err)
		if !backoff.Sleep(ctx.Done(), delay) {
			return nil, ctx.Err()
		}
	}
}

func (r *Resolver) fetchCatalogOnce(ctx context.Context, url string) (*subjectsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.token)

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &AuthError{Reason: fmt.Sprintf("provider rejected credential (status %d)", resp.StatusCode)}
	default:
		return nil, fmt.Errorf("fetch catalog: unexpected status %d", resp.StatusCode)
	}

	var page subjectsResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode catalog page: %w", err)
	}
	return &page, nil
}

// Request identifies one entry to resolve.
type Request struct {
	Seq     string // lexicon sequence, used as the media file name
	Form    string
	Reading string
}

// Result pairs a request's sequence with the local clip path or the error
// that prevented resolution.
type Result struct {
	Seq  string
	Path string
	Err  error
}

// Resolve finds and downloads the clip for one form/reading pair. It
// returns the local path, ErrNotFound when the provider has no recording,
// or the download error.
func (r *Resolver) Resolve(ctx context.Context, req Request) (string, error) {
	url, ok := r.catalog[catalogKey(req.Form, req.Reading)]
	if !ok {
		return "", ErrNotFound
	}
	return r.download(ctx, url, req.Seq)
}

// ResolveAll resolves entries concurrently on a bounded worker pool. Every
// request gets a Result; failures are recorded, never escalated.
func (r *Resolver) ResolveAll(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, len(reqs))

	pool := newWorkerPool(r.opts.Workers)
	pool.start(ctx)
	for i, req := range reqs {
		slot := &results[i]
		slot.Seq = req.Seq
		// A job that gets queued but never runs (workers drain out on
		// cancellation) keeps this error; a running job overwrites it.
		slot.Err = context.Canceled
		request := req
		if err := pool.submit(ctx, func(ctx context.Context) {
			slot.Path, slot.Err = r.Resolve(ctx, request)
		}); err != nil {
			slot.Err = err
		}
	}
	pool.close()
	return results
}

func (r *Resolver) download(ctx context.Context, url, seq string) (string, error) {
	dest := filepath.Join(r.opts.MediaDir, seq+clipExt(url))
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("download clip: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download clip: unexpected status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(r.opts.MediaDir, 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create clip file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, io.LimitReader(resp.Body, maxAudioSize)); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("write clip file: %w", err)
	}
	return dest, nil
}

func clipExt(url string) string {
	if ext := path.Ext(stripQuery(url)); ext != "" && len(ext) <= 5 {
		return ext
	}
	return ".mp3"
}

func stripQuery(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		return url[:i]
	}
	return url
}

func catalogKey(form, reading string) string {
	return form + "\x00" + lexicon.ToHiragana(strings.TrimSpace(reading))
}
