// Package harvest queries the tag-search service for vocabulary tagged with
// a JLPT level. The service is explicitly unreliable: result ordering shifts
// between calls, rows repeat or go missing, and the response schema is not
// contractually stable. Everything here is therefore defensive: rows are
// normalized into Candidate at the edge and failures degrade to partial
// results instead of aborting the run.
package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/japaniel/jlptdeck/pkg/backoff"
	"github.com/japaniel/jlptdeck/pkg/jlpt"
)

const maxPageBody = 4 * 1024 * 1024

// Options controls harvesting behavior. Zero values fall back to the
// defaults below.
type Options struct {
	BaseURL     string
	MaxPages    int           // page cap per level
	MaxRetries  int           // total attempts per page
	RetryBase   time.Duration // first retry delay, doubles up to RetryCap
	RetryCap    time.Duration
	Timeout     time.Duration // per-request timeout
	Concurrency int           // simultaneous level workers
}

func (o *Options) applyDefaults() {
	if o.MaxPages <= 0 {
		o.MaxPages = 20
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
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 2
	}
}

// Client harvests tag candidates. Safe for concurrent use.
type Client struct {
	opts Options
	http *http.Client
	log  *slog.Logger
}

// New creates a Client.
func New(opts Options, logger *slog.Logger) *Client {
	opts.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		opts: opts,
		http: &http.Client{Timeout: opts.Timeout},
		log:  logger.With("component", "harvest"),
	}
}

// pageResponse is the JSON shape of a search result page.
type pageResponse struct {
	Data []pageEntry `json:"data"`
}

type pageEntry struct {
	Slug     string         `json:"slug"`
	IsCommon bool           `json:"is_common"`
	Tags     []string       `json:"tags"`
	Japanese []japaneseForm `json:"japanese"`
}

type japaneseForm struct {
	Word    string `json:"word"`
	Reading string `json:"reading"`
}

// row is a source-shape-agnostic result row; JSON and HTML pages both
// normalize into it before anything downstream looks at the data.
type row struct {
	Term    string
	Reading string
	Tags    []string
}

// HarvestLevel pulls every result page for one level, stopping at the first
// empty page or the page cap. A page that fails all retry attempts truncates
// the level; candidates from earlier pages are kept. HarvestLevel only
// returns an error when the context is cancelled.
func (c *Client) HarvestLevel(ctx context.Context, level jlpt.Level) (*LevelResult, error) {
	res := &LevelResult{Level: level}
	seen := make(map[string]struct{})

	for page := 1; page <= c.opts.MaxPages; page++ {
		rows, err := c.fetchPageWithRetry(ctx, level, page)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			c.log.Warn("level truncated",
				"level", level.String(), "page", page, "error", err)
			res.Truncated = true
			return res, nil
		}
		res.PagesFetched++
		if len(rows) == 0 {
			return res, nil
		}
		for _, r := range rows {
			if r.Term == "" && r.Reading == "" {
				res.SkippedRows++
				continue
			}
			term := r.Term
			if term == "" {
				term = r.Reading
			}
			dedupeKey := term + "\x00" + r.Reading
			if _, ok := seen[dedupeKey]; ok {
				res.Duplicates++
				continue
			}
			seen[dedupeKey] = struct{}{}
			res.Candidates = append(res.Candidates, Candidate{
				Term:    term,
				Reading: r.Reading,
				Level:   level,
				RawTags: r.Tags,
				Page:    page,
			})
		}
	}
	return res, nil
}

// HarvestAll runs one worker per level, bounded by Options.Concurrency.
// Workers collect into pre-assigned slots so there is no shared mutable
// state beyond the result slice. Only context cancellation aborts the
// group; per-level failures surface as truncated results.
func (c *Client) HarvestAll(ctx context.Context, levels []jlpt.Level) ([]*LevelResult, error) {
	results := make([]*LevelResult, len(levels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for i, level := range levels {
		i, level := i, level
		g.Go(func() error {
			res, err := c.HarvestLevel(gctx, level)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// fetchPageWithRetry drives the bounded retry schedule for a single page.
func (c *Client) fetchPageWithRetry(ctx context.Context, level jlpt.Level, page int) ([]row, error) {
	sched := backoff.New(c.opts.MaxRetries, c.opts.RetryBase, c.opts.RetryCap)
	for {
		rows, err := c.fetchPage(ctx, level, page)
		if err == nil {
			return rows, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		delay, ok := sched.Next()
		if !ok {
			return nil, fmt.Errorf("page %d failed after %d attempts: %w", page, sched.Attempts(), err)
		}
		c.log.Warn("page fetch retry",
			"level", level.String(), "page", page, "attempt", sched.Attempts(), "delay", delay, "error", err)
		if !backoff.Sleep(ctx.Done(), delay) {
			return nil, ctx.Err()
		}
	}
}

func (c *Client) fetchPage(ctx context.Context, level jlpt.Level, page int) ([]row, error) {
	q := url.Values{}
	q.Set("keyword", "#jlpt-"+strings.ToLower(level.String()))
	q.Set("page", strconv.Itoa(page))
	reqURL := strings.TrimRight(c.opts.BaseURL, "/") + "/search/words?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/html")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", reqURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", reqURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if looksLikeJSON(resp.Header.Get("Content-Type"), body) {
		return parseJSONPage(body)
	}
	// The service sometimes answers with rendered HTML instead of the API
	// shape; parse it defensively rather than failing the page.
	return parseHTMLPage(body), nil
}

func looksLikeJSON(contentType string, body []byte) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		if mt == "application/json" || strings.HasSuffix(mt, "+json") {
			return true
		}
		if mt == "text/html" {
			return false
		}
	}
	trimmed := strings.TrimLeftFunc(string(body), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

func parseJSONPage(body []byte) ([]row, error) {
	var page pageResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode page json: %w", err)
	}
	rows := make([]row, 0, len(page.Data))
	for _, e := range page.Data {
		r := row{Tags: e.Tags}
		if len(e.Japanese) > 0 {
			r.Term = e.Japanese[0].Word
			r.Reading = e.Japanese[0].Reading
		}
		if r.Term == "" && r.Reading == "" {
			// Slug is a last resort; rows with nothing at all stay empty
			// and are counted as skipped by the caller.
			r.Term = e.Slug
		}
		rows = append(rows, r)
	}
	return rows, nil
}
