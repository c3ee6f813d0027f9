package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/jlptdeck/pkg/jlpt"
)

func testOptions(baseURL string) Options {
	return Options{
		BaseURL:    baseURL,
		MaxPages:   10,
		MaxRetries: 3,
		RetryBase:  time.Millisecond,
		RetryCap:   2 * time.Millisecond,
		Timeout:    time.Second,
	}
}

func jsonPage(entries ...pageEntry) pageResponse {
	return pageResponse{Data: entries}
}

func wordEntry(word, reading string, tags ...string) pageEntry {
	return pageEntry{
		Tags:     tags,
		Japanese: []japaneseForm{{Word: word, Reading: reading}},
	}
}

func servePages(t *testing.T, pages map[int]pageResponse) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		resp, ok := pages[page]
		if !ok {
			resp = pageResponse{}
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestHarvestLevelStopsAtEmptyPage(t *testing.T) {
	srv := servePages(t, map[int]pageResponse{
		1: jsonPage(wordEntry("猫", "ねこ", "Common word"), wordEntry("犬", "いぬ")),
		2: jsonPage(wordEntry("川", "かわ")),
	})
	defer srv.Close()

	c := New(testOptions(srv.URL), nil)
	res, err := c.HarvestLevel(context.Background(), jlpt.N5)
	require.NoError(t, err)

	assert.Equal(t, 3, res.PagesFetched, "two data pages plus the empty one")
	assert.False(t, res.Truncated)
	require.Len(t, res.Candidates, 3)
	assert.Equal(t, "猫", res.Candidates[0].Term)
	assert.Equal(t, "ねこ", res.Candidates[0].Reading)
	assert.Equal(t, jlpt.N5, res.Candidates[0].Level)
	assert.Equal(t, []string{"Common word"}, res.Candidates[0].RawTags)
	assert.Equal(t, 2, res.Candidates[2].Page)
}

func TestHarvestLevelSendsLevelKeyword(t *testing.T) {
	var keyword string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keyword = r.URL.Query().Get("keyword")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer srv.Close()

	c := New(testOptions(srv.URL), nil)
	_, err := c.HarvestLevel(context.Background(), jlpt.N3)
	require.NoError(t, err)
	assert.Equal(t, "#jlpt-n3", keyword)
}

func TestHarvestLevelRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer srv.Close()

	c := New(testOptions(srv.URL), nil)
	res, err := c.HarvestLevel(context.Background(), jlpt.N5)
	require.NoError(t, err)
	assert.False(t, res.Truncated)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHarvestLevelTruncatesOnPersistentFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("page") == "1" {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(jsonPage(wordEntry("猫", "ねこ")))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(testOptions(srv.URL), nil)
	res, err := c.HarvestLevel(context.Background(), jlpt.N4)
	require.NoError(t, err, "truncation is not an error")

	assert.True(t, res.Truncated)
	assert.Equal(t, 1, res.PagesFetched)
	require.Len(t, res.Candidates, 1, "page 1 data survives")
	assert.Equal(t, "猫", res.Candidates[0].Term)
	// Page 1 once, page 2 MaxRetries times.
	assert.Equal(t, int32(4), calls.Load())
}

func TestHarvestLevelSkipsAndDedupes(t *testing.T) {
	srv := servePages(t, map[int]pageResponse{
		1: jsonPage(
			wordEntry("猫", "ねこ"),
			pageEntry{}, // nothing usable: skipped
			wordEntry("猫", "ねこ"), // repeat: deduped
			pageEntry{Japanese: []japaneseForm{{Reading: "りんご"}}},
		),
	})
	defer srv.Close()

	c := New(testOptions(srv.URL), nil)
	res, err := c.HarvestLevel(context.Background(), jlpt.N5)
	require.NoError(t, err)

	assert.Equal(t, 1, res.SkippedRows)
	assert.Equal(t, 1, res.Duplicates)
	require.Len(t, res.Candidates, 2)
	// Reading-only rows carry the reading as the term.
	assert.Equal(t, "りんご", res.Candidates[1].Term)
	assert.Equal(t, "りんご", res.Candidates[1].Reading)
}

func TestHarvestLevelParsesHTMLFallback(t *testing.T) {
	page1 := `<html><body>
		<div class="concept_light clearfix">
			<span class="furigana">ねこ</span>
			<span class="text">猫</span>
			<span class="concept_light-tag label">Common word</span>
			<span class="concept_light-tag label">JLPT N5</span>
		</div>
		<div class="concept_light clearfix">
			<span class="furigana">いぬ</span>
			<span class="text">犬</span>
		</div>
	</body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if r.URL.Query().Get("page") == "1" {
			fmt.Fprint(w, page1)
			return
		}
		fmt.Fprint(w, "<html><body></body></html>")
	}))
	defer srv.Close()

	c := New(testOptions(srv.URL), nil)
	res, err := c.HarvestLevel(context.Background(), jlpt.N5)
	require.NoError(t, err)

	require.Len(t, res.Candidates, 2)
	assert.Equal(t, "猫", res.Candidates[0].Term)
	assert.Equal(t, "ねこ", res.Candidates[0].Reading)
	assert.Equal(t, []string{"Common word", "JLPT N5"}, res.Candidates[0].RawTags)
	assert.Equal(t, "犬", res.Candidates[1].Term)
}

func TestHarvestAllCollectsEveryLevel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") != "1" {
			fmt.Fprint(w, `{"data":[]}`)
			return
		}
		keyword := r.URL.Query().Get("keyword")
		json.NewEncoder(w).Encode(jsonPage(wordEntry("語"+keyword, "ご")))
	}))
	defer srv.Close()

	opts := testOptions(srv.URL)
	opts.Concurrency = 3
	c := New(opts, nil)

	results, err := c.HarvestAll(context.Background(), jlpt.Graded)
	require.NoError(t, err)
	require.Len(t, results, len(jlpt.Graded))
	for i, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, jlpt.Graded[i], res.Level)
		assert.Len(t, res.Candidates, 1)
	}
}

func TestHarvestLevelContextCancellation(t *testing.T) {
	srv := servePages(t, map[int]pageResponse{})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(testOptions(srv.URL), nil)
	_, err := c.HarvestLevel(ctx, jlpt.N5)
	assert.ErrorIs(t, err, context.Canceled)
}
