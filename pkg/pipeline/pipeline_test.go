package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"articlegrab/pkg/catalog"
	"articlegrab/pkg/config"
	errs "articlegrab/pkg/errors"
	"articlegrab/pkg/logger"
	"articlegrab/pkg/progress"
	"articlegrab/pkg/render"
)

// testSite is a fake target site with counting handlers.
type testSite struct {
	mu       sync.Mutex
	requests map[string]int
	srv      *httptest.Server
	mux      *http.ServeMux

	// forbidArticles returns 403 for the listed article ids.
	forbidArticles map[string]bool
	// breakArticles serves an empty page for the listed article ids.
	breakArticles map[string]bool
	// longTitles serves an absurdly long title for the listed article ids.
	longTitles map[string]bool
}

func newTestSite(t *testing.T, articles []string, qas []string) *testSite {
	t.Helper()
	s := &testSite{
		requests:       make(map[string]int),
		mux:            http.NewServeMux(),
		forbidArticles: make(map[string]bool),
		breakArticles:  make(map[string]bool),
		longTitles:     make(map[string]bool),
	}

	s.mux.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) {
		s.count("profile")
		w.Write([]byte(`{"data":{"user":{"id":42,"screen_name":"Tester"}}}`))
	})

	s.mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		s.count("list")
		if r.URL.Query().Get("page") != "1" {
			w.Write([]byte(`{"data":{"list":[]}}`))
			return
		}
		var posts []map[string]interface{}
		for _, id := range articles {
			posts = append(posts, map[string]interface{}{
				"id": "p" + id,
				"page_info": map[string]interface{}{
					"object_type": "article",
					"page_id":     id,
					"content1":    "Article " + id,
				},
			})
		}
		for _, id := range qas {
			posts = append(posts, map[string]interface{}{
				"id": "p" + id,
				"page_info": map[string]interface{}{
					"object_type": "wenda",
					"page_id":     id,
					"content1":    "Question " + id,
				},
			})
		}
		body, _ := json.Marshal(map[string]interface{}{
			"data": map[string]interface{}{"list": posts},
		})
		w.Write(body)
	})

	s.mux.HandleFunc("/art/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/art/")
		s.count("art:" + id)
		if s.forbidArticles[id] {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if s.breakArticles[id] {
			w.Write([]byte(`<html><body></body></html>`))
			return
		}
		title := "Article " + id
		if s.longTitles[id] {
			title = strings.Repeat("x", 300)
		}
		fmt.Fprintf(w, `<html><body>
<div class="title">%s</div>
<div id="article_content"><p>Body of %s.</p><img src="%s/img/%s.jpg"></div>
</body></html>`, title, id, s.srv.URL, id)
	})

	s.mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		s.count("img")
		w.Write([]byte("imagebytes"))
	})

	s.mux.HandleFunc("/qa/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/qa/")
		s.count("qa:" + id)
		answer := "Just a short preview"
		if strings.HasPrefix(id, "open") {
			answer = strings.Repeat("A thorough answer. ", 20)
		}
		fmt.Fprintf(w, `<html><body>
<div class="ask_con">Question %s</div>
<div class="main_answer">%s</div>
</body></html>`, id, answer)
	})

	s.srv = httptest.NewServer(s.mux)
	t.Cleanup(s.srv.Close)
	return s
}

func (s *testSite) count(key string) {
	s.mu.Lock()
	s.requests[key]++
	s.mu.Unlock()
}

func (s *testSite) hits(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[key]
}

func (s *testSite) totalArticleHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for k, n := range s.requests {
		if strings.HasPrefix(k, "art:") {
			total += n
		}
	}
	return total
}

func testConfig(s *testSite, saveDir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.BaseURL = s.srv.URL
	cfg.TargetUID = "42"
	cfg.Cookies = map[string]string{"SUB": "x"}
	cfg.APIPaths = config.APIPaths{
		Profile:     "/profile?uid={uid}",
		Articles:    "/list?uid={uid}&page={page}",
		ArticlePage: "/art/{article_id}",
		QAPage:      "/qa/{qa_id}",
	}
	cfg.Request.MaxRetries = 1
	cfg.Request.RequestsPerMinute = 0
	cfg.Request.DelayBetweenPages = 0
	cfg.Request.DelayBetweenItems = 0
	cfg.Output.SaveDir = saveDir
	cfg.Output.QASaveDir = saveDir
	return cfg
}

func testRunner(t *testing.T, s *testSite, saveDir string) *Runner {
	t.Helper()
	r, err := NewRunner(testConfig(s, saveDir), logger.NewTestLogger())
	require.NoError(t, err)
	return r
}

func TestRunArticlesEndToEnd(t *testing.T) {
	s := newTestSite(t, []string{"a1", "a2", "a3"}, nil)
	dir := t.TempDir()
	r := testRunner(t, s, dir)

	summary, err := r.RunArticles(context.Background(), ArticleOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 3, summary.Done)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, StateDone, r.State())

	// Artifacts landed under numbered directories.
	for i, id := range []string{"a1", "a2", "a3"} {
		itemDir := filepath.Join(dir, fmt.Sprintf("%03d_Article %s", i+1, id))
		for _, name := range []string{"article.html", "article.txt", "article.md", "metadata.json"} {
			_, err := os.Stat(filepath.Join(itemDir, name))
			assert.NoError(t, err, "%s/%s", itemDir, name)
		}
		img, err := os.ReadFile(filepath.Join(itemDir, "images", "img_001.jpg"))
		require.NoError(t, err)
		assert.Equal(t, "imagebytes", string(img))

		// Body references the local copy, not the remote URL.
		html, err := os.ReadFile(filepath.Join(itemDir, "article.html"))
		require.NoError(t, err)
		assert.Contains(t, string(html), "images/img_001.jpg")
		assert.NotContains(t, string(html), s.srv.URL+"/img/")
	}

	// Snapshot and progress files exist.
	assert.True(t, catalog.HasSnapshot(dir, catalog.ArticleListFile))
	tracker, err := progress.NewTracker(dir, logger.NewTestLogger())
	require.NoError(t, err)
	assert.True(t, tracker.IsDone("a1"))

	firstRunFetches := s.totalArticleHits()
	assert.Equal(t, 3, firstRunFetches)

	// A second run skips everything: no listing, no article fetches.
	r2 := testRunner(t, s, dir)
	summary2, err := r2.RunArticles(context.Background(), ArticleOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, summary2.Skipped)
	assert.Equal(t, 0, summary2.Done)
	assert.Equal(t, firstRunFetches, s.totalArticleHits())
	assert.Equal(t, 1, s.hits("list"))
}

func TestRunArticlesListOnly(t *testing.T) {
	s := newTestSite(t, []string{"a1", "a2"}, nil)
	dir := t.TempDir()
	r := testRunner(t, s, dir)

	summary, err := r.RunArticles(context.Background(), ArticleOptions{ListOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 0, s.totalArticleHits())
	assert.True(t, catalog.HasSnapshot(dir, catalog.ArticleListFile))
}

func TestRunArticlesStartOffset(t *testing.T) {
	s := newTestSite(t, []string{"a1", "a2", "a3"}, nil)
	dir := t.TempDir()
	r := testRunner(t, s, dir)

	summary, err := r.RunArticles(context.Background(), ArticleOptions{Start: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Done)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 0, s.hits("art:a1"))
	assert.Equal(t, 0, s.hits("art:a2"))
	assert.Equal(t, 1, s.hits("art:a3"))
}

func TestRunArticlesAuthFailureAborts(t *testing.T) {
	s := newTestSite(t, []string{"a1", "a2", "a3"}, nil)
	s.forbidArticles["a2"] = true
	dir := t.TempDir()
	r := testRunner(t, s, dir)

	summary, err := r.RunArticles(context.Background(), ArticleOptions{})
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeAuth, errs.TypeOf(err))
	assert.Equal(t, 1, summary.Done)
	// The third article is never touched after the abort.
	assert.Equal(t, 0, s.hits("art:a3"))

	// Completed work survives for the next run.
	tracker, err := progress.NewTracker(dir, logger.NewTestLogger())
	require.NoError(t, err)
	assert.True(t, tracker.IsDone("a1"))
	assert.False(t, tracker.IsDone("a2"))
}

func TestRunArticlesFailedItemRetriedNextRun(t *testing.T) {
	s := newTestSite(t, []string{"a1", "a2"}, nil)
	s.breakArticles["a2"] = true
	dir := t.TempDir()
	r := testRunner(t, s, dir)

	summary, err := r.RunArticles(context.Background(), ArticleOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Done)
	assert.Equal(t, 1, summary.Failed)

	entry, ok := func() (progress.Entry, bool) {
		tr, err := progress.NewTracker(dir, logger.NewTestLogger())
		require.NoError(t, err)
		return tr.Get("a2")
	}()
	require.True(t, ok)
	assert.Equal(t, progress.StatusFailed, entry.Status)

	// The page is fixed; the next run reprocesses only the failed item.
	s.breakArticles["a2"] = false
	r2 := testRunner(t, s, dir)
	summary2, err := r2.RunArticles(context.Background(), ArticleOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary2.Done)
	assert.Equal(t, 1, summary2.Skipped)
	assert.Equal(t, 1, s.hits("art:a1"))
	assert.Equal(t, 2, s.hits("art:a2"))
}

func TestRunArticlesWriteFailureMarksFailed(t *testing.T) {
	s := newTestSite(t, []string{"a1", "a2"}, nil)
	s.longTitles["a1"] = true
	dir := t.TempDir()

	// Keep the full 300-char title so the directory name blows past the
	// filesystem's limit and every write for a1 fails.
	cfg := testConfig(s, dir)
	cfg.Output.TitleMaxLen = 300
	r, err := NewRunner(cfg, logger.NewTestLogger())
	require.NoError(t, err)

	summary, err := r.RunArticles(context.Background(), ArticleOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Done)

	tracker, err := progress.NewTracker(dir, logger.NewTestLogger())
	require.NoError(t, err)
	entry, ok := tracker.Get("a1")
	require.True(t, ok)
	assert.Equal(t, progress.StatusFailed, entry.Status)
	assert.Contains(t, entry.Error, "staging directory")
	assert.True(t, tracker.IsDone("a2"))
}

func TestRunQAClassifiesLockedAndDone(t *testing.T) {
	s := newTestSite(t, nil, []string{"open1", "locked1", "locked2"})
	dir := t.TempDir()
	r := testRunner(t, s, dir)

	summary, err := r.RunQA(context.Background(), QAOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Done)
	assert.Equal(t, 2, summary.Locked)

	tracker, err := progress.NewTracker(dir, logger.NewTestLogger())
	require.NoError(t, err)
	assert.True(t, tracker.IsDone("open1"))
	assert.Equal(t, []string{"locked1", "locked2"}, tracker.IDsWithStatus(progress.StatusLocked))

	// Locked items keep their preview on disk.
	entry, _ := tracker.Get("locked1")
	data, err := os.ReadFile(filepath.Join(entry.Path, "qa.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Just a short preview")
}

// stubRenderer returns canned results without a browser.
type stubRenderer struct {
	mu     sync.Mutex
	calls  []string
	closed bool
	fail   map[string]bool
	weak   map[string]bool
}

func (s *stubRenderer) Render(ctx context.Context, url string) (*render.Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, url)
	s.mu.Unlock()

	id := url[strings.LastIndex(url, "/")+1:]
	if s.fail[id] {
		return nil, errs.New(errs.ErrorTypeRender, 0, "render blew up")
	}
	answer := strings.Repeat("The full unlocked answer. ", 10)
	if s.weak[id] {
		answer = "still locked"
	}
	// Browsers often render the question differently from the listing, so
	// the stub returns a divergent phrasing on purpose.
	return &render.Result{
		URL:      url,
		HTML:     "<html></html>",
		Question: "Rendered " + id,
		Answer:   answer,
		Clicked:  true,
	}, nil
}

func (s *stubRenderer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func TestRunUnlock(t *testing.T) {
	s := newTestSite(t, nil, []string{"open1", "locked1", "locked2", "locked3"})
	dir := t.TempDir()
	r := testRunner(t, s, dir)

	_, err := r.RunQA(context.Background(), QAOptions{})
	require.NoError(t, err)

	preTracker, err := progress.NewTracker(dir, logger.NewTestLogger())
	require.NoError(t, err)
	preEntry, ok := preTracker.Get("locked1")
	require.True(t, ok)

	stub := &stubRenderer{
		fail: map[string]bool{"locked2": true},
		weak: map[string]bool{"locked3": true},
	}
	r.SetRenderer(stub)

	summary, err := r.RunUnlock(context.Background(), UnlockOptions{BatchSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped, "already-done item is not re-rendered")
	assert.Equal(t, 1, summary.Done)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Locked)
	assert.Len(t, stub.calls, 3)

	tracker, err := progress.NewTracker(dir, logger.NewTestLogger())
	require.NoError(t, err)
	assert.True(t, tracker.IsDone("locked1"))
	assert.Equal(t, []string{"locked2"}, tracker.IDsWithStatus(progress.StatusFailed))
	assert.Equal(t, []string{"locked3"}, tracker.IDsWithStatus(progress.StatusLocked))

	// The unlocked answer lands in the directory the first pass created,
	// even though the rendered question reads differently.
	entry, _ := tracker.Get("locked1")
	assert.Equal(t, preEntry.Path, entry.Path)
	data, err := os.ReadFile(filepath.Join(entry.Path, "qa.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "The full unlocked answer.")

	dirs, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, d := range dirs {
		assert.NotContains(t, d.Name(), "Rendered", "no duplicate directory from the rendered phrasing")
	}
}

func TestRunUnlockRequiresQASnapshot(t *testing.T) {
	s := newTestSite(t, nil, nil)
	r := testRunner(t, s, t.TempDir())

	_, err := r.RunUnlock(context.Background(), UnlockOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run the qa command first")
}

func TestRunUnlockNothingToDo(t *testing.T) {
	s := newTestSite(t, nil, []string{"open1"})
	dir := t.TempDir()
	r := testRunner(t, s, dir)

	_, err := r.RunQA(context.Background(), QAOptions{})
	require.NoError(t, err)

	stub := &stubRenderer{}
	r.SetRenderer(stub)
	summary, err := r.RunUnlock(context.Background(), UnlockOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Empty(t, stub.calls)
}
