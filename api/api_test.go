package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"newsmint/feeds"
	"newsmint/metagraph"
	"newsmint/news"
	"newsmint/storage"
	"newsmint/types"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubCrawler struct{}

func (stubCrawler) Crawl(_ context.Context, url, address string) (*types.Article, error) {
	if strings.Contains(url, "paywall") {
		return nil, nil
	}
	return &types.Article{
		Title:         "Headline for " + url,
		Content:       "body",
		Authors:       "Jane Doe",
		PublishedDate: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		URL:           url,
		Source:        "example.com",
		DagAddress:    address,
	}, nil
}

type stubMinter struct {
	calls atomic.Int32
	token string
	err   error
}

func (m *stubMinter) Mint(context.Context, string, metagraph.MintData) (string, error) {
	m.calls.Add(1)
	return m.token, m.err
}

type stubNodeInfo struct{ err error }

func (s stubNodeInfo) NodeInfo(context.Context) (metagraph.NodeInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	return metagraph.NodeInfo{"state": "Ready"}, nil
}

type stubImporter struct {
	feed, address string
	count         int
}

func (s *stubImporter) Import(_ context.Context, feed, address string, count int) (*feeds.Report, error) {
	s.feed, s.address, s.count = feed, address, count
	if strings.HasPrefix(feed, "bad") {
		return nil, fmt.Errorf("%w: unreachable", feeds.ErrInvalidFeed)
	}
	return &feeds.Report{FeedURL: feed, Created: 1, Items: []*feeds.ItemResult{{URL: "https://example.com/1", Created: true}}}, nil
}

type harness struct {
	store    *storage.MemoryStore
	minter   *stubMinter
	importer *stubImporter
	router   *gin.Engine
}

func newHarness(t *testing.T, prefix string) *harness {
	t.Helper()
	h := &harness{
		store:    storage.NewMemoryStore(),
		minter:   &stubMinter{token: "hash-abc"},
		importer: &stubImporter{},
	}
	svc := news.NewService(h.store, stubCrawler{}, h.minter, news.Deps{})
	h.router = NewRouter(Deps{
		News:        svc,
		Metagraph:   stubNodeInfo{},
		Importer:    h.importer,
		RoutePrefix: prefix,
	})
	return h
}

func (h *harness) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) seed(t *testing.T, n int, address string) []primitive.ObjectID {
	t.Helper()
	ids := make([]primitive.ObjectID, 0, n)
	for i := 0; i < n; i++ {
		id, err := h.store.Insert(context.Background(), &types.Article{
			Title:      fmt.Sprintf("Article %d", i),
			URL:        fmt.Sprintf("https://example.com/%s/%d", address, i),
			DagAddress: address,
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestSubmitStoresOnceAndReturnsSameID(t *testing.T) {
	h := newHarness(t, "/news")
	body := map[string]string{"url": "https://example.com/story", "dag_address": "DAG0a"}

	w := h.do(http.MethodPost, "/news/submit", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode[map[string]string](t, w)
	assert.Equal(t, "News article successfully crawled and stored", first["message"])

	w = h.do(http.MethodPost, "/news/submit", body)
	require.Equal(t, http.StatusOK, w.Code)
	second := decode[map[string]string](t, w)
	assert.Equal(t, "Article already exists", second["message"])
	assert.Equal(t, first["id"], second["id"])

	total, _ := h.store.Count(context.Background())
	assert.Equal(t, int64(1), total)
}

func TestSubmitNotCrawlable(t *testing.T) {
	h := newHarness(t, "/news")

	w := h.do(http.MethodPost, "/news/submit", map[string]string{"url": "https://example.com/paywall", "dag_address": "DAG0a"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "News is not crawlable", decode[map[string]string](t, w)["detail"])

	total, _ := h.store.Count(context.Background())
	assert.Zero(t, total)
}

func TestSubmitValidatesBody(t *testing.T) {
	h := newHarness(t, "/news")

	w := h.do(http.MethodPost, "/news/submit", "not an object")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "detail")

	w = h.do(http.MethodPost, "/news/submit", map[string]string{"url": "https://example.com/a"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "dag_address is required", decode[map[string]string](t, w)["detail"])

	w = h.do(http.MethodPost, "/news/submit", map[string]string{"url": "https://example.com/paywall", "dag_address": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "dag_address is required", decode[map[string]string](t, w)["detail"])

	total, _ := h.store.Count(context.Background())
	assert.Zero(t, total)
}

func TestListPagination(t *testing.T) {
	h := newHarness(t, "/news")
	h.seed(t, 25, "DAG0a")

	w := h.do(http.MethodGet, "/news/?skip=0&limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[types.ArticlePage](t, w)
	assert.Equal(t, int64(25), page.Total)
	assert.Equal(t, int64(1), page.Page)
	assert.Equal(t, int64(3), page.Pages)
	assert.Len(t, page.Items, 10)

	w = h.do(http.MethodGet, "/news?skip=10&limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page = decode[types.ArticlePage](t, w)
	assert.Equal(t, int64(2), page.Page)
	assert.NotEmpty(t, page.Items[0].ID)
}

func TestListRejectsBadQuery(t *testing.T) {
	h := newHarness(t, "/news")

	for _, q := range []string{"limit=0", "limit=101", "skip=-1", "limit=abc"} {
		w := h.do(http.MethodGet, "/news/?"+q, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, q)
	}
	w := h.do(http.MethodGet, "/news/all?limit=1001", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestListAllIsNotShadowedByID(t *testing.T) {
	h := newHarness(t, "/news")

	w := h.do(http.MethodGet, "/news/all", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No articles found", decode[map[string]string](t, w)["detail"])

	h.seed(t, 3, "DAG0a")
	w = h.do(http.MethodGet, "/news/all", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decode[[]types.ArticleResponse](t, w)
	assert.Len(t, items, 3)
	assert.Equal(t, []string{}, items[0].Videos)
}

func TestGetArticle(t *testing.T) {
	h := newHarness(t, "/news")
	ids := h.seed(t, 1, "DAG0a")

	w := h.do(http.MethodGet, "/news/"+ids[0].Hex(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[map[string]any](t, w)
	assert.Equal(t, ids[0].Hex(), got["_id"])
	assert.Nil(t, got["minted_by"])

	w = h.do(http.MethodGet, "/news/"+primitive.NewObjectID().Hex(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Article not found", decode[map[string]string](t, w)["detail"])

	w = h.do(http.MethodGet, "/news/not-hex", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListByAddress(t *testing.T) {
	h := newHarness(t, "/news")
	h.seed(t, 2, "DAG0a")
	h.seed(t, 1, "DAG0b")

	w := h.do(http.MethodGet, "/news/constellation/DAG0a", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]types.ArticleResponse](t, w), 2)

	w = h.do(http.MethodGet, "/news/constellation/DAG0a?skip=2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No articles found for this constellation", decode[map[string]string](t, w)["detail"])
}

func TestMintFlow(t *testing.T) {
	h := newHarness(t, "/news")
	ids := h.seed(t, 1, "DAG0a")
	path := "/news/" + ids[0].Hex() + "/mint"

	w := h.do(http.MethodPost, path, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "dag_address is required", decode[map[string]string](t, w)["detail"])

	w = h.do(http.MethodPost, path+"?dag_address=DAG0minter", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[map[string]string](t, w)
	assert.Equal(t, "NFT minted successfully", res["message"])
	assert.Equal(t, "hash-abc", res["nft_token_id"])

	stored, err := h.store.FindByID(context.Background(), ids[0])
	require.NoError(t, err)
	require.NotNil(t, stored.MintedBy)
	assert.Equal(t, "DAG0minter", *stored.MintedBy)

	// the address may also come from the JSON body
	w = h.do(http.MethodPost, path, map[string]string{"dag_address": "DAG0other"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Article already minted", decode[map[string]string](t, w)["detail"])
	assert.Equal(t, int32(1), h.minter.calls.Load())
}

func TestMintFailures(t *testing.T) {
	h := newHarness(t, "/news")
	ids := h.seed(t, 1, "DAG0a")
	path := "/news/" + ids[0].Hex() + "/mint?dag_address=DAG0m"

	w := h.do(http.MethodPost, "/news/"+primitive.NewObjectID().Hex()+"/mint?dag_address=DAG0m", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	h.minter.err = fmt.Errorf("%w: refused", metagraph.ErrTransport)
	w = h.do(http.MethodPost, path, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to interact with metagraph", decode[map[string]string](t, w)["detail"])

	h.minter.err = metagraph.ErrProtocol
	w = h.do(http.MethodPost, path, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to mint NFT on metagraph", decode[map[string]string](t, w)["detail"])
}

func TestEmptyPrefixMountsAtRoot(t *testing.T) {
	h := newHarness(t, "")
	h.seed(t, 1, "DAG0a")

	w := h.do(http.MethodGet, "/all", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealth(t *testing.T) {
	h := newHarness(t, "/news")

	w := h.do(http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]string{"status": "ok", "mongo": "ok", "metagraph": "ok"}, decode[map[string]string](t, w))
}

func TestMetagraphInfo(t *testing.T) {
	r := NewRouter(Deps{
		News:      news.NewService(storage.NewMemoryStore(), stubCrawler{}, &stubMinter{}, news.Deps{}),
		Metagraph: stubNodeInfo{err: errors.New("down")},
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metagraph/info", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Contains(t, w.Body.String(), `"metagraph":"unavailable"`)
}

func TestFeedImport(t *testing.T) {
	h := newHarness(t, "/news")

	w := h.do(http.MethodPost, "/feeds/import", map[string]any{"feed_preset": "hn", "dag_address": "DAG0a"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "hn", h.importer.feed)
	assert.Equal(t, 10, h.importer.count)
	assert.Equal(t, 1, decode[feeds.Report](t, w).Created)

	w = h.do(http.MethodPost, "/feeds/import", map[string]any{"feed_url": "bad://feed", "dag_address": "DAG0a", "count": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/feeds/import", map[string]any{"feed_preset": "hn"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t, "/news")

	w := h.do(http.MethodOptions, "/news/submit", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestResponseTimeHeaderIsSent(t *testing.T) {
	h := newHarness(t, "/news")
	h.seed(t, 1, "DAG0a")

	w := h.do(http.MethodGet, "/news/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Result().Header.Get("X-Response-Time"))

	w = h.do(http.MethodOptions, "/news/submit", nil)
	assert.NotEmpty(t, w.Result().Header.Get("X-Response-Time"))

	w = h.do(http.MethodGet, "/news/not-an-id", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, w.Result().Header.Get("X-Response-Time"))
}
