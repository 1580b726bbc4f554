package notion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	notionopts "github.com/kart-io/abhyasam/pkg/options/notion"
	"github.com/kart-io/abhyasam/pkg/utils/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts := notionopts.NewOptions()
	opts.BaseURL = server.URL
	opts.Token = "secret-token"
	opts.Timeout = 5 * time.Second
	opts.MaxRetries = 0
	return NewClient(opts)
}

func TestSearchPages_Pagination(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/search", r.URL.Path)
		require.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		require.Equal(t, "2022-06-28", r.Header.Get("Notion-Version"))

		calls++
		w.Header().Set("Content-Type", "application/json")
		if calls == 1 {
			_, _ = w.Write([]byte(`{
				"results": [{
					"id": "page-1",
					"last_edited_time": "2025-01-01T00:00:00.000Z",
					"properties": {"Name": {"type": "title", "title": [{"plain_text": "Kubernetes Notes"}]}}
				}],
				"has_more": true,
				"next_cursor": "cur-2"
			}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"results": [{
				"id": "page-2",
				"last_edited_time": "2025-01-02T00:00:00.000Z",
				"properties": {"Name": {"type": "title", "title": []}}
			}],
			"has_more": false,
			"next_cursor": null
		}`))
	})

	pages, err := client.SearchPages(context.Background())
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "Kubernetes Notes", pages[0].Title)
	// 无标题时回退为 Untitled
	assert.Equal(t, "Untitled", pages[1].Title)
	assert.Equal(t, "2025-01-02T00:00:00.000Z", pages[1].LastEditedTime)
}

func TestSearchPages_Unavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.SearchPages(context.Background())
	require.Error(t, err)
	assert.True(t, errors.ErrSourceUnavailable.Is(err))
}

func TestGetPageContent_Rendering(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/blocks/page-1/children", r.URL.Path)
		require.Equal(t, "100", r.URL.Query().Get("page_size"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"results": [
				{"type": "paragraph", "paragraph": {"rich_text": [{"plain_text": "Pods run "}, {"plain_text": "containers."}]}},
				{"type": "paragraph", "paragraph": {"rich_text": []}},
				{"type": "image", "image": {"file": {"url": "https://example.com/a.png"}}},
				{"type": "code", "code": {"rich_text": [{"plain_text": "kubectl get pods"}]}},
				{"type": "divider", "divider": {}}
			],
			"has_more": false,
			"next_cursor": null
		}`))
	})

	content, err := client.GetPageContent(context.Background(), "page-1")
	require.NoError(t, err)
	// 空 rich_text 的文本块渲染为空并被丢弃，占位符只用于非文本块
	assert.Equal(t, "Pods run containers.\n[Image]\n[Code]\nkubectl get pods\n[divider block]", content)
}

func TestGetPageContent_PartialOnMidPaginationFailure(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"results": [{"type": "paragraph", "paragraph": {"rich_text": [{"plain_text": "first page of blocks"}]}}],
				"has_more": true,
				"next_cursor": "cur-2"
			}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	content, err := client.GetPageContent(context.Background(), "page-1")
	require.Error(t, err)
	assert.True(t, errors.ErrSourceUnavailable.Is(err))
	// 已获取的块随错误一并返回，由调用方决定是否使用
	assert.Equal(t, "first page of blocks", content)
}

func TestGetPage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/pages/page-9", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "page-9",
			"last_edited_time": "2025-03-05T10:00:00.000Z",
			"properties": {"title": {"type": "title", "title": [{"plain_text": "Milvus "}, {"plain_text": "Index"}]}}
		}`))
	})

	page, err := client.GetPage(context.Background(), "page-9")
	require.NoError(t, err)
	assert.Equal(t, "Milvus Index", page.Title)
	assert.Equal(t, "2025-03-05T10:00:00.000Z", page.LastEditedTime)
}
