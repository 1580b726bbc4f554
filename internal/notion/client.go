// Package notion implements the workspace-notes source client. It lists pages,
// reads page metadata, and renders block trees into plain text for indexing.
package notion

import (
	"bytes"
	"context"
	stdjson "encoding/json"
	"fmt"
	"net/http"
	"strings"

	notionopts "github.com/kart-io/abhyasam/pkg/options/notion"
	"github.com/kart-io/abhyasam/pkg/utils/errors"
	"github.com/kart-io/abhyasam/pkg/utils/httpclient"
	"github.com/kart-io/abhyasam/pkg/utils/json"
)

const blocksPageSize = 100

// Page holds the metadata the sync pipeline needs from a source page.
type Page struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	LastEditedTime string `json:"last_edited_time"`
}

// Client talks to the workspace-notes HTTP API.
type Client struct {
	baseURL string
	token   string
	version string
	http    *httpclient.Client
}

// NewClient creates a source client from validated options.
func NewClient(opts *notionopts.Options) *Client {
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		version: opts.Version,
		http:    httpclient.NewClient(opts.Timeout, opts.MaxRetries),
	}
}

type richText struct {
	PlainText string `json:"plain_text"`
}

type pageObject struct {
	ID             string `json:"id"`
	LastEditedTime string `json:"last_edited_time"`
	Properties     map[string]struct {
		Type  string     `json:"type"`
		Title []richText `json:"title"`
	} `json:"properties"`
}

func (p *pageObject) title() string {
	for _, prop := range p.Properties {
		if prop.Type != "title" {
			continue
		}
		var sb strings.Builder
		for _, rt := range prop.Title {
			sb.WriteString(rt.PlainText)
		}
		if s := strings.TrimSpace(sb.String()); s != "" {
			return s
		}
	}
	return "Untitled"
}

type searchResponse struct {
	Results    []pageObject `json:"results"`
	HasMore    bool         `json:"has_more"`
	NextCursor string       `json:"next_cursor"`
}

// SearchPages lists every page shared with the integration, following
// cursor pagination to the end.
func (c *Client) SearchPages(ctx context.Context) ([]Page, error) {
	var pages []Page
	cursor := ""

	for {
		body := map[string]any{
			"filter": map[string]string{"property": "object", "value": "page"},
		}
		if cursor != "" {
			body["start_cursor"] = cursor
		}

		var resp searchResponse
		if err := c.postJSON(ctx, "/v1/search", body, &resp); err != nil {
			return nil, errors.ErrSourceUnavailable.WithCause(err)
		}

		for i := range resp.Results {
			p := &resp.Results[i]
			pages = append(pages, Page{
				ID:             p.ID,
				Title:          p.title(),
				LastEditedTime: p.LastEditedTime,
			})
		}

		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	return pages, nil
}

// GetPage fetches a single page's metadata.
func (c *Client) GetPage(ctx context.Context, pageID string) (*Page, error) {
	var obj pageObject
	if err := c.getJSON(ctx, "/v1/pages/"+pageID, &obj); err != nil {
		return nil, errors.ErrSourceUnavailable.WithCause(err)
	}
	return &Page{ID: obj.ID, Title: obj.title(), LastEditedTime: obj.LastEditedTime}, nil
}

type blockListResponse struct {
	Results    []stdjson.RawMessage `json:"results"`
	HasMore    bool                 `json:"has_more"`
	NextCursor string               `json:"next_cursor"`
}

// GetPageContent fetches all child blocks of a page and renders them to plain
// text. On a mid-pagination failure it returns the text accumulated so far
// alongside the error so callers can decide whether partial content is usable.
func (c *Client) GetPageContent(ctx context.Context, pageID string) (string, error) {
	var lines []string
	cursor := ""

	for {
		path := fmt.Sprintf("/v1/blocks/%s/children?page_size=%d", pageID, blocksPageSize)
		if cursor != "" {
			path += "&start_cursor=" + cursor
		}

		var resp blockListResponse
		if err := c.getJSON(ctx, path, &resp); err != nil {
			return strings.Join(lines, "\n"), errors.ErrSourceUnavailable.WithCause(err)
		}

		for _, raw := range resp.Results {
			if line := renderBlock(raw); line != "" {
				lines = append(lines, line)
			}
		}

		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	return strings.Join(lines, "\n"), nil
}

// renderBlock flattens one block into a text line. Text-bearing block types
// render their rich text (possibly empty); non-text types become typed
// placeholders so chunk boundaries stay stable.
func renderBlock(raw stdjson.RawMessage) string {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Type == "" {
		return ""
	}

	var fields map[string]stdjson.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ""
	}

	text := ""
	hasRichText := false
	if payload, ok := fields[envelope.Type]; ok {
		var body map[string]stdjson.RawMessage
		if err := json.Unmarshal(payload, &body); err == nil {
			if rtRaw, ok := body["rich_text"]; ok {
				hasRichText = true
				var rts []richText
				if err := json.Unmarshal(rtRaw, &rts); err == nil {
					var sb strings.Builder
					for _, rt := range rts {
						sb.WriteString(rt.PlainText)
					}
					text = sb.String()
				}
			}
		}
	}

	switch envelope.Type {
	case "image":
		return "[Image]"
	case "code":
		return "[Code]\n" + text
	}
	if hasRichText {
		return text
	}
	return "[" + envelope.Type + " block]"
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	return c.http.DoJSON(req, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	return c.http.DoJSON(req, out)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.version)
}
