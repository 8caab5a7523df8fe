// Package testutil provides testing utilities for the Omnivore export client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/Sternrassler/omnivore-export/pkg/client"
)

// GraphQLPath is the path the mock serves the search query on.
const GraphQLPath = "/api/graphql"

// MockResponse defines a canned response for the mock server.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is what the mock saw for one POST.
type RecordedRequest struct {
	Cookie      string
	ContentType string
	Query       string
	Variables   map[string]json.RawMessage

	// After is the decoded "after" variable; nil when absent or null.
	After *string
}

// HasAfter reports whether the request carried a non-null "after" variable.
func (r RecordedRequest) HasAfter() bool {
	return r.After != nil
}

// MockOmnivore is a scripted Omnivore GraphQL server for testing.
// Pages are looked up by the "after" cursor of each request; the empty
// string key is the first page.
type MockOmnivore struct {
	server *httptest.Server

	mu       sync.RWMutex
	pages    map[string]client.Page
	override *MockResponse
	requests []RecordedRequest
}

// NewMockOmnivore creates a new mock server.
func NewMockOmnivore() *MockOmnivore {
	mock := &MockOmnivore{
		pages: make(map[string]client.Page),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the API base to configure the client with.
func (m *MockOmnivore) URL() string {
	return m.server.URL + "/api"
}

// Close shuts down the mock server.
func (m *MockOmnivore) Close() {
	m.server.Close()
}

// SetPages scripts a chain of pages. Page i is served for the cursor equal to
// the EndCursor of page i-1; the first page is served when no cursor is sent.
func (m *MockOmnivore) SetPages(pages ...client.Page) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pages = make(map[string]client.Page, len(pages))
	key := ""
	for _, p := range pages {
		m.pages[key] = p
		key = p.PageInfo.EndCursor
	}
}

// SetPage serves page for a specific cursor ("" for the first page).
func (m *MockOmnivore) SetPage(cursor string, page client.Page) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[cursor] = page
}

// SetResponse makes every request return resp regardless of cursor.
func (m *MockOmnivore) SetResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.override = &resp
}

// Requests returns a copy of the recorded requests in arrival order.
func (m *MockOmnivore) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockOmnivore) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

func (m *MockOmnivore) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != GraphQLPath {
		http.NotFound(w, r)
		return
	}

	var body struct {
		Query     string                     `json:"query"`
		Variables map[string]json.RawMessage `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf(`{"error": %q}`, err.Error()), http.StatusBadRequest)
		return
	}

	rec := RecordedRequest{
		Cookie:      r.Header.Get("Cookie"),
		ContentType: r.Header.Get("Content-Type"),
		Query:       body.Query,
		Variables:   body.Variables,
	}
	if raw, ok := body.Variables["after"]; ok {
		var after *string
		if err := json.Unmarshal(raw, &after); err == nil {
			rec.After = after
		}
	}

	m.mu.Lock()
	m.requests = append(m.requests, rec)
	override := m.override
	key := ""
	if rec.After != nil {
		key = *rec.After
	}
	page, found := m.pages[key]
	m.mu.Unlock()

	if override != nil {
		if override.Delay > 0 {
			select {
			case <-time.After(override.Delay):
			case <-r.Context().Done():
				return
			}
		}
		for k, v := range override.Headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(override.StatusCode)
		if override.Body != "" {
			w.Write([]byte(override.Body))
		}
		return
	}

	if !found {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"errors": [{"message": "unknown cursor %q"}]}`, key)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"data": map[string]any{"search": page},
	})
}

// NewItems returns n content items with slugs "item-1" to "item-n".
func NewItems(n int) []client.Item {
	items := make([]client.Item, n)
	for i := range items {
		items[i] = client.Item{
			ID:      fmt.Sprintf("id-%d", i+1),
			Slug:    fmt.Sprintf("item-%d", i+1),
			Title:   fmt.Sprintf("Item %d", i+1),
			Content: fmt.Sprintf("# Item %d\n\nBody of item %d.\n", i+1, i+1),
		}
	}
	return items
}

// Paginate splits items into pages of pageSize with cursors "cursor-1", "cursor-2" and so on
// Only the last page reports HasNextPage=false. Zero items produce one empty page.
func Paginate(items []client.Item, pageSize int) []client.Page {
	if pageSize <= 0 {
		pageSize = len(items)
	}
	var pages []client.Page
	for start := 0; start < len(items) || len(pages) == 0; start += pageSize {
		end := min(start+pageSize, len(items))
		n := len(pages) + 1
		page := client.Page{
			PageInfo: client.PageInfo{
				HasNextPage: end < len(items),
				EndCursor:   fmt.Sprintf("cursor-%d", n),
				TotalCount:  len(items),
			},
		}
		for i, item := range items[start:end] {
			page.Edges = append(page.Edges, client.Edge{
				Cursor: fmt.Sprintf("cursor-%d-%d", n, i),
				Node:   item,
			})
		}
		pages = append(pages, page)
		if end >= len(items) {
			break
		}
	}
	return pages
}

// NewErrorCodesPage returns a SearchError-style page.
func NewErrorCodesPage(codes ...string) client.Page {
	return client.Page{ErrorCodes: codes}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewUnauthorizedResponse creates a 401 response as sent for a bad auth cookie.
func NewUnauthorizedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"errorCodes": ["UNAUTHORIZED"]}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewMalformedResponse creates a 200 response whose body is not JSON.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `<html>not json</html>`,
	}
}
