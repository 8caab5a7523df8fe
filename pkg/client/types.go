package client

import "strings"

// Page is one page of the search connection as returned by the API.
//
// The service returns either edges plus pageInfo (SearchSuccess) or errorCodes
// (SearchError). Page does not enforce that: an error page decodes to an empty
// edge list with whatever pageInfo the service supplied.
type Page struct {
	Edges      []Edge   `json:"edges"`
	PageInfo   PageInfo `json:"pageInfo"`
	ErrorCodes []string `json:"errorCodes,omitempty"`
}

// HasErrorCodes reports whether the service flagged this page with errorCodes.
func (p *Page) HasErrorCodes() bool {
	return len(p.ErrorCodes) > 0
}

// Edge pairs an item with its position in the result set.
type Edge struct {
	Cursor string `json:"cursor"`
	Node   Item   `json:"node"`
}

// PageInfo carries the continuation state of a page.
type PageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
	TotalCount  int    `json:"totalCount"`
}

// Item is a single saved reading-list entry.
// Which fields are populated depends on the Shape the page was fetched with.
type Item struct {
	ID                 string      `json:"id,omitempty"`
	Slug               string      `json:"slug,omitempty"`
	Title              string      `json:"title,omitempty"`
	Content            string      `json:"content,omitempty"`
	OriginalArticleURL string      `json:"originalArticleUrl,omitempty"`
	Highlights         []Highlight `json:"highlights,omitempty"`
}

// Key returns the most stable identifier available for the item.
func (i Item) Key() string {
	if i.Slug != "" {
		return i.Slug
	}
	return i.ID
}

// Highlight is a quoted excerpt of an item with an optional note.
type Highlight struct {
	ID         string `json:"id"`
	Quote      string `json:"quote"`
	Annotation string `json:"annotation,omitempty"`
}

// searchEnvelope is the JSON body of a /graphql response.
type searchEnvelope struct {
	Data *struct {
		Search *Page `json:"search"`
	} `json:"data"`
	Errors []graphQLError `json:"errors,omitempty"`
}

func (e searchEnvelope) errorMessages() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Message)
	}
	return strings.Join(msgs, "; ")
}

type graphQLError struct {
	Message string `json:"message"`
}

// searchRequest is the JSON body of a /graphql request.
type searchRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}
