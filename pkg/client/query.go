package client

import (
	"fmt"
	"strings"
)

// Shape selects which node fields and request flags a search query uses.
type Shape struct {
	// Name identifies the shape in logs and on the command line.
	Name string

	// Fields are the GraphQL selections requested for each node.
	Fields []string

	// IncludeContent asks the service to return the item body in Format.
	IncludeContent bool
	Format         string

	// Sort is optional; nil leaves ordering to the service.
	Sort *Sort
}

// Sort is the search sort specification.
type Sort struct {
	Order string `json:"order"`
	By    string `json:"by"`
}

var (
	// ShapeContent requests the markdown body of each item.
	ShapeContent = Shape{
		Name:           "content",
		Fields:         []string{"slug", "content"},
		IncludeContent: true,
		Format:         "markdown",
	}

	// ShapeHighlights requests item metadata and its highlights, oldest update first.
	ShapeHighlights = Shape{
		Name: "highlights",
		Fields: []string{
			"id",
			"slug",
			"title",
			"originalArticleUrl",
			"highlights { id quote annotation }",
		},
		Sort: &Sort{Order: "ASCENDING", By: "UPDATED_TIME"},
	}
)

// ShapeByName returns a built-in shape.
func ShapeByName(name string) (Shape, error) {
	switch strings.ToLower(name) {
	case ShapeContent.Name:
		return ShapeContent, nil
	case ShapeHighlights.Name:
		return ShapeHighlights, nil
	default:
		return Shape{}, fmt.Errorf("unknown query shape %q", name)
	}
}

// Document renders the GraphQL search document for the shape.
func (s Shape) Document() string {
	params := []string{"$after: String", "$first: Int", "$query: String"}
	args := []string{"after: $after", "first: $first", "query: $query"}
	if s.IncludeContent {
		params = append(params, "$includeContent: Boolean", "$format: String")
		args = append(args, "includeContent: $includeContent", "format: $format")
	}
	if s.Sort != nil {
		params = append(params, "$sort: SortParams")
		args = append(args, "sort: $sort")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "query Search(%s) {\n", strings.Join(params, ", "))
	fmt.Fprintf(&b, "  search(%s) {\n", strings.Join(args, ", "))
	b.WriteString("    ... on SearchSuccess {\n")
	b.WriteString("      edges {\n        cursor\n        node {\n")
	for _, f := range s.Fields {
		fmt.Fprintf(&b, "          %s\n", f)
	}
	b.WriteString("        }\n      }\n")
	b.WriteString("      pageInfo {\n        hasNextPage\n        endCursor\n        totalCount\n      }\n")
	b.WriteString("    }\n")
	b.WriteString("    ... on SearchError {\n      errorCodes\n    }\n")
	b.WriteString("  }\n}\n")
	return b.String()
}

// Variables builds the request variables. A nil cursor is sent as JSON null,
// which the service reads as the start of the result set.
func (s Shape) Variables(cursor *string, limit int, searchQuery string) map[string]any {
	vars := map[string]any{
		"after": cursor,
		"first": limit,
		"query": searchQuery,
	}
	if s.IncludeContent {
		vars["includeContent"] = true
		vars["format"] = s.Format
	}
	if s.Sort != nil {
		vars["sort"] = s.Sort
	}
	return vars
}

func (s Shape) validate() error {
	if len(s.Fields) == 0 {
		return fmt.Errorf("query shape %q selects no fields", s.Name)
	}
	if s.IncludeContent && s.Format == "" {
		return fmt.Errorf("query shape %q includes content without a format", s.Name)
	}
	return nil
}
