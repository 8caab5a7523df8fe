// Package pagination walks the Omnivore search connection page by page.
//
// The service pages with opaque cursors: every page carries pageInfo.endCursor
// and pageInfo.hasNextPage, and the next page is requested with after=endCursor.
// A Traversal turns that into a lazy, single-pass stream of items.
//
// Example usage:
//
//	c, _ := client.New(client.DefaultConfig(token))
//	cfg := pagination.DefaultConfig()
//	cfg.SearchQuery = "in:inbox"
//	for item, err := range pagination.New(c, cfg).All(ctx) {
//		if err != nil {
//			return err
//		}
//		fmt.Println(item.Slug)
//	}
//
// The traversal:
//   - Fetches a page only when its buffer is empty and the caller asks for more
//   - Yields items in the service's page-by-page, edge-by-edge order
//   - Stops after the first page reporting hasNextPage=false
//   - Never retries; the first fetch error ends the traversal
//   - Has at most one fetch in flight
//
// A page carrying errorCodes instead of edges yields nothing, and its pageInfo
// still decides whether traversal continues. Config.MaxPages can bound a
// service that never reports hasNextPage=false.
package pagination
