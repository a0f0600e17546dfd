// Package pagination merges successive Pexels pages into one ordered list.
//
// Pexels paginates curated and search listings with a page number and a
// next_page URL; the absence of next_page marks the last page. The feed
// controller keeps one accumulated list per session and hands every newly
// fetched page to Merge, which produces the next list to publish.
//
// Example usage:
//
//	list := pagination.Merge(nil, page1)   // page1.Photos (+ placeholder)
//	list = pagination.Merge(list, page2)   // page1.Photos + page2.Photos (+ placeholder)
//
// Merge:
//   - Strips a trailing loading placeholder from the previous list
//   - Discards the previous list entirely when the page number is 1
//   - Appends the page's photos in the order received
//   - Appends exactly one loading placeholder when the page has a successor
//
// Merge never modifies its input; the returned slice is freshly allocated so
// it can be published as an immutable snapshot.
package pagination
