// Package feed implements the photo feed controller.
//
// A Controller pages through the Pexels curated listing or the results of a
// search, merging each page into a single list that ends with a loading
// placeholder while more pages exist. Typing is debounced through SetQuery;
// a new search abandons the request in flight and its late result is
// dropped.
//
// Usage:
//
//	c := feed.New(pexelsClient, feed.WithDebounce(300*time.Millisecond))
//	defer c.Close()
//
//	c.Photos().Subscribe(func(list []model.Photo) { render(list) })
//	c.Errors().Subscribe(func(e *feed.ErrorInfo) { showError(e) })
//	c.FetchMore()
//
// State is published through observable values that replay the latest value
// to late subscribers. Nothing is published before the first fetch.
package feed
