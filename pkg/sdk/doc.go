// Package vecsearch provides a Go client for composing full-text and vector
// search requests and managing search indexes.
//
// A request starts from either a lexical clause (a bleve query) or a vector
// search, and may be augmented once with the other kind to form a hybrid
// request. Indexing is asynchronous, so fresh writes become searchable only
// after a delay; SearchService.WaitUntil re-issues a request until the
// result satisfies a predicate or a deadline passes.
//
// # Lexical, vector and hybrid requests
//
//	client, _ := vecsearch.New(ctx, vecsearch.WithFTS("http://localhost:8094", "admin", "secret"))
//	defer client.Close()
//
//	probe, _ := vecsearch.NewVectorQuery("embedding", vec)
//	req, _ := vecsearch.NewSearchRequest(query.NewMatchQuery("ocean view"))
//	req, _ = req.WithVectorSearch(probe)
//	set, _ := client.Search("hotels").Execute(ctx, req, vecsearch.SearchOptions{Limit: 10})
//
// # Waiting for indexing
//
//	set, err := client.Search("hotels").WaitForCount(ctx, req, vecsearch.SearchOptions{}, 3)
//	var pe *vecsearch.PollError
//	if errors.As(err, &pe) {
//	    log.Printf("gave up after %d attempts, last saw %d rows", pe.Attempts, pe.LastRows)
//	}
package vecsearch
