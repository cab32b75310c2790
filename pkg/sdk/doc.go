// Package catalograg embeds the catalog retrieval pipeline in a Go program.
//
// A Client embeds free-text shopping queries through a bounded TTL cache,
// extracts structured attributes, runs a scoped vector search against Qdrant
// or a Redis/Valkey search index, rescores candidates by attribute matches
// and engagement signals, and optionally reranks them with a cross-encoder.
//
//	client, err := catalograg.New(ctx,
//	    catalograg.WithQdrant("localhost:6334", ""),
//	    catalograg.WithOpenAI(os.Getenv("OPENAI_API_KEY"), "", "text-embedding-3-small"),
//	    catalograg.WithExtraction("gpt-4o-mini"),
//	)
//	if err != nil { ... }
//	defer client.Close()
//
//	res, err := client.RetrieveContext(ctx, "red running shoes under 100",
//	    catalograg.RetrieveOptions{Scope: "shop1", DisplayCount: 5})
//
// Embedding provider and vector search failures abort a retrieval. Attribute
// extraction and rerank failures degrade it: the result is still returned and
// Metadata.Degradations records what was skipped.
package catalograg
