// Package knowspace provides an embeddable per-workspace knowledge store
// for Go: upload documents, search them semantically, and generate grounded
// answers from what was retrieved.
//
// # Quick Start
//
//	ctx := context.Background()
//	ks, _ := knowspace.New(modelFactory, knowspace.WithLocalStorage("./data"))
//	defer ks.Close()
//
//	receipt, _ := ks.Ingest(ctx, "my-team", "handbook.pdf", pdfBytes)
//	results, _ := ks.Retrieve(ctx, "my-team", "how do refunds work?")
//
// With a generator configured, Ask produces a grounded answer:
//
//	answer, _ := ks.Ask(ctx, "my-team", "how do refunds work?")
//	fmt.Println(answer.Text, answer.Confidence)
//
// # Workspaces
//
// Every operation is scoped by a workspace key. Workspaces are fully
// isolated: each owns its own vector index and metadata, persisted as one
// artifact pair, and never sees another workspace's documents. An empty key
// maps to the shared "anonymous" workspace.
//
// # Storage
//
// State lives behind a blob store. Local disk and in-memory stores ship in
// the blobstore package; an S3-compatible store ships in blobstore/minio.
// Artifact writes are atomic, so a crash never leaves a half-written index.
//
// # Embedding
//
// The embedding model is constructed lazily on first use and shared across
// all workspaces. ResetModel tears it down; the next call rebuilds it.
package knowspace
