package main

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"math"
	"strings"

	"github.com/aggroso/knowspace"
	"github.com/aggroso/knowspace/embedding"
)

const dim = 384

// hashingModel is a deterministic stand-in for a real embedding model: each
// word hashes onto one vector component. Good enough to demo the pipeline
// without a model server.
type hashingModel struct{}

func (hashingModel) Encode(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, txt := range texts {
		v := make([]float32, dim)
		for _, word := range strings.Fields(strings.ToLower(txt)) {
			h := fnv.New32a()
			h.Write([]byte(word))
			v[h.Sum32()%dim]++
		}
		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		if norm == 0 {
			v[0] = 1
		} else {
			scale := float32(1 / math.Sqrt(norm))
			for j := range v {
				v[j] *= scale
			}
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (hashingModel) Dimension() int { return dim }

func main() {
	ctx := context.Background()

	ks, err := knowspace.New(func(context.Context) (embedding.Model, error) {
		return hashingModel{}, nil
	}, knowspace.WithLocalStorage("./data"))
	if err != nil {
		log.Fatal(err)
	}
	defer ks.Close()

	docs := map[string]string{
		"handbook.txt": "Vacation policy: employees accrue fifteen days of paid vacation per year. Unused days roll over once.",
		"billing.md":   "Billing runs on the first of each month. Invoices are due within thirty days.",
	}

	fmt.Println("--- Ingest ---")
	for filename, text := range docs {
		receipt, err := ks.IngestText(ctx, "demo", filename, text)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%s -> doc %s (%d chunks)\n", filename, receipt.DocID, receipt.ChunkCount)
	}

	fmt.Println("\n--- Retrieve ---")
	results, err := ks.Retrieve(ctx, "demo", "how many vacation days do I get?")
	if err != nil {
		log.Fatal(err)
	}
	for _, r := range results {
		fmt.Printf("[%s] distance=%.4f  %s\n", r.Document, r.Distance, r.Text)
	}

	fmt.Println("\n--- Documents ---")
	infos, err := ks.Documents(ctx, "demo")
	if err != nil {
		log.Fatal(err)
	}
	for _, info := range infos {
		fmt.Printf("%s  %s\n", info.DocID, info.Filename)
	}
}
