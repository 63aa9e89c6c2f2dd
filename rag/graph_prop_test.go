package rag

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"
)

// 随机图上的扩展不变式：
//   - 种子永不出现在结果里；
//   - 结果数不超过 maxResults；
//   - 跳数落在 [1, maxDepth]；
//   - 衰减保证 GraphScore < PathWeight，且都在 (0, 1] 内。
func TestExpandInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 20).Draw(t, "nodes")
		g := NewRelationshipGraph(DefaultGraphConfig(), nil)

		ids := make([]string, n)
		for i := 0; i < n; i++ {
			ids[i] = fmt.Sprintf("c%d", i)
			if err := g.AddChunk(Chunk{ID: ids[i]}); err != nil {
				t.Fatalf("add chunk: %v", err)
			}
		}

		edges := rapid.IntRange(0, n*2).Draw(t, "edges")
		for i := 0; i < edges; i++ {
			a := rapid.IntRange(0, n-1).Draw(t, "a")
			b := rapid.IntRange(0, n-1).Draw(t, "b")
			if a == b {
				continue
			}
			w := rapid.Float64Range(0.05, 1.0).Draw(t, "w")
			if err := g.AddEdge(ids[a], ids[b], w); err != nil {
				t.Fatalf("add edge: %v", err)
			}
		}

		seedCount := rapid.IntRange(1, n).Draw(t, "seedCount")
		seeds := make([]string, 0, seedCount)
		seedSet := make(map[string]bool, seedCount)
		for i := 0; i < seedCount; i++ {
			id := ids[rapid.IntRange(0, n-1).Draw(t, "seed")]
			if !seedSet[id] {
				seeds = append(seeds, id)
				seedSet[id] = true
			}
		}

		maxDepth := rapid.IntRange(1, 4).Draw(t, "maxDepth")
		maxResults := rapid.IntRange(1, n).Draw(t, "maxResults")

		results := g.Expand(seeds, maxDepth, maxResults)

		if len(results) > maxResults {
			t.Fatalf("got %d results, max %d", len(results), maxResults)
		}
		seen := make(map[string]bool, len(results))
		for _, r := range results {
			if seedSet[r.Chunk.ID] {
				t.Fatalf("seed %s returned by expansion", r.Chunk.ID)
			}
			if seen[r.Chunk.ID] {
				t.Fatalf("chunk %s returned twice", r.Chunk.ID)
			}
			seen[r.Chunk.ID] = true
			if r.HopDistance < 1 || r.HopDistance > maxDepth {
				t.Fatalf("hop %d outside [1,%d]", r.HopDistance, maxDepth)
			}
			if r.PathWeight <= 0 || r.PathWeight > 1 {
				t.Fatalf("path weight %f outside (0,1]", r.PathWeight)
			}
			if r.GraphScore <= 0 || r.GraphScore >= r.PathWeight {
				t.Fatalf("graph score %f not strictly below path weight %f", r.GraphScore, r.PathWeight)
			}
		}
	})
}
