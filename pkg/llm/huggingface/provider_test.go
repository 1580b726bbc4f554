package huggingface

import (
	"math"
	"testing"
)

func TestParseEmbeddingsSentenceLevel(t *testing.T) {
	got, err := parseEmbeddings([]byte(`[[0.1,0.2],[0.3,0.4]]`))
	if err != nil {
		t.Fatalf("parseEmbeddings failed: %v", err)
	}
	if len(got) != 2 || len(got[0]) != 2 {
		t.Fatalf("unexpected shape: %v", got)
	}
}

func TestParseEmbeddingsTokenMean(t *testing.T) {
	// token 级输出取平均
	got, err := parseEmbeddings([]byte(`[[[1,2],[3,4]]]`))
	if err != nil {
		t.Fatalf("parseEmbeddings failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 embedding, got %d", len(got))
	}
	if math.Abs(float64(got[0][0])-2) > 1e-6 || math.Abs(float64(got[0][1])-3) > 1e-6 {
		t.Errorf("unexpected mean: %v", got[0])
	}
}

func TestParseEmbeddingsMalformed(t *testing.T) {
	if _, err := parseEmbeddings([]byte(`{"error":"loading"}`)); err == nil {
		t.Error("expected error for malformed payload")
	}
}
