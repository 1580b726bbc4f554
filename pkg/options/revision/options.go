// Package revision provides options for the indexing and retrieval pipeline.
package revision

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/abhyasam/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains pipeline configuration.
type Options struct {
	// Collection is the vector collection name.
	Collection string `json:"collection" mapstructure:"collection"`

	// Namespace is the partition the managed corpus lives in.
	Namespace string `json:"namespace" mapstructure:"namespace"`

	// Dimension is the embedding vector dimension.
	Dimension int `json:"dimension" mapstructure:"dimension"`

	// ChunkSize is the maximum chunk length in Unicode characters.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap is the overlap between consecutive chunks.
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// TopK is the default number of chunks retrieved per question.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// FetchK is the candidate pool size for MMR re-ranking.
	FetchK int `json:"fetch-k" mapstructure:"fetch-k"`

	// MMRLambda balances relevance against diversity in MMR mode.
	MMRLambda float64 `json:"mmr-lambda" mapstructure:"mmr-lambda"`

	// SnapshotPath is the cached-pages snapshot file.
	SnapshotPath string `json:"snapshot-path" mapstructure:"snapshot-path"`

	// DataDir holds generated artifacts such as the question bank.
	DataDir string `json:"data-dir" mapstructure:"data-dir"`

	// HistoryLimit is the number of chat exchanges kept per session.
	HistoryLimit int `json:"history-limit" mapstructure:"history-limit"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Collection:   "revision_notes",
		Namespace:    "notion-knowledge",
		Dimension:    384,
		ChunkSize:    500,
		ChunkOverlap: 50,
		TopK:         6,
		FetchK:       20,
		MMRLambda:    0.25,
		SnapshotPath: "data/cached_pages.json",
		DataDir:      "data",
		HistoryLimit: 10,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringVar(&o.Collection, p+"revision.collection", o.Collection, "Vector collection name.")
	fs.StringVar(&o.Namespace, p+"revision.namespace", o.Namespace, "Partition for the managed corpus.")
	fs.IntVar(&o.Dimension, p+"revision.dimension", o.Dimension, "Embedding vector dimension.")
	fs.IntVar(&o.ChunkSize, p+"revision.chunk-size", o.ChunkSize, "Maximum chunk length in characters.")
	fs.IntVar(&o.ChunkOverlap, p+"revision.chunk-overlap", o.ChunkOverlap, "Overlap between consecutive chunks.")
	fs.IntVar(&o.TopK, p+"revision.top-k", o.TopK, "Default number of retrieved chunks per question.")
	fs.IntVar(&o.FetchK, p+"revision.fetch-k", o.FetchK, "Candidate pool size for MMR re-ranking.")
	fs.Float64Var(&o.MMRLambda, p+"revision.mmr-lambda", o.MMRLambda, "MMR relevance/diversity balance in [0, 1].")
	fs.StringVar(&o.SnapshotPath, p+"revision.snapshot-path", o.SnapshotPath, "Cached-pages snapshot file path.")
	fs.StringVar(&o.DataDir, p+"revision.data-dir", o.DataDir, "Directory for generated artifacts.")
	fs.IntVar(&o.HistoryLimit, p+"revision.history-limit", o.HistoryLimit, "Chat exchanges kept per session.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Collection == "" {
		errs = append(errs, fmt.Errorf("revision collection is required"))
	}
	if o.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("revision dimension must be positive"))
	}
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("revision chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("revision chunk-overlap must be in [0, chunk-size)"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("revision top-k must be positive"))
	}
	if o.MMRLambda < 0 || o.MMRLambda > 1 {
		errs = append(errs, fmt.Errorf("revision mmr-lambda must be in [0, 1]"))
	}
	return errs
}
