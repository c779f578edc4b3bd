// Package lexical provides the BM25 full-text index over chunk content and
// file paths, built lazily inside the .ck/ directory on first lexical query.
package lexical

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	regexptok "github.com/blevesearch/bleve/v2/analysis/tokenizer/regexp"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/semcs/ck/internal/core"
)

const (
	pathTokenizerName = "path_tokenizer"
	pathAnalyzerName  = "path_analyzer"
)

// IndexDirName is the BM25 artifact directory under .ck/.
const IndexDirName = "bleve_index"

// Document is one indexed chunk. PathRaw is filled automatically and backs
// exact-match deletion.
type Document struct {
	// ID is "<relative path>:<line_start>:<line_end>".
	ID      string `json:"-"`
	Path    string `json:"path"`
	PathRaw string `json:"path_raw"`
	Content string `json:"content"`
}

// Hit is one scored lexical match. Score is normalized to 0-1 by dividing by
// the max score in the result set.
type Hit struct {
	ID    string
	Path  string
	Score float64
}

// Index wraps a bleve index over (content, path).
type Index struct {
	mu   sync.RWMutex
	idx  bleve.Index
	path string
}

// IndexPath returns the artifact directory for a search root.
func IndexPath(root string) string {
	return filepath.Join(root, core.IndexDirName, IndexDirName)
}

// Open opens the index at root, creating it when absent.
func Open(root string) (*Index, error) {
	path := IndexPath(root)

	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, mkErr
		}
		idx, err = bleve.New(path, buildMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("open bm25 index: %w", err)
	}

	return &Index{idx: idx, path: path}, nil
}

// Exists reports whether BM25 artifacts are present for root.
func Exists(root string) bool {
	info, err := os.Stat(IndexPath(root))
	return err == nil && info.IsDir()
}

func buildMapping() *mapping.IndexMappingImpl {
	m := bleve.NewIndexMapping()

	// Paths tokenize on separators so "auth/session.go" answers "session".
	_ = m.AddCustomTokenizer(pathTokenizerName, map[string]interface{}{
		"type":   regexptok.Name,
		"regexp": `[\p{L}\p{N}]+`,
	})
	_ = m.AddCustomAnalyzer(pathAnalyzerName, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     pathTokenizerName,
		"token_filters": []string{lowercase.Name},
	})

	docMapping := bleve.NewDocumentMapping()

	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = standard.Name
	contentField.Store = true
	docMapping.AddFieldMappingsAt("content", contentField)

	pathField := bleve.NewTextFieldMapping()
	pathField.Analyzer = pathAnalyzerName
	pathField.Store = true
	docMapping.AddFieldMappingsAt("path", pathField)

	pathRawField := bleve.NewTextFieldMapping()
	pathRawField.Analyzer = keyword.Name
	pathRawField.Store = false
	docMapping.AddFieldMappingsAt("path_raw", pathRawField)

	m.DefaultMapping = docMapping
	return m
}

// Add indexes documents in one batch.
func (i *Index) Add(docs []Document) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.idx.NewBatch()
	for _, d := range docs {
		if d.PathRaw == "" {
			d.PathRaw = d.Path
		}
		if err := batch.Index(d.ID, d); err != nil {
			return err
		}
	}
	return i.idx.Batch(batch)
}

// DeletePath removes all documents whose path is exactly relPath.
func (i *Index) DeletePath(relPath string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	q := bleve.NewTermQuery(relPath)
	q.SetField("path_raw")
	req := bleve.NewSearchRequest(q)
	req.Size = 10000
	res, err := i.idx.Search(req)
	if err != nil {
		return err
	}

	batch := i.idx.NewBatch()
	for _, hit := range res.Hits {
		batch.Delete(hit.ID)
	}
	return i.idx.Batch(batch)
}

// Search runs a BM25 match query over content and path, returning up to
// limit hits with scores normalized to the best hit.
func (i *Index) Search(queryText string, limit int) ([]Hit, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	contentQuery := bleve.NewMatchQuery(queryText)
	contentQuery.SetField("content")
	pathQuery := bleve.NewMatchQuery(queryText)
	pathQuery.SetField("path")
	pathQuery.SetBoost(0.5)

	disjunction := bleve.NewDisjunctionQuery([]query.Query{contentQuery, pathQuery}...)

	req := bleve.NewSearchRequest(disjunction)
	req.Size = limit
	req.Fields = []string{"path"}

	res, err := i.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("bm25 search: %w", err)
	}

	if len(res.Hits) == 0 {
		return nil, nil
	}

	maxScore := res.Hits[0].Score
	for _, h := range res.Hits {
		if h.Score > maxScore {
			maxScore = h.Score
		}
	}
	if maxScore == 0 {
		maxScore = 1
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		path, _ := h.Fields["path"].(string)
		hits = append(hits, Hit{
			ID:    h.ID,
			Path:  path,
			Score: h.Score / maxScore,
		})
	}
	return hits, nil
}

// DocCount returns the number of indexed documents.
func (i *Index) DocCount() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.idx.DocCount()
}

// Close releases the index.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.idx.Close()
}
