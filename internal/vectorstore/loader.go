// Package vectorstore loads the local knowledge base into a retrieval index
// and keeps that index fresh while the service runs. Ranking is a plain
// term-overlap score behind eino's retriever contract, so the pipeline never
// sees anything but schema.Documents.
package vectorstore

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
	"github.com/fsnotify/fsnotify"
)

// chunkSize bounds how much of a source file lands in a single document.
const chunkSize = 800

// Loader builds the retrieval index from a directory of .txt/.md files and
// implements retriever.Retriever over it. The index is swapped atomically on
// rebuild; in-flight retrievals keep reading the snapshot they started with.
type Loader struct {
	dir   string
	topK  int
	index atomic.Pointer[index]
}

type index struct {
	docs  []*schema.Document
	terms []map[string]struct{}
}

// NewLoader configures a loader for the knowledge directory. topK bounds how
// many documents a single retrieval returns.
func NewLoader(dir string, topK int) *Loader {
	return &Loader{dir: dir, topK: topK}
}

// EnsureFresh builds the index from the current directory contents and
// returns the loader as a ready retriever. A missing directory is valid and
// yields an empty index: the chatbot runs without retrieval context.
func (l *Loader) EnsureFresh(_ context.Context) (retriever.Retriever, error) {
	if err := l.reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Watch rebuilds the index whenever the knowledge directory changes. It
// blocks until ctx is cancelled; run it in its own goroutine.
func (l *Loader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create knowledge watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(l.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", l.dir, err)
	}

	log.Printf("[vectorstore] watching %s for changes", l.dir)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				if err := l.reload(); err != nil {
					log.Printf("[vectorstore] reload after %s failed: %v", event.Name, err)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[vectorstore] watcher error: %v", err)
		}
	}
}

// Retrieve returns the topK documents whose terms overlap the query most.
func (l *Loader) Retrieve(_ context.Context, query string, _ ...retriever.Option) ([]*schema.Document, error) {
	idx := l.index.Load()
	if idx == nil || len(idx.docs) == 0 {
		return nil, nil
	}

	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return nil, nil
	}

	type scored struct {
		doc   *schema.Document
		score int
	}

	matches := make([]scored, 0, len(idx.docs))
	for i, doc := range idx.docs {
		score := 0
		for term := range queryTerms {
			if _, ok := idx.terms[i][term]; ok {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, scored{doc: doc, score: score})
		}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].score > matches[b].score
	})

	if len(matches) > l.topK {
		matches = matches[:l.topK]
	}

	docs := make([]*schema.Document, len(matches))
	for i, m := range matches {
		docs[i] = m.doc
	}
	return docs, nil
}

func (l *Loader) reload() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("[vectorstore] knowledge directory %s not found, retrieval disabled", l.dir)
			l.index.Store(&index{})
			return nil
		}
		return fmt.Errorf("failed to read knowledge directory: %w", err)
	}

	idx := &index{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".txt" && ext != ".md" {
			continue
		}

		content, err := os.ReadFile(filepath.Join(l.dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}

		for i, chunk := range splitChunks(string(content)) {
			doc := &schema.Document{
				ID:      fmt.Sprintf("%s#%d", entry.Name(), i),
				Content: chunk,
				MetaData: map[string]any{
					"source": entry.Name(),
				},
			}
			idx.docs = append(idx.docs, doc)
			idx.terms = append(idx.terms, tokenize(chunk))
		}
	}

	l.index.Store(idx)
	log.Printf("[vectorstore] index loaded, documents=%d", len(idx.docs))
	return nil
}

// splitChunks groups paragraphs into chunks of at most chunkSize characters.
// A single oversized paragraph becomes its own chunk rather than being cut.
func splitChunks(content string) []string {
	paragraphs := strings.Split(content, "\n\n")

	var chunks []string
	var current strings.Builder
	for _, paragraph := range paragraphs {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		if current.Len() > 0 && current.Len()+len(paragraph) > chunkSize {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(paragraph)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

func tokenize(text string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, field := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(field) < 3 {
			continue
		}
		terms[field] = struct{}{}
	}
	return terms
}
