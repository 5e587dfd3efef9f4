package parser

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// Registry holds parsers in registration order. When several parsers
// claim the same file, the first registered wins; ambiguity is
// resolved by priority, not scoring, so detection is reproducible.
//
// A Registry is read-only after registration and safe for concurrent
// Detect/Parse calls without locking.
type Registry struct {
	parsers []Parser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a parser. Registration order is the detection
// tie-break order.
func (r *Registry) Register(p Parser) {
	r.parsers = append(r.parsers, p)
}

// Parsers returns the registered parsers in registration order.
func (r *Registry) Parsers() []Parser {
	out := make([]Parser, len(r.parsers))
	copy(out, r.parsers)
	return out
}

// Detect returns the first registered parser that claims the file,
// judged by filename and the file's first line only.
func (r *Registry) Detect(filename, header string) (Parser, bool) {
	for _, p := range r.parsers {
		if p.CanParse(filename, header) {
			return p, true
		}
	}
	return nil, false
}

// FileResult is the per-file outcome. Matched == false means no
// registered parser claimed the file; that is a branch for the caller
// to take, not an error.
type FileResult struct {
	Path         string
	Matched      bool
	Bank         model.BankSource
	Transactions []model.Transaction
	RowErrors    []RowError
	Err          error
}

// ParseFile detects and parses a single file on disk.
func (r *Registry) ParseFile(path string) FileResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileResult{Path: path, Err: fmt.Errorf("reading %s: %w", path, err)}
	}
	return r.ParseBytes(path, data)
}

// ParseBytes detects and parses an in-memory file. The engine does not
// care whether the bytes came from disk, a share, or a buffer.
func (r *Registry) ParseBytes(name string, data []byte) FileResult {
	p, ok := r.Detect(name, firstLine(data))
	if !ok {
		return FileResult{Path: name}
	}

	txns, rowErrs, err := p.Parse(name, bytes.NewReader(data))
	return FileResult{
		Path:         name,
		Matched:      true,
		Bank:         p.Bank(),
		Transactions: txns,
		RowErrors:    rowErrs,
		Err:          err,
	}
}

// ParseDirectory parses every .csv file under root, recursively. Files
// are independent: one file's failure never aborts its siblings.
// workers bounds how many files parse concurrently. Cancelling the
// context stops new files from starting; in-flight files complete.
// Results are ordered by path.
func (r *Registry) ParseDirectory(ctx context.Context, root string, workers int) ([]FileResult, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if hasCSVExt(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	sort.Strings(paths)

	if workers < 1 {
		workers = 1
	}

	results := make([]FileResult, len(paths))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(paths); j++ {
				results[j] = FileResult{Path: paths[j], Err: err}
			}
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = r.ParseFile(path)
		}(i, path)
	}
	wg.Wait()

	return results, nil
}

// DefaultRegistry registers all built-in dialects. Header-detected
// dialects come first; filename heuristics (anz, cba) last, since a
// header match is the stronger claim.
func DefaultRegistry(accounts AccountResolver) *Registry {
	r := NewRegistry()
	r.Register(&WestpacParser{Accounts: accounts})
	r.Register(&MacquarieParser{Accounts: accounts})
	r.Register(&BankwestParser{Accounts: accounts})
	r.Register(&ANZParser{Accounts: accounts})
	r.Register(&CBAParser{Accounts: accounts})
	return r
}

func firstLine(data []byte) string {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		data = data[:i]
	}
	return strings.TrimRight(string(bytes.TrimPrefix(data, []byte("\ufeff"))), "\r")
}
