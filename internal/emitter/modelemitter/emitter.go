// Package modelemitter writes a finalized code model to disk as one JSON
// document per class plus an index.json listing every class.
package modelemitter

import (
	"context"
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/endpointgen/internal/codemodel"
	"github.com/mark3labs/endpointgen/internal/errors"
	"github.com/mark3labs/endpointgen/internal/logger"
)

// IndexFile is the name of the class index written at the output root.
const IndexFile = "index.json"

// Options controls how the emitter writes a model.
type Options struct {
	OutDir string // required; target directory
	Title  string // API title recorded in the index
	// Generator is recorded in the index; defaults to "endpointgen".
	Generator string
	Force     bool // write into a non-empty directory
	DryRun    bool // plan only
}

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result lists the planned files in path order.
type Result struct {
	OutDir  string
	Planned []PlannedFile
}

// Paths returns the planned relative paths.
func (r *Result) Paths() []string {
	out := make([]string, 0, len(r.Planned))
	for _, p := range r.Planned {
		out = append(out, p.RelPath)
	}
	return out
}

// IndexEntry is one class listed in index.json.
type IndexEntry struct {
	Name string              `json:"name"`
	Kind codemodel.ClassKind `json:"kind"`
	File string              `json:"file"`
}

// Index is the content of index.json.
type Index struct {
	Generator string       `json:"generator"`
	Title     string       `json:"title,omitempty"`
	Classes   []IndexEntry `json:"classes"`
}

// ClassPath returns the slash separated path of a class document: the
// package becomes directories, e.g. com/acme/model/Pet.json.
func ClassPath(c *codemodel.ClassNode) string {
	dir := strings.ReplaceAll(c.Package, ".", "/")
	return path.Join(dir, c.SimpleName+".json")
}

// Emit renders the model and, unless DryRun is set, writes it under OutDir.
func Emit(ctx context.Context, m *codemodel.Model, opts Options) (*Result, error) {
	if m == nil {
		return nil, errors.New("modelemitter: nil code model")
	}
	if !m.Finalized() {
		return nil, errors.New("modelemitter: code model is not finalized")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, errors.New("modelemitter: OutDir is required")
	}
	generator := strings.TrimSpace(opts.Generator)
	if generator == "" {
		generator = "endpointgen"
	}

	files := map[string][]byte{}
	index := Index{Generator: generator, Title: strings.TrimSpace(opts.Title), Classes: []IndexEntry{}}
	for _, c := range m.Classes() {
		rel := ClassPath(c)
		data, err := marshal(c)
		if err != nil {
			return nil, errors.Wrapf(err, "marshal %s", c.QualifiedName())
		}
		files[rel] = data
		index.Classes = append(index.Classes, IndexEntry{Name: c.QualifiedName(), Kind: c.Kind, File: rel})
	}
	data, err := marshal(index)
	if err != nil {
		return nil, errors.Wrap(err, "marshal index")
	}
	files[IndexFile] = data

	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, p)
	}
	sort.Strings(rels)
	planned := make([]PlannedFile, 0, len(rels))
	for _, rel := range rels {
		planned = append(planned, PlannedFile{RelPath: rel, Size: len(files[rel]), Mode: 0o644})
	}

	if !opts.DryRun {
		if err := writeFiles(ctx, opts.OutDir, rels, files, opts.Force); err != nil {
			return nil, err
		}
		logger.Named("emitter").Infow("code model written", "dir", opts.OutDir, "files", len(rels))
	}
	return &Result{OutDir: opts.OutDir, Planned: planned}, nil
}

func marshal(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func writeFiles(ctx context.Context, outDir string, rels []string, files map[string][]byte, force bool) error {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return errors.Wrap(err, "resolve out dir")
	}
	if st, err := os.Stat(abs); err == nil && st.IsDir() && !force {
		entries, rerr := os.ReadDir(abs)
		if rerr == nil && len(entries) > 0 {
			return errors.Newf("modelemitter: output directory %q is not empty (use --force to overwrite)", abs)
		}
	}
	stamp := time.Now().Format("20060102150405")
	for _, rel := range rels {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := filepath.Join(abs, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return errors.Wrap(err, "mkdir")
		}
		tmp := p + ".tmp-" + stamp
		if err := os.WriteFile(tmp, files[rel], 0o644); err != nil {
			return errors.Wrapf(err, "write temp %s", rel)
		}
		if err := os.Rename(tmp, p); err != nil {
			_ = os.Remove(tmp)
			return errors.Wrapf(err, "rename %s", rel)
		}
	}
	return nil
}
