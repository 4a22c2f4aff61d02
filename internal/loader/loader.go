package loader

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jonathan/analytics-portfolio/internal/schemas"
	"github.com/jonathan/analytics-portfolio/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Policy decides what happens to a project file that cannot be loaded.
type Policy string

const (
	// PolicyStrict aborts the whole load on the first bad file.
	PolicyStrict Policy = "strict"
	// PolicySkip drops bad files, logs them and records them in the Report.
	PolicySkip Policy = "skip"
)

// ParsePolicy parses a policy name. The empty string means PolicyStrict.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyStrict:
		return PolicyStrict, nil
	case PolicySkip:
		return PolicySkip, nil
	default:
		return "", fmt.Errorf("unknown load policy %q (want %q or %q)", s, PolicyStrict, PolicySkip)
	}
}

const defaultConcurrency = 8

// Options configures LoadProjects.
type Options struct {
	Policy      Policy
	Logger      *zap.Logger
	Concurrency int
}

// SkippedFile is a project file left out of the catalog under PolicySkip.
type SkippedFile struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Warning is a non-fatal problem found while resolving a project.
type Warning struct {
	ProjectKey string `json:"project_key"`
	File       string `json:"file"`
	Message    string `json:"message"`
}

// Report summarises a load.
type Report struct {
	Dir      string        `json:"dir"`
	Files    int           `json:"files"`
	Loaded   int           `json:"loaded"`
	Skipped  []SkippedFile `json:"skipped,omitempty"`
	Warnings []Warning     `json:"warnings,omitempty"`
}

type fileResult struct {
	project  types.Project
	warnings []string
	err      error
}

// LoadProjects reads every *.yaml and *.yml file in dir and returns the projects sorted by title,
// ties broken by key. Files are parsed concurrently and independently.
func LoadProjects(ctx context.Context, dir string, opts Options) ([]types.Project, *Report, error) {
	if opts.Policy == "" {
		opts.Policy = PolicyStrict
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}

	paths, err := projectFiles(dir)
	if err != nil {
		return nil, nil, err
	}

	report := &Report{Dir: dir, Files: len(paths)}
	results := make([]fileResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, warnings, err := LoadProjectFile(path)
			results[i] = fileResult{project: p, warnings: warnings, err: err}
			if err != nil && opts.Policy == PolicyStrict {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	projects := make([]types.Project, 0, len(paths))
	owners := make(map[string]string, len(paths))
	for i, res := range results {
		path := paths[i]
		if res.err == nil {
			if first, dup := owners[res.project.Key]; dup {
				res.err = &ParseError{
					Path:    path,
					Message: fmt.Sprintf("duplicate project key %q (already defined in %s)", res.project.Key, first),
				}
				if opts.Policy == PolicyStrict {
					return nil, nil, res.err
				}
			}
		}
		if res.err != nil {
			opts.Logger.Warn("skipping project file", zap.String("path", path), zap.Error(res.err))
			report.Skipped = append(report.Skipped, SkippedFile{Path: path, Error: res.err.Error()})
			continue
		}

		owners[res.project.Key] = path
		for _, w := range res.warnings {
			opts.Logger.Warn("project warning", zap.String("key", res.project.Key), zap.String("path", path), zap.String("warning", w))
			report.Warnings = append(report.Warnings, Warning{ProjectKey: res.project.Key, File: path, Message: w})
		}
		projects = append(projects, res.project)
	}

	SortProjects(projects)
	report.Loaded = len(projects)

	opts.Logger.Info("projects loaded",
		zap.String("dir", dir),
		zap.Int("files", report.Files),
		zap.Int("loaded", report.Loaded),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("warnings", len(report.Warnings)),
	)
	return projects, report, nil
}

// SortProjects orders projects by title, then by key.
func SortProjects(projects []types.Project) {
	slices.SortStableFunc(projects, func(a, b types.Project) int {
		if c := cmp.Compare(a.Title, b.Title); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
}

// IsProjectFile reports whether name has a project file extension.
func IsProjectFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func projectFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &ParseError{Path: dir, Message: "failed to read projects directory", Cause: err}
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !IsProjectFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	slices.Sort(paths)
	return paths, nil
}

// LoadProjectFile reads and parses one project file.
func LoadProjectFile(path string) (types.Project, []string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return types.Project{}, nil, &ParseError{Path: path, Message: "failed to read file", Cause: err}
	}
	return ParseProject(content, path)
}

// ParseProject decodes, validates and resolves a project document. The returned warnings describe
// values that fell back to defaults.
func ParseProject(content []byte, path string) (types.Project, []string, error) {
	schema, err := schemas.ProjectSchema()
	if err != nil {
		return types.Project{}, nil, err
	}
	if err := checkDocument(content, path, schema); err != nil {
		return types.Project{}, nil, err
	}

	var p types.Project
	if err := yaml.Unmarshal(content, &p); err != nil {
		return types.Project{}, nil, &ParseError{Path: path, Message: "failed to decode project", Cause: err}
	}
	if err := p.Validate(); err != nil {
		return types.Project{}, nil, &ParseError{Path: path, Message: "invalid project", Cause: err}
	}

	p.SourcePath = path
	warnings := p.Resolve()
	return p, warnings, nil
}

// LoadProfile reads the optional profile file. A missing file yields nil and no error.
func LoadProfile(path string) (*types.Profile, error) {
	if path == "" {
		return nil, nil
	}
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &ParseError{Path: path, Message: "failed to read file", Cause: err}
	}

	schema, err := schemas.ProfileSchema()
	if err != nil {
		return nil, err
	}
	if err := checkDocument(content, path, schema); err != nil {
		return nil, err
	}

	var profile types.Profile
	if err := yaml.Unmarshal(content, &profile); err != nil {
		return nil, &ParseError{Path: path, Message: "failed to decode profile", Cause: err}
	}
	if err := profile.Validate(); err != nil {
		return nil, &ParseError{Path: path, Message: "invalid profile", Cause: err}
	}
	return &profile, nil
}

func checkDocument(content []byte, path string, schema *schemas.Schema) error {
	var doc any
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return &ParseError{Path: path, Message: "malformed YAML", Cause: err}
	}
	if doc == nil {
		return &ParseError{Path: path, Message: "file is empty"}
	}
	if err := schema.Validate(doc); err != nil {
		return &ParseError{Path: path, Message: "schema validation failed", Cause: err}
	}
	return nil
}

// ResolvePath resolves a data path from a project file against the site's base directory.
// Absolute paths are returned unchanged.
func ResolvePath(baseDir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, filepath.FromSlash(p))
}
