// Package results reads an Allure results directory back into memory.
package results

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ethpandaops/allure-runtime/pkg/model"
	"github.com/ethpandaops/allure-runtime/pkg/writer"
	"github.com/magiconair/properties"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds the number of files decoded at once.
const DefaultConcurrency = 16

// Set holds everything read from one results directory.
type Set struct {
	Results     []*model.TestResult
	Containers  []*model.TestResultContainer
	Attachments map[string]int64
	Environment *model.EnvironmentInfo
	Categories  []model.Category
}

// Result returns the test result with the given identifier.
func (s *Set) Result(uuid string) (*model.TestResult, bool) {
	for _, r := range s.Results {
		if r.UUID == uuid {
			return r, true
		}
	}
	return nil, false
}

// Loader reads results directories.
type Loader struct {
	log         logrus.FieldLogger
	concurrency int
}

// NewLoader creates a Loader. A non-positive concurrency uses DefaultConcurrency.
func NewLoader(log logrus.FieldLogger, concurrency int) *Loader {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Loader{
		log:         log.WithField("component", "results_loader"),
		concurrency: concurrency,
	}
}

// Load decodes every result and container file in dir in parallel. Results
// are ordered by start time, containers by identifier.
func (l *Loader) Load(ctx context.Context, dir string) (*Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	var (
		set = &Set{Attachments: make(map[string]int64)}
		mu  sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		path := filepath.Join(dir, name)

		switch {
		case strings.HasSuffix(name, writer.ResultSuffix):
			g.Go(func() error {
				var result model.TestResult
				if err := decodeFile(gctx, path, &result); err != nil {
					return err
				}
				mu.Lock()
				set.Results = append(set.Results, &result)
				mu.Unlock()
				return nil
			})
		case strings.HasSuffix(name, writer.ContainerSuffix):
			g.Go(func() error {
				var container model.TestResultContainer
				if err := decodeFile(gctx, path, &container); err != nil {
					return err
				}
				mu.Lock()
				set.Containers = append(set.Containers, &container)
				mu.Unlock()
				return nil
			})
		case name == writer.EnvironmentFileName:
			g.Go(func() error {
				env, err := loadEnvironment(path)
				if err != nil {
					return err
				}
				mu.Lock()
				set.Environment = env
				mu.Unlock()
				return nil
			})
		case name == writer.CategoriesFileName:
			g.Go(func() error {
				var categories []model.Category
				if err := decodeFile(gctx, path, &categories); err != nil {
					return err
				}
				mu.Lock()
				set.Categories = categories
				mu.Unlock()
				return nil
			})
		default:
			info, err := entry.Info()
			if err != nil {
				return nil, fmt.Errorf("failed to stat %s: %w", name, err)
			}
			set.Attachments[name] = info.Size()
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(set.Results, func(i, j int) bool {
		a, b := set.Results[i], set.Results[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.UUID < b.UUID
	})
	sort.Slice(set.Containers, func(i, j int) bool {
		return set.Containers[i].UUID < set.Containers[j].UUID
	})

	l.log.WithFields(logrus.Fields{
		"dir":         dir,
		"results":     len(set.Results),
		"containers":  len(set.Containers),
		"attachments": len(set.Attachments),
	}).Debug("Loaded results directory")

	return set, nil
}

// Replay writes every record of the set to w, attachments read from dir.
func (s *Set) Replay(dir string, w writer.Writer) error {
	for _, r := range s.Results {
		if err := w.WriteResult(r); err != nil {
			return fmt.Errorf("failed to write result %s: %w", r.UUID, err)
		}
	}
	for _, c := range s.Containers {
		if err := w.WriteGroup(c); err != nil {
			return fmt.Errorf("failed to write container %s: %w", c.UUID, err)
		}
	}

	sources := make([]string, 0, len(s.Attachments))
	for source := range s.Attachments {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	for _, source := range sources {
		if err := w.WriteAttachmentFromPath(source, filepath.Join(dir, source)); err != nil {
			return fmt.Errorf("failed to write attachment %s: %w", source, err)
		}
	}

	if s.Environment != nil {
		if err := w.WriteEnvironmentInfo(s.Environment); err != nil {
			return fmt.Errorf("failed to write environment: %w", err)
		}
	}
	if s.Categories != nil {
		if err := w.WriteCategories(s.Categories); err != nil {
			return fmt.Errorf("failed to write categories: %w", err)
		}
	}
	return nil
}

func decodeFile(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from listing the results directory
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func loadEnvironment(path string) (*model.EnvironmentInfo, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from listing the results directory
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	loader := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	props, err := loader.LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	env := model.NewEnvironmentInfo()
	for _, key := range props.Keys() {
		value, _ := props.Get(key)
		env.Set(key, value)
	}
	return env, nil
}
