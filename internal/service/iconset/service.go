package iconset

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/iter"

	"github.com/aliskhannn/icon-generator/internal/model"
	"github.com/aliskhannn/icon-generator/internal/processor"
	"github.com/aliskhannn/icon-generator/internal/storage/file"
)

var (
	// ErrSourceNotFound means the source image does not exist.
	ErrSourceNotFound = errors.New("source image not found")
	// ErrOutputDirUnavailable means the output directory could not be created.
	ErrOutputDirUnavailable = errors.New("output directory unavailable")
	// ErrSourceLoadFailed means the source image could not be read or decoded.
	ErrSourceLoadFailed = errors.New("failed to load source image")
	// ErrDuplicateName is reported for every reuse of an icon name after the first.
	ErrDuplicateName = errors.New("duplicate icon name")
)

// RunError is returned when a run is aborted before any icon is produced.
// Kind is one of ErrSourceNotFound, ErrOutputDirUnavailable or ErrSourceLoadFailed.
type RunError struct {
	Kind error
	Path string
	Err  error
}

// Error implements the error interface.
func (e *RunError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Kind, e.Path)
	}

	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Path, e.Err)
}

// Unwrap returns the kind sentinel and the underlying cause.
func (e *RunError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

// Service produces icon sets from a single source image.
type Service struct {
	opts    processor.Options
	workers int
	log     zerolog.Logger
}

// NewService creates a new Service. workers bounds how many icons are
// rendered at once; values below one mean sequential processing.
func NewService(opts processor.Options, workers int, log zerolog.Logger) (*Service, error) {
	if _, err := processor.New(nil, opts); err != nil {
		return nil, fmt.Errorf("invalid render options: %w", err)
	}

	return &Service{
		opts:    opts,
		workers: max(1, workers),
		log:     log,
	}, nil
}

// Run loads sourcePath once and writes one PNG per table entry into outputDir.
//
// Missing source, an output directory that cannot be created and an
// undecodable source abort the run with a *RunError before any entry is
// attempted. Failures of individual entries are collected in the result and
// never stop the remaining entries.
func (s *Service) Run(ctx context.Context, sourcePath, outputDir string, table model.SizeTable) (model.RunResult, error) {
	res := model.RunResult{
		ID:        uuid.New(),
		Source:    sourcePath,
		OutputDir: outputDir,
		StartedAt: time.Now(),
	}

	log := s.log.With().Str("run_id", res.ID.String()).Logger()

	if _, err := os.Stat(sourcePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return res, &RunError{Kind: ErrSourceNotFound, Path: sourcePath}
		}

		return res, &RunError{Kind: ErrSourceLoadFailed, Path: sourcePath, Err: err}
	}

	storage := file.NewStorage(outputDir)
	if err := storage.EnsureDir(); err != nil {
		return res, &RunError{Kind: ErrOutputDirUnavailable, Path: outputDir, Err: err}
	}

	src, err := imaging.Open(sourcePath, imaging.AutoOrientation(true))
	if err != nil {
		return res, &RunError{Kind: ErrSourceLoadFailed, Path: sourcePath, Err: err}
	}

	res.SourceWidth = src.Bounds().Dx()
	res.SourceHeight = src.Bounds().Dy()

	log.Info().
		Str("source", sourcePath).
		Int("width", res.SourceWidth).
		Int("height", res.SourceHeight).
		Msg("source image loaded")

	p, err := processor.New(storage, s.opts)
	if err != nil {
		return res, fmt.Errorf("failed to create processor: %w", err)
	}

	outcomes := s.process(ctx, p, src, table, log)

	for i, entry := range table {
		o := outcomes[i]
		if o.err != nil {
			res.Failed = append(res.Failed, model.EntryFailure{Name: entry.Name, Size: entry.Size, Err: o.err})
			continue
		}
		res.Written = append(res.Written, model.EntryResult{Name: entry.Name, Size: entry.Size, Path: o.path})
	}

	res.FinishedAt = time.Now()

	log.Info().
		Int("written", len(res.Written)).
		Int("failed", len(res.Failed)).
		Dur("took", res.FinishedAt.Sub(res.StartedAt)).
		Msg("icon set generated")

	return res, nil
}

type outcome struct {
	path string
	err  error
}

// process renders every entry, at most s.workers at a time.
// Outcomes are indexed like table.
func (s *Service) process(
	ctx context.Context,
	p *processor.Processor,
	src image.Image,
	table model.SizeTable,
	log zerolog.Logger,
) []outcome {
	duplicate := duplicates(table)
	outcomes := make([]outcome, len(table))

	it := iter.Iterator[model.SizeEntry]{MaxGoroutines: s.workers}
	it.ForEachIdx(table, func(i int, entry *model.SizeEntry) {
		var o outcome
		if duplicate[i] {
			o.err = fmt.Errorf("%w: %s", ErrDuplicateName, entry.Name)
		} else {
			o.path, o.err = processEntry(ctx, p, src, *entry)
		}

		if o.err != nil {
			log.Error().Err(o.err).
				Str("entry", entry.Name).
				Int("size", entry.Size).
				Msg("failed to create icon")
		} else {
			log.Info().
				Str("entry", entry.Name).
				Int("size", entry.Size).
				Msg("icon created")
		}

		outcomes[i] = o
	})

	return outcomes
}

// processEntry turns a panic while rendering one entry into that entry's error.
func processEntry(ctx context.Context, p *processor.Processor, src image.Image, entry model.SizeEntry) (path string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while rendering %s: %v", entry.Name, r)
		}
	}()

	return p.Process(ctx, src, entry)
}

// duplicates marks every entry whose name was already used earlier in the table.
func duplicates(table model.SizeTable) []bool {
	seen := make(map[string]struct{}, len(table))
	dup := make([]bool, len(table))

	for i, entry := range table {
		if _, ok := seen[entry.Name]; ok {
			dup[i] = true
			continue
		}
		seen[entry.Name] = struct{}{}
	}

	return dup
}
