package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/kingrea/actionpin/internal/backup"
	"github.com/kingrea/actionpin/internal/discovery"
	"github.com/kingrea/actionpin/internal/gate"
	"github.com/kingrea/actionpin/internal/logging"
	"github.com/kingrea/actionpin/internal/walker"
)

// Options carries the run settings the orchestrator needs. Nothing is read
// from the environment inside the package.
type Options struct {
	// Key is the mapping key holding action references.
	Key string
	// Concurrency caps in-flight lookups per repository.
	Concurrency int
	// WorkflowsDir is relative to each repository.
	WorkflowsDir string
	// DryRun resolves and reports without backing up or writing files.
	DryRun bool
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithBackups stores a copy of every workflow file before it is processed.
func WithBackups(store *backup.Store) Option {
	return func(o *Orchestrator) { o.backups = store }
}

// WithLogger records progress in a log file.
func WithLogger(logger *logging.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithObserver streams progress events to obs.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// Orchestrator pins the workflow references of whole repositories.
type Orchestrator struct {
	opts     Options
	resolver walker.Resolver
	backups  *backup.Store
	logger   *logging.Logger
	observer Observer
}

// New creates an Orchestrator resolving references with r.
func New(r walker.Resolver, opts Options, options ...Option) (*Orchestrator, error) {
	if r == nil {
		return nil, errors.New("orchestrator: resolver is required")
	}
	if opts.Key == "" {
		opts.Key = walker.DefaultKey
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = gate.DefaultCapacity
	}
	if opts.WorkflowsDir == "" {
		opts.WorkflowsDir = ".github/workflows"
	}
	o := &Orchestrator{
		opts:     opts,
		resolver: r,
		observer: ObserverFunc(func(Event) {}),
	}
	for _, opt := range options {
		opt(o)
	}
	return o, nil
}

// Run processes repositories one after another and returns the aggregate
// summary. Only context cancellation stops the run early.
func (o *Orchestrator) Run(ctx context.Context, repos []discovery.Repository) Summary {
	summary := Summary{DryRun: o.opts.DryRun}
	if o.backups != nil {
		summary.BackupDir = o.backups.Dir()
	}
	for _, repo := range repos {
		if err := ctx.Err(); err != nil {
			o.logger.Warnf("run stopped before %s: %v", repo.Name, err)
			break
		}
		summary.Repositories = append(summary.Repositories, o.ProcessRepository(ctx, repo))
	}
	return summary
}

// ProcessRepository pins every workflow file of repo. All documents are
// walked concurrently and share one gate sized by Options.Concurrency.
func (o *Orchestrator) ProcessRepository(ctx context.Context, repo discovery.Repository) RepositorySummary {
	summary := RepositorySummary{Name: repo.Name, Dir: repo.Dir}
	event := Event{Kind: EventRepositoryStarted, Repository: repo.Name}
	if o.backups != nil && !o.opts.DryRun {
		event.BackupDir = o.backups.RepositoryDir(repo.Name)
	}
	o.emit(event)

	fail := func(err error) RepositorySummary {
		repoErr := &RepositoryError{Repository: repo.Name, Err: err}
		summary.Errors = append(summary.Errors, repoErr)
		o.logger.Errorf("%v", repoErr)
		o.emit(Event{Kind: EventRepositoryFailed, Repository: repo.Name, Err: repoErr})
		return summary
	}

	files, err := discovery.WorkflowFiles(repo.Dir, o.opts.WorkflowsDir)
	if err != nil {
		return fail(err)
	}
	if len(files) == 0 {
		o.logger.Printf("%s: no workflow files", repo.Name)
		o.emit(Event{Kind: EventNoWorkflows, Repository: repo.Name})
		return summary
	}
	if o.backups != nil && !o.opts.DryRun {
		if err := os.MkdirAll(o.backups.RepositoryDir(repo.Name), 0o755); err != nil {
			return fail(fmt.Errorf("create backup dir: %w", err))
		}
	}
	o.logger.Printf("%s: %d workflow files", repo.Name, len(files))

	g := gate.New(o.opts.Concurrency)
	results := make([]DocumentResult, len(files))
	docErrs := make([]error, len(files))
	done := make([]bool, len(files))
	var eg errgroup.Group
	for i, file := range files {
		i, file := i, file
		eg.Go(func() error {
			res, err := o.processFile(ctx, repo, g, file)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				docErrs[i] = err
			}
			results[i] = res
			done[i] = true
			return nil
		})
	}
	waitErr := eg.Wait()

	// Documents that finished before an interruption were already written,
	// so they are reported either way.
	for i := range files {
		if !done[i] {
			continue
		}
		summary.FilesProcessed++
		if docErrs[i] != nil {
			summary.Errors = append(summary.Errors, docErrs[i])
			continue
		}
		summary.Documents = append(summary.Documents, results[i])
	}
	if waitErr != nil {
		return fail(waitErr)
	}
	o.emit(Event{Kind: EventRepositoryFinished, Repository: repo.Name, Count: len(files)})
	return summary
}

func (o *Orchestrator) processFile(ctx context.Context, repo discovery.Repository, g *gate.Gate, path string) (DocumentResult, error) {
	rel, err := filepath.Rel(repo.Dir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	fail := func(err error) (DocumentResult, error) {
		docErr := &DocumentError{Repository: repo.Name, Path: rel, Err: err}
		o.logger.Errorf("%v", docErr)
		o.emit(Event{Kind: EventDocumentFailed, Repository: repo.Name, File: rel, Err: docErr})
		return DocumentResult{}, docErr
	}

	if o.backups != nil && !o.opts.DryRun {
		if _, err := o.backups.Copy(repo.Name, repo.Dir, path); err != nil {
			return fail(err)
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		return fail(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fail(err)
	}

	hooks := walkHooks{
		onUpdate: func(u walker.Update) {
			o.logger.Printf("%s/%s: pinned %s from %s to %s", repo.Name, rel, u.Path, u.OldRef, u.NewRef)
			o.emit(Event{Kind: EventReferencePinned, Repository: repo.Name, File: rel, Update: u})
		},
		onFailure: func(f walker.Failure) {
			o.logger.Warnf("%s/%s: %v", repo.Name, rel, f)
			o.emit(Event{Kind: EventReferenceFailed, Repository: repo.Name, File: rel, Failure: f})
		},
	}
	res, out, err := o.processDocument(ctx, g, raw, hooks)
	if err != nil {
		if ctx.Err() != nil {
			return DocumentResult{}, err
		}
		return fail(err)
	}
	res.Path = path
	res.RelativePath = rel
	if !res.Changed {
		return res, nil
	}
	if !o.opts.DryRun {
		if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
			return fail(fmt.Errorf("write: %w", err))
		}
	}
	o.logger.Printf("%s/%s: updated %d references", repo.Name, rel, len(res.Updates))
	o.emit(Event{Kind: EventDocumentUpdated, Repository: repo.Name, File: rel, Count: len(res.Updates)})
	return res, nil
}

// ProcessDocument walks one raw workflow document. When at least one
// reference was pinned it returns the re-encoded document and a result with
// Changed set; otherwise the returned bytes are nil and nothing should be
// written.
func (o *Orchestrator) ProcessDocument(ctx context.Context, g *gate.Gate, raw []byte) (DocumentResult, []byte, error) {
	return o.processDocument(ctx, g, raw, walkHooks{})
}

type walkHooks struct {
	onUpdate  func(walker.Update)
	onFailure func(walker.Failure)
}

func (o *Orchestrator) processDocument(ctx context.Context, g *gate.Gate, raw []byte, hooks walkHooks) (DocumentResult, []byte, error) {
	docs, err := decodeDocuments(raw)
	if err != nil {
		return DocumentResult{}, nil, err
	}
	w, err := walker.New(o.opts.Key, g, o.resolver)
	if err != nil {
		return DocumentResult{}, nil, err
	}
	w.OnUpdate = hooks.onUpdate
	w.OnFailure = hooks.onFailure

	var res DocumentResult
	mutated := false
	for _, doc := range docs {
		walked, err := w.Walk(ctx, doc)
		if err != nil {
			return DocumentResult{}, nil, err
		}
		res.Sites += walked.Sites
		res.Updates = append(res.Updates, walked.Updates...)
		res.Failures = append(res.Failures, walked.Failures...)
		mutated = mutated || walked.Mutated
	}
	if !mutated || len(res.Updates) == 0 {
		return res, nil, nil
	}
	out, err := encodeDocuments(docs)
	if err != nil {
		return DocumentResult{}, nil, err
	}
	res.Changed = true
	return res, out, nil
}

func (o *Orchestrator) emit(e Event) {
	o.observer.Observe(e)
}
