package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/studyabroad-api/internal/models"
	"github.com/noah-isme/studyabroad-api/pkg/ai"
	"github.com/noah-isme/studyabroad-api/pkg/config"
	appErrors "github.com/noah-isme/studyabroad-api/pkg/errors"
	"github.com/noah-isme/studyabroad-api/pkg/jobs"
)

const translationJobType = "program_translation"

const translatorPrompt = `You translate university program listings for a study abroad catalog.
Return only a JSON object of the form {"name": "...", "description": "..."} with the translated texts.
Keep proper nouns, degree abbreviations and numbers unchanged. If the description is empty return an empty string for it.`

type translationRepository interface {
	ActiveSources(ctx context.Context) ([]models.TranslationSource, error)
	ExistingTranslationPairs(ctx context.Context, locales []string) ([]models.ProgramLocalePair, error)
	UpsertTranslation(ctx context.Context, tr *models.Translation) error
}

type completer interface {
	Complete(ctx context.Context, req ai.Request) (string, error)
}

// TranslationRunnerConfig tunes pacing and retention.
type TranslationRunnerConfig struct {
	Delay   time.Duration
	RunTTL  time.Duration
	Locales config.LocaleConfig
}

// TranslationRun is the mutable state of one bulk translation.
type TranslationRun struct {
	mu         sync.Mutex
	id         string
	status     models.TranslationRunStatus
	locales    []string
	items      []models.TranslationItem
	sources    map[string]models.TranslationSource
	progress   models.TranslationProgress
	createdBy  string
	createdAt  time.Time
	startedAt  *time.Time
	finishedAt *time.Time
	cancelled  atomic.Bool
	// retrying limits the next execution to these item indexes; nil means
	// every pending item.
	retrying map[int]bool
}

// ID returns the run identifier.
func (r *TranslationRun) ID() string {
	return r.id
}

// Cancel asks the run to stop before its next item.
func (r *TranslationRun) Cancel() {
	r.cancelled.Store(true)
}

// Snapshot copies the run state.
func (r *TranslationRun) Snapshot() models.TranslationRunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]models.TranslationItem, len(r.items))
	copy(items, r.items)
	return models.TranslationRunSnapshot{
		ID:         r.id,
		Status:     r.status,
		Locales:    append([]string(nil), r.locales...),
		Progress:   r.progress,
		Items:      items,
		CreatedBy:  r.createdBy,
		CreatedAt:  r.createdAt,
		StartedAt:  r.startedAt,
		FinishedAt: r.finishedAt,
	}
}

func (r *TranslationRun) setItem(i int, status models.TranslationItemStatus, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.items[i].Status
	r.items[i].Status = status
	r.items[i].Error = message
	switch prev {
	case models.TranslationItemPending:
		r.progress.Pending--
	case models.TranslationItemError:
		r.progress.Failed--
	}
	switch status {
	case models.TranslationItemPending:
		r.progress.Pending++
	case models.TranslationItemRunning:
		r.progress.Current = r.items[i].ProgramName + " (" + r.items[i].Locale + ")"
	case models.TranslationItemDone:
		r.progress.Done++
		r.progress.Current = ""
	case models.TranslationItemError:
		r.progress.Failed++
		r.progress.Current = ""
	}
}

func (r *TranslationRun) setStatus(status models.TranslationRunStatus, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
	switch {
	case status == models.TranslationRunRunning:
		r.startedAt = &at
		r.finishedAt = nil
	case status.Finished():
		r.finishedAt = &at
		r.progress.Current = ""
		r.retrying = nil
	}
}

// runnable reports whether item i should be processed by the current execution.
func (r *TranslationRun) runnable(i int) (models.TranslationItem, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item := r.items[i]
	if item.Status != models.TranslationItemPending {
		return item, false
	}
	return item, r.retrying == nil || r.retrying[i]
}

// failedItems snapshots the indexes and messages of the items in error.
func (r *TranslationRun) failedItems() map[int]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	failed := make(map[int]string)
	for i, item := range r.items {
		if item.Status == models.TranslationItemError {
			failed[i] = item.Error
		}
	}
	return failed
}

// TranslationRunner plans and executes bulk program translations.
type TranslationRunner struct {
	repo    translationRepository
	ai      completer
	metrics *MetricsService
	logger  *zap.Logger
	cfg     TranslationRunnerConfig
	queue   *jobs.Queue
	now     func() time.Time

	mu   sync.RWMutex
	runs map[string]*TranslationRun
}

// NewTranslationRunner constructs the runner with a single-worker queue.
func NewTranslationRunner(repo translationRepository, client completer, metrics *MetricsService, logger *zap.Logger, cfg TranslationRunnerConfig) *TranslationRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = 24 * time.Hour
	}
	r := &TranslationRunner{
		repo:    repo,
		ai:      client,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
		runs:    make(map[string]*TranslationRun),
	}
	r.queue = jobs.NewQueue("translations", r.handle, jobs.QueueConfig{Workers: 1, BufferSize: 16, MaxRetries: -1, Logger: logger})
	return r
}

// StartWorker begins consuming queued runs.
func (r *TranslationRunner) StartWorker(ctx context.Context) {
	r.queue.Start(ctx)
}

// StopWorker stops the worker. An in-flight run stops at its next item.
func (r *TranslationRunner) StopWorker() {
	r.mu.RLock()
	for _, run := range r.runs {
		run.Cancel()
	}
	r.mu.RUnlock()
	r.queue.Stop()
}

// Plan builds a run for every active program and requested locale. Pairs that
// already have a translation are marked existing and are not pending.
func (r *TranslationRunner) Plan(ctx context.Context, locales []string, actorID string) (*TranslationRun, error) {
	locales, err := r.resolveLocales(locales)
	if err != nil {
		return nil, err
	}
	sources, err := r.repo.ActiveSources(ctx)
	if err != nil {
		return nil, internalError(err, "failed to load programs")
	}
	pairs, err := r.repo.ExistingTranslationPairs(ctx, locales)
	if err != nil {
		return nil, internalError(err, "failed to load existing translations")
	}
	existing := make(map[models.ProgramLocalePair]bool, len(pairs))
	for _, p := range pairs {
		existing[p] = true
	}

	run := &TranslationRun{
		id:        uuid.NewString(),
		status:    models.TranslationRunQueued,
		locales:   locales,
		sources:   make(map[string]models.TranslationSource, len(sources)),
		createdBy: actorID,
		createdAt: r.now().UTC(),
	}
	for _, src := range sources {
		run.sources[src.ProgramID] = src
		for _, locale := range locales {
			item := models.TranslationItem{ProgramID: src.ProgramID, ProgramName: src.Name, Locale: locale, Status: models.TranslationItemPending}
			if existing[models.ProgramLocalePair{ProgramID: src.ProgramID, Locale: locale}] {
				item.Status = models.TranslationItemExisting
				run.progress.Existing++
			} else {
				run.progress.Pending++
			}
			run.items = append(run.items, item)
		}
	}
	run.progress.Total = len(run.items)
	return run, nil
}

func (r *TranslationRunner) resolveLocales(requested []string) ([]string, error) {
	allowed := r.cfg.Locales.TranslatableLocales()
	if len(requested) == 0 {
		if len(allowed) == 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "no translatable locales configured")
		}
		return allowed, nil
	}
	seen := make(map[string]bool, len(requested))
	result := make([]string, 0, len(requested))
	for _, raw := range requested {
		locale := strings.ToLower(strings.TrimSpace(raw))
		if locale == "" || seen[locale] {
			continue
		}
		if err := validateTranslationLocale(r.cfg.Locales, locale); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("locale %s cannot be translated", locale))
		}
		seen[locale] = true
		result = append(result, locale)
	}
	if len(result) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one locale is required")
	}
	sort.Strings(result)
	return result, nil
}

// Launch plans a run and queues it for the background worker.
func (r *TranslationRunner) Launch(ctx context.Context, locales []string, actorID string) (*models.TranslationRunSnapshot, error) {
	if err := r.ensureIdle(); err != nil {
		return nil, err
	}
	run, err := r.Plan(ctx, locales, actorID)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	if err := r.activeLocked(); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.runs[run.id] = run
	r.mu.Unlock()

	if err := r.enqueue(run); err != nil {
		r.mu.Lock()
		delete(r.runs, run.id)
		r.mu.Unlock()
		return nil, err
	}
	r.logger.Info("translation run queued", zap.String("run_id", run.id), zap.Strings("locales", run.locales), zap.Int("pending", run.progress.Pending))
	snap := run.Snapshot()
	return &snap, nil
}

// Get returns a snapshot of a run.
func (r *TranslationRunner) Get(id string) (*models.TranslationRunSnapshot, error) {
	run, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	snap := run.Snapshot()
	return &snap, nil
}

// List returns snapshots of every retained run, newest first.
func (r *TranslationRunner) List() []models.TranslationRunSnapshot {
	r.mu.RLock()
	result := make([]models.TranslationRunSnapshot, 0, len(r.runs))
	for _, run := range r.runs {
		snap := run.Snapshot()
		snap.Items = nil
		result = append(result, snap)
	}
	r.mu.RUnlock()
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result
}

// Cancel stops a queued or running run before its next item.
func (r *TranslationRunner) Cancel(id string) (*models.TranslationRunSnapshot, error) {
	run, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	run.Cancel()
	run.mu.Lock()
	queued := run.status == models.TranslationRunQueued
	run.mu.Unlock()
	if queued {
		run.setStatus(models.TranslationRunCancelled, r.now().UTC())
	}
	snap := run.Snapshot()
	return &snap, nil
}

// Retry requeues only the failed items of a finished run. Items a cancelled
// run never reached stay pending and are not picked up.
func (r *TranslationRunner) Retry(id string) (*models.TranslationRunSnapshot, error) {
	run, err := r.lookup(id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	run.mu.Lock()
	previous := run.status
	run.mu.Unlock()
	if !previous.Finished() {
		r.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrConflict, "run is still in progress")
	}
	if err := r.activeLocked(); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	failed := run.failedItems()
	if len(failed) == 0 {
		r.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrValidation, "run has no failed items")
	}
	retrying := make(map[int]bool, len(failed))
	for i := range failed {
		run.setItem(i, models.TranslationItemPending, "")
		retrying[i] = true
	}
	run.mu.Lock()
	run.retrying = retrying
	run.status = models.TranslationRunQueued
	run.mu.Unlock()
	run.cancelled.Store(false)
	r.mu.Unlock()

	if err := r.enqueue(run); err != nil {
		for i, message := range failed {
			run.setItem(i, models.TranslationItemError, message)
		}
		run.mu.Lock()
		run.retrying = nil
		run.status = previous
		run.mu.Unlock()
		return nil, err
	}
	r.logger.Info("translation run requeued", zap.String("run_id", run.id), zap.Int("retrying", len(failed)))
	snap := run.Snapshot()
	return &snap, nil
}

// Reap drops finished runs older than the retention window.
func (r *TranslationRunner) Reap(ctx context.Context) error {
	cutoff := r.now().UTC().Add(-r.cfg.RunTTL)
	r.mu.Lock()
	removed := 0
	for id, run := range r.runs {
		run.mu.Lock()
		expired := run.status.Finished() && run.finishedAt != nil && run.finishedAt.Before(cutoff)
		run.mu.Unlock()
		if expired {
			delete(r.runs, id)
			removed++
		}
	}
	r.mu.Unlock()
	if removed > 0 {
		r.logger.Info("translation runs reaped", zap.Int("removed", removed))
	}
	return nil
}

// Execute processes the pending items of a run sequentially on the calling goroutine.
func (r *TranslationRunner) Execute(ctx context.Context, run *TranslationRun) {
	if run.cancelled.Load() {
		run.setStatus(models.TranslationRunCancelled, r.now().UTC())
		return
	}
	run.setStatus(models.TranslationRunRunning, r.now().UTC())
	first := true
	for i := range run.items {
		item, ok := run.runnable(i)
		if !ok {
			continue
		}
		if !first && !r.pause(ctx) {
			run.Cancel()
		}
		if run.cancelled.Load() || ctx.Err() != nil {
			run.setStatus(models.TranslationRunCancelled, r.now().UTC())
			r.logger.Info("translation run cancelled", zap.String("run_id", run.id))
			return
		}
		first = false

		run.setItem(i, models.TranslationItemRunning, "")
		err := r.translate(ctx, run.sources[item.ProgramID], item.Locale)
		r.metrics.RecordTranslation(item.Locale, err)
		if err != nil {
			r.logger.Warn("program translation failed", zap.String("run_id", run.id), zap.String("program_id", item.ProgramID), zap.String("locale", item.Locale), zap.Error(err))
			run.setItem(i, models.TranslationItemError, err.Error())
			continue
		}
		run.setItem(i, models.TranslationItemDone, "")
	}
	run.setStatus(models.TranslationRunCompleted, r.now().UTC())
	snap := run.Snapshot()
	r.logger.Info("translation run completed", zap.String("run_id", run.id), zap.Int("done", snap.Progress.Done), zap.Int("failed", snap.Progress.Failed))
}

func (r *TranslationRunner) pause(ctx context.Context) bool {
	if r.cfg.Delay <= 0 {
		return true
	}
	timer := time.NewTimer(r.cfg.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

type translatedText struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (r *TranslationRunner) translate(ctx context.Context, src models.TranslationSource, locale string) error {
	if r.ai == nil {
		return errors.New("ai provider not configured")
	}
	payload, err := json.Marshal(translatedText{Name: src.Name, Description: derefString(src.Description)})
	if err != nil {
		return err
	}
	text, err := r.ai.Complete(ctx, ai.Request{
		System:      translatorPrompt,
		Messages:    []ai.Message{{Role: ai.RoleUser, Content: fmt.Sprintf("Target locale: %s\n%s", locale, payload)}},
		JSON:        true,
		Temperature: 0.2,
	})
	if err != nil {
		return err
	}
	var out translatedText
	if err := json.Unmarshal([]byte(ai.StripCodeFence(text)), &out); err != nil {
		return fmt.Errorf("decode translation: %w", err)
	}
	if strings.TrimSpace(out.Name) == "" {
		return errors.New("translation has no name")
	}
	tr := &models.Translation{EntityID: src.ProgramID, Locale: locale, Name: strings.TrimSpace(out.Name)}
	if desc := strings.TrimSpace(out.Description); desc != "" {
		tr.Description = &desc
	}
	return r.repo.UpsertTranslation(ctx, tr)
}

func (r *TranslationRunner) handle(ctx context.Context, job jobs.Job) error {
	id, _ := job.Payload.(string)
	run, err := r.lookup(id)
	if err != nil {
		return err
	}
	r.Execute(ctx, run)
	return nil
}

func (r *TranslationRunner) enqueue(run *TranslationRun) error {
	err := r.queue.TryEnqueue(jobs.Job{ID: run.id, Type: translationJobType, Payload: run.id})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "translation worker unavailable")
	}
	return nil
}

func (r *TranslationRunner) ensureIdle() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeLocked()
}

// activeLocked reports a conflict when a run is queued or running. Callers hold r.mu.
func (r *TranslationRunner) activeLocked() error {
	for _, run := range r.runs {
		run.mu.Lock()
		active := !run.status.Finished()
		run.mu.Unlock()
		if active {
			return appErrors.Clone(appErrors.ErrConflict, "a translation run is already active")
		}
	}
	return nil
}

func (r *TranslationRunner) lookup(id string) (*TranslationRun, error) {
	r.mu.RLock()
	run, ok := r.runs[id]
	r.mu.RUnlock()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "translation run not found")
	}
	return run, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
