// Package orchestrator implements the Translation Orchestrator (spec
// §4.8): a bounded-concurrency, priority-ordered task runner that
// consults the two-tier cache before each request, enforces a soft
// per-task rate-limit delay and a hard per-task timeout, and returns
// results in the same order as the input task list regardless of
// completion order. It generalizes the teacher's semaphore-bounded
// goroutine fan-out in internal/pdf/batch_translator.go
// (TranslateBatch's sem/WaitGroup/indexed-result pattern) from
// batch-of-blocks to priority-ordered individual tasks, and replaces its
// "return nil, err on first batch failure" policy with the spec §7
// contract that no task error ever aborts the run.
package orchestrator

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"latex-translator/internal/cache"
	"latex-translator/internal/diagnostics"
	pipelineerrors "latex-translator/internal/errors"
	"latex-translator/internal/logger"
	"latex-translator/internal/model"
)

// Config holds the tunable concurrency/timing thresholds spec §4.8 and §6
// expose.
type Config struct {
	MaxConcurrent int           // default 5-10
	RequestDelay  time.Duration // default 50-100ms
	TaskTimeout   time.Duration // default 600s
	ModelName     string
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{MaxConcurrent: 8, RequestDelay: 75 * time.Millisecond, TaskTimeout: 600 * time.Second, ModelName: "default"}
}

// Translator is the external translate_text collaborator (spec §6).
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// Result is one task's outcome, aligned by index to the input task list.
type Result struct {
	Task           model.TranslationTask
	TranslatedText string
	FromCache      bool
	Failed         bool
}

// Run executes tasks under the configured concurrency bound, in ascending
// priority order, and returns results in the same order and length as the
// input (spec §8 property 4), independent of completion order. rec may be
// nil; when set, every fallback outcome is registered against it so repeat
// failures of the same task accumulate a retry count (spec's
// FALLBACK_ORIGINAL path, §4.10).
func Run(ctx context.Context, tasks []model.TranslationTask, c *cache.Cache, t Translator, diag *diagnostics.Summary, rec *pipelineerrors.Recorder, cfg Config) []Result {
	if len(tasks) == 0 {
		return nil
	}

	type indexed struct {
		pos  int
		task model.TranslationTask
	}
	order := make([]indexed, len(tasks))
	for i, task := range tasks {
		order[i] = indexed{pos: i, task: task}
	}
	// Spec: priority 1-3, lower value issued first ("ascending priority
	// order"), so 1 is the highest-urgency tier.
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].task.Priority < order[j].task.Priority
	})

	results := make([]Result, len(tasks))
	sem := make(chan struct{}, cfg.MaxConcurrent)
	var wg sync.WaitGroup

	for _, item := range order {
		wg.Add(1)
		go func(it indexed) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[it.pos] = fallbackResult(it.task, rec, pipelineerrors.KindTimeout, ctx.Err())
				return
			}
			defer func() { <-sem }()

			select {
			case <-time.After(cfg.RequestDelay):
			case <-ctx.Done():
				results[it.pos] = fallbackResult(it.task, rec, pipelineerrors.KindTimeout, ctx.Err())
				return
			}

			results[it.pos] = runTask(ctx, it.task, c, t, diag, rec, cfg)
		}(item)
	}

	wg.Wait()
	return results
}

// runTask consults the cache, then the translator under the configured
// per-task timeout, never letting an error or timeout propagate past the
// task: both fall back to the original text (spec §7).
func runTask(ctx context.Context, task model.TranslationTask, c *cache.Cache, t Translator, diag *diagnostics.Summary, rec *pipelineerrors.Recorder, cfg Config) Result {
	if c != nil {
		if translated, ok := c.Lookup(task.Text, task.TargetLang, cfg.ModelName, task.ContextBefore, task.ContextAfter); ok {
			if diag != nil {
				diag.IncCacheHitMemory()
			}
			task.State = model.TaskCacheHit
			return Result{Task: task, TranslatedText: translated, FromCache: true}
		}
	}

	taskCtx, cancel := context.WithTimeout(ctx, cfg.TaskTimeout)
	defer cancel()

	if diag != nil {
		diag.IncAPICalls()
	}
	translated, err := t.Translate(taskCtx, task.Text, task.TargetLang)
	if err != nil {
		logger.Warn("translation task failed, falling back to original text",
			logger.String("taskId", task.TaskID), logger.Err(err))
		if diag != nil {
			diag.IncTranslationError()
		}
		kind := pipelineerrors.KindTranslation
		if errors.Is(err, context.DeadlineExceeded) {
			kind = pipelineerrors.KindTimeout
		}
		if rec != nil {
			rec.Record(task.TaskID, kind, err.Error())
		}
		task.State = model.TaskError
		return Result{Task: task, TranslatedText: task.Text, Failed: true}
	}

	if c != nil {
		c.Store(task.Text, translated, task.TargetLang, cfg.ModelName, task.ContextBefore, task.ContextAfter, time.Now())
	}
	task.State = model.TaskSuccess
	return Result{Task: task, TranslatedText: translated}
}

func fallbackResult(task model.TranslationTask, rec *pipelineerrors.Recorder, kind pipelineerrors.Kind, cause error) Result {
	if rec != nil {
		msg := "context canceled before task started"
		if cause != nil {
			msg = cause.Error()
		}
		rec.Record(task.TaskID, kind, msg)
	}
	task.State = model.TaskFallbackOriginal
	return Result{Task: task, TranslatedText: task.Text, Failed: true}
}
