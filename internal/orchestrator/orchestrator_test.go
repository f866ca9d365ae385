package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"latex-translator/internal/cache"
	"latex-translator/internal/diagnostics"
	pipelineerrors "latex-translator/internal/errors"
	"latex-translator/internal/model"
)

type stubTranslator struct {
	fail map[string]bool
}

func (s stubTranslator) Translate(_ context.Context, text, targetLang string) (string, error) {
	if s.fail[text] {
		return "", errors.New("simulated backend failure")
	}
	return strings.ToUpper(text) + ":" + targetLang, nil
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.New(cache.DefaultConfig(), "")
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	return c
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.RequestDelay = time.Millisecond
	cfg.TaskTimeout = time.Second
	cfg.MaxConcurrent = 4
	return cfg
}

// Property 4 — order preservation through translation: the returned list
// has the same length and item-type order as the input task list.
func TestRun_Property4_OrderPreserved(t *testing.T) {
	tasks := []model.TranslationTask{
		{TaskID: "1", Text: "alpha", TargetLang: "es", ItemType: "paragraph", Priority: 2},
		{TaskID: "2", Text: "beta", TargetLang: "es", ItemType: "heading", Priority: 1},
		{TaskID: "3", Text: "gamma", TargetLang: "es", ItemType: "caption", Priority: 3},
	}

	results := Run(context.Background(), tasks, newTestCache(t), stubTranslator{}, diagnostics.New(), nil, fastConfig())

	if len(results) != len(tasks) {
		t.Fatalf("expected %d results, got %d", len(tasks), len(results))
	}
	for i, r := range results {
		if r.Task.TaskID != tasks[i].TaskID || r.Task.ItemType != tasks[i].ItemType {
			t.Errorf("result[%d] = %+v, want task %+v at same position", i, r.Task, tasks[i])
		}
	}
}

func TestRun_FallsBackToOriginalTextOnError(t *testing.T) {
	tasks := []model.TranslationTask{
		{TaskID: "1", Text: "good", TargetLang: "es", Priority: 1},
		{TaskID: "2", Text: "bad", TargetLang: "es", Priority: 1},
	}
	translator := stubTranslator{fail: map[string]bool{"bad": true}}
	rec := pipelineerrors.NewRecorder()

	results := Run(context.Background(), tasks, newTestCache(t), translator, diagnostics.New(), rec, fastConfig())

	if results[0].Failed {
		t.Error("expected task 1 to succeed")
	}
	if !results[1].Failed {
		t.Error("expected task 2 to be marked failed")
	}
	if results[1].TranslatedText != "bad" {
		t.Errorf("expected fallback to original text, got %q", results[1].TranslatedText)
	}
	if rec.Count() != 1 {
		t.Errorf("expected 1 recorded failure, got %d", rec.Count())
	}
	record, ok := rec.Get("2")
	if !ok {
		t.Fatal("expected failure recorded for task 2")
	}
	if record.Kind != pipelineerrors.KindTranslation {
		t.Errorf("expected KindTranslation, got %q", record.Kind)
	}
	if record.RetryCount != 1 {
		t.Errorf("expected retry count 1, got %d", record.RetryCount)
	}
}

func TestRun_CacheHitAvoidsTranslatorCall(t *testing.T) {
	c := newTestCache(t)
	c.Store("cached text", "CACHED TRANSLATION", "es", "default", "", "", time.Now())

	tasks := []model.TranslationTask{
		{TaskID: "1", Text: "cached text", TargetLang: "es", Priority: 1},
	}
	results := Run(context.Background(), tasks, c, stubTranslator{}, diagnostics.New(), nil, fastConfig())

	if !results[0].FromCache {
		t.Error("expected cache hit")
	}
	if results[0].TranslatedText != "CACHED TRANSLATION" {
		t.Errorf("expected cached translation, got %q", results[0].TranslatedText)
	}
}

func TestRun_EmptyTaskList(t *testing.T) {
	results := Run(context.Background(), nil, newTestCache(t), stubTranslator{}, diagnostics.New(), nil, fastConfig())
	if len(results) != 0 {
		t.Errorf("expected no results for empty task list, got %d", len(results))
	}
}

func TestRun_RespectsMaxConcurrency(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxConcurrent = 2

	var tasks []model.TranslationTask
	for i := 0; i < 10; i++ {
		tasks = append(tasks, model.TranslationTask{TaskID: string(rune('a' + i)), Text: "x", TargetLang: "es", Priority: 1})
	}

	done := make(chan struct{})
	go func() {
		Run(context.Background(), tasks, newTestCache(t), stubTranslator{}, diagnostics.New(), nil, cfg)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not complete in time")
	}
}
