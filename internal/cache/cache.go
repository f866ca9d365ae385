// Package cache implements the Two-Tier Cache (spec §4.9): an in-memory
// LRU-by-access-time Tier 1 in front of a durable Tier 2 keyed both by
// exact cache key and by similarity fingerprint for fuzzy lookup.
// It generalizes the teacher's single-tier sha256-keyed TranslationCache
// (internal/pdf/cache.go) into the spec's two-tier, fuzzy-matching design,
// keeping the teacher's JSON snapshot persistence and versioned cache-file
// envelope (internal/pdf/types.go's CacheFile) so an older on-disk cache
// upgrades in place rather than being discarded.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/agnivade/levenshtein"

	"latex-translator/internal/logger"
	"latex-translator/internal/model"
)

// Config holds the tunable thresholds spec §4.9 and §6 expose.
type Config struct {
	Tier1Capacity       int     // default 1000
	MaxCacheEntries     int     // Tier 2 bound; default 10000
	SimilarityThreshold float64 // default 0.85
	FuzzyEnabled        bool
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{Tier1Capacity: 1000, MaxCacheEntries: 10000, SimilarityThreshold: 0.85, FuzzyEnabled: true}
}

const currentSchemaVersion = "2.0"

// snapshotFile is the on-disk envelope; version "1.0" is the teacher's
// original flat-entry layout, upgraded transparently on load.
type snapshotFile struct {
	Version string             `json:"version"`
	Entries []model.CacheEntry `json:"entries"`
}

// Cache is the two-tier translation cache.
type Cache struct {
	mu   sync.RWMutex
	tier1 *lru.Cache[string, string]
	tier2 map[string]model.CacheEntry
	// similarityIndex maps a similarity_fingerprint to the set of exact
	// cache_keys sharing it.
	similarityIndex map[string]map[string]bool

	cfg  Config
	path string
}

var whitespacePattern = regexp.MustCompile(`\s+`)

// New creates an empty two-tier cache.
func New(cfg Config, snapshotPath string) (*Cache, error) {
	tier1, err := lru.New[string, string](cfg.Tier1Capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{
		tier1:           tier1,
		tier2:           make(map[string]model.CacheEntry),
		similarityIndex: make(map[string]map[string]bool),
		cfg:             cfg,
		path:            snapshotPath,
	}, nil
}

// Key computes the exact cache_key for a lookup (spec §4.9 "hash(text|
// target_language|context_before|context_after)").
func Key(text, targetLang, contextBefore, contextAfter string) string {
	return hashOf(text + "|" + targetLang + "|" + contextBefore + "|" + contextAfter)
}

// ContextFingerprint hashes the trailing/leading context chars, per
// glossary's "Context fingerprint".
func ContextFingerprint(contextBefore, contextAfter string) string {
	return hashOf(contextBefore + "|" + contextAfter)
}

// SimilarityFingerprint hashes whitespace-normalized lowercase text, per
// glossary's "Similarity fingerprint" and spec §8 property 1.
func SimilarityFingerprint(text string) string {
	normalized := whitespacePattern.ReplaceAllString(strings.ToLower(text), " ")
	return hashOf(strings.TrimSpace(normalized))
}

func hashOf(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Lookup implements the spec §4.9 four-step lookup order.
func (c *Cache) Lookup(text, targetLang, model_, contextBefore, contextAfter string) (string, bool) {
	key := Key(text, targetLang, contextBefore, contextAfter)

	c.mu.Lock()
	if translated, ok := c.tier1.Get(key); ok {
		c.mu.Unlock()
		return translated, true
	}
	c.mu.Unlock()

	c.mu.RLock()
	if entry, ok := c.tier2[key]; ok {
		c.mu.RUnlock()
		c.hydrateAndTouch(key, entry)
		return entry.TranslatedText, true
	}
	c.mu.RUnlock()

	if !c.cfg.FuzzyEnabled {
		return "", false
	}

	return c.fuzzyLookup(text, targetLang, model_, contextBefore, contextAfter)
}

func (c *Cache) fuzzyLookup(text, targetLang, model_, contextBefore, contextAfter string) (string, bool) {
	fp := SimilarityFingerprint(text)
	ctxFp := ContextFingerprint(contextBefore, contextAfter)

	c.mu.RLock()
	defer c.mu.RUnlock()

	if keys, ok := c.similarityIndex[fp]; ok {
		for k := range keys {
			entry, exists := c.tier2[k]
			if !exists || entry.TargetLanguage != targetLang || entry.ModelName != model_ {
				continue
			}
			return entry.TranslatedText, true
		}
	}

	var best model.CacheEntry
	var bestKey string
	bestScore := 0.0
	for k, entry := range c.tier2 {
		if entry.TargetLanguage != targetLang || entry.ModelName != model_ {
			continue
		}
		score := textSimilarity(text, entry.OriginalText)
		if entry.ContextFingerprint != "" && entry.ContextFingerprint == ctxFp {
			score += 0.1
		}
		if score > bestScore {
			bestScore = score
			best = entry
			bestKey = k
		}
	}

	if bestKey != "" && bestScore >= c.cfg.SimilarityThreshold {
		return best.TranslatedText, true
	}
	return "", false
}

// textSimilarity computes a normalized sequence-similarity ratio in [0,1]
// via edit distance over whitespace-normalized, lowercased text, matching
// spec §4.9's "sequence-matching ratio" (case and spacing are not
// meaningful differences for fuzzy translation reuse).
func textSimilarity(a, b string) float64 {
	na := whitespacePattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(a)), " ")
	nb := whitespacePattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(b)), " ")
	if na == nb {
		return 1
	}
	maxLen := len(na)
	if len(nb) > maxLen {
		maxLen = len(nb)
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(na, nb)
	return 1 - float64(dist)/float64(maxLen)
}

// hydrateAndTouch promotes a Tier 2 hit into Tier 1 and bumps usage.
func (c *Cache) hydrateAndTouch(key string, entry model.CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tier1.Add(key, entry.TranslatedText)
	if e, ok := c.tier2[key]; ok {
		e.UsageCount++
		c.tier2[key] = e
	}
}

// Store writes a successful translation into both tiers (spec §4.8
// "successful results populate both tiers").
func (c *Cache) Store(original, translated, targetLang, modelName, contextBefore, contextAfter string, now time.Time) {
	key := Key(original, targetLang, contextBefore, contextAfter)
	fp := SimilarityFingerprint(original)
	ctxFp := ContextFingerprint(contextBefore, contextAfter)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.tier1.Add(key, translated)

	entry := model.CacheEntry{
		OriginalText:          original,
		TranslatedText:        translated,
		TargetLanguage:        targetLang,
		ModelName:             modelName,
		ContextFingerprint:    ctxFp,
		SimilarityFingerprint: fp,
		Timestamp:             now.Unix(),
		UsageCount:            1,
		QualityScore:          1.0,
	}
	if existing, ok := c.tier2[key]; ok {
		entry.UsageCount = existing.UsageCount + 1
	}
	c.tier2[key] = entry

	if c.similarityIndex[fp] == nil {
		c.similarityIndex[fp] = make(map[string]bool)
	}
	c.similarityIndex[fp][key] = true

	c.evictIfNeededLocked()
}

// evictIfNeededLocked implements spec §4.9's Tier-2 eviction: when over
// max_cache_entries, remove the 20% with the lowest (usage_count,
// timestamp) tuple. Caller must hold c.mu.
func (c *Cache) evictIfNeededLocked() {
	if len(c.tier2) <= c.cfg.MaxCacheEntries {
		return
	}

	type scored struct {
		key   string
		entry model.CacheEntry
	}
	all := make([]scored, 0, len(c.tier2))
	for k, e := range c.tier2 {
		all = append(all, scored{k, e})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].entry.UsageCount != all[j].entry.UsageCount {
			return all[i].entry.UsageCount < all[j].entry.UsageCount
		}
		return all[i].entry.Timestamp < all[j].entry.Timestamp
	})

	toRemove := len(all) / 5
	for i := 0; i < toRemove; i++ {
		k := all[i].key
		fp := all[i].entry.SimilarityFingerprint
		delete(c.tier2, k)
		if set, ok := c.similarityIndex[fp]; ok {
			delete(set, k)
			if len(set) == 0 {
				delete(c.similarityIndex, fp)
			}
		}
	}
}

// Size reports the current Tier-2 entry count (spec §8 property 10).
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tier2)
}

// Load hydrates Tier 2 from a JSON snapshot, upgrading the teacher's
// legacy "1.0" flat schema in place (spec §7 "CacheLoadError: start with
// empty cache").
func (c *Cache) Load() error {
	if c.path == "" {
		return nil
	}
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		logger.Warn("cache load failed, starting empty", logger.Err(err))
		return nil
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		logger.Warn("cache snapshot unparsable, starting empty", logger.Err(err))
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range file.Entries {
		if e.SimilarityFingerprint == "" {
			// legacy "1.0" entries predate fuzzy indexing: backfill it.
			e.SimilarityFingerprint = SimilarityFingerprint(e.OriginalText)
		}
		key := Key(e.OriginalText, e.TargetLanguage, "", "")
		c.tier2[key] = e
		if c.similarityIndex[e.SimilarityFingerprint] == nil {
			c.similarityIndex[e.SimilarityFingerprint] = make(map[string]bool)
		}
		c.similarityIndex[e.SimilarityFingerprint][key] = true
	}
	return nil
}

// Save persists Tier 2 to a JSON snapshot (spec §7 "CacheSaveError: skip
// save; warn").
func (c *Cache) Save() error {
	if c.path == "" {
		return nil
	}
	c.mu.RLock()
	entries := make([]model.CacheEntry, 0, len(c.tier2))
	for _, e := range c.tier2 {
		entries = append(entries, e)
	}
	c.mu.RUnlock()

	file := snapshotFile{Version: currentSchemaVersion, Entries: entries}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		logger.Warn("cache snapshot marshal failed, skipping save", logger.Err(err))
		return nil
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		logger.Warn("cache snapshot write failed, skipping save", logger.Err(err))
		return nil
	}
	return nil
}
