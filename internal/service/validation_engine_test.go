package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/habitloop/habitloop-api/internal/models"
	"github.com/habitloop/habitloop-api/pkg/ai"
)

type stubRuleRepo struct {
	rule models.ValidationRule
	err  error
}

func (s *stubRuleRepo) ActiveByType(_ context.Context, _ string) (models.ValidationRule, error) {
	if s.err != nil {
		return models.ValidationRule{}, s.err
	}
	return s.rule, nil
}

type stubCacheRepo struct {
	entries map[string]models.ValidationCache
	stored  []models.ValidationCache
	hits    int
}

func newStubCacheRepo() *stubCacheRepo {
	return &stubCacheRepo{entries: make(map[string]models.ValidationCache)}
}

func (s *stubCacheRepo) Hit(_ context.Context, inputHash string) (models.ValidationCache, error) {
	s.hits++
	entry, ok := s.entries[inputHash]
	if !ok {
		return models.ValidationCache{}, gorm.ErrRecordNotFound
	}
	entry.UsageCount++
	s.entries[inputHash] = entry
	return entry, nil
}

func (s *stubCacheRepo) Store(_ context.Context, entry *models.ValidationCache) error {
	s.stored = append(s.stored, *entry)
	s.entries[entry.InputHash] = *entry
	return nil
}

func (s *stubCacheRepo) Evict(_ context.Context, olderThan time.Time) (int64, error) {
	var deleted int64
	for hash, entry := range s.entries {
		if entry.LastUsed.Before(olderThan) {
			delete(s.entries, hash)
			deleted++
		}
	}
	return deleted, nil
}

type stubGenerator struct {
	response string
	err      error
	calls    int
	lastReq  ai.GenerateRequest
}

func (s *stubGenerator) Generate(_ context.Context, req ai.GenerateRequest) (string, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func newTestEngine(rule models.ValidationRule, cache *stubCacheRepo, generator *stubGenerator) *ValidationEngine {
	registry := ai.NewRegistry(func(_ string) (ai.Generator, error) {
		return generator, nil
	})
	return NewValidationEngine(&stubRuleRepo{rule: rule}, cache, registry, "test-model", zerolog.Nop())
}

func textRule() models.ValidationRule {
	return models.ValidationRule{
		ID:                  1,
		Name:                "Text validation",
		ValidationType:      models.ValidationTypeText,
		PromptTemplate:      "Validate: {validation_prompt}",
		ConfidenceThreshold: 0.85,
	}
}

func textCheckIn(proof string) models.CheckIn {
	return models.CheckIn{
		ID:        10,
		TextProof: proof,
		Habit: models.Habit{
			ID:               5,
			UserID:           7,
			Title:            "Daily journaling",
			ValidationMethod: models.ValidationTypeText,
			ValidationPrompt: "a written journal entry",
			IsActive:         true,
		},
	}
}

func TestValidateNoRuleFound(t *testing.T) {
	cache := newStubCacheRepo()
	generator := &stubGenerator{}
	registry := ai.NewRegistry(func(_ string) (ai.Generator, error) { return generator, nil })
	engine := NewValidationEngine(&stubRuleRepo{err: gorm.ErrRecordNotFound}, cache, registry, "test-model", zerolog.Nop())

	result := engine.Validate(context.Background(), textCheckIn("a long enough journal entry about today"))

	require.False(t, result.Success)
	require.Equal(t, "no validation rule found", result.Error)
	require.False(t, result.IsApproved)
	require.Zero(t, result.Confidence)
	require.Equal(t, "Validation failed: no validation rule found", result.Explanation)
	require.Nil(t, result.RuleID)
	// Without a rule, the cache is never consulted.
	require.Zero(t, cache.hits)
	require.Zero(t, generator.calls)
}

func TestValidateTextMissingProof(t *testing.T) {
	cache := newStubCacheRepo()
	generator := &stubGenerator{response: `{"is_approved": true, "confidence": 0.95}`}
	engine := newTestEngine(textRule(), cache, generator)

	result := engine.Validate(context.Background(), textCheckIn("   "))

	require.False(t, result.Success)
	require.Equal(t, "no text proof provided", result.Error)
	require.Zero(t, generator.calls)
	require.Empty(t, cache.stored)
	require.NotNil(t, result.RuleID)
}

func TestValidatePhotoMissingProof(t *testing.T) {
	cache := newStubCacheRepo()
	generator := &stubGenerator{}
	rule := textRule()
	rule.ValidationType = models.ValidationTypePhoto
	engine := newTestEngine(rule, cache, generator)

	checkin := textCheckIn("")
	checkin.Habit.ValidationMethod = models.ValidationTypePhoto

	result := engine.Validate(context.Background(), checkin)

	require.False(t, result.Success)
	require.Equal(t, "no photo proof provided", result.Error)
	require.Zero(t, generator.calls)
}

func TestValidateTextApprovedAndCached(t *testing.T) {
	cache := newStubCacheRepo()
	generator := &stubGenerator{response: `{"is_approved": true, "confidence": 0.92, "explanation": "Looks genuine"}`}
	engine := newTestEngine(textRule(), cache, generator)

	checkin := textCheckIn("Today I wrote three pages about gratitude and consistency.")
	result := engine.Validate(context.Background(), checkin)

	require.True(t, result.Success)
	require.True(t, result.IsApproved)
	require.InDelta(t, 0.92, result.Confidence, 1e-9)
	require.Equal(t, "Looks genuine", result.Explanation)
	require.False(t, result.FromCache)
	require.NotNil(t, result.RuleID)
	require.Equal(t, uint(1), *result.RuleID)

	// High-confidence success is admitted to the cache.
	require.Len(t, cache.stored, 1)
	require.InDelta(t, 0.92, cache.stored[0].ConfidenceScore, 1e-9)
	require.True(t, cache.stored[0].IsApproved)

	// The prompt carries the habit's own validation prompt and the proof.
	require.Contains(t, generator.lastReq.Prompt, "a written journal entry")
	require.Contains(t, generator.lastReq.Prompt, "TEXT TO ANALYZE")
}

func TestValidateSecondRunHitsCache(t *testing.T) {
	cache := newStubCacheRepo()
	generator := &stubGenerator{response: `{"is_approved": true, "confidence": 0.92, "explanation": "ok"}`}
	engine := newTestEngine(textRule(), cache, generator)

	checkin := textCheckIn("Today I wrote three pages about gratitude and consistency.")

	first := engine.Validate(context.Background(), checkin)
	require.False(t, first.FromCache)
	require.Equal(t, 1, generator.calls)

	second := engine.Validate(context.Background(), checkin)
	require.True(t, second.FromCache)
	require.True(t, second.Success)
	require.True(t, second.IsApproved)
	require.InDelta(t, first.Confidence, second.Confidence, 1e-9)
	require.Equal(t, "Result from cache", second.Explanation)
	require.NotNil(t, second.RuleID)
	// The model is not called again.
	require.Equal(t, 1, generator.calls)
	// And a cached result is never re-stored.
	require.Len(t, cache.stored, 1)
}

func TestValidateLowConfidenceNotCached(t *testing.T) {
	cache := newStubCacheRepo()
	generator := &stubGenerator{response: `{"is_approved": true, "confidence": 0.65}`}
	engine := newTestEngine(textRule(), cache, generator)

	result := engine.Validate(context.Background(), textCheckIn("short reflection on the day, still long enough"))

	require.True(t, result.Success)
	require.Empty(t, cache.stored, "results at or below the admission threshold must not be cached")
}

func TestValidateThresholdForcesRejection(t *testing.T) {
	cache := newStubCacheRepo()
	generator := &stubGenerator{response: `{"is_approved": true, "confidence": 0.6, "explanation": "plausible but weak"}`}
	engine := newTestEngine(textRule(), cache, generator)

	result := engine.Validate(context.Background(), textCheckIn("an entry the model only half believes in"))

	require.True(t, result.Success)
	require.False(t, result.IsApproved, "confidence below the rule threshold must reject")
	require.InDelta(t, 0.6, result.Confidence, 1e-9, "the reported confidence is never clamped")
}

func TestValidateGeneratorFailure(t *testing.T) {
	cache := newStubCacheRepo()
	generator := &stubGenerator{err: context.DeadlineExceeded}
	engine := newTestEngine(textRule(), cache, generator)

	result := engine.Validate(context.Background(), textCheckIn("a valid entry the model never sees"))

	require.False(t, result.Success)
	require.Contains(t, result.Error, "text validation failed")
	require.Empty(t, cache.stored)
	require.Positive(t, result.ProcessingTime)
}

func TestValidateAudioLeniency(t *testing.T) {
	rule := textRule()
	rule.ValidationType = models.ValidationTypeAudio

	checkin := textCheckIn("")
	checkin.Habit.ValidationMethod = models.ValidationTypeAudio
	checkin.AudioProofName = "practice.mp3"

	t.Run("confidence above cutoff is approved and floored", func(t *testing.T) {
		generator := &stubGenerator{response: `{"is_approved": false, "confidence": 0.65}`}
		engine := newTestEngine(rule, newStubCacheRepo(), generator)

		result := engine.Validate(context.Background(), checkin)

		require.True(t, result.Success)
		require.True(t, result.IsApproved)
		require.InDelta(t, 0.7, result.Confidence, 1e-9)
	})

	t.Run("confidence below cutoff is untouched", func(t *testing.T) {
		generator := &stubGenerator{response: `{"is_approved": false, "confidence": 0.5}`}
		engine := newTestEngine(rule, newStubCacheRepo(), generator)

		result := engine.Validate(context.Background(), checkin)

		require.True(t, result.Success)
		require.False(t, result.IsApproved)
		require.InDelta(t, 0.5, result.Confidence, 1e-9)
	})

	t.Run("high confidence keeps its own value", func(t *testing.T) {
		generator := &stubGenerator{response: `{"is_approved": true, "confidence": 0.9}`}
		engine := newTestEngine(rule, newStubCacheRepo(), generator)

		result := engine.Validate(context.Background(), checkin)

		require.True(t, result.IsApproved)
		require.InDelta(t, 0.9, result.Confidence, 1e-9)
	})
}

func TestValidateScreenRecordingLeniency(t *testing.T) {
	rule := textRule()
	rule.ValidationType = models.ValidationTypeScreenRecording

	checkin := textCheckIn("")
	checkin.Habit.ValidationMethod = models.ValidationTypeScreenRecording
	checkin.ScreenRecordingProofName = "session.mp4"

	generator := &stubGenerator{response: `{"is_approved": false, "confidence": 0.7}`}
	engine := newTestEngine(rule, newStubCacheRepo(), generator)

	result := engine.Validate(context.Background(), checkin)

	require.True(t, result.IsApproved)
	require.InDelta(t, 0.75, result.Confidence, 1e-9)
}

func TestValidateAudioNeverCached(t *testing.T) {
	rule := textRule()
	rule.ValidationType = models.ValidationTypeAudio

	checkin := textCheckIn("")
	checkin.Habit.ValidationMethod = models.ValidationTypeAudio
	checkin.AudioProofName = "practice.mp3"

	cache := newStubCacheRepo()
	generator := &stubGenerator{response: `{"is_approved": true, "confidence": 0.95}`}
	engine := newTestEngine(rule, cache, generator)

	result := engine.Validate(context.Background(), checkin)

	require.True(t, result.Success)
	// No fingerprint discriminator exists for audio, so no lookup and no store.
	require.Zero(t, cache.hits)
	require.Empty(t, cache.stored)
}

func TestValidateUnsupportedMethod(t *testing.T) {
	rule := textRule()
	rule.ValidationType = models.ValidationTypeGeneral

	checkin := textCheckIn("whatever proof")
	checkin.Habit.ValidationMethod = models.ValidationTypeGeneral

	engine := newTestEngine(rule, newStubCacheRepo(), &stubGenerator{})
	result := engine.Validate(context.Background(), checkin)

	require.False(t, result.Success)
	require.Equal(t, "unsupported validation method", result.Error)
}

func TestFingerprintStability(t *testing.T) {
	rule := textRule()
	a := fingerprint(textCheckIn("same text proof content"), rule)
	b := fingerprint(textCheckIn("same text proof content"), rule)
	c := fingerprint(textCheckIn("different text proof content"), rule)

	require.NotEmpty(t, a)
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)

	otherRule := rule
	otherRule.ID = 2
	require.NotEqual(t, a, fingerprint(textCheckIn("same text proof content"), otherRule))
}

func TestFingerprintTextPrefixOnly(t *testing.T) {
	rule := textRule()
	long := make([]byte, 0, 300)
	for i := 0; i < 300; i++ {
		long = append(long, 'x')
	}

	a := fingerprint(textCheckIn(string(long)+"-tail-one"), rule)
	b := fingerprint(textCheckIn(string(long)+"-tail-two"), rule)

	// Only the first 100 characters participate, so differing tails collide.
	require.Equal(t, a, b)
}

func TestCacheHitPayloadRoundTrip(t *testing.T) {
	cache := newStubCacheRepo()
	rule := textRule()
	checkin := textCheckIn("a reproducible journal entry for caching")
	hash := fingerprint(checkin, rule)
	require.NotEmpty(t, hash)

	cache.entries[hash] = models.ValidationCache{
		InputHash:        hash,
		ValidationRuleID: rule.ID,
		AIResponse:       datatypes.JSONMap{"is_approved": true, "confidence": 0.9},
		ConfidenceScore:  0.9,
		IsApproved:       true,
		LastUsed:         time.Now(),
	}

	generator := &stubGenerator{response: `{"is_approved": false, "confidence": 0.1}`}
	engine := newTestEngine(rule, cache, generator)

	result := engine.Validate(context.Background(), checkin)

	require.True(t, result.FromCache)
	require.True(t, result.IsApproved)
	require.InDelta(t, 0.9, result.Confidence, 1e-9)
	require.Equal(t, true, result.ParsedData["is_approved"])
	require.Zero(t, generator.calls)
}
