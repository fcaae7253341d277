package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/habitloop/habitloop-api/internal/models"
	"github.com/habitloop/habitloop-api/internal/observability"
	"github.com/habitloop/habitloop-api/internal/repository"
	"github.com/habitloop/habitloop-api/pkg/ai"
)

// Cache admission is a fixed cutoff, independent of the rule's own confidence
// threshold: only high-confidence results are worth entrenching.
const cacheAdmissionThreshold = 0.7

// MVP leniency floors for the proof types whose media is not actually
// analysed. The model only assesses a generic description, so approval is
// granted above a lower bar and confidence is raised to a floor.
const (
	audioLeniencyCutoff      = 0.6
	audioLeniencyFloor       = 0.7
	screenRecLeniencyCutoff  = 0.65
	screenRecLeniencyFloor   = 0.75
)

const textProofFingerprintPrefix = 100

// ValidationResult is the outcome of a single engine run. The engine is a
// total function: every failure mode is folded into this structure and
// nothing escapes its public boundary.
type ValidationResult struct {
	Success        bool
	Confidence     float64
	IsApproved     bool
	Explanation    string
	RawResponse    string
	ParsedData     map[string]interface{}
	FromCache      bool
	Error          string
	ProcessingTime float64
	RuleID         *uint
}

// ValidationEngine orchestrates rule lookup, cache lookup, model invocation,
// response parsing and threshold enforcement for a check-in.
type ValidationEngine struct {
	rules    repository.ValidationRuleRepository
	cache    repository.ValidationCacheRepository
	registry *ai.Registry
	model    string
	logger   zerolog.Logger
}

// NewValidationEngine constructs the validation engine.
func NewValidationEngine(rules repository.ValidationRuleRepository, cache repository.ValidationCacheRepository, registry *ai.Registry, model string, logger zerolog.Logger) *ValidationEngine {
	return &ValidationEngine{
		rules:    rules,
		cache:    cache,
		registry: registry,
		model:    model,
		logger:   logger.With().Str("component", "validation_engine").Logger(),
	}
}

// Validate runs the full validation pipeline for the check-in. The habit must
// be loaded on the check-in. Callers always get a result; any panic below is
// converted into an error result.
func (e *ValidationEngine) Validate(ctx context.Context, checkin models.CheckIn) (result ValidationResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Uint("checkin_id", checkin.ID).Msg("validation panicked")
			result = e.errorResult(fmt.Sprintf("validation failed: %v", r))
		}
		result.ProcessingTime = time.Since(start).Seconds()
	}()

	rule, err := e.rules.ActiveByType(ctx, checkin.Habit.ValidationMethod)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			e.logger.Error().Err(err).Str("validation_type", checkin.Habit.ValidationMethod).Msg("rule lookup failed")
		}
		return e.errorResult("no validation rule found")
	}

	hash := fingerprint(checkin, rule)
	if hash != "" {
		entry, err := e.cache.Hit(ctx, hash)
		switch {
		case err == nil:
			e.logger.Info().Uint("checkin_id", checkin.ID).Str("input_hash", hash).Msg("using cached validation result")
			observability.ValidationCacheEvents().WithLabelValues("hit").Inc()
			return ValidationResult{
				Success:     true,
				Confidence:  entry.ConfidenceScore,
				IsApproved:  entry.IsApproved,
				Explanation: "Result from cache",
				ParsedData:  map[string]interface{}(entry.AIResponse),
				FromCache:   true,
				RuleID:      &rule.ID,
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			e.logger.Warn().Err(err).Str("input_hash", hash).Msg("cache lookup failed")
		default:
			observability.ValidationCacheEvents().WithLabelValues("miss").Inc()
		}
	}

	switch checkin.Habit.ValidationMethod {
	case models.ValidationTypePhoto:
		result = e.validatePhoto(ctx, checkin, rule)
	case models.ValidationTypeText:
		result = e.validateText(ctx, checkin, rule)
	case models.ValidationTypeAudio:
		result = e.validateAudio(ctx, checkin, rule)
	case models.ValidationTypeScreenRecording:
		result = e.validateScreenRecording(ctx, checkin, rule)
	default:
		result = e.errorResult("unsupported validation method")
	}
	result.RuleID = &rule.ID
	observability.ValidationsTotal().WithLabelValues(checkin.Habit.ValidationMethod, outcomeLabel(result)).Inc()

	if result.Success && result.Confidence > cacheAdmissionThreshold && hash != "" && !result.FromCache {
		e.storeCacheEntry(ctx, hash, checkin, rule, result)
	}

	return result
}

func outcomeLabel(result ValidationResult) string {
	switch {
	case !result.Success:
		return "failed"
	case result.IsApproved:
		return "approved"
	default:
		return "rejected"
	}
}

func (e *ValidationEngine) validatePhoto(ctx context.Context, checkin models.CheckIn, rule models.ValidationRule) ValidationResult {
	if len(checkin.PhotoProof) == 0 {
		return e.errorResult("no photo proof provided")
	}

	generator, err := e.registry.Get(e.model)
	if err != nil {
		return e.errorResult(fmt.Sprintf("photo validation failed: %v", err))
	}

	raw, err := generator.Generate(ctx, ai.GenerateRequest{
		Prompt: buildPrompt(rule, checkin.Habit.ValidationPrompt),
		Attachment: &ai.Attachment{
			Data: checkin.PhotoProof,
			MIME: mimetype.Detect(checkin.PhotoProof).String(),
		},
	})
	if err != nil {
		return e.errorResult(fmt.Sprintf("photo validation failed: %v", err))
	}

	return applyVerdict(raw, rule)
}

func (e *ValidationEngine) validateText(ctx context.Context, checkin models.CheckIn, rule models.ValidationRule) ValidationResult {
	if strings.TrimSpace(checkin.TextProof) == "" {
		return e.errorResult("no text proof provided")
	}

	generator, err := e.registry.Get(e.model)
	if err != nil {
		return e.errorResult(fmt.Sprintf("text validation failed: %v", err))
	}

	prompt := fmt.Sprintf(`%s

TEXT TO ANALYZE:
%q

REQUIREMENTS:
- Minimum 50 characters for meaningful content
- Relevant to the habit: %s
- Shows genuine effort/reflection
- Appropriate length and depth

Please analyze thoroughly and provide your assessment.`,
		buildPrompt(rule, checkin.Habit.ValidationPrompt), checkin.TextProof, checkin.Habit.ValidationPrompt)

	raw, err := generator.Generate(ctx, ai.GenerateRequest{Prompt: prompt})
	if err != nil {
		return e.errorResult(fmt.Sprintf("text validation failed: %v", err))
	}

	return applyVerdict(raw, rule)
}

// validateAudio is a heuristic placeholder: the recording itself is never
// sent to the model. The model assesses a generic description of typical
// submissions and the outcome is post-processed leniently.
func (e *ValidationEngine) validateAudio(ctx context.Context, checkin models.CheckIn, rule models.ValidationRule) ValidationResult {
	generator, err := e.registry.Get(e.model)
	if err != nil {
		return e.errorResult(fmt.Sprintf("audio validation failed: %v", err))
	}

	prompt := fmt.Sprintf(`%s

AUDIO CONTEXT:
The user has submitted an audio recording for: %s

Since audio cannot be processed directly in this implementation, please
provide a general assessment based on typical audio submissions for this type
of habit. Assume the audio has been verified to contain relevant content.`,
		buildPrompt(rule, checkin.Habit.ValidationPrompt), checkin.Habit.ValidationPrompt)

	raw, err := generator.Generate(ctx, ai.GenerateRequest{Prompt: prompt})
	if err != nil {
		return e.errorResult(fmt.Sprintf("audio validation failed: %v", err))
	}

	result := applyVerdict(raw, rule)
	if result.Confidence > audioLeniencyCutoff {
		result.IsApproved = true
		if result.Confidence < audioLeniencyFloor {
			result.Confidence = audioLeniencyFloor
		}
	}
	return result
}

// validateScreenRecording mirrors the audio placeholder with a slightly
// higher leniency band.
func (e *ValidationEngine) validateScreenRecording(ctx context.Context, checkin models.CheckIn, rule models.ValidationRule) ValidationResult {
	generator, err := e.registry.Get(e.model)
	if err != nil {
		return e.errorResult(fmt.Sprintf("screen recording validation failed: %v", err))
	}

	prompt := fmt.Sprintf(`%s

SCREEN RECORDING CONTEXT:
The user has submitted a screen recording for: %s

Since screen recordings cannot be processed directly in this implementation,
please provide an assessment based on typical screen recordings for this habit
type. Assume the screen recording shows relevant activity.`,
		buildPrompt(rule, checkin.Habit.ValidationPrompt), checkin.Habit.ValidationPrompt)

	raw, err := generator.Generate(ctx, ai.GenerateRequest{Prompt: prompt})
	if err != nil {
		return e.errorResult(fmt.Sprintf("screen recording validation failed: %v", err))
	}

	result := applyVerdict(raw, rule)
	if result.Confidence > screenRecLeniencyCutoff {
		result.IsApproved = true
		if result.Confidence < screenRecLeniencyFloor {
			result.Confidence = screenRecLeniencyFloor
		}
	}
	return result
}

func (e *ValidationEngine) storeCacheEntry(ctx context.Context, hash string, checkin models.CheckIn, rule models.ValidationRule, result ValidationResult) {
	preview := checkin.Habit.ValidationPrompt
	if checkin.TextProof != "" {
		preview += " - " + prefixOf(checkin.TextProof, textProofFingerprintPrefix) + "..."
	}

	entry := models.ValidationCache{
		InputHash:        hash,
		ValidationRuleID: rule.ID,
		InputDataPreview: preview,
		AIResponse:       datatypes.JSONMap(result.ParsedData),
		ConfidenceScore:  result.Confidence,
		IsApproved:       result.IsApproved,
	}

	// Cache population is best-effort; a write failure never surfaces.
	if err := e.cache.Store(ctx, &entry); err != nil {
		e.logger.Warn().Err(err).Str("input_hash", hash).Msg("failed to cache validation result")
	}
}

func (e *ValidationEngine) errorResult(message string) ValidationResult {
	return ValidationResult{
		Success:     false,
		Error:       message,
		Confidence:  0.0,
		IsApproved:  false,
		Explanation: fmt.Sprintf("Validation failed: %s", message),
	}
}

// applyVerdict parses the raw model text and enforces the rule's confidence
// threshold: a confidence below the threshold forces rejection but never
// alters the confidence itself.
func applyVerdict(raw string, rule models.ValidationRule) ValidationResult {
	verdict := ai.ParseResponse(raw)

	isApproved := verdict.IsApproved
	if verdict.Confidence < rule.ConfidenceThreshold {
		isApproved = false
	}

	return ValidationResult{
		Success:     true,
		Confidence:  verdict.Confidence,
		IsApproved:  isApproved,
		Explanation: verdict.Explanation,
		RawResponse: raw,
		ParsedData:  verdict.Parsed,
	}
}

// buildPrompt substitutes the habit's validation prompt into the rule
// template.
func buildPrompt(rule models.ValidationRule, habitPrompt string) string {
	return strings.ReplaceAll(rule.PromptTemplate, "{validation_prompt}", habitPrompt)
}

// fingerprint derives the content-addressed cache key for a validation input.
// Text proof contributes only its first 100 characters, and photo proof
// contributes its logical file name rather than pixel content; both are
// accepted limitations of the scheme, not bugs. Proof types without a
// discriminator are not fingerprinted and therefore never cached.
func fingerprint(checkin models.CheckIn, rule models.ValidationRule) string {
	input := fmt.Sprintf("%s-%d", checkin.Habit.ValidationPrompt, rule.ID)

	switch {
	case checkin.TextProof != "":
		input += "-" + prefixOf(checkin.TextProof, textProofFingerprintPrefix)
	case checkin.PhotoProofName != "":
		input += "-photo-" + checkin.PhotoProofName
	default:
		return ""
	}

	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

func prefixOf(input string, limit int) string {
	if len(input) <= limit {
		return input
	}
	return input[:limit]
}
