// Package markup implements the Markup-Aware Translator (spec §4.7): it
// detects lightweight markup in a block's text, translates only the
// natural-language portions while leaving markup tokens untouched, and
// validates the structural invariants the translated text must preserve,
// retrying with a segmented fallback when they drift. It generalizes the
// teacher's LaTeX structure-identification and environment-validation
// passes (internal/translator/preprocessor.go, validator.go) from
// LaTeX-specific commands/environments to the spec's lightweight Markdown
// subset (headings, bold, code fences, list markers, blank-line breaks).
package markup

import (
	"context"
	"regexp"
	"strings"

	"latex-translator/internal/logger"
)

var headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
var boldPattern = regexp.MustCompile(`\*\*(.+?)\*\*`)
var inlineCodePattern = regexp.MustCompile("`[^`]+`")
var codeFencePattern = regexp.MustCompile("^```")
var bulletMarkerPattern = regexp.MustCompile(`^(\s*[-*•]\s+)(.*)$`)
var numberedMarkerPattern = regexp.MustCompile(`^(\s*\d+[.)]\s+)(.*)$`)
var mathInlinePattern = regexp.MustCompile(`\$[^$]+\$`)

// Translator is the external translate_text collaborator (spec §6):
// markup never implements translation itself, only segmentation around it.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// Context carries the trimmed neighboring-block text of the block being
// translated. Translate accepts it but does not forward it: the Translator
// interface takes only the text and target language, so the translation
// service never sees this context.
type Context struct {
	Before string // previous block's trailing ~200 chars
	After  string // next block's leading ~200 chars
}

// HasMarkup reports whether text contains any of the lightweight markup
// signals spec §4.7 step 1 checks for.
func HasMarkup(text string) bool {
	if codeFencePattern.MatchString(strings.TrimSpace(text)) {
		return true
	}
	for _, line := range strings.Split(text, "\n") {
		if headingPattern.MatchString(line) {
			return true
		}
		if bulletMarkerPattern.MatchString(line) || numberedMarkerPattern.MatchString(line) {
			return true
		}
	}
	if boldPattern.MatchString(text) || inlineCodePattern.MatchString(text) {
		return true
	}
	return strings.Contains(text, "\n\n")
}

// Translate implements the spec §4.7 algorithm: plain pass-through when no
// markup is detected, otherwise segment-based translation with structural
// validation and a one-shot segmented retry on failure.
func Translate(ctx context.Context, text, targetLang string, blockCtx Context, t Translator) (string, error) {
	if !HasMarkup(text) {
		return t.Translate(ctx, text, targetLang)
	}

	result, err := translateSegmented(ctx, text, targetLang, t)
	if err != nil {
		return "", err
	}

	if structurallyValid(text, result) {
		return result, nil
	}

	logger.Warn("markup structural invariant violated, retrying with segmented fallback",
		logger.Int("headingsOriginal", countHeadings(text)),
		logger.Int("headingsTranslated", countHeadings(result)))

	retry, err := translateSegmented(ctx, text, targetLang, t)
	if err != nil {
		return result, nil // accept the first attempt rather than fail the block
	}
	if structurallyValid(text, retry) {
		return retry, nil
	}
	return retry, nil // still invalid: accept per spec §7 ValidationError policy
}

// translateSegmented splits text into lines, protects math/code/markup
// tokens, translates only the natural-language remainder of each line,
// and reconstitutes the original syntax around it.
func translateSegmented(ctx context.Context, text, targetLang string, t Translator) (string, error) {
	lines := strings.Split(text, "\n")
	out := make([]string, len(lines))

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			out[i] = line
			continue
		}
		if codeFencePattern.MatchString(strings.TrimSpace(line)) {
			out[i] = line
			continue
		}

		translated, err := translateLine(ctx, line, targetLang, t)
		if err != nil {
			return "", err
		}
		out[i] = translated
	}

	return strings.Join(out, "\n"), nil
}

func translateLine(ctx context.Context, line, targetLang string, t Translator) (string, error) {
	protected, placeholders := protectTokens(line)

	if m := headingPattern.FindStringSubmatch(protected); m != nil {
		translated, err := t.Translate(ctx, m[2], targetLang)
		if err != nil {
			return "", err
		}
		return restoreTokens(m[1]+" "+translated, placeholders), nil
	}

	if m := bulletMarkerPattern.FindStringSubmatch(protected); m != nil {
		translated, err := t.Translate(ctx, m[2], targetLang)
		if err != nil {
			return "", err
		}
		return restoreTokens(m[1]+translated, placeholders), nil
	}

	if m := numberedMarkerPattern.FindStringSubmatch(protected); m != nil {
		translated, err := t.Translate(ctx, m[2], targetLang)
		if err != nil {
			return "", err
		}
		return restoreTokens(m[1]+translated, placeholders), nil
	}

	translated, err := t.Translate(ctx, protected, targetLang)
	if err != nil {
		return "", err
	}
	return restoreTokens(translated, placeholders), nil
}

// protectTokens replaces math spans and inline code with opaque
// placeholders so the translator's output cannot corrupt them, per spec
// §4.7's "never alters ... code-fence contents, or math between $...$".
func protectTokens(line string) (string, []string) {
	var placeholders []string

	replace := func(pattern *regexp.Regexp, s string) string {
		return pattern.ReplaceAllStringFunc(s, func(m string) string {
			placeholders = append(placeholders, m)
			return placeholderToken(len(placeholders) - 1)
		})
	}

	protected := replace(mathInlinePattern, line)
	protected = replace(inlineCodePattern, protected)
	return protected, placeholders
}

func restoreTokens(line string, placeholders []string) string {
	for i, p := range placeholders {
		line = strings.ReplaceAll(line, placeholderToken(i), p)
	}
	return line
}

func placeholderToken(i int) string {
	return "\x00MARKUP" + itoa(i) + "\x00"
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := ""
	for i > 0 {
		digits = string(rune('0'+i%10)) + digits
		i /= 10
	}
	return digits
}

// structurallyValid implements the spec §4.7/§8 structural invariants:
// heading count difference ≤1, paragraph-break count difference ≤2.
func structurallyValid(original, translated string) bool {
	headingDiff := abs(countHeadings(original) - countHeadings(translated))
	breakDiff := abs(countParagraphBreaks(original) - countParagraphBreaks(translated))
	return headingDiff <= 1 && breakDiff <= 2
}

func countHeadings(text string) int {
	count := 0
	for _, line := range strings.Split(text, "\n") {
		if headingPattern.MatchString(line) {
			count++
		}
	}
	return count
}

func countParagraphBreaks(text string) int {
	return strings.Count(text, "\n\n")
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
