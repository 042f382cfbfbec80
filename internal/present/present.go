// Package present turns a classification result into display strings.
// It has no side effects; front-ends render the View however they like.
package present

import (
	"fmt"
	"strings"

	"github.com/hpungsan/mailsort/internal/email"
)

// Badge styles.
const (
	BadgeProductive   = "badge-prod"
	BadgeUnproductive = "badge-improd"
)

// NoFeaturesText is shown when the service reported no top features.
const NoFeaturesText = "No notable terms"

// View is the display form of a result.
type View struct {
	BadgeText       string   `json:"badge_text"`
	BadgeStyle      string   `json:"badge_style"`
	ProbabilityText string   `json:"probability_text"`
	IntentCode      string   `json:"intent_code"`
	IntentLabel     string   `json:"intent_label"`
	IntentStyle     string   `json:"intent_style"`
	DetectedLang    string   `json:"detected_language"`
	Features        []string `json:"top_features"`
	ExplanationText string   `json:"explanation_text"`
	PreviewText     string   `json:"preview_text"`
}

var intentLabels = map[string]string{
	email.IntentStatus:     "Status",
	email.IntentAttachment: "Attachment",
	email.IntentAccess:     "Access",
	email.IntentError:      "Error",
	email.IntentClosure:    "Closure",
	email.IntentThanks:     "Thanks",
	email.IntentGreetings:  "Greetings",
	email.IntentSupport:    "Support",
	email.IntentNonMessage: "Document",
	email.IntentOther:      "General",
}

// IntentLabel returns the display label for an intent code.
// Unknown or empty codes are OTHER.
func IntentLabel(code string) string {
	return intentLabels[normalizeIntent(code)]
}

func normalizeIntent(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if _, ok := intentLabels[code]; !ok {
		return email.IntentOther
	}
	return code
}

// Map builds the View for r. A nil result yields the zero View.
func Map(r *email.Result) View {
	if r == nil {
		return View{}
	}

	v := View{
		BadgeText:       string(email.Unproductive),
		BadgeStyle:      BadgeUnproductive,
		ProbabilityText: fmt.Sprintf("%.3f", r.Probability),
		PreviewText:     r.TextPreview,
	}
	if r.Category == email.Productive {
		v.BadgeText = string(email.Productive)
		v.BadgeStyle = BadgeProductive
	}

	code := normalizeIntent(r.Explanation.Intent)
	v.IntentCode = code
	v.IntentLabel = intentLabels[code]
	v.IntentStyle = "pill pill-" + strings.ToLower(strings.ReplaceAll(code, "_", ""))

	v.DetectedLang = strings.ToUpper(strings.TrimSpace(r.Explanation.Language))
	if v.DetectedLang == "" {
		v.DetectedLang = "PT"
	}
	v.Features = append([]string(nil), r.Explanation.TopFeatures...)

	features := NoFeaturesText
	if len(v.Features) > 0 {
		features = strings.Join(v.Features, ", ")
	}
	v.ExplanationText = fmt.Sprintf("Detected language: %s\nIntent: %s\nTop signals: %s",
		v.DetectedLang, v.IntentLabel, features)

	return v
}

// FileSize formats a byte count as kilobytes with one decimal ("12.3 KB").
func FileSize(n int64) string {
	return fmt.Sprintf("%.1f KB", float64(n)/1024)
}
