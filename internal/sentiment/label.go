// Package sentiment classifies diary reflections and holds the label-keyed
// fallback messages used when feedback generation is unavailable.
package sentiment

import "strings"

// Label is a normalized sentiment class.
type Label string

const (
	Positive Label = "positive"
	Negative Label = "negative"
	Neutral  Label = "neutral"
)

// NormalizeLabel maps a classifier label onto Positive, Negative or Neutral.
// Anything unrecognized is Neutral.
func NormalizeLabel(raw string) Label {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "positive", "pos", "label_2":
		return Positive
	case "negative", "neg", "label_0":
		return Negative
	default:
		return Neutral
	}
}

// FallbackMessage is the canned motivational message for label. Labels other
// than positive and negative, including the empty label, get the generic one.
func FallbackMessage(label string) string {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case string(Positive):
		return "Fantastic! Keep it up! Your training is making you feel good! 💪"
	case string(Negative):
		return "Don't worry, everyone has tough days. Remember that every session makes you stronger! 🌟"
	default:
		return "You finished the workout! Keep checking in on how you feel so you keep improving! 🎯"
	}
}
