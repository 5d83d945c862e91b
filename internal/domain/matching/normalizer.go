// Package matching implements attribute resolution for heterogeneous
// marketplace order rows: text normalization, format-aware candidate
// extraction, learned-pattern prediction, and reference lookups.
package matching

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

// NormalizedText carries an input string together with its canonical form.
type NormalizedText struct {
	Original   string
	Normalized string
}

// scriptReplacer maps hiragana and katakana brand spellings to their
// latin forms so that downstream pattern matching sees a single script.
var scriptReplacer = strings.NewReplacer(
	"いふぉん", "iPhone",
	"あくおす", "AQUOS",
	"えくすぺりあ", "Xperia",
	"ぎゃらくしー", "Galaxy",
	"ぴくせる", "Pixel",
	"アイフォン", "iPhone",
	"ギャラクシー", "Galaxy",
	"エクスペリア", "Xperia",
	"アクオス", "AQUOS",
	"ピクセル", "Pixel",
	"オッポ", "OPPO",
	"アローズ", "arrows",
)

var (
	whitespaceRegex  = regexp.MustCompile(`\s+`)
	leadingHiraganaI = regexp.MustCompile(`(^|\s)い([Pp]hone)`)
)

// Normalizer produces canonical text forms for matching. It is stateless
// and safe for concurrent use.
type Normalizer struct{}

// NewNormalizer creates a new text normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize folds full-width ASCII to half-width, rewrites kana brand
// spellings to latin, and collapses whitespace. The operation is total
// and idempotent: any input yields a result, unmappable runes pass
// through unchanged, and normalizing a normalized string is a no-op.
func (n *Normalizer) Normalize(text string) NormalizedText {
	folded := width.Fold.String(text)
	folded = scriptReplacer.Replace(folded)
	folded = leadingHiraganaI.ReplaceAllString(folded, "${1}i${2}")
	folded = whitespaceRegex.ReplaceAllString(folded, " ")
	folded = strings.TrimSpace(folded)
	return NormalizedText{Original: text, Normalized: folded}
}

// Key returns the lookup key form of a value: normalized, lower-cased,
// with all spaces removed. Reference entries and learned patterns are
// compared on this form so that "iPhone 14 Pro" and "iphone14pro" collide.
func (n *Normalizer) Key(text string) string {
	normalized := n.Normalize(text).Normalized
	return strings.ReplaceAll(strings.ToLower(normalized), " ", "")
}

// Fold returns the case-folded normalized form used for substring
// containment checks.
func (n *Normalizer) Fold(text string) string {
	return strings.ToLower(n.Normalize(text).Normalized)
}
