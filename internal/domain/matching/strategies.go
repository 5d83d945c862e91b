package matching

import (
	"regexp"
	"strings"
)

// Strategy names, in registry priority order.
const (
	StrategyRakutenOption = "rakuten_option"
	StrategyWowmaOption   = "wowma_option"
	StrategyKeywordScan   = "keyword_scan"
)

// Rakuten option lines look like 機種【iPhone】:iPhone 15 Pro[i6s]. A
// leading ▼ or - marks an unselected choice, so such lines never produce
// a candidate.
var rakutenOptionRegex = regexp.MustCompile(`機種【([^】]+)】[:=]([^▼\-\[\n\r&][^\[\n\r&]*)\[([^\]]+)\]`)

// Wowma option lines look like 機種の選択(iPhone)=iPhone SE 第2世代[i6].
var wowmaOptionRegex = regexp.MustCompile(`機種.*?\(([^)]+)\)=([^\[&\n\r]+)\[([^\]]+)\]`)

// RakutenOptionStrategy parses Rakuten-style option text
type RakutenOptionStrategy struct{}

// Name returns the strategy identifier
func (s *RakutenOptionStrategy) Name() string { return StrategyRakutenOption }

// Applies reports whether the text contains a Rakuten option marker
func (s *RakutenOptionStrategy) Applies(text string) bool {
	return strings.Contains(text, "機種【")
}

// Extract parses the first selected option line into device, brand, size
func (s *RakutenOptionStrategy) Extract(text string) (*Extraction, bool) {
	m := rakutenOptionRegex.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	brand := NormalizeBrandLabel(m[1])
	device := StripModelCode(strings.TrimSpace(m[2]))
	if brand != "" && !strings.HasPrefix(device, brand) {
		device = brand + " " + device
	}
	return &Extraction{
		Device: device,
		Brand:  brand,
		Size:   strings.TrimSpace(m[3]),
	}, true
}

// WowmaOptionStrategy parses Wowma-style option text
type WowmaOptionStrategy struct{}

// Name returns the strategy identifier
func (s *WowmaOptionStrategy) Name() string { return StrategyWowmaOption }

// Applies reports whether the text contains a Wowma option marker
func (s *WowmaOptionStrategy) Applies(text string) bool {
	return strings.Contains(text, "機種")
}

// Extract parses the first option line into device, brand, size
func (s *WowmaOptionStrategy) Extract(text string) (*Extraction, bool) {
	m := wowmaOptionRegex.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	brand := NormalizeBrandLabel(m[1])
	device := strings.TrimSpace(m[2])
	if brand != "" && !strings.HasPrefix(device, brand) {
		device = brand + " " + device
	}
	return &Extraction{
		Device: device,
		Brand:  brand,
		Size:   strings.TrimSpace(m[3]),
	}, true
}

// KeywordScanStrategy finds device mentions in free text (product names,
// memo columns). It never yields a size.
type KeywordScanStrategy struct{}

// Name returns the strategy identifier
func (s *KeywordScanStrategy) Name() string { return StrategyKeywordScan }

// Applies always reports true; the scan itself is the check
func (s *KeywordScanStrategy) Applies(text string) bool { return text != "" }

// Extract scans for a device-model keyword
func (s *KeywordScanStrategy) Extract(text string) (*Extraction, bool) {
	device, brand, ok := ScanDeviceKeyword(text)
	if !ok {
		return nil, false
	}
	return &Extraction{Device: device, Brand: brand}, true
}

// sizeTokenRegex captures the underscore-delimited size suffix that
// product names carry: _i6, _3L, _特大, _LL and so on.
var sizeTokenRegex = regexp.MustCompile(`_([0-9]?[LiM]+\d*|特{1,3}大|大|中|小|SS|LL|2L|3L)`)

// ExtractSizeToken pulls the size token out of a product name. The
// boolean reports whether one was present.
func ExtractSizeToken(productName string) (string, bool) {
	m := sizeTokenRegex.FindStringSubmatch(productName)
	if m == nil {
		return "", false
	}
	size := strings.TrimSpace(parenthesized.ReplaceAllString(m[1], ""))
	if size == "" {
		return "", false
	}
	return size, true
}

// designNumberRegexes capture design identifiers embedded in product
// names, most specific first.
var designNumberRegexes = []*regexp.Regexp{
	regexp.MustCompile(`betty-\d+-[a-z]+-[a-z]+`),
	regexp.MustCompile(`color_design_\d+-\d+`),
	regexp.MustCompile(`[a-zA-Z]+-\d+(?:-[a-zA-Z]+)?`),
	regexp.MustCompile(`[ぁ-んァ-ヶー一-龠]+-\d+`),
}

// ExtractDesignNumber pulls a design identifier such as betty-001-lec-bu
// or 花-001 out of a product name.
func ExtractDesignNumber(productName string) (string, bool) {
	if productName == "" {
		return "", false
	}
	for _, re := range designNumberRegexes {
		if m := re.FindString(productName); m != "" {
			return m, true
		}
	}
	return "", false
}
