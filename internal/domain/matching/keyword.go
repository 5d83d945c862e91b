package matching

import (
	"regexp"
	"strings"
)

// devicePattern pairs a device-model regular expression with the brand it
// implies. Patterns are evaluated in order; the first hit wins. excludeNext
// lists runes that must not immediately follow the match (used for bare
// Galaxy A-series numbers, which would otherwise swallow AQUOS carrier
// codes such as A303SH).
type devicePattern struct {
	re          *regexp.Regexp
	brand       string
	excludeNext string
}

// devicePatterns covers the device families seen in marketplace exports,
// ordered from most to least specific. Kana spellings are listed
// explicitly because rows arrive before any script rewrite is guaranteed.
var devicePatterns = []devicePattern{
	// iPhone
	{re: regexp.MustCompile(`(?i)[いi]?phone\s*\d{1,2}(?:\s*(?:Pro(?:\s*Max)?|Plus|mini))?`), brand: BrandIPhone},
	{re: regexp.MustCompile(`アイフォン\s*\d{1,2}(?:\s*(?:プロ|プラス|ミニ|マックス))?`), brand: BrandIPhone},
	{re: regexp.MustCompile(`いふぉん\s*\d{1,2}`), brand: BrandIPhone},

	// Galaxy
	{re: regexp.MustCompile(`(?i)Galaxy\s*[A-Z]\d+(?:\s*(?:Ultra|Plus|\+|ウルトラ|プラス))?`), brand: BrandGalaxy},
	{re: regexp.MustCompile(`ギャラクシー\s*[A-Z]?\d+(?:\s*(?:ウルトラ|プラス))?`), brand: BrandGalaxy},
	{re: regexp.MustCompile(`A\d{2}`), brand: BrandGalaxy, excludeNext: "0123456789SH"},
	{re: regexp.MustCompile(`(?i)SC-\d+[A-Z]*`), brand: BrandGalaxy},
	{re: regexp.MustCompile(`(?i)SCG\d+`), brand: BrandGalaxy},
	{re: regexp.MustCompile(`(?i)SCV\d+`), brand: BrandGalaxy},

	// Xperia
	{re: regexp.MustCompile(`(?i)Xperia\s*(?:\d+|[A-Z]+\s*\d+)(?:\s*(?:II|III|IV|V|VI))?`), brand: BrandXperia},
	{re: regexp.MustCompile(`エクスペリア\s*\d+`), brand: BrandXperia},
	{re: regexp.MustCompile(`(?i)SO-\d+[A-Z]*`), brand: BrandXperia},
	{re: regexp.MustCompile(`(?i)SOG\d+`), brand: BrandXperia},
	{re: regexp.MustCompile(`(?i)SOV\d+`), brand: BrandXperia},

	// AQUOS
	{re: regexp.MustCompile(`(?i)AQUOS\s*(?:sense|R|zero|wish|ゼロ|センス)\d*(?:\s*(?:plus|\+|プラス))?`), brand: BrandAQUOS},
	{re: regexp.MustCompile(`アクオス\s*(?:sense|R|zero|wish|センス|ゼロ)?\d*`), brand: BrandAQUOS},
	{re: regexp.MustCompile(`あくおす\s*(?:sense|R|zero|wish)?\d*`), brand: BrandAQUOS},
	{re: regexp.MustCompile(`(?i)wish\s*\d+(?:\s*(?:plus|\+))?`), brand: BrandAQUOS},
	{re: regexp.MustCompile(`(?i)sense\s*\d+(?:\s*(?:plus|\+|lite))?`), brand: BrandAQUOS},
	{re: regexp.MustCompile(`(?i)zero\s*\d+`), brand: BrandAQUOS},
	{re: regexp.MustCompile(`R\s*\d+`), brand: BrandAQUOS},
	{re: regexp.MustCompile(`We\s*\d+`), brand: BrandAQUOS},
	{re: regexp.MustCompile(`Be\s*\d+`), brand: BrandAQUOS},
	{re: regexp.MustCompile(`(?i)SH-\d+[A-Z]*`), brand: BrandAQUOS},
	{re: regexp.MustCompile(`(?i)SHG\d+`), brand: BrandAQUOS},
	{re: regexp.MustCompile(`(?i)SHV\d+`), brand: BrandAQUOS},
	{re: regexp.MustCompile(`(?i)A\d+SH`), brand: BrandAQUOS},

	// Pixel
	{re: regexp.MustCompile(`(?i)(?:Google\s*)?Pixel\s*\d+(?:\s*(?:Pro|a|XL))?`), brand: BrandPixel},
	{re: regexp.MustCompile(`ピクセル\s*\d+`), brand: BrandPixel},

	// OPPO
	{re: regexp.MustCompile(`(?i)OPPO\s*(?:Reno|Find|A)\d+(?:\s*(?:Pro|\+))?`), brand: BrandOPPO},
	{re: regexp.MustCompile(`オッポ\s*(?:Reno|Find|A)?\d+`), brand: BrandOPPO},

	// Xiaomi / Redmi
	{re: regexp.MustCompile(`(?i)(?:Redmi|Mi|Xiaomi)\s*(?:Note\s*)?\d+(?:\s*(?:Pro|\+))?`), brand: BrandXiaomi},

	// arrows
	{re: regexp.MustCompile(`(?i)arrows\s*(?:We|Be|NX|N|F)\d*`), brand: BrandArrows},
	{re: regexp.MustCompile(`アローズ\s*\d*`), brand: BrandArrows},
	{re: regexp.MustCompile(`(?i)F-\d+[A-Z]*`), brand: BrandArrows},
}

// Canonical brand names
const (
	BrandIPhone = "iPhone"
	BrandGalaxy = "Galaxy"
	BrandXperia = "Xperia"
	BrandAQUOS  = "AQUOS"
	BrandPixel  = "Pixel"
	BrandOPPO   = "OPPO"
	BrandXiaomi = "Xiaomi"
	BrandArrows = "arrows"
	BrandHuawei = "HUAWEI"
)

// deviceSuffixReplacer rewrites kana model suffixes after a device name
// has been captured ("14プロ" becomes "14 Pro").
var deviceSuffixReplacer = strings.NewReplacer(
	"プロ", " Pro",
	"プラス", " Plus",
	"ミニ", " mini",
	"マックス", " Max",
	"ウルトラ", " Ultra",
)

var parenthesized = regexp.MustCompile(`\([^)]*\)`)

// NormalizeBrandLabel maps a marketplace option label ("iPhone_2",
// "AQUOS(低)", "Other_1") to a canonical brand name. Labels that name no
// known brand return the empty string.
func NormalizeBrandLabel(label string) string {
	upper := strings.ToUpper(label)
	switch {
	case strings.Contains(upper, "IPHONE"):
		return BrandIPhone
	case strings.Contains(upper, "XPERIA"):
		return BrandXperia
	case strings.Contains(upper, "GALAXY"):
		return BrandGalaxy
	case strings.Contains(upper, "AQUOS"):
		return BrandAQUOS
	case strings.Contains(upper, "ARROWS"):
		return BrandArrows
	case strings.Contains(upper, "PIXEL"), strings.Contains(upper, "GOOGLE"):
		return BrandPixel
	case strings.Contains(upper, "OPPO"):
		return BrandOPPO
	case strings.Contains(upper, "HUAWEI"):
		return BrandHuawei
	default:
		return ""
	}
}

// NormalizeDeviceName cleans a captured device value: kana suffixes become
// latin, runs of whitespace collapse, and the brand is prefixed when the
// value does not already start with it. iPhone and Pixel values carry the
// brand in the model name itself, so no prefix is added for them.
func NormalizeDeviceName(device, brand string) string {
	device = whitespaceRegex.ReplaceAllString(strings.TrimSpace(device), " ")
	device = scriptReplacer.Replace(device)
	device = deviceSuffixReplacer.Replace(device)
	device = leadingHiraganaI.ReplaceAllString(device, "${1}i${2}")
	device = whitespaceRegex.ReplaceAllString(strings.TrimSpace(device), " ")

	if brand != "" && brand != BrandIPhone && brand != BrandPixel {
		if !strings.HasPrefix(strings.ToUpper(device), strings.ToUpper(brand)) {
			device = brand + " " + device
		}
	}
	return device
}

// ScanDeviceKeyword searches free text for a device-model mention and
// returns the cleaned device name with its brand. The boolean reports
// whether anything matched.
func ScanDeviceKeyword(text string) (device, brand string, ok bool) {
	if text == "" {
		return "", "", false
	}
	for _, p := range devicePatterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			if p.excludeNext != "" && loc[1] < len(text) &&
				strings.ContainsRune(p.excludeNext, rune(text[loc[1]])) {
				continue
			}
			return NormalizeDeviceName(text[loc[0]:loc[1]], p.brand), p.brand, true
		}
	}
	return "", "", false
}

// StripModelCode removes parenthesized carrier codes from a device value,
// "wish4(SH-52E)" becoming "wish4".
func StripModelCode(device string) string {
	return strings.TrimSpace(parenthesized.ReplaceAllString(device, ""))
}
