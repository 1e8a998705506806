package fonts

import "fmt"

// PlanKind says how text will be rendered for a run.
type PlanKind int

const (
	// UseStandard renders with a built-in Type1 font, no embedding.
	UseStandard PlanKind = iota
	// UseCIDEmbed embeds a system TrueType font as a Type0/Identity-H
	// composite font.
	UseCIDEmbed
)

// Plan is the outcome of font resolution over all record text.
type Plan struct {
	Kind      PlanKind
	Standard  StandardFont
	Requested string
}

// Key identifies equivalent plans for embed caching.
func (p Plan) Key() string {
	if p.Kind == UseCIDEmbed {
		return "cid:" + p.Requested
	}
	return "std:" + p.Standard.BaseFont()
}

// NeedsCID reports whether any rune in the given texts falls outside
// the single-byte range and therefore needs a CID-keyed font.
func NeedsCID(texts []string) bool {
	for _, s := range texts {
		for _, r := range s {
			if r > 0x7F {
				return true
			}
		}
	}
	return false
}

// Resolve builds the font plan for a run: the requested font name plus
// every string that will be rendered as text.
func Resolve(requested string, texts []string) Plan {
	if NeedsCID(texts) {
		return Plan{Kind: UseCIDEmbed, Requested: requested}
	}
	return Plan{Kind: UseStandard, Standard: MapStandard(requested), Requested: requested}
}

// cjkFamilies is the prioritized list of CJK-capable families probed
// when a CID font is needed, covering the common macOS, Windows, and
// Linux vendors.
var cjkFamilies = []string{
	"Hiragino Kaku Gothic Pro",
	"Hiragino Kaku Gothic ProN",
	"Hiragino Sans",
	"Hiragino Sans GB",
	"Hiragino Mincho ProN",
	"Noto Sans CJK JP",
	"Noto Sans JP",
	"Source Han Sans",
	"IPA Gothic",
	"IPA Mincho",
	"Yu Gothic",
	"Yu Mincho",
	"Meiryo",
	"MS Gothic",
	"MS Mincho",
}

// CIDFamilyCandidates returns the ordered family names to ask the font
// discovery collaborator for. A requested name that is not one of the
// standard identities is tried first.
func CIDFamilyCandidates(requested string) []string {
	var out []string
	if requested != "" {
		if _, std := standardByKey[normalizeKey(requested)]; !std {
			out = append(out, requested)
		}
	}
	return append(out, cjkFamilies...)
}

// NoCIDFontError reports that CID text is present but no matching
// system font file could be located.
type NoCIDFontError struct {
	Candidates []string
}

func (e *NoCIDFontError) Error() string {
	return fmt.Sprintf("no CID-capable system font found among %d candidate families", len(e.Candidates))
}
