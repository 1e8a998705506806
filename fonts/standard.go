package fonts

import "strings"

// StandardFont is one of the base-14 Type1 identities this module
// supports (the Helvetica, Times, and Courier families).
type StandardFont string

const (
	Helvetica            StandardFont = "Helvetica"
	HelveticaBold        StandardFont = "Helvetica-Bold"
	HelveticaOblique     StandardFont = "Helvetica-Oblique"
	HelveticaBoldOblique StandardFont = "Helvetica-BoldOblique"
	TimesRoman           StandardFont = "Times-Roman"
	TimesBold            StandardFont = "Times-Bold"
	TimesItalic          StandardFont = "Times-Italic"
	TimesBoldItalic      StandardFont = "Times-BoldItalic"
	Courier              StandardFont = "Courier"
	CourierBold          StandardFont = "Courier-Bold"
	CourierOblique       StandardFont = "Courier-Oblique"
	CourierBoldOblique   StandardFont = "Courier-BoldOblique"
)

// BaseFont returns the PDF BaseFont name.
func (f StandardFont) BaseFont() string { return string(f) }

var standardByKey = map[string]StandardFont{
	"helvetica":             Helvetica,
	"helvetica-bold":        HelveticaBold,
	"helvetica-oblique":     HelveticaOblique,
	"helvetica-boldoblique": HelveticaBoldOblique,
	"times":                 TimesRoman,
	"times-roman":           TimesRoman,
	"times-bold":            TimesBold,
	"times-italic":          TimesItalic,
	"times-bolditalic":      TimesBoldItalic,
	"courier":               Courier,
	"courier-bold":          CourierBold,
	"courier-oblique":       CourierOblique,
	"courier-boldoblique":   CourierBoldOblique,
}

func normalizeKey(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "-", "_", "-").Replace(key)
}

// MapStandard maps a requested font name to a standard identity.
// Matching is case-insensitive and treats spaces and underscores as
// hyphens. Unrecognized names fall back to Helvetica.
func MapStandard(name string) StandardFont {
	if f, ok := standardByKey[normalizeKey(name)]; ok {
		return f
	}
	return Helvetica
}
