package helpers

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func EscapeMarkdownV2(text string) string {
	charactersToEscape := []string{"\\", ".", "-", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "=", "|", "{", "}", "!"}

	for _, char := range charactersToEscape {
		text = strings.ReplaceAll(text, char, "\\"+char)
	}
	return text
}

// FormatPriceUS prints a price with US thousand separators and a number of
// decimals that suits its magnitude.
func FormatPriceUS(price float64, escapeMarkdown bool) string {
	decimals := 6

	if price >= 1000 {
		decimals = 2
	} else if price > 1.2 {
		decimals = 4
	} else if price < 0.00001 {
		decimals = 8
	}

	p := message.NewPrinter(language.English)
	formatted := p.Sprintf("%.*f", decimals, price)

	if escapeMarkdown {
		return EscapeMarkdownV2(formatted)
	}
	return formatted
}

// FormatAge renders how long ago t was, e.g. "3 minutes ago".
func FormatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

// ShortHash trims an alert hash for display.
func ShortHash(hash string) string {
	const keep = 14
	if len(hash) <= keep {
		return hash
	}
	return hash[:keep]
}
