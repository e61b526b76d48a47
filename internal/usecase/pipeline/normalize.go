package pipeline

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"sentrywatch/internal/domain/entity"
)

// Normalize applies, in order: Unicode NFC, CRLF->LF, tab->space, runs of
// whitespace collapsed to a single space, optional ASCII lowercasing, and
// optional boilerplate-substring stripping.
func Normalize(text string, opts entity.NormalizationOptions) string {
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\t", " ")
	text = whitespaceRun.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	if opts.Lowercase {
		text = strings.Map(func(r rune) rune {
			if 'A' <= r && r <= 'Z' {
				return r + ('a' - 'A')
			}
			return r
		}, text)
	}
	if len(opts.BoilerplateStrip) > 0 {
		text = StripBoilerplate(text, opts.BoilerplateStrip)
		text = whitespaceRun.ReplaceAllString(text, " ")
		text = strings.TrimSpace(text)
	}
	return text
}
