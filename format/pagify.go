// Package format breaks long text into message-sized pages for menus and
// escapes mass mentions before content is shown to users.
package format

import (
	"strings"
	"unicode/utf8"

	"github.com/gosuda/waitfor/menu"
)

// zeroWidthSpace is inserted between "@" and "everyone"/"here" to defuse
// mass mentions without changing the visible text.
const zeroWidthSpace = "​"

// PagifyOptions tweaks how Pagify breaks text.
type PagifyOptions struct {
	// Delims are the break points, tried within each page. Pages are broken
	// at PageLength when no delimiter is found.
	Delims []string
	// EscapeMassMentions escapes "@everyone" and "@here" in the output.
	EscapeMassMentions bool
	// ShortenBy reduces the effective page length, leaving room for
	// decoration the caller adds around each page.
	ShortenBy int
	// PageLength is the maximum length of each page in bytes.
	PageLength int
	// Priority breaks at the first delimiter (in Delims order) rather than
	// the last possible break point.
	Priority bool
}

// DefaultPagifyOptions returns the standard options: break at newlines and
// spaces, escape mass mentions, 2000-byte pages shortened by 8.
func DefaultPagifyOptions() PagifyOptions {
	return PagifyOptions{
		Delims:             []string{"\n", " "},
		EscapeMassMentions: true,
		ShortenBy:          8,
		PageLength:         2000,
	}
}

// Pagify breaks text into pages no longer than the configured length,
// preferring to break at the configured delimiters.
func Pagify(text string, opts PagifyOptions) []string {
	if opts.PageLength <= 0 {
		opts.PageLength = 2000
	}
	pageLen := opts.PageLength - opts.ShortenBy
	if pageLen < 2 {
		pageLen = 2
	}

	var pages []string
	inText := text

	for len(inText) > pageLen {
		thisPageLen := pageLen
		if opts.EscapeMassMentions {
			sliced := inText[:pageLen]
			thisPageLen -= strings.Count(sliced, "@here") + strings.Count(sliced, "@everyone")
			if thisPageLen < 2 {
				thisPageLen = 2
			}
		}

		closest := thisPageLen
		if opts.Priority {
			for _, d := range opts.Delims {
				// First delimiter kind that yields a break past the page start.
				if i := strings.LastIndex(inText[1:thisPageLen], d); i >= 1 {
					closest = i + 1
					break
				}
			}
		} else {
			best := 0
			for _, d := range opts.Delims {
				if i := strings.LastIndex(inText[1:thisPageLen], d); i >= 0 && i+1 > best {
					best = i + 1
				}
			}
			if best > 0 {
				closest = best
			}
		}

		// A delimiterless break can land mid-rune; back off to the nearest
		// rune boundary so pages stay valid UTF-8.
		for closest > 0 && !utf8.RuneStart(inText[closest]) {
			closest--
		}
		if closest == 0 {
			_, size := utf8.DecodeRuneInString(inText)
			closest = size
		}

		page := inText[:closest]
		if opts.EscapeMassMentions {
			page = EscapeMassMentions(page)
		}
		if page != "" {
			pages = append(pages, page)
		}
		inText = inText[closest:]
	}

	if strings.TrimSpace(inText) != "" {
		if opts.EscapeMassMentions {
			inText = EscapeMassMentions(inText)
		}
		pages = append(pages, inText)
	}

	return pages
}

// EscapeMassMentions defuses "@everyone" and "@here" by inserting a
// zero-width space after the "@".
func EscapeMassMentions(text string) string {
	text = strings.ReplaceAll(text, "@everyone", "@"+zeroWidthSpace+"everyone")
	return strings.ReplaceAll(text, "@here", "@"+zeroWidthSpace+"here")
}

// Pages wraps pagified text into menu pages.
func Pages(texts []string) []menu.Page {
	pages := make([]menu.Page, len(texts))
	for i, t := range texts {
		pages[i] = menu.Page{Content: t}
	}
	return pages
}
