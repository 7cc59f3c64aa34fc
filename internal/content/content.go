// Package content derives the computed fields of a post from its text:
// slug, sanitized HTML, word count, read time and keywords.
package content

import (
	"bytes"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"golang.org/x/text/unicode/norm"
)

const (
	// WordsPerMinute is the reading speed used for read time estimates.
	WordsPerMinute = 200
	// MaxKeywords caps the extracted keyword set.
	MaxKeywords = 10
	// MaxSlugLength bounds the title-derived part of a slug.
	MaxSlugLength = 80
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

// Derived holds the fields recomputed whenever post text changes.
type Derived struct {
	HTML      string
	WordCount int
	ReadTime  int
	Keywords  []string
}

// Derive computes every derived field for a post.
func Derive(title, excerpt, body string) Derived {
	rendered := Render(body)
	words := WordCount(PlainText(rendered))
	return Derived{
		HTML:      rendered,
		WordCount: words,
		ReadTime:  ReadTime(words),
		Keywords:  Keywords(title + " " + excerpt + " " + body),
	}
}

// Render converts markdown to sanitized HTML. Plain text passes through as
// paragraphs.
func Render(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(markdown), &buf); err != nil {
		return sanitizer.Sanitize(markdown)
	}
	return string(sanitizer.SanitizeBytes(buf.Bytes()))
}

// PlainText strips markup from rendered HTML.
func PlainText(rendered string) string {
	if rendered == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rendered))
	if err != nil {
		return rendered
	}
	// Block elements are glued together by Text(); pad them so words at
	// element boundaries stay separate.
	doc.Find("p, li, h1, h2, h3, h4, h5, h6, td, th, br, pre, blockquote").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})
	return strings.TrimSpace(doc.Text())
}

// WordCount counts whitespace-separated tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// ReadTime returns the estimated minutes to read words, never less than one.
func ReadTime(words int) int {
	minutes := int(math.Ceil(float64(words) / WordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// Keywords extracts lowercased tokens longer than three characters that are
// not stopwords, most frequent first, capped at MaxKeywords.
func Keywords(text string) []string {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	counts := make(map[string]int)
	order := make([]string, 0)
	for _, tok := range tokens {
		if len([]rune(tok)) <= 3 {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > MaxKeywords {
		order = order[:MaxKeywords]
	}
	return order
}

// Slugify turns a title into a lowercase, hyphen-separated, URL-safe slug.
// Accented letters are folded to ASCII where possible; anything else that is
// not a letter or digit becomes a separator.
func Slugify(title string) string {
	decomposed := norm.NFKD.String(title)

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(decomposed) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		default:
			pendingDash = true
		}
		if b.Len() >= MaxSlugLength {
			break
		}
	}

	slug := b.String()
	if len(slug) > MaxSlugLength {
		slug = slug[:MaxSlugLength]
	}
	return strings.Trim(slug, "-")
}
