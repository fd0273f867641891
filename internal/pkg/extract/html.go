package extract

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTML extracts the page title and visible text from an HTML document,
// dropping script and style content and collapsing blank lines.
func HTML(r io.Reader) (title, text string, err error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", "", fmt.Errorf("parse html failed: %w", err)
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find("script, style, noscript").Remove()

	raw := doc.Find("body").Text()
	if strings.TrimSpace(raw) == "" {
		raw = doc.Text()
	}

	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		for _, phrase := range strings.Split(line, "  ") {
			if p := strings.TrimSpace(phrase); p != "" {
				lines = append(lines, p)
			}
		}
	}
	return title, strings.Join(lines, "\n"), nil
}
