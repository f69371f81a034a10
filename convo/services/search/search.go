package search

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"convo/utils/types"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var httpURL = regexp.MustCompile(`^https?://`)

// QueryWeb scrapes DuckDuckGo's HTML results for the query and returns up
// to maxResults hits.
func QueryWeb(ctx context.Context, query string, maxResults int) ([]types.SearchResult, error) {
	if maxResults <= 0 {
		maxResults = 5
	}
	params := url.Values{}
	params.Add("q", query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://duckduckgo.com/html/?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	var results []types.SearchResult
	doc.Find(".result__body").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if len(results) >= maxResults {
			return false
		}
		titleSel := s.Find(".result__title a")
		snippetSel := s.Find(".result__snippet")
		if titleSel.Length() == 0 || snippetSel.Length() == 0 {
			return true
		}

		href, exists := titleSel.Attr("href")
		if !exists {
			return true
		}
		// DuckDuckGo wraps the target behind a redirect param.
		parsed, _ := url.Parse(href)
		actualURL := parsed.Query().Get("uddg")
		if actualURL == "" || !httpURL.MatchString(actualURL) {
			return true
		}

		results = append(results, types.SearchResult{
			URL:     actualURL,
			Title:   strings.TrimSpace(titleSel.Text()),
			Snippet: strings.TrimSpace(snippetSel.Text()),
		})
		return true
	})

	return results, nil
}

// FetchText downloads a page and returns its visible text, truncated to
// maxChars.
func FetchText(ctx context.Context, pageURL string, maxChars int) (string, error) {
	if maxChars <= 0 {
		maxChars = 2000
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", err
	}
	text := ExtractText(string(body))
	if len(text) > maxChars {
		text = text[:maxChars]
	}
	return text, nil
}

// ExtractText flattens an HTML document into whitespace-joined text.
func ExtractText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data + " ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(strings.Fields(sb.String()), " ")
}
