package tools

import (
	"context"
	"fmt"

	"convo/services/search"
)

func searchTool() Tool {
	return Tool{
		Name:        "google_search",
		Description: "Search the web. Params: {\"query\": string}. Returns a list of {url, title, snippet}.",
		Run: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			query, ok := params["query"].(string)
			if !ok || query == "" {
				return nil, fmt.Errorf("missing param %q", "query")
			}
			return search.QueryWeb(ctx, query, 5)
		},
	}
}

func readPageTool() Tool {
	return Tool{
		Name:        "read_page",
		Description: "Fetch a web page and return its visible text. Params: {\"url\": string}.",
		Run: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			pageURL, ok := params["url"].(string)
			if !ok || pageURL == "" {
				return nil, fmt.Errorf("missing param %q", "url")
			}
			return search.FetchText(ctx, pageURL, 2000)
		},
	}
}
