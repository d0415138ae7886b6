package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"TrendingDigest/internal/domain"
	"TrendingDigest/internal/scanner"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"

// TrendingScanner extracts the top rows of a GitHub trending page.
type TrendingScanner struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

// NewTrendingScanner wires an HTTP client; a nil client gets a 20s timeout.
func NewTrendingScanner(client *http.Client, userAgent string, log *slog.Logger) *TrendingScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &TrendingScanner{client: client, userAgent: userAgent, logger: log}
}

// Name identifies the strategy inside the registry.
func (s *TrendingScanner) Name() string {
	return "github-trending"
}

// Scan requests the trending page and returns at most req.Limit projects in
// page order. Rows without a repository link are skipped.
func (s *TrendingScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Project, error) {
	if req.Limit <= 0 {
		return nil, nil
	}

	pageURL, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid url %s: %v", domain.ErrFetch, req.URL, err)
	}

	doc, err := s.fetchDocument(ctx, pageURL.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetch, err)
	}

	return extractProjects(doc, pageURL, req.Limit, s.logger), nil
}

func (s *TrendingScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("trending page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

// extractProjects looks at the first limit rows only, so skipped rows shrink
// the result rather than pulling in lower-ranked entries.
func extractProjects(doc *goquery.Document, base *url.URL, limit int, log *slog.Logger) []domain.Project {
	projects := make([]domain.Project, 0, limit)

	rows := doc.Find("article.Box-row")
	if rows.Length() > limit {
		rows = rows.Slice(0, limit)
	}

	rows.Each(func(i int, row *goquery.Selection) {
		project, ok := parseRow(row, base)
		if !ok {
			if log != nil {
				log.Debug("skip row without repository link", "row", i)
			}
			return
		}
		projects = append(projects, project)
	})

	return projects
}

func parseRow(row *goquery.Selection, base *url.URL) (domain.Project, bool) {
	link := row.Find("h2 a").First()
	if link.Length() == 0 {
		return domain.Project{}, false
	}

	name := strings.Join(strings.Fields(link.Text()), "")
	if name == "" {
		return domain.Project{}, false
	}

	href := strings.TrimSpace(link.AttrOr("href", ""))
	projectURL := href
	if ref, err := url.Parse(href); err == nil && base != nil {
		projectURL = base.ResolveReference(ref).String()
	}

	description := strings.TrimSpace(row.Find("p").First().Text())
	description = strings.Join(strings.Fields(description), " ")

	return domain.Project{
		Name:        name,
		URL:         projectURL,
		Description: description,
	}, true
}
