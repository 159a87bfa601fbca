package ingestion

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/govscan/backend/pkg/logger"
)

// CatalogEntry is one downloadable document discovered on a regulator's
// index page.
type CatalogEntry struct {
	Title string
	URL   string
}

type Scraper struct {
	httpClient *http.Client
}

func NewScraper() *Scraper {
	return &Scraper{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchCatalog scrapes an index page for links to PDF documents. Link
// text becomes the entry title; relative links are resolved against the
// page URL.
func (s *Scraper) FetchCatalog(ctx context.Context, pageURL string) ([]CatalogEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog page: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog url: %w", err)
	}

	var entries []CatalogEntry
	doc.Find("a[href]").Each(func(i int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !strings.HasSuffix(strings.ToLower(href), ".pdf") {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}

		title := strings.TrimSpace(sel.Text())
		if title == "" {
			title = href
		}

		entries = append(entries, CatalogEntry{
			Title: title,
			URL:   base.ResolveReference(ref).String(),
		})
	})

	logger.Info("Catalog scraped",
		zap.String("url", pageURL),
		zap.Int("entries", len(entries)),
	)

	return entries, nil
}

// Download fetches a PDF to a local file.
func (s *Scraper) Download(ctx context.Context, pdfURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download pdf: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pdf download returned status %d", resp.StatusCode)
	}

	return writeFile(destPath, resp.Body)
}
