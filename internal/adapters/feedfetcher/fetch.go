package feedfetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gocolly/colly/v2"
	"github.com/sarbdeol/bi-market-intelligence/internal/contextkeys"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
)

// Fetch возвращает все объявления района. Постраничный обход
// останавливается на пустой странице или по достижении MaxPages.
func (a *FeedFetcherAdapter) Fetch(ctx context.Context, area string) ([]domain.ObservedListing, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	fetchLogger := logger.WithFields(port.Fields{
		"component": "FeedFetcherAdapter(Fetch)",
		"source":    a.cfg.Name,
		"area":      area,
	})

	pages := 1
	if a.paginated() {
		pages = a.cfg.MaxPages
	}

	var all []domain.ObservedListing
	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		listings, err := a.fetchPage(ctx, fetchLogger, area, a.pageURL(area, page))
		if err != nil {
			return nil, err
		}
		if len(listings) == 0 {
			break
		}
		all = append(all, listings...)
	}

	fetchLogger.Info("Finished fetching feed", port.Fields{"listings_fetched": len(all)})
	return all, nil
}

func (a *FeedFetcherAdapter) fetchPage(ctx context.Context, logger port.LoggerPort, area, targetURL string) ([]domain.ObservedListing, error) {
	// одноразовый клон: лимиты общие, обработчики свои
	collector := a.collector.Clone()

	var fetched []domain.ObservedListing
	var responseErr error

	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		logger.Debug("Making request to feed", port.Fields{"url": r.URL.String()})
	})

	switch a.cfg.Kind {
	case KindHTMLFeed:
		collector.OnHTML(a.cfg.Fields.Items, func(e *colly.HTMLElement) {
			item := htmlItem{el: e}
			obs, ok := a.mapItem(item, area)
			if !ok {
				logger.Debug("Skipping feed item without identity", port.Fields{"url": targetURL})
				return
			}
			fetched = append(fetched, obs)
		})
	default:
		collector.OnResponse(func(r *colly.Response) {
			items, err := decodeJSONItems(r.Body, a.cfg.Fields.Items)
			if err != nil {
				responseErr = fmt.Errorf("FeedFetcherAdapter: failed to parse JSON from %s: %w", r.Request.URL.String(), err)
				return
			}
			for _, raw := range items {
				obs, ok := a.mapItem(jsonItem{data: raw}, area)
				if !ok {
					logger.Debug("Skipping feed item without identity", port.Fields{"url": targetURL})
					continue
				}
				fetched = append(fetched, obs)
			}
		})
	}

	collector.OnError(func(r *colly.Response, err error) {
		logger.Error("Failed to fetch feed page", err, port.Fields{
			"url":    r.Request.URL.String(),
			"status": r.StatusCode,
		})
		if r.StatusCode == http.StatusForbidden || r.StatusCode == http.StatusTooManyRequests {
			responseErr = fmt.Errorf("FeedFetcherAdapter: request to %s failed with status %d: %w", r.Request.URL, r.StatusCode, domain.ErrSourceBlocked)
			return
		}
		responseErr = fmt.Errorf("FeedFetcherAdapter: request to %s failed with status %d: %w", r.Request.URL, r.StatusCode, err)
	})

	// при HTTP-ошибке Visit тоже вернет ошибку, но причину точнее знает OnError
	visitErr := collector.Visit(targetURL)
	collector.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if responseErr != nil {
		return nil, responseErr
	}
	if visitErr != nil {
		logger.Error("Failed to initiate visit", visitErr, port.Fields{"url": targetURL})
		return nil, fmt.Errorf("FeedFetcherAdapter: failed to visit URL %s: %w", targetURL, visitErr)
	}
	return fetched, nil
}

func decodeJSONItems(body []byte, itemsPath string) ([]map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var root interface{}
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
	}

	node := root
	if itemsPath != "" {
		var ok bool
		node, ok = lookupPath(root, itemsPath)
		if !ok {
			return nil, fmt.Errorf("%w: items path %q not found", ErrMalformedFeed, itemsPath)
		}
	}

	list, ok := node.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: items path %q is not an array", ErrMalformedFeed, itemsPath)
	}
	items := make([]map[string]interface{}, 0, len(list))
	for _, el := range list {
		if m, ok := el.(map[string]interface{}); ok {
			items = append(items, m)
		}
	}
	return items, nil
}
