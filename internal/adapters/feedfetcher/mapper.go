package feedfetcher

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
)

// feedItem - один элемент ленты, из которого по маппингу достаются строки
type feedItem interface {
	value(path string) (string, bool)
}

type jsonItem struct {
	data map[string]interface{}
}

func (j jsonItem) value(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	raw, ok := lookupPath(j.data, path)
	if !ok || raw == nil {
		return "", false
	}
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v), v != ""
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return fmt.Sprint(v), true
	}
}

type htmlItem struct {
	el *colly.HTMLElement
}

func (h htmlItem) value(selector string) (string, bool) {
	if selector == "" {
		return "", false
	}
	sel, attr, hasAttr := strings.Cut(selector, "@")
	var v string
	switch {
	case hasAttr && sel == "":
		v = h.el.Attr(attr)
	case hasAttr:
		v = h.el.ChildAttr(sel, attr)
	default:
		v = h.el.ChildText(sel)
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// lookupPath идет по вложенным объектам по пути "a.b.c"
func lookupPath(root interface{}, path string) (interface{}, bool) {
	node := root
	for _, key := range strings.Split(path, ".") {
		m, ok := node.(map[string]interface{})
		if !ok {
			return nil, false
		}
		node, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

// mapItem собирает ObservedListing. Элемент без id отбрасывается,
// остальное проверяет валидатор сверки.
func (a *FeedFetcherAdapter) mapItem(item feedItem, area string) (domain.ObservedListing, bool) {
	f := a.cfg.Fields
	externalID, ok := item.value(f.ExternalID)
	if !ok {
		return domain.ObservedListing{}, false
	}

	obs := domain.ObservedListing{
		ExternalID:   externalID,
		Area:         area,
		PropertyType: domain.PropertyApartment,
	}
	obs.Title, _ = item.value(f.Title)
	if v, ok := item.value(f.Area); ok {
		obs.Area = v
	}
	obs.SubArea, _ = item.value(f.SubArea)
	if v, ok := item.value(f.PropertyType); ok {
		obs.PropertyType = domain.ParsePropertyType(v)
	}
	if v, ok := item.value(f.Price); ok {
		obs.Price, _ = parseAmount(v)
	}
	obs.PricePerUnitArea = parseOptionalFloat(item, f.PricePerSqft)
	obs.Size = parseOptionalFloat(item, f.Size)
	obs.Latitude = parseOptionalFloat(item, f.Latitude)
	obs.Longitude = parseOptionalFloat(item, f.Longitude)
	obs.Bedrooms = parseOptionalInt(item, f.Bedrooms)
	obs.Bathrooms = parseOptionalInt(item, f.Bathrooms)
	if v, ok := item.value(f.URL); ok {
		obs.URL = a.absoluteURL(v)
	}
	if v, ok := item.value(f.ListedAt); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			obs.ListedAt = &t
		}
	}
	return obs, true
}

func (a *FeedFetcherAdapter) absoluteURL(link string) string {
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") || a.cfg.BaseURL == "" {
		return link
	}
	return strings.TrimRight(a.cfg.BaseURL, "/") + "/" + strings.TrimLeft(link, "/")
}

// parseAmount понимает "AED 1,250,000" и "1250000.00"
func parseAmount(raw string) (int64, bool) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, false
	}
	return int64(f), true
}

func parseOptionalFloat(item feedItem, path string) *float64 {
	v, ok := item.value(path)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
	if err != nil {
		return nil
	}
	return &f
}

func parseOptionalInt(item feedItem, path string) *int {
	v, ok := item.value(path)
	if !ok {
		return nil
	}
	if strings.EqualFold(v, "studio") {
		zero := 0
		return &zero
	}
	n, ok := parseAmount(v)
	if !ok {
		return nil
	}
	i := int(n)
	return &i
}
