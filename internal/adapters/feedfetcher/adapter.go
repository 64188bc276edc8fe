package feedfetcher

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
)

// FeedKind - формат ленты источника
type FeedKind string

const (
	KindJSONFeed FeedKind = "json_feed"
	KindHTMLFeed FeedKind = "html_feed"
)

// ErrMalformedFeed - ответ получен, но разобрать его нельзя. Повторять бессмысленно.
var ErrMalformedFeed = errors.New("malformed feed response")

// FieldMapping описывает, где в ленте лежат поля объявления.
// Для json_feed значения - пути через точку ("data.items", "price.amount").
// Для html_feed - CSS-селекторы; "selector@attr" берет атрибут вместо текста.
type FieldMapping struct {
	Items        string `yaml:"items"`
	ExternalID   string `yaml:"external_id"`
	Title        string `yaml:"title"`
	Area         string `yaml:"area"`
	SubArea      string `yaml:"sub_area"`
	PropertyType string `yaml:"property_type"`
	Price        string `yaml:"price"`
	PricePerSqft string `yaml:"price_per_sqft"`
	Bedrooms     string `yaml:"bedrooms"`
	Bathrooms    string `yaml:"bathrooms"`
	Size         string `yaml:"size_sqft"`
	URL          string `yaml:"url"`
	ListedAt     string `yaml:"listed_at"`
	Latitude     string `yaml:"latitude"`
	Longitude    string `yaml:"longitude"`
}

// Config - описание одного источника
type Config struct {
	Name        string
	Website     string
	SourceType  domain.SourceType
	Kind        FeedKind
	BaseURL     string
	// URLTemplate поддерживает {area}, {area_slug} и {page}
	URLTemplate string
	Areas       []string
	Fields      FieldMapping
	// MaxPages учитывается только если в шаблоне есть {page}
	MaxPages       int
	RequestTimeout time.Duration
	RandomDelay    time.Duration
}

// FeedFetcherAdapter забирает объявления района из ленты одного конкурента
type FeedFetcherAdapter struct {
	// родительский коллектор, клоны наследуют лимиты
	collector *colly.Collector
	cfg       Config
}

var _ port.ListingSourcePort = (*FeedFetcherAdapter)(nil)

// NewFeedFetcherAdapter - конструктор
func NewFeedFetcherAdapter(cfg Config) (*FeedFetcherAdapter, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("FeedFetcherAdapter: source name is required")
	}
	if cfg.URLTemplate == "" {
		return nil, fmt.Errorf("FeedFetcherAdapter(%s): url template is required", cfg.Name)
	}
	switch cfg.Kind {
	case KindJSONFeed, KindHTMLFeed:
	case "":
		cfg.Kind = KindJSONFeed
	default:
		return nil, fmt.Errorf("FeedFetcherAdapter(%s): unsupported feed kind %q", cfg.Name, cfg.Kind)
	}
	if cfg.Kind == KindHTMLFeed && cfg.Fields.Items == "" {
		return nil, fmt.Errorf("FeedFetcherAdapter(%s): html feed requires an items selector", cfg.Name)
	}
	if cfg.MaxPages < 1 {
		cfg.MaxPages = 1
	}

	host, err := templateHost(cfg)
	if err != nil {
		return nil, fmt.Errorf("FeedFetcherAdapter(%s): %w", cfg.Name, err)
	}

	c := colly.NewCollector(colly.AllowedDomains(host), colly.AllowURLRevisit())
	if cfg.RequestTimeout > 0 {
		c.SetRequestTimeout(cfg.RequestTimeout)
	}

	err = c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		RandomDelay: cfg.RandomDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("FeedFetcherAdapter(%s): failed to set limit rule: %w", cfg.Name, err)
	}

	extensions.RandomUserAgent(c)
	extensions.Referer(c)

	return &FeedFetcherAdapter{collector: c, cfg: cfg}, nil
}

func (a *FeedFetcherAdapter) Name() string                  { return a.cfg.Name }
func (a *FeedFetcherAdapter) Website() string               { return a.cfg.Website }
func (a *FeedFetcherAdapter) SourceType() domain.SourceType { return a.cfg.SourceType }
func (a *FeedFetcherAdapter) Areas() []string               { return a.cfg.Areas }

// AreaURL - адрес первой страницы района
func (a *FeedFetcherAdapter) AreaURL(area string) string {
	return a.pageURL(area, 1)
}

func (a *FeedFetcherAdapter) pageURL(area string, page int) string {
	r := strings.NewReplacer(
		"{base_url}", strings.TrimRight(a.cfg.BaseURL, "/"),
		"{area}", url.QueryEscape(area),
		"{area_slug}", areaSlug(area),
		"{page}", fmt.Sprint(page),
	)
	return r.Replace(a.cfg.URLTemplate)
}

func (a *FeedFetcherAdapter) paginated() bool {
	return strings.Contains(a.cfg.URLTemplate, "{page}")
}

// templateHost определяет домен, которому разрешены запросы коллектора
func templateHost(cfg Config) (string, error) {
	raw := cfg.BaseURL
	if raw == "" {
		raw = cfg.URLTemplate
	}
	u, err := url.Parse(strings.ReplaceAll(raw, "{base_url}", ""))
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", raw, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("base url %q has no host", raw)
	}
	return u.Hostname(), nil
}

func areaSlug(area string) string {
	return strings.Join(strings.Fields(strings.ToLower(area)), "-")
}
