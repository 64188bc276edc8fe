package registry

import (
	"strings"
	"testing"
	"time"

	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/pkg/retry"
)

const sample = `
sources:
  - name: Bayut
    website: https://www.bayut.com
    type: portal
    kind: json_feed
    base_url: https://feeds.bayut.example
    url: "{base_url}/v1/listings?area={area}"
    random_delay: 2s
    areas: [jvc, Dubai Marina, JVC]
    fields:
      items: data.items
      external_id: id
      price: price.amount
  - name: Prime Homes
    type: agency
    kind: html_feed
    base_url: https://primehomes.example
    url: "{base_url}/for-sale/{area_slug}"
    areas: [Arabian Ranches]
    fields:
      items: article.listing
      external_id: "@data-ref"
  - name: Old Portal
    disabled: true
    url: "https://old.example/{area}"
`

func testOptions() Options {
	return Options{RequestTimeout: time.Second, Retry: retry.Policy{MaxAttempts: 1}}
}

func TestLoadBuildsSources(t *testing.T) {
	reg, err := Load(strings.NewReader(sample), testOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := len(reg.Sources()); got != 2 {
		t.Fatalf("want 2 enabled sources, got %d", got)
	}

	bayut, ok := reg.Lookup("Bayut")
	if !ok {
		t.Fatal("Bayut not found")
	}
	areas := bayut.Areas()
	if len(areas) != 2 || areas[0] != "Jumeirah Village Circle" || areas[1] != "Dubai Marina" {
		t.Errorf("areas should be canonical and unique, got %v", areas)
	}
	if want := "https://feeds.bayut.example/v1/listings?area=Dubai+Marina"; bayut.AreaURL("Dubai Marina") != want {
		t.Errorf("AreaURL = %q, want %q", bayut.AreaURL("Dubai Marina"), want)
	}
	if bayut.SourceType() != domain.SourcePortal || bayut.Website() != "https://www.bayut.com" {
		t.Errorf("metadata lost: %s %s", bayut.SourceType(), bayut.Website())
	}

	prime, ok := reg.Lookup("Prime Homes")
	if !ok {
		t.Fatal("Prime Homes not found")
	}
	if prime.SourceType() != domain.SourceAgency {
		t.Errorf("type = %s", prime.SourceType())
	}
	if prime.AreaURL("Arabian Ranches") != "https://primehomes.example/for-sale/arabian-ranches" {
		t.Errorf("AreaURL = %q", prime.AreaURL("Arabian Ranches"))
	}

	if _, ok := reg.Lookup("Old Portal"); ok {
		t.Error("disabled source must not be registered")
	}
}

func TestLoadRejectsBadEntries(t *testing.T) {
	cases := map[string]string{
		"unknown field": "sources:\n  - name: X\n    colour: red\n",
		"no url":        "sources:\n  - name: X\n",
		"bad kind":      "sources:\n  - name: X\n    kind: rss\n    url: https://x.example/{area}\n",
		"duplicate": "sources:\n  - name: X\n    url: https://x.example/{area}\n" +
			"  - name: X\n    url: https://y.example/{area}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(strings.NewReader(doc), testOptions()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadEmptyDocument(t *testing.T) {
	reg, err := Load(strings.NewReader(""), testOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(reg.Sources()) != 0 {
		t.Errorf("expected empty registry")
	}
}
