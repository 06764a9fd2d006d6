package scraper

import (
	"fmt"
	"net/url"
	"strings"
)

// Site is a named shortcut for a category page.
type Site struct {
	Name string
	URL  string
}

const categoryURL = "https://books.toscrape.com/catalogue/category/books/%s/index.html"

var popularSites = []Site{
	{Name: "WBB", URL: fmt.Sprintf(categoryURL, "travel_2")},
	{Name: "Deep 6GB", URL: fmt.Sprintf(categoryURL, "mystery_3")},
	{Name: "Devi 0.9GB", URL: fmt.Sprintf(categoryURL, "historical-fiction_4")},
	{Name: "Design", URL: fmt.Sprintf(categoryURL, "art_25")},
	{Name: "E-commerce", URL: fmt.Sprintf(categoryURL, "default_15")},
	{Name: "News", URL: fmt.Sprintf(categoryURL, "nonfiction_13")},
}

// PopularSites returns the shortcut table in display order.
func PopularSites() []Site {
	out := make([]Site, len(popularSites))
	copy(out, popularSites)
	return out
}

// SiteNames lists the shortcut names in display order.
func SiteNames() []string {
	names := make([]string, 0, len(popularSites))
	for _, site := range popularSites {
		names = append(names, site.Name)
	}
	return names
}

// SiteMap returns the shortcut table keyed by name.
func SiteMap() map[string]string {
	out := make(map[string]string, len(popularSites))
	for _, site := range popularSites {
		out[site.Name] = site.URL
	}
	return out
}

// ResolveURL turns caller input into the URL to fetch. Shortcut names map to
// their category page; bare hosts get an https scheme; anything whose host
// is not allowedDomain is rejected.
func ResolveURL(input, allowedDomain string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrInvalidInput{Reason: "No URL provided"}
	}

	for _, site := range popularSites {
		if site.Name == input {
			input = site.URL
			break
		}
	}

	lower := strings.ToLower(input)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		input = "https://" + input
	}

	unsupported := ErrInvalidInput{
		Reason:         fmt.Sprintf("This demo only supports %s URLs", allowedDomain),
		SupportedSites: SiteNames(),
	}
	parsed, err := url.Parse(input)
	if err != nil {
		return "", unsupported
	}
	if !strings.EqualFold(parsed.Hostname(), allowedDomain) {
		return "", unsupported
	}
	return parsed.String(), nil
}
