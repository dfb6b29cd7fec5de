package symbols

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	DefaultIconURL     = "https://raw.githubusercontent.com/spothq/cryptocurrency-icons/master/128/color/{name}.png"
	DefaultFallbackURL = "https://placehold.co/48x48/2a2a4a/ffffff?text={initial}&font=montserrat"
)

// Icon holds the image URL for an asset and the placeholder to show when the
// image cannot be loaded.
type Icon struct {
	URL         string `json:"url"`
	FallbackURL string `json:"fallback_url"`
}

// IconResolver turns base assets into icon URLs. Templates use {name} for the
// icon file name and {initial} for the first letter of the base asset.
type IconResolver struct {
	urlTemplate      string
	fallbackTemplate string
	aliases          map[string]string
}

// NewIconResolver builds a resolver. Empty templates fall back to the
// defaults and aliases extend or override the built-in table.
func NewIconResolver(urlTemplate, fallbackTemplate string, aliases map[string]string) *IconResolver {
	if urlTemplate == "" {
		urlTemplate = DefaultIconURL
	}
	if fallbackTemplate == "" {
		fallbackTemplate = DefaultFallbackURL
	}
	copied := make(map[string]string, len(aliases))
	for k, v := range aliases {
		copied[strings.ToUpper(k)] = v
	}
	return &IconResolver{
		urlTemplate:      urlTemplate,
		fallbackTemplate: fallbackTemplate,
		aliases:          copied,
	}
}

// Resolve returns the icon for base. The result depends only on base and the
// resolver configuration.
func (r *IconResolver) Resolve(base string) Icon {
	name := IconName(base, r.aliases)
	initial := "?"
	if c, _ := utf8.DecodeRuneInString(base); c != utf8.RuneError {
		initial = string(c)
	}
	return Icon{
		URL:         strings.ReplaceAll(r.urlTemplate, "{name}", url.PathEscape(name)),
		FallbackURL: strings.ReplaceAll(r.fallbackTemplate, "{initial}", url.QueryEscape(initial)),
	}
}
