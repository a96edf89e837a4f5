// Package i18n renders user-facing messages for coded errors.
package i18n

import (
	"bytes"
	"strings"
	"sync"
	"text/template"

	"golang.org/x/text/language"
)

// BaseLocale is served when no supported locale matches the request.
var BaseLocale = language.AmericanEnglish

// Catalog maps error codes to message templates for a specific locale.
type Catalog struct {
	locale   language.Tag
	messages map[string]string

	mu        sync.Mutex
	templates map[string]*template.Template
}

var (
	supported = []language.Tag{language.AmericanEnglish, language.LatinAmericanSpanish}
	matcher   = language.NewMatcher(supported)
	catalogs  = map[language.Tag]*Catalog{
		language.AmericanEnglish:      NewCatalog(language.AmericanEnglish, enUS),
		language.LatinAmericanSpanish: NewCatalog(language.LatinAmericanSpanish, es419),
	}
)

// NewCatalog creates a catalog for locale with a copy of messages.
func NewCatalog(locale language.Tag, messages map[string]string) *Catalog {
	cloned := make(map[string]string, len(messages))
	for key, value := range messages {
		cloned[key] = value
	}
	return &Catalog{locale: locale, messages: cloned, templates: map[string]*template.Template{}}
}

// ForAcceptLanguage picks the best catalog for an Accept-Language header value.
func ForAcceptLanguage(header string) *Catalog {
	tags, _, err := language.ParseAcceptLanguage(strings.TrimSpace(header))
	if err != nil || len(tags) == 0 {
		return catalogs[BaseLocale]
	}
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return catalogs[BaseLocale]
	}
	return catalogs[supported[index]]
}

// Locale returns the BCP 47 tag of this catalog.
func (c *Catalog) Locale() string {
	return c.locale.String()
}

// Format renders the template for code with metadata. Unknown codes and
// broken templates fall back to the raw code or template text.
func (c *Catalog) Format(code string, metadata map[string]string) string {
	raw, ok := c.messages[code]
	if !ok {
		return code
	}
	tmpl, err := c.template(code, raw)
	if err != nil {
		return raw
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, metadata); err != nil {
		return raw
	}
	return buf.String()
}

func (c *Catalog) template(code, raw string) (*template.Template, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tmpl, ok := c.templates[code]; ok {
		return tmpl, nil
	}
	tmpl, err := template.New(code).Option("missingkey=zero").Parse(raw)
	if err != nil {
		return nil, err
	}
	c.templates[code] = tmpl
	return tmpl, nil
}
