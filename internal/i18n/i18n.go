// Package i18n localizes user-facing API messages.
package i18n

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Translator picks a supported language and renders messages in it.
type Translator interface {
	// Match returns the best supported language for the given preferences,
	// each either an Accept-Language header or a single tag.
	Match(preferences ...string) language.Tag
	// Translate renders key in tag. Unknown keys are returned unchanged.
	Translate(tag language.Tag, key string, args ...interface{}) string
}

// Supported lists the languages with catalogs, default first.
var Supported = []language.Tag{language.English, language.Spanish, language.French}

// Catalog is the x/text backed Translator.
type Catalog struct {
	builder  *catalog.Builder
	matcher  language.Matcher
	tags     []language.Tag
	fallback language.Tag
}

// New builds the message catalog. defaultLocale selects the language used
// when no preference matches; empty means English.
func New(defaultLocale string) (*Catalog, error) {
	fallback := language.English
	if defaultLocale != "" {
		tag, err := language.Parse(defaultLocale)
		if err != nil {
			return nil, err
		}
		fallback = tag
	}

	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, byLang := range messages {
		if err := b.SetString(language.English, key, key); err != nil {
			return nil, err
		}
		for tag, msg := range byLang {
			if err := b.SetString(tag, key, msg); err != nil {
				return nil, err
			}
		}
	}

	// The matcher's first tag is its default.
	tags := []language.Tag{fallback}
	for _, t := range Supported {
		if t != fallback {
			tags = append(tags, t)
		}
	}

	return &Catalog{builder: b, matcher: language.NewMatcher(tags), tags: tags, fallback: fallback}, nil
}

func (c *Catalog) Match(preferences ...string) language.Tag {
	var wanted []language.Tag
	for _, p := range preferences {
		if p == "" {
			continue
		}
		tags, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		wanted = append(wanted, tags...)
	}
	if len(wanted) == 0 {
		return c.fallback
	}

	_, idx, conf := c.matcher.Match(wanted...)
	if conf == language.No {
		return c.fallback
	}
	if idx < 0 || idx >= len(c.tags) {
		return c.fallback
	}
	return c.tags[idx]
}

func (c *Catalog) Translate(tag language.Tag, key string, args ...interface{}) string {
	if key == "" {
		return ""
	}
	p := message.NewPrinter(tag, message.Catalog(c.builder))
	return p.Sprintf(key, args...)
}

// Nop renders keys in English without a catalog.
type Nop struct{}

func (Nop) Match(...string) language.Tag { return language.English }

func (Nop) Translate(_ language.Tag, key string, args ...interface{}) string {
	if len(args) == 0 {
		return key
	}
	return fmt.Sprintf(key, args...)
}
