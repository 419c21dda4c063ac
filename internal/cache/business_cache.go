package cache

import (
	"strings"
	"time"

	businessdomain "github.com/smallbiznis/bizplannaija/internal/business/domain"
)

const defaultBusinessTTL = time.Minute

// BusinessCache holds public landing pages by slug. Entries are copies so
// callers cannot mutate cached state.
type BusinessCache interface {
	GetBySlug(slug string) (businessdomain.Business, bool)
	SetBySlug(business businessdomain.Business)
	Invalidate(slugs ...string)
}

type businessCache struct {
	items Cache[businessdomain.Business]
	ttl   time.Duration
}

func NewBusinessCache() BusinessCache {
	return &businessCache{
		items: NewTTLCache[businessdomain.Business](defaultBusinessTTL, 2*defaultBusinessTTL),
		ttl:   defaultBusinessTTL,
	}
}

func (c *businessCache) GetBySlug(slug string) (businessdomain.Business, bool) {
	return c.items.Get(slugKey(slug))
}

func (c *businessCache) SetBySlug(business businessdomain.Business) {
	if business.Slug == "" {
		return
	}
	c.items.Set(slugKey(business.Slug), business, c.ttl)
}

func (c *businessCache) Invalidate(slugs ...string) {
	for _, slug := range slugs {
		if slug == "" {
			continue
		}
		c.items.Delete(slugKey(slug))
	}
}

func slugKey(slug string) string {
	return "slug:" + strings.ToLower(strings.TrimSpace(slug))
}
