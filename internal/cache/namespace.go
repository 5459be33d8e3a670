package cache

import (
	"strings"
	"time"
)

// Namespace is the first segment of every cache key.
type Namespace string

const (
	NamespaceUser           Namespace = "user"
	NamespaceSong           Namespace = "song"
	NamespacePlaylist       Namespace = "playlist"
	NamespaceTrending       Namespace = "trending"
	NamespacePopular        Namespace = "popular"
	NamespaceSearch         Namespace = "search"
	NamespaceSession        Namespace = "session"
	NamespaceRecentlyPlayed Namespace = "recently_played"
)

var namespaceTTLs = map[Namespace]time.Duration{
	NamespaceUser:           time.Hour,
	NamespaceSong:           24 * time.Hour,
	NamespacePlaylist:       30 * time.Minute,
	NamespaceTrending:       30 * time.Minute,
	NamespacePopular:        time.Hour,
	NamespaceSearch:         15 * time.Minute,
	NamespaceSession:        24 * time.Hour,
	NamespaceRecentlyPlayed: 24 * time.Hour,
}

// Namespaces returns every known namespace.
func Namespaces() []Namespace {
	return []Namespace{
		NamespaceUser,
		NamespaceSong,
		NamespacePlaylist,
		NamespaceTrending,
		NamespacePopular,
		NamespaceSearch,
		NamespaceSession,
		NamespaceRecentlyPlayed,
	}
}

// ParseNamespace returns the namespace named s.
func ParseNamespace(s string) (Namespace, bool) {
	ns := Namespace(s)
	_, ok := namespaceTTLs[ns]
	return ns, ok
}

// TTL is the default lifetime of entries in the namespace.
func (n Namespace) TTL() time.Duration {
	return namespaceTTLs[n]
}

// Pattern matches every key in the namespace.
func (n Namespace) Pattern() string {
	return string(n) + ":*"
}

// Key builds namespace:identifier[:qualifier...].
func Key(ns Namespace, id string, qualifiers ...string) string {
	var b strings.Builder
	b.WriteString(string(ns))
	b.WriteByte(':')
	b.WriteString(id)
	for _, q := range qualifiers {
		b.WriteByte(':')
		b.WriteString(q)
	}
	return b.String()
}
