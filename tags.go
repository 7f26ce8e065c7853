package querycache

import "sort"

// Tag labels a cached query result for bulk invalidation.
type Tag string

// tagGraph maintains the tag-to-entries relation as two maps that are
// kept exact inverses of each other. All access is serialized by the
// owning Cache; the graph itself carries no lock.
type tagGraph struct {
	byTag   map[Tag]map[string]struct{}
	byEntry map[string]map[Tag]struct{}
}

func newTagGraph() *tagGraph {
	return &tagGraph{
		byTag:   make(map[Tag]map[string]struct{}),
		byEntry: make(map[string]map[Tag]struct{}),
	}
}

// tag replaces the tag set associated with entryKey. Called at
// fulfillment; re-fulfilling an entry with different tags drops the old
// edges first so no stale edge survives.
func (g *tagGraph) tag(entryKey string, tags []Tag) {
	g.untag(entryKey)
	if len(tags) == 0 {
		return
	}
	set := make(map[Tag]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
		entries, ok := g.byTag[t]
		if !ok {
			entries = make(map[string]struct{})
			g.byTag[t] = entries
		}
		entries[entryKey] = struct{}{}
	}
	g.byEntry[entryKey] = set
}

// untag removes every edge touching entryKey. No-op for unknown entries.
func (g *tagGraph) untag(entryKey string) {
	for t := range g.byEntry[entryKey] {
		delete(g.byTag[t], entryKey)
		if len(g.byTag[t]) == 0 {
			delete(g.byTag, t)
		}
	}
	delete(g.byEntry, entryKey)
}

// invalidates returns the keys of all entries associated with any of
// tags, sorted for deterministic processing. Pure query.
func (g *tagGraph) invalidates(tags []Tag) []string {
	seen := make(map[string]struct{})
	for _, t := range tags {
		for key := range g.byTag[t] {
			seen[key] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// tagsOf returns a copy of the tag set recorded for entryKey.
func (g *tagGraph) tagsOf(entryKey string) []Tag {
	set := g.byEntry[entryKey]
	if len(set) == 0 {
		return nil
	}
	tags := make([]Tag, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}
