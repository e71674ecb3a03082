// Package router selects a ruleset for an incoming file by matching its
// base name against a configured list of regex routes.
//
// Given a file name, Route returns a ruleset identifier and any metadata
// captured from named regex groups, or reports no match. Routes are
// held as an ordered, priority-sorted list of {pattern, ruleset,
// priority} entries matched with (*regexp.Regexp).FindStringSubmatch.
package router

import (
	"path/filepath"
	"regexp"
	"sort"
	"sync"
)

// Route maps a file-name pattern to a ruleset identifier.
type Route struct {
	Pattern  string `yaml:"pattern"`
	Ruleset  string `yaml:"ruleset"`
	Priority int    `yaml:"priority"`
}

// Router matches file names against an ordered set of routes.
type Router struct {
	mu     sync.RWMutex
	routes []Route
	cache  map[string]*regexp.Regexp
}

// New creates a Router over the given routes, sorted by descending
// priority so higher-priority routes are tried first.
func New(routes []Route) *Router {
	r := &Router{cache: make(map[string]*regexp.Regexp)}
	r.SetRoutes(routes)
	return r
}

// SetRoutes replaces the router's route list, re-sorting by priority.
func (r *Router) SetRoutes(routes []Route) {
	sorted := make([]Route, len(routes))
	copy(sorted, routes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority > sorted[j].Priority })

	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = sorted
}

// Route returns the ruleset identifier and named-capture metadata for the
// first matching route, or ok=false when no route matches.
func (r *Router) Route(filePath string) (ruleset string, metadata map[string]string, ok bool) {
	name := filepath.Base(filePath)

	r.mu.RLock()
	routes := r.routes
	r.mu.RUnlock()

	for _, route := range routes {
		re, err := r.compile(route.Pattern)
		if err != nil {
			continue
		}
		match := re.FindStringSubmatch(name)
		if match == nil {
			continue
		}
		meta := make(map[string]string)
		for i, groupName := range re.SubexpNames() {
			if i == 0 || groupName == "" {
				continue
			}
			meta[groupName] = match[i]
		}
		return route.Ruleset, meta, true
	}
	return "", nil, false
}

func (r *Router) compile(pattern string) (*regexp.Regexp, error) {
	r.mu.RLock()
	re, ok := r.cache[pattern]
	r.mu.RUnlock()
	if ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.cache[pattern] = re
	r.mu.Unlock()
	return re, nil
}
