// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package cache

import (
	"strings"
	"sync"
)

// AhoCorasick implements the Aho-Corasick multi-pattern string matcher.
// It finds all occurrences of every pattern in O(n + m + z) time, where n is
// the text length, m the total pattern length and z the number of matches.
//
//	ac := NewAhoCorasick()
//	ac.AddPattern("headless", "automation")
//	ac.AddPattern("vpn", "vpn")
//	ac.Build()
//	matches := ac.Search("Mozilla/5.0 HeadlessChrome/120.0")
type AhoCorasick struct {
	mu       sync.RWMutex
	root     *acNode
	patterns []Pattern
	built    bool
}

type acNode struct {
	children map[rune]*acNode
	failure  *acNode
	output   []int // indices of patterns ending at this node
	depth    int
}

// Pattern is a search pattern with associated data.
type Pattern struct {
	Text string
	Data any
}

// Match is a pattern occurrence in the searched text.
type Match struct {
	Pattern  string
	Data     any
	Position int // byte offset of the match start
}

// NewAhoCorasick creates a case-insensitive automaton.
func NewAhoCorasick() *AhoCorasick {
	return &AhoCorasick{root: newACNode(0)}
}

func newACNode(depth int) *acNode {
	return &acNode{
		children: make(map[rune]*acNode),
		depth:    depth,
	}
}

// AddPattern adds a pattern. Adding after Build marks the automaton for rebuild.
func (ac *AhoCorasick) AddPattern(pattern string, data any) {
	if pattern == "" {
		return
	}

	ac.mu.Lock()
	defer ac.mu.Unlock()

	ac.built = false
	ac.patterns = append(ac.patterns, Pattern{Text: pattern, Data: data})
}

// AddPatterns adds multiple patterns sharing the same data.
func (ac *AhoCorasick) AddPatterns(patterns []string, data any) {
	for _, p := range patterns {
		ac.AddPattern(p, data)
	}
}

// Build constructs the trie and failure links. Searches on an unbuilt
// automaton match nothing.
func (ac *AhoCorasick) Build() {
	ac.mu.Lock()
	defer ac.mu.Unlock()

	if ac.built {
		return
	}

	ac.root = newACNode(0)
	for i, p := range ac.patterns {
		ac.insertPattern(i, p.Text)
	}
	ac.buildFailureLinks()

	ac.built = true
}

func (ac *AhoCorasick) insertPattern(index int, pattern string) {
	node := ac.root

	for _, ch := range strings.ToLower(pattern) {
		if node.children[ch] == nil {
			node.children[ch] = newACNode(node.depth + 1)
		}
		node = node.children[ch]
	}

	node.output = append(node.output, index)
}

// buildFailureLinks builds failure links breadth-first.
func (ac *AhoCorasick) buildFailureLinks() {
	queue := make([]*acNode, 0, len(ac.root.children))
	for _, child := range ac.root.children {
		child.failure = ac.root
		queue = append(queue, child)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for ch, child := range current.children {
			queue = append(queue, child)

			fail := current.failure
			for fail != nil && fail.children[ch] == nil {
				fail = fail.failure
			}

			if fail == nil {
				child.failure = ac.root
			} else {
				child.failure = fail.children[ch]
				child.output = append(child.output, child.failure.output...)
			}
		}
	}
}

// Search returns every pattern occurrence in text.
func (ac *AhoCorasick) Search(text string) []Match {
	ac.mu.RLock()
	defer ac.mu.RUnlock()

	if !ac.built || len(ac.patterns) == 0 {
		return nil
	}

	var matches []Match
	ac.walk(text, func(i int, idx []int) bool {
		for _, patternIdx := range idx {
			pattern := ac.patterns[patternIdx]
			matches = append(matches, Match{
				Pattern:  pattern.Text,
				Data:     pattern.Data,
				Position: i - len(pattern.Text) + 1,
			})
		}
		return true
	})
	return matches
}

// SearchFirst returns the first pattern occurrence in text.
func (ac *AhoCorasick) SearchFirst(text string) (Match, bool) {
	ac.mu.RLock()
	defer ac.mu.RUnlock()

	if !ac.built || len(ac.patterns) == 0 {
		return Match{}, false
	}

	var (
		first Match
		found bool
	)
	ac.walk(text, func(i int, idx []int) bool {
		pattern := ac.patterns[idx[0]]
		first = Match{
			Pattern:  pattern.Text,
			Data:     pattern.Data,
			Position: i - len(pattern.Text) + 1,
		}
		found = true
		return false
	})
	return first, found
}

// walk feeds text through the automaton and calls emit at every position
// where at least one pattern ends. emit returns false to stop.
// Must be called with read lock held.
func (ac *AhoCorasick) walk(text string, emit func(end int, patterns []int) bool) {
	node := ac.root
	for i, ch := range strings.ToLower(text) {
		for node != nil && node.children[ch] == nil {
			node = node.failure
		}
		if node == nil {
			node = ac.root
			continue
		}

		node = node.children[ch]
		if len(node.output) > 0 && !emit(i, node.output) {
			return
		}
	}
}

// Contains reports whether any pattern occurs in text.
func (ac *AhoCorasick) Contains(text string) bool {
	_, found := ac.SearchFirst(text)
	return found
}

// PatternMatcher is a built automaton over a fixed pattern set.
type PatternMatcher struct {
	ac *AhoCorasick
}

// NewPatternMatcherFromSlice creates a matcher where every pattern carries data.
func NewPatternMatcherFromSlice(patterns []string, data any) *PatternMatcher {
	ac := NewAhoCorasick()
	ac.AddPatterns(patterns, data)
	ac.Build()
	return &PatternMatcher{ac: ac}
}

// Match returns all matches in text.
func (pm *PatternMatcher) Match(text string) []Match {
	return pm.ac.Search(text)
}

// Contains returns true if any pattern matches.
func (pm *PatternMatcher) Contains(text string) bool {
	return pm.ac.Contains(text)
}

// DefaultAutomationPatterns are agent substrings of browser automation tools
// and scripted HTTP clients.
var DefaultAutomationPatterns = []string{
	"headless", "phantomjs", "selenium", "webdriver", "puppeteer",
	"playwright", "nightmare", "slimerjs", "python-requests", "python-urllib",
	"go-http-client", "curl/", "wget/", "httpclient", "scrapy",
}

// DefaultVPNPatterns are agent substrings added by VPN and proxy clients.
var DefaultVPNPatterns = []string{
	"vpn", "proxy", "anonymizer", "hidemyass", "torbrowser",
	"expressvpn", "nordvpn", "surfshark", "cyberghost", "windscribe",
	"protonvpn", "openvpn", "wireguard", "shadowsocks", "tunnelbear",
}

// AgentClassifier flags agent strings that belong to automation tools or VPN
// clients.
type AgentClassifier struct {
	automation *PatternMatcher
	vpn        *PatternMatcher
}

// AgentClass is the result of classifying one agent string.
type AgentClass struct {
	Automation bool
	VPN        bool
	Matches    []Match
}

// NewAgentClassifier builds a classifier. Nil pattern lists fall back to the
// defaults.
func NewAgentClassifier(automationPatterns, vpnPatterns []string) *AgentClassifier {
	if automationPatterns == nil {
		automationPatterns = DefaultAutomationPatterns
	}
	if vpnPatterns == nil {
		vpnPatterns = DefaultVPNPatterns
	}
	return &AgentClassifier{
		automation: NewPatternMatcherFromSlice(automationPatterns, "automation"),
		vpn:        NewPatternMatcherFromSlice(vpnPatterns, "vpn"),
	}
}

// Classify analyzes an agent string.
func (c *AgentClassifier) Classify(agent string) AgentClass {
	var result AgentClass

	if matches := c.automation.Match(agent); len(matches) > 0 {
		result.Automation = true
		result.Matches = append(result.Matches, matches...)
	}
	if matches := c.vpn.Match(agent); len(matches) > 0 {
		result.VPN = true
		result.Matches = append(result.Matches, matches...)
	}

	return result
}
