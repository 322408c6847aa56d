// Package featureflags evaluates per-user switches such as realtime message push.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// rule is a parsed flag value: fully on, fully off, or a percentage rollout.
type rule struct {
	percent int
}

func (r rule) String() string {
	switch r.percent {
	case 0:
		return "off"
	case 100:
		return "on"
	}
	return strconv.Itoa(r.percent) + "%"
}

// Manager holds flags parsed from a list like "realtime_push=on,new_feed=25%".
type Manager struct {
	rules   map[string]rule
	invalid []string
}

// NewManager parses raw. Entries it cannot understand are skipped and reported by Invalid.
func NewManager(raw string) *Manager {
	m := &Manager{rules: make(map[string]rule)}

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, value, ok := strings.Cut(entry, "=")
		name = normalize(name)
		if !ok || name == "" {
			m.invalid = append(m.invalid, entry)
			continue
		}
		r, err := parseRule(normalize(value))
		if err != nil {
			m.invalid = append(m.invalid, entry)
			continue
		}
		m.rules[name] = r
	}

	return m
}

func parseRule(value string) (rule, error) {
	switch value {
	case "on", "true", "1":
		return rule{percent: 100}, nil
	case "off", "false", "0":
		return rule{percent: 0}, nil
	}

	pct, found := strings.CutSuffix(value, "%")
	if !found {
		return rule{}, fmt.Errorf("unknown flag value %q", value)
	}
	n, err := strconv.Atoi(pct)
	if err != nil {
		return rule{}, fmt.Errorf("bad rollout %q: %w", value, err)
	}
	return rule{percent: min(max(n, 0), 100)}, nil
}

// Enabled reports whether name is on for userID. Unknown flags are off, and partial
// rollouts never include the anonymous user 0. A user's bucket is stable per flag.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	r, ok := m.rules[normalize(name)]
	if !ok {
		return false
	}

	switch {
	case r.percent <= 0:
		return false
	case r.percent >= 100:
		return true
	case userID == 0:
		return false
	}
	return bucket(name, userID) < r.percent
}

// Snapshot evaluates every configured flag for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(m.rules))
	for name := range m.rules {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

// Describe renders the configured flags in canonical, sorted form.
func (m *Manager) Describe() string {
	names := make([]string, 0, len(m.rules))
	for name := range m.rules {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + m.rules[name].String()
	}
	return strings.Join(parts, ",")
}

// Invalid returns the raw entries that were ignored.
func (m *Manager) Invalid() []string {
	return append([]string(nil), m.invalid...)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", normalize(name), userID)
	return int(h.Sum32() % 100)
}
