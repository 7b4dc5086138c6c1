// Package featureflags evaluates runtime switches from the FEATURE_FLAGS setting.
package featureflags

import (
	"hash/fnv"
	"maps"
	"slices"
	"strconv"
	"strings"
)

const (
	// FeedStream gates the /ws/feed WebSocket stream.
	FeedStream = "feed_stream"
	// SentimentOnEdit recomputes a post's sentiment when its content changes.
	SentimentOnEdit = "sentiment_on_edit"
)

// Defaults apply when FEATURE_FLAGS does not mention a flag.
var Defaults = map[string]string{
	FeedStream:      "on",
	SentimentOnEdit: "off",
}

// Manager holds flags parsed from "name=value" pairs, e.g.
// "feed_stream=on,sentiment_on_edit=25%". A value is on/true/1, off/false/0
// or a percentage rollout; anything else reads as off.
type Manager struct {
	raw     map[string]string
	percent map[string]int
}

// NewManager layers raw over Defaults. Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	m := &Manager{raw: maps.Clone(Defaults), percent: make(map[string]int)}
	for _, pair := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(pair, "=")
		name, value = normalize(name), normalize(value)
		if ok && name != "" && value != "" {
			m.raw[name] = value
		}
	}
	for name, value := range m.raw {
		m.percent[name] = rolloutPercent(value)
	}
	return m
}

func rolloutPercent(value string) int {
	switch value {
	case "on", "true", "1":
		return 100
	case "off", "false", "0":
		return 0
	}
	digits, ok := strings.CutSuffix(value, "%")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return min(max(n, 0), 100)
}

// Enabled reports whether name is on for userID. Partial rollouts hash the
// flag and user together, so a user stays in or out across restarts, and
// never include anonymous callers (userID 0).
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	name = normalize(name)
	switch pct := m.percent[name]; {
	case pct >= 100:
		return true
	case pct <= 0 || userID == 0:
		return false
	default:
		return bucket(name, userID) < pct
	}
}

// Raw returns the configured values, defaults included.
func (m *Manager) Raw() map[string]string {
	return maps.Clone(m.raw)
}

// Snapshot evaluates every known flag for userID.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(m.raw))
	for name := range m.raw {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

// String renders name=value pairs sorted by name.
func (m *Manager) String() string {
	var b strings.Builder
	for i, name := range slices.Sorted(maps.Keys(m.raw)) {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(name + "=" + m.raw[name])
	}
	return b.String()
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name + ":" + strconv.FormatUint(uint64(userID), 10)))
	return int(h.Sum32() % 100)
}
