// Package points holds the pure part of the league standings engine: the
// points policy and the ranking of tournament scores.
package points

import (
	"encoding/json"
	"strconv"
	"strings"
)

const positionKeyPrefix = "position"

// Policy maps a finishing position to a point value. Positions holds
// explicit overrides for places after the podium.
type Policy struct {
	Win           int
	Second        int
	Third         int
	Participation int
	Positions     map[int]int
}

func DefaultPolicy() Policy {
	return Policy{Win: 10, Second: 7, Third: 5, Participation: 1}
}

// PointsFor resolves points for a 1-based position: an exact override wins,
// then the named podium slot, then participation.
func (p Policy) PointsFor(position int) int {
	if v, ok := p.Positions[position]; ok {
		return v
	}
	switch position {
	case 1:
		return p.Win
	case 2:
		return p.Second
	case 3:
		return p.Third
	}
	return p.Participation
}

// ParsePolicy decodes a league's points_system JSON. It reports false and
// returns DefaultPolicy when the document is empty, malformed or misses one of
// the win/second/third/participation keys. Override keys look like
// "position4"; invalid ones and ones for the podium are skipped.
func ParsePolicy(raw []byte) (Policy, bool) {
	if len(raw) == 0 {
		return DefaultPolicy(), false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return DefaultPolicy(), false
	}

	var policy Policy
	named := []struct {
		key string
		dst *int
	}{
		{"win", &policy.Win},
		{"second", &policy.Second},
		{"third", &policy.Third},
		{"participation", &policy.Participation},
	}
	for _, n := range named {
		v, ok := fields[n.key]
		if !ok || string(v) == "null" {
			return DefaultPolicy(), false
		}
		if err := json.Unmarshal(v, n.dst); err != nil {
			return DefaultPolicy(), false
		}
	}

	for key, v := range fields {
		suffix, ok := strings.CutPrefix(key, positionKeyPrefix)
		if !ok {
			continue
		}
		position, err := strconv.Atoi(suffix)
		if err != nil || position <= 3 {
			continue
		}
		var pts int
		if err := json.Unmarshal(v, &pts); err != nil {
			continue
		}
		if policy.Positions == nil {
			policy.Positions = make(map[int]int)
		}
		policy.Positions[position] = pts
	}
	return policy, true
}
