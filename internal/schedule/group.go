package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

// GroupID identifies one outage rotation cohort. The zero value is invalid.
type GroupID uint8

const (
	Group11 GroupID = iota + 1
	Group12
	Group21
	Group22
	Group31
	Group32
	Group41
	Group42
	Group51
	Group52
	Group61
	Group62
)

const (
	groupQueues    = 6
	groupSubqueues = 2
)

// AllGroups returns every known group in canonical order (1.1, 1.2, 2.1, ...).
func AllGroups() []GroupID {
	out := make([]GroupID, 0, groupQueues*groupSubqueues)
	for g := Group11; g <= Group62; g++ {
		out = append(out, g)
	}
	return out
}

// Valid reports whether g is one of the enumerated groups.
func (g GroupID) Valid() bool {
	return g >= Group11 && g <= Group62
}

// String renders the group the way the upstream source names it ("3.2").
func (g GroupID) String() string {
	if !g.Valid() {
		return fmt.Sprintf("GroupID(%d)", uint8(g))
	}
	idx := int(g) - 1
	return fmt.Sprintf("%d.%d", idx/groupSubqueues+1, idx%groupSubqueues+1)
}

// ParseGroup parses an upstream group label such as "4.1".
func ParseGroup(s string) (GroupID, error) {
	queue, sub, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok {
		return 0, fmt.Errorf("unknown group %q", s)
	}
	q, err := strconv.Atoi(queue)
	if err != nil || q < 1 || q > groupQueues {
		return 0, fmt.Errorf("unknown group %q", s)
	}
	n, err := strconv.Atoi(sub)
	if err != nil || n < 1 || n > groupSubqueues {
		return 0, fmt.Errorf("unknown group %q", s)
	}
	return GroupID((q-1)*groupSubqueues + n), nil
}

// MarshalText implements encoding.TextMarshaler.
func (g GroupID) MarshalText() ([]byte, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("marshal invalid group %d", uint8(g))
	}
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *GroupID) UnmarshalText(b []byte) error {
	parsed, err := ParseGroup(string(b))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
