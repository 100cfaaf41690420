package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	spaceRe = regexp.MustCompile(`\s+`)
	roomRe  = regexp.MustCompile(`^(.*?)[\s-]*(\d+)(?:[\s-]+(\d+))?$`)
)

// RoomLabel holds the structured data parsed from a room number.
type RoomLabel struct {
	Block string
	Floor int
	Seq   int
}

// ParseRoomNumber extracts block, floor, and sequence number from a raw room
// label. "A-101" is block A, floor 1, seq 1. An explicit "B-2-07" gives floor
// 2, seq 7. A bare number below 100 is taken as ground floor.
func ParseRoomNumber(raw string) (RoomLabel, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), "#", " ")
	s = strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))

	m := roomRe.FindStringSubmatch(s)
	if m == nil {
		return RoomLabel{}, fmt.Errorf("unable to parse room number: %q", raw)
	}

	block := strings.ToUpper(strings.TrimRight(m[1], " -"))
	first, err := strconv.Atoi(m[2])
	if err != nil {
		return RoomLabel{}, fmt.Errorf("unable to parse room number %q: %w", raw, err)
	}

	if m[3] != "" {
		seq, err := strconv.Atoi(m[3])
		if err != nil {
			return RoomLabel{}, fmt.Errorf("unable to parse room number %q: %w", raw, err)
		}
		return RoomLabel{Block: block, Floor: first, Seq: seq}, nil
	}

	return RoomLabel{Block: block, Floor: first / 100, Seq: first % 100}, nil
}

// Less reports whether room label a sorts before b in natural order.
// Labels that cannot be parsed sort after parsable ones, then lexically.
func Less(a, b string) bool {
	la, errA := ParseRoomNumber(a)
	lb, errB := ParseRoomNumber(b)
	switch {
	case errA != nil && errB != nil:
		return a < b
	case errA != nil:
		return false
	case errB != nil:
		return true
	}

	if la.Block != lb.Block {
		return la.Block < lb.Block
	}
	if la.Floor != lb.Floor {
		return la.Floor < lb.Floor
	}
	if la.Seq != lb.Seq {
		return la.Seq < lb.Seq
	}
	return a < b
}
