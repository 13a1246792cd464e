package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// "A-0302", "A栋302", "东3#0302", "B 1204"
	labelRe    = regexp.MustCompile(`^(.*?\D)\s*[-#]?\s*(\d{3,})$`)
	separators = strings.NewReplacer("#", " ", "－", "-", "栋", " ", "号楼", " ")
	spaceRe    = regexp.MustCompile(`\s+`)
)

// RoomLabel holds the structured data parsed from a human room label.
type RoomLabel struct {
	Building   string
	RoomNumber string
	Floor      int
}

// RoomNumber formats a floor and the room's position on it, "0302" for
// floor 3 room 2.
func RoomNumber(floor, seq int) string {
	return fmt.Sprintf("%02d%02d", floor, seq)
}

// FloorOf returns the floor encoded in a room number: everything but the
// last two digits.
func FloorOf(roomNumber string) (int, error) {
	if len(roomNumber) < 3 {
		return 0, fmt.Errorf("room number %q too short", roomNumber)
	}
	floor, err := strconv.Atoi(roomNumber[:len(roomNumber)-2])
	if err != nil || floor <= 0 {
		return 0, fmt.Errorf("unable to parse floor from room number %q", roomNumber)
	}
	return floor, nil
}

// ParseRoomLabel splits a label such as "A-0302" into its building code
// and room number.
func ParseRoomLabel(raw string) (RoomLabel, error) {
	s := separators.Replace(strings.TrimSpace(raw))
	s = strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))

	m := labelRe.FindStringSubmatch(s)
	if m == nil {
		return RoomLabel{}, fmt.Errorf("unable to parse room label: %q", raw)
	}

	building := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(m[1]), "-"))
	if building == "" {
		return RoomLabel{}, fmt.Errorf("room label %q has no building", raw)
	}

	number := m[2]
	floor, err := FloorOf(number)
	if err != nil {
		return RoomLabel{}, fmt.Errorf("room label %q: %w", raw, err)
	}
	return RoomLabel{Building: building, RoomNumber: number, Floor: floor}, nil
}
