// Package milestone parses Beaker release versions and works out which
// Bugzilla target milestone a checkout is working towards.
//
// Beaker versions are always MAJOR.MINOR, optionally followed by a release
// candidate marker such as "rc1". Comparison is numeric, so 9.10 sorts
// after 9.9.
package milestone

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var versionPattern = regexp.MustCompile(`^(\d+)\.(\d+)(?:rc(\d+))?$`)

// Version is a parsed Beaker version.
type Version struct {
	Major int
	Minor int
	RC    int // 0 for a final release
}

// Parse parses a version string such as "22.3" or "22.0rc1".
func Parse(s string) (Version, error) {
	m := versionPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Version{}, fmt.Errorf("invalid version %q: expected MAJOR.MINOR[rcN]", s)
	}
	var v Version
	var err error
	if v.Major, err = strconv.Atoi(m[1]); err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	if v.Minor, err = strconv.Atoi(m[2]); err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	if m[3] != "" {
		if v.RC, err = strconv.Atoi(m[3]); err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
		if v.RC == 0 {
			return Version{}, fmt.Errorf("invalid version %q: release candidates start at rc1", s)
		}
	}
	return v, nil
}

func (v Version) String() string {
	if v.RC > 0 {
		return fmt.Sprintf("%d.%drc%d", v.Major, v.Minor, v.RC)
	}
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// IsRC reports whether v is a release candidate.
func (v Version) IsRC() bool { return v.RC > 0 }

// Final returns the final release v is a candidate for.
func (v Version) Final() Version {
	return Version{Major: v.Major, Minor: v.Minor}
}

// Compare returns -1, 0 or +1. A release candidate sorts before the final
// release with the same number.
func (v Version) Compare(other Version) int {
	switch {
	case v.Major != other.Major:
		return sign(v.Major - other.Major)
	case v.Minor != other.Minor:
		return sign(v.Minor - other.Minor)
	case v.RC == other.RC:
		return 0
	case v.RC == 0:
		return 1
	case other.RC == 0:
		return -1
	default:
		return sign(v.RC - other.RC)
	}
}

// NextMajor returns the next development milestone: x.y becomes x+1.0, and a
// release candidate becomes its own final release.
func (v Version) NextMajor() Version {
	if v.IsRC() {
		return v.Final()
	}
	return Version{Major: v.Major + 1}
}

// NextMinor returns the next maintenance milestone: x.y becomes x.y+1, and a
// release candidate becomes its own final release.
func (v Version) NextMinor() Version {
	if v.IsRC() {
		return v.Final()
	}
	return Version{Major: v.Major, Minor: v.Minor + 1}
}

// Compare parses and compares two version strings.
func Compare(left, right string) (int, error) {
	l, err := Parse(left)
	if err != nil {
		return 0, err
	}
	r, err := Parse(right)
	if err != nil {
		return 0, err
	}
	return l.Compare(r), nil
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
