package milestone

import (
	"fmt"
	"strings"
)

// Defaults for Beaker's branch and tag naming.
const (
	DefaultMaintenancePrefix = "release-"
	DefaultTagPrefix         = "beaker-"
)

// Rules describes how branches and tags are named in the repository.
type Rules struct {
	MaintenancePrefix string
	TagPrefix         string
}

// DefaultRules returns the naming rules used by the Beaker repository.
func DefaultRules() Rules {
	return Rules{
		MaintenancePrefix: DefaultMaintenancePrefix,
		TagPrefix:         DefaultTagPrefix,
	}
}

// VersionFromTag strips the release tag prefix and parses the remainder.
func (r Rules) VersionFromTag(tag string) (Version, error) {
	tag = strings.TrimSpace(tag)
	if r.TagPrefix != "" && !strings.HasPrefix(tag, r.TagPrefix) {
		return Version{}, fmt.Errorf("tag %q does not start with %q", tag, r.TagPrefix)
	}
	return Parse(strings.TrimPrefix(tag, r.TagPrefix))
}

// IsMaintenance reports whether branch is a maintenance branch.
func (r Rules) IsMaintenance(branch string) bool {
	return r.MaintenancePrefix != "" && strings.HasPrefix(branch, r.MaintenancePrefix)
}

// Next works out the milestone being worked on. A maintenance branch such
// as release-22 tagged 22.3 is working on 22.4; any other branch tagged
// 22.3 is working on 23.0.
func (r Rules) Next(branch, tag string) (string, error) {
	v, err := r.VersionFromTag(tag)
	if err != nil {
		return "", err
	}
	if r.IsMaintenance(branch) {
		return v.NextMinor().String(), nil
	}
	return v.NextMajor().String(), nil
}
