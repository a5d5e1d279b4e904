package filterlist

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/blang/semver"
)

var (
	// expiresRegex matches lines like "! Expires: 4 days", supporting formats such as: "4 days", "12 hours", "5d", and "18h".
	expiresRegex  = regexp.MustCompile(`(?i)^! Expires:\s*(\d+)\s*(days?|hours?|d|h)?`)
	titleRegex    = regexp.MustCompile(`(?i)^! Title:\s*(.+)$`)
	versionRegex  = regexp.MustCompile(`(?i)^! Version:\s*(\S+)`)
	errNotExpires = errors.New("not an expires line")
)

// ListInfo is the metadata found in the header comments of a list.
type ListInfo struct {
	Title string
	// Version is the raw version string. SemVer is set only when it parses as a version.
	Version string
	SemVer  *semver.Version
	// Expires is zero when the list does not declare an update interval.
	Expires time.Duration
}

// parseHeader fills in the fields the line declares. Fields already set are kept.
func (info *ListInfo) parseHeader(line string) {
	if info.Title == "" {
		if m := titleRegex.FindStringSubmatch(line); m != nil {
			info.Title = strings.TrimSpace(m[1])
			return
		}
	}

	if info.Version == "" {
		if m := versionRegex.FindStringSubmatch(line); m != nil {
			info.Version = m[1]
			if v, err := semver.ParseTolerant(m[1]); err == nil {
				info.SemVer = &v
			}
			return
		}
	}

	if info.Expires == 0 {
		if d, err := parseExpires([]byte(line)); err == nil {
			info.Expires = d
		}
	}
}

// parseExpires parses the line and returns the duration if it matches the expected format.
func parseExpires(line []byte) (time.Duration, error) {
	matches := expiresRegex.FindSubmatch(line)
	if matches == nil {
		return time.Duration(0), errNotExpires
	}

	amount, err := strconv.Atoi(string(matches[1]))
	if err != nil {
		return time.Duration(0), fmt.Errorf("invalid amount: %v", err)
	}

	unit := "days"
	if len(matches) >= 3 {
		unit = strings.ToLower(strings.TrimSpace(string(matches[2])))
	}

	switch unit {
	case "day", "days", "d":
		return time.Duration(amount) * 24 * time.Hour, nil
	case "hour", "hours", "h":
		return time.Duration(amount) * time.Hour, nil
	default:
		return time.Duration(0), errors.New("invalid time unit")
	}
}
