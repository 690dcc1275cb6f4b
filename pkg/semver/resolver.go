package semver

import (
	"sort"
	"strconv"
	"strings"

	masterminds "github.com/Masterminds/semver/v3"
)

// Compare orders two version strings. It returns -1, 0 or 1.
//
// Versions that both parse as SemVer (Masterminds is lenient: "1", "1.2" and "v1.2.3" parse)
// are compared as SemVer. Everything else, such as Maven's "1.0.0.Final" or
// "7.1.0.redhat-00001", falls back to a segment-wise comparison where numeric
// segments compare numerically and the rest lexically.
func Compare(a, b string) int {
	va, errA := masterminds.NewVersion(a)
	vb, errB := masterminds.NewVersion(b)
	if errA == nil && errB == nil {
		if c := va.Compare(vb); c != 0 {
			return c
		}
		// 1.0 and 1.0.0 are equal in SemVer; keep the order total on the raw text.
		return strings.Compare(a, b)
	}
	return compareSegments(a, b)
}

// SortVersions sorts versions ascending in place.
func SortVersions(versions []string) {
	sort.SliceStable(versions, func(i, j int) bool {
		return Compare(versions[i], versions[j]) < 0
	})
}

// SatisfiesRange checks if a version string satisfies a SemVer constraint such as "^7.0" or ">=1.2 <2".
// Versions or ranges that do not parse never satisfy.
func SatisfiesRange(version, rangeStr string) bool {
	constraint, err := masterminds.NewConstraint(rangeStr)
	if err != nil {
		return false
	}

	sv, err := masterminds.NewVersion(version)
	if err != nil {
		return false
	}

	return constraint.Check(sv)
}

// ValidRange reports whether rangeStr is a parseable SemVer constraint.
func ValidRange(rangeStr string) bool {
	_, err := masterminds.NewConstraint(rangeStr)
	return err == nil
}

// --- internal helpers ---

func splitSegments(v string) []string {
	return strings.FieldsFunc(v, func(r rune) bool {
		return r == '.' || r == '-' || r == '_' || r == '+'
	})
}

func compareSegments(a, b string) int {
	sa, sb := splitSegments(a), splitSegments(b)
	for i := 0; i < len(sa) && i < len(sb); i++ {
		if c := compareSegment(sa[i], sb[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(sa) < len(sb):
		return -1
	case len(sa) > len(sb):
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func compareSegment(a, b string) int {
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		default:
			return 0
		}
	case errA == nil:
		// Numbers sort after qualifiers: 1.0.alpha < 1.0.1.
		return 1
	case errB == nil:
		return -1
	default:
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	}
}
