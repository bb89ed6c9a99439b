package engine

import (
	"regexp"
	"strconv"
	"unicode"
)

// VersionComparator orders version strings.
// CompareVersions returns -1, 0 or 1.
type VersionComparator interface {
	CompareVersions(a, b string) int
}

type VersionComparatorFunc func(a, b string) int

func (f VersionComparatorFunc) CompareVersions(a, b string) int {
	return f(a, b)
}

var segmentRegex = regexp.MustCompile(`\d+|[A-Za-z]+|[^A-Za-z\d]+`)

type segmentKind int

const (
	segmentNumber segmentKind = iota
	segmentString
	segmentSeparator
)

type segment struct {
	kind  segmentKind
	value string
}

func splitVersion(s string) []segment {
	var out []segment
	for _, part := range segmentRegex.FindAllString(s, -1) {
		r := rune(part[0])
		switch {
		case unicode.IsDigit(r):
			out = append(out, segment{kind: segmentNumber, value: part})
		case unicode.IsLetter(r):
			out = append(out, segment{kind: segmentString, value: part})
		default:
			out = append(out, segment{kind: segmentSeparator, value: part})
		}
	}
	return out
}

// StandardComparator compares versions segment by segment.
//
// Numbers compare numerically and letters lexically. A letter segment, as in
// "1.0b1", marks a pre-release and sorts before a number or the end of the
// version, so "1.0b1" < "1.0" < "1.0.1".
type StandardComparator struct{}

func (StandardComparator) CompareVersions(a, b string) int {
	as, bs := splitVersion(a), splitVersion(b)
	n := min(len(as), len(bs))
	for i := range n {
		x, y := as[i], bs[i]
		if x.kind == y.kind {
			if c := compareSegment(x, y); c != 0 {
				return c
			}
			continue
		}
		// Mixed kinds: a number outranks everything, a string ranks lowest.
		return compareKinds(x.kind, y.kind)
	}
	if len(as) == len(bs) {
		return 0
	}
	// The longer version wins unless its next meaningful segment is a pre-release tag.
	longer, sign := as, 1
	if len(bs) > len(as) {
		longer, sign = bs, -1
	}
	for _, seg := range longer[n:] {
		switch seg.kind {
		case segmentString:
			return -sign
		case segmentNumber:
			return sign
		}
	}
	return 0
}

func compareSegment(x, y segment) int {
	switch x.kind {
	case segmentNumber:
		xi, xerr := strconv.ParseUint(x.value, 10, 64)
		yi, yerr := strconv.ParseUint(y.value, 10, 64)
		if xerr == nil && yerr == nil {
			switch {
			case xi < yi:
				return -1
			case xi > yi:
				return 1
			}
			return 0
		}
		return compareStrings(x.value, y.value)
	case segmentString:
		return compareStrings(x.value, y.value)
	default:
		return 0
	}
}

func compareKinds(x, y segmentKind) int {
	rank := func(k segmentKind) int {
		switch k {
		case segmentNumber:
			return 2
		case segmentSeparator:
			return 1
		default:
			return 0
		}
	}
	if rank(x) < rank(y) {
		return -1
	}
	return 1
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
