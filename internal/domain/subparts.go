package domain

import (
	"strconv"
	"strings"
)

var sectionSubparts = map[string]Subpart{
	"712.1": SubpartA, "712.2": SubpartA, "712.3": SubpartA,
	"712.10": SubpartA, "712.11": SubpartA, "712.12": SubpartA, "712.13": SubpartA,
	"712.14": SubpartA, "712.15": SubpartA, "712.16": SubpartA, "712.17": SubpartA,
	"712.18": SubpartA, "712.19": SubpartA, "712.20": SubpartA, "712.21": SubpartA,
	"712.22": SubpartA, "712.23": SubpartA, "712.24": SubpartA, "712.25": SubpartA,

	"712.30": SubpartB, "712.31": SubpartB, "712.32": SubpartB, "712.33": SubpartB,
	"712.34": SubpartB, "712.35": SubpartB, "712.36": SubpartB, "712.37": SubpartB,
	"712.38": SubpartB,
}

// SubpartForSection maps a 712 section number to its subpart. Sections
// outside the table fall back to the numeric boundary at 712.30; anything
// unparsable lands in subpart A.
func SubpartForSection(section string) Subpart {
	if sp, ok := sectionSubparts[section]; ok {
		return sp
	}
	num := strings.TrimPrefix(section, "712.")
	if i := strings.Index(num, "."); i >= 0 {
		num = num[:i]
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 30 {
		return SubpartA
	}
	return SubpartB
}
