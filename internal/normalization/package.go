// Package normalization maps raw vendor strings (package names,
// manufacturer names, MPNs) to canonical forms. Everything here is pure
// and deterministic; the worst case is returning the input trimmed.
package normalization

import (
	_ "embed"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed aliases.yaml
var aliasesYAML []byte

type aliasTable struct {
	Aliases       map[string]string `yaml:"aliases"`
	Families      []string          `yaml:"families"`
	SMDPrefixes   []string          `yaml:"smd_prefixes"`
	THTPrefixes   []string          `yaml:"tht_prefixes"`
	Manufacturers map[string]string `yaml:"manufacturers"`
}

var (
	table         aliasTable
	familyPattern *regexp.Regexp
)

func init() {
	if err := yaml.Unmarshal(aliasesYAML, &table); err != nil {
		panic(fmt.Sprintf("normalization: bad aliases.yaml: %v", err))
	}
	familyPattern = regexp.MustCompile(`^(` + strings.Join(table.Families, "|") + `)-?([0-9]{1,3})$`)
}

var (
	parenPattern = regexp.MustCompile(`\([^)]*\)`)
	cleanPattern = regexp.MustCompile(`[\s()]+`)
)

// NormalizePackage maps a raw vendor package string to its canonical
// form, e.g. "8-SOIC", "SO-8" and "SOP8" all normalize to "SOIC-8".
// Unknown packages come back uppercased and trimmed, never empty unless
// the input was.
func NormalizePackage(raw string) string {
	clean := strings.ToUpper(cleanPattern.ReplaceAllString(parenPattern.ReplaceAllString(raw, ""), ""))
	if clean == "" {
		return strings.TrimSpace(raw)
	}
	if canonical, ok := table.Aliases[clean]; ok {
		return canonical
	}
	if m := familyPattern.FindStringSubmatch(clean); m != nil {
		canonical := m[1] + "-" + m[2]
		if mapped, ok := table.Aliases[canonical]; ok {
			return mapped
		}
		return canonical
	}
	return clean
}

var digitPattern = regexp.MustCompile(`[0-9]+`)

// ExtractPinCount returns the first embedded integer in the sanity range
// [3,100]. Numbers outside that range are ignored so part-number digits
// that leak into package strings do not become pin counts.
func ExtractPinCount(packageName string) (int, bool) {
	for _, m := range digitPattern.FindAllString(packageName, -1) {
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		if n >= 3 && n <= 100 {
			return n, true
		}
	}
	return 0, false
}

// MountingStyle classifies a package as SMD or THT by prefix. Unmatched
// packages return "" rather than a guess.
func MountingStyle(packageName string) string {
	p := strings.ToUpper(strings.TrimSpace(packageName))
	if p == "" {
		return ""
	}
	for _, prefix := range table.SMDPrefixes {
		if strings.HasPrefix(p, prefix) {
			return "SMD"
		}
	}
	for _, prefix := range table.THTPrefixes {
		if strings.HasPrefix(p, prefix) {
			return "THT"
		}
	}
	return ""
}

var corporateSuffixes = []string{
	", INC.", ", INC", " INC.", " INC",
	", LLC", " LLC",
	" CORPORATION", " CORP.", " CORP",
	" CO., LTD.", " CO., LTD", " CO LTD", ", LTD.", ", LTD", " LTD.", " LTD",
	" GMBH", " AG", " N.V.", " NV",
}

// NormalizeManufacturer trims corporate suffixes and resolves known
// short names ("TI" -> "Texas Instruments"). Unknown names come back
// with suffixes trimmed but casing preserved.
func NormalizeManufacturer(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	upper := strings.ToUpper(trimmed)
	for _, suffix := range corporateSuffixes {
		if strings.HasSuffix(upper, suffix) {
			trimmed = strings.TrimSpace(trimmed[:len(trimmed)-len(suffix)])
			upper = strings.ToUpper(trimmed)
			break
		}
	}
	if canonical, ok := table.Manufacturers[upper]; ok {
		return canonical
	}
	return trimmed
}
