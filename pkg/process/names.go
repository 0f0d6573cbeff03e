package process

import (
	"strings"
)

const executableSuffix = ".exe"

// NormalizeName returns the executable file name for a target, appending ".exe" when absent
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || hasExecutableSuffix(name) {
		return name
	}
	return name + executableSuffix
}

// LookupName strips the executable suffix; process lists report names both ways depending on the OS
func LookupName(name string) string {
	name = strings.TrimSpace(name)
	if hasExecutableSuffix(name) {
		return name[:len(name)-len(executableSuffix)]
	}
	return name
}

// MatchName compares a process list entry against a target name, case-insensitively
func MatchName(candidate, target string) bool {
	lookup := LookupName(target)
	return lookup != "" && strings.EqualFold(LookupName(candidate), lookup)
}

func hasExecutableSuffix(name string) bool {
	return len(name) > len(executableSuffix) &&
		strings.EqualFold(name[len(name)-len(executableSuffix):], executableSuffix)
}
