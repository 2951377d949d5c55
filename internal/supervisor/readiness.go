package supervisor

import "strings"

// fatalPatterns are the non-retriable stderr substrings spec §4.4 step 3
// names; a matching line disables reconnection for that exit. Grounded
// on the failure-string table in the teacher's verifyConnection
// (internal/daemon/server.go): the three patterns spec §4.4 step 3
// names, plus "Too many authentication failures" from that table.
var fatalPatterns = []string{
	"Permission denied",
	"Host key verification failed",
	"no matching host key",
	"Too many authentication failures",
}

// readinessNegativePatterns are the wider set of stderr substrings spec
// §4.4 step 2 names that must suppress the 2-second timer's promotion
// to Connected. This is deliberately broader than fatalPatterns: a line
// like "Connection refused" or a generic "fatal" isn't necessarily
// non-retriable (step 3), but it does mean the child isn't actually up
// yet, so the timer must not declare readiness just because nothing
// fatal-for-retry has been seen.
var readinessNegativePatterns = []string{
	"fatal",
	"Permission denied",
	"Connection refused",
}

// positivePatterns are the stderr substrings that indicate readiness
// before the 2-second timer would otherwise declare it, spec §4.4 step 2.
// Grounded on verifyConnection's authenticated/verified checks.
var positivePatterns = []string{
	"Authenticated to",
	"Authentication succeeded",
	"Entering interactive session",
	"pledge: network",
}

func matchesAny(line string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(line, p) {
			return true
		}
	}
	return false
}

func matchesFatal(line string) bool {
	return matchesAny(line, fatalPatterns)
}

func matchesReadinessNegative(line string) bool {
	return matchesAny(line, readinessNegativePatterns)
}

func matchesPositive(line string) bool {
	return matchesAny(line, positivePatterns)
}
