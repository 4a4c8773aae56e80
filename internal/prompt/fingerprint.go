package prompt

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint hashes the given parts into a stable identifier, rendered as
// the decimal form of a 64-bit hash. Parts are joined with a separator that
// does not occur in the data so "ab"+"c" and "a"+"bc" hash differently.
func Fingerprint(parts ...string) string {
	h := xxhash.New()
	for i, p := range parts {
		if i > 0 {
			h.WriteString("\x1f")
		}
		h.WriteString(p)
	}
	return strconv.FormatUint(h.Sum64(), 10)
}

// RelationFingerprint identifies one (incident, context) relevance pairing.
func RelationFingerprint(idReport, contextoID string) string {
	return Fingerprint(idReport, contextoID)
}

// AlertFingerprint identifies one alert message. Relation ids are sorted so
// the same set of relations always yields the same fingerprint regardless of
// arrival order.
func AlertFingerprint(solicitante string, wholeCity bool, executionDate string, relationIDs []string) string {
	sorted := make([]string, len(relationIDs))
	copy(sorted, relationIDs)
	sort.Strings(sorted)
	parts := []string{solicitante, strconv.FormatBool(wholeCity), executionDate, strings.Join(sorted, ",")}
	return Fingerprint(parts...)
}
