// Package identity generates record identifiers and the stable hashes used
// to correlate results of the same test across runs.
package identity

import (
	"crypto/md5" //nolint:gosec // G501: md5 is the hash the report format expects, not a security primitive
	"encoding/hex"
	"sort"
	"strings"

	"github.com/ethpandaops/allure-runtime/pkg/model"
	"github.com/google/uuid"
)

// FullNameSeparator joins title path segments into a full name.
const FullNameSeparator = " > "

// NewUUID returns a random identifier for a record.
func NewUUID() string {
	return uuid.New().String()
}

// MD5 returns the hex md5 digest of the concatenated parts.
func MD5(parts ...string) string {
	h := md5.New() //nolint:gosec // G401: see import
	for _, part := range parts {
		_, _ = h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// FullName derives a display independent name from the grouping titles and
// the test name.
func FullName(titlePath []string, name string) string {
	segments := make([]string, 0, len(titlePath)+1)
	for _, title := range titlePath {
		if strings.TrimSpace(title) != "" {
			segments = append(segments, title)
		}
	}
	if strings.TrimSpace(name) != "" {
		segments = append(segments, name)
	}
	return strings.Join(segments, FullNameSeparator)
}

// TestCaseID hashes the full name together with an explicit ALLURE_ID label
// when one is present. It returns "" when there is nothing to hash.
func TestCaseID(fullName string, labels []model.Label) string {
	if fullName == "" {
		return ""
	}
	key := fullName
	for _, l := range labels {
		if l.Name == model.LabelAllureID && strings.TrimSpace(l.Value) != "" {
			key = fullName + "#" + l.Value
			break
		}
	}
	return MD5(key)
}

// HistoryID combines a test case identifier with a hash of the non-excluded
// parameters. Parameter order does not affect the result.
func HistoryID(testCaseID string, params []model.Parameter) string {
	if testCaseID == "" {
		return ""
	}
	pairs := make([]string, 0, len(params))
	for _, p := range params {
		if p.Excluded {
			continue
		}
		pairs = append(pairs, p.Name+":"+p.Value)
	}
	sort.Strings(pairs)
	return testCaseID + ":" + MD5(strings.Join(pairs, ","))
}
