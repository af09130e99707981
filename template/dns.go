package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/corvus-sh/orchd/corvuserr"
)

// SplitDNSEntry splits a rendered dns_entry string ("ip:fqdn") into its two
// parts. BadInput if the split does not yield exactly two non-empty parts
// (§4.4: "fail with a BadInput error if the split does not yield exactly
// two parts").
func SplitDNSEntry(rendered string) (ip, fqdn string, err error) {
	parts := strings.Split(rendered, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", corvuserr.New(corvuserr.BadInput, fmt.Sprintf("malformed dns entry %q, want ip:fqdn", rendered))
	}
	return parts[0], parts[1], nil
}

// dnsLine formats the one-line-per-mapping record the aggregate DNS file
// holds (§4.4: "address=/.<fqdn>/<ip>").
func dnsLine(ip, fqdn string) string {
	return fmt.Sprintf("address=/.%s/%s", fqdn, ip)
}

// UpsertDNSEntry applies a single (ip, fqdn) mapping onto the contents of
// the aggregate DNS file: an existing line for fqdn is replaced in place
// (order preserved), otherwise the new line is appended (§4.4, §8: "adding
// (ip1, fqdn) then (ip2, fqdn) results in a file containing one line
// address=/.fqdn/ip2; the order of other unrelated entries is preserved").
func UpsertDNSEntry(existing []byte, ip, fqdn string) []byte {
	pattern := regexp.MustCompile(`^address=/\.` + regexp.QuoteMeta(fqdn) + `/.*$`)
	newLine := dnsLine(ip, fqdn)

	lines := splitLines(existing)
	replaced := false
	for i, line := range lines {
		if pattern.MatchString(line) {
			lines[i] = newLine
			replaced = true
			break
		}
	}
	if !replaced {
		lines = append(lines, newLine)
	}

	return []byte(strings.Join(trimTrailingEmpty(lines), "\n") + "\n")
}

func splitLines(data []byte) []string {
	trimmed := strings.TrimRight(string(data), "\n")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

func trimTrailingEmpty(lines []string) []string {
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
