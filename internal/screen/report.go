// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package screen

import (
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/grant-screener/pkg/types"
)

// FormatReport writes the run's decisions grouped by classification, followed
// by a summary table.
func FormatReport(decisions []*types.Decision, w io.Writer) {
	if len(decisions) == 0 {
		fmt.Fprintln(w, "No decisions recorded.")
		return
	}

	for _, class := range []types.Classification{types.ClassGreen, types.ClassYellow, types.ClassRed} {
		bucket := filterByClass(decisions, class)
		if len(bucket) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s (%d)\n", class, len(bucket))
		fmt.Fprintln(w, strings.Repeat("=", 100))
		for _, d := range bucket {
			fmt.Fprintf(w, "%s  [confidence %.2f]", d.Candidate.FoundationName, d.Confidence)
			if d.Candidate.Amount != nil {
				fmt.Fprintf(w, "  %s", amountString(d.Candidate.Amount))
			}
			fmt.Fprintln(w)
			fmt.Fprintf(w, "  %s\n", d.Rationale)
			if d.NextActionDate != nil {
				fmt.Fprintf(w, "  Next application date: %s\n", d.NextActionDate.Format("2006-01-02"))
			}
			if len(d.Sources) > 0 {
				fmt.Fprintf(w, "  Sources: %s\n", sourceDomains(d.Sources, 3))
			}
		}
	}

	fmt.Fprintf(w, "\n%-40s  %-8s  %-6s  %s\n", "Foundation", "Class", "Conf", "Rationale")
	fmt.Fprintln(w, strings.Repeat("-", 130))
	for _, d := range decisions {
		name := d.Candidate.FoundationName
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		rationale := d.Rationale
		if len(rationale) > 75 {
			rationale = rationale[:72] + "..."
		}
		fmt.Fprintf(w, "%-40s  %-8s  %-6.2f  %s\n", name, d.Classification, d.Confidence, rationale)
	}
	fmt.Fprintf(w, "\n%d decision(s): %d GREEN, %d YELLOW, %d RED\n",
		len(decisions),
		len(filterByClass(decisions, types.ClassGreen)),
		len(filterByClass(decisions, types.ClassYellow)),
		len(filterByClass(decisions, types.ClassRed)))
}

func filterByClass(decisions []*types.Decision, class types.Classification) []*types.Decision {
	var out []*types.Decision
	for _, d := range decisions {
		if d.Classification == class {
			out = append(out, d)
		}
	}
	return out
}

// sourceDomains joins up to n citation domains for display.
func sourceDomains(cites []types.Citation, n int) string {
	var domains []string
	for _, c := range cites {
		domains = append(domains, c.Domain)
		if len(domains) == n {
			break
		}
	}
	return strings.Join(domains, ", ")
}
