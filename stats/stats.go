// Package stats computes summary statistics over detection sets. It is
// query-only: it never touches the store, so scoping to one file is
// just a matter of which detection slice the caller feeds in.
package stats

import (
	"sort"

	"github.com/hazyhaar/urlsentry/detect"
	"github.com/hazyhaar/urlsentry/store"
)

// topIPLimit caps the top-source-IPs list.
const topIPLimit = 10

// IPCount is one entry of the top-source-IPs ranking.
type IPCount struct {
	IP    string `json:"ip"`
	Count int    `json:"count"`
}

// Statistics summarizes a detection set.
type Statistics struct {
	TotalDetections int            `json:"total_detections"`
	ByAttackType    map[string]int `json:"by_attack_type"`
	BySeverity      map[string]int `json:"by_severity"`
	TopSourceIPs    []IPCount      `json:"top_source_ips"`
}

// Aggregate tallies a detection set. BySeverity always carries the
// High/Medium/Low keys (Low stays zero — the classifier never produces
// it — but dashboards reserve a slot for it). TopSourceIPs is sorted
// by count descending, ties broken by first appearance in the input,
// truncated to the top ten; records without a source IP are excluded
// from the ranking but still counted everywhere else.
func Aggregate(dets []store.Detection) Statistics {
	st := Statistics{
		TotalDetections: len(dets),
		ByAttackType:    make(map[string]int),
		BySeverity: map[string]int{
			string(detect.SeverityHigh):   0,
			string(detect.SeverityMedium): 0,
			string(detect.SeverityLow):    0,
		},
		TopSourceIPs: []IPCount{},
	}

	ipCounts := make(map[string]int)
	var ipOrder []string
	for _, d := range dets {
		st.ByAttackType[string(d.AttackType)]++
		st.BySeverity[string(d.Severity)]++

		ip := d.SourceIP
		if ip == "" || ip == "Unknown" {
			continue
		}
		if _, seen := ipCounts[ip]; !seen {
			ipOrder = append(ipOrder, ip)
		}
		ipCounts[ip]++
	}

	ranked := make([]IPCount, 0, len(ipOrder))
	for _, ip := range ipOrder {
		ranked = append(ranked, IPCount{IP: ip, Count: ipCounts[ip]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if len(ranked) > topIPLimit {
		ranked = ranked[:topIPLimit]
	}
	st.TopSourceIPs = ranked

	return st
}
