// Package metrics provides application-level counters using stdlib expvar.
// Counters are exported on /debug/vars when the binary serves expvar.
package metrics

import "expvar"

// Operation counters.
var (
	VerifyTotal    = expvar.NewInt("troupe_verify_total")
	RepairsTotal   = expvar.NewInt("troupe_repairs_total")
	RelationsAdded = expvar.NewInt("troupe_relations_added_total")
	FilterTotal    = expvar.NewInt("troupe_filter_total")
	GraphSynced    = expvar.NewInt("troupe_graph_synced_total")
)

var all = map[string]*expvar.Int{
	"verify_total":          VerifyTotal,
	"repairs_total":         RepairsTotal,
	"relations_added_total": RelationsAdded,
	"filter_total":          FilterTotal,
	"graph_synced_total":    GraphSynced,
}

// Inc increments the given counter by 1.
func Inc(counter *expvar.Int) { counter.Add(1) }

// Snapshot returns the current value of every counter, keyed without the troupe_ prefix.
func Snapshot() map[string]int64 {
	out := make(map[string]int64, len(all))
	for name, c := range all {
		out[name] = c.Value()
	}
	return out
}
