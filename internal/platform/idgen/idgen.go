// Package idgen produces monotonic, prefixed, process-local identifiers.
//
// Unlike a random UUID, a counter-backed id is strictly increasing within one
// process, which makes createdAt-adjacent ids sort the same way their creation
// order did — useful for deterministic fixtures and log reading. Global
// uniqueness across processes is not a requirement in a single-host orchestrator.
package idgen

import (
	"fmt"
	"sync/atomic"
)

// Prefixes defined in spec.md §6.
const (
	PrefixProject    = "proj_"
	PrefixTask       = "task_"
	PrefixSession    = "sess_"
	PrefixMail       = "mail_"
	PrefixEvent      = "evt_"
	PrefixDoc        = "doc_"
	PrefixTeamMember = "tm_"
	PrefixTeam       = "team_"
	PrefixTemplate   = "tmpl_"
	PrefixTaskList   = "tl_"
)

var counter uint64

// Next returns a new id formatted as prefix + zero-padded monotonic counter.
func Next(prefix string) string {
	n := atomic.AddUint64(&counter, 1)
	return fmt.Sprintf("%s%016d", prefix, n)
}

func Project() string    { return Next(PrefixProject) }
func Task() string       { return Next(PrefixTask) }
func Session() string    { return Next(PrefixSession) }
func Mail() string       { return Next(PrefixMail) }
func Event() string      { return Next(PrefixEvent) }
func Doc() string        { return Next(PrefixDoc) }
func TeamMember() string { return Next(PrefixTeamMember) }
func Team() string       { return Next(PrefixTeam) }
func Template() string   { return Next(PrefixTemplate) }
func TaskList() string   { return Next(PrefixTaskList) }
