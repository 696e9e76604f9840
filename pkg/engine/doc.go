// Package engine implements the authorization decision for each inbound
// request.
//
// The evaluation is a pure function over an ordered list of checks (client
// IP, basic auth, bypass token in query, header, then path) that returns on
// the first match. The precedence is deliberate policy: an allowlisted IP
// always wins, and the three token transports are ranked query, header,
// path. Side effects - the IP learn-step, persistence, and user command
// execution - happen only after an identity-bearing match, with the store
// lock scoped to the lookup-and-mutate sequence and released before any
// disk or process I/O.
package engine
