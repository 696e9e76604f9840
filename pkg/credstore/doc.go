// Package credstore holds the credential and allowlist state shared by the
// decision engine and the administrative surface.
//
// Credentials is the plain aggregate with invariant-preserving mutation
// operations. Store wraps a single Credentials value behind one exclusive
// lock; it is the unit of locking and the unit of persistence. Callers that
// need to do follow-on work outside the lock (disk writes, command
// execution) take a deep snapshot and operate on that.
package credstore
