// Package engine propagates changes between the hub repository and the
// repositories mapped into it.
//
// It is the core of hubsync, responsible for:
//   - Importing a branch of a mapped repository into a new hub branch
//   - Landing a hub branch on the hub and every mapped repository it touches
//   - Translating paths between hub directories and repository scopes
//   - Attributing squash commits to their original authors
//   - Recovering from partial push failures with a fallback branch
//
// Every operation on a Hub runs through its queue, one at a time, because
// each repository has exactly one working copy that is mutated in place.
package engine
