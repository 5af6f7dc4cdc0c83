// Package block implements the blocks bump allocation runs on.
//
// A Block is one anonymous mapping with a bump cursor. Blocks of one
// goroutine form a chain, newest to oldest, through their previous links.
// The Manager maps new blocks following a geometric growth policy and is the
// only place memory is ever returned to the operating system.
//
// # Layout
//
// Every allocation is preceded by a fixed-size header recording the size the
// caller asked for:
//
//	| ... | header{requested} | payload (aligned) | ... |
//	                          ^ returned pointer
//
// The header always lies inside the same block as its payload.
//
// # Concurrency
//
// A Block is mutated only by the goroutine that owns it; Bump takes no lock
// and performs no atomic operation. Manager methods are safe for concurrent use.
package block
