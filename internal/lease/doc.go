// Package lease implements writer election over a single expiring key.
//
// The writer key holds the token of the current writer and expires after
// TTL unless refreshed. A process is the writer while the key exists and
// equals its token.
//
// # Modes
//
// Relaxed mode reads the key and then writes it:
//
//	GET writer          -> absent or ours: SET writer <token> PX ttl, held
//	                    -> someone else's: not held
//
// Two contenders that both observe an absent key will both write. The last
// write wins, and the other process sees a foreign token on its next cycle
// and steps down.
//
// Atomic mode needs a store that implements store.Atomic:
//
//	SET writer <token> NX PX ttl            -> held
//	else compare-and-refresh writer <token> -> held if still ours
//	else                                    -> not held
//
// No two processes can both observe themselves as holder within one TTL.
//
// Neither mode retries store failures. Errors are returned to the caller.
package lease
