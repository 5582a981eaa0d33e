package credential

import "golang.org/x/sync/singleflight"

// callGroup coalesces concurrent Resolve calls for the same ID_CRED
// behind golang.org/x/sync/singleflight, so a
// slow VerifyCertificateChain call made by two sessions handshaking
// against the same peer at once runs exactly once.
type callGroup struct {
	g singleflight.Group
}

// Do runs fn, or waits on an in-flight call already running under key.
// shared reports whether this call rode along on another caller's
// in-flight fn rather than driving its own.
func (c *callGroup) Do(key string, fn func() (any, error)) (v any, shared bool, err error) {
	v, err, shared = c.g.Do(key, fn)
	return v, shared, err
}
