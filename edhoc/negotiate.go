package edhoc

import (
	"context"
	"errors"

	"github.com/sage-x-project/lake/cipherprovider"
	"github.com/sage-x-project/lake/lakeerr"
)

// Negotiate drives the initiator side of suite negotiation: send msg1, and if
// the responder replies error(2) with SUITES_R, narrow SUITES_I to the
// overlap and retry exactly once. It returns the Initiator once it has
// reached I2 (msg2 received and verified) so the caller can proceed with
// SendMsg3/Finish.
//
// Before retrying, it enforces the downgrade check of Open Question 4:
// SUITES_R[last] must be absent from the original SUITES_I, since a
// responder that already saw SUITES_R[last] on offer and still rejected
// SUITES_I has no legitimate reason to name a suite the initiator already
// offered - that can only be an active downgrade attempt, and Negotiate
// aborts rather than restart against it.
func Negotiate(ctx context.Context, p cipherprovider.Provider, transport Transport, resolver CredentialResolver, method int, suitesI Suites, own Identity, ci ConnID, ead1, ead3 []EADItem) (*Initiator, error) {
	in := NewInitiator(p, transport, resolver, method, suitesI, own, ci, ead1, ead3)
	if err := in.Start(ctx); err != nil {
		return nil, err
	}
	err := in.RecvMsg2(ctx)
	if err == nil {
		return in, nil
	}

	var lerr *lakeerr.Error
	if !errors.As(err, &lerr) || lerr.Kind != lakeerr.ErrorMessageReceived || lerr.ErrCode != ErrCodeWrongCipherSuite {
		return nil, err
	}
	suitesR, _ := lerr.ErrInfo.([]int)
	if !downgradeCheckPasses(suitesR, suitesI) {
		return nil, lakeerr.New(lakeerr.UnsupportedSuite, "SUITES_R[last] is already present in the original SUITES_I, refusing to restart")
	}

	narrowed, ok := narrowSuites(suitesI, suitesR)
	if !ok {
		return nil, lakeerr.New(lakeerr.UnsupportedSuite, "no overlap between SUITES_I and responder's SUITES_R")
	}

	retry := NewInitiator(p, transport, resolver, method, narrowed, own, ci, ead1, ead3)
	if err := retry.Start(ctx); err != nil {
		return nil, err
	}
	if err := retry.RecvMsg2(ctx); err != nil {
		return nil, err
	}
	return retry, nil
}

// downgradeCheckPasses verifies suitesR's most preferred suite is absent
// from the original suitesI, per Open Question 4 / SUITES_R[last] ∉
// SUITES_I: restarting is only safe when the responder is naming a suite
// the initiator never offered in the first place.
func downgradeCheckPasses(suitesR []int, suitesI Suites) bool {
	if len(suitesR) == 0 {
		return false
	}
	return !suitesI.Contains(suitesR[len(suitesR)-1])
}

// narrowSuites rebuilds SUITES_I restricted to labels suitesR also
// supports, preserving suitesI's original order (and therefore its
// most-preferred-last convention).
func narrowSuites(suitesI Suites, suitesR []int) (Suites, bool) {
	var kept []int
	for _, s := range suitesI.List {
		if containsInt(suitesR, s) {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return Suites{}, false
	}
	if len(kept) == 1 {
		return Suites{Single: true, List: kept}, true
	}
	return Suites{List: kept}, true
}
