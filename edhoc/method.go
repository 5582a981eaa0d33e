package edhoc

import "github.com/sage-x-project/lake/lakeerr"

// MethodFlags decodes the per-party static_DH authentication flags a
// method value encodes, following draft-ietf-lake-edhoc-15's method table: 0 both
// signature, 1 initiator static-DH/responder signature, 2 initiator
// signature/responder static-DH, 3 both static-DH.
func MethodFlags(method int) (initiatorStaticDH, responderStaticDH bool, err error) {
	switch method {
	case 0:
		return false, false, nil
	case 1:
		return true, false, nil
	case 2:
		return false, true, nil
	case 3:
		return true, true, nil
	default:
		return false, false, lakeerr.New(lakeerr.UnsupportedMethod, "method not in {0,1,2,3}")
	}
}
