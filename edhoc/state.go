package edhoc

// State is a node in the initiator/responder state tables.
type State int

const (
	StateI0 State = iota
	StateI1
	StateI2
	StateI3
	StateIDone
	StateR0
	StateR1
	StateRDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateI0:
		return "I0"
	case StateI1:
		return "I1"
	case StateI2:
		return "I2"
	case StateI3:
		return "I3"
	case StateIDone:
		return "IDone"
	case StateR0:
		return "R0"
	case StateR1:
		return "R1"
	case StateRDone:
		return "RDone"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Identity bundles one party's long-term credential material: which authentication method it uses, its static/signature
// key, and its own (ID_CRED, CRED) pair.
type Identity struct {
	// StaticDH reports whether this party authenticates via static
	// Diffie-Hellman (true) or signature (false), per the method's
	// per-party flag (MethodFlags).
	StaticDH bool
	// SK is the signing private key (StaticDH == false) or the static
	// ECDH private key (StaticDH == true), on the suite's curve.
	SK []byte
	// PK is the corresponding public key, as published in CredRaw.
	PK []byte
	// IDCredRaw is this party's own ID_CRED, pre-encoded
	// (credential.EncodeIDCred).
	IDCredRaw []byte
	// CredRaw is this party's own CRED, pre-encoded.
	CredRaw []byte
}
