package edhoc

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/sage-x-project/lake/cborcodec"
	"github.com/sage-x-project/lake/cipherprovider"
	"github.com/sage-x-project/lake/credential"
	"github.com/sage-x-project/lake/internal/logger"
	"github.com/sage-x-project/lake/internal/metrics"
	"github.com/sage-x-project/lake/lakeerr"
	"github.com/sage-x-project/lake/sigmac"
)

// ephemeralSeedLen is the entropy fed to Provider.ECDHKeypair for a fresh
// ephemeral key. cipherprovider.Default's keypair derivation is a pure
// function of its seed, so drawing a fresh seed per session is this
// caller's responsibility, not the Provider's.
const ephemeralSeedLen = 32

// CredentialResolver is the collaborator an Initiator/Responder needs to
// turn a peer's ID_CRED into its CRED and public key.
type CredentialResolver interface {
	Resolve(ctx context.Context, idCred credential.IDCred) (cred, pk []byte, err error)
}

// Initiator drives the I0..IDone state table.
type Initiator struct {
	p         cipherprovider.Provider
	transport Transport
	resolver  CredentialResolver

	method  int
	suitesI Suites
	own     Identity
	ci      ConnID
	ead1    []EADItem
	ead3    []EADItem

	state State
	suite SuiteParams

	ephSK, ephPK []byte
	msg1Bytes    []byte

	gY, th2, prk2e, prk3e2m []byte
	cR                      ConnID
	peerCredRaw, peerPK     []byte
	peerIDCredRaw           []byte

	th3, prk4x3m []byte
	th4, prkOut  []byte
}

// NewInitiator constructs an Initiator in state I0.
func NewInitiator(p cipherprovider.Provider, transport Transport, resolver CredentialResolver, method int, suitesI Suites, own Identity, ci ConnID, ead1, ead3 []EADItem) *Initiator {
	own.SK = append([]byte(nil), own.SK...)
	return &Initiator{
		p: p, transport: transport, resolver: resolver,
		method: method, suitesI: suitesI, own: own, ci: ci,
		ead1: ead1, ead3: ead3, state: StateI0,
	}
}

// State reports the current state.
func (in *Initiator) State() State { return in.state }

// PRKOut returns the derived PRK_out once the handshake reaches IDone.
func (in *Initiator) PRKOut() []byte { return in.prkOut }

// TH4 returns the final transcript hash once the handshake reaches IDone.
func (in *Initiator) TH4() []byte { return in.th4 }

// PeerConnID returns the responder's C_R, learned from msg2, once the
// handshake has reached I2 or later.
func (in *Initiator) PeerConnID() ConnID { return in.cR }

// Zeroize overwrites every secret this Initiator holds. Safe to call multiple times or after Failed.
func (in *Initiator) Zeroize() {
	zero(in.ephSK)
	zero(in.prk2e)
	zero(in.prk3e2m)
	zero(in.prk4x3m)
	zero(in.prkOut)
	zero(in.own.SK)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func (in *Initiator) fail(err error) error {
	in.state = StateFailed
	in.Zeroize()
	metrics.HandshakesFailed.WithLabelValues("initiator", lakeerr.KindOf(err).String()).Inc()
	logger.Warn("edhoc: initiator handshake failed", logger.ConnID("ci", in.ci.String()), logger.ErrorKind(lakeerr.KindOf(err).String()), logger.Error(err))
	return err
}

// stageTimer returns a func to defer that records how long a state
// transition took under metrics.HandshakeDuration.
func stageTimer(stage string) func() {
	start := time.Now()
	return func() {
		metrics.HandshakeDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

// Start builds and sends msg1 (I0 -> I1).
func (in *Initiator) Start(ctx context.Context) error {
	if in.state != StateI0 {
		return lakeerr.New(lakeerr.TransportError, "Start called outside state I0")
	}
	defer stageTimer("I0_I1")()
	metrics.HandshakesInitiated.WithLabelValues("initiator").Inc()
	suite, err := ResolveSuite(in.suitesI.Last())
	if err != nil {
		return in.fail(err)
	}
	in.suite = suite

	seed := make([]byte, ephemeralSeedLen)
	if _, err := rand.Read(seed); err != nil {
		return in.fail(lakeerr.Wrap(lakeerr.EcdhFailed, "ephemeral key seed", err))
	}
	sk, pk, err := in.p.ECDHKeypair(suite.ECDH, seed)
	if err != nil {
		return in.fail(lakeerr.Wrap(lakeerr.EcdhFailed, "ephemeral keypair", err))
	}
	in.ephSK, in.ephPK = sk, pk

	m1 := Msg1{Method: in.method, SuitesI: in.suitesI, GX: pk, CI: in.ci, EAD1: in.ead1}
	in.msg1Bytes = m1.Encode()

	if err := wrapCancel(ctx, in.transport.Tx(ctx, in.msg1Bytes)); err != nil {
		return in.fail(err)
	}
	in.state = StateI1
	return nil
}

// RecvMsg2 receives and processes msg2 (I1 -> I2): parses it, computes
// TH_2/PRK_2e, decrypts CIPHERTEXT_2, resolves the responder's
// credential, and verifies signature_or_mac_2.
func (in *Initiator) RecvMsg2(ctx context.Context) error {
	if in.state != StateI1 {
		return lakeerr.New(lakeerr.TransportError, "RecvMsg2 called outside state I1")
	}
	defer stageTimer("I1_I2")()
	raw, err := wrapCancelBytes(ctx, in.transport.Rx(ctx))
	if err != nil {
		return in.fail(err)
	}
	if em, ok := tryDecodeError(raw); ok {
		return in.fail(errorMsgAsError(em))
	}
	m2, err := DecodeMsg2(raw)
	if err != nil {
		return in.fail(err)
	}
	gYLen := in.p.PublicKeyLen(in.suite.ECDH)
	gY, ct2, err := SplitGYCiphertext2(gYLen, m2.GYCiphertext2)
	if err != nil {
		return in.fail(err)
	}
	in.gY, in.cR = gY, m2.CR

	gXY, err := in.p.ECDHDerive(in.suite.ECDH, in.ephSK, gY)
	if err != nil {
		return in.fail(lakeerr.Wrap(lakeerr.EcdhFailed, "G_XY", err))
	}
	th2, err := TH2(in.p, in.suite.Hash, gY, in.msg1Bytes)
	if err != nil {
		return in.fail(err)
	}
	in.th2 = th2
	prk2e, err := PRK2e(in.p, in.suite.Hash, gXY)
	if err != nil {
		return in.fail(err)
	}

	_, responderStaticDH, err := MethodFlags(in.method)
	if err != nil {
		return in.fail(err)
	}

	// A first pass-decrypt is needed to learn ID_CRED_R before we can
	// resolve the responder's static public key for PRK_3e2m when
	// responderStaticDH is set; this core resolves credentials before
	// deriving G_RX, so it decrypts once to read ID_CRED_R/CRED_R, then
	// derives PRK_3e2m and verifies signature_or_mac_2 against the
	// already-decrypted plaintext.
	pt2Probe, err := DecryptCiphertext2(in.p, in.suite.Hash, prk2e, th2, ct2)
	if err != nil {
		return in.fail(err)
	}

	idCredR, err := credential.DecodeIDCred(pt2Probe.IDCredR)
	if err != nil {
		return in.fail(err)
	}
	credR, pkR, err := in.resolver.Resolve(ctx, idCredR)
	if err != nil {
		return in.fail(err)
	}
	in.peerCredRaw, in.peerPK, in.peerIDCredRaw = credR, pkR, pt2Probe.IDCredR

	var gRX []byte
	if responderStaticDH {
		gRX, err = in.p.ECDHDerive(in.suite.ECDH, in.ephSK, pkR)
		if err != nil {
			return in.fail(lakeerr.Wrap(lakeerr.EcdhFailed, "G_RX", err))
		}
	}
	prk3e2m, err := PRK3e2m(in.p, in.suite.Hash, prk2e, responderStaticDH, gRX)
	if err != nil {
		return in.fail(err)
	}
	in.prk2e, in.prk3e2m = prk2e, prk3e2m

	macCtx := sigmac.Context{
		PRK: prk3e2m, MACLabel: LabelMAC2, MACLen: in.p.HashLen(in.suite.Hash),
		IDCredX: pt2Probe.IDCredR, ThN: th2, CredX: credR, EADn: encodedEADOrNil(pt2Probe.EAD2),
	}
	if err := sigmac.Verify(in.p, in.suite.Hash, in.suite.Signature, pkR, macCtx, !responderStaticDH, pt2Probe.SignatureOrMAC2); err != nil {
		return in.fail(err)
	}

	th3, err := TH3(in.p, in.suite.Hash, in.th2, ct2)
	if err != nil {
		return in.fail(err)
	}
	in.th3 = th3

	in.state = StateI2
	return nil
}

// SendMsg3 builds and sends msg3 (I2 -> I3): computes PRK_4x3m, this
// initiator's signature_or_mac_3 and TH_4, using the TH_3 that RecvMsg2
// computed.
func (in *Initiator) SendMsg3(ctx context.Context) error {
	if in.state != StateI2 {
		return lakeerr.New(lakeerr.TransportError, "SendMsg3 called outside state I2")
	}
	defer stageTimer("I2_I3")()
	initiatorStaticDH, _, err := MethodFlags(in.method)
	if err != nil {
		return in.fail(err)
	}

	var gIX []byte
	if initiatorStaticDH {
		gIX, err = in.p.ECDHDerive(in.suite.ECDH, in.own.SK, in.gY)
		if err != nil {
			return in.fail(lakeerr.Wrap(lakeerr.EcdhFailed, "G_IX", err))
		}
	}
	prk4x3m, err := PRK4x3m(in.p, in.suite.Hash, in.prk3e2m, initiatorStaticDH, gIX)
	if err != nil {
		return in.fail(err)
	}
	in.prk4x3m = prk4x3m

	macCtx := sigmac.Context{
		PRK: prk4x3m, MACLabel: LabelMAC3, MACLen: in.p.HashLen(in.suite.Hash),
		IDCredX: in.own.IDCredRaw, ThN: in.th3, CredX: in.own.CredRaw, EADn: encodedEADOrNil(in.ead3),
	}
	// CIPHERTEXT_3's AEAD key comes from PRK_3e2m, context TH_3; only
	// MAC_3/signature_3 (embedded inside the plaintext) uses PRK_4x3m.
	k3, err := KDF(in.p, in.suite.Hash, in.prk3e2m, LabelK3, in.th3, in.p.KeyLen(in.suite.AEAD))
	if err != nil {
		return in.fail(err)
	}
	iv3, err := KDF(in.p, in.suite.Hash, in.prk3e2m, LabelIV3, in.th3, in.p.NonceLen(in.suite.AEAD))
	if err != nil {
		return in.fail(err)
	}

	som3, err := sigmac.Compute(in.p, in.suite.Hash, in.suite.Signature, in.own.SK, macCtx, !initiatorStaticDH)
	if err != nil {
		return in.fail(err)
	}

	pt3 := PlaintextN{IDCredX: in.own.IDCredRaw, SignatureOrMAC: som3, EAD: in.ead3}
	ct3, err := EncryptCiphertextN(in.p, in.suite.AEAD, k3, iv3, macCtx.ThN, pt3)
	if err != nil {
		return in.fail(err)
	}

	th4, err := TH4(in.p, in.suite.Hash, in.th3, ct3)
	if err != nil {
		return in.fail(err)
	}
	in.th4 = th4

	m3 := Msg3{Ciphertext3: ct3}
	if err := wrapCancel(ctx, in.transport.Tx(ctx, m3.Encode())); err != nil {
		return in.fail(err)
	}
	in.state = StateI3
	return nil
}

// Finish completes the handshake (I3 -> IDone): when expectMsg4 is true,
// receives and verifies msg4 before deriving PRK_out; otherwise derives
// PRK_out directly from TH_4 computed over CIPHERTEXT_3.
func (in *Initiator) Finish(ctx context.Context, expectMsg4 bool, maxMsg4Len int) error {
	if in.state != StateI3 {
		return lakeerr.New(lakeerr.TransportError, "Finish called outside state I3")
	}
	defer stageTimer("I3_IDone")()
	if expectMsg4 {
		raw, err := wrapCancelBytes(ctx, in.transport.Rx(ctx))
		if err != nil {
			return in.fail(err)
		}
		if em, ok := tryDecodeError(raw); ok {
			return in.fail(errorMsgAsError(em))
		}
		m4, err := DecodeMsg4(raw, maxMsg4Len)
		if err != nil {
			return in.fail(err)
		}
		k4, err := KDF(in.p, in.suite.Hash, in.prk4x3m, LabelK4, in.th4, in.p.KeyLen(in.suite.AEAD))
		if err != nil {
			return in.fail(err)
		}
		iv4, err := KDF(in.p, in.suite.Hash, in.prk4x3m, LabelIV4, in.th4, in.p.NonceLen(in.suite.AEAD))
		if err != nil {
			return in.fail(err)
		}
		// PLAINTEXT_4 carries only an optional EAD_4, so it is authenticated
		// here but not parsed as ID_CRED/signature_or_mac.
		if _, err := in.p.AEADDecrypt(in.suite.AEAD, k4, iv4, aeadAAD(in.th4), m4.Ciphertext4); err != nil {
			return in.fail(err)
		}
	}

	prkOut, err := PRKOut(in.p, in.suite.Hash, in.prk4x3m, in.th4)
	if err != nil {
		return in.fail(err)
	}
	in.prkOut = prkOut
	in.state = StateIDone
	metrics.HandshakesCompleted.WithLabelValues("initiator", "success").Inc()
	logger.Info("edhoc: initiator handshake complete", logger.ConnID("ci", in.ci.String()), logger.ConnID("cr", in.cR.String()))
	return nil
}

// encodedEADOrNil renders items as the CBOR-sequence EAD encoding sigmac's
// MAC/signature context embeds, or nil when there is nothing to embed.
func encodedEADOrNil(items []EADItem) []byte {
	if len(items) == 0 {
		return nil
	}
	return encodeEAD(cborcodec.NewSeq(), items).Encode()
}
