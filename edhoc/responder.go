package edhoc

import (
	"context"
	"crypto/rand"
	"errors"

	"github.com/sage-x-project/lake/cipherprovider"
	"github.com/sage-x-project/lake/credential"
	"github.com/sage-x-project/lake/internal/logger"
	"github.com/sage-x-project/lake/internal/metrics"
	"github.com/sage-x-project/lake/lakeerr"
	"github.com/sage-x-project/lake/sigmac"
)

// Responder drives the R0..RDone state table.
type Responder struct {
	p         cipherprovider.Provider
	transport Transport
	resolver  CredentialResolver

	suitesR SuitesSupported
	own     Identity
	cr      ConnID
	ead2    []EADItem

	state State
	suite SuiteParams
	method int

	ephSK, ephPK []byte
	msg1Bytes    []byte

	gX, ci                []byte
	peerCredRaw, peerPK    []byte
	peerIDCredRaw          []byte
	ead1                   []EADItem
	cI                     ConnID

	th2, prk2e, prk3e2m []byte
	th3, prk4x3m        []byte
	th4, prkOut         []byte
}

// SuitesSupported is the responder's locally supported suite set, most
// preferred last, used by SelectSuite against the initiator's SUITES_I.
type SuitesSupported []int

// NewResponder constructs a Responder in state R0.
func NewResponder(p cipherprovider.Provider, transport Transport, resolver CredentialResolver, suitesR SuitesSupported, own Identity, cr ConnID, ead2 []EADItem) *Responder {
	own.SK = append([]byte(nil), own.SK...)
	return &Responder{
		p: p, transport: transport, resolver: resolver,
		suitesR: suitesR, own: own, cr: cr, ead2: ead2, state: StateR0,
	}
}

// State reports the current state.
func (rs *Responder) State() State { return rs.state }

// PRKOut returns the derived PRK_out once the handshake reaches RDone.
func (rs *Responder) PRKOut() []byte { return rs.prkOut }

// TH4 returns the final transcript hash once the handshake reaches RDone.
func (rs *Responder) TH4() []byte { return rs.th4 }

// PeerConnID returns the initiator's C_I, learned from msg1, once the
// handshake has reached R1 or later.
func (rs *Responder) PeerConnID() ConnID { return rs.cI }

// Zeroize overwrites every secret this Responder holds.
func (rs *Responder) Zeroize() {
	zero(rs.ephSK)
	zero(rs.prk2e)
	zero(rs.prk3e2m)
	zero(rs.prk4x3m)
	zero(rs.prkOut)
	zero(rs.own.SK)
}

func (rs *Responder) fail(err error) error {
	rs.state = StateFailed
	rs.Zeroize()
	metrics.HandshakesFailed.WithLabelValues("responder", lakeerr.KindOf(err).String()).Inc()
	logger.Warn("edhoc: responder handshake failed", logger.ConnID("cr", rs.cr.String()), logger.ErrorKind(lakeerr.KindOf(err).String()), logger.Error(err))
	return err
}

// sendErrorAndFail transmits an EDHOC error message best-effort, then
// returns the original failure.
func (rs *Responder) sendErrorAndFail(ctx context.Context, em ErrorMsg, cause error) error {
	_ = rs.transport.Tx(ctx, em.Encode())
	return rs.fail(cause)
}

// RecvMsg1 receives and processes msg1 (R0 -> R1): parses it, negotiates
// the cipher suite (replying with error(2) on mismatch),
// and derives PRK_2e.
func (rs *Responder) RecvMsg1(ctx context.Context) error {
	if rs.state != StateR0 {
		return lakeerr.New(lakeerr.TransportError, "RecvMsg1 called outside state R0")
	}
	defer stageTimer("R0_R1")()
	metrics.HandshakesInitiated.WithLabelValues("responder").Inc()
	raw, err := wrapCancelBytes(ctx, rs.transport.Rx(ctx))
	if err != nil {
		return rs.fail(err)
	}
	m1, err := DecodeMsg1(raw)
	if err != nil {
		return rs.fail(err)
	}
	rs.msg1Bytes = raw
	rs.method = m1.Method
	rs.gX = m1.GX
	rs.cI = m1.CI
	rs.ead1 = m1.EAD1

	selected, err := SelectSuite(m1.SuitesI.List, []int(rs.suitesR))
	if err != nil {
		var lerr *lakeerr.Error
		if errors.As(err, &lerr) && lerr.Kind == lakeerr.SuiteMismatch {
			return rs.sendErrorAndFail(ctx, ErrorMsg{Code: ErrCodeWrongCipherSuite, SuitesR: Suites{List: lerr.SuitesR}}, err)
		}
		return rs.fail(err)
	}
	suite, err := ResolveSuite(selected)
	if err != nil {
		return rs.fail(err)
	}
	rs.suite = suite

	seed := make([]byte, ephemeralSeedLen)
	if _, err := rand.Read(seed); err != nil {
		return rs.fail(lakeerr.Wrap(lakeerr.EcdhFailed, "ephemeral key seed", err))
	}
	sk, pk, err := rs.p.ECDHKeypair(suite.ECDH, seed)
	if err != nil {
		return rs.fail(lakeerr.Wrap(lakeerr.EcdhFailed, "ephemeral keypair", err))
	}
	rs.ephSK, rs.ephPK = sk, pk

	gXY, err := rs.p.ECDHDerive(suite.ECDH, sk, rs.gX)
	if err != nil {
		return rs.fail(lakeerr.Wrap(lakeerr.EcdhFailed, "G_XY", err))
	}
	th2, err := TH2(rs.p, suite.Hash, pk, rs.msg1Bytes)
	if err != nil {
		return rs.fail(err)
	}
	rs.th2 = th2
	prk2e, err := PRK2e(rs.p, suite.Hash, gXY)
	if err != nil {
		return rs.fail(err)
	}
	rs.prk2e = prk2e

	rs.state = StateR1
	return nil
}

// SendMsg2 builds and sends msg2 (still within R1): derives PRK_3e2m
// and this responder's signature_or_mac_2, then encrypts and transmits.
func (rs *Responder) SendMsg2(ctx context.Context) error {
	if rs.state != StateR1 {
		return lakeerr.New(lakeerr.TransportError, "SendMsg2 called outside state R1")
	}
	_, responderStaticDH, err := MethodFlags(rs.method)
	if err != nil {
		return rs.fail(err)
	}

	var gRX []byte
	if responderStaticDH {
		gRX, err = rs.p.ECDHDerive(rs.suite.ECDH, rs.own.SK, rs.gX)
		if err != nil {
			return rs.fail(lakeerr.Wrap(lakeerr.EcdhFailed, "G_RX", err))
		}
	}
	prk3e2m, err := PRK3e2m(rs.p, rs.suite.Hash, rs.prk2e, responderStaticDH, gRX)
	if err != nil {
		return rs.fail(err)
	}
	rs.prk3e2m = prk3e2m

	macCtx := sigmac.Context{
		PRK: prk3e2m, MACLabel: LabelMAC2, MACLen: rs.p.HashLen(rs.suite.Hash),
		IDCredX: rs.own.IDCredRaw, ThN: rs.th2, CredX: rs.own.CredRaw, EADn: encodedEADOrNil(rs.ead2),
	}
	som2, err := sigmac.Compute(rs.p, rs.suite.Hash, rs.suite.Signature, rs.own.SK, macCtx, !responderStaticDH)
	if err != nil {
		return rs.fail(err)
	}

	pt2 := Plaintext2{CR: rs.cr, IDCredR: rs.own.IDCredRaw, SignatureOrMAC2: som2, EAD2: rs.ead2}
	ct2, err := EncryptCiphertext2(rs.p, rs.suite.Hash, rs.prk2e, rs.th2, pt2)
	if err != nil {
		return rs.fail(err)
	}

	th3, err := TH3(rs.p, rs.suite.Hash, rs.th2, ct2)
	if err != nil {
		return rs.fail(err)
	}
	rs.th3 = th3

	payload := append(append([]byte{}, rs.ephPK...), ct2...)
	m2 := Msg2{GYCiphertext2: payload, CR: rs.cr}
	if err := wrapCancel(ctx, rs.transport.Tx(ctx, m2.Encode())); err != nil {
		return rs.fail(err)
	}
	return nil
}

// RecvMsg3 receives and processes msg3 (R1 -> RDone): verifies
// signature_or_mac_3, resolves the initiator's credential, and derives
// PRK_out.
func (rs *Responder) RecvMsg3(ctx context.Context) error {
	if rs.state != StateR1 {
		return lakeerr.New(lakeerr.TransportError, "RecvMsg3 called outside state R1")
	}
	defer stageTimer("R1_RDone")()
	raw, err := wrapCancelBytes(ctx, rs.transport.Rx(ctx))
	if err != nil {
		return rs.fail(err)
	}
	if em, ok := tryDecodeError(raw); ok {
		return rs.fail(errorMsgAsError(em))
	}
	m3, err := DecodeMsg3(raw)
	if err != nil {
		return rs.fail(err)
	}

	initiatorStaticDH, _, err := MethodFlags(rs.method)
	if err != nil {
		return rs.fail(err)
	}

	k3, err := KDF(rs.p, rs.suite.Hash, rs.prk3e2m, LabelK3, rs.th3, rs.p.KeyLen(rs.suite.AEAD))
	if err != nil {
		return rs.fail(err)
	}
	iv3, err := KDF(rs.p, rs.suite.Hash, rs.prk3e2m, LabelIV3, rs.th3, rs.p.NonceLen(rs.suite.AEAD))
	if err != nil {
		return rs.fail(err)
	}

	// prk4x3m depends on G_IX, which in turn depends on knowing the
	// initiator's static public key; this core probes the plaintext
	// with prk3e2m-derived K_3/IV_3 first (CIPHERTEXT_3's AEAD key does
	// not itself depend on static-DH), reads ID_CRED_I, resolves the
	// credential, then finalises prk4x3m and verifies the MAC/signature.
	pt3, err := DecryptCiphertextN(rs.p, rs.suite.AEAD, k3, iv3, rs.th3, m3.Ciphertext3)
	if err != nil {
		return rs.fail(err)
	}

	idCredI, err := credential.DecodeIDCred(pt3.IDCredX)
	if err != nil {
		return rs.fail(err)
	}
	credI, pkI, err := rs.resolver.Resolve(ctx, idCredI)
	if err != nil {
		return rs.fail(err)
	}
	rs.peerCredRaw, rs.peerPK, rs.peerIDCredRaw = credI, pkI, pt3.IDCredX

	var gIX []byte
	if initiatorStaticDH {
		gIX, err = rs.p.ECDHDerive(rs.suite.ECDH, rs.ephSK, pkI)
		if err != nil {
			return rs.fail(lakeerr.Wrap(lakeerr.EcdhFailed, "G_IX", err))
		}
	}
	prk4x3m, err := PRK4x3m(rs.p, rs.suite.Hash, rs.prk3e2m, initiatorStaticDH, gIX)
	if err != nil {
		return rs.fail(err)
	}
	rs.prk4x3m = prk4x3m

	macCtx := sigmac.Context{
		PRK: prk4x3m, MACLabel: LabelMAC3, MACLen: rs.p.HashLen(rs.suite.Hash),
		IDCredX: pt3.IDCredX, ThN: rs.th3, CredX: credI, EADn: encodedEADOrNil(pt3.EAD),
	}
	if err := sigmac.Verify(rs.p, rs.suite.Hash, rs.suite.Signature, pkI, macCtx, !initiatorStaticDH, pt3.SignatureOrMAC); err != nil {
		return rs.fail(err)
	}

	th4, err := TH4(rs.p, rs.suite.Hash, rs.th3, m3.Ciphertext3)
	if err != nil {
		return rs.fail(err)
	}
	rs.th4 = th4

	prkOut, err := PRKOut(rs.p, rs.suite.Hash, prk4x3m, th4)
	if err != nil {
		return rs.fail(err)
	}
	rs.prkOut = prkOut
	rs.state = StateRDone
	metrics.HandshakesCompleted.WithLabelValues("responder", "success").Inc()
	logger.Info("edhoc: responder handshake complete", logger.ConnID("cr", rs.cr.String()), logger.ConnID("ci", rs.cI.String()))
	return nil
}

// SendMsg4 optionally sends msg4. Not all deployments use it.
func (rs *Responder) SendMsg4(ctx context.Context) error {
	if rs.state != StateRDone {
		return lakeerr.New(lakeerr.TransportError, "SendMsg4 called outside state RDone")
	}
	k4, err := KDF(rs.p, rs.suite.Hash, rs.prk4x3m, LabelK4, rs.th4, rs.p.KeyLen(rs.suite.AEAD))
	if err != nil {
		return rs.fail(err)
	}
	iv4, err := KDF(rs.p, rs.suite.Hash, rs.prk4x3m, LabelIV4, rs.th4, rs.p.NonceLen(rs.suite.AEAD))
	if err != nil {
		return rs.fail(err)
	}
	ct4, err := EncryptCiphertextN(rs.p, rs.suite.AEAD, k4, iv4, rs.th4, PlaintextN{})
	if err != nil {
		return rs.fail(err)
	}
	m4 := Msg4{Ciphertext4: ct4}
	return wrapCancel(ctx, rs.transport.Tx(ctx, m4.Encode()))
}
