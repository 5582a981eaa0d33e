// LAKE - Lightweight Authenticated Key Exchange core
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of LAKE.
//
// LAKE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// LAKE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with LAKE. If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sage-x-project/lake/cipherprovider"
	"github.com/sage-x-project/lake/credential"
	"github.com/sage-x-project/lake/edhoc"
	"github.com/sage-x-project/lake/internal/demoidentity"
	"github.com/sage-x-project/lake/oscorebridge"
	"github.com/sage-x-project/lake/transport/websocket"
)

var runFlags struct {
	url              string
	suite            int
	method           int
	peerKidHex       string
	peerPublicKeyHex string
	expectMsg4       bool
	replayWindow     int
	timeout          time.Duration
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the EDHOC initiator handshake against a listening edhoc-server",
	RunE:  runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.url, "url", "ws://127.0.0.1:8765/edhoc", "WebSocket URL of the responder")
	f.IntVar(&runFlags.suite, "suite", 0, "EDHOC cipher suite label (0-6)")
	f.IntVar(&runFlags.method, "method", 0, "EDHOC method (0: both signature)")
	f.StringVar(&runFlags.peerKidHex, "peer-kid", "", "hex-encoded kid of the responder's credential")
	f.StringVar(&runFlags.peerPublicKeyHex, "peer-pk", "", "hex-encoded Ed25519 public key of the responder")
	f.BoolVar(&runFlags.expectMsg4, "expect-msg4", false, "wait for and verify msg4")
	f.IntVar(&runFlags.replayWindow, "replay-window", 32, "OSCORE replay window size in bits")
	f.DurationVar(&runFlags.timeout, "timeout", 10*time.Second, "handshake deadline")
}

// ownConnID is this demo's fixed C_I; a real deployment would pick one
// per session.
var ownConnID = edhoc.ConnID{IsInt: true, Int: 0}

func runRun(cmd *cobra.Command, args []string) error {
	if runFlags.peerKidHex == "" || runFlags.peerPublicKeyHex == "" {
		return fmt.Errorf("--peer-kid and --peer-pk are required (from edhoc-server's printed identity)")
	}
	peerKid, err := hex.DecodeString(runFlags.peerKidHex)
	if err != nil {
		return fmt.Errorf("decode --peer-kid: %w", err)
	}
	peerPK, err := hex.DecodeString(runFlags.peerPublicKeyHex)
	if err != nil {
		return fmt.Errorf("decode --peer-pk: %w", err)
	}

	p := cipherprovider.New()
	suite, err := edhoc.ResolveSuite(runFlags.suite)
	if err != nil {
		return err
	}
	initiatorStaticDH, _, err := edhoc.MethodFlags(runFlags.method)
	if err != nil {
		return err
	}

	own, err := demoidentity.Generate(p, suite, initiatorStaticDH, []byte{0x01})
	if err != nil {
		return err
	}
	fmt.Printf("own kid=%x pk=%x\n", own.Known.Kid, own.Known.PK)

	resolver := credential.NewResolver(
		[]credential.Known{{Kid: peerKid, Cred: peerPK, PK: peerPK}},
		nil, nil,
	)

	ctx, cancel := context.WithTimeout(context.Background(), runFlags.timeout)
	defer cancel()

	t, err := websocket.Dial(ctx, runFlags.url)
	if err != nil {
		return fmt.Errorf("dial %s: %w", runFlags.url, err)
	}
	defer t.Close()

	suitesI := edhoc.Suites{Single: true, List: []int{runFlags.suite}}
	in, err := edhoc.Negotiate(ctx, p, t, resolver, runFlags.method, suitesI, own.Identity, ownConnID, nil, nil)
	if err != nil {
		return fmt.Errorf("negotiate: %w", err)
	}
	if err := in.SendMsg3(ctx); err != nil {
		return fmt.Errorf("send msg3: %w", err)
	}
	if err := in.Finish(ctx, runFlags.expectMsg4, 4096); err != nil {
		return fmt.Errorf("finish: %w", err)
	}
	defer in.Zeroize()

	fmt.Printf("handshake complete: PRK_out=%x\n", in.PRKOut())

	secCtx, err := oscorebridge.DeriveContext(p, suite, in.PRKOut(), ownConnID, in.PeerConnID(), nil, runFlags.replayWindow)
	if err != nil {
		return fmt.Errorf("derive oscore context: %w", err)
	}
	defer secCtx.Zeroize()
	fmt.Println("OSCORE security context established")

	return nil
}
