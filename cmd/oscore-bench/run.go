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
	"bytes"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sage-x-project/lake/cipherprovider"
	"github.com/sage-x-project/lake/oscore"
)

// Minimal CoAP method/response codes (RFC7252 §12.1) - just enough to
// build a plausible GET/Content round trip.
const (
	codeGET     = 0x01
	codeContent = 0x45
)

var runFlags struct {
	iterations int
	aead       int
	hash       int
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Round-trip a synthetic CoAP GET through OSCORE N times",
	RunE:  runRun,
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&runFlags.iterations, "iterations", 100000, "number of request/response round trips")
	f.IntVar(&runFlags.aead, "aead", int(cipherprovider.AEADChaCha20Poly1305), "cipherprovider.AEADAlg label")
	f.IntVar(&runFlags.hash, "hash", int(cipherprovider.HashSHA256), "cipherprovider.HashAlg label")
}

func runRun(cmd *cobra.Command, args []string) error {
	p := cipherprovider.New()
	aead := cipherprovider.AEADAlg(runFlags.aead)
	hash := cipherprovider.HashAlg(runFlags.hash)

	masterSecret := make([]byte, p.KeyLen(aead))
	masterSalt := make([]byte, p.HashLen(hash))
	if _, err := rand.Read(masterSecret); err != nil {
		return fmt.Errorf("draw master secret: %w", err)
	}
	if _, err := rand.Read(masterSalt); err != nil {
		return fmt.Errorf("draw master salt: %w", err)
	}

	clientID := []byte{0x01}
	serverID := []byte{0x02}

	clientCtx, err := oscore.NewSecurityContext(p, aead, hash, masterSecret, masterSalt, clientID, serverID, nil, 32)
	if err != nil {
		return fmt.Errorf("build client context: %w", err)
	}
	defer clientCtx.Zeroize()
	serverCtx, err := oscore.NewSecurityContext(p, aead, hash, masterSecret, masterSalt, serverID, clientID, nil, 32)
	if err != nil {
		return fmt.Errorf("build server context: %w", err)
	}
	defer serverCtx.Zeroize()

	request := oscore.Message{
		Code:    codeGET,
		Options: []oscore.Option{{Number: oscore.OptionUriPath, Value: []byte("bench")}},
	}
	response := oscore.Message{
		Code:    codeContent,
		Payload: []byte("bench response payload"),
	}

	start := time.Now()
	for i := 0; i < runFlags.iterations; i++ {
		if err := roundTrip(clientCtx, serverCtx, request, response); err != nil {
			return fmt.Errorf("round trip %d: %w", i, err)
		}
	}
	elapsed := time.Since(start)

	fmt.Printf("%d round trips in %s (%.0f/s)\n", runFlags.iterations, elapsed, float64(runFlags.iterations)/elapsed.Seconds())
	return nil
}

func roundTrip(clientCtx, serverCtx *oscore.SecurityContext, request, response oscore.Message) error {
	reqPart := oscore.Partition(request, true)
	reqCiphertext, _, reqSeq, err := oscore.Encrypt(clientCtx, request, true, nil, 0)
	if err != nil {
		return fmt.Errorf("client encrypt request: %w", err)
	}

	if err := serverCtx.CheckAndAcceptReplay(reqSeq); err != nil {
		return fmt.Errorf("server replay check: %w", err)
	}
	decodedReq, err := oscore.Decrypt(serverCtx, reqCiphertext, clientCtx.SenderID, reqSeq, reqPart.OuterOptions, reqPart.ClassIBytes, true, nil, 0)
	if err != nil {
		return fmt.Errorf("server decrypt request: %w", err)
	}
	if !bytes.Equal(decodedReq.Options[0].Value, request.Options[0].Value) {
		return fmt.Errorf("decrypted request does not match: got %q", decodedReq.Options[0].Value)
	}

	respPart := oscore.Partition(response, false)
	respCiphertext, _, respSeq, err := oscore.Encrypt(serverCtx, response, false, clientCtx.SenderID, reqSeq)
	if err != nil {
		return fmt.Errorf("server encrypt response: %w", err)
	}

	if err := clientCtx.CheckAndAcceptReplay(respSeq); err != nil {
		return fmt.Errorf("client replay check: %w", err)
	}
	decodedResp, err := oscore.Decrypt(clientCtx, respCiphertext, serverCtx.SenderID, respSeq, respPart.OuterOptions, respPart.ClassIBytes, false, clientCtx.SenderID, reqSeq)
	if err != nil {
		return fmt.Errorf("client decrypt response: %w", err)
	}
	if !bytes.Equal(decodedResp.Payload, response.Payload) {
		return fmt.Errorf("decrypted response does not match: got %q", decodedResp.Payload)
	}
	return nil
}
