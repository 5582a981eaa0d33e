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
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/sage-x-project/lake/cipherprovider"
	"github.com/sage-x-project/lake/config"
	"github.com/sage-x-project/lake/credential"
	"github.com/sage-x-project/lake/edhoc"
	"github.com/sage-x-project/lake/internal/demoidentity"
	"github.com/sage-x-project/lake/internal/logger"
	"github.com/sage-x-project/lake/oscore"
	"github.com/sage-x-project/lake/oscorebridge"
	"github.com/sage-x-project/lake/resumestore/jwtresume"
	"github.com/sage-x-project/lake/transport/websocket"
)

var serveFlags struct {
	configDir        string
	listen           string
	path             string
	suite            int
	method           int
	peerKidHex       string
	peerPublicKeyHex string
	replayWindow     int
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Listen for one EDHOC handshake and derive an OSCORE context",
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.configDir, "config-dir", "", "directory holding <environment>.yaml (LAKE_ENV selects the file); empty skips config loading")
	f.StringVar(&serveFlags.listen, "listen", ":8765", "address to listen on (overridden by config.Transport.Listen when set)")
	f.StringVar(&serveFlags.path, "path", "/edhoc", "HTTP path to upgrade to WebSocket")
	f.IntVar(&serveFlags.suite, "suite", 0, "EDHOC cipher suite label (0-6)")
	f.IntVar(&serveFlags.method, "method", 0, "EDHOC method (0: both signature)")
	f.StringVar(&serveFlags.peerKidHex, "peer-kid", "", "hex-encoded kid of the initiator's credential")
	f.StringVar(&serveFlags.peerPublicKeyHex, "peer-pk", "", "hex-encoded Ed25519 public key of the initiator")
	f.IntVar(&serveFlags.replayWindow, "replay-window", 32, "OSCORE replay window size in bits (overridden by config.Oscore.ReplayWindowSize when set)")
}

// loadedConfig is set by applyConfig when serveFlags.configDir names a
// config directory; nil otherwise, in which case the resume-store hook is
// skipped entirely.
var loadedConfig *config.Config

// applyConfig loads a config.Config from serveFlags.configDir, if set, and
// overlays its Transport/Oscore/Logging values onto the flag defaults -
// flags win only where the config left a field at its zero value.
func applyConfig() error {
	if serveFlags.configDir == "" {
		return nil
	}
	cfg, err := config.Load(config.LoaderOptions{ConfigDir: serveFlags.configDir})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Transport.Listen != "" {
		serveFlags.listen = cfg.Transport.Listen
	}
	if cfg.Oscore.ReplayWindowSize != 0 {
		serveFlags.replayWindow = cfg.Oscore.ReplayWindowSize
	}
	if cfg.Logging.Level != "" {
		if lvl, ok := logger.ParseLevel(cfg.Logging.Level); ok {
			logger.GetDefaultLogger().SetLevel(lvl)
		}
	}
	loadedConfig = cfg
	return nil
}

// maybeSaveResumable persists secCtx behind a resume ticket when the
// loaded config turns the hook on, logging (never failing the handshake
// on) a storage error - resumption is a convenience, not a requirement.
func maybeSaveResumable(ctx context.Context, sessionID string, secCtx *oscore.SecurityContext) {
	if loadedConfig == nil || !loadedConfig.Resume.Enabled {
		return
	}
	signKey := []byte(os.Getenv(loadedConfig.Resume.TicketSigningKeyEnv))
	if len(signKey) == 0 {
		logger.Warn("resume store enabled but signing key env var is unset or empty", logger.String("env", loadedConfig.Resume.TicketSigningKeyEnv))
		return
	}
	pool, err := pgxpool.New(ctx, loadedConfig.Resume.PostgresDSN)
	if err != nil {
		logger.Warn("resume store: dial postgres", logger.Error(err))
		return
	}
	defer pool.Close()

	store := jwtresume.New(pool, signKey, loadedConfig.Resume.TicketIssuer)
	ticket, err := store.Save(ctx, sessionID, secCtx, time.Now().Add(loadedConfig.Resume.TicketTTL))
	if err != nil {
		logger.Warn("resume store: save session", logger.Error(err))
		return
	}
	fmt.Printf("resume ticket: %s\n", ticket)
}

// ownConnID is this demo's fixed C_R; a real deployment would pick one
// per session.
var ownConnID = edhoc.ConnID{IsInt: true, Int: 1}

func runServe(cmd *cobra.Command, args []string) error {
	if err := applyConfig(); err != nil {
		return err
	}
	if serveFlags.peerKidHex == "" || serveFlags.peerPublicKeyHex == "" {
		return fmt.Errorf("--peer-kid and --peer-pk are required (from edhoc-client's printed identity)")
	}
	peerKid, err := hex.DecodeString(serveFlags.peerKidHex)
	if err != nil {
		return fmt.Errorf("decode --peer-kid: %w", err)
	}
	peerPK, err := hex.DecodeString(serveFlags.peerPublicKeyHex)
	if err != nil {
		return fmt.Errorf("decode --peer-pk: %w", err)
	}

	p := cipherprovider.New()
	suite, err := edhoc.ResolveSuite(serveFlags.suite)
	if err != nil {
		return err
	}
	_, responderStaticDH, err := edhoc.MethodFlags(serveFlags.method)
	if err != nil {
		return err
	}

	own, err := demoidentity.Generate(p, suite, responderStaticDH, []byte{0x02})
	if err != nil {
		return err
	}
	fmt.Printf("own kid=%x pk=%x\n", own.Known.Kid, own.Known.PK)

	resolver := credential.NewResolver(
		[]credential.Known{{Kid: peerKid, Cred: peerPK, PK: peerPK}},
		nil, nil,
	)

	srv := websocket.NewServer(func(ctx context.Context, t *websocket.Transport) {
		if err := handleSession(ctx, p, suite, own.Identity, resolver, t); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "session failed: %v\n", err)
		}
	})

	mux := http.NewServeMux()
	mux.Handle(serveFlags.path, srv.Handler())

	fmt.Printf("listening on %s%s\n", serveFlags.listen, serveFlags.path)
	return http.ListenAndServe(serveFlags.listen, mux)
}

func handleSession(ctx context.Context, p cipherprovider.Provider, suite edhoc.SuiteParams, own edhoc.Identity, resolver edhoc.CredentialResolver, t *websocket.Transport) error {
	rs := edhoc.NewResponder(p, t, resolver, edhoc.SuitesSupported{serveFlags.suite}, own, ownConnID, nil)

	if err := rs.RecvMsg1(ctx); err != nil {
		return fmt.Errorf("recv msg1: %w", err)
	}
	if err := rs.SendMsg2(ctx); err != nil {
		return fmt.Errorf("send msg2: %w", err)
	}
	if err := rs.RecvMsg3(ctx); err != nil {
		return fmt.Errorf("recv msg3: %w", err)
	}
	defer rs.Zeroize()

	fmt.Printf("handshake complete: PRK_out=%x\n", rs.PRKOut())

	secCtx, err := oscorebridge.DeriveContext(p, suite, rs.PRKOut(), ownConnID, rs.PeerConnID(), nil, serveFlags.replayWindow)
	if err != nil {
		return fmt.Errorf("derive oscore context: %w", err)
	}
	defer secCtx.Zeroize()
	fmt.Println("OSCORE security context established")

	maybeSaveResumable(ctx, hex.EncodeToString(secCtx.RecipientID), secCtx)
	return nil
}
