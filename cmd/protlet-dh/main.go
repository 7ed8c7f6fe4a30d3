// Command protlet-dh runs the Diffie-Hellman key-agreement Protlet
// (spec §8 scenario 1) between two processes connected over real TCP
// sockets. Every process in the run is started with the SAME peer table,
// including its own identity and the address it should listen on:
//
//	protlet-dh <self-identity> (<peer-identity> <ipv4> <port>)*
//
// <self-identity> selects which of the listed peers is "this" process;
// its own entry in the peer table is where it will listen. It prints the
// derived shared secret on success.
package main

import (
	"fmt"
	"os"

	"github.com/go-protlet/protlet/pkg/protlet/compute"
	"github.com/go-protlet/protlet/pkg/protlet/core"
	"github.com/go-protlet/protlet/pkg/protlet/definition"
	"github.com/go-protlet/protlet/pkg/protlet/transport"
	"github.com/go-protlet/protlet/pkg/protlet/types"
)

const (
	exitOK            = 0
	exitUsageError    = 1
	exitAddressError  = 2
	exitProtocolError = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := definition.ParseCLI(args)
	if err != nil {
		switch err.(type) {
		case *definition.UsageError:
			fmt.Fprintln(os.Stderr, err)
			return exitUsageError
		case *definition.AddressError:
			fmt.Fprintln(os.Stderr, err)
			return exitAddressError
		default:
			fmt.Fprintln(os.Stderr, err)
			return exitProtocolError
		}
	}

	log := definition.NewDefaultLogger()

	identities := make([]types.Identity, 0, len(cfg.Peers)+1)
	identities = append(identities, cfg.Self)
	for _, p := range cfg.Peers {
		identities = append(identities, p.Identity)
	}
	peers := types.NewPeerSet(identities...)

	allAddrs := append([]definition.PeerAddress{}, cfg.Peers...)
	tr := transport.NewTransport(cfg.Self, allAddrs, cfg.Version, log)
	if err := tr.Listen(); err != nil {
		log.Errorf("listen failed: %v", err)
		return exitProtocolError
	}
	tr.Connect()
	defer tr.Close()

	dh := compute.NewDiffieHellman()
	ok := core.Run(cfg.Self, peers, dh, tr, log)
	if !ok {
		log.Errorf("run aborted")
		return exitProtocolError
	}
	if !dh.Result.Verified || dh.Result.Value == nil {
		log.Errorf("run completed without a verified shared secret")
		return exitProtocolError
	}

	fmt.Printf("shared secret: %s\n", dh.Result.Value.String())
	return exitOK
}
