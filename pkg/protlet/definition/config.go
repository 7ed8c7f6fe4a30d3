package definition

import (
	"fmt"
	"net"
	"strconv"

	"github.com/go-protlet/protlet/pkg/protlet/types"
	"gopkg.in/alecthomas/kingpin.v2"
)

// ProtocolVersion is the version string exchanged during the transport
// handshake and compared with github.com/hashicorp/go-version. Bumping the
// minor or patch component stays wire-compatible; bumping major does not.
const ProtocolVersion = "1.0.0"

// PeerAddress pairs a peer's Identity with the TCP address it listens on.
type PeerAddress struct {
	Identity types.Identity
	Addr     *net.TCPAddr
}

// RunConfig is what a host assembles before calling core.Run: the local
// identity, the full peer table (including an entry for self), and the
// protocol version to advertise.
type RunConfig struct {
	Self    types.Identity
	Peers   []PeerAddress
	Version string
}

// ParseCLI parses the example CLI surface described in spec §6:
//
//	<self-identity> (<peer-identity> <ipv4> <port>)*
//
// Exit codes are the caller's responsibility; ParseCLI reports failures via
// distinct error types so main() can map them to the documented exit
// codes (1 = usage error, 2 = address parse failure).
func ParseCLI(args []string) (*RunConfig, error) {
	app := kingpin.New("protlet", "run a Protlet-based MPC protocol instance")
	selfArg := app.Arg("self", "this process's identity").Required().String()
	restArg := app.Arg("peer", "peer-identity ipv4 port triples").Strings()

	if _, err := app.Parse(args); err != nil {
		return nil, &UsageError{Err: err}
	}

	if len(*restArg)%3 != 0 {
		return nil, &UsageError{Err: fmt.Errorf("peer arguments must come in (identity, ipv4, port) triples")}
	}

	cfg := &RunConfig{
		Self:    types.NewIdentity(*selfArg),
		Version: ProtocolVersion,
	}

	for i := 0; i < len(*restArg); i += 3 {
		name := (*restArg)[i]
		ip := (*restArg)[i+1]
		portStr := (*restArg)[i+2]

		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, &AddressError{Err: fmt.Errorf("invalid port %q: %w", portStr, err)}
		}
		parsedIP := net.ParseIP(ip)
		if parsedIP == nil {
			return nil, &AddressError{Err: fmt.Errorf("invalid ipv4 address %q", ip)}
		}
		cfg.Peers = append(cfg.Peers, PeerAddress{
			Identity: types.NewIdentity(name),
			Addr:     &net.TCPAddr{IP: parsedIP, Port: port},
		})
	}

	return cfg, nil
}

// UsageError reports a malformed command line.
type UsageError struct{ Err error }

func (e *UsageError) Error() string { return fmt.Sprintf("usage: %v", e.Err) }
func (e *UsageError) Unwrap() error { return e.Err }

// AddressError reports a peer address that failed to parse.
type AddressError struct{ Err error }

func (e *AddressError) Error() string { return fmt.Sprintf("address: %v", e.Err) }
func (e *AddressError) Unwrap() error { return e.Err }
