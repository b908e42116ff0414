package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"xdao.co/custodian/keys"
	"xdao.co/custodian/model"
	"xdao.co/custodian/rpc"
	"xdao.co/custodian/storage"

	_ "xdao.co/custodian/storage/memory"
	_ "xdao.co/custodian/storage/redis"
	_ "xdao.co/custodian/storage/sqlite"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, in io.Reader, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "serve":
		return cmdServe(args[1:], out, errOut)
	case "backends":
		for _, name := range storage.Names() {
			fmt.Fprintln(out, name)
		}
		return 0
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "sign":
		return cmdSign(args[1:], in, out, errOut)
	case "submit":
		return cmdSubmit(args[1:], in, out, errOut)
	case "events":
		return cmdEvents(args[1:], out, errOut)
	case "export":
		return cmdExport(args[1:], out, errOut)
	case "import":
		return cmdImport(args[1:], in, out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "custodiand: custodial ledger daemon and tools")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  custodiand serve [--config <file>] [--listen <addr>]")
	fmt.Fprintln(w, "  custodiand backends")
	fmt.Fprintln(w, "  custodiand key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  custodiand key derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  custodiand key list")
	fmt.Fprintln(w, "  custodiand key show --name <name> [--role <role>]")
	fmt.Fprintln(w, "  custodiand sign (--seed-hex <64hex> | --signer <name> [--signer-role <role>] | --key-file <path>) [--as signer|caller] [--request <file>|-]")
	fmt.Fprintln(w, "  custodiand submit --addr <host:port> [--request <file>|-]")
	fmt.Fprintln(w, "  custodiand events --addr <host:port> [--after <seq>] [--limit <n>]")
	fmt.Fprintln(w, "  custodiand export --addr <host:port> --archive-dir <dir> [--out <file>|-] [--after <seq>] [--limit <n>]")
	fmt.Fprintln(w, "  custodiand import --archive-dir <dir> [--in <file>|-]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - requests are model.SubmitRequest JSON; sign fills in signature and endorsements,")
	fmt.Fprintln(w, "    sign --as caller sets caller and callerEndorsement; submit needs both")
	fmt.Fprintln(w, "  - the keyring lives under ~/.xdao/custodian/keys unless --keyring is given")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}
	fs := flag.NewFlagSet("key "+args[0], flag.ContinueOnError)
	fs.SetOutput(errOut)
	dir := fs.String("keyring", "", "Keyring directory")
	name := fs.String("name", "", "Key name")
	from := fs.String("from", "", "Root key name to derive from")
	role := fs.String("role", "", "Role")
	seedHex := fs.String("seed-hex", "", "32-byte ed25519 seed as hex (random when empty)")
	force := fs.Bool("force", false, "Overwrite an existing key")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	kr, err := keys.Open(*dir)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	switch args[0] {
	case "init":
		seed, err := seedOrRandom(*seedHex)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 2
		}
		s, path, err := kr.Init(*name, seed, *force)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		fmt.Fprintf(out, "%s\t%s\n", s.Identity(), path)
	case "derive":
		s, path, err := kr.Derive(*from, *role, *force)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		fmt.Fprintf(out, "%s\t%s\n", s.Identity(), path)
	case "show":
		s, err := kr.Signer(*name, *role)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		fmt.Fprintln(out, s.Identity())
	case "list":
		entries, err := kr.List()
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		for _, e := range entries {
			fmt.Fprintf(out, "%s\t%s\n", e.Name, strings.Join(e.Roles, ","))
		}
	default:
		fmt.Fprintf(errOut, "unknown key command: %s\n", args[0])
		return 2
	}
	return 0
}

func seedOrRandom(seedHex string) ([]byte, error) {
	if seedHex != "" {
		return keys.ParseSeedHex(seedHex)
	}
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	return seed, nil
}

func readRequest(path string, in io.Reader) (model.SubmitRequest, error) {
	var req model.SubmitRequest
	var r io.Reader = in
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return req, err
		}
		defer f.Close()
		r = f
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

func writeJSON(w io.Writer, v any) int {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return 1
	}
	return 0
}

func cmdSign(args []string, in io.Reader, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	fs.SetOutput(errOut)
	dir := fs.String("keyring", "", "Keyring directory")
	seedHex := fs.String("seed-hex", "", "32-byte ed25519 seed as hex")
	signer := fs.String("signer", "", "Keyring key name")
	signerRole := fs.String("signer-role", "", "Keyring role")
	keyFile := fs.String("key-file", "", "Seed file")
	reqPath := fs.String("request", "-", "Request JSON file, or - for stdin")
	as := fs.String("as", "signer", "Sign as the ledger signer (endorsement) or as the caller")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *as != "signer" && *as != "caller" {
		fmt.Fprintf(errOut, "--as must be signer or caller, got %q\n", *as)
		return 2
	}
	kr, err := keys.Open(*dir)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	s, err := kr.Resolve(*seedHex, *keyFile, *signer, *signerRole)
	if err != nil {
		fmt.Fprintln(errOut, err)
		if errors.Is(err, keys.ErrNoSigner) {
			return 2
		}
		return 1
	}
	req, err := readRequest(*reqPath, in)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	sign := model.Endorse
	if *as == "caller" {
		sign = model.Authenticate
	}
	signed, err := sign(req, s)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	return writeJSON(out, signed)
}

func dialFlags(fs *flag.FlagSet) (*string, *time.Duration) {
	addr := fs.String("addr", "127.0.0.1:7700", "custodiand gRPC address")
	timeout := fs.Duration("timeout", 10*time.Second, "Per-RPC timeout")
	return addr, timeout
}

func cmdSubmit(args []string, in io.Reader, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	fs.SetOutput(errOut)
	addr, timeout := dialFlags(fs)
	reqPath := fs.String("request", "-", "Signed request JSON file, or - for stdin")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	req, err := readRequest(*reqPath, in)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	client, err := rpc.Dial(*addr, rpc.DialOptions{Timeout: *timeout})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer client.Close()

	ev, err := client.Submit(context.Background(), req)
	if err != nil {
		writeJSON(errOut, model.AsCodedError(err))
		return 1
	}
	return writeJSON(out, ev)
}

func cmdEvents(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	fs.SetOutput(errOut)
	addr, timeout := dialFlags(fs)
	after := fs.Uint64("after", 0, "Only events with a larger sequence number")
	limit := fs.Int("limit", 100, "Maximum events to return")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	client, err := rpc.Dial(*addr, rpc.DialOptions{Timeout: *timeout})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer client.Close()

	evs, err := client.Events(context.Background(), *after, *limit)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	return writeJSON(out, evs)
}
