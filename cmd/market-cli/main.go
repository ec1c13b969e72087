package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

const (
	rpcURLEnv       = "MARKET_RPC_URL"
	rpcTokenEnv     = "MARKET_RPC_TOKEN"
	defaultEndpoint = "http://localhost:8545"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	client := newClient(defaultRPCEndpoint(), os.Getenv(rpcTokenEnv))
	args, err := applyGlobalFlags(client, args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if len(args) == 0 {
		printUsage(stderr)
		return 1
	}

	switch args[0] {
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	case "generate-key":
		return runGenerateKey(args[1:], stdout, stderr)
	case "address":
		return runAddress(args[1:], stdout, stderr)
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return 1
	}
	return cmd.run(client, args[1:], stdout, stderr)
}

func defaultRPCEndpoint() string {
	if value := strings.TrimSpace(os.Getenv(rpcURLEnv)); value != "" {
		return value
	}
	return defaultEndpoint
}

// applyGlobalFlags consumes leading --rpc and --token flags.
func applyGlobalFlags(c *client, args []string) ([]string, error) {
	for len(args) > 0 {
		arg := args[0]
		var name, value string
		switch {
		case arg == "--rpc" || arg == "--token":
			if len(args) < 2 {
				return nil, fmt.Errorf("%s requires a value", arg)
			}
			name, value = arg, args[1]
			args = args[2:]
		case strings.HasPrefix(arg, "--rpc="):
			name, value = "--rpc", strings.TrimPrefix(arg, "--rpc=")
			args = args[1:]
		case strings.HasPrefix(arg, "--token="):
			name, value = "--token", strings.TrimPrefix(arg, "--token=")
			args = args[1:]
		default:
			return args, nil
		}
		value = strings.TrimSpace(value)
		if value == "" {
			return nil, fmt.Errorf("%s requires a value", name)
		}
		if name == "--rpc" {
			c.endpoint = value
		} else {
			c.token = value
		}
	}
	return args, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: market-cli [--rpc URL] [--token TOKEN] <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Key commands:")
	fmt.Fprintln(w, "  generate-key --out <keystore>     create an encrypted key")
	fmt.Fprintln(w, "  address --keystore <keystore>     print the address of a key")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "RPC commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-22s %s\n", name, commands[name].summary)
	}
}
