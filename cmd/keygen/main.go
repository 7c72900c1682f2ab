// keygen prepares credentials for config.yaml: it hashes API keys for the
// apikey auth mode and mints tokens for the jwt auth mode.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/tjfontaine/pipeline-library/internal/adapters/auth/apikey"
	"github.com/tjfontaine/pipeline-library/internal/adapters/auth/jwtauth"
)

const usage = `Usage:
  keygen hash <api-key>
  keygen jwt --secret <secret> --user <name> [--roles CREATOR,MANAGER] [--issuer iss] [--ttl 24h]
`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("missing command")
	}

	switch args[0] {
	case "hash":
		return runHash(args[1:], stdout, stderr)
	case "jwt":
		return runJWT(args[1:], stdout, stderr)
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func runHash(args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 || args[0] == "" {
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("hash takes exactly one API key")
	}

	keyHash := apikey.HashAPIKey(args[0])

	fmt.Fprintf(stdout, "SHA-256 Hash: %s\n", keyHash)
	fmt.Fprintln(stdout, "\nAdd this to your config.yaml:")
	fmt.Fprintln(stdout, "  auth:")
	fmt.Fprintln(stdout, "    mode: apikey")
	fmt.Fprintln(stdout, "    users:")
	fmt.Fprintln(stdout, "      - name: \"<user>\"")
	fmt.Fprintf(stdout, "        key_hash: \"%s\"\n", keyHash)
	fmt.Fprintln(stdout, "        roles: [CREATOR]")
	return nil
}

func runJWT(args []string, stdout, stderr io.Writer) error {
	var (
		secret, user, issuer string
		roles                []string
		ttl                  time.Duration
	)

	flagSet := pflag.NewFlagSet("keygen jwt", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&secret, "secret", os.Getenv("PIPELIB_AUTH__JWT__SECRET"), "HS256 signing secret (auth.jwt.secret)")
	flagSet.StringVar(&user, "user", "", "user name carried in the subject claim")
	flagSet.StringSliceVar(&roles, "roles", nil, "comma-separated roles: GUEST, CREATOR, MANAGER, ADMIN")
	flagSet.StringVar(&issuer, "issuer", "", "issuer claim (auth.jwt.issuer)")
	flagSet.DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime; 0 for no expiry")

	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if user == "" {
		return fmt.Errorf("--user is required")
	}

	token, err := jwtauth.GenerateToken(secret, issuer, user, roles, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, token)
	return nil
}
