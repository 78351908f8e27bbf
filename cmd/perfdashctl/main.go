// Command perfdashctl prepares secrets for the dashboard service:
//
//	perfdashctl hash-password <password>   bcrypt hash for OPERATOR_PASSWORD_HASH
//	perfdashctl seal <value>               enc: value for ODOO_API_KEY (needs DATA_ENCRYPTION_KEY)
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"perfdash/internal/auth"
	"perfdash/internal/platform/crypto"
)

func main() {
	_ = godotenv.Load()
	if err := run(os.Args[1:], os.Getenv("DATA_ENCRYPTION_KEY"), os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "perfdashctl:", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("usage: perfdashctl hash-password|seal <value>")

func run(args []string, encryptionKey string, out io.Writer) error {
	fs := flag.NewFlagSet("perfdashctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 || fs.Arg(1) == "" {
		return errUsage
	}

	switch fs.Arg(0) {
	case "hash-password":
		hash, err := auth.HashPassword(fs.Arg(1))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, hash)
		return err
	case "seal":
		sealer, err := crypto.New(encryptionKey)
		if err != nil {
			return err
		}
		sealed, err := sealer.Seal(fs.Arg(1))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, sealed)
		return err
	default:
		return errUsage
	}
}
