// Command keygen prints a bcrypt hash of an OAuth client secret for OAUTH_CLIENT_SECRET_HASH.
//
// Usage:
//
//	go run ./cmd/keygen <client-secret>
//	go run ./cmd/keygen -cost 14 <client-secret>
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/lunchpaillola/docusign-voice/internal/security"
)

func main() {
	cost := flag.Int("cost", 12, "bcrypt cost (4-31)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: keygen [-cost N] <client-secret>")
		os.Exit(1)
	}
	secret := flag.Arg(0)
	if secret == "" {
		fmt.Fprintln(os.Stderr, "keygen: secret must not be empty")
		os.Exit(1)
	}

	hash, err := security.NewHasher(*cost).Hash([]byte(secret))
	if err != nil {
		fmt.Fprintln(os.Stderr, "keygen:", err)
		os.Exit(1)
	}

	fmt.Println("Client secret hash (set as OAUTH_CLIENT_SECRET_HASH):")
	fmt.Println(hash)
}
