//go:build ignore

// Authstring computes the client side of the obsws authentication handshake.
//
// Given the password, the salt from the Hello greeting, and the per-session
// challenge, it prints the derived secret and the authentication string the
// client must place in its Identify payload. Useful when testing a client
// implementation by hand against a running server.
//
// Usage:
//
//	go run tools/authstring.go <password> <salt> <challenge>
package main

import (
	"fmt"
	"os"

	"github.com/muurk/obsws/internal/auth"
)

func main() {
	if len(os.Args) != 4 {
		fmt.Fprintf(os.Stderr, "Usage: go run tools/authstring.go <password> <salt> <challenge>\n\n")
		fmt.Fprintf(os.Stderr, "The salt and challenge come from the server's Hello greeting.\n")
		os.Exit(1)
	}

	password := os.Args[1]
	salt := os.Args[2]
	challenge := os.Args[3]

	secret := auth.GenerateSecret(password, salt)
	response := auth.AuthenticationString(secret, challenge)

	fmt.Println("Derivation:")
	fmt.Printf("  secret          = base64(SHA256(password ++ salt))\n")
	fmt.Printf("  authentication  = base64(SHA256(secret ++ challenge))\n")
	fmt.Println()
	fmt.Printf("secret:         %s\n", secret)
	fmt.Printf("authentication: %s\n", response)
	fmt.Println()
	fmt.Println("Place the authentication value in the Identify payload:")
	fmt.Printf("  {\"messageType\":\"Identify\",\"rpcVersion\":1,\"authentication\":\"%s\"}\n", response)
}
