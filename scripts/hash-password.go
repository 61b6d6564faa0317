package main

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

// Prints an ADMIN_USERS entry for the access code server.
func main() {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "Usage: go run scripts/hash-password.go <username> <password>\n")
		os.Exit(1)
	}

	username, password := os.Args[1], os.Args[2]
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s:%s\n", username, hash)
}
