// Command seed-admin prints the INSERT statement for a staff account with a
// freshly hashed password. Pipe the output into psql against the console
// database.
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	if len(os.Args) < 4 {
		log.Fatal("Usage: seed-admin <email> <full name> <password> [role]")
	}

	email, fullName, password := os.Args[1], os.Args[2], os.Args[3]
	role := "staff"
	if len(os.Args) > 4 {
		role = os.Args[4]
	}

	// bcrypt.DefaultCost (10) is a good balance of security and speed.
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	fmt.Printf(
		"INSERT INTO users (email, full_name, role, password_hash) VALUES ('%s', '%s', '%s', '%s');\n",
		sqlEscape(email), sqlEscape(fullName), sqlEscape(role), string(hashedPassword),
	)
}

func sqlEscape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
