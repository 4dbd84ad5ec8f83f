// Package main hashes an admin password into an Argon2id PHC string and
// prints the SQL statement that seeds the users table with it.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atinyakov/newsletter/internal/auth"
	"github.com/atinyakov/newsletter/internal/secret"
	"github.com/google/uuid"
)

func main() {
	username := flag.String("user", "admin", "username to seed")
	flag.Parse()

	if err := run(os.Stdin, os.Stdout, *username); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run reads the password from the first line of in and writes the INSERT
// statement to out.
func run(in io.Reader, out io.Writer, username string) error {
	if strings.TrimSpace(username) == "" {
		return errors.New("username must not be empty")
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read password: %w", err)
	}
	password := secret.New(strings.TrimRight(line, "\r\n"))
	defer password.Wipe()
	if password.IsEmpty() {
		return errors.New("password must not be empty")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	_, err = fmt.Fprintf(out,
		"INSERT INTO users (id, username, password_hash) VALUES ('%s', '%s', '%s');\n",
		uuid.New(), strings.ReplaceAll(username, "'", "''"), hash.ExposeString())
	return err
}
