// Command pos-passwd печатает bcrypt-хэш пароля для CAFE_ADMIN_PASSWORD_HASH.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vladislavdragonenkov/cafepos/internal/service/auth"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "pos-passwd: %v\n", err)
		os.Exit(1)
	}
}

// run читает пароль из -password либо из первой строки stdin.
func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("pos-passwd", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	password := fs.String("password", "", "plain password; read from stdin when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}

	plain := *password
	if plain == "" {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read password: %w", err)
		}
		plain = strings.TrimRight(line, "\r\n")
	}

	hash, err := auth.HashPassword(plain)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, hash)
	return err
}
