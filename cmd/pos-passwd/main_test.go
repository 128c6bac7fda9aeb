package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRun_FromFlag(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"-password=barista"}, strings.NewReader(""), &out))

	hash := strings.TrimSpace(out.String())
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("barista")))
}

func TestRun_FromStdin(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(nil, strings.NewReader("flat white\r\nignored\n"), &out))

	hash := strings.TrimSpace(out.String())
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("flat white")))
}

func TestRun_Errors(t *testing.T) {
	var out bytes.Buffer
	require.ErrorContains(t, run(nil, strings.NewReader("\n"), &out), "password is empty")
	require.Error(t, run([]string{"-unknown"}, strings.NewReader(""), &out))
	require.Empty(t, out.String())
}
