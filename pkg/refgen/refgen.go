package refgen

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// Reference codes are printed on receipts and read over the phone, so the
// alphabet excludes lookalike characters (0/O, 1/I/L).
const codeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const (
	codeRandomLen      = 8
	uniqueRefRandomLen = 16
)

// Code generates a short caller-facing reference such as "DEP-7XK2M9QA".
// The prefix is uppercased and trimmed; an empty prefix yields "TXN".
func Code(prefix string) (string, error) {
	p := strings.ToUpper(strings.TrimSpace(prefix))
	if p == "" {
		p = "TXN"
	}
	token, err := randomToken(codeRandomLen)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", p, token), nil
}

// UniqueRef generates a globally unique reconciliation reference. The
// timestamp component keeps values roughly sortable in bank exports, the
// random tail makes collisions implausible. Generation never touches the
// database so callers can compute the value before the row exists.
func UniqueRef() (string, error) {
	token, err := randomToken(uniqueRefRandomLen)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s", time.Now().UTC().Format("20060102150405"), token), nil
}

func randomToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}
