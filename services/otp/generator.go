package otp

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/binary"
	"fmt"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

type Generator interface {
	Generate() (string, error)
}

// HOTPGenerator derives each code with RFC 4226 truncation from a fresh random key and counter,
// so codes are uniformly distributed zero-padded decimal strings.
type HOTPGenerator struct {
	Digits int
}

func (g HOTPGenerator) Generate() (string, error) {
	secret := make([]byte, 20)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("failed to read random key: %w", err)
	}

	var counterBytes [8]byte
	if _, err := rand.Read(counterBytes[:]); err != nil {
		return "", fmt.Errorf("failed to read random counter: %w", err)
	}

	digits := g.Digits
	if digits <= 0 {
		digits = 6
	}

	code, err := hotp.GenerateCodeCustom(
		base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(secret),
		binary.BigEndian.Uint64(counterBytes[:]),
		hotp.ValidateOpts{Digits: otp.Digits(digits), Algorithm: otp.AlgorithmSHA1},
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return code, nil
}
