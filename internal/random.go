package internal

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

const (
	otpCodeMin = 100000
	otpCodeMax = 999999
)

func NewOTPCode() (string, error) {
	span := big.NewInt(otpCodeMax - otpCodeMin + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+otpCodeMin, 10), nil
}
