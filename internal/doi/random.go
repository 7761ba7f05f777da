// Package doi provides DOI generators: a template-based random generator
// for dry runs and a sqlite-backed pool of pre-registered DOIs for real
// depositions. Both satisfy article.Generator.
package doi

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"
)

// DefaultTemplate produces DOIs like "10.15252/rc.2022123456". A template
// must contain the $year and $random substitution variables, replaced with
// the current year and a string of random digits.
const DefaultTemplate = "10.15252/rc.$year$random"

const randomDigits = 6

// Random generates random DOIs from a template. It never persists what it
// hands out, so two calls can collide; it is meant for dry runs where the
// resulting deposition file is inspected rather than sent.
type Random struct {
	template string
	now      func() time.Time
}

// NewRandom returns a Random generator using the given template, or
// DefaultTemplate when empty.
func NewRandom(template string) *Random {
	if template == "" {
		template = DefaultTemplate
	}
	return &Random{template: template, now: time.Now}
}

// Reserve returns a fresh random DOI. The resource descriptor is ignored:
// random DOIs are not tracked.
func (r *Random) Reserve(_ string) (string, error) {
	random, err := randomDigitString(randomDigits)
	if err != nil {
		return "", fmt.Errorf("generating random DOI: %w", err)
	}
	year := strconv.Itoa(r.now().Year())
	doi := os.Expand(r.template, func(name string) string {
		switch name {
		case "year":
			return year
		case "random":
			return random
		}
		return ""
	})
	return doi, nil
}

func randomDigitString(n int) (string, error) {
	digits := make([]byte, n)
	for i := range digits {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + d.Int64())
	}
	return string(digits), nil
}
