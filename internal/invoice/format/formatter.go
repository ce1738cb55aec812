package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	seqPadRe   = regexp.MustCompile(`\{SEQ(\d+)\}`)
	yearSeqRe  = regexp.MustCompile(`^(\d{4})-(\d{3,})$`)
	unresolved = regexp.MustCompile(`\{[A-Z0-9]+\}`)
)

// DefaultInvoiceNumberTemplate yields year-scoped numbers like "2026-007".
const DefaultInvoiceNumberTemplate = "{YYYY}-{SEQ3}"

// FormatInvoiceNumber formats a human-readable invoice number from a
// template, the issue date, and a 1-based sequence within the period.
//
// This function is PURE:
// - No side effects
// - No I/O
// - Fully deterministic
//
// {SEQn} pads to at least n digits; larger sequences are printed in full.
func FormatInvoiceNumber(template string, issuedAt time.Time, seq int64) (string, error) {
	if template == "" {
		return "", fmt.Errorf("invoice number template is empty")
	}
	if seq <= 0 {
		return "", fmt.Errorf("invalid invoice sequence: %d", seq)
	}

	out := template
	out = strings.ReplaceAll(out, "{YYYY}", issuedAt.Format("2006"))
	out = strings.ReplaceAll(out, "{YY}", issuedAt.Format("06"))
	out = strings.ReplaceAll(out, "{MM}", issuedAt.Format("01"))
	out = strings.ReplaceAll(out, "{SEQ}", strconv.FormatInt(seq, 10))

	out = seqPadRe.ReplaceAllStringFunc(out, func(m string) string {
		match := seqPadRe.FindStringSubmatch(m)
		width, err := strconv.Atoi(match[1])
		if err != nil || width <= 0 {
			return m
		}
		return fmt.Sprintf("%0*d", width, seq)
	})

	if unresolved.MatchString(out) {
		return "", fmt.Errorf("unresolved token in invoice format: %s", out)
	}
	return out, nil
}

// ParseYearSequence splits a "YYYY-NNN" number. ok is false for numbers in
// any other shape (imported or hand-typed ones).
func ParseYearSequence(number string) (year int, seq int64, ok bool) {
	match := yearSeqRe.FindStringSubmatch(strings.TrimSpace(number))
	if match == nil {
		return 0, 0, false
	}
	year, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, 0, false
	}
	seq, err = strconv.ParseInt(match[2], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return year, seq, true
}
