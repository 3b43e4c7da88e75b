package invoice

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// INVOICE NUMBERING - INV-{year}{month}-{4-digit sequence}
// =============================================================================

// FormatNumber renders the human-readable invoice number. The sequence
// resets every calendar month.
func FormatNumber(year int, month time.Month, seq int) string {
	return fmt.Sprintf("INV-%04d%02d-%04d", year, int(month), seq)
}

// ParseSequence extracts the sequence from an invoice number. Returns 0 for
// anything that doesn't look like one; the next sequence derivation treats
// that as "no prior invoice".
func ParseSequence(number string) int {
	parts := strings.Split(number, "-")
	if len(parts) != 3 {
		return 0
	}
	seq, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0
	}
	return seq
}
