package receipt

import (
	"strings"
	"time"
)

// DefaultMaxItemPrice is the upper bound (exclusive) for a plausible
// single-item price in yen. Trailing numbers at or above it are treated
// as barcodes, phone numbers or totals rather than item prices.
const DefaultMaxItemPrice = 10000

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Parser turns raw OCR text into a ParsedReceipt. All extraction is
// best-effort: a Parser never fails, it degrades to sentinels and
// defaults instead.
type Parser struct {
	timeSource   TimeSource
	maxItemPrice int
}

// NewParser creates a new Parser with the system clock and the default
// price ceiling
func NewParser() *Parser {
	return NewParserWithDeps(&defaultTimeSource{}, DefaultMaxItemPrice)
}

// NewParserWithDeps creates a new Parser with custom dependencies for
// testing or a configured price ceiling
func NewParserWithDeps(timeSource TimeSource, maxItemPrice int) *Parser {
	if timeSource == nil {
		timeSource = &defaultTimeSource{}
	}
	if maxItemPrice <= 0 {
		maxItemPrice = DefaultMaxItemPrice
	}
	return &Parser{
		timeSource:   timeSource,
		maxItemPrice: maxItemPrice,
	}
}

// Parse extracts a structured receipt from raw OCR text
func (p *Parser) Parse(text string) *ParsedReceipt {
	lines := normalizeLines(text)

	items := p.extractItems(lines)

	total := extractTotal(lines)
	if total == 0 {
		for _, item := range items {
			total += item.Price * item.Quantity
		}
	}

	return &ParsedReceipt{
		StoreName:   extractStore(lines),
		Items:       items,
		TotalAmount: total,
		Date:        p.extractDate(lines),
	}
}

// normalizeLines splits raw text into trimmed, non-empty lines,
// preserving order
func normalizeLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, r := range raw {
		line := strings.TrimSpace(r)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
