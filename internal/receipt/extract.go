package receipt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// storePatterns is the ordered list of known store chains. The first of
// the first 5 lines matching any pattern becomes the store name, verbatim.
// Each pattern accepts the Japanese chain name and its romanized form.
var storePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)セブン[‐-]?イレブン|7[‐-]?eleven`),
	regexp.MustCompile(`(?i)ファミリーマート|ファミマ|family\s?mart`),
	regexp.MustCompile(`(?i)ローソン|lawson`),
	regexp.MustCompile(`(?i)イオン|aeon`),
	regexp.MustCompile(`(?i)イトーヨーカドー|ito[‐-]?yokado`),
	regexp.MustCompile(`(?i)マルエツ|maruetsu`),
	regexp.MustCompile(`(?i)ライフ|life`),
	regexp.MustCompile(`(?i)サミット|summit`),
}

var (
	// pricePattern matches a trailing price token: optional ¥ marker,
	// comma-grouped or plain digits, optional 円 suffix, end-anchored.
	pricePattern = regexp.MustCompile(`(?:¥\s*)?(\d{1,3}(?:,\d{3})*|\d+)\s*円?$`)

	// quantityPattern matches a multiplier marker such as ×3.
	quantityPattern = regexp.MustCompile(`×(\d+)`)

	// datePattern accepts year/month/day separated by /, - or the
	// Japanese unit markers 年 and 月.
	datePattern = regexp.MustCompile(`(\d{4})[/\-年](\d{1,2})[/\-月](\d{1,2})`)
)

// totalPatterns is the ordered list of keyword-anchored total patterns.
// Declaration order is the tie-break: 合計/total beats 小計/subtotal
// beats 総額/grand total when several keywords appear.
var totalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:合計|total)[：:\s]*¥?\s*(\d{1,3}(?:,\d{3})*|\d+)`),
	regexp.MustCompile(`(?i)(?:小計|subtotal)[：:\s]*¥?\s*(\d{1,3}(?:,\d{3})*|\d+)`),
	regexp.MustCompile(`(?i)(?:総額|grand\s*total)[：:\s]*¥?\s*(\d{1,3}(?:,\d{3})*|\d+)`),
}

// extractStore searches the first 5 lines for a known store pattern and
// returns the matched line verbatim, or the UnknownStore sentinel
func extractStore(lines []string) string {
	head := lines
	if len(head) > 5 {
		head = head[:5]
	}
	for _, line := range head {
		for _, pattern := range storePatterns {
			if pattern.MatchString(line) {
				return line
			}
		}
	}
	return UnknownStore
}

// extractItems yields one candidate item per line carrying a trailing
// price token. Heuristics are line-local and never backtrack: once a
// price and quantity parse is chosen for a line it is final.
func (p *Parser) extractItems(lines []string) []Item {
	items := make([]Item, 0)
	for _, line := range lines {
		// Total and date lines also end in digits but are not purchases
		if isNonItemLine(line) {
			continue
		}

		loc := pricePattern.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}
		price := parseAmount(line[loc[2]:loc[3]])

		name := strings.TrimSpace(line[:loc[0]])
		quantity := 1
		if qm := quantityPattern.FindStringSubmatch(name); qm != nil {
			if q, err := strconv.Atoi(qm[1]); err == nil && q > 0 {
				quantity = q
			}
			name = strings.TrimSpace(strings.Replace(name, qm[0], "", 1))
		}

		// Plausibility check: an empty name or an implausible price means
		// the line is a barcode, code or summary row, not a purchase
		if name == "" || price <= 0 || price >= p.maxItemPrice {
			continue
		}

		items = append(items, Item{Name: name, Price: price, Quantity: quantity})
	}
	return items
}

// isNonItemLine reports whether a line is a total or date row that the
// item extractor must skip even though it ends in digits
func isNonItemLine(line string) bool {
	for _, pattern := range totalPatterns {
		if pattern.MatchString(line) {
			return true
		}
	}
	return datePattern.MatchString(line)
}

// extractTotal scans all lines for a keyword-anchored total amount. The
// first line/pattern pair with a positive amount wins; 0 means no match.
func extractTotal(lines []string) int {
	for _, line := range lines {
		for _, pattern := range totalPatterns {
			m := pattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			if amount := parseAmount(m[1]); amount > 0 {
				return amount
			}
		}
	}
	return 0
}

// extractDate returns the first date found in any line, reformatted to
// the ja-JP display form, or today's date if none matches
func (p *Parser) extractDate(lines []string) string {
	for _, line := range lines {
		m := datePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		// time.Date normalizes out-of-range components the same way a
		// JS Date would, so OCR'd garbage months still yield a real date
		return formatDate(time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC))
	}
	return formatDate(p.timeSource.Now())
}

// formatDate renders a date in the ja-JP display form, e.g. 2024/1/15
func formatDate(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d", t.Year(), int(t.Month()), t.Day())
}

// parseAmount parses a comma-grouped yen amount
func parseAmount(s string) int {
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return 0
	}
	return n
}
