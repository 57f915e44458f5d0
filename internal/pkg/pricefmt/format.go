package pricefmt

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Placeholder - что показывать, когда цену получить не удалось
const Placeholder = "N/A"

// FailureNotice - короткое сообщение, когда ни один источник не ответил
const FailureNotice = "Failed to fetch Bitcoin price from all sources"

var (
	printer = message.NewPrinter(language.AmericanEnglish)
	maxInt  = big.NewInt(1<<63 - 1)
)

// Format - цена в долларах США без дробной части: "$67,890".
// Дробная часть отбрасывается (усечение к нулю), а не округляется.
func Format(p decimal.Decimal) string {
	whole := p.Truncate(0)
	sign := ""
	if whole.IsNegative() {
		sign = "-"
		whole = whole.Neg()
	}

	n := whole.BigInt()
	if n.Cmp(maxInt) <= 0 {
		return sign + "$" + printer.Sprintf("%d", n.Int64())
	}
	return sign + "$" + group(n.String())
}

// group - разделители тысяч для чисел, не влезающих в int64
func group(digits string) string {
	var b strings.Builder
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
