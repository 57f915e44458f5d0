package botfmt

import (
	"fmt"
	"strings"

	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/domain"
	"github.com/NastyaGoryachaya/btc-price-aggregator/internal/pkg/pricefmt"
)

// FormatPrice — строка для команды /price
func FormatPrice(res domain.Result) string {
	if !res.OK {
		return fmt.Sprintf("BTC | %s\n%s", pricefmt.Placeholder, pricefmt.FailureNotice)
	}
	return fmt.Sprintf("BTC | %s | Источник: %s", res.Price, res.WinningSource)
}

// FormatAttempts — по строке на каждую неудачную попытку
func FormatAttempts(res domain.Result) string {
	var b strings.Builder
	for _, a := range res.Attempts {
		if a.OK() {
			continue
		}
		fmt.Fprintf(&b, "%s: %s", a.Source, a.Err.Kind)
		if a.Err.Status != 0 {
			fmt.Fprintf(&b, " %d", a.Err.Status)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatSources — список источников, выбранный отмечен звёздочкой
func FormatSources(ids []domain.SourceID, preferred domain.SourceID) string {
	var b strings.Builder
	b.WriteString("Источники:\n")
	for _, id := range ids {
		mark := " "
		if id == preferred {
			mark = "*"
		}
		fmt.Fprintf(&b, "%s %s\n", mark, id)
	}
	return b.String()
}
