package market

import (
	"fmt"
	"sort"
	"strings"
)

// RankTopMovers returns the top n stocks by positive percentage change.
// Ties break by higher volume, then higher market cap, then symbol.
// Only stocks with change_percent > 0 qualify.
func RankTopMovers(stocks []Stock, n int) []Stock {
	positive := make([]Stock, 0, len(stocks))
	for _, s := range stocks {
		if s.ChangePercent > 0 {
			positive = append(positive, s)
		}
	}

	sort.SliceStable(positive, func(i, j int) bool {
		a, b := positive[i], positive[j]
		if a.ChangePercent != b.ChangePercent {
			return a.ChangePercent > b.ChangePercent
		}
		if a.Volume != b.Volume {
			return a.Volume > b.Volume
		}
		if a.MarketCap != b.MarketCap {
			return a.MarketCap > b.MarketCap
		}
		return a.Symbol < b.Symbol
	})

	if n > 0 && len(positive) > n {
		positive = positive[:n]
	}
	return positive
}

// FormatSummary renders the picks in the fixed announcement shape consumed
// downstream by the summarizer and, failing that, spoken directly.
func FormatSummary(picks []Stock) string {
	if len(picks) == 0 {
		return "I have found no stocks with positive performance today."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "I have found %d stocks with the most potential:\n", len(picks))
	for i, p := range picks {
		fmt.Fprintf(&b, "    %d - %s (%s)\n", i+1, p.Name, p.Symbol)
	}
	return strings.TrimRight(b.String(), "\n")
}
