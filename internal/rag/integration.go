package rag

import (
	"fmt"
	"sort"
	"strings"

	"ragrt/internal/types"
)

// Strategy names a caller-selected integration strategy for assembling
// retrieval results into prompt context.
type Strategy string

const (
	StrategyPrepend      Strategy = "prepend"
	StrategyHierarchical Strategy = "hierarchical"
	StrategyFusion       Strategy = "fusion"
	StrategyCyclic       Strategy = "cyclic"
)

// Integrate assembles results into a single context string per the
// named strategy.
func Integrate(strategy Strategy, query string, results []types.RetrievalResult) string {
	switch strategy {
	case StrategyHierarchical:
		return integrateHierarchical(results)
	case StrategyFusion:
		return integrateFusion(query, results)
	case StrategyCyclic:
		return integrateCyclic(results)
	default:
		return integratePrepend(results)
	}
}

func integratePrepend(results []types.RetrievalResult) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Text
	}
	return strings.Join(parts, "\n\n")
}

func relevanceBand(score float64) string {
	switch {
	case score >= 0.8:
		return "HIGH"
	case score >= 0.6:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

func integrateHierarchical(results []types.RetrievalResult) string {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		band := relevanceBand(r.Score)
		fmt.Fprintf(&b, "[%s] ", band)
		switch band {
		case "HIGH":
			b.WriteString(r.Text)
		case "MEDIUM":
			b.WriteString(twoSentenceSummary(r.Text))
		default:
			b.WriteString(bulletedKeyLines(r.Text))
		}
	}
	return b.String()
}

func twoSentenceSummary(text string) string {
	sentences := splitSentences(text)
	if len(sentences) > 2 {
		sentences = sentences[:2]
	}
	return strings.Join(sentences, " ")
}

func splitSentences(text string) []string {
	var sentences []string
	var cur strings.Builder
	for _, r := range text {
		cur.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			s := strings.TrimSpace(cur.String())
			if s != "" {
				sentences = append(sentences, s)
			}
			cur.Reset()
		}
	}
	if rest := strings.TrimSpace(cur.String()); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

func bulletedKeyLines(text string) string {
	lines := strings.Split(text, "\n")
	var b strings.Builder
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- " + line)
	}
	return b.String()
}

func integrateFusion(query string, results []types.RetrievalResult) string {
	tokens := strings.Fields(strings.ToLower(query))
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\n", query)
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(boldQueryTokens(r.Text, tokens))
	}
	return b.String()
}

func boldQueryTokens(text string, tokens []string) string {
	if len(tokens) == 0 {
		return text
	}
	words := strings.Fields(text)
	for i, w := range words {
		stripped := strings.ToLower(strings.Trim(w, ".,!?;:"))
		for _, t := range tokens {
			if stripped == t {
				words[i] = "**" + w + "**"
				break
			}
		}
	}
	return strings.Join(words, " ")
}

func integrateCyclic(results []types.RetrievalResult) string {
	byPosition := make(map[types.CyclePosition][]types.RetrievalResult)
	for _, r := range results {
		byPosition[r.Position] = append(byPosition[r.Position], r)
	}

	var b strings.Builder
	flowOrder := []types.CyclePosition{1, 2, 4, 8, 7, 5}
	checkpointOrder := []types.CyclePosition{3, 6, 9}

	writeGroup := func(pos types.CyclePosition, sacred bool) {
		group, ok := byPosition[pos]
		if !ok {
			return
		}
		sort.SliceStable(group, func(i, j int) bool { return group[i].Score > group[j].Score })
		for _, r := range group {
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
			if sacred {
				b.WriteString("[SACRED] ")
			}
			b.WriteString(r.Text)
		}
	}

	for _, pos := range flowOrder {
		writeGroup(pos, false)
	}
	for _, pos := range checkpointOrder {
		writeGroup(pos, true)
	}
	return b.String()
}
