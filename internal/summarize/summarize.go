// Package summarize picks representative sentences from page text and
// merges them into one cited paragraph.
package summarize

import (
	"regexp"
	"sort"
	"strings"
)

const (
	DefaultMaxBullets  = 8
	DefaultMaxSnippets = 3
	minSentenceRunes   = 20
)

const insufficientSourcesParagraph = "Not enough high-quality sources were accessible to produce a reliable summary. " +
	"This can happen when pages block automated access, restrict content via robots.txt, " +
	"or contain too little extractable text."

// SourceSummary holds the bullets drawn from one page.
type SourceSummary struct {
	URL     string   `json:"url"`
	Bullets []string `json:"bullets"`
}

// Snippet is the search metadata used when no page text survived.
type Snippet struct {
	URL     string
	Title   string
	Snippet string
}

type Summarizer struct {
	signals   []SignalRule
	conflicts ConflictRules
	conflict  *regexp.Regexp
}

// New builds a summarizer with the default sentence signals. A negative
// Window or non-positive lengths in rules fall back to DefaultConflictRules.
func New(rules ConflictRules) *Summarizer {
	rules = rules.withDefaults()
	return &Summarizer{
		signals:   SentenceSignals,
		conflicts: rules,
		conflict:  rules.pattern(),
	}
}

// Score sums the points of every signal the sentence carries.
func (s *Summarizer) Score(sentence string) int {
	score := 0
	for _, rule := range s.signals {
		if rule.Pattern.MatchString(sentence) {
			score += rule.Points
		}
	}
	return score
}

// SourceBullets returns up to maxBullets cleaned, unique sentences from text,
// highest scoring first. Ties keep their order in the text.
func (s *Summarizer) SourceBullets(text string, maxBullets int) []string {
	if maxBullets <= 0 {
		maxBullets = DefaultMaxBullets
	}
	sentences := splitSentences(text)

	type scored struct {
		text  string
		score int
	}
	ranked := make([]scored, len(sentences))
	for i, sentence := range sentences {
		ranked[i] = scored{text: sentence, score: s.Score(sentence)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	bullets := make([]string, 0, maxBullets)
	seen := map[string]struct{}{}
	for _, candidate := range ranked {
		cleaned := cleanText(candidate.text)
		if cleaned == "" {
			continue
		}
		if _, dup := seen[cleaned]; dup {
			continue
		}
		seen[cleaned] = struct{}{}
		bullets = append(bullets, cleaned)
		if len(bullets) >= maxBullets {
			break
		}
	}
	return bullets
}

// Synthesize merges bullets across sources into one paragraph. Sources with
// no bullets are ignored. The fixed insufficient-sources paragraph is
// returned when fewer than minSources contributed or nothing survives
// deduplication.
func (s *Summarizer) Synthesize(summaries []SourceSummary, minSources int, query string, maxSentences int) (string, []string) {
	sourcesUsed := []string{}
	var sentences []string
	for _, summary := range summaries {
		if len(summary.Bullets) == 0 {
			continue
		}
		sourcesUsed = append(sourcesUsed, summary.URL)
		sentences = append(sentences, summary.Bullets...)
	}

	unique := make([]string, 0, len(sentences))
	seen := map[string]struct{}{}
	for _, sentence := range sentences {
		cleaned := cleanText(sentence)
		if cleaned == "" {
			continue
		}
		if _, dup := seen[cleaned]; dup {
			continue
		}
		seen[cleaned] = struct{}{}
		unique = append(unique, cleaned)
	}

	if len(sourcesUsed) < minSources || len(unique) == 0 {
		return insufficientSourcesParagraph, sourcesUsed
	}

	if maxSentences > 0 && len(unique) > maxSentences {
		unique = unique[:maxSentences]
	}
	var paragraph strings.Builder
	if query = strings.TrimSpace(query); query != "" {
		paragraph.WriteString("About " + query + ", ")
	}
	paragraph.WriteString(strings.Join(unique, " "))

	if conflicts := s.DetectConflicts(summaries); len(conflicts) > 0 {
		paragraph.WriteString(" Sources report differing figures for " + strings.Join(conflicts, ", ") + ".")
	}
	return paragraph.String(), sourcesUsed
}

// DetectConflicts returns keywords that appear next to two or more distinct
// figures across all bullets, in first-seen order and capped at MaxReported.
func (s *Summarizer) DetectConflicts(summaries []SourceSummary) []string {
	figures := map[string]map[string]struct{}{}
	var order []string
	for _, summary := range summaries {
		for _, bullet := range summary.Bullets {
			for _, match := range s.conflict.FindAllStringSubmatch(bullet, -1) {
				keyword := strings.ToLower(match[1])
				if _, ok := figures[keyword]; !ok {
					figures[keyword] = map[string]struct{}{}
					order = append(order, keyword)
				}
				figures[keyword][match[2]] = struct{}{}
			}
		}
	}

	var conflicts []string
	for _, keyword := range order {
		if len(figures[keyword]) > 1 {
			conflicts = append(conflicts, keyword)
			if len(conflicts) >= s.conflicts.MaxReported {
				break
			}
		}
	}
	return conflicts
}

// SynthesizeFromSnippets builds a short paragraph from search snippets (or
// titles) when no page text could be used.
func (s *Summarizer) SynthesizeFromSnippets(results []Snippet, query string, maxItems int) (string, []string) {
	if maxItems <= 0 {
		maxItems = DefaultMaxSnippets
	}
	query = strings.TrimSpace(query)

	var snippets []string
	sources := []string{}
	seen := map[string]struct{}{}
	for _, result := range results {
		text := strings.TrimSpace(result.Snippet)
		if text == "" {
			text = strings.TrimSpace(result.Title)
		}
		text = cleanText(text)
		if text == "" {
			continue
		}
		if _, dup := seen[result.URL]; dup {
			continue
		}
		seen[result.URL] = struct{}{}
		snippets = append(snippets, text)
		sources = append(sources, result.URL)
		if len(snippets) >= maxItems {
			break
		}
	}

	if len(snippets) == 0 {
		return "No accessible sources were found for " + query + ", and search snippets were unavailable.", sources
	}
	return "About " + query + ", search results indicate: " + strings.Join(snippets, " "), sources
}

// splitSentences breaks whitespace-normalized text after ., ! or ? followed
// by a space and drops fragments of minSentenceRunes characters or fewer.
func splitSentences(text string) []string {
	normalized := normalizeSpace(text)
	if normalized == "" {
		return nil
	}

	var sentences []string
	start := 0
	for i := 0; i < len(normalized)-1; i++ {
		switch normalized[i] {
		case '.', '!', '?':
			if normalized[i+1] == ' ' {
				sentences = appendSentence(sentences, normalized[start:i+1])
				start = i + 2
			}
		}
	}
	sentences = appendSentence(sentences, normalized[start:])
	return sentences
}

func appendSentence(sentences []string, sentence string) []string {
	sentence = strings.TrimSpace(sentence)
	if len([]rune(sentence)) <= minSentenceRunes {
		return sentences
	}
	return append(sentences, sentence)
}

func cleanText(text string) string {
	return normalizeSpace(citationMarker.ReplaceAllString(text, ""))
}

func normalizeSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
