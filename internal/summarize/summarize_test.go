package summarize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreSignals(t *testing.T) {
	s := New(DefaultConflictRules)

	assert.Equal(t, 8, s.Score("In 2023, revenue grew by 12% to $1,000,000."))
	assert.Equal(t, 0, s.Score("the weather was rather pleasant today overall."))
	assert.Equal(t, 2, s.Score("margins widened to 4.5% over the quarter"))
}

func TestSourceBulletsPrefersInformativeSentences(t *testing.T) {
	s := New(DefaultConflictRules)
	text := "the weather was rather pleasant today overall. In 2023, revenue grew by 12% to $1,000,000. Too short here."

	bullets := s.SourceBullets(text, 8)
	require.Len(t, bullets, 2)
	assert.Equal(t, "In 2023, revenue grew by 12% to $1,000,000.", bullets[0])
	assert.Equal(t, "the weather was rather pleasant today overall.", bullets[1])
}

func TestSourceBulletsStripsCitationsAndDedups(t *testing.T) {
	s := New(DefaultConflictRules)
	text := "The bridge opened to traffic in 1937. The bridge opened to traffic in 1937. " +
		"Its main span is 1,280 meters long [12]."

	bullets := s.SourceBullets(text, 0)
	assert.Equal(t, []string{
		"The bridge opened to traffic in 1937.",
		"Its main span is 1,280 meters long .",
	}, bullets)
}

func TestSourceBulletsCap(t *testing.T) {
	s := New(DefaultConflictRules)
	var b strings.Builder
	for i := 0; i < 20; i++ {
		b.WriteString("Sentence number ")
		b.WriteString(strings.Repeat("x", i+1))
		b.WriteString(" carries enough words to count. ")
	}

	assert.Len(t, s.SourceBullets(b.String(), 3), 3)
	assert.Len(t, s.SourceBullets(b.String(), 0), DefaultMaxBullets)
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("First sentence is long enough to keep!  Short one? Third\nsentence also survives the filter.")
	assert.Equal(t, []string{
		"First sentence is long enough to keep!",
		"Third sentence also survives the filter.",
	}, got)
	assert.Nil(t, splitSentences("   "))
}

func TestSynthesizeWithoutSources(t *testing.T) {
	s := New(DefaultConflictRules)

	paragraph, sources := s.Synthesize(nil, 1, "anything", 10)
	assert.Equal(t, insufficientSourcesParagraph, paragraph)
	assert.Empty(t, sources)

	paragraph, sources = s.Synthesize([]SourceSummary{{URL: "https://a.example/", Bullets: nil}}, 1, "anything", 10)
	assert.Equal(t, insufficientSourcesParagraph, paragraph)
	assert.Empty(t, sources)
}

func TestSynthesizeBelowMinSources(t *testing.T) {
	s := New(DefaultConflictRules)
	summaries := []SourceSummary{{URL: "https://a.example/", Bullets: []string{"Only one source contributed this sentence."}}}

	paragraph, sources := s.Synthesize(summaries, 2, "topic", 10)
	assert.Equal(t, insufficientSourcesParagraph, paragraph)
	assert.Equal(t, []string{"https://a.example/"}, sources)
}

func TestSynthesizeMergesInSourceOrder(t *testing.T) {
	s := New(DefaultConflictRules)
	summaries := []SourceSummary{
		{URL: "https://a.example/", Bullets: []string{"Alpha reports the first finding.", "Shared finding across sources."}},
		{URL: "https://b.example/", Bullets: nil},
		{URL: "https://c.example/", Bullets: []string{"Shared finding across sources.", "Gamma adds a second finding."}},
	}

	paragraph, sources := s.Synthesize(summaries, 1, "findings", 10)
	assert.Equal(t, "About findings, Alpha reports the first finding. Shared finding across sources. Gamma adds a second finding.", paragraph)
	assert.Equal(t, []string{"https://a.example/", "https://c.example/"}, sources)

	paragraph, _ = s.Synthesize(summaries, 1, "", 2)
	assert.Equal(t, "Alpha reports the first finding. Shared finding across sources.", paragraph)
}

func TestSynthesizeReportsConflicts(t *testing.T) {
	s := New(DefaultConflictRules)
	summaries := []SourceSummary{
		{URL: "https://a.example/", Bullets: []string{"The inflation rate in 2021 reached a record high."}},
		{URL: "https://b.example/", Bullets: []string{"The inflation rate in 2023 reached a record high."}},
	}

	paragraph, _ := s.Synthesize(summaries, 1, "inflation", 10)
	assert.True(t, strings.HasSuffix(paragraph, " Sources report differing figures for inflation."), paragraph)
}

func TestDetectConflicts(t *testing.T) {
	s := New(DefaultConflictRules)

	t.Run("keyword must sit close to the figure", func(t *testing.T) {
		summaries := []SourceSummary{
			{Bullets: []string{"Population grew steadily and eventually 1,200 people lived there."}},
			{Bullets: []string{"Population grew steadily and eventually 1,500 people lived there."}},
		}
		assert.NotContains(t, s.DetectConflicts(summaries), "population")
	})

	t.Run("same figure is not a conflict", func(t *testing.T) {
		summaries := []SourceSummary{
			{Bullets: []string{"Unemployment at 4.2% was unchanged."}},
			{Bullets: []string{"Unemployment at 4.2% held steady."}},
		}
		assert.Empty(t, s.DetectConflicts(summaries))
	})

	t.Run("capped and ordered by first sighting", func(t *testing.T) {
		summaries := []SourceSummary{
			{Bullets: []string{"Revenue of 1,000 units. Profit of 2.5 points. Costs at 10% overall."}},
			{Bullets: []string{"Revenue of 2,000 units. Profit of 3.5 points. Costs at 12% overall."}},
		}
		assert.Equal(t, []string{"revenue", "profit"}, s.DetectConflicts(summaries))

		wide := New(ConflictRules{Window: 10, MinKeywordLen: 4, MaxReported: 5})
		assert.Equal(t, []string{"revenue", "profit", "costs"}, wide.DetectConflicts(summaries))
	})
}

func TestSynthesizeFromSnippets(t *testing.T) {
	s := New(DefaultConflictRules)
	results := []Snippet{
		{URL: "https://a.example/", Title: "A", Snippet: "First snippet text."},
		{URL: "https://a.example/", Title: "A again", Snippet: "Duplicate URL snippet."},
		{URL: "https://b.example/", Title: "Title only"},
		{URL: "https://c.example/"},
		{URL: "https://d.example/", Snippet: "Third usable snippet."},
		{URL: "https://e.example/", Snippet: "Beyond the cap."},
	}

	paragraph, sources := s.SynthesizeFromSnippets(results, "topic", 0)
	assert.Equal(t, "About topic, search results indicate: First snippet text. Title only Third usable snippet.", paragraph)
	assert.Equal(t, []string{"https://a.example/", "https://b.example/", "https://d.example/"}, sources)
}

func TestSynthesizeFromSnippetsEmpty(t *testing.T) {
	s := New(DefaultConflictRules)

	paragraph, sources := s.SynthesizeFromSnippets([]Snippet{{URL: "https://a.example/"}}, "quiet topic", 3)
	assert.Equal(t, "No accessible sources were found for quiet topic, and search snippets were unavailable.", paragraph)
	assert.Empty(t, sources)
}
