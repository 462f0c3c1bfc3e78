// Package chunk splits text into word-bounded chunks without breaking
// lines. The free-text extractor uses the first chunk to keep prompts
// within a model's context budget.
package chunk

import "strings"

// DefaultWords is the chunk size used when none is configured.
const DefaultWords = 3000

// Chunker splits text into chunks of at most Words words.
type Chunker struct {
	Words int
}

// New creates a Chunker. Defaults to DefaultWords if words <= 0.
func New(words int) *Chunker {
	if words <= 0 {
		words = DefaultWords
	}
	return &Chunker{Words: words}
}

// Chunk splits text on line boundaries so that each chunk holds at most
// Words words. A single line longer than the budget is split on word
// boundaries. Blank lines are kept inside a chunk but never start one.
func (c *Chunker) Chunk(text string) []string {
	var (
		chunks []string
		cur    []string
		count  int
	)
	flush := func() {
		if s := strings.TrimSpace(strings.Join(cur, "\n")); s != "" {
			chunks = append(chunks, s)
		}
		cur, count = nil, 0
	}

	for _, line := range strings.Split(text, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			if count > 0 {
				cur = append(cur, "")
			}
			continue
		}
		for len(words) > c.Words {
			flush()
			chunks = append(chunks, strings.Join(words[:c.Words], " "))
			words = words[c.Words:]
		}
		if count+len(words) > c.Words {
			flush()
		}
		cur = append(cur, strings.Join(words, " "))
		count += len(words)
	}
	flush()
	return chunks
}

// Truncate returns the first chunk of text, or "" for blank input.
func (c *Chunker) Truncate(text string) string {
	chunks := c.Chunk(text)
	if len(chunks) == 0 {
		return ""
	}
	return chunks[0]
}
