package render

import (
	"regexp"
	"strings"
)

// Item is a Cooklang ingredient, cookware or timer reference.
type Item struct {
	Name     string `json:"name,omitempty"`
	Quantity string `json:"quantity,omitempty"`
	Unit     string `json:"unit,omitempty"`
}

// String formats the item for reading, e.g. "potato (2)" or "salt (1 tsp)".
func (i Item) String() string {
	amount := strings.TrimSpace(i.Quantity + " " + i.Unit)
	switch {
	case i.Name == "":
		return amount
	case amount == "":
		return i.Name
	}
	return i.Name + " (" + amount + ")"
}

// Cooklang is the structure found in converted markup.
type Cooklang struct {
	Ingredients []Item   `json:"ingredients"`
	Cookware    []Item   `json:"cookware"`
	Timers      []Item   `json:"timers"`
	Steps       []string `json:"steps"`
}

// Multi-word names need braces; single words may stand alone.
var (
	ingredientRe = regexp.MustCompile(`@([^@#~{}\n]+?)\{([^}]*)\}|@([\p{L}\p{N}_-]+)`)
	cookwareRe   = regexp.MustCompile(`#([^@#~{}\n]+?)\{([^}]*)\}|#([\p{L}\p{N}_-]+)`)
	timerRe      = regexp.MustCompile(`~([^@#~{}\n]*)\{([^}]*)\}`)
	commentRe    = regexp.MustCompile(`(?m)--.*$`)
	blankLineRe  = regexp.MustCompile(`\n\s*\n`)
)

// ParseCooklang reads a Cooklang body. Each paragraph is one step.
// Ingredients and cookware are listed once, in order of first use.
func ParseCooklang(body string) Cooklang {
	body = commentRe.ReplaceAllString(body, "")
	var c Cooklang
	seenIng := map[string]bool{}
	seenTool := map[string]bool{}

	for _, m := range ingredientRe.FindAllStringSubmatch(body, -1) {
		it := item(m)
		if !seenIng[it.Name] {
			seenIng[it.Name] = true
			c.Ingredients = append(c.Ingredients, it)
		}
	}
	for _, m := range cookwareRe.FindAllStringSubmatch(body, -1) {
		it := item(m)
		it.Quantity, it.Unit = "", ""
		if !seenTool[it.Name] {
			seenTool[it.Name] = true
			c.Cookware = append(c.Cookware, it)
		}
	}
	for _, m := range timerRe.FindAllStringSubmatch(body, -1) {
		q, u := amount(m[2])
		c.Timers = append(c.Timers, Item{Name: strings.TrimSpace(m[1]), Quantity: q, Unit: u})
	}
	for _, para := range blankLineRe.Split(body, -1) {
		if step := PlainStep(para); step != "" {
			c.Steps = append(c.Steps, step)
		}
	}
	return c
}

// PlainStep removes Cooklang markers from a step, keeping readable names
// and timer durations.
func PlainStep(step string) string {
	step = ingredientRe.ReplaceAllStringFunc(step, func(s string) string {
		return item(ingredientRe.FindStringSubmatch(s)).Name
	})
	step = cookwareRe.ReplaceAllStringFunc(step, func(s string) string {
		return item(cookwareRe.FindStringSubmatch(s)).Name
	})
	step = timerRe.ReplaceAllStringFunc(step, func(s string) string {
		m := timerRe.FindStringSubmatch(s)
		q, u := amount(m[2])
		if d := strings.TrimSpace(q + " " + u); d != "" {
			return d
		}
		return strings.TrimSpace(m[1])
	})
	return strings.Join(strings.Fields(step), " ")
}

func item(m []string) Item {
	if m[3] != "" {
		return Item{Name: m[3]}
	}
	q, u := amount(m[2])
	return Item{Name: strings.TrimSpace(m[1]), Quantity: q, Unit: u}
}

// amount splits "1%kg" into quantity and unit.
func amount(s string) (string, string) {
	q, u, _ := strings.Cut(s, "%")
	return strings.TrimSpace(q), strings.TrimSpace(u)
}
