package structured

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gaurav-prasanna/recipepipe/core"
	"github.com/gaurav-prasanna/recipepipe/core/recipe"
)

// Microdata extracts recipes annotated with schema.org microdata
// (itemscope / itemtype / itemprop attributes).
type Microdata struct{}

// NewMicrodata creates a microdata extractor.
func NewMicrodata() *Microdata {
	return &Microdata{}
}

// Name returns the configuration name of the extractor.
func (e *Microdata) Name() string {
	return "microdata"
}

// Extract returns the first complete recipe scope on the page.
func (e *Microdata) Extract(page *core.Page) (*recipe.Recipe, error) {
	doc, err := parse(page)
	if err != nil {
		return nil, err
	}

	scopes := doc.Find("[itemscope][itemtype]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		t, _ := s.Attr("itemtype")
		return strings.Contains(strings.ToLower(t), "schema.org/recipe")
	})

	var found *recipe.Recipe
	scopes.EachWithBreak(func(_ int, scope *goquery.Selection) bool {
		r := recipeFromScope(scope, page.URL)
		if r.Complete() {
			found = r
			return false
		}
		return true
	})

	if found == nil {
		return nil, ErrNoMatch
	}
	return found, nil
}

func recipeFromScope(scope *goquery.Selection, pageURL string) *recipe.Recipe {
	first := func(names ...string) string {
		for _, n := range names {
			if vals := propValues(scope, n); len(vals) > 0 {
				return vals[0]
			}
		}
		return ""
	}
	all := func(names ...string) []string {
		for _, n := range names {
			if vals := propValues(scope, n); len(vals) > 0 {
				return vals
			}
		}
		return nil
	}

	r := &recipe.Recipe{
		Name:         first("name"),
		Description:  first("description"),
		Images:       all("image"),
		Ingredients:  all("recipeIngredient", "ingredients"),
		Instructions: strings.Join(all("recipeInstructions", "instructions"), "\n\n"),
	}

	md := &r.Metadata
	md.Set(recipe.KeySource, pageURL)
	md.Set(recipe.KeyAuthor, strings.Join(all("author"), ", "))
	md.Set(recipe.KeyServings, first("recipeYield", "yield"))
	md.Set(recipe.KeyCourse, strings.Join(all("recipeCategory"), ", "))
	md.Set(recipe.KeyPrepTime, humanDuration(first("prepTime")))
	md.Set(recipe.KeyCookTime, humanDuration(first("cookTime")))
	md.Set(recipe.KeyTotalTime, humanDuration(first("totalTime")))
	md.Set(recipe.KeyCuisine, strings.Join(all("recipeCuisine"), ", "))
	md.Set(recipe.KeyDiet, diets(toAny(all("suitableForDiet"))))
	md.Set(recipe.KeyTags, strings.Join(all("keywords"), ", "))
	if len(r.Images) > 0 {
		md.Set(recipe.KeyImage, r.Images[0])
	}
	return r
}

// propValues returns the values of itemprop name that belong directly to
// scope, skipping properties of nested item scopes.
func propValues(scope *goquery.Selection, name string) []string {
	root := scope.Get(0)
	var out []string
	scope.Find("[itemprop]").Each(func(_ int, s *goquery.Selection) {
		props, _ := s.Attr("itemprop")
		if !hasToken(props, name) {
			return
		}
		owner := s.Parent().Closest("[itemscope]")
		if owner.Length() == 0 || owner.Get(0) != root {
			return
		}
		if v := propValue(s); v != "" {
			out = append(out, v)
		}
	})
	return out
}

// propValue reads a property value the way HTML microdata defines it
// for each element type. Nested scopes use their name property.
func propValue(s *goquery.Selection) string {
	if _, ok := s.Attr("itemscope"); ok {
		if n := s.Find(`[itemprop~="name"]`).First(); n.Length() > 0 {
			return propValue(n)
		}
		return cleanText(s.Text())
	}

	attr := ""
	switch goquery.NodeName(s) {
	case "meta":
		attr = "content"
	case "img", "audio", "video", "source", "embed", "iframe":
		attr = "src"
	case "a", "link", "area":
		attr = "href"
	case "time":
		attr = "datetime"
	case "data", "meter":
		attr = "value"
	}
	if attr != "" {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return decodeEntities(strings.TrimSpace(v))
		}
	}
	if c, ok := s.Attr("content"); ok && strings.TrimSpace(c) != "" {
		return decodeEntities(strings.TrimSpace(c))
	}
	return cleanText(s.Text())
}

func hasToken(list, token string) bool {
	for _, t := range strings.Fields(list) {
		if t == token {
			return true
		}
	}
	return false
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
