package structured

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/gaurav-prasanna/recipepipe/core"
	"github.com/gaurav-prasanna/recipepipe/core/recipe"
)

// maxFuzzyText bounds fuzzy class matches so a loose pattern cannot
// swallow the whole page.
const maxFuzzyText = 5000

// classMatcher is a compiled set of selectors for one recipe field.
type classMatcher struct {
	exact []cascadia.Selector
	fuzzy []cascadia.Selector
}

func compileClasses(exact, fuzzy []string) classMatcher {
	var m classMatcher
	for _, c := range exact {
		m.exact = append(m.exact, cascadia.MustCompile("."+c))
	}
	for _, p := range fuzzy {
		m.fuzzy = append(m.fuzzy, cascadia.MustCompile(fmt.Sprintf("[class*=%q]", p)))
	}
	return m
}

// Class lists used by the common recipe card plugins (WP Recipe Maker,
// Tasty Recipes, Mediavine Create, WPZoom and friends).
var (
	titleClasses = compileClasses([]string{
		"wprm-recipe-name", "tasty-recipes-title", "mv-create-title", "recipe-name",
		"recipe-title", "recipecardname", "recipe-card-title", "recipe-header-title",
		"wprp-recipe-title", "recipe_name", "recipe-content-title",
		"simple-recipe-pro-recipe-title", "recipe-callout-title", "wpzoom-recipe-card-title",
		"recipe-card__title", "wpupg-recipe-name", "recipe-title-name", "recipess-recipe-title",
	}, []string{"recipe", "title", "name", "heading"})

	descriptionClasses = compileClasses([]string{
		"wprm-recipe-summary", "recipe-summary", "recipe-description", "mv-create-description",
		"tasty-recipes-description", "recipe-card-summary", "wpzoom-recipe-summary",
		"recipe-summary-text", "recipe-intro", "recipe_description",
		"simple-recipe-pro-recipe-description", "recipe-callout-summary",
		"wpupg-recipe-summary", "recipe-card-description",
	}, []string{"summary", "description", "intro"})

	ingredientClasses = compileClasses([]string{
		"wprm-recipe-ingredients-container", "wprm-recipe-ingredient", "tasty-recipes-ingredients",
		"mv-create-ingredients", "recipe-ingredients", "recipe-ingredient-list",
		"recipe-card-ingredients", "wpzoom-recipe-ingredients", "recipe-ingredients-section",
		"simple-recipe-pro-recipe-ingredients", "recipe-callout-ingredients",
		"wpupg-recipe-ingredients", "recipe-card-ingredient-list", "recipe_ingredients",
		"recipess-ingredients-list", "structured-ingredients", "mpprecipe-ingredients",
		"recipe-content-ingredients", "recipe-ingredient-group",
	}, []string{"ingredient"})

	instructionClasses = compileClasses([]string{
		"wprm-recipe-instructions-container", "wprm-recipe-instruction", "tasty-recipes-instructions",
		"mv-create-instructions", "recipe-instructions", "recipe-instruction-list",
		"recipe-card-instructions", "wpzoom-recipe-instructions", "recipe-instructions-section",
		"simple-recipe-pro-recipe-instructions", "recipe-callout-instructions",
		"wpupg-recipe-instructions", "recipe-card-instruction-list", "recipe_instructions",
		"recipess-instructions-list", "structured-instructions", "mpprecipe-instructions",
		"recipe-content-instructions", "recipe-instruction-group", "directions", "recipe-directions",
	}, []string{"instruction", "direction", "method", "step"})

	prepTimeClasses = compileClasses([]string{
		"wprm-recipe-prep-time", "recipe-prep-time", "prep-time", "tasty-recipes-prep-time",
		"mv-create-time-prep", "recipe-card-prep-time", "wpzoom-recipe-prep-time",
		"recipe-prep_time", "simple-recipe-pro-prep-time", "wpupg-recipe-prep-time", "recipe-time-prep",
	}, nil)

	cookTimeClasses = compileClasses([]string{
		"wprm-recipe-cook-time", "recipe-cook-time", "cook-time", "tasty-recipes-cook-time",
		"mv-create-time-active", "recipe-card-cook-time", "wpzoom-recipe-cook-time",
		"recipe-cook_time", "simple-recipe-pro-cook-time", "wpupg-recipe-cook-time", "recipe-time-cook",
	}, nil)

	totalTimeClasses = compileClasses([]string{
		"wprm-recipe-total-time", "recipe-total-time", "total-time", "tasty-recipes-total-time",
		"mv-create-time-total", "recipe-card-total-time", "wpzoom-recipe-total-time",
		"recipe-total_time", "simple-recipe-pro-total-time", "wpupg-recipe-total-time", "recipe-time-total",
	}, nil)

	servingsClasses = compileClasses([]string{
		"wprm-recipe-servings", "recipe-yield", "recipe-servings", "tasty-recipes-yield",
		"mv-create-yield", "recipe-card-servings", "wpzoom-recipe-servings", "recipe-yield-value",
		"simple-recipe-pro-servings", "wpupg-recipe-servings", "recipe-card-yield", "recipeyield",
	}, nil)

	notesClasses = compileClasses([]string{
		"wprm-recipe-notes", "recipe-notes", "tasty-recipes-notes", "mv-create-notes",
		"recipe-card-notes", "wpzoom-recipe-notes", "recipe-tips", "simple-recipe-pro-notes",
		"wpupg-recipe-notes", "recipe-card-tips", "recipe-footnotes",
	}, nil)

	headingSelector = cascadia.MustCompile("h1, h2")
	ogTitleSelector = cascadia.MustCompile(`meta[property="og:title"]`)
	listItems       = cascadia.MustCompile("li")
	blockItems      = cascadia.MustCompile("div, p, span")
)

// HTMLClass extracts recipes by looking for the CSS class names recipe
// plugins put on their markup. It is the least precise extractor and
// normally runs last.
type HTMLClass struct{}

// NewHTMLClass creates a class-name heuristic extractor.
func NewHTMLClass() *HTMLClass {
	return &HTMLClass{}
}

// Name returns the configuration name of the extractor.
func (e *HTMLClass) Name() string {
	return "html_class"
}

// Extract builds a recipe from class-matched elements.
func (e *HTMLClass) Extract(page *core.Page) (*recipe.Recipe, error) {
	doc, err := parse(page)
	if err != nil {
		return nil, err
	}

	r := &recipe.Recipe{
		Name:        findText(doc, titleClasses),
		Description: findText(doc, descriptionClasses),
		Ingredients: listText(doc, ingredientClasses),
	}
	if r.Name == "" {
		r.Name = cleanText(doc.FindMatcher(headingSelector).First().Text())
	}
	if r.Name == "" {
		r.Name, _ = doc.FindMatcher(ogTitleSelector).First().Attr("content")
		r.Name = strings.TrimSpace(r.Name)
	}

	steps := listText(doc, instructionClasses)
	numbered := make([]string, len(steps))
	for i, s := range steps {
		numbered[i] = fmt.Sprintf("%d. %s", i+1, s)
	}
	r.Instructions = strings.Join(numbered, "\n")

	md := &r.Metadata
	md.Set(recipe.KeySource, page.URL)
	md.Set(recipe.KeyPrepTime, findText(doc, prepTimeClasses))
	md.Set(recipe.KeyCookTime, findText(doc, cookTimeClasses))
	md.Set(recipe.KeyTotalTime, findText(doc, totalTimeClasses))
	md.Set(recipe.KeyServings, findText(doc, servingsClasses))
	md.Set(recipe.KeyNotes, findText(doc, notesClasses))

	if !r.Complete() {
		return nil, ErrNoMatch
	}
	return r, nil
}

// findText returns the joined text of the first exact class that matches
// anything, falling back to fuzzy class patterns.
func findText(doc *goquery.Document, m classMatcher) string {
	for _, sel := range m.exact {
		if text := joinedText(doc.FindMatcher(sel)); text != "" {
			return text
		}
	}
	for _, sel := range m.fuzzy {
		text := joinedText(doc.FindMatcher(sel))
		if text != "" && len(text) < maxFuzzyText {
			return text
		}
	}
	return ""
}

func joinedText(s *goquery.Selection) string {
	parts := make([]string, 0, s.Length())
	s.Each(func(_ int, el *goquery.Selection) {
		if t := cleanText(el.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// listText collects item texts from the first exact container class that
// yields any, then from fuzzy class patterns. List items are preferred;
// otherwise short block elements inside the container are used.
func listText(doc *goquery.Document, m classMatcher) []string {
	for _, sel := range m.exact {
		var items []string
		doc.FindMatcher(sel).Each(func(_ int, container *goquery.Selection) {
			items = append(items, containerItems(container)...)
		})
		if len(items) > 0 {
			return items
		}
	}
	for _, sel := range m.fuzzy {
		var items []string
		doc.FindMatcher(sel).Each(func(_ int, container *goquery.Selection) {
			// Nested matches (ul.ingredients > li.ingredient) are read once,
			// through the outermost element.
			if container.ParentsMatcher(sel).Length() > 0 {
				return
			}
			if len(cleanText(container.Text())) > maxFuzzyText {
				return
			}
			items = append(items, containerItems(container)...)
		})
		if len(items) > 0 {
			return items
		}
	}
	return nil
}

// containerItems reads one matched element. A matched list item is an item
// on its own.
func containerItems(container *goquery.Selection) []string {
	if goquery.NodeName(container) == "li" {
		if t := cleanText(container.Text()); t != "" {
			return []string{t}
		}
		return nil
	}
	var found []string
	container.FindMatcher(listItems).Each(func(_ int, li *goquery.Selection) {
		if t := cleanText(li.Text()); t != "" {
			found = append(found, t)
		}
	})
	if len(found) == 0 {
		container.FindMatcher(blockItems).Each(func(_ int, el *goquery.Selection) {
			if t := cleanText(el.Text()); len(t) > 5 && len(t) < 500 {
				found = append(found, t)
			}
		})
	}
	return found
}
