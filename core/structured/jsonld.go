package structured

import (
	"encoding/json"
	"html"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/gaurav-prasanna/recipepipe/core"
	"github.com/gaurav-prasanna/recipepipe/core/recipe"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// JSONLD extracts recipes from <script type="application/ld+json"> blocks.
type JSONLD struct{}

// NewJSONLD creates a JSON-LD extractor.
func NewJSONLD() *JSONLD {
	return &JSONLD{}
}

// Name returns the configuration name of the extractor.
func (e *JSONLD) Name() string {
	return "json_ld"
}

// Extract returns the first complete recipe found in any JSON-LD block.
func (e *JSONLD) Extract(page *core.Page) (*recipe.Recipe, error) {
	doc, err := parse(page)
	if err != nil {
		return nil, err
	}

	var found *recipe.Recipe
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		node, ok := decodeJSONLD(s.Text())
		if !ok {
			return true
		}
		obj := findRecipe(node)
		if obj == nil {
			return true
		}
		r := recipeFromJSONLD(obj, page.URL)
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

// decodeJSONLD parses a script body, retrying once on a sanitized copy.
func decodeJSONLD(raw string) (any, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	var node any
	if err := json.Unmarshal([]byte(raw), &node); err == nil {
		return node, true
	}
	if err := json.Unmarshal([]byte(sanitizeJSON(raw)), &node); err == nil {
		return node, true
	}
	return nil, false
}

// sanitizeJSON repairs common hand-written JSON-LD mistakes: missing commas
// between values, trailing or doubled commas, and raw line breaks inside
// strings.
func sanitizeJSON(s string) string {
	out := make([]byte, 0, len(s)+16)
	inString, escaped := false, false
	var last byte

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
				last = '"'
			case c == '\n' || c == '\r' || c == '\t':
				c = ' '
			}
			out = append(out, c)
			continue
		}

		if c == ' ' || c == '\n' || c == '\r' || c == '\t' {
			continue
		}

		switch c {
		case '"', '{', '[':
			if last == '"' || last == '}' || last == ']' {
				out = append(out, ',')
			}
			if c == '"' {
				inString = true
			}
		case '}', ']':
			if last == ',' {
				out = out[:len(out)-1]
			}
		case ',':
			if last == ',' || last == '{' || last == '[' || last == ':' {
				continue
			}
		}
		out = append(out, c)
		last = c
	}
	return string(out)
}

// findRecipe walks arrays, @graph and mainEntity looking for a Recipe node.
func findRecipe(node any) map[string]any {
	switch v := node.(type) {
	case []any:
		for _, item := range v {
			if r := findRecipe(item); r != nil {
				return r
			}
		}
	case map[string]any:
		if isRecipeType(v["@type"]) {
			return v
		}
		for _, key := range []string{"@graph", "mainEntity", "mainEntityOfPage"} {
			if r := findRecipe(v[key]); r != nil {
				return r
			}
		}
		if v["recipeIngredient"] != nil && v["recipeInstructions"] != nil {
			return v
		}
	}
	return nil
}

func isRecipeType(t any) bool {
	switch v := t.(type) {
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "recipe")
	case []any:
		for _, item := range v {
			if isRecipeType(item) {
				return true
			}
		}
	}
	return false
}

func recipeFromJSONLD(obj map[string]any, pageURL string) *recipe.Recipe {
	r := &recipe.Recipe{
		Name:         decodeEntities(str(obj["name"])),
		Description:  decodeEntities(textOf(obj["description"])),
		Images:       images(obj["image"]),
		Ingredients:  ingredients(firstOf(obj, "recipeIngredient", "ingredients")),
		Instructions: strings.Join(steps(obj["recipeInstructions"]), "\n\n"),
	}

	md := &r.Metadata
	md.Set(recipe.KeySource, pageURL)
	md.Set(recipe.KeyAuthor, strings.Join(names(obj["author"]), ", "))
	md.Set(recipe.KeyServings, servings(obj["recipeYield"]))
	md.Set(recipe.KeyCourse, strings.Join(list(obj["recipeCategory"]), ", "))
	md.Set(recipe.KeyPrepTime, humanDuration(str(obj["prepTime"])))
	md.Set(recipe.KeyCookTime, humanDuration(str(obj["cookTime"])))
	md.Set(recipe.KeyTotalTime, humanDuration(str(obj["totalTime"])))
	md.Set(recipe.KeyCuisine, strings.Join(list(obj["recipeCuisine"]), ", "))
	md.Set(recipe.KeyDiet, diets(obj["suitableForDiet"]))
	md.Set(recipe.KeyTags, strings.Join(list(obj["keywords"]), ", "))
	if len(r.Images) > 0 {
		md.Set(recipe.KeyImage, r.Images[0])
	}
	return r
}

func firstOf(obj map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// str renders scalars as strings.
func str(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return ""
}

// textOf reads a string or an object with a text field.
func textOf(v any) string {
	if m, ok := v.(map[string]any); ok {
		return str(m["text"])
	}
	return str(v)
}

// list reads a string, a number, or an array of them.
func list(v any) []string {
	var out []string
	switch x := v.(type) {
	case []any:
		for _, item := range x {
			if s := decodeEntities(str(item)); s != "" {
				out = append(out, s)
			}
		}
	default:
		if s := decodeEntities(str(x)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// names reads authors given as strings, objects with a name, or arrays.
func names(v any) []string {
	var out []string
	switch x := v.(type) {
	case []any:
		for _, item := range x {
			out = append(out, names(item)...)
		}
	case map[string]any:
		if n := decodeEntities(str(x["name"])); n != "" {
			out = append(out, n)
		}
	default:
		if n := decodeEntities(str(x)); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// servings prefers a descriptive yield ("12 cookies") over a bare number.
func servings(v any) string {
	items := list(v)
	for _, s := range items {
		if strings.IndexFunc(s, unicode.IsLetter) >= 0 {
			return s
		}
	}
	if len(items) > 0 {
		return items[0]
	}
	return ""
}

func diets(v any) string {
	var out []string
	for _, d := range list(v) {
		d = strings.TrimPrefix(d, "https://schema.org/")
		d = strings.TrimPrefix(d, "http://schema.org/")
		d = strings.TrimSpace(strings.ReplaceAll(d, "Diet", ""))
		if d != "" {
			out = append(out, d)
		}
	}
	return strings.Join(out, ", ")
}

func images(v any) []string {
	var out []string
	switch x := v.(type) {
	case []any:
		for _, item := range x {
			out = append(out, images(item)...)
		}
	case map[string]any:
		if u := str(x["url"]); u != "" {
			out = append(out, decodeEntities(u))
		} else if u := str(x["contentUrl"]); u != "" {
			out = append(out, decodeEntities(u))
		}
	default:
		if u := str(x); u != "" {
			out = append(out, decodeEntities(u))
		}
	}
	return out
}

func ingredients(v any) []string {
	var out []string
	add := func(s string) {
		s = cleanText(stripTags(decodeEntities(s)))
		if s != "" {
			out = append(out, s)
		}
	}
	switch x := v.(type) {
	case string:
		for _, line := range strings.Split(x, "\n") {
			add(line)
		}
	case []any:
		for _, item := range x {
			switch it := item.(type) {
			case map[string]any:
				name := str(it["name"])
				if name == "" {
					name = textOf(it)
				}
				if amount := str(it["amount"]); amount != "" && name != "" {
					name = amount + " " + name
				}
				add(name)
			default:
				add(str(it))
			}
		}
	}
	return out
}

// steps flattens recipeInstructions in every shape sites publish it:
// a string, a list of strings, HowToStep objects, HowToSection objects
// with itemListElement, and lists of sections.
func steps(v any) []string {
	var out []string
	switch x := v.(type) {
	case string:
		for _, para := range strings.Split(decodeEntities(x), "\n") {
			if s := cleanText(stripTags(para)); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range x {
			out = append(out, steps(item)...)
		}
	case map[string]any:
		if el, ok := x["itemListElement"]; ok {
			return steps(el)
		}
		text := str(x["text"])
		if text == "" {
			text = str(x["name"])
		}
		if text == "" {
			text = str(x["description"])
		}
		if s := cleanText(stripTags(decodeEntities(text))); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// decodeEntities unescapes HTML entities. Some sites double-encode them.
func decodeEntities(s string) string {
	return html.UnescapeString(html.UnescapeString(s))
}

func stripTags(s string) string {
	return tagPattern.ReplaceAllString(s, " ")
}
