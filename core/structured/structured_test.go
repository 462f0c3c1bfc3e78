package structured

import (
	"context"
	"errors"
	"testing"

	"github.com/gaurav-prasanna/recipepipe/core"
	"github.com/gaurav-prasanna/recipepipe/core/chain"
	"github.com/gaurav-prasanna/recipepipe/core/recipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonLDPage = `<html><head>
<script type="application/ld+json">
{"@context":"https://schema.org","@graph":[
  {"@type":"WebPage","name":"Blog"},
  {"@type":["Recipe","NewsArticle"],
   "name":"Pancakes &amp; Syrup",
   "author":[{"@type":"Person","name":"Ann"}],
   "description":"Fluffy.",
   "image":["https://example.com/p.jpg"],
   "recipeYield":["4","4 pancakes"],
   "prepTime":"PT10M","cookTime":"PT1H5M","totalTime":"PT1H15M",
   "recipeCategory":"Breakfast","recipeCuisine":["American"],
   "keywords":"easy, sweet",
   "recipeIngredient":["1 cup flour","1 egg",""],
   "recipeInstructions":[
     {"@type":"HowToSection","name":"Batter","itemListElement":[
        {"@type":"HowToStep","text":"Mix <b>everything</b>."}]},
     {"@type":"HowToStep","text":"Fry."}]}
]}
</script></head><body><h1>Other</h1></body></html>`

const microdataPage = `<html><body>
<div itemscope itemtype="https://schema.org/Recipe">
  <h2 itemprop="name">Tomato Soup</h2>
  <div itemprop="author" itemscope itemtype="https://schema.org/Person"><span itemprop="name">Bo</span></div>
  <meta itemprop="prepTime" content="PT15M">
  <time itemprop="cookTime" datetime="PT30M">30 min</time>
  <span itemprop="recipeYield">2 bowls</span>
  <img itemprop="image" src="https://example.com/soup.jpg">
  <ul><li itemprop="recipeIngredient">4 tomatoes</li><li itemprop="recipeIngredient">1 onion</li></ul>
  <p itemprop="recipeInstructions">Chop.</p>
  <p itemprop="recipeInstructions">Simmer.</p>
</div></body></html>`

const classPage = `<html><body>
<h1>Site header</h1>
<div class="wprm-recipe-container">
  <h2 class="wprm-recipe-name">Garlic Bread</h2>
  <span class="wprm-recipe-servings">6</span>
  <div class="wprm-recipe-ingredients-container"><ul><li>1 baguette</li><li>3 cloves garlic</li></ul></div>
  <div class="wprm-recipe-instructions-container"><ul><li>Slice.</li><li>Bake.</li></ul></div>
  <div class="wprm-recipe-notes">Use butter.</div>
</div></body></html>`

// allFormats carries json_ld, microdata and class markup with different names.
const allFormats = `<html><head><script type="application/ld+json">
{"@type":"Recipe","name":"From JSON-LD","recipeIngredient":["a"],"recipeInstructions":"b"}
</script></head><body>
<div itemscope itemtype="http://schema.org/Recipe">
  <span itemprop="name">From Microdata</span>
  <span itemprop="recipeIngredient">a</span><span itemprop="recipeInstructions">b</span>
</div>
<div class="recipe-name">From Classes</div>
<ul class="recipe-ingredients"><li>a</li></ul>
<ol class="recipe-instructions"><li>b</li></ol>
</body></html>`

func page(html string) *core.Page {
	return &core.Page{URL: "https://example.com/r", HTML: html}
}

func TestJSONLDGraphAndSections(t *testing.T) {
	r, err := NewJSONLD().Extract(page(jsonLDPage))
	require.NoError(t, err)

	assert.Equal(t, "Pancakes & Syrup", r.Name)
	assert.Equal(t, []string{"1 cup flour", "1 egg"}, r.Ingredients)
	assert.Equal(t, "Mix everything .\n\nFry.", r.Instructions)

	md := r.Metadata
	assert.Equal(t, "https://example.com/r", md.Map()[recipe.KeySource])
	assert.Equal(t, "Ann", md.Map()[recipe.KeyAuthor])
	assert.Equal(t, "4 pancakes", md.Map()[recipe.KeyServings])
	assert.Equal(t, "10 minutes", md.Map()[recipe.KeyPrepTime])
	assert.Equal(t, "1 hour 5 minutes", md.Map()[recipe.KeyCookTime])
	assert.Equal(t, "Breakfast", md.Map()[recipe.KeyCourse])
	assert.Equal(t, "American", md.Map()[recipe.KeyCuisine])
	assert.Equal(t, "easy, sweet", md.Map()[recipe.KeyTags])
	assert.Equal(t, "https://example.com/p.jpg", md.Map()[recipe.KeyImage])
}

func TestJSONLDSanitizesBrokenMarkup(t *testing.T) {
	html := `<script type="application/ld+json">
	{"@type": "Recipe" "name": "Toast",
	 "recipeIngredient": ["bread",, "butter",],
	 "recipeInstructions": "Toast the
bread."}
	</script>`
	r, err := NewJSONLD().Extract(page(html))
	require.NoError(t, err)
	assert.Equal(t, "Toast", r.Name)
	assert.Equal(t, []string{"bread", "butter"}, r.Ingredients)
	assert.Equal(t, "Toast the bread.", r.Instructions)
}

func TestJSONLDWithoutRecipe(t *testing.T) {
	_, err := NewJSONLD().Extract(page(`<script type="application/ld+json">{"@type":"Article"}</script>`))
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestMicrodata(t *testing.T) {
	r, err := NewMicrodata().Extract(page(microdataPage))
	require.NoError(t, err)

	assert.Equal(t, "Tomato Soup", r.Name)
	assert.Equal(t, []string{"4 tomatoes", "1 onion"}, r.Ingredients)
	assert.Equal(t, "Chop.\n\nSimmer.", r.Instructions)
	assert.Equal(t, "Bo", r.Metadata.Map()[recipe.KeyAuthor])
	assert.Equal(t, "15 minutes", r.Metadata.Map()[recipe.KeyPrepTime])
	assert.Equal(t, "30 minutes", r.Metadata.Map()[recipe.KeyCookTime])
	assert.Equal(t, "2 bowls", r.Metadata.Map()[recipe.KeyServings])
	assert.Equal(t, "https://example.com/soup.jpg", r.Metadata.Map()[recipe.KeyImage])
}

func TestMicrodataIgnoresOtherTypes(t *testing.T) {
	_, err := NewMicrodata().Extract(page(`<div itemscope itemtype="https://schema.org/Person"><span itemprop="name">X</span></div>`))
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestHTMLClass(t *testing.T) {
	r, err := NewHTMLClass().Extract(page(classPage))
	require.NoError(t, err)

	assert.Equal(t, "Garlic Bread", r.Name)
	assert.Equal(t, []string{"1 baguette", "3 cloves garlic"}, r.Ingredients)
	assert.Equal(t, "1. Slice.\n2. Bake.", r.Instructions)
	assert.Equal(t, "6", r.Metadata.Map()[recipe.KeyServings])
	assert.Equal(t, "Use butter.", r.Metadata.Map()[recipe.KeyNotes])
}

func TestHTMLClassHeadingFallback(t *testing.T) {
	html := `<h1>Plain Rice</h1>
	<div class="structured-ingredients"><p>1 cup rice</p><p>2 cups water</p></div>
	<ol class="directions"><li>Boil.</li></ol>`
	r, err := NewHTMLClass().Extract(page(html))
	require.NoError(t, err)
	assert.Equal(t, "Plain Rice", r.Name)
	assert.Equal(t, []string{"1 cup rice", "2 cups water"}, r.Ingredients)
}

func TestHTMLClassItemClasses(t *testing.T) {
	html := `<h1>Pancakes</h1>
	<ul><li class="ingredient">2 eggs</li><li class="ingredient">1 cup milk</li></ul>
	<ol><li class="instruction">Whisk everything.</li><li class="instruction">Fry in a pan.</li></ol>`
	r, err := NewHTMLClass().Extract(page(html))
	require.NoError(t, err)
	assert.Equal(t, "Pancakes", r.Name)
	assert.Equal(t, []string{"2 eggs", "1 cup milk"}, r.Ingredients)
	assert.Equal(t, "1. Whisk everything.\n2. Fry in a pan.", r.Instructions)
}

func TestHTMLClassNestedItemClasses(t *testing.T) {
	html := `<h1>Toast</h1>
	<ul class="ingredients-list"><li class="ingredient">1 slice bread</li><li class="ingredient">butter</li></ul>
	<div class="method-steps"><p class="step">Toast the bread.</p></div>`
	r, err := NewHTMLClass().Extract(page(html))
	require.NoError(t, err)
	assert.Equal(t, []string{"1 slice bread", "butter"}, r.Ingredients)
	assert.Equal(t, "1. Toast the bread.", r.Instructions)
}

func TestHTMLClassIncompleteRecipe(t *testing.T) {
	html := `<h1>Half a recipe</h1>
	<div class="recipe-ingredients"><ul><li>1 onion</li></ul></div>`
	_, err := NewHTMLClass().Extract(page(html))
	assert.ErrorIs(t, err, ErrNoMatch)

	html = `<h1>Half a recipe</h1>
	<ol class="recipe-instructions"><li>Chop.</li></ol>`
	_, err = NewHTMLClass().Extract(page(html))
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestHTMLClassNothingFound(t *testing.T) {
	_, err := NewHTMLClass().Extract(page(`<p>hello</p>`))
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestChainOrderDecidesWinner(t *testing.T) {
	reg := NewRegistry()
	tests := []struct {
		order    []string
		wantName string
		wantBy   string
	}{
		{[]string{"json_ld", "microdata", "html_class"}, "From JSON-LD", "json_ld"},
		{[]string{"microdata", "json_ld", "html_class"}, "From Microdata", "microdata"},
		{[]string{"html_class", "json_ld"}, "From Classes", "html_class"},
	}
	for _, tt := range tests {
		t.Run(tt.wantBy, func(t *testing.T) {
			c, err := reg.NewChain(tt.order, nil)
			require.NoError(t, err)
			r, by, err := c.Extract(context.Background(), page(allFormats))
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, r.Name)
			assert.Equal(t, tt.wantBy, by)
		})
	}
}

func TestChainExhausted(t *testing.T) {
	c, err := NewRegistry().NewChain([]string{"json_ld", "microdata"}, nil)
	require.NoError(t, err)

	_, _, err = c.Extract(context.Background(), page(classPage))
	require.Error(t, err)

	var exhausted *chain.ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Len(t, exhausted.Failures, 2)
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestChainUnknownExtractor(t *testing.T) {
	_, err := NewRegistry().NewChain([]string{"json_ld", "nope"}, nil)
	assert.Error(t, err)
}

func TestHumanDuration(t *testing.T) {
	tests := map[string]string{
		"PT30M":    "30 minutes",
		"PT1H":     "1 hour",
		"PT2H30M":  "2 hours 30 minutes",
		"PT1H1M":   "1 hour 1 minute",
		"P1DT2H":   "26 hours",
		"PT15-20M": "15-20 minutes",
		"PT90S":    "2 minutes",
		"PT0M":     "",
		"20 mins":  "20 mins",
		"":         "",
	}
	for in, want := range tests {
		assert.Equal(t, want, humanDuration(in), in)
	}
}
