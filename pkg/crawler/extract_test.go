package crawler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Acme</title><style>body{color:red}</style></head>
<body>
  <nav><a href="/">Home</a> <a href="/pricing#plans">Pricing</a></nav>
  <h1>Acme Widgets</h1>
  <p>We build   widgets.<br>Since 1999.</p>
  <script>console.log("hidden")</script>
  <noscript>Enable JavaScript</noscript>
  <!-- comment -->
  <div><span>Fast</span> <em>shipping</em></div>
  <a href="https://blog.acme.test/news">Blog</a>
  <a href="https://twitter.com/acme">Twitter</a>
  <a href="/pricing">Pricing again</a>
  <svg><text>icon</text></svg>
</body>
</html>`

func TestExtract(t *testing.T) {
	scope, _, err := NewScope("https://acme.test")
	require.NoError(t, err)

	page, err := extract("https://acme.test/", strings.NewReader(samplePage), scope)
	require.NoError(t, err)

	assert.Equal(t, "Home\nPricing\nAcme Widgets\nWe build   widgets.\nSince 1999.\nFast\nshipping\nBlog\nTwitter\nPricing again", page.Text)
	assert.Equal(t, []string{
		"https://acme.test/",
		"https://acme.test/pricing",
		"https://blog.acme.test/news",
	}, page.Links)
	assert.NotContains(t, page.Text, "console.log")
	assert.NotContains(t, page.Text, "Acme\n")
}

func TestExtractWithoutBody(t *testing.T) {
	scope, _, err := NewScope("https://acme.test")
	require.NoError(t, err)

	page, err := extract("https://acme.test/", strings.NewReader("just text"), scope)
	require.NoError(t, err)
	assert.Equal(t, "just text", page.Text)
	assert.Empty(t, page.Links)
}
