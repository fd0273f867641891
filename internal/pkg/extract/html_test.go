package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLExtractsTitleAndText(t *testing.T) {
	page := `<html>
<head><title>Warranty FAQ</title><style>body { color: red; }</style></head>
<body>
  <script>console.log("tracking");</script>
  <h1>Warranty</h1>
  <p>Coverage lasts two years.</p>

  <p>Claims go through the portal.</p>
</body>
</html>`

	title, text, err := HTML(strings.NewReader(page))
	require.NoError(t, err)

	assert.Equal(t, "Warranty FAQ", title)
	assert.Contains(t, text, "Coverage lasts two years.")
	assert.Contains(t, text, "Claims go through the portal.")
	assert.NotContains(t, text, "console.log")
	assert.NotContains(t, text, "color: red")
	assert.NotContains(t, text, "\n\n", "blank lines must be collapsed")
}

func TestHTMLNoTitle(t *testing.T) {
	title, text, err := HTML(strings.NewReader("<p>just a fragment</p>"))
	require.NoError(t, err)
	assert.Equal(t, "", title)
	assert.Contains(t, text, "just a fragment")
}
