package upload

import (
	"fmt"
	"html"

	"uplink/internal/textutil"
)

// placeholderRefreshSeconds is how often the placeholder page reloads itself
// while it waits to be replaced by the real asset.
const placeholderRefreshSeconds = 15

// placeholderHTML synthesizes the "processing" page served at the share URL
// between detection and the real upload. The page reloads itself so a visitor
// who opened the link early lands on the video once the object is replaced.
func placeholderHTML(baseName string) []byte {
	title := html.EscapeString(textutil.DisplayTitle(baseName))
	return fmt.Appendf(nil, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="%d">
<title>%s</title>
<style>
body { margin: 0; height: 100vh; display: flex; align-items: center; justify-content: center; font-family: sans-serif; background: #111; color: #eee; }
main { text-align: center; }
p { color: #888; }
</style>
</head>
<body>
<main>
<h1>%s</h1>
<p>This recording is still processing. The page refreshes on its own.</p>
</main>
</body>
</html>
`, placeholderRefreshSeconds, title, title)
}
