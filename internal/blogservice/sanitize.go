package blogservice

import "regexp"

var scriptTagPattern = regexp.MustCompile(`(?is)<\s*script[^>]*>(.*?)<\s*/\s*script\s*>`)

func stripScripts(s string) string {
	return scriptTagPattern.ReplaceAllString(s, "")
}
