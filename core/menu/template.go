package menu

import "strings"

// RenderPrompt interpolates {field} placeholders in a node prompt using the
// provided lookup. Placeholders without a value render empty; a literal
// brace without a closing counterpart is kept as-is.
func RenderPrompt(prompt string, lookup func(string) (string, bool)) string {
	if !strings.ContainsRune(prompt, '{') {
		return prompt
	}
	var b strings.Builder
	b.Grow(len(prompt))
	for {
		open := strings.IndexByte(prompt, '{')
		if open < 0 {
			b.WriteString(prompt)
			break
		}
		close := strings.IndexByte(prompt[open:], '}')
		if close < 0 {
			b.WriteString(prompt)
			break
		}
		close += open
		b.WriteString(prompt[:open])
		name := prompt[open+1 : close]
		if lookup != nil {
			if val, ok := lookup(name); ok {
				b.WriteString(val)
			}
		}
		prompt = prompt[close+1:]
	}
	return b.String()
}
