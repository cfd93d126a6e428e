// Package ussd implements the conversation engine behind the gateway
// callbacks: input tokenization, the menu state machine and the CON/END
// reply envelope.
package ussd

import "strings"

// moreToken is injected into the accumulated text by gateways when the
// caller pages through a long screen. It is navigation, not an answer.
const moreToken = "98"

// Tokenize reduces the gateway's accumulated text to the caller's newest
// answer. The gateway resends the whole history joined by "*" on every
// callback. A trailing MORE token means the caller only paged through the
// current screen, so the result is empty and the screen is re-rendered;
// returning an earlier answer here would replay it against the wrong node.
func Tokenize(text string) string {
	if text == "" {
		return ""
	}
	parts := strings.Split(text, "*")
	for i := len(parts) - 1; i >= 0; i-- {
		tok := strings.TrimSpace(parts[i])
		if tok == "" {
			continue
		}
		if tok == moreToken {
			return ""
		}
		return tok
	}
	return ""
}
