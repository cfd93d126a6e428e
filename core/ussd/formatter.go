package ussd

// Formatter renders engine replies into gateway envelopes.
type Formatter struct {
	// MaxPayloadRunes caps the whole reply including the envelope prefix.
	// Zero disables truncation.
	MaxPayloadRunes int
}

const (
	prefixContinue = "CON "
	prefixEnd      = "END "
	truncationMark = "..."
)

// Render prefixes the reply with CON or END and enforces the payload cap,
// truncating at a rune boundary with a trailing mark so a cut screen is
// visibly cut.
func (f Formatter) Render(text string, cont bool) string {
	prefix := prefixEnd
	if cont {
		prefix = prefixContinue
	}
	out := prefix + text
	if f.MaxPayloadRunes <= 0 {
		return out
	}

	runes := []rune(out)
	if len(runes) <= f.MaxPayloadRunes {
		return out
	}
	mark := []rune(truncationMark)
	keep := f.MaxPayloadRunes - len(mark)
	if keep < len([]rune(prefix)) {
		keep = len([]rune(prefix))
	}
	return string(runes[:keep]) + truncationMark
}
