package menu

// Kind classifies how a node consumes input and produces its choice set.
type Kind string

const (
	// KindMenu presents a static numbered choice set.
	KindMenu Kind = "menu"
	// KindCapture accepts free text, stores it under Capture and moves to Next.
	KindCapture Kind = "capture"
	// KindPaged presents a choice set computed from a repository query on
	// every visit: item selections, a next-page choice and a back choice.
	KindPaged Kind = "paged"
	// KindTerminal ends the conversation after running its Effect.
	KindTerminal Kind = "terminal"
)

// Effect names runnable terminal side effects. The set is closed and
// verified when the tree is validated.
const (
	// EffectNone ends the conversation without side effects.
	EffectNone = "none"
	// EffectPublishListing writes the collected fields as a new listing.
	EffectPublishListing = "publish_listing"
	// EffectRevealContact resolves the selected listing's contact through
	// the visibility gate and shows the routing-safe value.
	EffectRevealContact = "reveal_contact"
)

// Validator names accepted by capture nodes. The set is closed and verified
// when the tree is validated.
const (
	// ValidateText requires non-empty free text.
	ValidateText = "text"
	// ValidateName requires non-empty text without digits.
	ValidateName = "name"
	// ValidatePhone requires a phone-number-like value.
	ValidatePhone = "phone"
)

// Choice binds one input token to a transition target.
type Choice struct {
	Input string `yaml:"input"`
	Label string `yaml:"label,omitempty"`
	Next  string `yaml:"next"`
}

// Node is one screen of the conversation. Nodes are immutable at runtime.
type Node struct {
	ID     string `yaml:"id"`
	Kind   Kind   `yaml:"kind"`
	Prompt string `yaml:"prompt"`
	// Choices declares the static transitions of menu nodes. For paged
	// nodes it holds only the static part of the choice set (the back
	// choice); item and next-page choices are computed at render time.
	Choices []Choice `yaml:"choices,omitempty"`
	// Capture names the field a taken choice's label (menu nodes) or the
	// validated raw input (capture nodes) is stored under.
	Capture string `yaml:"capture,omitempty"`
	// Validate names the validator applied to capture input.
	Validate string `yaml:"validate,omitempty"`
	// Next is the transition target of capture nodes, and the node an item
	// selection on a paged node leads to.
	Next string `yaml:"next,omitempty"`
	// Effect names the terminal side effect.
	Effect string `yaml:"effect,omitempty"`
}

// ChoiceFor returns the static choice matching input, if any.
func (n *Node) ChoiceFor(input string) (Choice, bool) {
	for _, c := range n.Choices {
		if c.Input == input {
			return c, true
		}
	}
	return Choice{}, false
}

// Terminal reports whether the node ends the conversation.
func (n *Node) Terminal() bool {
	return n.Kind == KindTerminal
}
