package menu

import _ "embed"

//go:embed default_tree.yaml
var defaultTree []byte

// Default returns the embedded marketplace tree. It panics on parse failure,
// which can only happen when the embedded definition itself is broken.
func Default() *Tree {
	t, err := Parse(defaultTree)
	if err != nil {
		panic(err)
	}
	return t
}
