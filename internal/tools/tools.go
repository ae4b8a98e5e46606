//go:build tools

// Package tools pins codegen tool versions in go.mod without letting them
// leak into the normal build. go generate has never been run against this
// tree: vm/opcode_string.go and TokenKind.String() are both hand-written.
package tools

import (
	_ "golang.org/x/tools/cmd/stringer"
)
