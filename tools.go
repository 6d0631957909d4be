//go:build tools

// Package tools pins the code generators run by go generate, mockgen for the mocks/ package.
package group_chat

import (
	_ "go.uber.org/mock/mockgen"
)
