package model

import (
	"fmt"

	"github.com/google/uuid"
)

// NewID returns a fresh entity id.
func NewID() string {
	return uuid.NewString()
}

// NewLeafID returns a fresh leaf id in the short leaf-<hex> form used
// throughout the API.
func NewLeafID() string {
	return fmt.Sprintf("leaf-%.8s", uuid.New().String())
}
