package common

import (
	"github.com/google/uuid"
)

// NewBuildID generates a unique index build identifier with the "build_" prefix
// Format: build_<uuid>
func NewBuildID() string {
	return "build_" + uuid.New().String()
}
