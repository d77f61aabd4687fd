package domain

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// NewID returns a prefixed identifier like "sim_1a2b3c4d" built from the
// first 4 bytes of a random UUID.
func NewID(prefix string) string {
	u := uuid.New()
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(u[:4]))
}
