package fixture

import (
	"fmt"

	"github.com/google/uuid"
)

// parseID accepts a UUID, or derives a stable one from any other text so
// fixtures can use readable ids.
func parseID(s string) (uuid.UUID, error) {
	if id, err := uuid.Parse(s); err == nil {
		return id, nil
	}
	if s == "" {
		return uuid.Nil, fmt.Errorf("empty id")
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(s)), nil
}
