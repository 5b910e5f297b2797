package plants

import (
	"strings"

	"github.com/google/uuid"
)

var seedNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("h2-backend/plants"))

// SeedID maps a plant name to a fixed UUID so re-seeding updates rows in
// place instead of duplicating them.
func SeedID(name string) string {
	return uuid.NewSHA1(seedNamespace, []byte(strings.ToLower(strings.TrimSpace(name)))).String()
}
