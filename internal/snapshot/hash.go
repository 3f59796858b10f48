package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashVersion prefixes every hash. Bump it when the hashed form changes.
const HashVersion = "v1"

// Hash returns a deterministic hash of the lists in s. SavedAt is not part
// of it, so two captures of unchanged lists hash the same.
func Hash(s *State) (string, error) {
	// encoding/json writes map keys sorted, which keeps this stable.
	data, err := json.Marshal(s.Lists)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", HashVersion, hex.EncodeToString(sum[:])), nil
}
