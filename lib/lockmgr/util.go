package lockmgr

import "crypto/rand"

const bitLength = 256

// generateOwnerID creates a new unique owner ID as a random byte slice.
func generateOwnerID() ([]byte, error) {
	randomBytes := make([]byte, bitLength/8)
	_, err := rand.Read(randomBytes)
	return randomBytes, err
}
