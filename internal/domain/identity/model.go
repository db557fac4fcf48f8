package identity

import "time"

// Identity represents a registered operator of the gateway. The secret is held
// only as a slow salted hash; the plaintext never reaches storage or logs.
type Identity struct {
	ID         string
	Username   string
	SecretHash string
	CreatedAt  time.Time
}
