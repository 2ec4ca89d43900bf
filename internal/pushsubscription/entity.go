package pushsubscription

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

type Subscription struct {
	ID        string    `yaml:"id"`
	Endpoint  string    `yaml:"endpoint"`
	P256dhKey string    `yaml:"p256dh_key"`
	AuthKey   string    `yaml:"auth_key"`
	CreatedAt time.Time `yaml:"created_at"`
}

// IDFor derives the subscription id from its endpoint, so registering the
// same browser twice overwrites one record.
func IDFor(endpoint string) string {
	sum := sha256.Sum256([]byte(endpoint))
	return hex.EncodeToString(sum[:12])
}
