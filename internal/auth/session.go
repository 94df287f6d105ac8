// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// privateKey and publicKey sign and verify the session credentials handed
// out on room creation and join. Keys are generated per process: tokens
// only need to survive a client reconnect, not a server restart (the Redis
// mirror handles restarts).
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// TokenTTL bounds how long a stored credential can be replayed into a
	// reconnect. Zero means no expiry claim.
	TokenTTL time.Duration
)

// Role distinguishes host credentials from player credentials.
type Role string

const (
	RoleHost   Role = "host"
	RolePlayer Role = "player"
)

// Claims is the verified content of a session credential.
type Claims struct {
	SessionID string
	PlayerID  string // empty for host tokens
	Role      Role
}

// Init generates a fresh ed25519 key pair and reads TOKEN_TTL from the
// environment (defaults to 6h).
func Init() {
	var err error
	publicKey, privateKey, err = ed25519.GenerateKey(nil)
	if err != nil {
		fmt.Printf("failed to generate ed25519 key pair: %v\n", err)
		os.Exit(1)
	}
	TokenTTL = 6 * time.Hour
	if raw := os.Getenv("TOKEN_TTL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			fmt.Printf("failed to parse TOKEN_TTL: %v\n", err)
			os.Exit(1)
		}
		TokenTTL = d
	}
}

// CreateSessionToken signs a credential binding a session, a role, and (for
// players) a playerId. Clients store it and present it when reconnecting.
func CreateSessionToken(sessionID string, role Role, playerID string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  sessionID,
		"role": string(role),
	}
	if playerID != "" {
		claims["pid"] = playerID
	}
	if TokenTTL > 0 {
		claims["exp"] = time.Now().Add(TokenTTL).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// VerifySessionToken parses and validates a credential, returning its
// claims.
func VerifySessionToken(tokenString string) (*Claims, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid jwt claims")
	}
	sessionID, ok := claims["sub"].(string)
	if !ok {
		return nil, fmt.Errorf("missing sub in jwt")
	}
	role, ok := claims["role"].(string)
	if !ok {
		return nil, fmt.Errorf("missing role in jwt")
	}
	out := &Claims{SessionID: sessionID, Role: Role(role)}
	if pid, ok := claims["pid"].(string); ok {
		out.PlayerID = pid
	}
	return out, nil
}
