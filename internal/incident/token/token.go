// Package token derives the verification token bound to one incident version.
//
// A token is HMAC-SHA256 over a canonical JSON document holding the incident
// id, version number, creation time, a collision nonce and the full snapshot.
// The HMAC key is expanded from the server secret with HKDF-SHA256. Without the secret a third party cannot recompute
// a token from guessed field values; with it, the server can prove a stored
// version is unaltered.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/hkdf"

	"breachledger/internal/incident/models"
	id "breachledger/pkg/domain"
)

// Length is the encoded token length in characters.
const Length = sha256.Size * 2

// MinSecretLength is the minimum secret size accepted by NewGenerator.
const MinSecretLength = 32

// keyInfo binds the derived key to this use; changing it invalidates every token.
const keyInfo = "breachledger incident version token v1"

// Generator computes and checks version tokens.
type Generator struct {
	secret []byte
}

// NewGenerator builds a Generator keyed with secret.
func NewGenerator(secret []byte) (*Generator, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d bytes", MinSecretLength)
	}
	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive token key: %w", err)
	}
	return &Generator{secret: key}, nil
}

// canonicalDocument fixes the field order of the signed payload.
type canonicalDocument struct {
	IncidentID    string          `json:"incident_id"`
	VersionNumber int             `json:"version_number"`
	CreatedAt     string          `json:"created_at"`
	Nonce         int             `json:"nonce"`
	Snapshot      models.Snapshot `json:"snapshot"`
}

// Canonical returns the exact bytes a token is computed over.
func Canonical(incidentID id.IncidentID, versionNumber int, snapshot models.Snapshot, createdAt time.Time, nonce int) ([]byte, error) {
	doc := canonicalDocument{
		IncidentID:    incidentID.String(),
		VersionNumber: versionNumber,
		CreatedAt:     createdAt.UTC().Format(time.RFC3339Nano),
		Nonce:         nonce,
		Snapshot:      snapshot,
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode canonical snapshot: %w", err)
	}
	return b, nil
}

// Generate returns the token for a finalized version.
func (g *Generator) Generate(incidentID id.IncidentID, versionNumber int, snapshot models.Snapshot, createdAt time.Time, nonce int) (string, error) {
	payload, err := Canonical(incidentID, versionNumber, snapshot, createdAt, nonce)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, g.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes the token for a stored version and compares it in constant time.
func (g *Generator) Verify(v *models.IncidentVersion) bool {
	if v == nil || !WellFormed(v.Token) {
		return false
	}
	expected, err := g.Generate(v.IncidentID, v.VersionNumber, v.Snapshot, v.CreatedAt, v.TokenNonce)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(v.Token))
}

// WellFormed reports whether s has the shape of a token (64 lowercase hex chars).
func WellFormed(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
