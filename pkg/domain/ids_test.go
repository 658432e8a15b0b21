package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "breachledger/pkg/domain-errors"
)

func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseIncidentID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseIncidentID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseIncidentID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		got, err := ParseIncidentID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, IncidentID(valid), got)
	})
}

// Trust boundary inputs an attacker controls.
func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE incidents;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Unicode zero-width space", "550e8400\u200B-e29b-41d4-a716-446655440000", true},
		{"Braced form", "{550e8400-e29b-41d4-a716-446655440000}", true},
		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOrganizationID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	valid := uuid.New().String()

	t.Run("all accept valid UUID", func(t *testing.T) {
		_, errOrg := ParseOrganizationID(valid)
		_, errUser := ParseUserID(valid)
		_, errIncident := ParseIncidentID(valid)
		_, errVersion := ParseVersionID(valid)
		require.NoError(t, errOrg)
		require.NoError(t, errUser)
		require.NoError(t, errIncident)
		require.NoError(t, errVersion)
	})

	for _, input := range []string{"", "invalid", uuid.Nil.String()} {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errOrg := ParseOrganizationID(input)
			_, errUser := ParseUserID(input)
			_, errIncident := ParseIncidentID(input)
			_, errVersion := ParseVersionID(input)
			require.Error(t, errOrg)
			require.Error(t, errUser)
			require.Error(t, errIncident)
			require.Error(t, errVersion)
		})
	}
}

func TestIDsMarshalAsPlainStrings(t *testing.T) {
	raw := uuid.New()
	payload := struct {
		Org OrganizationID `json:"org"`
	}{Org: OrganizationID(raw)}

	b, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"org":"`+raw.String()+`"}`, string(b))

	var decoded struct {
		Org OrganizationID `json:"org"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, payload.Org, decoded.Org)
}
