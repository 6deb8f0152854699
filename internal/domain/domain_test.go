package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseUserID(t *testing.T) {
	req := require.New(t)

	id, err := ParseUserID("  alice ")
	req.NoError(err)
	req.Equal(UserID("alice"), id)

	_, err = ParseUserID("   ")
	req.ErrorIs(err, ErrUserIDEmpty)

	_, err = ParseUserID(strings.Repeat("x", MaxUserIDLen+1))
	req.ErrorIs(err, ErrUserIDTooLong)
}

func TestParseRole(t *testing.T) {
	req := require.New(t)

	r, err := ParseRole("caller")
	req.NoError(err)
	req.Equal(RoleCaller, r)
	req.Equal(RoleCallee, r.Other())
	req.Equal(RoleCaller, RoleCallee.Other())

	_, err = ParseRole("observer")
	req.ErrorIs(err, ErrInvalidRole)
}

func TestICECandidate_Accepts_Both_Field_Names(t *testing.T) {
	req := require.New(t)

	var short, long ICECandidate
	req.NoError(json.Unmarshal([]byte(`{"iceC":{"candidate":"a"},"offerId":"o1","who":"caller"}`), &short))
	req.NoError(json.Unmarshal([]byte(`{"candidate":{"candidate":"b"},"offerId":"o1","role":"callee"}`), &long))

	req.JSONEq(`{"candidate":"a"}`, string(short.Value()))
	req.Equal("caller", short.Side())
	req.JSONEq(`{"candidate":"b"}`, string(long.Value()))
	req.Equal("callee", long.Side())
}
