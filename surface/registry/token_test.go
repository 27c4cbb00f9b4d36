//go:build unix

package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_TokenIssueAndValidate(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	owner := openTest(t, cfg)
	require.NoError(t, owner.Register(5, sampleInfo()))

	tok, err := owner.CreateAccessToken(5)
	require.NoError(t, err)
	require.NotZero(t, tok.Secret)
	require.NotZero(t, tok.Generation)

	// Stable until revoked.
	again, err := owner.CreateAccessToken(5)
	require.NoError(t, err)
	require.Equal(t, tok, again)

	require.NoError(t, owner.ValidateToken(5, tok))
	require.ErrorIs(t, owner.ValidateToken(5, Token{Secret: tok.Secret + 1, Generation: tok.Generation}), ErrBadToken)
	require.ErrorIs(t, owner.ValidateToken(5, Token{Secret: tok.Secret, Generation: tok.Generation + 1}), ErrBadToken)
}

func Test_TokenOwnerTeamOnly(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	owner := openTest(t, cfg)
	require.NoError(t, owner.Register(5, sampleInfo()))

	peerCfg := cfg
	peerCfg.Team = 200
	peer := openTest(t, peerCfg)

	_, err := peer.CreateAccessToken(5)
	require.ErrorIs(t, err, ErrNotAllowed)
	require.ErrorIs(t, peer.RevokeAllAccess(5), ErrNotAllowed)
}

func Test_CrossTeamLookupWithToken(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	owner := openTest(t, cfg)
	require.NoError(t, owner.Register(5, sampleInfo()))

	tok, err := owner.CreateAccessToken(5)
	require.NoError(t, err)

	peerCfg := cfg
	peerCfg.Team = 200
	peer := openTest(t, peerCfg)

	// Denied without the token, allowed with it.
	_, err = peer.LookupInfo(5)
	require.ErrorIs(t, err, ErrNotAllowed)

	info, err := peer.LookupInfoWithToken(5, tok)
	require.NoError(t, err)
	require.Equal(t, 64, info.Width)
}

func Test_RevokeAllAccess(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	owner := openTest(t, cfg)
	require.NoError(t, owner.Register(5, sampleInfo()))

	tok, err := owner.CreateAccessToken(5)
	require.NoError(t, err)

	require.NoError(t, owner.RevokeAllAccess(5))
	require.ErrorIs(t, owner.ValidateToken(5, tok), ErrBadToken)

	// Revocation is idempotent with respect to old tokens: a second revoke
	// still leaves exactly one valid generation, and the old pair stays
	// rejected.
	require.NoError(t, owner.RevokeAllAccess(5))
	require.ErrorIs(t, owner.ValidateToken(5, tok), ErrBadToken)

	fresh, err := owner.CreateAccessToken(5)
	require.NoError(t, err)
	require.NotEqual(t, tok, fresh)
	require.NoError(t, owner.ValidateToken(5, fresh))
}

func Test_TokenBeforeIssueRejected(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	owner := openTest(t, cfg)
	require.NoError(t, owner.Register(5, sampleInfo()))

	// No token issued yet: the zero secret must never validate.
	require.ErrorIs(t, owner.ValidateToken(5, Token{}), ErrBadToken)
}
