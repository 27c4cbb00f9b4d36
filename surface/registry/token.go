package registry

import (
	"crypto/rand"
	"encoding/binary"
)

// Token authorizes cross-team access to one surface. The pair is compared
// verbatim; possession is the whole credential, so tokens should travel over
// channels the owner trusts.
type Token struct {
	Secret     uint64
	Generation uint32
}

// CreateAccessToken issues the current access token for id. Only the owning
// team may issue tokens. Repeated calls return the same pair until
// RevokeAllAccess regenerates it.
func (r *Registry) CreateAccessToken(id SurfaceID) (Token, error) {
	r.lk.lock()
	defer r.lk.unlock()

	slot := r.findSlot(id)
	if slot < 0 {
		return Token{}, ErrNotFound
	}
	e := r.entryAt(slot)
	if e.ownerTeam() != r.team {
		return Token{}, ErrNotAllowed
	}
	if e.tokenSecret() == 0 {
		e.setTokenSecret(newSecret())
		e.setTokenGeneration(e.tokenGeneration() + 1)
	}
	return Token{Secret: e.tokenSecret(), Generation: e.tokenGeneration()}, nil
}

// ValidateToken checks a presented token against the entry's current pair.
func (r *Registry) ValidateToken(id SurfaceID, tok Token) error {
	r.lk.lock()
	defer r.lk.unlock()

	slot := r.findSlot(id)
	if slot < 0 {
		return ErrNotFound
	}
	e := r.entryAt(slot)
	if !tokenMatches(e, tok) {
		return ErrBadToken
	}
	return nil
}

// LookupInfoWithToken returns the entry for id to any team presenting a
// valid token. This is the cross-team import path.
func (r *Registry) LookupInfoWithToken(id SurfaceID, tok Token) (Info, error) {
	r.lk.lock()
	defer r.lk.unlock()

	slot := r.findSlot(id)
	if slot < 0 {
		return Info{}, ErrNotFound
	}
	e := r.entryAt(slot)
	if !tokenMatches(e, tok) {
		return Info{}, ErrBadToken
	}
	return e.info(), nil
}

// RevokeAllAccess regenerates the secret and bumps the generation,
// invalidating every token issued so far. Total revocation only; there is
// no per-holder variant. Owner team only.
func (r *Registry) RevokeAllAccess(id SurfaceID) error {
	r.lk.lock()
	defer r.lk.unlock()

	slot := r.findSlot(id)
	if slot < 0 {
		return ErrNotFound
	}
	e := r.entryAt(slot)
	if e.ownerTeam() != r.team {
		return ErrNotAllowed
	}
	e.setTokenSecret(newSecret())
	e.setTokenGeneration(e.tokenGeneration() + 1)
	return nil
}

func tokenMatches(e entry, tok Token) bool {
	secret := e.tokenSecret()
	return secret != 0 && tok.Secret == secret && tok.Generation == e.tokenGeneration()
}

// newSecret draws a nonzero random secret. Zero is reserved for "no token
// issued".
func newSecret() uint64 {
	var buf [8]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			panic("registry: cannot read random source: " + err.Error())
		}
		if s := binary.LittleEndian.Uint64(buf[:]); s != 0 {
			return s
		}
	}
}
