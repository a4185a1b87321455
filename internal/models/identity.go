package models

// Identity is the immutable per-request view of an authenticated user.
// It is never persisted: it is built fresh on every token resolution as
// a projection over the User row and its ownership and ledger relations,
// so role or grant changes take effect on the next request rather than
// at the token's next issuance.
type Identity struct {
	ID       string
	Email    string
	FullName string
	Roles    []string

	ownedFiles map[string]struct{}
	grants     map[string]PermissionMask
}

// NewIdentity projects a loaded user (with OwnedFiles and Grants
// preloaded) into an Identity.
func NewIdentity(user *User) *Identity {
	if user == nil {
		return nil
	}

	identity := &Identity{
		ID:         user.ID,
		Email:      user.Email,
		FullName:   user.FullName,
		Roles:      append([]string(nil), user.Roles...),
		ownedFiles: make(map[string]struct{}, len(user.OwnedFiles)),
		grants:     make(map[string]PermissionMask, len(user.Grants)),
	}

	for _, file := range user.OwnedFiles {
		identity.ownedFiles[file.ID] = struct{}{}
	}
	for _, grant := range user.Grants {
		identity.grants[grant.FileID] = grant.Mask
	}

	return identity
}

// HasRole reports whether the identity carries the given role tag.
func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	for _, tag := range i.Roles {
		if tag == role {
			return true
		}
	}
	return false
}

// OwnsFile reports whether the identity created the file. Ownership is
// implicit full control and is never represented as a ledger entry.
func (i *Identity) OwnsFile(fileID string) bool {
	if i == nil {
		return false
	}
	_, ok := i.ownedFiles[fileID]
	return ok
}

// GrantFor returns the ledger mask the identity holds on the file, if any.
func (i *Identity) GrantFor(fileID string) (PermissionMask, bool) {
	if i == nil {
		return 0, false
	}
	mask, ok := i.grants[fileID]
	return mask, ok
}
