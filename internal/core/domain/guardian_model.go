package domain

import (
	"bytes"
	"fmt"
	"strings"
)

// Principal is the opaque identity of an already authenticated caller.
type Principal string

// Bytes ...
func (p Principal) Bytes() []byte {
	return []byte(p)
}

// GuardianStatus represents the lifecycle stage of a guardian.
//
//	Invited --accept--> Accepted --submit--> ShareSubmitted
type GuardianStatus int

const (
	GuardianStatusInvited GuardianStatus = iota
	GuardianStatusAccepted
	GuardianStatusShareSubmitted
)

func (s GuardianStatus) String() string {
	switch s {
	case GuardianStatusInvited:
		return "Invited"
	case GuardianStatusAccepted:
		return "Accepted"
	case GuardianStatusShareSubmitted:
		return "ShareSubmitted"
	default:
		return "Unknown"
	}
}

// MarshalText ...
func (s GuardianStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText ...
func (s *GuardianStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Invited":
		*s = GuardianStatusInvited
	case "Accepted":
		*s = GuardianStatusAccepted
	case "ShareSubmitted":
		*s = GuardianStatusShareSubmitted
	default:
		return fmt.Errorf("unknown guardian status %q", text)
	}
	return nil
}

// GuardianInvite is the owner provided data of a guardian to register.
type GuardianInvite struct {
	Email string `json:"email"`
	Alias string `json:"alias"`
}

// GuardianEntry is a member of the recovery quorum of a vault.
type GuardianEntry struct {
	EmailHash      []byte
	Alias          string
	Status         GuardianStatus
	BoundIdentity  Principal
	EncryptedShare []byte
	SubmittedAt    int64
	UpdatedAt      int64
}

// GuardianRecord is the public projection of a guardian, it never carries the
// encrypted share.
type GuardianRecord struct {
	EmailHash     []byte         `json:"emailHash"`
	Alias         string         `json:"alias"`
	Status        GuardianStatus `json:"status"`
	BoundIdentity Principal      `json:"principalId,omitempty"`
}

// IsBound returns whether the guardian accepted the invitation.
func (g *GuardianEntry) IsBound() bool {
	return g.BoundIdentity != ""
}

// HasShare ...
func (g *GuardianEntry) HasShare() bool {
	return len(g.EncryptedShare) > 0
}

// Record ...
func (g *GuardianEntry) Record() GuardianRecord {
	return GuardianRecord{
		EmailHash:     append([]byte{}, g.EmailHash...),
		Alias:         g.Alias,
		Status:        g.Status,
		BoundIdentity: g.BoundIdentity,
	}
}

// Accept binds the guardian to caller and brings it to the Accepted status.
// Accepting again with the same identity is a no-op, while a different
// identity is rejected with ErrPrincipalMismatch.
func (g *GuardianEntry) Accept(caller Principal, now int64) error {
	if caller == "" {
		return ErrUnauthorized
	}
	if g.IsBound() {
		if g.BoundIdentity != caller {
			return ErrPrincipalMismatch
		}
		return nil
	}

	g.BoundIdentity = caller
	g.Status = GuardianStatusAccepted
	g.UpdatedAt = now
	return nil
}

// CanSubmitShare checks that caller is allowed to submit the share of this
// guardian right now.
func (g *GuardianEntry) CanSubmitShare(caller Principal) error {
	if !g.IsBound() {
		return ErrGuardianNotAccepted
	}
	if g.BoundIdentity != caller {
		return ErrUnauthorized
	}
	if g.HasShare() {
		return ErrShareAlreadySubmitted
	}
	if g.Status != GuardianStatusAccepted {
		return ErrGuardianNotAccepted
	}
	return nil
}

// CommitShare re-validates the submission preconditions and stores the
// encrypted share, bringing the guardian to its terminal status.
func (g *GuardianEntry) CommitShare(
	caller Principal, ciphertext []byte, now int64,
) error {
	if err := g.CanSubmitShare(caller); err != nil {
		return err
	}
	if len(ciphertext) == 0 {
		return NewError(KindCryptoFailure, "empty share ciphertext")
	}

	g.EncryptedShare = append([]byte{}, ciphertext...)
	g.Status = GuardianStatusShareSubmitted
	g.SubmittedAt = now
	g.UpdatedAt = now
	return nil
}

// Copy returns a deep copy of the entry.
func (g GuardianEntry) Copy() GuardianEntry {
	g.EmailHash = append([]byte{}, g.EmailHash...)
	if g.EncryptedShare != nil {
		g.EncryptedShare = append([]byte{}, g.EncryptedShare...)
	}
	return g
}

// ThresholdStatus summarizes the share submissions of a vault.
type ThresholdStatus struct {
	Submitted    uint64 `json:"submitted"`
	ThresholdMet bool   `json:"thresholdMet"`
}

// VaultGuardianSet is the recovery quorum of a vault.
type VaultGuardianSet struct {
	VaultID      VaultID
	Owner        Principal
	Threshold    uint64
	KeyReference string
	Guardians    []GuardianEntry
	CreatedAt    int64
	UpdatedAt    int64
}

// ValidateInvites checks guardian count, threshold and that every invite has
// an alias and a unique non-empty email.
func ValidateInvites(invites []GuardianInvite, threshold uint64) error {
	if len(invites) < MinGuardians || len(invites) > MaxGuardians {
		return ErrInvalidGuardianCount
	}
	if threshold < MinThreshold || threshold > uint64(len(invites)) {
		return ErrInvalidThreshold
	}

	seen := make(map[string]struct{}, len(invites))
	for _, invite := range invites {
		email := CanonicalEmail(invite.Email)
		if email == "" {
			return ErrMissingEmail
		}
		if _, ok := seen[email]; ok {
			return ErrDuplicateEmail
		}
		seen[email] = struct{}{}
		if strings.TrimSpace(invite.Alias) == "" {
			return ErrMissingAlias
		}
	}
	return nil
}

// NewVaultGuardianSet validates the invites and returns a guardian set with
// every guardian in Invited status.
func NewVaultGuardianSet(
	vaultID VaultID, owner Principal, threshold uint64, keyReference string,
	invites []GuardianInvite, now int64,
) (*VaultGuardianSet, error) {
	if err := ValidateInvites(invites, threshold); err != nil {
		return nil, err
	}

	guardians := make([]GuardianEntry, 0, len(invites))
	for _, invite := range invites {
		guardians = append(guardians, GuardianEntry{
			EmailHash: HashEmail(invite.Email),
			Alias:     strings.TrimSpace(invite.Alias),
			Status:    GuardianStatusInvited,
			UpdatedAt: now,
		})
	}

	return &VaultGuardianSet{
		VaultID:      vaultID,
		Owner:        owner,
		Threshold:    threshold,
		KeyReference: keyReference,
		Guardians:    guardians,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// FindGuardian returns the index of the guardian with the given email hash.
func (s *VaultGuardianSet) FindGuardian(emailHash []byte) (int, error) {
	for i := range s.Guardians {
		if bytes.Equal(s.Guardians[i].EmailHash, emailHash) {
			return i, nil
		}
	}
	return -1, ErrGuardianNotFound
}

// SubmittedCount is the number of guardians holding an encrypted share.
func (s *VaultGuardianSet) SubmittedCount() uint64 {
	var count uint64
	for i := range s.Guardians {
		if s.Guardians[i].HasShare() {
			count++
		}
	}
	return count
}

// Status ...
func (s *VaultGuardianSet) Status() ThresholdStatus {
	submitted := s.SubmittedCount()
	return ThresholdStatus{
		Submitted:    submitted,
		ThresholdMet: submitted >= s.Threshold,
	}
}

// RemainingRequired is the number of shares still missing to meet the
// threshold, never negative.
func (s *VaultGuardianSet) RemainingRequired() uint64 {
	submitted := s.SubmittedCount()
	if submitted >= s.Threshold {
		return 0
	}
	return s.Threshold - submitted
}

// IsGuardian returns whether p is bound to any guardian of the set.
func (s *VaultGuardianSet) IsGuardian(p Principal) bool {
	if p == "" {
		return false
	}
	for i := range s.Guardians {
		if s.Guardians[i].BoundIdentity == p {
			return true
		}
	}
	return false
}

// Records ...
func (s *VaultGuardianSet) Records() []GuardianRecord {
	records := make([]GuardianRecord, 0, len(s.Guardians))
	for i := range s.Guardians {
		records = append(records, s.Guardians[i].Record())
	}
	return records
}

// Copy returns a deep copy of the set.
func (s VaultGuardianSet) Copy() VaultGuardianSet {
	guardians := make([]GuardianEntry, 0, len(s.Guardians))
	for _, g := range s.Guardians {
		guardians = append(guardians, g.Copy())
	}
	s.Guardians = guardians
	return s
}
