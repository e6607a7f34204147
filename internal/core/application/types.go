package application

import (
	"strings"

	"github.com/thresholdvault/vault-daemon/internal/core/domain"
)

type ExecuteInheritanceRequest struct {
	VaultID      domain.VaultID
	KeyReference string
	Heirs        []domain.HeirRecord
	// GuardianSubmissions is the number of guardian shares the caller claims
	// were submitted. It is recorded but not verified against the guardian
	// registry.
	GuardianSubmissions uint64
}

func (r ExecuteInheritanceRequest) Validate() error {
	if err := domain.ValidateHeirs(r.Heirs); err != nil {
		return err
	}
	if strings.TrimSpace(r.KeyReference) == "" {
		return domain.ErrMissingKeyReference
	}
	return nil
}

type Payout struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

type InheritanceReceipt struct {
	TxID      string   `json:"txId"`
	NumInputs int      `json:"numInputs"`
	Total     uint64   `json:"total"`
	Fee       uint64   `json:"fee"`
	FeeRate   uint64   `json:"feeRate"`
	Payouts   []Payout `json:"payouts"`
}

type RegisterGuardiansRequest struct {
	VaultID      domain.VaultID
	Owner        domain.Principal
	Threshold    uint64
	KeyReference string
	Invites      []domain.GuardianInvite
}

func (r RegisterGuardiansRequest) Validate() error {
	if strings.TrimSpace(r.KeyReference) == "" {
		return domain.ErrMissingKeyReference
	}
	return domain.ValidateInvites(r.Invites, r.Threshold)
}

type SubmitShareRequest struct {
	VaultID   domain.VaultID
	EmailHash []byte
	Share     []byte
}

func (r SubmitShareRequest) Validate() error {
	if len(r.Share) <= 0 {
		return domain.ErrMissingSharePayload
	}
	if len(r.Share) > domain.MaxShareBytes {
		return domain.ErrShareTooLarge
	}
	return nil
}

type ShareReceipt struct {
	VaultID           domain.VaultID `json:"vaultId"`
	SubmittedAt       int64          `json:"submittedAt"`
	RemainingRequired uint64         `json:"remainingRequired"`
}
