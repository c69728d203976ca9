package accounts

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/velocity-wallet/velocity/internal/wallet"
	"github.com/velocity-wallet/velocity/pkg/crypto"
	"github.com/velocity-wallet/velocity/pkg/types"
)

// StateVersion is the schema version written by encodeState.
// Version 0 is the bare JSON array of accounts with no envelope.
const StateVersion = 1

// state is the persisted envelope around the account collection.
// Checksum covers the compact JSON encoding of Accounts.
type state struct {
	Version  int             `json:"version"`
	Active   int             `json:"active"`
	Checksum types.Checksum  `json:"checksum"`
	Accounts json.RawMessage `json:"accounts"`
}

func encodeState(accts []wallet.Account, active int) ([]byte, error) {
	if accts == nil {
		accts = []wallet.Account{}
	}
	raw, err := json.Marshal(accts)
	if err != nil {
		return nil, fmt.Errorf("marshal accounts: %w", err)
	}
	return json.Marshal(state{
		Version:  StateVersion,
		Active:   active,
		Checksum: crypto.Sum(raw),
		Accounts: raw,
	})
}

// decodeState parses a persisted collection. Every failure wraps
// ErrCorruptState. Each account is re-derived to confirm its keys.
func decodeState(data []byte) ([]wallet.Account, int, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, 0, fmt.Errorf("%w: empty payload", ErrCorruptState)
	}

	var (
		accts  []wallet.Account
		active int
	)
	if data[0] == '[' {
		if err := json.Unmarshal(data, &accts); err != nil {
			return nil, 0, fmt.Errorf("%w: legacy payload: %v", ErrCorruptState, err)
		}
	} else {
		var st state
		if err := json.Unmarshal(data, &st); err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrCorruptState, err)
		}
		if st.Version != StateVersion {
			return nil, 0, fmt.Errorf("%w: unsupported version %d", ErrCorruptState, st.Version)
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, st.Accounts); err != nil {
			return nil, 0, fmt.Errorf("%w: accounts: %v", ErrCorruptState, err)
		}
		if !crypto.Verify(compact.Bytes(), st.Checksum) {
			return nil, 0, fmt.Errorf("%w: checksum mismatch", ErrCorruptState)
		}
		if err := json.Unmarshal(compact.Bytes(), &accts); err != nil {
			return nil, 0, fmt.Errorf("%w: accounts: %v", ErrCorruptState, err)
		}
		active = st.Active
	}

	if len(accts) == 0 {
		if active != 0 {
			return nil, 0, fmt.Errorf("%w: active %d with no accounts", ErrCorruptState, active)
		}
		return nil, 0, nil
	}
	if active < 0 || active >= len(accts) {
		return nil, 0, fmt.Errorf("%w: active %d outside %d accounts", ErrCorruptState, active, len(accts))
	}
	for i, a := range accts {
		if err := a.Verify(); err != nil {
			return nil, 0, fmt.Errorf("%w: account %d: %v", ErrCorruptState, i, err)
		}
	}
	return accts, active, nil
}
