// Package keyring stores relayer signing mnemonics in the OS keyring.
package keyring

import (
	"strings"

	"github.com/99designs/keyring"
	bip39 "github.com/cosmos/go-bip39"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	relayertypes "github.com/tokenize-x/tx-relayer/relayer/types"
)

// serviceName is the OS keyring service namespace used by the relayer.
const serviceName = "tx-relayer"

// mnemonicKeyPrefix namespaces mnemonic records inside the service.
const mnemonicKeyPrefix = "mnemonic"

var validWordCounts = []int{12, 15, 18, 21, 24}

// Keyring wraps the OS keyring for mnemonic records keyed by chain id.
type Keyring struct {
	ring keyring.Keyring
}

// Open opens the relayer's OS keyring namespace.
func Open() (*Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:              serviceName,
		KeychainTrustApplication: true,
		FilePasswordFunc:         func(_ string) (string, error) { return "", nil },
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open OS keyring %q", serviceName)
	}
	return &Keyring{ring: ring}, nil
}

// ValidateMnemonic checks the word count (12/15/18/21/24) and the BIP-39 checksum.
func ValidateMnemonic(mnemonic string) error {
	mnemonic = strings.TrimSpace(mnemonic)
	if mnemonic == "" {
		return errors.Wrap(relayertypes.ErrConfig, "empty mnemonic")
	}
	words := strings.Fields(mnemonic)
	if !lo.Contains(validWordCounts, len(words)) {
		return errors.Wrapf(relayertypes.ErrConfig, "mnemonic must have 12, 15, 18, 21 or 24 words, got %d", len(words))
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return errors.Wrap(relayertypes.ErrConfig, "invalid mnemonic checksum")
	}
	return nil
}

// SetMnemonic validates and stores the mnemonic under ("mnemonic", chainID).
func (k *Keyring) SetMnemonic(chainID, mnemonic string) error {
	if chainID == "" {
		return errors.Wrap(relayertypes.ErrConfig, "chain id must be set")
	}
	if err := ValidateMnemonic(mnemonic); err != nil {
		return err
	}
	return k.ring.Set(keyring.Item{
		Key:  mnemonicKey(chainID),
		Data: []byte(strings.TrimSpace(mnemonic)),
	})
}

// Mnemonic returns the mnemonic stored for chainID, or ErrNotFound.
func (k *Keyring) Mnemonic(chainID string) (string, error) {
	item, err := k.ring.Get(mnemonicKey(chainID))
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", errors.Wrapf(relayertypes.ErrNotFound, "mnemonic for chain %q", chainID)
		}
		return "", errors.Wrapf(err, "reading mnemonic for chain %q", chainID)
	}
	return string(item.Data), nil
}

func mnemonicKey(chainID string) string {
	return mnemonicKeyPrefix + "-" + chainID
}
