// Package store persists the relayer's small durable state: relay paths, per-path
// relayed-height watermarks and per-chain gas prices. It is a thin CRUD layer over a
// bolt file with one bucket per relation and JSON-encoded records.
package store

import (
	"encoding/binary"
	"encoding/json"

	sdkmath "cosmossdk.io/math"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	relayertypes "github.com/tokenize-x/tx-relayer/relayer/types"
)

var (
	relayPathsBucket     = []byte("relay-paths")
	relayedHeightsBucket = []byte("relayed-heights")
	chainFeesBucket      = []byte("chain-fees")
)

// ChainType is the chain family of a path endpoint.
type ChainType string

// Supported chain families.
const (
	ChainTypeCosmos ChainType = "cosmos"
	ChainTypeGno    ChainType = "gno"
)

// Validate checks the chain type is a known family.
func (t ChainType) Validate() error {
	switch t {
	case ChainTypeCosmos, ChainTypeGno:
		return nil
	default:
		return errors.Wrapf(relayertypes.ErrConfig, "unknown chain type %q", t)
	}
}

// RelayPath is a persisted relay path between two chains. For IBC v1 paths ClientA and
// ClientB hold connection ids; for v2 they hold client ids.
type RelayPath struct {
	ID uint64 `json:"id"`

	ChainIDA   string `json:"chainIdA"`
	NodeA      string `json:"nodeA"`
	QueryNodeA string `json:"queryNodeA,omitempty"`
	ChainIDB   string `json:"chainIdB"`
	NodeB      string `json:"nodeB"`
	QueryNodeB string `json:"queryNodeB,omitempty"`

	ChainTypeA ChainType `json:"chainTypeA"`
	ChainTypeB ChainType `json:"chainTypeB"`

	ClientA string `json:"clientA"`
	ClientB string `json:"clientB"`

	Version relayertypes.Version `json:"version"`
}

// Validate checks the path record is complete and internally consistent.
func (p RelayPath) Validate() error {
	if p.ChainIDA == "" || p.ChainIDB == "" {
		return errors.Wrap(relayertypes.ErrConfig, "relay path chain ids must be set")
	}
	if p.NodeA == "" || p.NodeB == "" {
		return errors.Wrap(relayertypes.ErrConfig, "relay path node urls must be set")
	}
	if err := p.ChainTypeA.Validate(); err != nil {
		return err
	}
	if err := p.ChainTypeB.Validate(); err != nil {
		return err
	}
	if p.ClientA == "" || p.ClientB == "" {
		return errors.Wrap(relayertypes.ErrConfig, "relay path client ids must be set")
	}
	if p.Version != relayertypes.V1 && p.Version != relayertypes.V2 {
		return errors.Wrapf(relayertypes.ErrConfig, "unknown IBC version %d", p.Version)
	}
	if p.Version == relayertypes.V1 && (p.ChainTypeA == ChainTypeGno || p.ChainTypeB == ChainTypeGno) {
		return errors.Wrap(relayertypes.ErrConfig, "gno chains support IBC v2 only")
	}
	return nil
}

// ChainFee is the gas price record of one chain.
type ChainFee struct {
	ChainID  string          `json:"chainId"`
	GasPrice sdkmath.LegacyDec `json:"gasPrice"`
	GasDenom string          `json:"gasDenom"`
}

// Validate checks the fee record.
func (f ChainFee) Validate() error {
	if f.ChainID == "" {
		return errors.Wrap(relayertypes.ErrConfig, "chain fee chain id must be set")
	}
	if f.GasPrice.IsNil() || !f.GasPrice.IsPositive() {
		return errors.Wrap(relayertypes.ErrConfig, "gas price must be positive")
	}
	if f.GasDenom == "" {
		return errors.Wrap(relayertypes.ErrConfig, "gas denom must be set")
	}
	return nil
}

// Store is the durable KV backing the relayer.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the store file and its buckets.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "opening store %q", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{relayPathsBucket, relayedHeightsBucket, chainFeesBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "initializing store buckets")
	}
	return &Store{db: db}, nil
}

// Close closes the underlying file.
func (s *Store) Close() error {
	return s.db.Close()
}

// AddPath persists a new relay path under the next autoincrement id and returns the id.
func (s *Store) AddPath(p RelayPath) (uint64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	var id uint64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(relayPathsBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		id = seq
		p.ID = id
		bz, err := json.Marshal(p)
		if err != nil {
			return err
		}
		return b.Put(idToKey(id), bz)
	})
	if err != nil {
		return 0, errors.Wrap(err, "persisting relay path")
	}
	return id, nil
}

// Paths returns all persisted relay paths ordered by id.
func (s *Store) Paths() ([]RelayPath, error) {
	var paths []RelayPath
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(relayPathsBucket).ForEach(func(_, v []byte) error {
			var p RelayPath
			if err := json.Unmarshal(v, &p); err != nil {
				return errors.Wrap(err, "decoding relay path")
			}
			if err := p.Validate(); err != nil {
				return err
			}
			paths = append(paths, p)
			return nil
		})
	})
	return paths, err
}

// PathByID returns the path with the given id, or ErrNotFound.
func (s *Store) PathByID(id uint64) (RelayPath, error) {
	var p RelayPath
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(relayPathsBucket).Get(idToKey(id))
		if v == nil {
			return errors.Wrapf(relayertypes.ErrNotFound, "relay path %d", id)
		}
		if err := json.Unmarshal(v, &p); err != nil {
			return errors.Wrap(err, "decoding relay path")
		}
		return p.Validate()
	})
	return p, err
}

// SetHeights replaces the watermark row of a path atomically.
func (s *Store) SetHeights(pathID uint64, w relayertypes.Watermark) error {
	bz, err := json.Marshal(w)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(relayedHeightsBucket).Put(idToKey(pathID), bz)
	})
}

// Heights returns the watermark row of a path. A path without a row yet returns the
// zero watermark and found=false.
func (s *Store) Heights(pathID uint64) (relayertypes.Watermark, bool, error) {
	var (
		w     relayertypes.Watermark
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(relayedHeightsBucket).Get(idToKey(pathID))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &w)
	})
	if err != nil {
		return relayertypes.Watermark{}, false, errors.Wrap(err, "decoding relayed heights")
	}
	return w, found, nil
}

// SetChainFee records the gas price of a chain, replacing any previous record.
func (s *Store) SetChainFee(fee ChainFee) error {
	if err := fee.Validate(); err != nil {
		return err
	}
	bz, err := json.Marshal(fee)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(chainFeesBucket).Put([]byte(fee.ChainID), bz)
	})
}

// ChainFee returns the gas price record of a chain, or ErrNotFound.
func (s *Store) ChainFee(chainID string) (ChainFee, error) {
	var fee ChainFee
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(chainFeesBucket).Get([]byte(chainID))
		if v == nil {
			return errors.Wrapf(relayertypes.ErrNotFound, "gas price for chain %q", chainID)
		}
		if err := json.Unmarshal(v, &fee); err != nil {
			return errors.Wrap(err, "decoding chain fee")
		}
		return fee.Validate()
	})
	return fee, err
}

func idToKey(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}
