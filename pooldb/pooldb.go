// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package pooldb persists the present ledger state: positions, vault
// accounts, pool totals and the id sequence, each in its own key
// bucket, RLP-encoded and snappy-compressed. Every pool operation lands
// as one atomic write batch; boot loads the whole ledger back.
package pooldb

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"
	"github.com/pkg/errors"

	"github.com/palisadelabs/palisade/cache"
	"github.com/palisadelabs/palisade/kv"
	"github.com/palisadelabs/palisade/lvldb"
	"github.com/palisadelabs/palisade/palisade"
	"github.com/palisadelabs/palisade/staking"
)

const (
	positionsBucket = kv.Bucket("p")
	accountsBucket  = kv.Bucket("a")
	metaBucket      = kv.Bucket("m")

	pointCacheSize = 4 * 1024 * 1024
)

var (
	statsKey   = []byte("stats")
	genesisKey = []byte("genesis")
)

// Ledger is the persisted present state, as loaded at boot.
type Ledger struct {
	Positions []*staking.Position
	Accounts  map[palisade.Address]uint64
	Stats     staking.Stats
	Seq       uint64
}

// statsRecord packs the pool totals and the id sequence into one row.
type statsRecord struct {
	StakedBalance    uint64
	RewardBalance    uint64
	TotalStakesCount uint64
	Seq              uint64
}

// PoolDB is the ledger snapshot store.
type PoolDB struct {
	store     *lvldb.LevelDB
	positions kv.Store
	accounts  kv.Store
	meta      kv.Store
	pointed   *cache.Bytes
}

// New creates or opens the snapshot store at the given path.
func New(path string, opts lvldb.Options) (*PoolDB, error) {
	store, err := lvldb.New(path, opts)
	if err != nil {
		return nil, errors.Wrap(err, "open pooldb")
	}
	return newPoolDB(store), nil
}

// NewMem creates the snapshot store in ram.
func NewMem() (*PoolDB, error) {
	store, err := lvldb.NewMem()
	if err != nil {
		return nil, err
	}
	return newPoolDB(store), nil
}

func newPoolDB(store *lvldb.LevelDB) *PoolDB {
	return &PoolDB{
		store:     store,
		positions: positionsBucket.NewStore(store),
		accounts:  accountsBucket.NewStore(store),
		meta:      metaBucket.NewStore(store),
		pointed:   cache.NewBytes(pointCacheSize),
	}
}

// Close closes the snapshot store.
func (db *PoolDB) Close() error {
	return db.store.Close()
}

// GenesisID returns the genesis identity the data directory was
// initialized with, or a zero id when it never was.
func (db *PoolDB) GenesisID() (palisade.Bytes32, error) {
	data, err := db.meta.Get(genesisKey)
	if err != nil {
		if db.meta.IsNotFound(err) {
			return palisade.Bytes32{}, nil
		}
		return palisade.Bytes32{}, err
	}
	return palisade.BytesToBytes32(data), nil
}

// SaveLedger writes a full ledger snapshot plus the genesis identity in
// one batch. Used once, when a data directory is initialized.
func (db *PoolDB) SaveLedger(ledger *Ledger, genesisID palisade.Bytes32) error {
	bulk := db.store.Bulk()
	positions := positionsBucket.NewPutter(bulk)
	accounts := accountsBucket.NewPutter(bulk)
	meta := metaBucket.NewPutter(bulk)

	for _, pos := range ledger.Positions {
		if err := putEncoded(positions, pos.ID.Bytes(), pos); err != nil {
			return err
		}
	}
	for addr, bal := range ledger.Accounts {
		if err := putEncoded(accounts, addr.Bytes(), bal); err != nil {
			return err
		}
	}
	if err := db.putStats(meta, ledger.Stats, ledger.Seq); err != nil {
		return err
	}
	if err := meta.Put(genesisKey, genesisID.Bytes()); err != nil {
		return err
	}
	if err := bulk.Write(); err != nil {
		return errors.Wrap(err, "write ledger snapshot")
	}

	for _, pos := range ledger.Positions {
		db.cachePosition(pos)
	}
	return nil
}

// SaveOp persists everything one pool operation touched, atomically:
// the touched position (or its removal), the moved vault balances and
// the pool totals.
func (db *PoolDB) SaveOp(rec *staking.Receipt) error {
	bulk := db.store.Bulk()
	positions := positionsBucket.NewPutter(bulk)
	accounts := accountsBucket.NewPutter(bulk)
	meta := metaBucket.NewPutter(bulk)

	if rec.Position != nil {
		if err := putEncoded(positions, rec.Position.ID.Bytes(), rec.Position); err != nil {
			return err
		}
	}
	if rec.Deleted != nil {
		if err := positions.Delete(rec.Deleted.Bytes()); err != nil {
			return err
		}
	}
	for addr, bal := range rec.Accounts {
		if bal == 0 {
			if err := accounts.Delete(addr.Bytes()); err != nil {
				return err
			}
		} else if err := putEncoded(accounts, addr.Bytes(), bal); err != nil {
			return err
		}
	}
	if err := db.putStats(meta, rec.Stats, rec.Seq); err != nil {
		return err
	}
	if err := bulk.Write(); err != nil {
		return errors.Wrap(err, "write op batch")
	}

	// refresh point caches only after the batch landed
	if rec.Position != nil {
		db.cachePosition(rec.Position)
	}
	if rec.Deleted != nil {
		db.pointed.Remove(pointKey(positionsBucket, rec.Deleted.Bytes()))
	}
	for addr, bal := range rec.Accounts {
		key := pointKey(accountsBucket, addr.Bytes())
		if bal == 0 {
			db.pointed.Remove(key)
			continue
		}
		if enc, err := encode(bal); err == nil {
			db.pointed.Set(key, enc)
		}
	}
	return nil
}

// LoadLedger reads the whole persisted ledger.
func (db *PoolDB) LoadLedger() (*Ledger, error) {
	ledger := &Ledger{
		Accounts: make(map[palisade.Address]uint64),
	}

	iter := db.positions.Iterate(kv.Range{})
	defer iter.Release()
	for iter.Next() {
		var pos staking.Position
		if err := decode(iter.Value(), &pos); err != nil {
			return nil, errors.Wrap(err, "decode position")
		}
		ledger.Positions = append(ledger.Positions, &pos)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	accIter := db.accounts.Iterate(kv.Range{})
	defer accIter.Release()
	for accIter.Next() {
		var bal uint64
		if err := decode(accIter.Value(), &bal); err != nil {
			return nil, errors.Wrap(err, "decode account")
		}
		ledger.Accounts[palisade.BytesToAddress(accIter.Key())] = bal
	}
	if err := accIter.Error(); err != nil {
		return nil, err
	}

	data, err := db.meta.Get(statsKey)
	if err != nil {
		if db.meta.IsNotFound(err) {
			return ledger, nil
		}
		return nil, err
	}
	var stats statsRecord
	if err := decode(data, &stats); err != nil {
		return nil, errors.Wrap(err, "decode stats")
	}
	ledger.Stats = staking.Stats{
		StakedBalance:    stats.StakedBalance,
		RewardBalance:    stats.RewardBalance,
		TotalStakesCount: stats.TotalStakesCount,
	}
	ledger.Seq = stats.Seq
	return ledger, nil
}

// GetPosition point-reads one position through the cache.
func (db *PoolDB) GetPosition(id palisade.Bytes32) (*staking.Position, error) {
	data, err := db.pointed.GetOrLoad(pointKey(positionsBucket, id.Bytes()), func() ([]byte, error) {
		return db.positions.Get(id.Bytes())
	})
	if err != nil {
		if db.positions.IsNotFound(err) {
			return nil, errors.Wrap(staking.ErrStakeNotFound, "pooldb")
		}
		return nil, err
	}
	var pos staking.Position
	if err := decode(data, &pos); err != nil {
		return nil, errors.Wrap(err, "decode position")
	}
	return &pos, nil
}

// GetAccount point-reads one vault balance through the cache. Unknown
// accounts read as 0.
func (db *PoolDB) GetAccount(addr palisade.Address) (uint64, error) {
	data, err := db.pointed.GetOrLoad(pointKey(accountsBucket, addr.Bytes()), func() ([]byte, error) {
		return db.accounts.Get(addr.Bytes())
	})
	if err != nil {
		if db.accounts.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	var bal uint64
	if err := decode(data, &bal); err != nil {
		return 0, errors.Wrap(err, "decode account")
	}
	return bal, nil
}

func (db *PoolDB) putStats(meta kv.Putter, stats staking.Stats, seq uint64) error {
	return putEncoded(meta, statsKey, &statsRecord{
		StakedBalance:    stats.StakedBalance,
		RewardBalance:    stats.RewardBalance,
		TotalStakesCount: stats.TotalStakesCount,
		Seq:              seq,
	})
}

func (db *PoolDB) cachePosition(pos *staking.Position) {
	if enc, err := encode(pos); err == nil {
		db.pointed.Set(pointKey(positionsBucket, pos.ID.Bytes()), enc)
	}
}

func pointKey(bucket kv.Bucket, key []byte) []byte {
	return append([]byte(bucket), key...)
}

func putEncoded(putter kv.Putter, key []byte, val interface{}) error {
	enc, err := encode(val)
	if err != nil {
		return err
	}
	return putter.Put(key, enc)
}

func encode(val interface{}) ([]byte, error) {
	data, err := rlp.EncodeToBytes(val)
	if err != nil {
		return nil, errors.Wrap(err, "rlp encode")
	}
	return snappy.Encode(nil, data), nil
}

func decode(data []byte, val interface{}) error {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return errors.Wrap(err, "snappy decode")
	}
	return rlp.DecodeBytes(raw, val)
}
