// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/blinklabs-io/tally/database/types"
)

const (
	balanceKeyPrefix = "bal_"
	supplyKey        = "supply"
	slotsKey         = "slots"
)

// withTxn runs fn in txn, or in a transaction of its own when txn is nil
func (d *Database) withTxn(txn *Txn, readWrite bool, fn func(*Txn) error) error {
	if txn != nil {
		return fn(txn)
	}
	return d.Transaction(readWrite).Do(fn)
}

func encodeUint64(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

func decodeUint64(key string, val []byte) (uint64, error) {
	if len(val) != 8 {
		return 0, fmt.Errorf("invalid value length for %q: %d", key, len(val))
	}
	return binary.BigEndian.Uint64(val), nil
}

// GetBalances returns every non-zero account balance
func (d *Database) GetBalances(txn *Txn) (map[string]uint64, error) {
	ret := make(map[string]uint64)
	err := d.withTxn(txn, false, func(txn *Txn) error {
		return d.blob.Iterate(
			txn.Blob(),
			[]byte(balanceKeyPrefix),
			func(key, val []byte) error {
				balance, err := decodeUint64(string(key), val)
				if err != nil {
					return err
				}
				ret[string(key[len(balanceKeyPrefix):])] = balance
				return nil
			},
		)
	})
	if err != nil {
		return nil, fmt.Errorf("get balances: %w", err)
	}
	return ret, nil
}

// SetBalance stores an account balance. A zero balance removes the entry.
func (d *Database) SetBalance(account string, balance uint64, txn *Txn) error {
	key := []byte(balanceKeyPrefix + account)
	return d.withTxn(txn, true, func(txn *Txn) error {
		if balance == 0 {
			return d.blob.Delete(txn.Blob(), key)
		}
		return d.blob.Set(txn.Blob(), key, encodeUint64(balance))
	})
}

// GetSupply returns the total supply and whether it has been minted
func (d *Database) GetSupply(txn *Txn) (uint64, bool, error) {
	var supply uint64
	var minted bool
	err := d.withTxn(txn, false, func(txn *Txn) error {
		val, err := d.blob.Get(txn.Blob(), []byte(supplyKey))
		if err != nil {
			if errors.Is(err, types.ErrBlobKeyNotFound) {
				return nil
			}
			return err
		}
		supply, err = decodeUint64(supplyKey, val)
		if err != nil {
			return err
		}
		minted = true
		return nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("get supply: %w", err)
	}
	return supply, minted, nil
}

// SetSupply records the minted total supply
func (d *Database) SetSupply(supply uint64, txn *Txn) error {
	return d.withTxn(txn, true, func(txn *Txn) error {
		return d.blob.Set(txn.Blob(), []byte(supplyKey), encodeUint64(supply))
	})
}

// GetActiveSlots returns the stored active slot array, or nil if none was
// stored yet
func (d *Database) GetActiveSlots(txn *Txn) ([]uint64, error) {
	var ret []uint64
	err := d.withTxn(txn, false, func(txn *Txn) error {
		val, err := d.blob.Get(txn.Blob(), []byte(slotsKey))
		if err != nil {
			if errors.Is(err, types.ErrBlobKeyNotFound) {
				return nil
			}
			return err
		}
		if len(val)%8 != 0 {
			return fmt.Errorf("invalid slot array length: %d", len(val))
		}
		ret = make([]uint64, 0, len(val)/8)
		for i := 0; i < len(val); i += 8 {
			ret = append(ret, binary.BigEndian.Uint64(val[i:i+8]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get active slots: %w", err)
	}
	return ret, nil
}

// SetActiveSlots stores the active slot array
func (d *Database) SetActiveSlots(slots []uint64, txn *Txn) error {
	val := make([]byte, 0, len(slots)*8)
	for _, id := range slots {
		val = binary.BigEndian.AppendUint64(val, id)
	}
	return d.withTxn(txn, true, func(txn *Txn) error {
		return d.blob.Set(txn.Blob(), []byte(slotsKey), val)
	})
}
