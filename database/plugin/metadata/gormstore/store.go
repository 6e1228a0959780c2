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

// Package gormstore implements the metadata store operations shared by the
// gorm-backed metadata plugins
package gormstore

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/blinklabs-io/tally/database/models"
	"github.com/blinklabs-io/tally/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"
)

// Store wraps an open gorm handle. Methods that take a types.Txn use the
// handle directly when the txn is nil.
type Store struct {
	db *gorm.DB
}

// New wraps db, enables query tracing and migrates the table schemas
func New(db *gorm.DB, logger *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, errors.New("nil gorm handle")
	}
	// Configure tracing for GORM
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(logger); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(logger *slog.Logger) error {
	toMigrate := append([]any{&CommitTimestamp{}}, models.MigrateModels...)
	for _, model := range toMigrate {
		if logger != nil {
			logger.Debug(
				fmt.Sprintf("creating table: %T", model),
				"component", "database",
			)
		}
		if err := s.db.AutoMigrate(model); err != nil {
			return err
		}
	}
	return nil
}

// RegisterMetrics exposes connection pool statistics under the given name
func (s *Store) RegisterMetrics(reg prometheus.Registerer, name string) error {
	if reg == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return reg.Register(collectors.NewDBStatsCollector(sqlDB, name))
}

// DB returns the underlying gorm handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction begins a new transaction
func (s *Store) Transaction() types.Txn {
	tx := s.db.Begin()
	if tx.Error != nil {
		return &Txn{beginErr: tx.Error}
	}
	return &Txn{db: tx, owner: s}
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	return sqlDB.Close()
}

func (s *Store) resolveDB(txn types.Txn) (*gorm.DB, error) {
	if txn == nil {
		return s.db, nil
	}
	gTxn, ok := txn.(*Txn)
	if !ok {
		return nil, types.ErrTxnWrongType
	}
	if gTxn.beginErr != nil {
		return nil, gTxn.beginErr
	}
	if gTxn.owner != s {
		return nil, errors.New("transaction from different store")
	}
	if gTxn.finished {
		return nil, types.ErrTxnFinished
	}
	return gTxn.db, nil
}
