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

package node

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/tally/api"
	"github.com/blinklabs-io/tally/database"
	"github.com/blinklabs-io/tally/governance"
	"github.com/blinklabs-io/tally/internal/config"
)

// Snapshot is the offline view of stored governance state
type Snapshot struct {
	Proposals   []api.ProposalResponse `json:"proposals"`
	Active      []uint64               `json:"active"`
	TotalSupply string                 `json:"total_supply"`
	Count       uint64                 `json:"count"`
}

// Dump opens the database without starting the API and writes the stored
// proposals as JSON
func Dump(cfg *config.Config, logger *slog.Logger, w io.Writer) error {
	db, err := database.New(&database.Config{
		DataDir:        cfg.DatabasePath,
		Logger:         logger,
		BlobPlugin:     cfg.BlobPlugin,
		MetadataPlugin: cfg.MetadataPlugin,
	})
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	governor, err := governance.NewGovernor(governance.GovernorConfig{
		Logger:   logger,
		Database: db,
	})
	if err != nil {
		return fmt.Errorf("failed to load governance state: %w", err)
	}
	snap := Snapshot{
		Proposals:   []api.ProposalResponse{},
		Active:      []uint64{},
		TotalSupply: fmt.Sprintf("%d", governor.TotalSupply()),
		Count:       governor.ProposalCount(),
	}
	for _, p := range governor.Proposals() {
		snap.Proposals = append(snap.Proposals, api.NewProposalResponse(p))
	}
	for _, p := range governor.ActiveProposals() {
		snap.Active = append(snap.Active, uint64(p.ID))
	}
	logger.Debug(
		fmt.Sprintf("dumping %d proposals", snap.Count),
		"component", "node",
	)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}
