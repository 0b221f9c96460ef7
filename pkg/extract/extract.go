// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"context"
	"fmt"

	"github.com/kraklabs/shade/pkg/model"
)

// ExtractFile parses one file and returns its promoted Units. A syntax
// error never aborts the scan: Parse already tolerates a partial
// tree, so this only fails when the extension is unsupported or the parse
// itself cannot run.
func ExtractFile(ctx context.Context, p *Parser, path string, content []byte) ([]model.Unit, error) {
	pf, err := p.Parse(ctx, path, content)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}
	defer pf.Close()

	return ExtractUnits(pf), nil
}
