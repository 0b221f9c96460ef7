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

// Package extract promotes FEL source files to analyzable Units and
// walks each Unit's subtree once to populate the structural features the
// scorer needs.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// dialect picks the grammar for one file extension. .jsx is parsed with the
// javascript grammar, which accepts embedded markup natively; .tsx gets its
// own grammar since the typescript grammar does not parse JSX.
type dialect int

const (
	dialectUnknown dialect = iota
	dialectJS
	dialectTS
	dialectTSX
)

func dialectForPath(path string) dialect {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts":
		return dialectTS
	case ".tsx":
		return dialectTSX
	case ".js", ".jsx":
		return dialectJS
	default:
		return dialectUnknown
	}
}

// Parser wraps one Tree-sitter parser per dialect. Parsers are not
// goroutine-safe, so callers running concurrent files must each hold their
// own Parser.
type Parser struct {
	logger *slog.Logger
	js     *sitter.Parser
	ts     *sitter.Parser
	tsxP   *sitter.Parser
}

// NewParser constructs a Parser with the javascript, typescript, and tsx
// grammars loaded. A nil logger defaults to slog.Default().
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}

	jsParser := sitter.NewParser()
	jsParser.SetLanguage(javascript.GetLanguage())

	tsParser := sitter.NewParser()
	tsParser.SetLanguage(typescript.GetLanguage())

	tsxParser := sitter.NewParser()
	tsxParser.SetLanguage(tsx.GetLanguage())

	return &Parser{logger: logger, js: jsParser, ts: tsParser, tsxP: tsxParser}
}

// ParsedFile is one file's syntax tree, kept open until the caller is done
// walking it.
type ParsedFile struct {
	Path    string
	Content []byte
	Tree    *sitter.Tree
	Dialect dialect
}

// Close releases the underlying Tree-sitter tree.
func (f *ParsedFile) Close() {
	if f.Tree != nil {
		f.Tree.Close()
	}
}

// Parse parses one file's content, selecting the grammar by extension.
// Syntax errors never fail the parse: Tree-sitter always returns a
// best-effort tree, and the caller is
// warned via the logger so a partial tree can still be walked.
func (p *Parser) Parse(ctx context.Context, path string, content []byte) (*ParsedFile, error) {
	d := dialectForPath(path)

	var sp *sitter.Parser
	switch d {
	case dialectJS:
		sp = p.js
	case dialectTS:
		sp = p.ts
	case dialectTSX:
		sp = p.tsxP
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", path)
	}

	tree, err := sp.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse %s: %w", path, err)
	}

	root := tree.RootNode()
	if root.HasError() {
		if n := countErrorNodes(root); n > 0 {
			p.logger.Warn("extract.parser.syntax_errors", "path", path, "error_count", n)
		}
	}

	return &ParsedFile{Path: path, Content: content, Tree: tree, Dialect: d}, nil
}

func countErrorNodes(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	count := 0
	if node.IsError() || node.IsMissing() {
		count++
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		count += countErrorNodes(node.Child(i))
	}
	return count
}

// nodeText slices the original source for a node.
func nodeText(node *sitter.Node, content []byte) string {
	return string(content[node.StartByte():node.EndByte()])
}

// nodeSpan converts Tree-sitter's 0-indexed point rows to the 1-indexed
// inclusive lines Unit.Span uses.
func nodeSpan(node *sitter.Node) (startLine, endLine int) {
	return int(node.StartPoint().Row) + 1, int(node.EndPoint().Row) + 1
}
