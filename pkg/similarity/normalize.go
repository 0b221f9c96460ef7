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

// Package similarity normalizes Unit bodies to a token stream, shingles
// them, MinHash-clusters near-duplicates, and confirms candidates with
// exact Jaccard.
package similarity

import "regexp"

const normalizerVersion = "shade-normalizer-v1"

// NormalizerVersion is mixed into Cache similarity keys so cached
// shingles and signatures invalidate when the tokenizer changes.
func NormalizerVersion() string { return normalizerVersion }

// keywordAllowlist is the FEL reserved-word set plus common built-ins and
// the reactive-effect vocabulary: tokens here are preserved
// verbatim rather than collapsed to _VAR, so two Units that differ only
// in which control-flow keywords they use still read as different code.
var keywordAllowlist = buildAllowlist()

func buildAllowlist() map[string]bool {
	words := []string{
		// FEL reserved words.
		"const", "let", "var", "function", "return", "if", "else", "for", "while",
		"do", "switch", "case", "default", "break", "continue", "try", "catch",
		"finally", "throw", "new", "delete", "typeof", "instanceof", "in", "of",
		"class", "extends", "super", "this", "import", "export", "from", "as",
		"async", "await", "yield", "static", "get", "set", "null", "undefined",
		"true", "false", "void", "interface", "type", "enum", "namespace",
		"implements", "public", "private", "protected", "readonly", "abstract",
		"declare", "module", "is", "keyof", "infer", "satisfies",
		// common built-ins.
		"console", "Object", "Array", "Map", "Set", "Promise", "JSON", "Math",
		"String", "Number", "Boolean", "Symbol", "Error", "Date", "RegExp",
		// reactive-effect vocabulary.
		"useEffect", "useLayoutEffect", "useInsertionEffect", "useState",
		"useRef", "useMemo", "useCallback", "useContext", "useReducer",
	}
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

var (
	commentRe    = regexp.MustCompile(`(?s)//[^\n]*|/\*.*?\*/`)
	stringRe     = regexp.MustCompile(`"(\\.|[^"\\])*"|'(\\.|[^'\\])*'|` + "`" + `(\\.|[^` + "`" + `\\])*` + "`")
	numberRe     = regexp.MustCompile(`\b\d+(\.\d+)?\b`)
	identifierRe = regexp.MustCompile(`[A-Za-z_$][A-Za-z0-9_$]*`)
	tokenizeRe   = regexp.MustCompile(`_VAR|_STR|_NUM|[A-Za-z_$][A-Za-z0-9_$]*|[{}()\[\];,.:<>=!&|+\-*/%?]|\S`)
)

// Tokens normalizes a Unit body to its normalized token stream: comments and
// whitespace stripped, identifiers outside the keyword allowlist replaced
// with _VAR, string literals replaced with _STR, numeric literals
// replaced with _NUM, single non-alphabetic tokens (operators, braces)
// preserved verbatim.
func Tokens(code string) []string {
	code = commentRe.ReplaceAllString(code, " ")
	code = stringRe.ReplaceAllString(code, " _STR ")
	code = identifierRe.ReplaceAllStringFunc(code, func(tok string) string {
		if keywordAllowlist[tok] || tok == "_STR" {
			return tok
		}
		return "_VAR"
	})
	code = numberRe.ReplaceAllString(code, "_NUM")

	matches := tokenizeRe.FindAllString(code, -1)
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		tokens = append(tokens, m)
	}
	return tokens
}
