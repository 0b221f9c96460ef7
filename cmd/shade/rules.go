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

package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/shade/internal/errors"
	"github.com/kraklabs/shade/internal/output"
	"github.com/kraklabs/shade/internal/ui"
	"github.com/kraklabs/shade/pkg/rules"
)

// runRules dispatches the 'rules' subcommands: validate and export.
//
// Examples:
//
//	shade rules validate rules.yaml    Lint a rule file before scanning
//	shade rules export                 Print the built-in rule set as YAML
func runRules(args []string, globals GlobalFlags) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: shade rules <validate|export> [options]")
		os.Exit(1)
	}
	switch args[0] {
	case "validate":
		runRulesValidate(args[1:], globals)
	case "export":
		runRulesExport(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown rules subcommand: %s\n", args[0])
		os.Exit(1)
	}
}

// runRulesValidate loads a rule file and checks every rule against the
// closed matcher vocabulary, reporting each violation with its rule id.
func runRulesValidate(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("rules validate", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: shade rules validate <path>

Validates a rule file: every matcher must come from the closed
vocabulary (feature thresholds, syntactic predicates, cross-cutting
predicates) and every severity must be low, medium, or high.
`)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}
	path := fs.Arg(0)

	rs, err := rules.Load(path)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"Cannot load rule file",
			fmt.Sprintf("Rule file %s failed to parse", path),
			"Check the YAML syntax against a file produced by 'shade rules export'",
			err,
		), globals.JSON)
	}

	errs := rules.Validate(rs)
	if globals.JSON {
		type result struct {
			Path   string   `json:"path"`
			Valid  bool     `json:"valid"`
			Rules  int      `json:"rules"`
			Errors []string `json:"errors,omitempty"`
		}
		r := result{Path: path, Valid: len(errs) == 0, Rules: len(rs.Rules)}
		for _, e := range errs {
			r.Errors = append(r.Errors, e.Error())
		}
		_ = output.JSON(r)
		if len(errs) > 0 {
			os.Exit(errors.ExitConfig)
		}
		return
	}

	if len(errs) > 0 {
		for _, e := range errs {
			ui.Errorf("%v", e)
		}
		os.Exit(errors.ExitConfig)
	}
	ui.Successf("%s: %d rules, all matchers valid", path, len(rs.Rules))
}

// runRulesExport prints the built-in rule set as YAML, a starting point
// for a project-local rules.yaml.
func runRulesExport(args []string) {
	fs := flag.NewFlagSet("rules export", flag.ExitOnError)
	out := fs.String("o", "", "Write to file instead of stdout")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	rs := rules.Default()
	if *out != "" {
		if err := rules.Save(rs, *out); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		ui.Successf("Wrote %d rules to %s", len(rs.Rules), *out)
		return
	}
	data, err := yaml.Marshal(rs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot render rule set: %v\n", err)
		os.Exit(1)
	}
	_, _ = os.Stdout.Write(data)
}
