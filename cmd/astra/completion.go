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
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/astra/internal/errors"
)

const bashCompletionTemplate = `#!/bin/bash

# Bash completion script for astra
# Installation:
#   source <(astra completion bash)

_astra_completion() {
    local cur prev commands
    commands="init index status search ask reset install-hook completion"

    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    if [[ ${cur} == -* ]] ; then
        COMPREPLY=( $(compgen -W "--version --quiet --no-color --json" -- ${cur}) )
        return 0
    fi

    if [ $COMP_CWORD -eq 1 ]; then
        COMPREPLY=( $(compgen -W "${commands}" -- ${cur}) )
        return 0
    fi

    local cmd="${COMP_WORDS[1]}"
    case "${cmd}" in
        index)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--full --watch --debug --metrics-addr --max-file-size --summarize" -- ${cur}) )
            fi
            ;;
        status)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--json" -- ${cur}) )
            fi
            ;;
        search|ask)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--json" -- ${cur}) )
            fi
            ;;
        reset)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--yes" -- ${cur}) )
            fi
            ;;
        install-hook)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--force --remove" -- ${cur}) )
            fi
            ;;
        completion)
            if [ $COMP_CWORD -eq 2 ]; then
                COMPREPLY=( $(compgen -W "bash zsh fish" -- ${cur}) )
            fi
            ;;
    esac
}

complete -F _astra_completion astra
`

const zshCompletionTemplate = `#compdef astra

# Zsh completion script for astra
# Installation:
#   astra completion zsh > "${fpath[1]}/_astra"

_astra() {
    local -a commands
    commands=(
        'init:Create .astra/project.yaml configuration'
        'index:Index the current workspace'
        'status:Show index statistics'
        'search:Run the search pipeline'
        'ask:Plan, execute, and synthesize an answer'
        'reset:Delete .astra and start over'
        'install-hook:Install git post-commit hook'
        'completion:Generate shell completion script'
    )

    _arguments -C \
        '(- *)--version[Show version and exit]' \
        '--json[Machine-readable output]' \
        '--no-color[Disable colored output]' \
        '1: :->command' \
        '*:: :->args'

    case $state in
        command)
            _describe 'command' commands
            ;;
        args)
            case $words[1] in
                index)
                    _arguments \
                        '--full[Force full reindex]' \
                        '--watch[Reindex on file changes]' \
                        '--debug[Enable debug logging]' \
                        '--metrics-addr[Prometheus metrics address]:address:'
                    ;;
                status)
                    _arguments '--json[Output as JSON]'
                    ;;
                search|ask)
                    _arguments '--json[Output as JSON]'
                    ;;
                reset)
                    _arguments '--yes[Skip confirmation prompt]'
                    ;;
                install-hook)
                    _arguments \
                        '--force[Overwrite existing hook]' \
                        '--remove[Remove the hook]'
                    ;;
                completion)
                    _arguments '1:shell:(bash zsh fish)'
                    ;;
            esac
            ;;
    esac
}

_astra
`

const fishCompletionTemplate = `# Fish completion script for astra
# Installation:
#   astra completion fish > ~/.config/fish/completions/astra.fish

complete -c astra -f -n "__fish_use_subcommand" -a "init" -d "Create .astra/project.yaml configuration"
complete -c astra -f -n "__fish_use_subcommand" -a "index" -d "Index the current workspace"
complete -c astra -f -n "__fish_use_subcommand" -a "status" -d "Show index statistics"
complete -c astra -f -n "__fish_use_subcommand" -a "search" -d "Run the search pipeline"
complete -c astra -f -n "__fish_use_subcommand" -a "ask" -d "Plan, execute, and synthesize an answer"
complete -c astra -f -n "__fish_use_subcommand" -a "reset" -d "Delete .astra and start over (destructive!)"
complete -c astra -f -n "__fish_use_subcommand" -a "install-hook" -d "Install git post-commit hook"
complete -c astra -f -n "__fish_use_subcommand" -a "completion" -d "Generate shell completion script"

complete -c astra -l version -d "Show version and exit"
complete -c astra -l json -d "Machine-readable output"
complete -c astra -l no-color -d "Disable colored output"

complete -c astra -n "__fish_seen_subcommand_from index" -l full -d "Force full reindex"
complete -c astra -n "__fish_seen_subcommand_from index" -l watch -d "Reindex on file changes"
complete -c astra -n "__fish_seen_subcommand_from index" -l debug -d "Enable debug logging"
complete -c astra -n "__fish_seen_subcommand_from index" -l metrics-addr -d "Prometheus metrics address" -r

complete -c astra -n "__fish_seen_subcommand_from status" -l json -d "Output as JSON"
complete -c astra -n "__fish_seen_subcommand_from search" -l json -d "Output as JSON"
complete -c astra -n "__fish_seen_subcommand_from ask" -l json -d "Output as JSON"
complete -c astra -n "__fish_seen_subcommand_from reset" -l yes -d "Skip confirmation prompt"

complete -c astra -n "__fish_seen_subcommand_from install-hook" -l force -d "Overwrite existing hook"
complete -c astra -n "__fish_seen_subcommand_from install-hook" -l remove -d "Remove the hook"

complete -c astra -n "__fish_seen_subcommand_from completion" -f -a "bash" -d "Generate bash completion script"
complete -c astra -n "__fish_seen_subcommand_from completion" -f -a "zsh" -d "Generate zsh completion script"
complete -c astra -n "__fish_seen_subcommand_from completion" -f -a "fish" -d "Generate fish completion script"
`

// runCompletion executes the 'completion' command, printing a shell
// completion script for bash, zsh, or fish to stdout.
func runCompletion(args []string) {
	fs := flag.NewFlagSet("completion", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: astra completion <shell>

Generates a shell completion script for bash, zsh, or fish.

Examples:
  source <(astra completion bash)
  astra completion zsh > "${fpath[1]}/_astra"
  astra completion fish > ~/.config/fish/completions/astra.fish
`)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		errors.FatalError(errors.NewInputError(
			"Invalid arguments",
			"The completion command requires exactly one argument: the shell name",
			"Run 'astra completion bash', 'astra completion zsh', or 'astra completion fish'",
		), false)
		return
	}

	switch fs.Arg(0) {
	case "bash":
		fmt.Print(bashCompletionTemplate)
	case "zsh":
		fmt.Print(zshCompletionTemplate)
	case "fish":
		fmt.Print(fishCompletionTemplate)
	default:
		errors.FatalError(errors.NewInputError(
			"Unsupported shell",
			fmt.Sprintf("Shell '%s' is not supported. Valid options: bash, zsh, fish", fs.Arg(0)),
			"Run 'astra completion bash', 'astra completion zsh', or 'astra completion fish'",
		), false)
	}
}
