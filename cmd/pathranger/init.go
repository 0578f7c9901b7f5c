package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const bashInit = `# pathranger shell integration for bash
__pathranger_record() {
    command pathranger record "$PWD" >/dev/null 2>&1
}

cd() {
    builtin cd "$@" || return
    __pathranger_record
}

pr() {
    local dir
    dir="$(command pathranger goto "$@")" || return
    cd "$dir"
}
`

const zshInit = `# pathranger shell integration for zsh
__pathranger_record() {
    command pathranger record "$PWD" >/dev/null 2>&1
}

autoload -Uz add-zsh-hook
add-zsh-hook chpwd __pathranger_record

pr() {
    local dir
    dir="$(command pathranger goto "$@")" || return
    cd "$dir"
}
`

const fishInit = `# pathranger shell integration for fish
function __pathranger_record --on-variable PWD
    command pathranger record "$PWD" >/dev/null 2>&1
end

function pr
    set -l dir (command pathranger goto $argv); or return
    cd $dir
end
`

var initScripts = map[string]string{
	"bash": bashInit,
	"zsh":  zshInit,
	"fish": fishInit,
}

func initCmd() *cobra.Command {
	var shell string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Print shell integration code",
		Long: `Print the shell integration for your shell. Add it to your shell startup file:

  eval "$(pathranger init --shell bash)"     # ~/.bashrc
  eval "$(pathranger init --shell zsh)"      # ~/.zshrc
  pathranger init --shell fish | source      # ~/.config/fish/config.fish`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, ok := initScripts[shell]
			if !ok {
				return usageErrorf("unsupported shell %q (want bash, zsh or fish)", shell)
			}
			fmt.Fprint(cmd.OutOrStdout(), script)
			return nil
		},
	}

	cmd.Flags().StringVar(&shell, "shell", "bash", "shell to integrate with: bash, zsh, fish")
	return cmd
}
