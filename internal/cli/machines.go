package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/automaton/internal/ir"
	"github.com/roach88/automaton/internal/machines"
)

// MachineInfo describes one registered machine.
type MachineInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Inputs      []string `json:"inputs"`
	Initial     string   `json:"initial"`
}

// NewMachinesCommand creates the machines command.
func NewMachinesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "machines",
		Short:         "List the built-in machines",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := listMachines()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list machines", err)
			}
			p := newPrinter(rootOpts, cmd)
			if p.JSON() {
				return p.OK(infos)
			}
			for _, m := range infos {
				p.Textf("%s - %s", m.Name, m.Description)
				p.Textf("  inputs:  %s", strings.Join(m.Inputs, ", "))
				p.Textf("  initial: %s", m.Initial)
			}
			return nil
		},
	}
}

func listMachines() ([]MachineInfo, error) {
	names := machines.Names()
	infos := make([]MachineInfo, 0, len(names))
	for _, name := range names {
		m, err := machines.Lookup(name, machines.Options{})
		if err != nil {
			return nil, err
		}
		infos = append(infos, MachineInfo{
			Name:        m.Name(),
			Description: m.Description(),
			Inputs:      m.Inputs(),
			Initial:     ir.String(m.Initial()),
		})
	}
	return infos, nil
}
