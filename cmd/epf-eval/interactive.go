package main

import (
	"errors"
	"io"
	"slices"

	"github.com/charmbracelet/huh"

	"github.com/emergent-company/epf-eval/internal/providers"
	"github.com/emergent-company/epf-eval/internal/scenarios"
)

type selection struct {
	providers []string
	scenarios []string
}

// selectInteractive is a test hook for replacing the selection form.
var selectInteractive = defaultSelectInteractive

func defaultSelectInteractive(in io.Reader, out io.Writer, defaults []string) (selection, error) {
	if !isTerminal(in) {
		return selection{}, errors.New("--interactive requires a terminal on stdin")
	}

	var provOpts []huh.Option[string]
	for _, n := range providers.Names() {
		name := string(n)
		provOpts = append(provOpts, huh.NewOption(name, name).Selected(slices.Contains(defaults, name)))
	}
	var scenOpts []huh.Option[string]
	for _, s := range scenarios.All() {
		scenOpts = append(scenOpts, huh.NewOption(s.ID+"  "+s.Name, s.ID).Selected(true))
	}

	var picked selection
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Providers").
				Options(provOpts...).
				Validate(nonEmpty).
				Value(&picked.providers),
			huh.NewMultiSelect[string]().
				Title("Scenarios").
				Options(scenOpts...).
				Validate(nonEmpty).
				Value(&picked.scenarios),
		),
	).WithInput(in).WithOutput(out).Run()
	if err != nil {
		return selection{}, err
	}
	return picked, nil
}

func nonEmpty(v []string) error {
	if len(v) == 0 {
		return errors.New("select at least one")
	}
	return nil
}
