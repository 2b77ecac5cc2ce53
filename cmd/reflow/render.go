package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/reflow-dev/reflow/pkg/render"
	"github.com/reflow-dev/reflow/pkg/state"
	"github.com/reflow-dev/reflow/pkg/view"
)

func renderCmd() *cobra.Command {
	var (
		statePath string
		mode      string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "render <view.json>",
		Short: "Render a view document to HTML",
		Long: `Render a single JSON view document to HTML on stdout.

The document is a view tree in wire format; state values referenced by
the tree come from --state.

Examples:
  reflow render hero.json
  reflow render hero.json --state data.json -o hero.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(args[0], statePath, mode, output)
		},
	}

	cmd.Flags().StringVarP(&statePath, "state", "s", "", "JSON file seeding the state store")
	cmd.Flags().StringVarP(&mode, "mode", "m", "auto", "Render mode: auto, sync, or async")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")

	return cmd
}

func runRender(viewPath, statePath, mode, output string) error {
	data, err := os.ReadFile(viewPath)
	if err != nil {
		return err
	}
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("parsing %s: %w", viewPath, err)
	}

	var initial map[string]any
	if statePath != "" {
		raw, err := os.ReadFile(statePath)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &initial); err != nil {
			return fmt.Errorf("parsing %s: %w", statePath, err)
		}
	}

	var renderMode render.Mode
	switch mode {
	case "auto":
		renderMode = render.ModeAuto
	case "sync":
		renderMode = render.ModeSync
	case "async":
		renderMode = render.ModeAsync
	default:
		return fmt.Errorf("unknown mode %q (want auto, sync, or async)", mode)
	}

	store := state.New(initial)
	renderer := render.NewRenderer(store, view.NewRegistry())

	result, err := renderer.ToString(tree, render.Options{Mode: renderMode})
	if err != nil {
		return err
	}
	html, err := result.Await(context.Background())
	if err != nil {
		return err
	}

	if output == "" {
		fmt.Println(html)
		return nil
	}
	if err := os.WriteFile(output, []byte(html), 0o644); err != nil {
		return err
	}
	success("wrote %s (%d bytes)", output, len(html))
	return nil
}
