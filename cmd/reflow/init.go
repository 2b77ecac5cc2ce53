package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/reflow-dev/reflow/internal/config"
)

func initCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a reflow.yaml and an example page",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(dir, name)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Project name (default: directory name)")

	return cmd
}

func runInit(dir, name string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	cfgPath := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	if name == "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		name = filepath.Base(abs)
	}

	cfg := config.Default()
	cfg.Name = name
	if err := cfg.Save(dir); err != nil {
		return err
	}
	success("created %s", cfgPath)

	pagesDir := filepath.Join(dir, "pages")
	if err := os.MkdirAll(pagesDir, 0o755); err != nil {
		return err
	}

	example := `{
  "title": "Welcome",
  "state": {"project": "` + name + `"},
  "body": {
    "main": {
      "children": [
        {"h1": {"text": "Welcome to ` + name + `"}},
        {"p": {"text": "Edit pages/index.json to change this page."}}
      ]
    }
  }
}
`
	indexPath := filepath.Join(pagesDir, "index.json")
	if _, err := os.Stat(indexPath); os.IsNotExist(err) {
		if err := os.WriteFile(indexPath, []byte(example), 0o644); err != nil {
			return err
		}
		success("created %s", indexPath)
	}

	info("run: reflow serve %s", dir)
	return nil
}
