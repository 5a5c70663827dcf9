package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/win"
)

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List visible windows that could be targeted",
	RunE:  runWindows,
}

func init() {
	rootCmd.AddCommand(windowsCmd)
	windowsCmd.Flags().String("keyword", "", "Mark the window run would pick for this keyword")
}

type windowEntry struct {
	Handle   string `yaml:"hwnd"`
	Title    string `yaml:"title"`
	Class    string `yaml:"class"`
	Selected bool   `yaml:"selected,omitempty"`
}

func printYAML(v interface{}) error {
	enc := yaml.NewEncoder(os.Stdout)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}
	return enc.Close()
}

func runWindows(cmd *cobra.Command, args []string) error {
	windows, err := win.Enumerate(win.Default())
	if err != nil {
		return err
	}
	keyword, _ := cmd.Flags().GetString("keyword")
	selected, _ := win.FindByKeyword(windows, keyword)

	entries := []windowEntry{}
	for _, w := range windows {
		entries = append(entries, windowEntry{
			Handle:   w.Handle.String(),
			Title:    w.Title,
			Class:    w.Class,
			Selected: w.Handle == selected.Handle && selected.Handle != 0,
		})
	}
	return printYAML(entries)
}
