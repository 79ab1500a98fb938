package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

func header(title string) string {
	const width = 80

	if len(title) > width {
		return title
	}
	if len(title) > 0 {
		title = fmt.Sprintf(" %s ", title)
	}
	side := int(math.Floor(float64(width-len(title)) / 2))
	left := strings.Repeat("#", side)
	right := strings.Repeat("#", width-len(title)-side)
	return left + title + right
}

// mustContinuePrompt returns an error unless the user picks "Yes". The label must fit on one line.
func mustContinuePrompt(label string) error {
	if len(label) == 0 {
		label = "Continue?"
	}
	_, result, err := (&promptui.Select{
		Label: label,
		Items: []string{"No", "Yes"},
	}).Run()
	if err != nil {
		return err
	}
	if result != "Yes" {
		return fmt.Errorf("user aborted")
	}
	return nil
}

func cmdPrintln(cmd *cobra.Command, a ...any) {
	cmd.Println(a...)
}

func cmdPrintf(cmd *cobra.Command, format string, a ...any) {
	cmd.Printf(format, a...)
}
