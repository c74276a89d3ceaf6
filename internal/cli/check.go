package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hupe1980/imgdedup"
)

var checkDist int

var checkCmd = &cobra.Command{
	Use:   "check FILE",
	Short: "Check whether a file duplicates an indexed one",
	Long: `Check whether a file duplicates an indexed one.

The file is a duplicate when any of its codes lies within --dist bits of a
stored code. Exits with status 2 when a duplicate is found.

Examples:
  imgdedup check --dist 10 photo.jpg`,
	Args: cobra.ExactArgs(1),
	Run:  runCheck,
}

func init() {
	checkCmd.Flags().IntVar(&checkDist, "dist", 0, "Maximum Hamming distance, inclusive")
	_ = checkCmd.MarkFlagRequired("dist")
}

func runCheck(cmd *cobra.Command, args []string) {
	c := initContext(cmd.Context())
	defer c.Close()

	up, err := readUpload(args[0])
	if err != nil {
		exitError("%v", err)
	}

	res, err := c.Service.Check(cmd.Context(), up, checkDist)
	if err != nil {
		exitError("%s: %s: %v", args[0], imgdedup.KindOf(err), err)
	}

	if !res.Duplicated {
		color.New(color.FgGreen).Printf("unique ")
		fmt.Printf("%s (%d bits, %s)\n", args[0], res.BitWidth, res.Kind)
		return
	}

	yellow := color.New(color.FgYellow)
	yellow.Printf("duplicate ")
	fmt.Printf("%s (%d bits, %s)\n", args[0], res.BitWidth, res.Kind)
	for _, m := range res.Matches {
		label := m.Label
		if label == "" {
			label = "-"
		}
		fmt.Printf("    %s ~ %s (id %d, distance %d)\n", m.Image, label, m.ID, m.Distance)
	}

	c.Close()
	exitDuplicate()
}
