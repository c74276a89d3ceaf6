package cli

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hupe1980/imgdedup"
)

var (
	statsCollection string
	statsBits       int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show a collection's size and encoding",
	Args:  cobra.NoArgs,
	Run:   runStats,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted collections",
	Args:  cobra.NoArgs,
	Run:   runList,
}

func init() {
	statsCmd.Flags().StringVar(&statsCollection, "collection", "", "Collection name, empty uses defaults.collection")
	statsCmd.Flags().IntVar(&statsBits, "bits", 0, "Code bit width, 0 uses defaults.hash_size squared")
}

func runStats(cmd *cobra.Command, _ []string) {
	c := initContext(cmd.Context())
	defer c.Close()

	bits := statsBits
	if bits == 0 {
		bits = c.Config.Defaults.HashSize * c.Config.Defaults.HashSize
	}

	st, err := c.Service.Stats(cmd.Context(), statsCollection, bits)
	if err != nil {
		exitError("%s: %v", imgdedup.KindOf(err), err)
	}

	cyan := color.New(color.FgCyan)
	cyan.Printf("collection %s\n", st.Key)
	if !st.Exists {
		fmt.Println("    not persisted yet")
		return
	}
	fmt.Printf("    codes:       %d\n", st.Count)
	fmt.Printf("    size:        %s\n", humanize.Bytes(uint64(st.SizeBytes)))
	fmt.Printf("    compression: %s\n", st.Compression)
}

func runList(cmd *cobra.Command, _ []string) {
	c := initContext(cmd.Context())
	defer c.Close()

	keys, err := c.Store.List(cmd.Context())
	if err != nil {
		exitError("%s: %v", imgdedup.KindOf(err), err)
	}
	if len(keys) == 0 {
		fmt.Fprintln(os.Stderr, "no collections")
		return
	}

	cyan := color.New(color.FgCyan)
	for _, k := range keys {
		cyan.Printf("%-32s", k.Name)
		fmt.Printf(" %4d bits\n", k.BitWidth)
	}
}
