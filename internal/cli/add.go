package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hupe1980/imgdedup"
)

var (
	uploadHashSize   int
	uploadCollection string
)

var addCmd = &cobra.Command{
	Use:   "add FILE...",
	Short: "Fingerprint files and add them to a collection",
	Long: `Fingerprint files and add them to a collection.

Raster images are added by difference hash. glTF and GLB models add every
embedded image. Any other file is added by content hash.

Examples:
  imgdedup add photo.jpg
  imgdedup add --hash-size 8 --collection thumbs a.png b.png`,
	Args: cobra.MinimumNArgs(1),
	Run:  runAdd,
}

func init() {
	for _, cmd := range []*cobra.Command{addCmd, checkCmd} {
		cmd.Flags().IntVar(&uploadHashSize, "hash-size", 0, "Hash size, 0 uses defaults.hash_size")
		cmd.Flags().StringVar(&uploadCollection, "collection", "", "Collection name, empty uses defaults.collection")
	}
}

func runAdd(cmd *cobra.Command, args []string) {
	c := initContext(cmd.Context())
	defer c.Close()

	green := color.New(color.FgGreen)

	for _, path := range args {
		up, err := readUpload(path)
		if err != nil {
			exitError("%v", err)
		}

		res, err := c.Service.Add(cmd.Context(), up)
		if err != nil {
			exitError("%s: %s: %v", path, imgdedup.KindOf(err), err)
		}

		for _, name := range res.Added {
			green.Printf("added ")
			fmt.Printf("%s (%d codes, %d bits, %s)\n", name, len(res.IDs), res.BitWidth, res.Kind)
		}
	}
}

func readUpload(path string) (imgdedup.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return imgdedup.Upload{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return imgdedup.Upload{
		Filename:   filepath.Base(path),
		Data:       data,
		HashSize:   uploadHashSize,
		Collection: uploadCollection,
	}, nil
}
