package main

import (
	"log"
	"os"

	"github.com/gorgonia/semisup"
	"github.com/gorgonia/semisup/encoding/gif"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var renderOut string

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the comparison of the worked two-sample case as an animated GIF",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := semisup.Compare(notebookInputs())
		if err != nil {
			return err
		}
		f, err := os.OpenFile(renderOut, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
		if err != nil {
			return errors.WithStack(err)
		}
		defer f.Close()

		enc := gif.NewGifEncoder(f, 800, 1600)
		for _, frame := range gif.ComparisonFrames(c) {
			if err = enc.Encode(frame); err != nil {
				return err
			}
		}
		if err = enc.Flush(); err != nil {
			return err
		}
		log.Printf("Wrote %d frames to %s", enc.Frames(), renderOut)
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "visit.gif", "output file")
}
