package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"translation-queue/internal/domain/chunking"
)

func newChunkCmd() *cobra.Command {
	var size int
	var full bool

	cmd := &cobra.Command{
		Use:   "chunk [FILE]",
		Short: "Show how a text would be split for translation",
		Long: `Split FILE (or stdin when FILE is "-" or missing) the way the queue does
and print one line per chunk with its length. Chunks that had to cut a word
are marked with "!".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			b, err := io.ReadAll(in)
			if err != nil {
				return err
			}
			printChunks(cmd.OutOrStdout(), chunking.Split(string(b), size), full)
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "size", chunking.DefaultTextSize, "maximum chunk size in characters")
	cmd.Flags().BoolVar(&full, "full", false, "print whole chunks instead of a preview")
	return cmd
}

func printChunks(w io.Writer, pieces []chunking.Piece, full bool) {
	midWord := 0
	for i, p := range pieces {
		mark := " "
		if p.MidWord {
			mark = "!"
			midWord++
		}
		text := p.Text
		if !full {
			text = preview(text, 48)
		}
		fmt.Fprintf(w, "%s %3d %5d  %s\n", mark, i+1, len([]rune(p.Text)), text)
	}
	fmt.Fprintf(w, "%d chunks, %d split mid-word\n", len(pieces), midWord)
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
