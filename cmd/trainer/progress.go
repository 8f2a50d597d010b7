package main

import (
	"io"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// treeProgress renders tree-growing progress. The bar is created on the
// first callback, once the total is known.
type treeProgress struct {
	w     io.Writer
	desc  string
	quiet bool
	bar   *progressbar.ProgressBar
}

func (c *cli) progress(cmd *cobra.Command, desc string) *treeProgress {
	return &treeProgress{w: cmd.ErrOrStderr(), desc: desc, quiet: c.quiet}
}

func (p *treeProgress) update(done, total int) {
	if p.quiet {
		return
	}
	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionSetDescription(p.desc),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
	}
	_ = p.bar.Set(done)
}

func (p *treeProgress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		_, _ = io.WriteString(p.w, "\n")
	}
}
