package main

import (
	"fmt"

	"SmartLoan/internal/training"

	"github.com/spf13/cobra"
)

func (c *cli) approvalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approval",
		Short: "Train the approval random forest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runApproval(cmd)
		},
	}
}

func (c *cli) fraudCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fraud",
		Short: "Train the fraud isolation forest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runFraud(cmd)
		},
	}
}

func (c *cli) allCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Train both models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.runApproval(cmd); err != nil {
				return err
			}
			return c.runFraud(cmd)
		},
	}
}

func (c *cli) runApproval(cmd *cobra.Command) error {
	bar := c.progress(cmd, "approval forest")
	res, err := training.NewPipeline(c.cfg,
		training.WithLogger(c.logger),
		training.WithProgress(bar.update),
	).Run(cmd.Context())
	bar.finish()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "approval model: %s\n", res.ModelPath)
	fmt.Fprintf(out, "encoders:       %s\n", res.EncodersPath)
	fmt.Fprintf(out, "features:       %v\n", res.Features)
	fmt.Fprintf(out, "accuracy %.4f  precision %.4f  recall %.4f  f1 %.4f  (%d test rows)\n",
		res.Metrics.Accuracy, res.Metrics.Precision, res.Metrics.Recall, res.Metrics.F1, res.Metrics.TestRows)
	return nil
}

func (c *cli) runFraud(cmd *cobra.Command) error {
	bar := c.progress(cmd, "fraud forest")
	res, err := training.NewFraudPipeline(c.cfg,
		training.WithLogger(c.logger),
		training.WithProgress(bar.update),
	).Run(cmd.Context())
	bar.finish()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "fraud model: %s (threshold %.4f, training outlier rate %.4f)\n",
		res.ModelPath, res.Threshold, res.OutlierRate)
	return nil
}
