package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/xxxsen/mag7qa/internal/cli"
	"github.com/xxxsen/mag7qa/internal/conversation"
	"github.com/xxxsen/mag7qa/internal/metrics"
)

func newChatCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "interactive question answering on the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			initLogger(cfg)

			ctx := context.Background()
			a, err := buildApp(ctx, cfg, metrics.New())
			if err != nil {
				exitOnIndexError(err)
				return err
			}
			defer a.Close()

			sess := conversation.NewSession(uuid.NewString(), "local")
			loop := cli.NewLoop(os.Stdin, os.Stdout, a.pipeline, sess, a.options(), cli.ErrorPolicy{
				OnRetrievalError:  cfg.Agent.OnRetrievalError,
				OnGenerationError: cfg.Agent.OnGenerationError,
			})
			return loop.Run(ctx)
		},
	}
}

func exitOnIndexError(err error) {
	var ie *indexLoadError
	if !errors.As(err, &ie) {
		return
	}
	fmt.Fprintln(os.Stdout, indexLoadMessage)
	fmt.Fprintln(os.Stdout, ie.err)
	os.Exit(1)
}
