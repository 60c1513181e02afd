package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vidshelf/internal/rpc"
)

func newCallCommand(ctx *commandContext) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "call <method> [arg...]",
		Short: "Invoke a backend method and print its result",
		Long: `Invoke a backend method and print its result.

Each argument is parsed as JSON; anything that is not valid JSON is sent as a
string. A data result is printed as indented JSON, an ok result as "ok".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			method := strings.TrimSpace(args[0])
			if method == "" {
				return errors.New("method name must not be empty")
			}
			callArgs := parseCallArgs(args[1:])
			if timeout <= 0 {
				timeout = cfg.CallTimeout()
			}

			return ctx.withClient(cmd.Context(), func(client *rpc.Client) error {
				callCtx, cancel := context.WithTimeout(cmd.Context(), timeout)
				defer cancel()

				payload, err := client.Call(callCtx, method, callArgs...)
				if err != nil {
					var remote *rpc.RemoteError
					if errors.As(err, &remote) {
						return fmt.Errorf("%s failed: %w", method, remote)
					}
					if errors.Is(err, context.DeadlineExceeded) {
						return fmt.Errorf("%s: no response within %s", method, timeout)
					}
					return fmt.Errorf("%s: %w", method, err)
				}
				return printPayload(cmd, payload)
			})
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Call timeout (defaults to backend.call_timeout_seconds)")
	return cmd
}

func parseCallArgs(raw []string) []any {
	args := make([]any, 0, len(raw))
	for _, value := range raw {
		if json.Valid([]byte(value)) {
			args = append(args, json.RawMessage(value))
			continue
		}
		args = append(args, value)
	}
	return args
}

func printPayload(cmd *cobra.Command, payload json.RawMessage) error {
	out := cmd.OutOrStdout()
	if payload == nil {
		fmt.Fprintln(out, "ok")
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, payload, "", "  "); err != nil {
		fmt.Fprintln(out, string(payload))
		return nil
	}
	buf.WriteByte('\n')
	_, err := out.Write(buf.Bytes())
	return err
}
