package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	tagmanager "github.com/Tap30/tagmanager-go"
	"github.com/Tap30/tagmanager-go/bridge"
	"github.com/spf13/cobra"
)

func newExecCmd() *cobra.Command {
	var (
		initID   string
		interval int
		wait     bool
	)
	cmd := &cobra.Command{
		Use:   "exec <action> [json-args]",
		Short: "Run one action against an in-process plugin",
		Long: `Run one action against an in-process plugin and print the response.

json-args is a JSON array of positional arguments, for example:
  tagbridge exec initGTM '["GTM-ABCD", 30]' --wait
  tagbridge exec trackPage '["/home"]' --init GTM-ABCD`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg, "tagbridge")
			rt, err := newRuntime(cfg, logger, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			loadTimeout, _ := cfg.LoadTimeoutDuration()
			ctx := cmd.Context()

			if initID != "" {
				resp := execute(ctx, rt.plugin, string(tagmanager.ActionInitGTM), []any{initID, interval})
				if resp.Status != bridge.StatusOK {
					return printResponse(cmd, resp)
				}
				if err := waitReady(ctx, rt.plugin, loadTimeout); err != nil {
					return err
				}
			}

			var raw []json.RawMessage
			if len(args) == 2 {
				if err := json.Unmarshal([]byte(args[1]), &raw); err != nil {
					return fmt.Errorf("json-args must be a JSON array: %w", err)
				}
			}
			callArgs, err := bridge.DecodeArgs(raw)
			if err != nil {
				return err
			}

			resp := execute(ctx, rt.plugin, args[0], callArgs)
			if wait && args[0] == string(tagmanager.ActionInitGTM) && resp.Status == bridge.StatusOK {
				if err := waitReady(ctx, rt.plugin, loadTimeout); err != nil {
					return err
				}
			}
			return printResponse(cmd, resp)
		},
	}
	cmd.Flags().StringVar(&initID, "init", "", "run initGTM with this container id first and wait for it")
	cmd.Flags().IntVar(&interval, "interval", 0, "dispatch interval in seconds used with --init")
	cmd.Flags().BoolVar(&wait, "wait", false, "after initGTM, wait until the container is available")
	cmd.Flags().String("collector-endpoint", "", "URL receiving hit batches")
	cmd.Flags().String("container-endpoint", "", "base URL serving /containers/{id}")
	cmd.Flags().String("resource-dir", "", "directory holding default containers")
	cmd.Flags().String("load-timeout", "", "container load bound, e.g. 2s")
	return cmd
}

func execute(ctx context.Context, plugin *tagmanager.Plugin, action string, args []any) bridge.Response {
	resp := bridge.Response{CallbackID: "cli"}
	handled := plugin.Execute(ctx, action, args, func(r tagmanager.Result) {
		resp.Message = r.Message
		resp.Status = bridge.StatusError
		if r.OK {
			resp.Status = bridge.StatusOK
		}
	})
	if !handled {
		resp.Status = bridge.StatusInvalidAction
		resp.Message = "invalid action: " + action
	}
	return resp
}

func waitReady(ctx context.Context, plugin *tagmanager.Plugin, timeout time.Duration) error {
	// allow the load its full bound plus a margin for the completion to land
	ctx, cancel := context.WithTimeout(ctx, timeout+time.Second)
	defer cancel()
	if err := plugin.Session().WaitReady(ctx); err != nil {
		return fmt.Errorf("container not available: %w", err)
	}
	return nil
}

func printResponse(cmd *cobra.Command, resp bridge.Response) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return err
	}
	if resp.Status != bridge.StatusOK {
		return fmt.Errorf("%s: %s", resp.Status, resp.Message)
	}
	return nil
}
