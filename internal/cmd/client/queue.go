package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rzbill/deque/pkg/deque"
)

// NewQueueCommand constructs the `queue` command group and subcommands.
func NewQueueCommand(open Opener) *cobra.Command {
	qCmd := &cobra.Command{
		Use:     "queue",
		Aliases: []string{"q"},
		Short:   "Queue pair operations",
		Long: `Queue pair operations against the configured store.

Payload lifecycle:
  push/unshift → main list → [pop] → processing list → [commit] → gone
                                            ↓ (refill)
                                       main list again

Commands:
  push        Insert payloads at the head (popped last, FIFO)
  unshift     Insert payloads at the tail (popped next)
  pop         Move the next payload to the processing list and print it
  commit      Remove a payload from the processing list
  commit-all  Drop the processing list
  refill      Return uncommitted payloads to the main list
  len         Show both list lengths
  clear       Delete the main list (and processing with --processing)
  drain       Pop, print and commit until the main list is empty`,
	}
	qCmd.PersistentFlags().String("name", "", "Queue name (required)")
	qCmd.PersistentFlags().String("process-name", "", "Processing list name (default <name>_process)")
	qCmd.PersistentFlags().Duration("timeout", 0, "Blocking pop timeout (0 waits forever)")
	qCmd.PersistentFlags().Bool("json", false, "Print JSON output")
	_ = qCmd.MarkPersistentFlagRequired("name")

	qCmd.AddCommand(
		newQueuePushCommand(open),
		newQueueUnshiftCommand(open),
		newQueuePopCommand(open),
		newQueueCommitCommand(open),
		newQueueCommitAllCommand(open),
		newQueueRefillCommand(open),
		newQueueLenCommand(open),
		newQueueClearCommand(open),
		newQueueDrainCommand(open),
	)
	return qCmd
}

// withDeque opens the runtime, builds the queue pair named by the flags
// and runs fn against it.
func withDeque(cmd *cobra.Command, open Opener, fn func(ctx context.Context, q *deque.Deque) error) error {
	rt, err := open(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	name, _ := cmd.Flags().GetString("name")
	var opts []deque.Option
	if f := cmd.Flags().Lookup("process-name"); f != nil && f.Changed {
		opts = append(opts, deque.WithProcessName(f.Value.String()))
	}
	if cmd.Flags().Changed("timeout") {
		timeout, _ := cmd.Flags().GetDuration("timeout")
		opts = append(opts, deque.WithTimeout(timeout))
	}
	q, err := rt.OpenDeque(name, opts...)
	if err != nil {
		return err
	}
	return fn(cmd.Context(), q)
}

func jsonFlag(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

type insertFunc func(*deque.Deque, context.Context, []byte) (int64, error)

func newInsertCommand(open Opener, use, short string, insert insertFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <payload>... | -",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payloads, err := payloadsFromArgs(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return withDeque(cmd, open, func(ctx context.Context, q *deque.Deque) error {
				var n int64
				for _, p := range payloads {
					if n, err = insert(q, ctx, p); err != nil {
						return err
					}
				}
				if jsonFlag(cmd) {
					return printJSON(cmd.OutOrStdout(), map[string]int64{"length": n})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "length: %d\n", n)
				return nil
			})
		},
	}
}

// newQueuePushCommand constructs the `queue push` subcommand.
func newQueuePushCommand(open Opener) *cobra.Command {
	return newInsertCommand(open, "push", "Insert payloads at the head of the main list", (*deque.Deque).Push)
}

// newQueueUnshiftCommand constructs the `queue unshift` subcommand.
func newQueueUnshiftCommand(open Opener) *cobra.Command {
	return newInsertCommand(open, "unshift", "Insert payloads at the tail of the main list", (*deque.Deque).Unshift)
}

// newQueuePopCommand constructs the `queue pop` subcommand.
func newQueuePopCommand(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pop",
		Short: "Move the next payload to the processing list and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			block, _ := cmd.Flags().GetBool("block")
			ack, _ := cmd.Flags().GetBool("ack")
			return withDeque(cmd, open, func(ctx context.Context, q *deque.Deque) error {
				var (
					msg []byte
					ok  bool
					err error
				)
				if block {
					msg, ok, err = q.Pop(ctx)
				} else {
					msg, ok, err = q.TryPop(ctx)
				}
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.ErrOrStderr(), "empty")
					return nil
				}
				if err := printPayload(cmd.OutOrStdout(), msg, jsonFlag(cmd)); err != nil {
					return err
				}
				if ack {
					_, err = q.CommitLast(ctx)
				}
				return err
			})
		},
	}
	cmd.Flags().Bool("block", false, "Wait up to --timeout for a payload")
	cmd.Flags().Bool("ack", false, "Commit the popped payload after printing it")
	return cmd
}

// newQueueCommitCommand constructs the `queue commit` subcommand.
func newQueueCommitCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "commit <payload> | -",
		Short: "Remove every copy of a payload from the processing list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payloads, err := payloadsFromArgs(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return withDeque(cmd, open, func(ctx context.Context, q *deque.Deque) error {
				n, err := q.Commit(ctx, payloads[0])
				if err != nil {
					return err
				}
				if jsonFlag(cmd) {
					return printJSON(cmd.OutOrStdout(), map[string]int64{"removed": n})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed: %d\n", n)
				return nil
			})
		},
	}
}

// newQueueCommitAllCommand constructs the `queue commit-all` subcommand.
func newQueueCommitAllCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "commit-all",
		Short: "Drop the processing list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeque(cmd, open, func(ctx context.Context, q *deque.Deque) error {
				return q.CommitAll(ctx)
			})
		},
	}
}

// newQueueRefillCommand constructs the `queue refill` subcommand.
func newQueueRefillCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "refill",
		Short: "Move uncommitted payloads back to the main list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeque(cmd, open, func(ctx context.Context, q *deque.Deque) error {
				n, err := q.Refill(ctx)
				if err != nil {
					return err
				}
				if jsonFlag(cmd) {
					return printJSON(cmd.OutOrStdout(), map[string]int64{"moved": n})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "moved: %d\n", n)
				return nil
			})
		},
	}
}

// newQueueLenCommand constructs the `queue len` subcommand.
func newQueueLenCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:     "len",
		Aliases: []string{"stats"},
		Short:   "Show main and processing list lengths",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeque(cmd, open, func(ctx context.Context, q *deque.Deque) error {
				n, err := q.Len(ctx)
				if err != nil {
					return err
				}
				p, err := q.ProcessingLen(ctx)
				if err != nil {
					return err
				}
				if jsonFlag(cmd) {
					return printJSON(cmd.OutOrStdout(), map[string]any{
						"name":         q.Name(),
						"process_name": q.ProcessName(),
						"length":       n,
						"processing":   p,
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n%s: %d\n", q.Name(), n, q.ProcessName(), p)
				return nil
			})
		},
	}
}

// newQueueClearCommand constructs the `queue clear` subcommand.
func newQueueClearCommand(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the main list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			processing, _ := cmd.Flags().GetBool("processing")
			return withDeque(cmd, open, func(ctx context.Context, q *deque.Deque) error {
				return q.Clear(ctx, processing)
			})
		},
	}
	cmd.Flags().Bool("processing", false, "Delete the processing list too")
	return cmd
}

// newQueueDrainCommand constructs the `queue drain` subcommand.
func newQueueDrainCommand(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Pop, print and commit until the main list is empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			block, _ := cmd.Flags().GetBool("block")
			return withDeque(cmd, open, func(ctx context.Context, q *deque.Deque) error {
				var opts []deque.ProcessOption
				if !block {
					opts = append(opts, deque.NonBlocking())
				}
				stats, err := q.Process(ctx, func(_ context.Context, payload []byte) error {
					return printPayload(cmd.OutOrStdout(), payload, jsonFlag(cmd))
				}, opts...)
				if err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "popped: %d committed: %d failed: %d\n",
					stats.Popped, stats.Committed, stats.Failed)
				return nil
			})
		},
	}
	cmd.Flags().Bool("block", false, "Keep waiting for payloads until a pop times out")
	return cmd
}
