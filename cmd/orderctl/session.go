package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"voice-order-service/internal/service/transcript"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage recording sessions",
}

var (
	feedInterim bool
	feedSeq     int
	replayWS    bool
)

func init() {
	create := &cobra.Command{
		Use:   "create",
		Short: "Open a new session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context) (any, string, error) {
				snap, err := newClient().CreateSession(ctx)
				return snap, snap.SessionID, err
			})
		},
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List open sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context) (any, string, error) {
				ids, err := newClient().Sessions(ctx)
				return ids, strings.Join(ids, "\n"), err
			})
		},
	}
	get := &cobra.Command{
		Use:   "get <session-id>",
		Short: "Show a session snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context) (any, string, error) {
				snap, err := newClient().Session(ctx, args[0])
				return snap, "", err
			})
		},
	}
	start := &cobra.Command{
		Use:   "start <session-id>",
		Short: "Start recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context) (any, string, error) {
				snap, err := newClient().StartSession(ctx, args[0])
				return snap, snap.State, err
			})
		},
	}
	stop := &cobra.Command{
		Use:   "stop <session-id>",
		Short: "Stop recording and print the cleaned transcript and order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context) (any, string, error) {
				snap, err := newClient().StopSession(ctx, args[0])
				text := snap.CleanedText
				if !snap.Order.Empty() {
					text = snap.Rendered
				}
				return snap, text, err
			})
		},
	}
	feed := &cobra.Command{
		Use:   "feed <session-id> <text>",
		Short: "Send one transcript fragment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context) (any, string, error) {
				applied, err := newClient().Feed(ctx, args[0], transcript.Fragment{
					Text:          args[1],
					IsFinal:       !feedInterim,
					SequenceIndex: feedSeq,
				})
				return map[string]bool{"applied": applied}, fmt.Sprintf("applied=%v", applied), err
			})
		},
	}
	feed.Flags().BoolVar(&feedInterim, "interim", false, "send as an interim fragment")
	feed.Flags().IntVar(&feedSeq, "seq", 0, "fragment sequence index")

	replay := &cobra.Command{
		Use:   "replay <session-id> [file]",
		Short: "Feed one final fragment per line from a file or stdin",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runReplay,
	}
	replay.Flags().BoolVar(&replayWS, "ws", false, "stream over the session websocket")

	del := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Close and remove a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context) (any, string, error) {
				return map[string]string{"deleted": args[0]}, "deleted " + args[0], newClient().DeleteSession(ctx, args[0])
			})
		},
	}

	sessionCmd.AddCommand(create, list, get, start, stop, feed, replay, del)
	rootCmd.AddCommand(sessionCmd)
}

func withClient(cmd *cobra.Command, call func(ctx context.Context) (any, string, error)) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	v, text, err := call(ctx)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), v, text)
}

func runReplay(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if len(args) == 2 {
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	fragments, err := readFragments(in)
	if err != nil {
		return err
	}
	logger.Info().Int("fragments", len(fragments)).Bool("websocket", replayWS).Msg("Replaying transcript")

	return withClient(cmd, func(ctx context.Context) (any, string, error) {
		c := newClient()
		if replayWS {
			snap, err := c.Stream(ctx, args[0], fragments)
			return snap, fmt.Sprintf("fragments=%d stale=%d", snap.Fragments, snap.Stale), err
		}
		applied := 0
		for _, f := range fragments {
			ok, err := c.Feed(ctx, args[0], f)
			if err != nil {
				return nil, "", fmt.Errorf("fragment %d: %w", f.SequenceIndex, err)
			}
			if ok {
				applied++
			}
		}
		return map[string]int{"sent": len(fragments), "applied": applied},
			fmt.Sprintf("sent=%d applied=%d", len(fragments), applied), nil
	})
}

// readFragments turns each non-blank line into a final fragment with
// consecutive sequence indices.
func readFragments(r io.Reader) ([]transcript.Fragment, error) {
	var out []transcript.Fragment
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		out = append(out, transcript.Fragment{Text: line, IsFinal: true, SequenceIndex: len(out)})
	}
	return out, sc.Err()
}
