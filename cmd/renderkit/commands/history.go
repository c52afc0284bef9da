package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"git.home.luguber.info/inful/renderkit/internal/eventstore"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Invocation string `arg:"" optional:"" help:"Show all events of one invocation"`
	Limit      int    `short:"n" help:"Number of recent events to show" default:"20"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	store, err := eventstore.Open(eventDBPath(root.Dir))
	if err != nil {
		return fmt.Errorf("open render history: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	var events []eventstore.Event
	if h.Invocation != "" {
		events, err = store.ByInvocation(ctx, h.Invocation)
	} else {
		events, err = store.Recent(ctx, h.Limit)
	}
	if err != nil {
		return err
	}

	if len(events) == 0 {
		fmt.Println("No render history recorded.")
		return nil
	}
	for _, e := range events {
		line := fmt.Sprintf("%s  %-8s  %-16s", e.Timestamp.Format("2006-01-02 15:04:05"), shortID(e.InvocationID), e.Type)
		if e.Payload != nil {
			if b, err := json.Marshal(e.Payload); err == nil {
				line += "  " + string(b)
			}
		}
		fmt.Println(line)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
