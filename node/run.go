package node

import (
	"bufio"
	"context"
	"io"
)

// Run is the node's main event loop: it multiplexes stdin commands and
// inbound gossip messages, servicing whichever is ready first and running
// each handler to completion before considering the next (spec.md §5's
// "single asynchronous task runtime with cooperative multitasking...
// handlers run to completion before the next iteration"). It returns when
// ctx is cancelled or stdin reaches EOF.
func (n *Node) Run(ctx context.Context, stdin io.Reader) error {
	lines := make(chan []byte)
	go n.readLines(stdin, lines)

	messages := make(chan []byte)
	go n.readGossip(ctx, messages)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			n.handleLine(ctx, line)
		case msg, ok := <-messages:
			if !ok {
				messages = nil
				continue
			}
			n.handleGossipMessage(ctx, msg)
		}
	}
}

func (n *Node) handleLine(ctx context.Context, line []byte) {
	cmd, err := ParseCommand(line)
	if err != nil {
		n.log.Warn().Err(err).Msg("dropping malformed command")
		return
	}
	if err := n.Execute(ctx, cmd); err != nil {
		n.log.Error().Err(err).Str("kind", cmd.Kind).Msg("command failed")
	}
}

func (n *Node) readLines(stdin io.Reader, out chan<- []byte) {
	defer close(out)
	scanner := bufio.NewScanner(stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...)
		if len(line) == 0 {
			continue
		}
		out <- line
	}
}

func (n *Node) readGossip(ctx context.Context, out chan<- []byte) {
	defer close(out)
	for {
		msg, err := n.blocksSub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			n.log.Error().Err(err).Msg("gossip subscription read failed")
			return
		}
		if msg.ReceivedFrom == n.host.ID() {
			continue
		}
		out <- msg.Data
	}
}
