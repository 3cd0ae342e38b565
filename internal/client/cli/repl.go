package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL dispatches to. App satisfies it;
// tests provide a stub.
type execIface interface {
	Start(ctx context.Context) error
	Finish(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Show(ctx context.Context, id string) error
	List(ctx context.Context, args []string) error
	Pending(ctx context.Context) error
	Sync(ctx context.Context) error
	Resync(ctx context.Context) error
}

const helpText = "Available commands: start, finish <id>, delete <id>, show <id>, (l)ist [key=value...], pending, sync, resync, exit"

// runREPL reads one command per line from reader and dispatches it to a.
// Handler errors are printed and the loop goes on. It returns on EOF, on
// "exit"/"quit", or once ctx is done.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for ctx.Err() == nil {
		fmt.Fprintf(w, "trips %s> ", statusFn())
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(w)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd, args := parts[0], parts[1:]
		var cmdErr error

		switch cmd {
		case "help":
			fmt.Fprintln(w, helpText)
		case "start":
			cmdErr = a.Start(ctx)
		case "finish":
			cmdErr = a.Finish(ctx, firstArg(args))
		case "delete":
			cmdErr = a.Delete(ctx, firstArg(args))
		case "show":
			cmdErr = a.Show(ctx, firstArg(args))
		case "l", "list":
			cmdErr = a.List(ctx, args)
		case "pending":
			cmdErr = a.Pending(ctx)
		case "sync":
			cmdErr = a.Sync(ctx)
		case "resync":
			cmdErr = a.Resync(ctx)
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if cmdErr != nil {
			fmt.Fprintln(w, "error:", cmdErr)
		}
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
