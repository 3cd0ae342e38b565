package cli

import (
	"context"
	"fmt"
	"strings"
)

func (a *App) getStatus() string {
	var parts []string
	if c := a.trips.DefaultCompany(); c != "" {
		parts = append(parts, c)
	}
	if m := a.Mode(); m != "" {
		parts = append(parts, string(m))
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Root runs the REPL on the app's input until the user leaves.
func (a *App) Root(ctx context.Context) {
	if a.prompting() {
		fmt.Fprintln(a.out, "Welcome to tripkeeper (type 'help' for commands)")
	}
	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}
