package logging

import (
	"context"
	"fmt"
	"strings"
)

// GooseLogger adapts a Logger to the goose.Logger interface so migration
// progress ends up in the same sink as the rest of the application.
type GooseLogger struct {
	L Logger
}

func (g GooseLogger) Printf(format string, v ...any) {
	g.L.Info(context.Background(), strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrations")
}

func (g GooseLogger) Fatalf(format string, v ...any) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	g.L.Error(context.Background(), msg, "component", "migrations")
	panic(msg)
}
