package cli

import "context"

// Root runs the interactive loop on the App's input until exit or EOF.
func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to TURING (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}
