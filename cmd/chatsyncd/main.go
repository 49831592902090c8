package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/fx"

	"github.com/planvite/chatsync/internal/daemon"
	"github.com/planvite/chatsync/internal/session"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	userFlag := flag.String("user", "", "signed-in user id (overrides config user_id)")
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	userID := session.ResolveUser(*userFlag)
	if userID == "" {
		fmt.Fprintln(os.Stderr, "error: no user id; pass --user or set user_id in config.toml")
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{SessionName: sessionName, UserID: userID}),
	)

	app.Run()
}
