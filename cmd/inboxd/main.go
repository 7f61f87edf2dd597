package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tekflox/inbox/internal/config"
	"github.com/tekflox/inbox/internal/daemon"
	"github.com/tekflox/inbox/internal/profile"
	"go.uber.org/fx"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	gatewayFlag := flag.String("gateway", "", "gateway base URL (overrides config)")
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg := config.LoadOrDefault(profile.ConfigPath())
	if *gatewayFlag != "" {
		cfg.GatewayURL = *gatewayFlag
	}

	app := fx.New(
		daemon.Module(daemon.Params{Profile: profileName, Config: cfg}),
	)

	app.Run()
}
