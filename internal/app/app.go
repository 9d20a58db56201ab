// Package app wires the CLI: load settings, build the session and run one
// steward action.
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"steward/internal/config"
	"steward/internal/domain"
	"steward/internal/geo"
	"steward/internal/site"
	"steward/internal/steward"
)

const usage = `usage: steward [flags] <block|unblock|lock|unlock> <target>

  block    globally block an IP, range or CIDR
  unblock  remove a global IP block
  lock     lock a CentralAuth account
  unlock   unlock a CentralAuth account
`

func Run() error {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found. Falling back to system environment variables.")
	}

	settings := config.FromEnv()

	hostFlag := flag.String("host", settings.Host, "Target wiki host")
	pathFlag := flag.String("script-path", settings.ScriptPath, "Script path prefix on the wiki")
	debugFlag := flag.Bool("debug", settings.Debug, "Log every HTTP exchange")
	reasonFlag := flag.String("reason", "", "Reason override for the action")
	expiryFlag := flag.String("expiry", "", "Block expiry override, e.g. '31 hours'")
	anonFlag := flag.Bool("anon-only", false, "Block anonymous users only")
	hideFlag := flag.Int("hide", 0, "Account suppression level")
	flag.Parse()

	if flag.NArg() != 2 {
		fmt.Print(usage)
		return errors.New("expected an action and a target")
	}
	action, target := flag.Arg(0), flag.Arg(1)

	if *debugFlag {
		log.SetLevel(log.DebugLevel)
	}

	session := site.NewSession(*hostFlag, *pathFlag)
	session.Debug = *debugFlag

	resolver, err := geo.Open(settings.GeoIPDB)
	if err != nil {
		log.Warn("geolite database unavailable, continuing without geo annotations", "error", err)
		resolver = nil
	}
	defer resolver.Close()

	client := steward.New(session)
	client.Geo = resolver

	ctx := context.Background()
	switch action {
	case "block":
		_, err = client.GlobalBlock(ctx, domain.BlockRequest{
			IP:       target,
			AnonOnly: *anonFlag,
			Reason:   *reasonFlag,
			Expiry:   *expiryFlag,
		})
	case "unblock":
		_, err = client.GlobalUnblock(ctx, domain.UnblockRequest{IP: target, Reason: *reasonFlag})
	case "lock":
		_, err = client.AccountLock(ctx, domain.LockRequest{User: target, Hide: *hideFlag, Reason: *reasonFlag})
	case "unlock":
		_, err = client.AccountUnlock(ctx, domain.LockRequest{User: target, Hide: *hideFlag, Reason: *reasonFlag})
	default:
		fmt.Print(usage)
		return fmt.Errorf("unknown action %q", action)
	}

	if err != nil {
		var siteErr *domain.SiteError
		switch {
		case errors.As(err, &siteErr):
			log.Error("wiki rejected the action", "message", siteErr.Message)
		case errors.Is(err, domain.ErrNoActiveBlock):
			log.Error("no active block matches the target", "target", target)
		default:
			log.Error("action failed", "error", err)
		}
		return err
	}

	log.Info("action completed", "action", action, "target", target)
	return nil
}
