// Command profilectl signs in to a taskhub server and reads or edits the
// signed-in user's profile.
//
// Usage:
//
//	profilectl [flags] show
//	profilectl [flags] set display_name=Ann bio="likes tea"
//	profilectl [flags] avatar-upload ./me.png
//	profilectl [flags] avatar-delete
//
// Credentials come from TASKHUB_EMAIL and TASKHUB_PASSWORD.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dtroode/taskhub-server/internal/config"
	"github.com/dtroode/taskhub-server/internal/identity"
	"github.com/dtroode/taskhub-server/internal/logger"
	"github.com/dtroode/taskhub-server/internal/model"
	"github.com/dtroode/taskhub-server/internal/profile"
	"github.com/dtroode/taskhub-server/internal/session"
)

var errFetchFailed = errors.New("profile fetch failed")

func main() {
	signUp := flag.Bool("signup", false, "register the account before signing in")
	username := flag.String("username", "", "username for -signup")
	keep := flag.Bool("keep-session", false, "do not sign out when done")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] show|set key=value...|avatar-upload FILE|avatar-delete\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.NewClientConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, logger, *signUp, *username, *keep, flag.Args(), os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.ClientConfig, logger *logger.Logger, signUp bool, username string, keep bool, args []string, w io.Writer) error {
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}

	provider := identity.NewClient(cfg.APIURL, httpClient, logger)
	defer provider.Close()

	sessions := session.New(provider, logger)
	defer sessions.Close()

	if err := sessions.Initialize(ctx); err != nil {
		return err
	}

	if err := signIn(ctx, provider, sessions, cfg, signUp, username); err != nil {
		return err
	}

	// keeps the access token fresh during slow uploads
	refreshCtx, cancelRefresh := context.WithCancel(ctx)
	defer cancelRefresh()
	provider.StartAutoRefresh(refreshCtx, cfg.RefreshInterval)

	if !keep {
		defer func() {
			if err := sessions.Logout(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("sign out failed", "error", err)
			}
		}()
	}

	profiles := profile.New(
		sessions,
		profile.NewHTTPSource(cfg.APIURL, httpClient),
		profile.NewHTTPAvatarClient(cfg.APIURL, httpClient),
		logger,
	)
	defer profiles.Close()

	if err := loadProfile(ctx, profiles, cfg.RequestTimeout); err != nil {
		return err
	}

	var result model.Profile
	switch cmd := args[0]; cmd {
	case "show":
		current := profiles.Snapshot().Profile
		if current == nil {
			return model.ErrProfileNotLoaded
		}
		result = *current
	case "set":
		update, err := parseUpdate(args[1:])
		if err != nil {
			return err
		}
		p, err := profiles.UpdateProfile(ctx, update)
		if err != nil {
			return err
		}
		result = p
	case "avatar-upload":
		if len(args) != 2 {
			return errors.New("avatar-upload needs exactly one file")
		}
		f, err := os.Open(args[1])
		if err != nil {
			return fmt.Errorf("failed to open avatar: %w", err)
		}
		defer f.Close()

		p, err := profiles.UploadAvatar(ctx, filepath.Base(args[1]), f)
		if err != nil {
			return err
		}
		result = p
	case "avatar-delete":
		p, err := profiles.DeleteAvatar(ctx)
		if err != nil {
			return err
		}
		result = p
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	fmt.Fprintln(w, string(out))

	return nil
}

// loadProfile starts the profile store and waits for its first fetch. A
// failed first fetch is retried once.
func loadProfile(ctx context.Context, profiles *profile.Store, timeout time.Duration) error {
	profiles.Start(ctx)

	err := waitForProfile(ctx, profiles, timeout)
	if !errors.Is(err, errFetchFailed) {
		return err
	}

	return profiles.RefreshProfile(ctx)
}

// waitForProfile polls the store until the fetch started by Start settles.
func waitForProfile(ctx context.Context, profiles *profile.Store, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		st := profiles.Snapshot()
		if !st.Loading {
			if st.Profile != nil {
				return nil
			}
			if st.Error != "" {
				return fmt.Errorf("%w: %s", errFetchFailed, st.Error)
			}
		}
		select {
		case <-ticker.C:
		case <-deadline.C:
			return errors.New("timed out waiting for profile")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// signIn authenticates and waits until the session store has applied the
// resulting SIGNED_IN event.
func signIn(ctx context.Context, provider *identity.Client, sessions *session.Store, cfg *config.ClientConfig, signUp bool, username string) error {
	if cfg.Email == "" || cfg.Password == "" {
		return errors.New("TASKHUB_EMAIL and TASKHUB_PASSWORD must be set")
	}

	watch := sessions.Watch()
	defer watch.Unsubscribe()

	var err error
	if signUp {
		_, err = provider.SignUp(ctx, model.SignUpParams{Email: cfg.Email, Password: cfg.Password, Username: username})
	} else {
		_, err = provider.SignInWithPassword(ctx, model.Credentials{Email: cfg.Email, Password: cfg.Password})
	}
	if err != nil {
		return err
	}

	timeout := time.NewTimer(cfg.RequestTimeout)
	defer timeout.Stop()

	for {
		if sessions.Snapshot().IsAuthenticated {
			return nil
		}
		select {
		case <-watch.Events():
		case <-timeout.C:
			return errors.New("timed out waiting for session")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func parseUpdate(pairs []string) (model.ProfileUpdate, error) {
	var update model.ProfileUpdate
	if len(pairs) == 0 {
		return update, errors.New("set needs at least one key=value")
	}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return update, fmt.Errorf("invalid pair %q, want key=value", pair)
		}
		v := value
		switch key {
		case "display_name":
			update.DisplayName = &v
		case "bio":
			update.Bio = &v
		case "location":
			update.Location = &v
		case "website":
			update.Website = &v
		default:
			return update, fmt.Errorf("unknown profile field %q", key)
		}
	}

	return update, nil
}
