package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kenobeee/mettta-space/internal/config"
	"github.com/kenobeee/mettta-space/internal/logging"
	"github.com/kenobeee/mettta-space/internal/peer"
	"github.com/kenobeee/mettta-space/internal/protocol"
	"github.com/kenobeee/mettta-space/internal/ui"
)

const replyTimeout = 10 * time.Second

var (
	flagServer string
	flagToken  string
)

// ConnectionContext is an open coordinator connection plus the config it
// was made with.
type ConnectionContext struct {
	Client *peer.Client
	Config *config.Config
	Logger *slog.Logger
	Self   string
}

// LoadConfig merges the persistent flags into opts and loads the config.
func LoadConfig(opts config.Options) (*config.Config, error) {
	opts.ConfigFile = flagConfig
	opts.EnvFile = flagEnvFile
	opts.LogLevel = flagLogLevel
	if opts.ServerURL == "" {
		opts.ServerURL = flagServer
	}
	if opts.Token == "" {
		opts.Token = flagToken
	}

	cfg, err := config.Load(opts)
	if err != nil {
		return nil, peer.NewError("load config", err)
	}
	logging.Init(cfg.LogLevel)
	return cfg, nil
}

// NewConnectionContext dials the coordinator and waits for the welcome.
func NewConnectionContext(ctx context.Context, cfg *config.Config) (*ConnectionContext, error) {
	logger := slog.Default()

	stop := ui.RunConnectionSpinner("Connecting to " + cfg.ServerURL + "...")
	defer stop()

	client := peer.NewClient(cfg.ServerURL, logger)
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}

	c := &ConnectionContext{Client: client, Config: cfg, Logger: logger}
	welcome, err := await[protocol.Welcome](ctx, c)
	if err != nil {
		client.Close()
		return nil, err
	}
	c.Self = welcome.ClientID
	return c, nil
}

func (c *ConnectionContext) Close() {
	if c.Client != nil {
		c.Client.Close()
	}
}

// Authenticate signs in with the configured token.
func (c *ConnectionContext) Authenticate(ctx context.Context) (protocol.Profile, error) {
	if c.Config.Token == "" {
		return protocol.Profile{}, peer.WrapError("authenticate", peer.ErrServer, "no token configured, run `mira register` first")
	}
	if err := c.Client.Send(protocol.Auth{Token: c.Config.Token}); err != nil {
		return protocol.Profile{}, err
	}
	ok, err := await[protocol.AuthOK](ctx, c)
	if err != nil {
		return protocol.Profile{}, err
	}
	return ok.Profile, nil
}

// Request sends msg and waits for the first reply of type T.
func Request[T protocol.ServerMessage](ctx context.Context, c *ConnectionContext, msg protocol.ClientMessage) (T, error) {
	var zero T
	if err := c.Client.Send(msg); err != nil {
		return zero, err
	}
	return await[T](ctx, c)
}

// await skips unrelated broadcasts until a T, an error or an auth failure arrives.
func await[T protocol.ServerMessage](ctx context.Context, c *ConnectionContext) (T, error) {
	var zero T
	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return zero, peer.NewError("wait for "+zero.Kind(), peer.ErrTimeout)

		case msg, ok := <-c.Client.Incoming():
			if !ok {
				return zero, peer.NewError("wait for "+zero.Kind(), peer.ErrClosed)
			}
			if m, ok := msg.(T); ok {
				return m, nil
			}
			switch m := msg.(type) {
			case protocol.Error:
				return zero, fmt.Errorf("%w: %s (%s)", peer.ErrServer, m.Message, m.Code)
			case protocol.AuthError:
				return zero, fmt.Errorf("%w: %s", peer.ErrServer, m.Message)
			}
		}
	}
}
