package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/iudanet/gophboard/internal/client/iocli"
	"github.com/iudanet/gophboard/internal/config"
)

// BuildInfo версия сборки, задается через ldflags в cmd/client
type BuildInfo struct {
	Version   string
	BuildDate string
	GitCommit string
}

type rootFlags struct {
	configPath string
	server     string
	dbPath     string
	user       string
	transport  string
	logLevel   string
	redisAddr  string
	token      string
}

// Root корневая команда и состояние, разделяемое подкомандами
type Root struct {
	io     iocli.IO
	logOut io.Writer
	app    *App
	flags  rootFlags
	cfg    config.Client
}

// Execute разбирает args, выполняет команду и закрывает открытые ресурсы
func Execute(ctx context.Context, stdio iocli.IO, logOut io.Writer, build BuildInfo, args []string) error {
	cmd, r := newRootCommand(stdio, logOut, build)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return errors.Join(err, r.close())
}

func newRootCommand(stdio iocli.IO, logOut io.Writer, build BuildInfo) (*cobra.Command, *Root) {
	r := &Root{io: stdio, logOut: logOut}

	cmd := &cobra.Command{
		Use:           "gophboard",
		Short:         "Collaborative project documents from the terminal",
		Version:       build.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(stdio)
	cmd.SetVersionTemplate(fmt.Sprintf("GophBoard Client\nVersion:    %s\nBuild Date: %s\nGit Commit: %s\n",
		build.Version, build.BuildDate, build.GitCommit))

	pf := cmd.PersistentFlags()
	pf.StringVar(&r.flags.configPath, "config", os.Getenv(config.EnvPrefix+"CONFIG"), "path to YAML config file")
	pf.StringVar(&r.flags.server, "server", "", "relay server URL")
	pf.StringVar(&r.flags.dbPath, "db", "", "path to local database")
	pf.StringVarP(&r.flags.user, "user", "u", "", "user ID (userA, userB, userC)")
	pf.StringVar(&r.flags.transport, "transport", "", "transport: relay or p2p")
	pf.StringVar(&r.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&r.flags.redisAddr, "redis", "", "Redis address for the project event bus")
	pf.StringVar(&r.flags.token, "token", "", "relay access token")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return r.loadConfig(cmd)
	}

	cmd.AddCommand(
		newEditCommand(r),
		newVersionsCommand(r),
		newActivityCommand(r),
		newBoardCommand(r),
		newShareCommand(r),
		newProjectsCommand(r),
		newTokenCommand(r),
		newStatusCommand(r),
		newDemoCommand(r),
	)
	return cmd, r
}

// loadConfig: значения по умолчанию < файл < окружение < флаги
func (r *Root) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.LoadClient(r.flags.configPath, os.LookupEnv)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	override := func(name string, dst *string, value string) {
		if flags.Changed(name) {
			*dst = value
		}
	}
	override("server", &cfg.ServerURL, r.flags.server)
	override("db", &cfg.DBPath, r.flags.dbPath)
	override("user", &cfg.UserID, r.flags.user)
	override("transport", &cfg.Transport, r.flags.transport)
	override("log-level", &cfg.LogLevel, r.flags.logLevel)
	override("redis", &cfg.RedisAddr, r.flags.redisAddr)
	override("token", &cfg.Token, r.flags.token)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	r.cfg = cfg
	return nil
}

// App открывает приложение при первом обращении
func (r *Root) App(cmd *cobra.Command) (*App, error) {
	if r.app != nil {
		return r.app, nil
	}
	logger, err := config.NewLogger(r.logOut, r.cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	app, err := NewApp(cmd.Context(), r.cfg, r.io, logger)
	if err != nil {
		return nil, err
	}
	r.app = app
	return app, nil
}

func (r *Root) close() error {
	if r.app == nil {
		return nil
	}
	err := r.app.Close()
	r.app = nil
	return err
}
