// Command ltcctl inspects and configures an LTC3350 supercapacitor controller
// from the shell.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jamesprial/supercap-mcp/internal/config"
	"github.com/jamesprial/supercap-mcp/internal/hwmon"
	"github.com/jamesprial/supercap-mcp/internal/logging"
	"github.com/jamesprial/supercap-mcp/internal/publish"
	"github.com/jamesprial/supercap-mcp/internal/safety"
	"github.com/jamesprial/supercap-mcp/internal/supercap"
	"github.com/sirupsen/logrus"
)

const usage = `%[1]s: inspect an LTC3350 supercapacitor controller
Usage:

 %[1]s [flags] <command> [arguments]

Commands:
 show                         list every attribute, raw and converted
 await                        report status word changes until interrupted
 write <name> <value> [unit]  write a threshold, converting from unit
 read [-c] <name>             print an attribute, -c converts it
 clear                        clear the active alarms
 status                       decoded status report
 sensors [flags]              sample measurements to CSV
 history [-n count]           recent status events published to Redis
 shell                        interactive console

Flags:
`

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage, os.Args[0])
		flag.PrintDefaults()
	}
	configPath := flag.String("config", "", "YAML config file")
	dir := flag.String("dir", "", "hwmon directory of the controller (discovered when empty)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	config.ApplyEnvOverrides(cfg)
	if *dir != "" {
		cfg.Device.HwmonDir = *dir
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	log := logging.Setup(cfg.Log)

	c, err := newCLI(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("no controller")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := c.run(ctx, flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "%s: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}
}

func newCLI(cfg *config.Config, log *logrus.Logger) (*cli, error) {
	dir := cfg.Device.HwmonDir
	if dir == "" {
		var err error
		dir, err = hwmon.Discover(cfg.Device.SysPath, cfg.Device.ChipName)
		if err != nil {
			return nil, err
		}
	}
	log.WithField("dir", dir).Debug("using hwmon device")
	store := hwmon.NewSysfsStore(dir)
	filter := safety.NewFilter(cfg.Safety.Attributes.Allowlist, cfg.Safety.Attributes.Denylist)
	c := &cli{
		ctrl:  supercap.NewController(store, filter, log),
		dir:   dir,
		watch: cfg.Watch,
		out:   os.Stdout,
		log:   log,
	}
	if cfg.Redis.Enabled {
		opts := publish.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
			Device:   cfg.Device.ChipName,
			History:  cfg.Redis.History,
		}
		c.openHistory = func(ctx context.Context) (historySource, error) {
			p, err := publish.NewRedisPublisher(ctx, opts, log)
			if err != nil {
				return nil, err
			}
			return p, nil
		}
	}
	return c, nil
}
