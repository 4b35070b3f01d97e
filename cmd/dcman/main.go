package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"vawter.tech/stopper"

	"dcman/internal/application"
	"dcman/internal/application/config"
	"dcman/internal/application/version"
	"dcman/internal/domain/model"
	"dcman/internal/infra/compose"
	"dcman/internal/infra/docker"
	"dcman/pkg/log"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	showHelp := flag.Bool("help", false, "Show help information")
	configPath := flag.String("config", config.DefaultFileName, "Path to configuration file")
	rootPath := flag.String("root", "", "Directory to scan for compose projects (overrides the config)")
	tail := flag.Int("tail", 0, "Log lines to fetch (0 uses the config default)")
	watch := flag.Bool("watch", false, "Keep running and re-load projects when compose files change")
	flag.Parse()

	if *showVersion {
		fmt.Printf("dcman version: %s (#%d)\n", version.GetVersion(), version.GetNumericVersion())
		os.Exit(0)
	}
	if *showHelp {
		printUsage()
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *rootPath != "" {
		cfg.RootPath = *rootPath
	}
	log.Init(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// A dead daemon is not fatal, but say so once instead of showing a
	// column of unknowns with no explanation.
	if probe, err := docker.NewProbe(); err != nil {
		log.Warn("docker probe unavailable", "error", err)
	} else {
		if err := probe.Check(ctx); err != nil {
			log.Warn("docker daemon check failed", "error", err)
		}
		_ = probe.Close()
	}

	o := application.NewOrchestrator(stopper.WithContext(ctx), cfg, compose.NewRepository(cfg))
	defer func() {
		if err := o.Close(); err != nil {
			log.Warn("shutdown finished with error", "error", err)
		}
	}()

	if err := run(ctx, o, cfg, flag.Args(), *tail, *watch); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		cancel()
		_ = o.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, o *application.Orchestrator, cfg *config.Config, args []string, tail int, watch bool) error {
	ch, err := o.DiscoverAndLoad()
	if err != nil {
		return err
	}
	for event := range ch {
		names := make([]string, len(event.Services))
		for i, svc := range event.Services {
			names[i] = svc.Name
		}
		fmt.Printf("loaded %s: %s\n", event.ProjectName, strings.Join(names, ", "))
	}
	if len(o.Services()) == 0 {
		return fmt.Errorf("no compose projects found under %s", cfg.RootPath)
	}

	if len(args) == 0 {
		printServices(o.Services())
		if !watch {
			return nil
		}
		o.WatchComposeFiles()
		fmt.Println("watching for compose file changes, ctrl-c to exit")
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				o.RefreshAll()
				printServices(o.Services())
			}
		}
	}

	command := args[0]
	if len(args) < 2 {
		return fmt.Errorf("command %q needs a project/service argument", command)
	}
	project, name, ok := strings.Cut(args[1], "/")
	if !ok {
		return fmt.Errorf("service must be given as project/service, got %q", args[1])
	}

	switch command {
	case "start", "stop", "restart", "toggle":
		result, svc, err := o.PerformAction(project, name, model.Action(command))
		if err != nil {
			return err
		}
		fmt.Println(result.Message)
		fmt.Printf("%s/%s is now %s\n", project, name, svc.Status)
		if !result.OK {
			return fmt.Errorf("%s failed", command)
		}
		return nil

	case "build":
		result, svc, err := o.PerformBuild(project, name)
		if err != nil {
			return err
		}
		if output, ok := o.BuildLogsFor(project, name); ok && output != "" {
			fmt.Print(output)
		}
		fmt.Println(result.Message)
		fmt.Printf("%s/%s is now %s\n", project, name, svc.Status)
		if !result.OK {
			return fmt.Errorf("build failed")
		}
		return nil

	case "logs":
		fmt.Println(o.FetchLogs(project, name, tail))
		return nil

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func printServices(services []model.Service) {
	fmt.Printf("%-24s %-24s %s\n", "PROJECT", "SERVICE", "STATUS")
	for _, svc := range services {
		fmt.Printf("%-24s %-24s %s\n", svc.ProjectName, svc.Name, svc.Status)
	}
}

func printUsage() {
	fmt.Println("dcman - docker compose service manager")
	fmt.Println("Usage: dcman [options] [command [project/service]]")
	fmt.Println("Commands:")
	fmt.Println("  (none)                      List discovered services and their statuses")
	fmt.Println("  start|stop|restart|toggle   Run the action against one service")
	fmt.Println("  build                       Build one service and show the build output")
	fmt.Println("  logs                        Show recent logs for one service")
	fmt.Println("Options:")
	fmt.Println("  --version  Show version information")
	fmt.Println("  --help     Show help information")
	fmt.Println("  --config   Path to configuration file (default: " + config.DefaultFileName + ")")
	fmt.Println("  --root     Directory to scan for compose projects")
	fmt.Println("  --tail     Log lines to fetch (0 uses the config default)")
	fmt.Println("  --watch    Keep running and re-load projects on compose file changes")
}
