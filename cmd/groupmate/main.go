// Package main contains the entrypoint for the groupmate chat bot.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/edgard/groupmate/internal/bot"
	"github.com/edgard/groupmate/internal/bot/tasks"
	"github.com/edgard/groupmate/internal/config"
	"github.com/edgard/groupmate/internal/dice"
	"github.com/edgard/groupmate/internal/llm"
	"github.com/edgard/groupmate/internal/logger"
	"github.com/edgard/groupmate/internal/memory"
	"github.com/edgard/groupmate/internal/pipeline"
	"github.com/edgard/groupmate/internal/responder"
	"github.com/edgard/groupmate/internal/search"
	"github.com/edgard/groupmate/internal/store"
	"github.com/edgard/groupmate/internal/transport"
	"github.com/edgard/groupmate/internal/transport/discord"
	"github.com/edgard/groupmate/internal/transport/telegram"
)

// exitCode carries a non-zero process status out of a command.
type exitCode int

func (c exitCode) Error() string { return fmt.Sprintf("exit status %d", int(c)) }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	var code exitCode
	switch {
	case err == nil:
		os.Exit(0)
	case errors.As(err, &code):
		os.Exit(int(code))
	default:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "groupmate",
		Short:         "A chat bot that takes part in group conversations",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if code := run(cmd.Context(), configPath); code != 0 {
				return exitCode(code)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "./config.yaml", "Path to configuration file")

	root.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print memory statistics from the configured store and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if code := stats(cmd.Context(), configPath, cmd); code != 0 {
				return exitCode(code)
			}
			return nil
		},
	})
	return root
}

// run builds every component, connects the transport and blocks until ctx
// is cancelled or the transport fails. It returns the process exit code.
func run(ctx context.Context, configPath string) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	st, err := store.Open(cfg.Store, log)
	if err != nil {
		log.Error("Failed to open store", "backend", cfg.Store.Backend, "error", err)
		return 1
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error("Failed to close store", "error", err)
		}
	}()

	mem := openMemory(ctx, cfg.Store, st, log)

	completer, err := llm.New(ctx, cfg.LLM, log)
	if err != nil {
		log.Warn("Failed to initialize LLM client, continuing with fallback replies", "error", err)
		completer = llm.Disabled{}
	}

	src := dice.NewTimeSeeded()
	gen := responder.New(responder.Deps{
		Memory: mem,
		LLM:    completer,
		Search: search.New(cfg.Search, log),
		Dice:   src,
		Logger: log,
	})

	tr, err := newTransport(cfg, log)
	if err != nil {
		log.Error("Failed to create transport", "platform", cfg.Bot.Platform, "error", err)
		return 1
	}

	pipe := pipeline.New(pipeline.Deps{
		Memory:    mem,
		Responder: gen,
		Policy:    pipeline.NewRandomPolicy(src),
		Config:    cfg.Bot,
		Logger:    log,
	})

	taskMap := tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger:    log,
		Memory:    mem,
		Responder: gen,
		Conn:      tr,
		Store:     st,
		Dice:      src,
	})
	sched, err := bot.NewScheduler(log, cfg.Scheduler, taskMap)
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	if err := bot.NewBot(log, tr, pipe, sched, mem).Run(ctx); err != nil {
		log.Error("Bot stopped with error", "error", err)
		return 1
	}
	log.Info("Application shut down gracefully")
	return 0
}

// stats loads the persisted memory and prints a summary without connecting
// to any chat platform.
func stats(ctx context.Context, configPath string, cmd *cobra.Command) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", configPath, "error", err)
		return 1
	}
	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)

	st, err := store.Open(cfg.Store, log)
	if err != nil {
		log.Error("Failed to open store", "backend", cfg.Store.Backend, "error", err)
		return 1
	}
	defer st.Close()

	mem := openMemory(ctx, cfg.Store, st, log)
	fmt.Fprintln(cmd.OutOrStdout(), pipeline.StatsReport(mem.Stats(5)))
	return 0
}

func openMemory(ctx context.Context, cfg config.StoreConfig, st store.Store, log *slog.Logger) *memory.Memory {
	mem := memory.New(memory.Options{
		Persister:    st,
		FlushOnWrite: cfg.FlushOnWrite,
		TopicCap:     cfg.TopicCap,
		HistoryCap:   cfg.HistoryCap,
		Logger:       log,
	})
	mem.Load(ctx, st)
	return mem
}

func newTransport(cfg *config.Config, log *slog.Logger) (transport.Transport, error) {
	switch cfg.Bot.Platform {
	case "telegram":
		return telegram.New(cfg.Telegram.Token, log)
	default:
		return discord.New(cfg.Discord.Token, log)
	}
}
