package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/statusdeck/statusdeck/internal/app"
	"github.com/statusdeck/statusdeck/internal/config"
	"github.com/statusdeck/statusdeck/internal/dashboard"
	"github.com/statusdeck/statusdeck/internal/protocol"
	"github.com/statusdeck/statusdeck/internal/transport"
	"github.com/statusdeck/statusdeck/internal/watch"
)

func main() {
	configPath := flag.String("config", "statusdeck.yaml", "Path to config file")
	baseURL := flag.String("url", "", "Override backend base URL")
	token := flag.String("token", "", "Override auth token")
	runID := flag.String("run", "", "Agent run id to follow")
	projectID := flag.String("project", "", "Project id whose preview servers to track")
	plain := flag.Bool("plain", false, "Print events to stdout instead of the TUI")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	before := *cfg
	cfg.ApplyEnv()
	for _, change := range config.Diff(&before, cfg) {
		log.Printf("config: %s", change)
	}
	if *baseURL != "" {
		cfg.Server.BaseURL = *baseURL
	}
	if *token != "" {
		cfg.Server.Token = *token
	}

	if *runID == "" {
		fmt.Fprintln(os.Stderr, "Usage: statusdeck -run <run-id> [-project <project-id>] [-plain]")
		os.Exit(2)
	}

	rest := transport.NewRESTClient(cfg.Server.BaseURL, cfg.Server.Token)
	streams := transport.NewStreamOpener(transport.DeriveStreamBase(cfg.Server.BaseURL), cfg.Server.Token)

	open := watch.OpenFunc(func(ctx context.Context, path string) (watch.Stream, error) {
		return streams.Open(ctx, path)
	})
	fetch := watch.FetchFunc(rest.GetJSON)
	policy := watch.Policy{
		MaxRetries:   cfg.Watch.MaxRetries,
		RetryDelay:   cfg.Watch.RetryDelay(),
		PollInterval: cfg.Watch.PollInterval(),
	}

	runs := watch.Subscribe(open, fetch, dashboard.RunAdapter(), policy, *runID)

	var servers *watch.Subscription[protocol.ServerList]
	if *projectID != "" {
		servers = watch.Subscribe(open, fetch, dashboard.ServerAdapter(), policy, *projectID)
	}

	if *plain {
		runPlain(runs, servers)
		return
	}

	p := tea.NewProgram(app.New(runs, servers), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runPlain follows the run on stdout until the run reaches a terminal
// status or the process is interrupted. Useful over ssh and in scripts.
func runPlain(runs *watch.Subscription[protocol.RunState], servers *watch.Subscription[protocol.ServerList]) {
	defer runs.Unsubscribe()
	if servers != nil {
		defer servers.Unsubscribe()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	printed := 0
	lastMode := watch.ModeDisconnected
	for {
		select {
		case <-sig:
			return
		case <-runs.Changed():
		}

		if mode := runs.Mode(); mode != lastMode {
			lastMode = mode
			log.Printf("connection: %s", mode)
		}

		events := runs.Events()
		for _, ev := range events[printed:] {
			fmt.Println(plainEventLine(ev))
		}
		printed = len(events)

		if snap, ok := runs.Snapshot(); ok && snap.Status.IsTerminal() {
			fmt.Printf("run %s: %s\n", snap.ID, snap.Status)
			return
		}
	}
}

func plainEventLine(ev watch.Event) string {
	var msg protocol.StreamMessage
	if json.Unmarshal(ev.Raw, &msg) != nil {
		return ev.Type
	}
	switch msg.Type {
	case protocol.MsgLog, protocol.MsgServerOutput:
		var p protocol.LogPayload
		if json.Unmarshal(msg.Payload, &p) == nil {
			return p.Line
		}
	case protocol.MsgToolCall:
		var p protocol.ToolCallPayload
		if json.Unmarshal(msg.Payload, &p) == nil {
			return "tool: " + p.Tool
		}
	case protocol.MsgStatus:
		var p protocol.StatusPayload
		if json.Unmarshal(msg.Payload, &p) == nil {
			return "status: " + string(p.Status)
		}
	case protocol.MsgError:
		var p protocol.ErrorPayload
		if json.Unmarshal(msg.Payload, &p) == nil {
			return "error: " + p.Message
		}
	}
	return string(msg.Type)
}
