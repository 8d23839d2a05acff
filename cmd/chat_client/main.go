package main

import (
	"context"
	"fmt"
	"os"

	"campus_chat_service/internal/chat/client"
	"campus_chat_service/internal/chat/domain"
	"campus_chat_service/internal/chat/tui"
	"campus_chat_service/pkg/config"
	"campus_chat_service/pkg/logger"
	"campus_chat_service/pkg/token"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	configDir := pflag.String("config-dir", config.EnvConfig.ChatServiceYAMLPath, "directory holding chat_client.yaml")
	server := pflag.String("server", "", "chat service base url, e.g. http://localhost:5001")
	tok := pflag.String("token", os.Getenv("CHAT_TOKEN"), "JWT issued by the auth service")
	room := pflag.String("room", "community-chat", "room name shown in the header")
	debug := pflag.Bool("debug", false, "enable debug logging")
	pflag.Parse()

	logger.Log = logger.InitializeFile("chat_client", config.EnvConfig.ChatClientLogPath)
	defer logger.Log.Sync()
	logger.Log.SetDebugMode(*debug)

	cfg, err := config.ReadConfig[config.ChatClient]("chat_client", *configDir)
	if err != nil {
		logger.Log.Info("chat_client.yaml not loaded, using flags", zap.Error(err))
	}
	if *server != "" {
		cfg.Server = *server
	}
	if *tok != "" {
		cfg.Token = *tok
	}
	if cfg.Server == "" || cfg.Token == "" {
		fmt.Fprintln(os.Stderr, "error: --server and --token are required")
		os.Exit(2)
	}

	claims, err := token.PeekJWT(cfg.Token)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: bad token: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := client.NewEngine(domain.Author{ID: claims.MemberID, Name: claims.Name})
	session := client.NewSession(cfg, engine)
	go func() {
		if err := session.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Log.Error("session stopped", zap.Error(err))
		}
	}()

	if _, err := tea.NewProgram(tui.NewModel(ctx, session, *room), tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
