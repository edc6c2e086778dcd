package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/burakkaraceylan/vessel/config"
	"github.com/burakkaraceylan/vessel/wire"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Watch the event stream of a running host",
	Long: `Connects to the host's websocket endpoint and streams events. With a
terminal attached an interactive monitor opens; otherwise events print one
per line.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		url, _ := cmd.Flags().GetString("url")
		if url == "" {
			cfg := config.Default()
			if _, err := os.Stat(configPath); err == nil {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			url = fmt.Sprintf("ws://%s:%d/", cfg.Host, cfg.WSPort)
		}
		return watchEvents(url)
	},
}

func init() {
	eventsCmd.Flags().String("url", "", "Websocket endpoint (default from config)")
	rootCmd.AddCommand(eventsCmd)
}

func watchEvents(url string) error {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", url, err)
	}
	defer conn.Close()

	if term.IsTerminal(int(os.Stdout.Fd())) {
		return runMonitor(url, conn)
	}
	return streamPlain(conn)
}

// streamPlain prints one event per line, for pipes and scripts.
func streamPlain(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil
		}
		msg, err := wire.ParseOutgoing(data)
		if err != nil {
			continue
		}
		if e, isEvent := msg.(*wire.Event); isEvent {
			fmt.Printf("%d %s.%s %v\n", e.Timestamp, e.Module, e.Name, e.Data)
		}
	}
}

func runMonitor(url string, conn *websocket.Conn) error {
	m := newMonitorModel(url, conn)
	p := tea.NewProgram(m, tea.WithAltScreen())

	go func() {
		defer p.Send(disconnectedMsg{})
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msg, err := wire.ParseOutgoing(data)
			if err != nil {
				continue
			}
			if e, isEvent := msg.(*wire.Event); isEvent {
				p.Send(eventMsg{event: e})
			}
		}
	}()

	_, err := p.Run()
	return err
}
