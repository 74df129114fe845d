// Command gridworld serves the grid-world reinforcement learning environment.
//
// Subcommands:
//  1. "serve" (default) runs the HTTP server exposing the REST API, the WebSocket
//     snapshot feed and an /mcp HTTP endpoint, optionally behind an ngrok tunnel
//  2. "mcp" runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "play" runs an episode headlessly from an action list and prints every transition
//  4. "render" runs an episode and writes one PNG frame per step
//
// Flags can also be set through environment variables or a .env file.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Grid World Environment Server"
)

// getConfigDirDefault returns the default configuration directory.
// It first honors the CONFIG_DIR environment variable, then falls back to "configs".
func getConfigDirDefault() string {
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		return configDir
	}
	return "configs"
}

// newApp builds the command tree. Global flags are visible to every subcommand.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "gridworld",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Value:   "localhost",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:  "config-dir",
				Value: getConfigDirDefault(),
				Usage: "Directory containing grid configurations",
			},
			&cli.StringFlag{
				Name:    "asset-dir",
				Usage:   "Directory containing sprite images; enables PNG frames",
				Sources: cli.EnvVars("ASSET_DIR"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			mcpCommand(),
			playCommand(),
			renderCommand(),
			versionCommand(),
		},
		Action: runServe,
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"server", "http"},
		Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "Enable ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "Ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "Custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
			&cli.DurationFlag{
				Name:  "session-ttl",
				Value: 24 * time.Hour,
				Usage: "Remove sessions not accessed for this long",
			},
			&cli.DurationFlag{
				Name:  "cleanup-interval",
				Value: time.Hour,
				Usage: "How often expired sessions are removed",
			},
		},
		Action: runServe,
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:    "mcp",
		Aliases: []string{"stdio-mcp", "mcp-stdio"},
		Usage:   "Run MCP stdio server, reusing an external API or starting an internal one",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-url",
				Value:   "http://localhost:8080",
				Usage:   "External API to proxy when it is reachable",
				Sources: cli.EnvVars("API_URL"),
			},
		},
		Action: runMCP,
	}
}

func episodeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "Config ID or path to a .json/.yaml file (default: the config directory's default)",
		},
		&cli.StringFlag{
			Name:  "actions",
			Usage: "Comma separated actions: 0-3 or up/down/right/left",
		},
		&cli.BoolFlag{
			Name:  "shortest",
			Usage: "Follow the shortest penalty-free path instead of --actions",
		},
	}
}

func playCommand() *cli.Command {
	return &cli.Command{
		Name:   "play",
		Usage:  "Run one episode headlessly and print every transition",
		Flags:  episodeFlags(),
		Action: runPlay,
	}
}

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "Run one episode and write a PNG frame per step",
		Flags: append(episodeFlags(),
			&cli.StringFlag{
				Name:  "out",
				Value: "frames",
				Usage: "Directory frames are written to",
			},
		),
		Action: runRender,
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, err := cmd.Root().Writer.Write([]byte(AppName + " v" + Version + "\n"))
			return err
		},
	}
}

// setupLogging applies the --debug flag
func setupLogging(cmd *cli.Command) {
	if cmd.Bool("debug") {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}
}

// main loads .env, parses flags and runs the selected subcommand.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
