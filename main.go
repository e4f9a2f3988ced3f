// ABOUTME: Entry point for the agency CRM CLI, TUI, web dashboard, and MCP server
// ABOUTME: Parses global flags, loads configuration, and routes to the chosen command
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/agencycrm/cli"
	"github.com/harperreed/agencycrm/config"
	"github.com/harperreed/agencycrm/store"
	"github.com/harperreed/agencycrm/tui"
	"github.com/harperreed/agencycrm/web"
)

const version = "0.2.0"

type storeCommand func(ctx context.Context, st *store.Store, args []string) error

var crmCommands = map[string]storeCommand{
	"add-lead":        cli.AddLeadCommand,
	"list-leads":      cli.ListLeadsCommand,
	"update-lead":     cli.UpdateLeadCommand,
	"select-lead":     cli.SelectLeadCommand,
	"save-all-leads":  cli.SaveAllLeadsCommand,
	"delete-lead":     cli.DeleteLeadCommand,
	"import-leads":    cli.ImportLeadsCommand,
	"export-leads":    cli.ExportLeadsCommand,
	"convert-lead":    cli.ConvertLeadCommand,
	"list-clients":    cli.ListClientsCommand,
	"add-payment":     cli.AddPaymentCommand,
	"set-stage":       cli.SetStageCommand,
	"complete-client": cli.CompleteClientCommand,
	"delete-client":   cli.DeleteClientCommand,
	"list-customers":  cli.ListCustomersCommand,
	"delete-customer": cli.DeleteCustomerCommand,
	"export-customer": cli.ExportCustomerCommand,
	"set-goal":        cli.SetGoalCommand,
	"new-goal":        cli.NewGoalCommand,
	"goal":            cli.ShowGoalCommand,
	"list-tasks":      cli.ListTasksCommand,
	"add-task":        cli.AddTaskCommand,
	"task-status":     cli.TaskStatusCommand,
	"delete-task":     cli.DeleteTaskCommand,
	"onboard":         cli.OnboardCommand,
	"list-notes":      cli.ListNotesCommand,
	"add-note":        cli.AddNoteCommand,
	"pin-note":        cli.PinNoteCommand,
	"delete-note":     cli.DeleteNoteCommand,
	"activity":        cli.ListActivitiesCommand,
	"report":          cli.ExportReportCommand,
	"stats":           cli.StatsCommand,
}

func main() {
	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	apiURL := flag.String("api-url", "", "API base URL (overrides config)")
	cachePath := flag.String("cache-path", "", "Offline cache path (default: ~/.local/share/agencycrm/cache.db)")
	offline := flag.Bool("offline", false, "Serve from the offline cache without contacting the API")
	verbose := flag.Bool("verbose", false, "Mirror logs to stderr")

	// Parse global flags but don't fail on unknown (for subcommands)
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("agencycrm version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	if *apiURL != "" {
		cfg.APIBaseURL = *apiURL
	}
	if *cachePath != "" {
		cfg.CachePath = *cachePath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := args[0]
	commandArgs := args[1:]

	// Commands that never touch the pipeline
	switch command {
	case "login":
		exitOn(cli.LoginCommand(ctx, cfg, commandArgs))
		return
	case "logout":
		exitOn(cli.LogoutCommand(cfg, commandArgs))
		return
	case "whoami":
		exitOn(cli.WhoamiCommand(cfg, commandArgs))
		return
	case "help", "-h", "--help":
		printUsage()
		return
	}

	if !knownCommand(command) {
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	app, err := cli.Open(ctx, cfg, cli.OpenOptions{Offline: *offline, Verbose: *verbose})
	if err != nil {
		fatalf("Failed to load pipeline: %v", err)
	}
	app.Log.Info().Str("source", app.Describe()).Str("command", command).Msg("pipeline loaded")

	err = run(ctx, app, command, commandArgs)
	closeErr := app.Close()
	if err != nil {
		fatalf("Error: %v", err)
	}
	if closeErr != nil {
		fatalf("Error: %v", closeErr)
	}
}

func knownCommand(command string) bool {
	switch command {
	case "crm", "viz", "sync", "tui", "web", "mcp":
		return true
	}
	return false
}

func run(ctx context.Context, app *cli.App, command string, args []string) error {
	st := app.Store

	switch command {
	case "mcp":
		return cli.MCPCommand(ctx, st, app.Log.Component("mcp"), version)

	case "tui":
		return tui.Run(ctx, st)

	case "web":
		fs := flag.NewFlagSet("web", flag.ContinueOnError)
		port := fs.Int("port", app.Config.WebPort, "Port to listen on")
		if err := fs.Parse(args); err != nil {
			return err
		}
		server, err := web.NewServer(st, app.Log.Component("web"))
		if err != nil {
			return err
		}
		fmt.Printf("Serving dashboard at http://localhost:%d\n", *port)
		return server.Start(ctx, fmt.Sprintf(":%d", *port))

	case "sync":
		return cli.SyncCommand(ctx, st, app.Cache, args)

	case "crm":
		if len(args) == 0 {
			fmt.Println("Error: crm requires a subcommand")
			printUsage()
			os.Exit(1)
		}
		cmd, ok := crmCommands[args[0]]
		if !ok {
			fmt.Printf("Unknown crm command: %s\n\n", args[0])
			printUsage()
			os.Exit(1)
		}
		return cmd(ctx, st, args[1:])

	case "viz":
		if len(args) == 0 {
			fmt.Println("Error: viz requires a subcommand")
			printUsage()
			os.Exit(1)
		}
		switch args[0] {
		case "dashboard":
			return cli.VizDashboardCommand(ctx, st, args[1:])
		case "graph":
			if len(args) < 2 || args[1] != "pipeline" {
				fmt.Println("Error: viz graph requires a type (pipeline)")
				printUsage()
				os.Exit(1)
			}
			return cli.VizGraphPipelineCommand(ctx, st, args[2:])
		}
		fmt.Printf("Unknown viz command: %s\n\n", args[0])
		printUsage()
		os.Exit(1)
	}
	return nil
}

func exitOn(err error) {
	if err != nil {
		fatalf("Error: %v", err)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func printUsage() {
	fmt.Printf(`agencycrm v%s - Pipeline manager for small web agencies

USAGE:
  agencycrm [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --api-url <url>        API base URL (default from config: http://localhost:8000)
  --cache-path <path>    Offline cache path (default: ~/.local/share/agencycrm/cache.db)
  --offline              Serve from the offline cache without contacting the API
  --verbose              Mirror logs to stderr

COMMANDS:
  login                  Log in and cache the API token
    --email <email>          Account email
    --password <pw>          Password (prompted when omitted)
    --register               Create the account if login is refused
  logout                 Forget the cached token
  whoami                 Show the cached identity
  tui                    Full-screen pipeline manager
  web [--port <n>]       Web dashboard (default port 8080)
  mcp                    Start MCP server for desktop assistants
  sync                   Refresh the offline cache from the API
    --status                 Only show the last sync
    --history <n>            Recent sync runs to show (default: 5)
  crm                    Pipeline management commands
  viz                    Visualization commands

CRM COMMANDS:
  agencycrm crm add-lead        --name <name> [--contact <c>] [--comment <text>]
  agencycrm crm list-leads      [--saved] [--search <text>]
  agencycrm crm update-lead     --id <id> [--name] [--contact] [--comment]
  agencycrm crm select-lead     --id <id>     Move a new lead to saved leads
  agencycrm crm save-all-leads                Save every new lead
  agencycrm crm delete-lead     --id <id>
  agencycrm crm import-leads    --file <csv>  (businessName,contact,comment)
  agencycrm crm export-leads    [--output <file>] [--saved]

  agencycrm crm convert-lead    --id <saved-id> [--start YYYY-MM-DD] [--finish YYYY-MM-DD]
                                [--type <t>] [--domain <d>] [--hosting <h>] [--cms <c>]
                                [--stage <s>] [--maintenance] [--renewal YYYY-MM-DD]
  agencycrm crm list-clients
  agencycrm crm add-payment     --id <id> --amount <n>
  agencycrm crm set-stage       --id <id> --stage <Discovery|Design|Development|UAT|Launched>
  agencycrm crm complete-client --id <id>
  agencycrm crm delete-client   --id <id>

  agencycrm crm list-customers
  agencycrm crm delete-customer --id <id>
  agencycrm crm export-customer (--id <id> | --all) [--output <file>]

  agencycrm crm goal                          Show goal progress
  agencycrm crm set-goal        --target <n> --deadline YYYY-MM-DD [--title <t>]
  agencycrm crm new-goal                      Archive the current goal

  agencycrm crm list-tasks      [--status <s>] [--priority <p>]
  agencycrm crm add-task        --title <t> [--description] [--priority] [--due] [--client <id> | --lead <id>]
  agencycrm crm task-status     --id <id> --status <s>
  agencycrm crm delete-task     --id <id>
  agencycrm crm onboard         --client <id> [--service <type>] [--preview]

  agencycrm crm list-notes      [--related-to <t>] [--related-id <id>]
  agencycrm crm add-note        --content <text> [--related-to <t>] [--related-id <id>] [--pin]
  agencycrm crm pin-note        --id <id>
  agencycrm crm delete-note     --id <id>
  agencycrm crm activity        [--limit <n>]

  agencycrm crm report          [--output <file>]   Write crm-report.json
  agencycrm crm stats           [--remote]          Dashboard figures

VIZ COMMANDS:
  agencycrm viz dashboard                     Terminal dashboard
  agencycrm viz graph pipeline [--output <file>] [--clients]

EXAMPLES:
  # Add a lead, save it, and convert it
  agencycrm crm add-lead --name "Sunrise Yoga" --contact "+91 98765 43210"
  agencycrm crm select-lead --id <lead-id>
  agencycrm crm convert-lead --id <lead-id> --domain sunriseyoga.in --stage Design

  # Record a payment
  agencycrm crm add-payment --id <client-id> --amount 15000

  # Work offline from the last cached pipeline
  agencycrm --offline tui

`, version)
}
